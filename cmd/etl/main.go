package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	sentryfiber "github.com/getsentry/sentry-go/fiber"

	"github.com/AlexPunches/1x-fit/internal/config"
	"github.com/AlexPunches/1x-fit/internal/database"
	"github.com/AlexPunches/1x-fit/internal/etl"
	"github.com/AlexPunches/1x-fit/internal/handlers"
	"github.com/AlexPunches/1x-fit/internal/logging"
	"github.com/AlexPunches/1x-fit/internal/middleware"
	"github.com/AlexPunches/1x-fit/internal/models"
	"github.com/AlexPunches/1x-fit/internal/pipelines"
	"github.com/AlexPunches/1x-fit/internal/routes"
	"github.com/AlexPunches/1x-fit/internal/scheduler"
	"github.com/AlexPunches/1x-fit/internal/services"
	"github.com/gofiber/fiber/v2"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
)

func main() {
	once := flag.Bool("once", false, "run every pipeline once and exit")
	bootstrapSource := flag.Bool("bootstrap-source", false, "create the operational tables in a SQLite source")
	flag.Parse()

	cfg := config.Load()

	// Structured logging (JSON to stdout)
	stdout := logging.Setup(cfg.LogLevel)

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	// Analytics database
	if err := database.ConnectAnalytics(cfg); err != nil {
		slog.Error("database connection failed", "error", err)
		os.Exit(1)
	}
	if err := database.MigrateAnalytics(database.DB); err != nil {
		slog.Error("analytics migration failed", "error", err)
		os.Exit(1)
	}

	// PostgreSQL log handler (ERROR+ async batch)
	pgLogHandler := logging.NewPGHandler(database.DB)
	slog.SetDefault(slog.New(logging.NewMultiHandler(stdout, pgLogHandler)))

	cleanupDone := make(chan struct{})
	logging.StartCleanup(database.DB, cfg.LogRetention, cleanupDone)

	// Sentry error tracking
	if cfg.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:              cfg.SentryDSN,
			EnableTracing:    true,
			TracesSampleRate: 0.2,
			Environment:      cfg.AppEnv,
		}); err != nil {
			slog.Error("sentry init failed", "error", err)
		} else {
			defer sentry.Flush(2 * time.Second)
		}
	}

	if *bootstrapSource {
		if err := bootstrapSQLiteSource(cfg); err != nil {
			slog.Error("source bootstrap failed", "error", err)
			os.Exit(1)
		}
	}

	// Pipelines
	sourceOpener, err := database.SourceOpener(cfg.SourceDriver, cfg.SourceDSN)
	if err != nil {
		slog.Error("unsupported source store", "driver", cfg.SourceDriver, "supported", database.SourceDrivers(), "error", err)
		os.Exit(1)
	}
	registry := etl.NewRegistry()
	if err := pipelines.Register(registry, pipelines.Deps{
		Source:    sourceOpener,
		Analytics: database.SharedOpener(database.DB),
		BatchSize: cfg.BatchSize,
	}); err != nil {
		slog.Error("pipeline registration failed", "error", err)
		os.Exit(1)
	}
	slog.Info("pipelines registered", "pipelines", registry.Names())

	runService := services.NewRunService(database.DB)
	sched := scheduler.New(registry, scheduler.Options{
		Interval:   cfg.Interval(),
		Policy:     cfg.OverlapPolicy,
		RunOnStart: cfg.RunOnStart,
		Recorder:   runService,
	})

	if *once {
		err := sched.RunAll(context.Background(), models.TriggerManual)
		shutdown(cleanupDone, pgLogHandler)
		if err != nil {
			os.Exit(1)
		}
		return
	}

	// Handlers
	healthHandler := handlers.NewHealthHandler(database.Ping, registry.Names)
	pipelineHandler := handlers.NewPipelineHandler(sched)
	runHandler := handlers.NewRunHandler(runService)

	// Fiber app
	app := fiber.New(fiber.Config{
		BodyLimit:    1 * 1024 * 1024,
		ErrorHandler: customErrorHandler,
	})

	app.Use(sentryfiber.New(sentryfiber.Options{
		Repanic:         true,
		WaitForDelivery: false,
	}))

	// Global middleware
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(fiberlogger.New(fiberlogger.Config{
		Format: "${time} | ${status} | ${latency} | ${ip} | ${method} | ${path}\n",
	}))
	app.Use(middleware.CORS(cfg))
	app.Use(func(c *fiber.Ctx) error {
		c.Set("X-Content-Type-Options", "nosniff")
		c.Set("X-Frame-Options", "DENY")
		return c.Next()
	})

	routes.Setup(app, cfg, healthHandler, pipelineHandler, runHandler)

	sched.Start(context.Background())

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("ops server starting", "port", cfg.Port)
		if err := app.Listen(":" + cfg.Port); err != nil {
			slog.Error("ops server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	<-quit
	slog.Info("shutting down, waiting for running pipelines...")

	sched.Stop()
	if err := app.Shutdown(); err != nil {
		slog.Error("server shutdown error", "error", err)
	}
	shutdown(cleanupDone, pgLogHandler)

	slog.Info("etl service stopped")
}

func shutdown(cleanupDone chan struct{}, pgLogHandler *logging.PGHandler) {
	close(cleanupDone)
	pgLogHandler.Stop()
	sentry.Flush(2 * time.Second)

	if err := database.Close(); err != nil {
		slog.Error("database close error", "error", err)
	}
}

func bootstrapSQLiteSource(cfg *config.Config) error {
	if cfg.SourceDriver != "sqlite" {
		return errors.New("-bootstrap-source requires SOURCE_DRIVER=sqlite")
	}
	db, err := database.OpenSQLite(cfg.SourceDSN)
	if err != nil {
		return err
	}
	defer func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	}()
	if err := database.EnsureSQLiteSourceSchema(db); err != nil {
		return err
	}
	slog.Info("source schema ready", "dsn", cfg.SourceDSN)
	return nil
}

func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal server error"
	var e *fiber.Error
	if errors.As(err, &e) {
		code = e.Code
		message = e.Message
	}

	// Only expose error details for client errors (4xx), not server errors (5xx)
	if code >= 500 {
		slog.Error("unhandled server error", "method", c.Method(), "path", c.Path(), "error", err.Error())
		message = "Internal server error"
	}

	return c.Status(code).JSON(fiber.Map{
		"error":   true,
		"message": message,
	})
}
