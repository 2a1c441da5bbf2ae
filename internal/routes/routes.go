package routes

import (
	"time"

	"github.com/AlexPunches/1x-fit/internal/config"
	"github.com/AlexPunches/1x-fit/internal/handlers"
	"github.com/AlexPunches/1x-fit/internal/metrics"
	"github.com/AlexPunches/1x-fit/internal/middleware"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
)

func Setup(
	app *fiber.App,
	cfg *config.Config,
	healthHandler *handlers.HealthHandler,
	pipelineHandler *handlers.PipelineHandler,
	runHandler *handlers.RunHandler,
) {
	app.Get("/metrics", metrics.Handler())

	api := app.Group("/api")

	// General API rate limiter: 60 req/min per IP
	api.Use(limiter.New(limiter.Config{
		Max:               60,
		Expiration:        1 * time.Minute,
		LimiterMiddleware: limiter.SlidingWindow{},
		KeyGenerator:      func(c *fiber.Ctx) string { return c.IP() },
	}))

	api.Get("/health", healthHandler.Check)

	admin := api.Group("/admin", middleware.AdminRequired(cfg))
	admin.Get("/pipelines", pipelineHandler.List)
	admin.Post("/pipelines/:name/run", pipelineHandler.Run)
	admin.Get("/runs", runHandler.List)
}
