package database

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/AlexPunches/1x-fit/internal/config"
	"github.com/AlexPunches/1x-fit/internal/etl"
	"github.com/AlexPunches/1x-fit/internal/models"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// DB is the shared analytics pool.
var DB *gorm.DB

func gormConfig() *gorm.Config {
	return &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	}
}

func ConnectAnalytics(cfg *config.Config) error {
	var err error
	DB, err = gorm.Open(postgres.Open(cfg.AnalyticsDSN()), gormConfig())
	if err != nil {
		return fmt.Errorf("failed to connect to analytics database: %w", err)
	}

	sqlDB, err := DB.DB()
	if err != nil {
		return fmt.Errorf("failed to get sql.DB: %w", err)
	}

	sqlDB.SetMaxOpenConns(10)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)
	sqlDB.SetConnMaxIdleTime(5 * time.Minute)

	slog.Info("analytics database connected", "host", cfg.AnalHost, "db", cfg.AnalDB)
	return nil
}

// MigrateAnalytics creates the analytics tables and their unique keys.
func MigrateAnalytics(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.Activity{},
		&models.WeightData{},
		&models.ActivityData{},
		&models.EtlRun{},
		&models.SystemLog{},
	)
}

func Ping(ctx context.Context) error {
	if DB == nil {
		return fmt.Errorf("analytics database not connected")
	}
	sqlDB, err := DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close releases the shared pool.
func Close() error {
	if DB == nil {
		return nil
	}
	sqlDB, err := DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// SharedOpener hands out an existing pool. Releasing it is a no-op so one pool
// serves every run.
func SharedOpener(db *gorm.DB) etl.Opener {
	return func(ctx context.Context) (*gorm.DB, func() error, error) {
		if db == nil {
			return nil, nil, etl.ErrNotConnected
		}
		return db, func() error { return nil }, nil
	}
}
