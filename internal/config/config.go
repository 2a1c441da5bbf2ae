package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

var (
	ErrMissingAnalyticsDB = errors.New("analytics database name is not set")
	ErrInvalidValue       = errors.New("invalid value")
)

// ConfigurationError reports a setting that prevents the service from starting.
type ConfigurationError struct {
	Key string
	Err error
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("config %s: %v", e.Key, e.Err)
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

type OverlapPolicy string

const (
	OverlapSkip  OverlapPolicy = "skip"
	OverlapQueue OverlapPolicy = "queue"
)

type Config struct {
	// ETL
	BatchSize       int
	IntervalMinutes int
	OverlapPolicy   OverlapPolicy
	RunOnStart      bool

	// Operational store
	SourceDriver string
	SourceDSN    string

	// Analytics store
	AnalHost     string
	AnalPort     string
	AnalUser     string
	AnalPassword string
	AnalDB       string
	AnalSSLMode  string

	// Observability
	LogLevel     string
	LogRetention int
	SentryDSN    string
	AppEnv       string

	// Ops API
	Port        string
	AdminToken  string
	JWTSecret   string
	CORSOrigins string
}

func Load() *Config {
	return &Config{
		BatchSize:       parseInt(getEnv("ETL_BATCH_SIZE", "1000"), 1000),
		IntervalMinutes: parseInt(getEnv("ETL_INTERVAL_MINUTES", "3"), 3),
		OverlapPolicy:   OverlapPolicy(strings.ToLower(getEnv("ETL_OVERLAP_POLICY", string(OverlapSkip)))),
		RunOnStart:      parseBool(getEnv("ETL_RUN_ON_START", "false")),

		SourceDriver: strings.ToLower(getEnv("SOURCE_DRIVER", "sqlite")),
		SourceDSN:    getEnv("SOURCE_DSN", "data/database.db"),

		AnalHost:     getEnv("ANAL_POSTGRES_HOST", "localhost"),
		AnalPort:     getEnv("ANAL_POSTGRES_PORT", "5432"),
		AnalUser:     getEnv("ANAL_POSTGRES_USER", "postgres"),
		AnalPassword: getEnv("ANAL_POSTGRES_PASSWORD", ""),
		AnalDB:       getEnv("ANAL_POSTGRES_DB", ""),
		AnalSSLMode:  getEnv("ANAL_POSTGRES_SSLMODE", "disable"),

		LogLevel:     getEnv("LOG_LEVEL", "INFO"),
		LogRetention: parseInt(getEnv("LOG_RETENTION_DAYS", "30"), 30),
		SentryDSN:    getEnv("SENTRY_DSN", ""),
		AppEnv:       getEnv("APP_ENV", "development"),

		Port:        getEnv("PORT", "8080"),
		AdminToken:  getEnv("ADMIN_TOKEN", ""),
		JWTSecret:   getEnv("JWT_SECRET", ""),
		CORSOrigins: getEnv("CORS_ORIGINS", "*"),
	}
}

// Validate rejects settings the service cannot start with. No connection is
// attempted before it passes.
func (c *Config) Validate() error {
	if c.AnalDB == "" {
		return &ConfigurationError{Key: "ANAL_POSTGRES_DB", Err: ErrMissingAnalyticsDB}
	}
	if c.SourceDSN == "" {
		return &ConfigurationError{Key: "SOURCE_DSN", Err: fmt.Errorf("%w: empty", ErrInvalidValue)}
	}
	if c.BatchSize <= 0 {
		return &ConfigurationError{Key: "ETL_BATCH_SIZE", Err: fmt.Errorf("%w: %d", ErrInvalidValue, c.BatchSize)}
	}
	if c.IntervalMinutes <= 0 {
		return &ConfigurationError{Key: "ETL_INTERVAL_MINUTES", Err: fmt.Errorf("%w: %d", ErrInvalidValue, c.IntervalMinutes)}
	}
	switch c.OverlapPolicy {
	case OverlapSkip, OverlapQueue:
	default:
		return &ConfigurationError{Key: "ETL_OVERLAP_POLICY", Err: fmt.Errorf("%w: %q", ErrInvalidValue, c.OverlapPolicy)}
	}
	return nil
}

func (c *Config) Interval() time.Duration {
	return time.Duration(c.IntervalMinutes) * time.Minute
}

func (c *Config) AnalyticsDSN() string {
	return "host=" + c.AnalHost +
		" user=" + c.AnalUser +
		" password=" + c.AnalPassword +
		" dbname=" + c.AnalDB +
		" port=" + c.AnalPort +
		" sslmode=" + c.AnalSSLMode +
		" TimeZone=UTC"
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func parseInt(s string, fallback int) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return fallback
	}
	return n
}

func parseBool(s string) bool {
	b, err := strconv.ParseBool(strings.TrimSpace(s))
	if err != nil {
		return false
	}
	return b
}
