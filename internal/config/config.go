// Package config provides configuration management for the session
// ingestion pipeline. It loads configuration from environment variables
// and .env files.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/Redeemedduck/GolfDataApp-sub000/internal/models"
)

// Config holds all application configuration
type Config struct {
	Server    ServerConfig
	Postgres  PostgresConfig
	Redis     RedisConfig
	Importer  ImporterConfig
	RateLimit RateLimitConfig
	Backfill  BackfillConfig
	Notify    NotifyConfig
	Logging   LoggingConfig
}

// ServerConfig holds the ops API listener configuration
type ServerConfig struct {
	Port string
	Host string
}

// PostgresConfig holds Postgres configuration
type PostgresConfig struct {
	Host           string
	Port           string
	Database       string
	User           string
	Password       string
	MaxConnections int
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

// ImporterConfig holds the import service client configuration
type ImporterConfig struct {
	BaseURL string
	Timeout time.Duration
}

// RateLimitConfig holds portal rate limiting configuration
type RateLimitConfig struct {
	RequestsPerMinute int
	Burst             int
	MinDelay          time.Duration
	MaxJitter         time.Duration
	BackoffMultiplier float64
	MaxBackoff        time.Duration
}

// BackfillConfig holds the defaults for backfill runs. Individual runs can
// override any of these through flags or the run config snapshot.
type BackfillConfig struct {
	MaxSessionsPerRun  int
	MaxSessionsPerHour int
	CheckpointInterval int
	MaxRetries         int
	RetryDelayBase     time.Duration
	NormalizeClubs     bool
	AutoTag            bool
	Order              models.SessionOrder
}

// NotifyConfig holds notification channel configuration
type NotifyConfig struct {
	SlackToken   string
	SlackChannel string
	SlackEnabled bool
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string
	Format string
}

// LoadConfig loads configuration from .env file and environment variables
func LoadConfig() (*Config, error) {
	// Load .env file (optional in production)
	if err := godotenv.Load(); err != nil {
		// .env file is optional - environment variables can be set directly
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("error loading .env file: %w", err)
		}
	}

	config := fromEnv()
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// LoadConfigOrDefaults is LoadConfig for tests and tooling that must not
// fail on a missing or partial environment.
func LoadConfigOrDefaults() *Config {
	_ = godotenv.Load()
	return fromEnv()
}

func fromEnv() *Config {
	return &Config{
		Server: ServerConfig{
			Port: getEnv("SERVER_PORT", "8080"),
			Host: getEnv("SERVER_HOST", "0.0.0.0"),
		},
		Postgres: PostgresConfig{
			Host:           getEnv("POSTGRES_HOST", "localhost"),
			Port:           getEnv("POSTGRES_PORT", "5432"),
			Database:       getEnv("POSTGRES_DB", "golfdata"),
			User:           getEnv("POSTGRES_USER", "golfdata"),
			Password:       getEnv("POSTGRES_PASSWORD", ""),
			MaxConnections: getEnvAsInt("POSTGRES_MAX_CONNECTIONS", 20),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		Importer: ImporterConfig{
			BaseURL: getEnv("IMPORTER_BASE_URL", "http://localhost:9000"),
			Timeout: getEnvAsDuration("IMPORTER_TIMEOUT", 2*time.Minute),
		},
		RateLimit: RateLimitConfig{
			RequestsPerMinute: getEnvAsInt("RATE_LIMIT_RPM", 10),
			Burst:             getEnvAsInt("RATE_LIMIT_BURST", 2),
			MinDelay:          getEnvAsDuration("RATE_LIMIT_MIN_DELAY", 3*time.Second),
			MaxJitter:         getEnvAsDuration("RATE_LIMIT_MAX_JITTER", 2*time.Second),
			BackoffMultiplier: getEnvAsFloat("RATE_LIMIT_BACKOFF_MULTIPLIER", 2.0),
			MaxBackoff:        getEnvAsDuration("RATE_LIMIT_MAX_BACKOFF", 5*time.Minute),
		},
		Backfill: BackfillConfig{
			MaxSessionsPerRun:  getEnvAsInt("BACKFILL_MAX_SESSIONS_PER_RUN", 0),
			MaxSessionsPerHour: getEnvAsInt("BACKFILL_MAX_SESSIONS_PER_HOUR", 0),
			CheckpointInterval: getEnvAsInt("BACKFILL_CHECKPOINT_INTERVAL", 10),
			MaxRetries:         getEnvAsInt("BACKFILL_MAX_RETRIES", 3),
			RetryDelayBase:     getEnvAsDuration("BACKFILL_RETRY_DELAY_BASE", 30*time.Second),
			NormalizeClubs:     getEnvAsBool("BACKFILL_NORMALIZE_CLUBS", true),
			AutoTag:            getEnvAsBool("BACKFILL_AUTO_TAG", true),
			Order:              models.SessionOrder(getEnv("BACKFILL_ORDER", string(models.OrderNewestFirst))),
		},
		Notify: NotifyConfig{
			SlackToken:   getEnv("SLACK_TOKEN", ""),
			SlackChannel: getEnv("SLACK_CHANNEL", "#golf-imports"),
			SlackEnabled: getEnvAsBool("SLACK_ENABLED", false),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}
}

// Validate checks cross-field constraints that getEnv defaults cannot.
func (c *Config) Validate() error {
	if c.RateLimit.RequestsPerMinute <= 0 {
		return fmt.Errorf("RATE_LIMIT_RPM must be positive, got %d", c.RateLimit.RequestsPerMinute)
	}
	if c.RateLimit.BackoffMultiplier < 1 {
		return fmt.Errorf("RATE_LIMIT_BACKOFF_MULTIPLIER must be >= 1, got %v", c.RateLimit.BackoffMultiplier)
	}
	if c.Backfill.CheckpointInterval <= 0 {
		return fmt.Errorf("BACKFILL_CHECKPOINT_INTERVAL must be positive, got %d", c.Backfill.CheckpointInterval)
	}
	if c.Backfill.MaxRetries < 0 {
		return fmt.Errorf("BACKFILL_MAX_RETRIES must not be negative, got %d", c.Backfill.MaxRetries)
	}
	switch c.Backfill.Order {
	case models.OrderNewestFirst, models.OrderOldestFirst:
	default:
		return fmt.Errorf("BACKFILL_ORDER must be %q or %q, got %q",
			models.OrderNewestFirst, models.OrderOldestFirst, c.Backfill.Order)
	}
	if c.Notify.SlackEnabled && c.Notify.SlackToken == "" {
		return fmt.Errorf("SLACK_TOKEN is required when SLACK_ENABLED is true")
	}
	return nil
}

// RunConfig builds the per-run defaults from the backfill section.
func (c *Config) RunConfig() models.RunConfig {
	return models.RunConfig{
		MaxSessionsPerRun:  c.Backfill.MaxSessionsPerRun,
		MaxSessionsPerHour: c.Backfill.MaxSessionsPerHour,
		CheckpointInterval: c.Backfill.CheckpointInterval,
		MaxRetries:         c.Backfill.MaxRetries,
		RetryDelayBase:     c.Backfill.RetryDelayBase,
		NormalizeClubs:     c.Backfill.NormalizeClubs,
		AutoTag:            c.Backfill.AutoTag,
		Order:              c.Backfill.Order,
	}
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt gets an environment variable as an integer with a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsFloat gets an environment variable as a float with a default value
func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsBool gets an environment variable as a bool with a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsDuration gets an environment variable as a duration with a default value
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
