package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration.
type Config struct {
	// Application
	LogLevel string
	HTTPPort string

	// Redis (bus, task store, result streams)
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Key namespace for tasks, messages and result streams
	KeyPrefix string

	// Quotes service
	QuotesQueue       string
	QuotesReplyPrefix string
	QuotesReplyTTL    time.Duration
	QuotesTimeout     time.Duration

	// Upstream exchange
	ExchangeBaseURL    string
	ExchangeFetchLimit int
	ExchangeRateLimit  float64
	ExchangeRetries    int

	// Circuit breaker guarding the upstream connection
	BreakerFailureThreshold int
	BreakerCoolDown         time.Duration

	// Backtest driver
	SavePeriod time.Duration

	// Bar storage
	BarStoreMode string // "postgres" or "sqlite"
	PostgresHost string
	PostgresPort string
	PostgresUser string
	PostgresPass string
	PostgresDB   string
	PostgresSSL  string
	SQLitePath   string
}

// LoadFromEnv loads configuration from environment variables with defaults.
func LoadFromEnv() (*Config, error) {
	cfg := &Config{
		// Application defaults
		LogLevel: getEnvOrDefault("LOG_LEVEL", "info"),
		HTTPPort: getEnvOrDefault("HTTP_PORT", "8080"),

		// Redis defaults
		RedisAddr:     getEnvOrDefault("REDIS_ADDR", "localhost:6379"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       getIntOrDefault("REDIS_DB", 0),

		KeyPrefix: getEnvOrDefault("KEY_PREFIX", "backtest"),

		// Quotes service defaults
		QuotesQueue:       getEnvOrDefault("QUOTES_QUEUE", "quotes:requests"),
		QuotesReplyPrefix: getEnvOrDefault("QUOTES_REPLY_PREFIX", "quotes:reply"),
		QuotesReplyTTL:    getDurationOrDefault("QUOTES_REPLY_TTL", 60*time.Second),
		QuotesTimeout:     getDurationOrDefault("QUOTES_TIMEOUT", 120*time.Second),

		// Exchange defaults
		ExchangeBaseURL:    getEnvOrDefault("EXCHANGE_BASE_URL", "https://api.binance.com"),
		ExchangeFetchLimit: getIntOrDefault("EXCHANGE_FETCH_LIMIT", 1000),
		ExchangeRateLimit:  getFloat64OrDefault("EXCHANGE_RATE_LIMIT", 10.0),
		ExchangeRetries:    getIntOrDefault("EXCHANGE_RETRIES", 3),

		// Circuit breaker defaults
		BreakerFailureThreshold: getIntOrDefault("BREAKER_FAILURE_THRESHOLD", 5),
		BreakerCoolDown:         getDurationOrDefault("BREAKER_COOLDOWN", 30*time.Second),

		// Driver defaults
		SavePeriod: getDurationOrDefault("SAVE_PERIOD", 1*time.Second),

		// Bar storage defaults
		BarStoreMode: getEnvOrDefault("BARSTORE_MODE", "sqlite"),
		PostgresHost: getEnvOrDefault("POSTGRES_HOST", "localhost"),
		PostgresPort: getEnvOrDefault("POSTGRES_PORT", "5432"),
		PostgresUser: getEnvOrDefault("POSTGRES_USER", "tradesim"),
		PostgresPass: getEnvOrDefault("POSTGRES_PASSWORD", "tradesim123"),
		PostgresDB:   getEnvOrDefault("POSTGRES_DB", "tradesim"),
		PostgresSSL:  getEnvOrDefault("POSTGRES_SSLMODE", "disable"),
		SQLitePath:   getEnvOrDefault("SQLITE_PATH", "tradesim.db"),
	}

	err := cfg.Validate()
	if err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

// Validate checks that configuration values are valid.
func (c *Config) Validate() error {
	if c.HTTPPort == "" {
		return fmt.Errorf("HTTP_PORT cannot be empty")
	}

	if c.RedisAddr == "" {
		return fmt.Errorf("REDIS_ADDR cannot be empty")
	}

	if c.KeyPrefix == "" {
		return fmt.Errorf("KEY_PREFIX cannot be empty")
	}

	if c.QuotesQueue == "" || c.QuotesReplyPrefix == "" {
		return fmt.Errorf("QUOTES_QUEUE and QUOTES_REPLY_PREFIX cannot be empty")
	}

	if c.ExchangeFetchLimit <= 0 {
		return fmt.Errorf("EXCHANGE_FETCH_LIMIT must be positive, got %d", c.ExchangeFetchLimit)
	}

	if c.ExchangeRateLimit <= 0 {
		return fmt.Errorf("EXCHANGE_RATE_LIMIT must be positive, got %f", c.ExchangeRateLimit)
	}

	if c.BreakerFailureThreshold <= 0 {
		return fmt.Errorf("BREAKER_FAILURE_THRESHOLD must be positive, got %d", c.BreakerFailureThreshold)
	}

	if c.BreakerCoolDown <= 0 {
		return fmt.Errorf("BREAKER_COOLDOWN must be positive, got %s", c.BreakerCoolDown)
	}

	if c.SavePeriod <= 0 {
		return fmt.Errorf("SAVE_PERIOD must be positive, got %s", c.SavePeriod)
	}

	if c.BarStoreMode != "postgres" && c.BarStoreMode != "sqlite" {
		return fmt.Errorf("BARSTORE_MODE must be 'postgres' or 'sqlite', got %q", c.BarStoreMode)
	}

	return nil
}

func getEnvOrDefault(key string, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	intVal, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}

	return intVal
}

func getFloat64OrDefault(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	floatVal, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return defaultValue
	}

	return floatVal
}

func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	duration, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}

	return duration
}
