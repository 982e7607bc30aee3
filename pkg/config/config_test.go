package config

import (
	"os"
	"testing"
	"time"
)

func TestLoadFromEnv_Defaults(t *testing.T) {
	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if cfg.KeyPrefix != "backtest" {
		t.Errorf("expected default KeyPrefix to be 'backtest', got %q", cfg.KeyPrefix)
	}

	if cfg.ExchangeFetchLimit != 1000 {
		t.Errorf("expected default ExchangeFetchLimit to be 1000, got %d", cfg.ExchangeFetchLimit)
	}

	if cfg.SavePeriod != 1*time.Second {
		t.Errorf("expected default SavePeriod to be 1s, got %v", cfg.SavePeriod)
	}

	if cfg.BarStoreMode != "sqlite" {
		t.Errorf("expected default BarStoreMode to be 'sqlite', got %q", cfg.BarStoreMode)
	}
}

func TestLoadFromEnv_Overrides(t *testing.T) {
	os.Setenv("QUOTES_TIMEOUT", "30s")
	os.Setenv("EXCHANGE_FETCH_LIMIT", "500")
	os.Setenv("BARSTORE_MODE", "postgres")
	t.Cleanup(func() {
		os.Unsetenv("QUOTES_TIMEOUT")
		os.Unsetenv("EXCHANGE_FETCH_LIMIT")
		os.Unsetenv("BARSTORE_MODE")
	})

	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if cfg.QuotesTimeout != 30*time.Second {
		t.Errorf("expected QuotesTimeout to be 30s, got %v", cfg.QuotesTimeout)
	}

	if cfg.ExchangeFetchLimit != 500 {
		t.Errorf("expected ExchangeFetchLimit to be 500, got %d", cfg.ExchangeFetchLimit)
	}

	if cfg.BarStoreMode != "postgres" {
		t.Errorf("expected BarStoreMode to be 'postgres', got %q", cfg.BarStoreMode)
	}
}

func TestLoadFromEnv_MalformedValueFallsBack(t *testing.T) {
	os.Setenv("EXCHANGE_FETCH_LIMIT", "not-a-number")
	t.Cleanup(func() {
		os.Unsetenv("EXCHANGE_FETCH_LIMIT")
	})

	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if cfg.ExchangeFetchLimit != 1000 {
		t.Errorf("expected fallback ExchangeFetchLimit to be 1000, got %d", cfg.ExchangeFetchLimit)
	}
}

func TestConfig_Validate(t *testing.T) {
	base := func() *Config {
		return &Config{
			HTTPPort:                "8080",
			RedisAddr:               "localhost:6379",
			KeyPrefix:               "backtest",
			QuotesQueue:             "quotes:requests",
			QuotesReplyPrefix:       "quotes:reply",
			ExchangeFetchLimit:      1000,
			ExchangeRateLimit:       10,
			BreakerFailureThreshold: 5,
			BreakerCoolDown:         30 * time.Second,
			SavePeriod:              time.Second,
			BarStoreMode:            "sqlite",
		}
	}

	if err := base().Validate(); err != nil {
		t.Fatalf("expected valid config, got %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*Config)
		errMsg string
	}{
		{
			name:   "empty_redis_addr",
			mutate: func(c *Config) { c.RedisAddr = "" },
			errMsg: "REDIS_ADDR cannot be empty",
		},
		{
			name:   "empty_key_prefix",
			mutate: func(c *Config) { c.KeyPrefix = "" },
			errMsg: "KEY_PREFIX cannot be empty",
		},
		{
			name:   "zero_fetch_limit",
			mutate: func(c *Config) { c.ExchangeFetchLimit = 0 },
			errMsg: "EXCHANGE_FETCH_LIMIT must be positive, got 0",
		},
		{
			name:   "zero_breaker_threshold",
			mutate: func(c *Config) { c.BreakerFailureThreshold = 0 },
			errMsg: "BREAKER_FAILURE_THRESHOLD must be positive, got 0",
		},
		{
			name:   "negative_save_period",
			mutate: func(c *Config) { c.SavePeriod = -time.Second },
			errMsg: "SAVE_PERIOD must be positive, got -1s",
		},
		{
			name:   "unknown_barstore_mode",
			mutate: func(c *Config) { c.BarStoreMode = "mongo" },
			errMsg: `BARSTORE_MODE must be 'postgres' or 'sqlite', got "mongo"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(cfg)

			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if err.Error() != tt.errMsg {
				t.Errorf("expected error %q, got %q", tt.errMsg, err.Error())
			}
		})
	}
}
