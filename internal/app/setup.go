package app

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"tradesim/internal/bus"
	"tradesim/internal/taskstore"
	"tradesim/pkg/config"
	"tradesim/pkg/healthprobe"
	"tradesim/pkg/httpserver"
)

// New creates a new application instance.
func New(cfg *config.Config, logger *zap.Logger) (*App, error) {
	healthChecker := setupHealthChecker()

	msgBus, err := setupBus(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("setup bus: %w", err)
	}

	store := setupTaskStore(cfg, logger, msgBus)
	launcher := setupLauncher(logger, store)
	httpServer := setupHTTPServer(cfg, logger, healthChecker, msgBus, store, launcher)

	healthChecker.AddCheck("redis", func() error {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		return msgBus.Client().Ping(ctx).Err()
	})

	return &App{
		cfg:           cfg,
		logger:        logger,
		healthChecker: healthChecker,
		bus:           msgBus,
		store:         store,
		launcher:      launcher,
		httpServer:    httpServer,
	}, nil
}

func setupHealthChecker() *healthprobe.HealthChecker {
	return healthprobe.New()
}

func setupBus(cfg *config.Config, logger *zap.Logger) (*bus.Bus, error) {
	return bus.New(&bus.Config{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
		Logger:   logger,
	})
}

func setupTaskStore(cfg *config.Config, logger *zap.Logger, msgBus *bus.Bus) *taskstore.Store {
	return taskstore.New(&taskstore.Config{
		Client: msgBus.Client(),
		Prefix: cfg.KeyPrefix,
		Logger: logger,
	})
}

func setupLauncher(logger *zap.Logger, store *taskstore.Store) *Launcher {
	return NewLauncher(&LauncherConfig{
		Store:  store,
		Logger: logger,
	})
}

func setupHTTPServer(
	cfg *config.Config,
	logger *zap.Logger,
	healthChecker *healthprobe.HealthChecker,
	msgBus *bus.Bus,
	store *taskstore.Store,
	launcher *Launcher,
) *httpserver.Server {
	return httpserver.New(&httpserver.Config{
		Port:          cfg.HTTPPort,
		Logger:        logger,
		HealthChecker: healthChecker,
		Store:         store,
		Bus:           msgBus,
		Prefix:        cfg.KeyPrefix,
		Runner:        launcher,
	})
}
