// Package app assembles the API process: the Redis bus, the task store,
// the worker launcher and the HTTP server, plus their lifecycle.
package app

import (
	"go.uber.org/zap"

	"tradesim/internal/bus"
	"tradesim/internal/taskstore"
	"tradesim/pkg/config"
	"tradesim/pkg/healthprobe"
	"tradesim/pkg/httpserver"
)

// App is the main application orchestrator.
type App struct {
	cfg           *config.Config
	logger        *zap.Logger
	healthChecker *healthprobe.HealthChecker
	bus           *bus.Bus
	store         *taskstore.Store
	launcher      *Launcher
	httpServer    *httpserver.Server
}

// Store exposes the task store, mainly for tests that seed tasks directly.
func (a *App) Store() *taskstore.Store {
	return a.store
}
