package app

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Shutdown gracefully shuts down the application. The HTTP server drains
// first so no new starts land while workers are being reaped.
func (a *App) Shutdown() error {
	a.logger.Info("application-shutting-down")

	a.healthChecker.SetReady(false)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	err := a.httpServer.Shutdown(shutdownCtx)
	if err != nil {
		a.logger.Error("http-server-shutdown-error", zap.Error(err))
	}

	a.launcher.Shutdown(shutdownCtx)

	err = a.bus.Close()
	if err != nil {
		a.logger.Error("bus-close-error", zap.Error(err))
	}

	a.logger.Info("application-shutdown-complete")
	return nil
}
