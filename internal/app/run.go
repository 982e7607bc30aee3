package app

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Run starts the application and blocks until a shutdown signal arrives or a
// component fails.
func (a *App) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a.logger.Info("application-starting",
		zap.String("http-addr", ":"+a.cfg.HTTPPort),
		zap.String("redis-addr", a.cfg.RedisAddr),
		zap.String("log-level", a.cfg.LogLevel))

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		err := a.httpServer.Start()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		a.logger.Info("shutdown-signal-received")
		return a.Shutdown()
	})

	a.healthChecker.SetReady(true)
	a.logger.Info("application-ready")

	return g.Wait()
}
