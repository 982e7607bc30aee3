// Package httpserver is the HTTP façade over the backtester: task CRUD and
// run control, incremental results reads, the strategy catalog, a WebSocket
// proxy for per-task progress channels, and the operational endpoints.
package httpserver

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"tradesim/internal/bus"
	"tradesim/internal/taskstore"
	"tradesim/pkg/healthprobe"
)

// TaskRunner starts and stops backtest workers on behalf of the API.
type TaskRunner interface {
	Start(ctx context.Context, id int64) error
	Stop(ctx context.Context, id int64) error
}

// Server provides the HTTP façade.
type Server struct {
	server *http.Server
	logger *zap.Logger
}

// Config holds server configuration.
type Config struct {
	Port          string
	Logger        *zap.Logger
	HealthChecker *healthprobe.HealthChecker
	Store         *taskstore.Store
	Bus           *bus.Bus
	Prefix        string
	Runner        TaskRunner
}

// New creates a new HTTP server.
func New(cfg *Config) *Server {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/metrics", promhttp.Handler().ServeHTTP)
	r.Get("/health", cfg.HealthChecker.Health())
	r.Get("/ready", cfg.HealthChecker.Ready())

	tasks := newTaskHandler(cfg.Store, cfg.Runner, cfg.Logger)
	results := newResultsHandler(cfg.Bus, cfg.Prefix, cfg.Logger)
	events := newEventsHandler(cfg.Bus, cfg.Store, cfg.Logger)

	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(30 * time.Second))

		r.Route("/api/v1", func(r chi.Router) {
			r.Get("/strategies", handleStrategies())
			r.Route("/tasks", func(r chi.Router) {
				r.Get("/", tasks.list)
				r.Post("/", tasks.create)
				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", tasks.get)
					r.Put("/", tasks.update)
					r.Delete("/", tasks.remove)
					r.Post("/start", tasks.start)
					r.Post("/stop", tasks.stop)
				})
			})
			r.Get("/results/{resultID}", results.read)
		})
	})

	// The events socket is long-lived; it stays outside the timeout group.
	r.Get("/api/v1/tasks/{id}/events", events.stream)

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	return &Server{
		server: server,
		logger: cfg.Logger,
	}
}

// Start starts the HTTP server.
// This is a blocking call that returns when the server stops or encounters an error.
func (s *Server) Start() error {
	s.logger.Info("http server starting", zap.String("addr", s.server.Addr))

	err := s.server.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("listen and serve: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("http server shutting down")

	err := s.server.Shutdown(ctx)
	if err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	return nil
}

// Handler exposes the routed handler for tests.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}
