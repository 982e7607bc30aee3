package driver

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	runsStarted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tradesim_driver_runs_started_total",
		Help: "Total backtest runs started.",
	})

	runsCompleted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tradesim_driver_runs_completed_total",
		Help: "Total backtest runs finished cleanly.",
	})

	runsFailed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tradesim_driver_runs_failed_total",
		Help: "Total backtest runs aborted by an error.",
	})

	runsCanceled = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tradesim_driver_runs_canceled_total",
		Help: "Total backtest runs stopped by request.",
	})

	barsProcessed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tradesim_driver_bars_processed_total",
		Help: "Total bars replayed across all runs.",
	})
)
