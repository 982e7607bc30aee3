package app

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	workersStarted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tradesim_app_workers_started_total",
		Help: "Total number of backtest worker processes spawned",
	})

	workersFailed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tradesim_app_workers_failed_total",
		Help: "Total number of backtest worker processes that exited with an error",
	})
)
