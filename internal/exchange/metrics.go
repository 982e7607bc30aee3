package exchange

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// FetchesTotal tracks successful upstream OHLCV requests.
	FetchesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tradesim_exchange_fetches_total",
		Help: "Total number of successful upstream OHLCV requests",
	})

	// FetchErrorsTotal tracks failed upstream requests.
	FetchErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tradesim_exchange_fetch_errors_total",
		Help: "Total number of failed upstream requests",
	})

	// BarsFetchedTotal tracks bars received from upstream.
	BarsFetchedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tradesim_exchange_bars_fetched_total",
		Help: "Total number of bars received from upstream",
	})

	// FetchDurationSeconds tracks upstream request latency.
	FetchDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "tradesim_exchange_fetch_duration_seconds",
		Help:    "Duration of upstream OHLCV requests",
		Buckets: prometheus.DefBuckets,
	})
)
