package barstore

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// BarsInsertedTotal tracks bars written to the store.
	BarsInsertedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tradesim_barstore_bars_inserted_total",
		Help: "Total number of bars written to the bar store",
	})

	// BarsReadTotal tracks bars returned by range queries.
	BarsReadTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tradesim_barstore_bars_read_total",
		Help: "Total number of bars returned by bar store queries",
	})

	// QueryDurationSeconds tracks storage operation latency.
	QueryDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tradesim_barstore_query_duration_seconds",
			Help:    "Duration of bar store operations",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"op"},
	)
)
