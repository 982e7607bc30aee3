package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HitsTotal tracks lookups answered from the cache.
	HitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tradesim_cache_hits_total",
		Help: "Total number of cache hits",
	})

	// MissesTotal tracks lookups that fell through.
	MissesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tradesim_cache_misses_total",
		Help: "Total number of cache misses",
	})

	// SetsTotal tracks admitted writes.
	SetsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tradesim_cache_sets_total",
		Help: "Total number of cache writes admitted",
	})

	// DeletesTotal tracks explicit deletes.
	DeletesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tradesim_cache_deletes_total",
		Help: "Total number of cache deletes",
	})
)
