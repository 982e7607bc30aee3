package cache

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func TestCollectorsRegistered(t *testing.T) {
	counters := map[string]prometheus.Counter{
		"hits":    HitsTotal,
		"misses":  MissesTotal,
		"sets":    SetsTotal,
		"deletes": DeletesTotal,
	}

	for name, counter := range counters {
		if counter == nil {
			t.Errorf("%s counter not registered", name)
			continue
		}
		counter.Inc()
	}
}
