package publisher

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	packetsEmitted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tradesim_publisher_packets_total",
		Help: "Total packets emitted onto result streams, by type.",
	}, []string{"type"})

	emitFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tradesim_publisher_emit_failures_total",
		Help: "Total packets that failed to serialize or append.",
	})
)
