package circuitbreaker

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// BreakerState tracks the breaker position (0=closed, 1=open, 2=half-open).
	BreakerState = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "tradesim_circuitbreaker_state",
		Help: "Circuit breaker state (0=closed, 1=open, 2=half-open)",
	})

	// BreakerTrips counts transitions into the open state.
	BreakerTrips = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tradesim_circuitbreaker_trips_total",
		Help: "Total number of times the circuit breaker opened",
	})

	// BreakerShortCircuits counts calls rejected without reaching upstream.
	BreakerShortCircuits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tradesim_circuitbreaker_short_circuits_total",
		Help: "Total number of calls rejected while the circuit was open",
	})
)
