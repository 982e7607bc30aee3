package quotes

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestsTotal tracks requests answered with a dense series.
	RequestsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tradesim_quotes_requests_total",
		Help: "Total number of quotes requests served",
	})

	// RequestErrorsTotal tracks requests answered with an error packet or
	// dropped as undecodable.
	RequestErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tradesim_quotes_request_errors_total",
		Help: "Total number of quotes requests that failed",
	})

	// GapsFilledTotal tracks missing sub-ranges fetched from upstream.
	GapsFilledTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tradesim_quotes_gaps_filled_total",
		Help: "Total number of bar gaps filled from upstream",
	})

	// RequestDurationSeconds tracks end-to-end request handling time.
	RequestDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "tradesim_quotes_request_duration_seconds",
		Help:    "Duration of quotes request handling",
		Buckets: prometheus.DefBuckets,
	})
)
