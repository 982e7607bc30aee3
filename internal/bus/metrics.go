package bus

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// OperationsTotal tracks successful bus operations by kind.
	OperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tradesim_bus_operations_total",
			Help: "Total number of successful bus operations",
		},
		[]string{"op"},
	)

	// OperationErrorsTotal tracks failed bus operations by kind.
	OperationErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tradesim_bus_operation_errors_total",
			Help: "Total number of failed bus operations",
		},
		[]string{"op"},
	)
)
