package engine

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ordersPlaced = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tradesim_engine_orders_placed_total",
		Help: "Total orders created, by order type.",
	}, []string{"type"})

	ordersCanceled = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tradesim_engine_orders_canceled_total",
		Help: "Total orders canceled.",
	})

	orderErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tradesim_engine_order_errors_total",
		Help: "Total orders rejected by validation.",
	})

	tradesExecuted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tradesim_engine_trades_total",
		Help: "Total trades executed, by side.",
	}, []string{"side"})

	dealsOpened = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tradesim_engine_deals_opened_total",
		Help: "Total deals opened.",
	})

	dealsClosed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tradesim_engine_deals_closed_total",
		Help: "Total deals closed.",
	})
)
