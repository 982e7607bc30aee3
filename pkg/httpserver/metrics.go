package httpserver

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// wsConnections gauges open events sockets.
	wsConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "tradesim_httpserver_ws_connections",
		Help: "Open events WebSocket connections",
	})

	// wsEnvelopesForwarded counts envelopes bridged to WebSocket clients.
	wsEnvelopesForwarded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tradesim_httpserver_ws_envelopes_forwarded_total",
		Help: "Total pub/sub envelopes forwarded over events sockets",
	})
)
