package taskstore

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// MessagesPublishedTotal tracks MESSAGE envelopes sent to task channels.
	MessagesPublishedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tradesim_taskstore_messages_published_total",
		Help: "Total number of MESSAGE envelopes published",
	})

	// EventsPublishedTotal tracks EVENT envelopes sent to task channels.
	EventsPublishedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tradesim_taskstore_events_published_total",
		Help: "Total number of EVENT envelopes published",
	})
)
