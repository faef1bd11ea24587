// Package metrics provides Prometheus metrics for monitoring.
//
// Key metrics:
//   - Connection state and reconnect attempt counts
//   - Message receive/send/queue/drop rates
//   - Deduplication hits and cache size
//   - Outbound queue depth
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Channel holds the metrics emitted by a channel service instance.
type Channel struct {
	ConnectionState   prometheus.Gauge
	ReconnectsTotal   prometheus.Counter
	CircuitOpensTotal prometheus.Counter

	MessagesReceived prometheus.Counter
	MessagesSent     prometheus.Counter
	MessagesQueued   prometheus.Counter
	QueueDropped     prometheus.Counter
	QueueDepth       prometheus.Gauge

	DedupHits   prometheus.Counter
	ParseErrors prometheus.Counter

	HandlerPanics prometheus.Counter
}

// NewChannel registers and returns channel metrics on the given registerer.
func NewChannel(reg prometheus.Registerer) *Channel {
	factory := promauto.With(reg)

	return &Channel{
		ConnectionState: factory.NewGauge(prometheus.GaugeOpts{
			Name: "channel_connection_state",
			Help: "Current connection state (0=closed, 1=connecting, 2=open, 3=closing, 4=error, 5=circuit_open).",
		}),
		ReconnectsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "channel_reconnects_total",
			Help: "Scheduled reconnection attempts.",
		}),
		CircuitOpensTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "channel_circuit_opens_total",
			Help: "Times the reconnect circuit breaker opened.",
		}),
		MessagesReceived: factory.NewCounter(prometheus.CounterOpts{
			Name: "channel_messages_received_total",
			Help: "Inbound frames received.",
		}),
		MessagesSent: factory.NewCounter(prometheus.CounterOpts{
			Name: "channel_messages_sent_total",
			Help: "Outbound messages transmitted.",
		}),
		MessagesQueued: factory.NewCounter(prometheus.CounterOpts{
			Name: "channel_messages_queued_total",
			Help: "Outbound messages buffered while disconnected.",
		}),
		QueueDropped: factory.NewCounter(prometheus.CounterOpts{
			Name: "channel_queue_dropped_total",
			Help: "Outbound messages dropped because the queue was full.",
		}),
		QueueDepth: factory.NewGauge(prometheus.GaugeOpts{
			Name: "channel_queue_depth",
			Help: "Outbound messages currently buffered.",
		}),
		DedupHits: factory.NewCounter(prometheus.CounterOpts{
			Name: "channel_dedup_hits_total",
			Help: "Inbound notifications suppressed as duplicates.",
		}),
		ParseErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "channel_parse_errors_total",
			Help: "Inbound frames dropped as malformed.",
		}),
		HandlerPanics: factory.NewCounter(prometheus.CounterOpts{
			Name: "channel_handler_panics_total",
			Help: "Subscriber handlers that panicked during dispatch.",
		}),
	}
}
