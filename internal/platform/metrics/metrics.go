package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus instruments for the process.
type Metrics struct {
	OutboxPublished prometheus.Counter
	OutboxFailed    prometheus.Counter
	OutboxPending   prometheus.Gauge
}

// New creates and registers all metrics on the default registry.
func New() *Metrics {
	return &Metrics{
		OutboxPublished: promauto.NewCounter(prometheus.CounterOpts{
			Name: "conduit_outbox_published_total",
			Help: "Transfer status events delivered to the downstream transport",
		}),
		OutboxFailed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "conduit_outbox_failed_total",
			Help: "Transfer status events that failed to publish and will be retried",
		}),
		OutboxPending: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "conduit_outbox_pending",
			Help: "Transfer status events awaiting publication",
		}),
	}
}
