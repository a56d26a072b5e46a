package engine

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds Prometheus metrics for store operations.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	// Mutations
	updates  *prometheus.CounterVec // By op and status (applied/rejected)
	rejected *prometheus.CounterVec // By code

	// Delivery
	subscribers prometheus.Gauge // Current number of live subscriptions
	queued      prometheus.Gauge // Snapshots enqueued but not yet delivered

	// State
	seq prometheus.Gauge // Sequence number of the current snapshot
}

// NewMetrics creates store metrics and registers them with reg.
// A nil registerer disables metrics.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	if reg == nil {
		return nil, nil // Metrics disabled
	}

	m := &Metrics{
		updates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "statecore",
			Subsystem: "store",
			Name:      "updates_total",
			Help:      "Total number of store mutations",
		}, []string{"op", "status"}), // op: update, reset, replace; status: applied, rejected

		rejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "statecore",
			Subsystem: "store",
			Name:      "rejected_updates_total",
			Help:      "Total number of rejected mutations by error code",
		}, []string{"code"}),

		subscribers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "statecore",
			Subsystem: "store",
			Name:      "subscribers",
			Help:      "Current number of live subscriptions",
		}),

		queued: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "statecore",
			Subsystem: "store",
			Name:      "pending_deliveries",
			Help:      "Snapshots enqueued to subscribers but not yet delivered",
		}),

		seq: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "statecore",
			Subsystem: "store",
			Name:      "sequence",
			Help:      "Sequence number of the current snapshot",
		}),
	}

	for _, c := range []prometheus.Collector{m.updates, m.rejected, m.subscribers, m.queued, m.seq} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) recordApplied(op string, seq int64) {
	if m == nil {
		return
	}
	m.updates.WithLabelValues(op, "applied").Inc()
	m.seq.Set(float64(seq))
}

func (m *Metrics) recordRejected(op string, code UpdateErrorCode) {
	if m == nil {
		return
	}
	m.updates.WithLabelValues(op, "rejected").Inc()
	m.rejected.WithLabelValues(string(code)).Inc()
}

func (m *Metrics) setSubscribers(n int) {
	if m == nil {
		return
	}
	m.subscribers.Set(float64(n))
}

func (m *Metrics) setPending(n int) {
	if m == nil {
		return
	}
	m.queued.Set(float64(n))
}
