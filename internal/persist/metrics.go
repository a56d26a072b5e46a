package persist

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds Prometheus metrics for the persistence adapter.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	hydrations *prometheus.CounterVec // By key and result (applied/missing/invalid/failed)
	writes     *prometheus.CounterVec // By result (written/skipped/failed)
}

// NewMetrics creates adapter metrics and registers them with reg.
// A nil registerer disables metrics.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	if reg == nil {
		return nil, nil
	}

	m := &Metrics{
		hydrations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "statecore",
			Subsystem: "persist",
			Name:      "hydrations_total",
			Help:      "Storage reads performed during hydration",
		}, []string{"key", "result"}),

		writes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "statecore",
			Subsystem: "persist",
			Name:      "writes_total",
			Help:      "Record writes by result",
		}, []string{"result"}),
	}

	for _, c := range []prometheus.Collector{m.hydrations, m.writes} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) recordHydration(key, result string) {
	if m == nil {
		return
	}
	m.hydrations.WithLabelValues(key, result).Inc()
}

func (m *Metrics) recordWrite(result string) {
	if m == nil {
		return
	}
	m.writes.WithLabelValues(result).Inc()
}
