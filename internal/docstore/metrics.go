package docstore

import "github.com/prometheus/client_golang/prometheus"

// Metrics counts store operations by outcome (success, failure, stale, declined).
type Metrics struct {
	ops *prometheus.CounterVec
}

// NewMetrics registers the store counters on reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		ops: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "docvault_store_operations_total",
				Help: "Document store operations by operation and outcome.",
			},
			[]string{"op", "outcome"},
		),
	}
	if err := reg.Register(m.ops); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Metrics) observe(op, outcome string) {
	if m == nil {
		return
	}
	m.ops.WithLabelValues(op, outcome).Inc()
}
