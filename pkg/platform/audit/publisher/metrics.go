package publisher

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics counts what happened to emitted events.
type Metrics struct {
	Emitted         *prometheus.CounterVec
	Sampled         prometheus.Counter
	Dropped         prometheus.Counter
	PersistFailures prometheus.Counter
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Emitted: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "studentreg_audit_events_emitted_total",
			Help: "Audit events accepted for persistence by category",
		}, []string{"category"}),
		Sampled: factory.NewCounter(prometheus.CounterOpts{
			Name: "studentreg_audit_events_sampled_total",
			Help: "Operations events skipped by sampling",
		}),
		Dropped: factory.NewCounter(prometheus.CounterOpts{
			Name: "studentreg_audit_events_dropped_total",
			Help: "Events dropped because the async buffer was full",
		}),
		PersistFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "studentreg_audit_persist_failures_total",
			Help: "Audit store append failures",
		}),
	}
}

func (m *Metrics) incEmitted(category string) {
	if m != nil {
		m.Emitted.WithLabelValues(category).Inc()
	}
}

func (m *Metrics) incSampled() {
	if m != nil {
		m.Sampled.Inc()
	}
}

func (m *Metrics) incDropped() {
	if m != nil {
		m.Dropped.Inc()
	}
}

func (m *Metrics) incPersistFailures() {
	if m != nil {
		m.PersistFailures.Inc()
	}
}
