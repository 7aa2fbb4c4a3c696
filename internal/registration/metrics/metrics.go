package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Submission outcomes.
const (
	OutcomeAccepted = "accepted"
	OutcomeRejected = "rejected"
	OutcomeInvalid  = "invalid"
)

// Metrics covers the registration form lifecycle.
type Metrics struct {
	FormsStarted        prometheus.Counter
	FieldChanges        *prometheus.CounterVec
	DependentRejections *prometheus.CounterVec
	Submissions         *prometheus.CounterVec
	GatewayDuration     prometheus.Histogram
	InFlightSubmissions prometheus.Gauge
}

// New registers on the default registry.
func New() *Metrics {
	return NewWith(prometheus.DefaultRegisterer)
}

func NewWith(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		FormsStarted: factory.NewCounter(prometheus.CounterOpts{
			Name: "studentreg_forms_started_total",
			Help: "Registration forms opened",
		}),
		FieldChanges: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "studentreg_field_changes_total",
			Help: "Accepted field changes by field",
		}, []string{"field"}),
		DependentRejections: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "studentreg_dependent_rejections_total",
			Help: "Stream or year values refused because the degree does not offer them",
		}, []string{"field"}),
		Submissions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "studentreg_submissions_total",
			Help: "Submit attempts by outcome",
		}, []string{"outcome"}),
		GatewayDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "studentreg_gateway_duration_seconds",
			Help:    "Latency of signup backend calls",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 15},
		}),
		InFlightSubmissions: factory.NewGauge(prometheus.GaugeOpts{
			Name: "studentreg_submissions_in_flight",
			Help: "Gateway calls currently pending",
		}),
	}
}

func (m *Metrics) IncrementFormsStarted() {
	m.FormsStarted.Inc()
}

func (m *Metrics) IncrementFieldChange(field string) {
	m.FieldChanges.WithLabelValues(field).Inc()
}

func (m *Metrics) IncrementDependentRejection(field string) {
	m.DependentRejections.WithLabelValues(field).Inc()
}

func (m *Metrics) IncrementSubmission(outcome string) {
	m.Submissions.WithLabelValues(outcome).Inc()
}

// ObserveGateway records a backend call; call with the time the call started.
func (m *Metrics) ObserveGateway(start time.Time) {
	m.GatewayDuration.Observe(time.Since(start).Seconds())
}

// TrackInFlight increments the gauge and returns the matching decrement.
func (m *Metrics) TrackInFlight() func() {
	m.InFlightSubmissions.Inc()
	return m.InFlightSubmissions.Dec
}
