package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Registration outcomes used as the "outcome" label.
const (
	OutcomeRegistered   = "registered"
	OutcomeNotFound     = "not_found"
	OutcomeInvalidState = "invalid_state"
	OutcomeConflict     = "conflict"
	OutcomeError        = "error"
)

// Metrics provides observability for the participation module.
type Metrics struct {
	// Registration attempts by outcome
	RegistrationsTotal *prometheus.CounterVec

	// Person/project lookup latencies by source
	LookupLatency *prometheus.HistogramVec

	// Overall registration latency including the transaction
	RegisterLatency prometheus.Histogram
}

// New creates a Metrics instance registered on the default registry.
func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry registers the participation metrics on reg. Tests pass a
// fresh prometheus.NewRegistry() to avoid duplicate registration panics.
func NewWithRegistry(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		RegistrationsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "gestion_participation_registrations_total",
			Help: "Total participation registration attempts by outcome",
		}, []string{"outcome"}),

		LookupLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "gestion_participation_lookup_duration_seconds",
			Help:    "Duration of person and project lookups during registration",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"source"}), // source: "person", "project"

		RegisterLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "gestion_participation_register_duration_seconds",
			Help:    "Duration of a full participation registration",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}),
	}
}

// IncrementOutcome records a registration outcome.
func (m *Metrics) IncrementOutcome(outcome string) {
	if m != nil {
		m.RegistrationsTotal.WithLabelValues(outcome).Inc()
	}
}

// ObserveLookupLatency records how long a person or project lookup took.
func (m *Metrics) ObserveLookupLatency(source string, d time.Duration) {
	if m != nil {
		m.LookupLatency.WithLabelValues(source).Observe(d.Seconds())
	}
}

// ObserveRegisterLatency records the total registration duration.
func (m *Metrics) ObserveRegisterLatency(d time.Duration) {
	if m != nil {
		m.RegisterLatency.Observe(d.Seconds())
	}
}
