// Package metrics provides observability for the liveness module.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics collects the liveness module's counters and histograms. All
// methods tolerate a nil receiver so tests can pass nil without stubbing.
type Metrics struct {
	SessionsStarted prometheus.Counter
	SessionOutcome  *prometheus.CounterVec
	StepVerdict     *prometheus.CounterVec
	DetectorLatency *prometheus.HistogramVec
	SubmitLatency   prometheus.Histogram
}

// New registers and returns the liveness metrics.
func New() *Metrics {
	return &Metrics{
		SessionsStarted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "facelive_sessions_started_total",
			Help: "Total verification sessions started",
		}),

		SessionOutcome: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "facelive_session_outcomes_total",
			Help: "Final session outcomes by decision and reason",
		}, []string{"decision", "reason"}),

		StepVerdict: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "facelive_step_verdicts_total",
			Help: "Step attempt results by step kind and result",
		}, []string{"kind", "result"}),

		DetectorLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "facelive_detector_duration_seconds",
			Help:    "Duration of detector adapter calls by step kind",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 4, 8},
		}, []string{"kind"}),

		SubmitLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "facelive_submit_duration_seconds",
			Help:    "Duration of capture submissions including detector calls",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 4, 8},
		}),
	}
}

// IncSessionsStarted records a session start.
func (m *Metrics) IncSessionsStarted() {
	if m != nil {
		m.SessionsStarted.Inc()
	}
}

// IncSessionOutcome records a final decision.
func (m *Metrics) IncSessionOutcome(decision, reason string) {
	if m != nil {
		m.SessionOutcome.WithLabelValues(decision, reason).Inc()
	}
}

// IncStepVerdict records one step attempt result.
func (m *Metrics) IncStepVerdict(kind, result string) {
	if m != nil {
		m.StepVerdict.WithLabelValues(kind, result).Inc()
	}
}

// ObserveDetectorLatency records the duration of a detector call.
func (m *Metrics) ObserveDetectorLatency(kind string, d time.Duration) {
	if m != nil {
		m.DetectorLatency.WithLabelValues(kind).Observe(d.Seconds())
	}
}

// ObserveSubmitLatency records the duration of a full capture submission.
func (m *Metrics) ObserveSubmitLatency(d time.Duration) {
	if m != nil {
		m.SubmitLatency.Observe(d.Seconds())
	}
}
