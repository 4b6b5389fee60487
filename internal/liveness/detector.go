package liveness

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	dErrors "facelive/pkg/domain-errors"
	"facelive/pkg/platform/circuit"

	"facelive/internal/liveness/metrics"
)

//go:generate mockgen -source=detector.go -destination=mocks/mocks.go -package=mocks Detector

// Detector is the uniform contract for the external detection
// capabilities. Implementations never see orchestrator state; they judge
// one capture against one challenge. A returned error means the capability
// could not run at all, which is distinct from a negative verdict.
type Detector interface {
	Verify(ctx context.Context, challenge *Challenge, capture Capture) (Verdict, error)
}

// DetectorAdapter wraps a Detector with the orchestrator-side policy:
// a bounded call timeout strictly shorter than the step deadline, a
// circuit breaker per backend, latency metrics, and mapping of every
// failure mode to a detector_unavailable domain error.
type DetectorAdapter struct {
	kind    StepKind
	det     Detector
	timeout time.Duration
	breaker *circuit.Breaker
	metrics *metrics.Metrics
	logger  *slog.Logger
	tracer  trace.Tracer

	// probeInterval is how often one call is let through an open circuit
	// to test whether the backend recovered.
	probeInterval time.Duration
	probeMu       sync.Mutex
	lastProbe     time.Time
}

const defaultProbeInterval = 30 * time.Second

// NewDetectorAdapter wraps det for the given step kind.
func NewDetectorAdapter(kind StepKind, det Detector, timeout time.Duration, m *metrics.Metrics, logger *slog.Logger, tracer trace.Tracer) *DetectorAdapter {
	return &DetectorAdapter{
		kind:          kind,
		det:           det,
		timeout:       timeout,
		breaker:       circuit.New(string(kind), circuit.WithFailureThreshold(5), circuit.WithSuccessThreshold(2)),
		metrics:       m,
		logger:        logger,
		tracer:        tracer,
		probeInterval: defaultProbeInterval,
	}
}

// allowProbe lets one call through an open circuit per probe interval.
func (a *DetectorAdapter) allowProbe() bool {
	a.probeMu.Lock()
	defer a.probeMu.Unlock()
	if time.Since(a.lastProbe) < a.probeInterval {
		return false
	}
	a.lastProbe = time.Now()
	return true
}

// Verify runs the detector under the adapter policy.
func (a *DetectorAdapter) Verify(ctx context.Context, challenge *Challenge, capture Capture) (Verdict, error) {
	if a.breaker.IsOpen() && !a.allowProbe() {
		return Verdict{}, dErrors.Newf(dErrors.CodeDetectorUnavailable, "%s detector circuit open", a.kind)
	}

	ctx, span := a.tracer.Start(ctx, "detector.verify",
		trace.WithAttributes(attribute.String("step.kind", string(a.kind))))
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	start := time.Now()
	verdict, err := a.det.Verify(ctx, challenge, capture)
	a.metrics.ObserveDetectorLatency(string(a.kind), time.Since(start))

	if err != nil {
		if _, change := a.breaker.RecordFailure(); change.Opened {
			a.probeMu.Lock()
			a.lastProbe = time.Now()
			a.probeMu.Unlock()
			a.logger.WarnContext(ctx, "detector circuit opened",
				"kind", a.kind,
				"error", err,
			)
		}
		return Verdict{}, dErrors.Wrap(dErrors.CodeDetectorUnavailable, "detector call failed", err)
	}

	if _, change := a.breaker.RecordSuccess(); change.Closed {
		a.logger.InfoContext(ctx, "detector circuit closed", "kind", a.kind)
	}
	return verdict, nil
}
