package liveness

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	id "facelive/pkg/domain"
	dErrors "facelive/pkg/domain-errors"
	"facelive/pkg/platform/audit"
	"facelive/pkg/requestcontext"

	"facelive/internal/liveness/metrics"
)

// Config holds the orchestrator's timing and retry policy.
type Config struct {
	// StepTimeouts is the capture window per step kind.
	StepTimeouts map[StepKind]time.Duration

	// DetectorTimeout bounds one detector call; must stay strictly below
	// every step timeout so the orchestrator can still observe deadline
	// expiry after a slow detector returns.
	DetectorTimeout time.Duration

	// MaxAttempts is the per-step retry budget (retries, not total tries).
	MaxAttempts int

	// SessionTTL bounds the whole attempt.
	SessionTTL time.Duration
}

const defaultStepTimeout = 8 * time.Second

func (c Config) stepTimeout(kind StepKind) time.Duration {
	if d, ok := c.StepTimeouts[kind]; ok && d > 0 {
		return d
	}
	return defaultStepTimeout
}

// Orchestrator owns the verification session lifecycle: step sequencing,
// deadline policy, retry accounting, verdict collection, and the final
// decision. It is the single writer for any session; concurrent
// submissions for one session are serialized by a per-session lock that
// fails fast instead of queueing.
type Orchestrator struct {
	store      SessionStore
	adapters   map[StepKind]*DetectorAdapter
	challenges *ChallengeGenerator
	audit      *audit.Publisher
	logger     *slog.Logger
	metrics    *metrics.Metrics
	tracer     trace.Tracer
	cfg        Config

	locks sessionLocks
}

// Option configures the Orchestrator.
type Option func(*Orchestrator)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) { o.logger = logger }
}

// WithMetrics sets the metrics collector.
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *Orchestrator) { o.metrics = m }
}

// WithAuditPublisher sets the audit publisher.
func WithAuditPublisher(p *audit.Publisher) Option {
	return func(o *Orchestrator) { o.audit = p }
}

// WithChallengeGenerator overrides the default challenge generator.
func WithChallengeGenerator(g *ChallengeGenerator) Option {
	return func(o *Orchestrator) { o.challenges = g }
}

// New constructs an orchestrator over the given store and detectors.
func New(store SessionStore, detectors map[StepKind]Detector, cfg Config, opts ...Option) (*Orchestrator, error) {
	if store == nil {
		return nil, errors.New("session store is required")
	}
	if len(detectors) == 0 {
		return nil, errors.New("at least one detector is required")
	}
	if cfg.MaxAttempts < 0 {
		return nil, errors.New("max attempts must not be negative")
	}
	if cfg.SessionTTL <= 0 {
		return nil, errors.New("session TTL must be positive")
	}

	o := &Orchestrator{
		store:      store,
		challenges: NewChallengeGenerator(),
		logger:     slog.Default(),
		tracer:     otel.Tracer("facelive/liveness"),
		cfg:        cfg,
	}
	for _, opt := range opts {
		opt(o)
	}

	o.adapters = make(map[StepKind]*DetectorAdapter, len(detectors))
	for kind, det := range detectors {
		o.adapters[kind] = NewDetectorAdapter(kind, det, cfg.DetectorTimeout, o.metrics, o.logger, o.tracer)
	}
	return o, nil
}

// Start creates a session for the given subject and step plan and
// activates the first step. The plan executes strictly in order; duplicate
// kinds are allowed.
func (o *Orchestrator) Start(ctx context.Context, subject id.SubjectID, plan []StepKind) (*VerificationSession, error) {
	if len(plan) == 0 {
		return nil, dErrors.New(dErrors.CodeInvalidPlan, "step plan must not be empty")
	}
	for _, kind := range plan {
		if !KnownStepKind(kind) {
			return nil, dErrors.Newf(dErrors.CodeInvalidPlan, "unknown step kind %q", kind)
		}
		if _, ok := o.adapters[kind]; !ok {
			return nil, dErrors.Newf(dErrors.CodeInvalidPlan, "no detector configured for step kind %q", kind)
		}
	}

	now := requestcontext.Now(ctx)
	session := &VerificationSession{
		ID:        id.NewSessionID(),
		SubjectID: subject,
		State:     StateCreated,
		CreatedAt: now,
		ExpiresAt: now.Add(o.cfg.SessionTTL),
		Steps:     make([]StepRecord, len(plan)),
	}
	for i, kind := range plan {
		session.Steps[i] = StepRecord{Kind: kind, Status: StatusPending}
	}
	o.activateStep(session, 0, now)

	if err := o.store.Save(ctx, session); err != nil {
		return nil, dErrors.Wrap(dErrors.CodeInternal, "save session", err)
	}

	o.metrics.IncSessionsStarted()
	o.emitAudit(ctx, audit.Event{
		Action:    audit.ActionSessionStarted,
		SessionID: session.ID,
		SubjectID: subject,
		RequestID: requestcontext.RequestID(ctx),
	})
	o.logger.InfoContext(ctx, "verification session started",
		"session_id", session.ID,
		"subject_id", subject,
		"steps", len(plan),
	)

	return session.Clone(), nil
}

// SubmitCapture processes one capture for the session's active step.
// The submission must name the active step index; the current time must
// not be past the step deadline (arriving exactly at the deadline is
// on time). A failed attempt with budget left yields a retry with a fresh
// challenge; otherwise the session is decided.
func (o *Orchestrator) SubmitCapture(ctx context.Context, sessionID id.SessionID, stepIndex int, capture Capture) (*StepOutcome, error) {
	release, ok := o.locks.acquire(sessionID)
	if !ok {
		return nil, dErrors.New(dErrors.CodeSessionBusy, "another submission is in flight for this session")
	}
	defer release()

	ctx, span := o.tracer.Start(ctx, "liveness.submit_capture",
		trace.WithAttributes(
			attribute.String("session.id", sessionID.String()),
			attribute.Int("step.index", stepIndex),
		))
	defer span.End()

	start := time.Now()
	defer func() { o.metrics.ObserveSubmitLatency(time.Since(start)) }()

	session, err := o.store.FindByID(ctx, sessionID)
	if err != nil {
		// No active session behind this ID; keep the lock registry from
		// accumulating entries for guessed or recycled IDs.
		o.locks.forget(sessionID)
		return nil, err
	}
	if session.Terminal() {
		o.locks.forget(sessionID)
		return nil, dErrors.New(dErrors.CodeSessionTerminal, "session already decided")
	}

	now := requestcontext.Now(ctx)
	if session.Expired(now) {
		o.disqualifyExpired(ctx, session, now)
		return nil, dErrors.New(dErrors.CodeSessionExpired, "session lifetime elapsed")
	}

	// Reject past and future indices before any mutation; this blocks
	// both step-skipping and stale resubmission.
	if stepIndex != session.ActiveStep {
		return nil, dErrors.Newf(dErrors.CodeStepMismatch, "active step is %d", session.ActiveStep)
	}

	step := &session.Steps[session.ActiveStep]
	if now.After(step.Deadline) {
		step.Status = StatusTimedOut
		step.Reason = ReasonTimedOut
		o.metrics.IncStepVerdict(string(step.Kind), "timed_out")
		o.emitAudit(ctx, audit.Event{
			Action:    audit.ActionStepTimedOut,
			SessionID: session.ID,
			SubjectID: session.SubjectID,
			StepIndex: session.ActiveStep,
			StepKind:  string(step.Kind),
			Reason:    string(ReasonTimedOut),
			RequestID: requestcontext.RequestID(ctx),
		})
		o.finalize(ctx, session, StateDisqualified, now)
		return nil, dErrors.New(dErrors.CodeDeadlineExceeded, "step deadline passed")
	}

	step.Status = StatusVerifying
	verdict, verifyErr := o.adapters[step.Kind].Verify(ctx, step.Challenge, capture)

	if verifyErr == nil && verdict.Passed {
		return o.handlePass(ctx, session, verdict, now), nil
	}
	return o.handleFailure(ctx, session, verdict, verifyErr, now), nil
}

func (o *Orchestrator) handlePass(ctx context.Context, session *VerificationSession, verdict Verdict, now time.Time) *StepOutcome {
	step := &session.Steps[session.ActiveStep]
	step.Status = StatusPassed
	step.Verdict = &verdict

	o.metrics.IncStepVerdict(string(step.Kind), "passed")
	o.emitAudit(ctx, audit.Event{
		Action:           audit.ActionStepPassed,
		SessionID:        session.ID,
		SubjectID:        session.SubjectID,
		StepIndex:        session.ActiveStep,
		StepKind:         string(step.Kind),
		Confidence:       verdict.Confidence,
		RequestID:        requestcontext.RequestID(ctx),
		DetectorMetadata: verdict.Metadata,
	})

	next := session.ActiveStep + 1
	if next < len(session.Steps) {
		o.activateStep(session, next, now)
		o.saveOrLog(ctx, session)
		return &StepOutcome{
			Result:   OutcomeAdvance,
			Verdict:  &verdict,
			NextStep: stepView(session, next),
		}
	}

	decision := o.finalize(ctx, session, StateCompleted, now)
	return &StepOutcome{Result: OutcomeDone, Verdict: &verdict, Decision: decision}
}

func (o *Orchestrator) handleFailure(ctx context.Context, session *VerificationSession, verdict Verdict, verifyErr error, now time.Time) *StepOutcome {
	step := &session.Steps[session.ActiveStep]

	// Detector errors consume the retry budget like a negative verdict,
	// but stay flagged so an outage never masquerades as a liveness
	// failure downstream.
	attemptReason := ReasonFailedVerdict
	if verifyErr != nil {
		attemptReason = ReasonDetectorUnavailable
		step.DetectorErrors++
		o.logger.WarnContext(ctx, "detector unavailable",
			"session_id", session.ID,
			"step", session.ActiveStep,
			"kind", step.Kind,
			"error", verifyErr,
		)
	}

	o.metrics.IncStepVerdict(string(step.Kind), string(attemptReason))
	o.emitAudit(ctx, audit.Event{
		Action:           audit.ActionStepFailed,
		SessionID:        session.ID,
		SubjectID:        session.SubjectID,
		StepIndex:        session.ActiveStep,
		StepKind:         string(step.Kind),
		Confidence:       verdict.Confidence,
		Reason:           string(attemptReason),
		RequestID:        requestcontext.RequestID(ctx),
		DetectorMetadata: verdict.Metadata,
	})

	if step.AttemptsUsed < o.cfg.MaxAttempts {
		step.AttemptsUsed++
		step.Status = StatusAwaitingCapture
		step.Verdict = nil
		step.Deadline = now.Add(o.cfg.stepTimeout(step.Kind))
		// Fresh draw on every retry; a known answer can never be replayed.
		if o.challenges.Requires(step.Kind) {
			step.Challenge = o.challenges.Generate(step.Kind)
		}
		o.saveOrLog(ctx, session)
		return &StepOutcome{Result: OutcomeRetry, Retry: stepView(session, session.ActiveStep)}
	}

	step.Status = StatusFailed
	if verifyErr == nil {
		step.Verdict = &verdict
	}
	switch {
	case o.cfg.MaxAttempts > 0:
		step.Reason = ReasonAttemptsExhausted
	case verifyErr != nil:
		step.Reason = ReasonDetectorUnavailable
	default:
		step.Reason = ReasonFailedVerdict
	}

	decision := o.finalize(ctx, session, StateDisqualified, now)
	return &StepOutcome{Result: OutcomeDone, Decision: decision}
}

// Expire forces a session past its lifetime into a terminal rejection.
// Idempotent: terminal sessions and sessions still within their lifetime
// are left untouched. Called by the periodic sweep and safe to race with
// client submissions.
func (o *Orchestrator) Expire(ctx context.Context, sessionID id.SessionID) error {
	release, ok := o.locks.acquire(sessionID)
	if !ok {
		return dErrors.New(dErrors.CodeSessionBusy, "session is busy")
	}
	defer release()

	session, err := o.store.FindByID(ctx, sessionID)
	if err != nil {
		o.locks.forget(sessionID)
		return err
	}
	if session.Terminal() {
		o.locks.forget(sessionID)
		return nil
	}

	now := requestcontext.Now(ctx)
	if !session.Expired(now) {
		return nil
	}

	o.disqualifyExpired(ctx, session, now)
	return nil
}

// GetStatus returns a read-only snapshot of the session. Never mutates
// state; safe for client polling.
func (o *Orchestrator) GetStatus(ctx context.Context, sessionID id.SessionID) (*VerificationSession, error) {
	session, err := o.store.FindByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return session.Clone(), nil
}

// activateStep transitions the session to the given step: awaiting
// capture, deadline computed from the step kind's window, challenge
// generated when the kind requires one.
func (o *Orchestrator) activateStep(session *VerificationSession, index int, now time.Time) {
	session.State = StateStepActive
	session.ActiveStep = index

	step := &session.Steps[index]
	step.Status = StatusAwaitingCapture
	step.Deadline = now.Add(o.cfg.stepTimeout(step.Kind))
	if o.challenges.Requires(step.Kind) {
		step.Challenge = o.challenges.Generate(step.Kind)
	}
}

// disqualifyExpired ends an expired session. The in-flight step is marked
// timed out with the session_expired reason; untouched steps keep their
// pending status and are reported as session_expired by the aggregator.
func (o *Orchestrator) disqualifyExpired(ctx context.Context, session *VerificationSession, now time.Time) {
	if session.ActiveStep < len(session.Steps) {
		step := &session.Steps[session.ActiveStep]
		if !step.Status.Terminal() {
			step.Status = StatusTimedOut
			step.Reason = ReasonSessionExpired
		}
	}
	o.finalize(ctx, session, StateDisqualified, now)
}

// finalize computes the decision exactly once, persists the now-immutable
// session, and emits the decision audit trail.
func (o *Orchestrator) finalize(ctx context.Context, session *VerificationSession, state SessionState, now time.Time) *FinalDecision {
	session.State = state
	decision := Aggregate(session, now)
	session.FinalDecision = decision
	o.saveOrLog(ctx, session)

	outcome := "rejected"
	outcomeAction := audit.ActionSessionDisqualified
	reason := ""
	if decision.Accepted {
		outcome = "accepted"
		outcomeAction = audit.ActionSessionCompleted
	} else if len(decision.Reasons) > 0 {
		reason = string(decision.Reasons[0].Reason)
	}

	o.metrics.IncSessionOutcome(outcome, reason)
	requestID := requestcontext.RequestID(ctx)
	o.emitAudit(ctx, audit.Event{
		Action:    outcomeAction,
		SessionID: session.ID,
		SubjectID: session.SubjectID,
		Reason:    reason,
		RequestID: requestID,
	})
	o.emitAudit(ctx, audit.Event{
		Action:    audit.ActionDecisionMade,
		SessionID: session.ID,
		SubjectID: session.SubjectID,
		Decision:  outcome,
		Reason:    reason,
		RequestID: requestID,
	})
	o.logger.InfoContext(ctx, "verification session decided",
		"session_id", session.ID,
		"subject_id", session.SubjectID,
		"decision", outcome,
		"reason", reason,
	)

	o.locks.forget(session.ID)
	return decision
}

func (o *Orchestrator) saveOrLog(ctx context.Context, session *VerificationSession) {
	if err := o.store.Save(ctx, session); err != nil {
		o.logger.ErrorContext(ctx, "session save failed",
			"session_id", session.ID,
			"error", err,
		)
	}
}

func (o *Orchestrator) emitAudit(ctx context.Context, event audit.Event) {
	if o.audit == nil {
		return
	}
	if err := o.audit.Emit(ctx, event); err != nil {
		o.logger.ErrorContext(ctx, "audit emit failed",
			"action", event.Action,
			"session_id", event.SessionID,
			"error", err,
		)
	}
}

func stepView(session *VerificationSession, index int) *StepView {
	step := session.Steps[index]
	view := &StepView{Index: index, Kind: step.Kind, Deadline: step.Deadline}
	if step.Challenge != nil {
		view.Prompt = step.Challenge.Prompt
	}
	return view
}

// sessionLocks serializes mutations per session. TryLock keeps a second
// concurrent submission from queueing behind a detector call; it fails
// fast with SessionBusy instead. Entries are dropped once a session is
// terminal and whenever no active session exists behind an ID, so lookups
// with guessed IDs cannot grow the registry.
type sessionLocks struct {
	mu    sync.Mutex
	locks map[id.SessionID]*sync.Mutex
}

func (l *sessionLocks) acquire(sessionID id.SessionID) (release func(), ok bool) {
	l.mu.Lock()
	if l.locks == nil {
		l.locks = make(map[id.SessionID]*sync.Mutex)
	}
	m, exists := l.locks[sessionID]
	if !exists {
		m = &sync.Mutex{}
		l.locks[sessionID] = m
	}
	l.mu.Unlock()

	if !m.TryLock() {
		return nil, false
	}
	return m.Unlock, true
}

func (l *sessionLocks) forget(sessionID id.SessionID) {
	l.mu.Lock()
	delete(l.locks, sessionID)
	l.mu.Unlock()
}
