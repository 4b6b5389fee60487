// Package liveness implements the liveness verification orchestrator: a
// stateful protocol that sequences challenge steps, enforces capture
// deadlines, collects detector verdicts, and renders one authoritative
// accept/reject decision per verification attempt.
package liveness

import (
	"time"

	id "facelive/pkg/domain"
)

// StepKind names one challenge/response step type.
type StepKind string

const (
	// StepPresence verifies a matching live face is in frame.
	StepPresence StepKind = "presence"
	// StepBlinkGaze verifies natural blink and gaze movement.
	StepBlinkGaze StepKind = "blink_gaze"
	// StepVoiceCaptcha verifies a spoken answer to a server-issued
	// arithmetic challenge.
	StepVoiceCaptcha StepKind = "voice_captcha"
)

// KnownStepKind reports whether kind is one of the supported step kinds.
func KnownStepKind(kind StepKind) bool {
	switch kind {
	case StepPresence, StepBlinkGaze, StepVoiceCaptcha:
		return true
	}
	return false
}

// StepStatus is the lifecycle state of one step.
type StepStatus string

const (
	StatusPending         StepStatus = "pending"
	StatusAwaitingCapture StepStatus = "awaiting_capture"
	StatusVerifying       StepStatus = "verifying"
	StatusPassed          StepStatus = "passed"
	StatusFailed          StepStatus = "failed"
	StatusTimedOut        StepStatus = "timed_out"
)

// Terminal reports whether the step can no longer change.
func (s StepStatus) Terminal() bool {
	return s == StatusPassed || s == StatusFailed || s == StatusTimedOut
}

// SessionState is the orchestrator's machine state.
type SessionState string

const (
	StateCreated      SessionState = "created"
	StateStepActive   SessionState = "step_active"
	StateCompleted    SessionState = "completed"
	StateDisqualified SessionState = "disqualified"
)

// Terminal reports whether the session has reached a final state.
func (s SessionState) Terminal() bool {
	return s == StateCompleted || s == StateDisqualified
}

// FailureReason categorizes why a step or session did not pass. The
// detector_unavailable reason marks operational failures and must stay
// distinguishable from genuine liveness failures all the way downstream.
type FailureReason string

const (
	ReasonFailedVerdict       FailureReason = "failed_verdict"
	ReasonTimedOut            FailureReason = "timed_out"
	ReasonAttemptsExhausted   FailureReason = "attempts_exhausted"
	ReasonSessionExpired      FailureReason = "session_expired"
	ReasonDetectorUnavailable FailureReason = "detector_unavailable"
)

// Challenge is the content issued to the client for one step. The expected
// answer never leaves the server; it is excluded from JSON serialization of
// client-facing views by the transport layer, and kept out of the generic
// encoding here as a second guard.
type Challenge struct {
	Prompt         string `json:"prompt"`
	ExpectedAnswer string `json:"-"`
}

// Verdict is a detector's determination for one capture.
type Verdict struct {
	Passed     bool           `json:"passed"`
	Confidence float64        `json:"confidence"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

// Capture is an already-decoded client submission for one step. Wire
// decoding happens in the transport layer; the orchestrator never parses
// encodings.
type Capture struct {
	Media     []byte            `json:"media,omitempty"`
	MediaType string            `json:"media_type,omitempty"`
	Meta      map[string]string `json:"meta,omitempty"`
}

// StepRecord tracks one step of a session. Append-only once started.
type StepRecord struct {
	Kind      StepKind   `json:"kind"`
	Status    StepStatus `json:"status"`
	Challenge *Challenge `json:"challenge,omitempty"`

	// AttemptsUsed counts consumed retries, bounded by the configured
	// maximum. Detector errors count against the budget too.
	AttemptsUsed int `json:"attempts_used"`

	// DetectorErrors counts attempts that failed operationally rather
	// than by a genuine negative verdict; carried into the decision so
	// detector outages are distinguishable downstream.
	DetectorErrors int `json:"detector_errors,omitempty"`

	Verdict  *Verdict  `json:"verdict,omitempty"`
	Deadline time.Time `json:"deadline"`

	// Reason is set when the step leaves the happy path.
	Reason FailureReason `json:"reason,omitempty"`
}

// VerificationSession is one end-to-end verification attempt. Mutated only
// by the orchestrator under the per-session lock; immutable once
// FinalDecision is set.
type VerificationSession struct {
	ID        id.SessionID `json:"id"`
	SubjectID id.SubjectID `json:"subject_id"`

	State      SessionState `json:"state"`
	ActiveStep int          `json:"active_step"`
	Steps      []StepRecord `json:"steps"`

	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`

	FinalDecision *FinalDecision `json:"final_decision,omitempty"`
}

// Terminal reports whether the session has reached a final state.
func (s *VerificationSession) Terminal() bool {
	return s.State.Terminal()
}

// Expired reports whether the session's total lifetime has elapsed at now.
func (s *VerificationSession) Expired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}

// Clone returns a deep copy, used for read-only snapshots so callers can
// never mutate orchestrator state through a status read.
func (s *VerificationSession) Clone() *VerificationSession {
	out := *s
	out.Steps = make([]StepRecord, len(s.Steps))
	for i, step := range s.Steps {
		out.Steps[i] = step
		if step.Challenge != nil {
			ch := *step.Challenge
			out.Steps[i].Challenge = &ch
		}
		if step.Verdict != nil {
			v := *step.Verdict
			out.Steps[i].Verdict = &v
		}
	}
	if s.FinalDecision != nil {
		d := *s.FinalDecision
		d.Reasons = append([]DecisionReason{}, s.FinalDecision.Reasons...)
		d.Steps = append([]StepSummary{}, s.FinalDecision.Steps...)
		out.FinalDecision = &d
	}
	return &out
}

// OutcomeResult tells the client what happens next after a submission.
type OutcomeResult string

const (
	// OutcomeAdvance moves the client to the next step.
	OutcomeAdvance OutcomeResult = "advance"
	// OutcomeRetry keeps the client on the same step with a fresh challenge.
	OutcomeRetry OutcomeResult = "retry"
	// OutcomeDone ends the session with a final decision.
	OutcomeDone OutcomeResult = "done"
)

// StepView is the client-facing description of an active step.
type StepView struct {
	Index    int       `json:"index"`
	Kind     StepKind  `json:"kind"`
	Prompt   string    `json:"prompt,omitempty"`
	Deadline time.Time `json:"deadline"`
}

// StepOutcome is the result of one capture submission.
type StepOutcome struct {
	Result   OutcomeResult  `json:"result"`
	Verdict  *Verdict       `json:"verdict,omitempty"`
	NextStep *StepView      `json:"next_step,omitempty"`
	Retry    *StepView      `json:"retry,omitempty"`
	Decision *FinalDecision `json:"decision,omitempty"`
}

// DecisionReason explains one step that did not pass.
type DecisionReason struct {
	StepIndex int           `json:"step_index"`
	Kind      StepKind      `json:"kind"`
	Reason    FailureReason `json:"reason"`

	// DetectorFlagged marks steps where at least one attempt failed
	// operationally, so systemic detector outages are visible next to
	// genuine liveness failures.
	DetectorFlagged bool `json:"detector_flagged,omitempty"`
}

// StepSummary is the per-step digest carried on the final decision.
type StepSummary struct {
	Kind         StepKind   `json:"kind"`
	Status       StepStatus `json:"status"`
	AttemptsUsed int        `json:"attempts_used"`
	Confidence   float64    `json:"confidence,omitempty"`
}

// FinalDecision is the single authoritative outcome of a session.
// Computed exactly once; immutable afterwards.
type FinalDecision struct {
	Accepted  bool             `json:"accepted"`
	Reasons   []DecisionReason `json:"reasons"`
	Steps     []StepSummary    `json:"steps"`
	DecidedAt time.Time        `json:"decided_at"`
}
