// Package audit defines the audit event model and sinks for the liveness
// gateway. Events are emitted from domain logic and fanned out to storage
// and streaming sinks; they are the system of record for every verification
// decision.
package audit

import (
	"time"

	id "facelive/pkg/domain"
)

// EventCategory classifies audit events by their primary purpose. This
// drives retention policy and downstream routing.
type EventCategory string

const (
	// CategoryCompliance covers events with regulatory significance:
	// final decisions and session outcomes. Long retention.
	CategoryCompliance EventCategory = "compliance"

	// CategorySecurity covers events relevant to fraud monitoring:
	// failed steps, timeouts, detector outages.
	CategorySecurity EventCategory = "security"

	// CategoryOperations covers routine activity useful for debugging.
	CategoryOperations EventCategory = "operations"
)

// Action names one audited occurrence in a verification session.
type Action string

const (
	ActionSessionStarted      Action = "session_started"
	ActionStepPassed          Action = "step_passed"
	ActionStepFailed          Action = "step_failed"
	ActionStepTimedOut        Action = "step_timed_out"
	ActionSessionCompleted    Action = "session_completed"
	ActionSessionDisqualified Action = "session_disqualified"
	ActionDecisionMade        Action = "decision_made"
)

var actionCategories = map[Action]EventCategory{
	ActionSessionStarted:      CategoryOperations,
	ActionStepPassed:          CategoryOperations,
	ActionStepFailed:          CategorySecurity,
	ActionStepTimedOut:        CategorySecurity,
	ActionSessionCompleted:    CategoryCompliance,
	ActionSessionDisqualified: CategoryCompliance,
	ActionDecisionMade:        CategoryCompliance,
}

// Category returns the EventCategory for this action. Unknown actions
// default to CategoryOperations.
func (a Action) Category() EventCategory {
	if cat, ok := actionCategories[a]; ok {
		return cat
	}
	return CategoryOperations
}

// Event is one audited occurrence. Keep it transport-agnostic so stores and
// streaming sinks can share the type.
type Event struct {
	Timestamp time.Time     `json:"timestamp"`
	Category  EventCategory `json:"category"`
	Action    Action        `json:"action"`
	SessionID id.SessionID  `json:"session_id"`
	SubjectID id.SubjectID  `json:"subject_id"`

	// Step fields, populated for step-level actions.
	StepIndex  int     `json:"step_index,omitempty"`
	StepKind   string  `json:"step_kind,omitempty"`
	Confidence float64 `json:"confidence,omitempty"`

	// Reason distinguishes genuine liveness failures (failed_verdict) from
	// operational detector failures (detector_unavailable) and timing
	// outcomes. This distinction must survive to downstream consumers.
	Reason string `json:"reason,omitempty"`

	// Decision is set on decision_made events ("accepted"/"rejected").
	Decision string `json:"decision,omitempty"`

	// RequestID correlates the event with the HTTP request that caused it.
	RequestID string `json:"request_id,omitempty"`

	// DetectorMetadata carries the detector's raw metadata verbatim. The
	// orchestrator never inspects it.
	DetectorMetadata map[string]any `json:"detector_metadata,omitempty"`
}
