package handler

import (
	"time"

	"facelive/internal/liveness"
)

// Response types are explicit views rather than domain types on the wire:
// the expected challenge answer and detector metadata never reach the
// client under verification.

type sessionResponse struct {
	ID         string            `json:"id"`
	State      string            `json:"state"`
	ActiveStep int               `json:"active_step"`
	Steps      []stepResponse    `json:"steps"`
	CreatedAt  time.Time         `json:"created_at"`
	ExpiresAt  time.Time         `json:"expires_at"`
	Decision   *decisionResponse `json:"decision,omitempty"`
}

type stepResponse struct {
	Index        int        `json:"index"`
	Kind         string     `json:"kind"`
	Status       string     `json:"status"`
	Prompt       string     `json:"prompt,omitempty"`
	AttemptsUsed int        `json:"attempts_used"`
	Deadline     *time.Time `json:"deadline,omitempty"`
	Reason       string     `json:"reason,omitempty"`
}

type stepViewResponse struct {
	Index    int       `json:"index"`
	Kind     string    `json:"kind"`
	Prompt   string    `json:"prompt,omitempty"`
	Deadline time.Time `json:"deadline"`
}

type verdictResponse struct {
	Passed     bool    `json:"passed"`
	Confidence float64 `json:"confidence"`
}

type outcomeResponse struct {
	Result   string            `json:"result"`
	Verdict  *verdictResponse  `json:"verdict,omitempty"`
	NextStep *stepViewResponse `json:"next_step,omitempty"`
	Retry    *stepViewResponse `json:"retry,omitempty"`
	Decision *decisionResponse `json:"decision,omitempty"`
}

type decisionReasonResponse struct {
	StepIndex       int    `json:"step_index"`
	Kind            string `json:"kind"`
	Reason          string `json:"reason"`
	DetectorFlagged bool   `json:"detector_flagged,omitempty"`
}

type decisionStepResponse struct {
	Kind         string  `json:"kind"`
	Status       string  `json:"status"`
	AttemptsUsed int     `json:"attempts_used"`
	Confidence   float64 `json:"confidence,omitempty"`
}

type decisionResponse struct {
	Accepted  bool                     `json:"accepted"`
	Reasons   []decisionReasonResponse `json:"reasons"`
	Steps     []decisionStepResponse   `json:"steps"`
	DecidedAt time.Time                `json:"decided_at"`
}

func toSessionResponse(session *liveness.VerificationSession) sessionResponse {
	resp := sessionResponse{
		ID:         session.ID.String(),
		State:      string(session.State),
		ActiveStep: session.ActiveStep,
		Steps:      make([]stepResponse, len(session.Steps)),
		CreatedAt:  session.CreatedAt,
		ExpiresAt:  session.ExpiresAt,
		Decision:   toDecisionResponse(session.FinalDecision),
	}
	for i, step := range session.Steps {
		sr := stepResponse{
			Index:        i,
			Kind:         string(step.Kind),
			Status:       string(step.Status),
			AttemptsUsed: step.AttemptsUsed,
			Reason:       string(step.Reason),
		}
		if step.Challenge != nil {
			sr.Prompt = step.Challenge.Prompt
		}
		if !step.Deadline.IsZero() {
			deadline := step.Deadline
			sr.Deadline = &deadline
		}
		resp.Steps[i] = sr
	}
	return resp
}

func toOutcomeResponse(outcome *liveness.StepOutcome) outcomeResponse {
	resp := outcomeResponse{
		Result:   string(outcome.Result),
		NextStep: toStepViewResponse(outcome.NextStep),
		Retry:    toStepViewResponse(outcome.Retry),
		Decision: toDecisionResponse(outcome.Decision),
	}
	if outcome.Verdict != nil {
		resp.Verdict = &verdictResponse{
			Passed:     outcome.Verdict.Passed,
			Confidence: outcome.Verdict.Confidence,
		}
	}
	return resp
}

func toStepViewResponse(view *liveness.StepView) *stepViewResponse {
	if view == nil {
		return nil
	}
	return &stepViewResponse{
		Index:    view.Index,
		Kind:     string(view.Kind),
		Prompt:   view.Prompt,
		Deadline: view.Deadline,
	}
}

func toDecisionResponse(decision *liveness.FinalDecision) *decisionResponse {
	if decision == nil {
		return nil
	}
	resp := &decisionResponse{
		Accepted:  decision.Accepted,
		Reasons:   make([]decisionReasonResponse, len(decision.Reasons)),
		Steps:     make([]decisionStepResponse, len(decision.Steps)),
		DecidedAt: decision.DecidedAt,
	}
	for i, reason := range decision.Reasons {
		resp.Reasons[i] = decisionReasonResponse{
			StepIndex:       reason.StepIndex,
			Kind:            string(reason.Kind),
			Reason:          string(reason.Reason),
			DetectorFlagged: reason.DetectorFlagged,
		}
	}
	for i, step := range decision.Steps {
		resp.Steps[i] = decisionStepResponse{
			Kind:         string(step.Kind),
			Status:       string(step.Status),
			AttemptsUsed: step.AttemptsUsed,
			Confidence:   step.Confidence,
		}
	}
	return resp
}
