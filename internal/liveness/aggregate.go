package liveness

import "time"

// Aggregate combines a session's step records into the final decision.
// Pure and deterministic: no detector calls, no I/O. Accepted only when
// every step passed; every step that did not pass contributes a reason.
func Aggregate(session *VerificationSession, decidedAt time.Time) *FinalDecision {
	decision := &FinalDecision{
		Accepted:  true,
		Reasons:   []DecisionReason{},
		Steps:     make([]StepSummary, 0, len(session.Steps)),
		DecidedAt: decidedAt,
	}

	for i, step := range session.Steps {
		summary := StepSummary{
			Kind:         step.Kind,
			Status:       step.Status,
			AttemptsUsed: step.AttemptsUsed,
		}
		if step.Verdict != nil {
			summary.Confidence = step.Verdict.Confidence
		}
		decision.Steps = append(decision.Steps, summary)

		if step.Status == StatusPassed {
			continue
		}

		decision.Accepted = false
		reason := step.Reason
		if reason == "" {
			// Steps never reached before the session ended. Only a real
			// lifetime expiry labels them; when an earlier step ended the
			// session, that step's reason already tells the story.
			if !session.Expired(decidedAt) {
				continue
			}
			reason = ReasonSessionExpired
		}
		decision.Reasons = append(decision.Reasons, DecisionReason{
			StepIndex:       i,
			Kind:            step.Kind,
			Reason:          reason,
			DetectorFlagged: step.DetectorErrors > 0,
		})
	}

	return decision
}
