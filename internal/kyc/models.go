// Package kyc turns completed liveness verifications into KYC submission
// records for downstream review.
package kyc

import (
	"time"

	id "facelive/pkg/domain"
)

// SubmissionStatus is the review state of a submission.
type SubmissionStatus string

const (
	StatusPending  SubmissionStatus = "pending"
	StatusApproved SubmissionStatus = "approved"
	StatusRejected SubmissionStatus = "rejected"
)

// Submission is one KYC submission backed by an accepted liveness session.
type Submission struct {
	ID        id.SubmissionID `json:"id"`
	SubjectID id.SubjectID    `json:"subject_id"`

	// SessionID is the liveness session whose accepted decision backs this
	// submission.
	SessionID id.SessionID `json:"session_id"`

	Status      SubmissionStatus `json:"status"`
	SubmittedAt time.Time        `json:"submitted_at"`
	ReviewedAt  *time.Time       `json:"reviewed_at,omitempty"`
	Notes       string           `json:"notes,omitempty"`
}
