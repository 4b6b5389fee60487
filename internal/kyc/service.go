package kyc

import (
	"context"
	"errors"
	"log/slog"

	id "facelive/pkg/domain"
	dErrors "facelive/pkg/domain-errors"
	"facelive/pkg/requestcontext"

	"facelive/internal/liveness"
)

// SessionReader is the slice of the orchestrator the service needs.
type SessionReader interface {
	GetStatus(ctx context.Context, sessionID id.SessionID) (*liveness.VerificationSession, error)
}

// Service creates and reads KYC submissions.
type Service struct {
	store    Store
	sessions SessionReader
	logger   *slog.Logger
}

// NewService constructs the KYC service.
func NewService(store Store, sessions SessionReader, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, sessions: sessions, logger: logger}
}

// Submit records a KYC submission for the subject, backed by the given
// liveness session. The session must belong to the subject and carry an
// accepted final decision, and the subject must not already have a
// submission pending review.
func (s *Service) Submit(ctx context.Context, subject id.SubjectID, sessionID id.SessionID) (*Submission, error) {
	session, err := s.sessions.GetStatus(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.SubjectID != subject {
		return nil, liveness.ErrSessionNotFound
	}
	if session.FinalDecision == nil {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "liveness session is not decided yet")
	}
	if !session.FinalDecision.Accepted {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "liveness session was not accepted")
	}

	if existing, err := s.store.FindPendingBySubject(ctx, subject); err == nil && existing != nil {
		return nil, dErrors.New(dErrors.CodeConflict, "a submission is already pending review")
	} else if err != nil && !errors.Is(err, ErrSubmissionNotFound) {
		return nil, dErrors.Wrap(dErrors.CodeInternal, "check pending submissions", err)
	}

	submission := &Submission{
		ID:          id.NewSubmissionID(),
		SubjectID:   subject,
		SessionID:   sessionID,
		Status:      StatusPending,
		SubmittedAt: requestcontext.Now(ctx),
	}
	if err := s.store.Save(ctx, submission); err != nil {
		return nil, dErrors.Wrap(dErrors.CodeInternal, "save submission", err)
	}

	s.logger.InfoContext(ctx, "kyc submission recorded",
		"submission_id", submission.ID,
		"subject_id", subject,
		"session_id", sessionID,
	)
	return submission, nil
}

// Get returns the subject's submission. Foreign submissions come back as
// not found.
func (s *Service) Get(ctx context.Context, subject id.SubjectID, submissionID id.SubmissionID) (*Submission, error) {
	submission, err := s.store.FindByID(ctx, submissionID)
	if err != nil {
		return nil, err
	}
	if submission.SubjectID != subject {
		return nil, ErrSubmissionNotFound
	}
	return submission, nil
}
