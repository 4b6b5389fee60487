package kyc

import (
	"context"
	"sync"

	id "facelive/pkg/domain"
	dErrors "facelive/pkg/domain-errors"
)

// ErrSubmissionNotFound keeps storage 404s consistent.
var ErrSubmissionNotFound = dErrors.New(dErrors.CodeNotFound, "submission not found")

// Store persists KYC submissions.
type Store interface {
	Save(ctx context.Context, submission *Submission) error
	FindByID(ctx context.Context, submissionID id.SubmissionID) (*Submission, error)
	FindPendingBySubject(ctx context.Context, subject id.SubjectID) (*Submission, error)
}

// MemoryStore keeps submissions in memory for single-instance deployments.
type MemoryStore struct {
	mu          sync.RWMutex
	submissions map[id.SubmissionID]Submission
}

// NewMemoryStore constructs an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{submissions: make(map[id.SubmissionID]Submission)}
}

func (s *MemoryStore) Save(_ context.Context, submission *Submission) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.submissions[submission.ID] = *submission
	return nil
}

func (s *MemoryStore) FindByID(_ context.Context, submissionID id.SubmissionID) (*Submission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if sub, ok := s.submissions[submissionID]; ok {
		return &sub, nil
	}
	return nil, ErrSubmissionNotFound
}

func (s *MemoryStore) FindPendingBySubject(_ context.Context, subject id.SubjectID) (*Submission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, sub := range s.submissions {
		if sub.SubjectID == subject && sub.Status == StatusPending {
			out := sub
			return &out, nil
		}
	}
	return nil, ErrSubmissionNotFound
}
