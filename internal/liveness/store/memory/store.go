// Package memory holds the in-memory session store for single-instance
// deployments and tests.
package memory

import (
	"context"
	"sync"

	id "facelive/pkg/domain"

	"facelive/internal/liveness"
)

// Store keeps sessions in a map guarded by an RWMutex. Stored and returned
// sessions are deep-copied, so callers can never alias store state.
type Store struct {
	mu       sync.RWMutex
	sessions map[id.SessionID]*liveness.VerificationSession
}

// New constructs an empty in-memory session store.
func New() *Store {
	return &Store{sessions: make(map[id.SessionID]*liveness.VerificationSession)}
}

func (s *Store) Save(_ context.Context, session *liveness.VerificationSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[session.ID] = session.Clone()
	return nil
}

func (s *Store) FindByID(_ context.Context, sessionID id.SessionID) (*liveness.VerificationSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if session, ok := s.sessions[sessionID]; ok {
		return session.Clone(), nil
	}
	return nil, liveness.ErrSessionNotFound
}

func (s *Store) ListActive(_ context.Context) ([]id.SessionID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var active []id.SessionID
	for sid, session := range s.sessions {
		if !session.Terminal() {
			active = append(active, sid)
		}
	}
	return active, nil
}
