// Package memory holds the in-memory audit store used in development and
// unit tests. It intentionally favors clarity over performance.
package memory

import (
	"context"
	"sync"

	id "facelive/pkg/domain"
	"facelive/pkg/platform/audit"
)

// Store keeps audit events per session in insertion order.
type Store struct {
	mu     sync.RWMutex
	events map[id.SessionID][]audit.Event
}

// New constructs an empty in-memory audit store.
func New() *Store {
	return &Store{events: make(map[id.SessionID][]audit.Event)}
}

func (s *Store) Append(_ context.Context, event audit.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events[event.SessionID] = append(s.events[event.SessionID], event)
	return nil
}

func (s *Store) ListBySession(_ context.Context, sessionID id.SessionID) ([]audit.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]audit.Event{}, s.events[sessionID]...), nil
}
