package liveness

import (
	"context"

	id "facelive/pkg/domain"
	dErrors "facelive/pkg/domain-errors"
)

// ErrSessionNotFound keeps storage 404s consistent across implementations.
var ErrSessionNotFound = dErrors.New(dErrors.CodeNotFound, "session not found")

// SessionStore persists verification sessions. Interface-driven so the
// in-memory and Redis implementations swap without touching the
// orchestrator.
type SessionStore interface {
	// Save upserts the full session snapshot.
	Save(ctx context.Context, session *VerificationSession) error

	// FindByID returns the stored session or ErrSessionNotFound.
	FindByID(ctx context.Context, sessionID id.SessionID) (*VerificationSession, error)

	// ListActive returns IDs of sessions that have not reached a terminal
	// state, for the expiry sweep.
	ListActive(ctx context.Context) ([]id.SessionID, error)
}
