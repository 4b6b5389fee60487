package liveness

import (
	"context"
	"log/slog"
	"time"

	dErrors "facelive/pkg/domain-errors"
)

// Sweeper periodically expires sessions whose total lifetime elapsed
// without a client submission ever triggering the expiry check. Without
// it, an abandoned session would sit in step_active forever.
type Sweeper struct {
	orchestrator *Orchestrator
	store        SessionStore
	interval     time.Duration
	logger       *slog.Logger
}

// NewSweeper builds a sweeper over the orchestrator's store.
func NewSweeper(orchestrator *Orchestrator, store SessionStore, interval time.Duration, logger *slog.Logger) *Sweeper {
	if logger == nil {
		logger = slog.Default()
	}
	return &Sweeper{
		orchestrator: orchestrator,
		store:        store,
		interval:     interval,
		logger:       logger,
	}
}

// Run sweeps on the configured interval until ctx is done.
func (s *Sweeper) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

// Sweep runs one pass: every active session is offered to Expire, which
// only acts on sessions actually past their lifetime. Busy sessions are
// skipped; the in-flight submission performs its own expiry check, and
// the next pass picks up any survivor.
func (s *Sweeper) Sweep(ctx context.Context) {
	ids, err := s.store.ListActive(ctx)
	if err != nil {
		s.logger.ErrorContext(ctx, "expiry sweep list failed", "error", err)
		return
	}

	for _, sessionID := range ids {
		err := s.orchestrator.Expire(ctx, sessionID)
		switch {
		case err == nil:
		case dErrors.HasCode(err, dErrors.CodeSessionBusy):
			s.logger.DebugContext(ctx, "expiry sweep skipped busy session", "session_id", sessionID)
		case dErrors.HasCode(err, dErrors.CodeNotFound):
			// Evicted between listing and expiry; nothing to do.
		default:
			s.logger.ErrorContext(ctx, "expiry sweep failed for session",
				"session_id", sessionID,
				"error", err,
			)
		}
	}
}
