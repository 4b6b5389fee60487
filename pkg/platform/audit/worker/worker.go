// Package worker drains buffered audit events to a sink in the background.
// The orchestrator's hot path enqueues and moves on; persistence latency
// never extends a step deadline.
package worker

import (
	"context"
	"log/slog"

	"facelive/pkg/platform/audit"
)

// Worker consumes audit events from a channel and appends them to a sink.
type Worker struct {
	sink   audit.Sink
	inbox  <-chan audit.Event
	logger *slog.Logger
}

// New constructs a worker over the given inbox channel.
func New(sink audit.Sink, inbox <-chan audit.Event, logger *slog.Logger) *Worker {
	return &Worker{sink: sink, inbox: inbox, logger: logger}
}

// Run processes events until the context is canceled. Append failures are
// logged, not fatal: one bad event must not stall the whole audit stream.
func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event := <-w.inbox:
			if err := w.sink.Append(ctx, event); err != nil {
				w.logger.ErrorContext(ctx, "audit append failed",
					"action", event.Action,
					"session_id", event.SessionID,
					"error", err,
				)
			}
		}
	}
}
