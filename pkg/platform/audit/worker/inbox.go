package worker

import (
	"context"
	"errors"

	"facelive/pkg/platform/audit"
)

// Inbox adapts a channel into an audit.Sink with a non-blocking send.
// When the buffer is full the append fails fast rather than stalling the
// caller; the caller decides whether that is fatal.
type Inbox chan audit.Event

var errInboxFull = errors.New("audit inbox full")

func (in Inbox) Append(_ context.Context, event audit.Event) error {
	select {
	case in <- event:
		return nil
	default:
		return errInboxFull
	}
}
