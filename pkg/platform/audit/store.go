package audit

import (
	"context"

	id "facelive/pkg/domain"
)

// Sink accepts audit events. Stores and streaming publishers both satisfy
// it, so wiring can fan one event out to several destinations.
type Sink interface {
	Append(ctx context.Context, event Event) error
}

// Store is a Sink that can also be queried, used by operators and tests.
type Store interface {
	Sink
	ListBySession(ctx context.Context, sessionID id.SessionID) ([]Event, error)
}

// Fanout returns a Sink that appends to every given sink in order and
// returns the first error. A nil sink in the list is skipped.
func Fanout(sinks ...Sink) Sink {
	return fanout(sinks)
}

type fanout []Sink

func (f fanout) Append(ctx context.Context, event Event) error {
	for _, s := range f {
		if s == nil {
			continue
		}
		if err := s.Append(ctx, event); err != nil {
			return err
		}
	}
	return nil
}
