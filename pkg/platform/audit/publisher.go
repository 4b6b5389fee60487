package audit

import (
	"context"
	"time"

	id "facelive/pkg/domain"
)

// Publisher is the write-side entry point for domain code. It stamps
// timestamps and categories, then hands the event to its sink.
type Publisher struct {
	sink Sink
}

// NewPublisher constructs a publisher over the given sink.
func NewPublisher(sink Sink) *Publisher {
	return &Publisher{sink: sink}
}

// Emit records one event. Missing timestamps and categories are filled in.
func (p *Publisher) Emit(ctx context.Context, event Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	if event.Category == "" {
		event.Category = event.Action.Category()
	}
	return p.sink.Append(ctx, event)
}

// List reads back events for a session when the sink is a queryable store.
// Returns nil when the sink cannot be queried.
func (p *Publisher) List(ctx context.Context, sessionID id.SessionID) ([]Event, error) {
	store, ok := p.sink.(Store)
	if !ok {
		return nil, nil
	}
	return store.ListBySession(ctx, sessionID)
}
