package audit_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "facelive/pkg/domain"
	"facelive/pkg/platform/audit"
	"facelive/pkg/platform/audit/store/memory"
)

func TestActionCategories(t *testing.T) {
	tests := []struct {
		action audit.Action
		want   audit.EventCategory
	}{
		{audit.ActionSessionStarted, audit.CategoryOperations},
		{audit.ActionStepPassed, audit.CategoryOperations},
		{audit.ActionStepFailed, audit.CategorySecurity},
		{audit.ActionStepTimedOut, audit.CategorySecurity},
		{audit.ActionSessionCompleted, audit.CategoryCompliance},
		{audit.ActionSessionDisqualified, audit.CategoryCompliance},
		{audit.ActionDecisionMade, audit.CategoryCompliance},
		{audit.Action("something_new"), audit.CategoryOperations},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.action.Category(), string(tt.action))
	}
}

func TestPublisherStampsTimestampAndCategory(t *testing.T) {
	store := memory.New()
	pub := audit.NewPublisher(store)
	sessionID := id.NewSessionID()

	err := pub.Emit(context.Background(), audit.Event{
		Action:    audit.ActionDecisionMade,
		SessionID: sessionID,
		Decision:  "accepted",
	})
	require.NoError(t, err)

	events, err := store.ListBySession(context.Background(), sessionID)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.False(t, events[0].Timestamp.IsZero())
	assert.Equal(t, audit.CategoryCompliance, events[0].Category)
}

func TestPublisherKeepsExplicitTimestamp(t *testing.T) {
	store := memory.New()
	pub := audit.NewPublisher(store)
	sessionID := id.NewSessionID()
	at := time.Date(2026, 1, 2, 15, 0, 0, 0, time.UTC)

	err := pub.Emit(context.Background(), audit.Event{
		Timestamp: at,
		Action:    audit.ActionSessionStarted,
		SessionID: sessionID,
	})
	require.NoError(t, err)

	events, err := store.ListBySession(context.Background(), sessionID)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, at, events[0].Timestamp)
}

type recordingSink struct {
	events []audit.Event
	err    error
}

func (s *recordingSink) Append(_ context.Context, event audit.Event) error {
	if s.err != nil {
		return s.err
	}
	s.events = append(s.events, event)
	return nil
}

func TestFanoutAppendsToEverySink(t *testing.T) {
	first := &recordingSink{}
	second := &recordingSink{}
	sink := audit.Fanout(first, nil, second)

	err := sink.Append(context.Background(), audit.Event{Action: audit.ActionStepPassed})
	require.NoError(t, err)
	assert.Len(t, first.events, 1)
	assert.Len(t, second.events, 1)
}

func TestFanoutStopsOnFirstError(t *testing.T) {
	boom := errors.New("sink down")
	first := &recordingSink{err: boom}
	second := &recordingSink{}

	err := audit.Fanout(first, second).Append(context.Background(), audit.Event{})
	assert.ErrorIs(t, err, boom)
	assert.Empty(t, second.events)
}

func TestPublisherListRequiresQueryableSink(t *testing.T) {
	pub := audit.NewPublisher(&recordingSink{})

	events, err := pub.List(context.Background(), id.NewSessionID())
	require.NoError(t, err)
	assert.Nil(t, events)
}
