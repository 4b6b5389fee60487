package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "facelive/pkg/domain"

	"facelive/internal/liveness"
)

func sampleSession(state liveness.SessionState) *liveness.VerificationSession {
	return &liveness.VerificationSession{
		ID:        id.NewSessionID(),
		SubjectID: id.NewSubjectID(),
		State:     state,
		Steps: []liveness.StepRecord{
			{
				Kind:      liveness.StepVoiceCaptcha,
				Status:    liveness.StatusAwaitingCapture,
				Challenge: &liveness.Challenge{Prompt: "61 + 4", ExpectedAnswer: "65"},
			},
		},
		CreatedAt: time.Now().UTC(),
		ExpiresAt: time.Now().UTC().Add(2 * time.Minute),
	}
}

func TestSaveAndFindByID(t *testing.T) {
	store := New()
	ctx := context.Background()
	session := sampleSession(liveness.StateStepActive)

	require.NoError(t, store.Save(ctx, session))

	got, err := store.FindByID(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, session, got)
	assert.Equal(t, "65", got.Steps[0].Challenge.ExpectedAnswer)
}

func TestFindByIDUnknown(t *testing.T) {
	store := New()

	_, err := store.FindByID(context.Background(), id.NewSessionID())
	assert.True(t, errors.Is(err, liveness.ErrSessionNotFound))
}

func TestStoreIsolatesCallers(t *testing.T) {
	store := New()
	ctx := context.Background()
	session := sampleSession(liveness.StateStepActive)
	require.NoError(t, store.Save(ctx, session))

	// Mutating the saved original or a returned copy must not leak into
	// the store.
	session.State = liveness.StateDisqualified
	got, err := store.FindByID(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, liveness.StateStepActive, got.State)

	got.Steps[0].Challenge.Prompt = "tampered"
	again, err := store.FindByID(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, "61 + 4", again.Steps[0].Challenge.Prompt)
}

func TestListActiveSkipsTerminalSessions(t *testing.T) {
	store := New()
	ctx := context.Background()

	active := sampleSession(liveness.StateStepActive)
	completed := sampleSession(liveness.StateCompleted)
	disqualified := sampleSession(liveness.StateDisqualified)
	for _, s := range []*liveness.VerificationSession{active, completed, disqualified} {
		require.NoError(t, store.Save(ctx, s))
	}

	ids, err := store.ListActive(ctx)
	require.NoError(t, err)
	assert.Equal(t, []id.SessionID{active.ID}, ids)
}
