//go:build integration

package redis_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	id "facelive/pkg/domain"
	"facelive/pkg/testutil/containers"

	"facelive/internal/liveness"
	redisstore "facelive/internal/liveness/store/redis"
)

type RedisStoreSuite struct {
	suite.Suite
	redis *containers.RedisContainer
	store *redisstore.Store
}

func TestRedisStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RedisStoreSuite))
}

func (s *RedisStoreSuite) SetupSuite() {
	s.redis = containers.NewRedisContainer(s.T())
	s.store = redisstore.New(s.redis.Client)
}

func (s *RedisStoreSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(context.Background()))
}

func makeSession(state liveness.SessionState) *liveness.VerificationSession {
	now := time.Now().UTC().Truncate(time.Millisecond)
	return &liveness.VerificationSession{
		ID:        id.NewSessionID(),
		SubjectID: id.NewSubjectID(),
		State:     state,
		Steps: []liveness.StepRecord{
			{
				Kind:      liveness.StepVoiceCaptcha,
				Status:    liveness.StatusAwaitingCapture,
				Challenge: &liveness.Challenge{Prompt: "47 - 5", ExpectedAnswer: "42"},
				Deadline:  now.Add(10 * time.Second),
			},
		},
		CreatedAt: now,
		ExpiresAt: now.Add(2 * time.Minute),
	}
}

func (s *RedisStoreSuite) TestSaveAndFindRoundTrip() {
	ctx := context.Background()
	session := makeSession(liveness.StateStepActive)

	s.Require().NoError(s.store.Save(ctx, session))

	got, err := s.store.FindByID(ctx, session.ID)
	s.Require().NoError(err)
	s.Equal(session.ID, got.ID)
	s.Equal(session.SubjectID, got.SubjectID)
	s.Equal(liveness.StateStepActive, got.State)
	s.Require().Len(got.Steps, 1)
	s.Equal("47 - 5", got.Steps[0].Challenge.Prompt)

	// The expected answer is excluded from the domain type's JSON; the
	// envelope must still bring it back intact.
	s.Equal("42", got.Steps[0].Challenge.ExpectedAnswer)
}

func (s *RedisStoreSuite) TestFindUnknownSession() {
	_, err := s.store.FindByID(context.Background(), id.NewSessionID())
	s.ErrorIs(err, liveness.ErrSessionNotFound)
}

func (s *RedisStoreSuite) TestListActiveTracksTerminalTransitions() {
	ctx := context.Background()
	session := makeSession(liveness.StateStepActive)
	s.Require().NoError(s.store.Save(ctx, session))

	active, err := s.store.ListActive(ctx)
	s.Require().NoError(err)
	s.Equal([]id.SessionID{session.ID}, active)

	session.State = liveness.StateCompleted
	s.Require().NoError(s.store.Save(ctx, session))

	active, err = s.store.ListActive(ctx)
	s.Require().NoError(err)
	s.Empty(active)

	// Terminal sessions remain readable for decision retrieval.
	got, err := s.store.FindByID(ctx, session.ID)
	s.Require().NoError(err)
	s.Equal(liveness.StateCompleted, got.State)
}

func (s *RedisStoreSuite) TestListActiveDropsCorruptEntries() {
	ctx := context.Background()
	s.Require().NoError(s.redis.Client.SAdd(ctx, "facelive:sessions:active", "not-a-uuid").Err())

	active, err := s.store.ListActive(ctx)
	s.Require().NoError(err)
	s.Empty(active)

	members, err := s.redis.Client.SMembers(ctx, "facelive:sessions:active").Result()
	s.Require().NoError(err)
	s.Empty(members)
}

func (s *RedisStoreSuite) TestSaveOverwritesSnapshot() {
	ctx := context.Background()
	session := makeSession(liveness.StateStepActive)
	s.Require().NoError(s.store.Save(ctx, session))

	session.Steps[0].Status = liveness.StatusPassed
	session.Steps[0].Verdict = &liveness.Verdict{Passed: true, Confidence: 0.93}
	s.Require().NoError(s.store.Save(ctx, session))

	got, err := s.store.FindByID(ctx, session.ID)
	s.Require().NoError(err)
	s.Equal(liveness.StatusPassed, got.Steps[0].Status)
	s.Require().NotNil(got.Steps[0].Verdict)
	s.InDelta(0.93, got.Steps[0].Verdict.Confidence, 1e-9)
}
