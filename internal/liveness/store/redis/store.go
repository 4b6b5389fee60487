// Package redis implements the session store on Redis for multi-instance
// deployments. Sessions are stored as JSON with a TTL slightly past the
// session's expires_at, and active session IDs are tracked in a set for
// the expiry sweep.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	id "facelive/pkg/domain"

	"facelive/internal/liveness"
)

const (
	sessionKeyPrefix = "facelive:session:"
	activeSetKey     = "facelive:sessions:active"
)

// Store is a Redis-backed SessionStore.
type Store struct {
	client *redis.Client

	// retention keeps terminal sessions readable after expires_at so
	// clients can fetch their final decision.
	retention time.Duration
}

// Option configures the Store.
type Option func(*Store)

// WithRetention overrides how long sessions outlive their expires_at.
func WithRetention(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.retention = d
		}
	}
}

// New constructs a Redis session store.
func New(client *redis.Client, opts ...Option) *Store {
	s := &Store{client: client, retention: time.Hour}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// envelope carries the session plus the challenge answers, which are
// excluded from the domain type's JSON so they can never reach a client;
// persistence must keep them or retries would be unverifiable.
type envelope struct {
	Session *liveness.VerificationSession `json:"session"`
	Answers map[int]string                `json:"answers,omitempty"`
}

func (s *Store) Save(ctx context.Context, session *liveness.VerificationSession) error {
	env := envelope{Session: session}
	for i := range session.Steps {
		if ch := session.Steps[i].Challenge; ch != nil && ch.ExpectedAnswer != "" {
			if env.Answers == nil {
				env.Answers = make(map[int]string)
			}
			env.Answers[i] = ch.ExpectedAnswer
		}
	}

	payload, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}

	ttl := time.Until(session.ExpiresAt) + s.retention
	if ttl <= 0 {
		ttl = s.retention
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, sessionKeyPrefix+session.ID.String(), payload, ttl)
	if session.Terminal() {
		pipe.SRem(ctx, activeSetKey, session.ID.String())
	} else {
		pipe.SAdd(ctx, activeSetKey, session.ID.String())
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

func (s *Store) FindByID(ctx context.Context, sessionID id.SessionID) (*liveness.VerificationSession, error) {
	payload, err := s.client.Get(ctx, sessionKeyPrefix+sessionID.String()).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, liveness.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}

	var env envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return nil, fmt.Errorf("unmarshal session: %w", err)
	}
	for i, answer := range env.Answers {
		if i >= 0 && i < len(env.Session.Steps) && env.Session.Steps[i].Challenge != nil {
			env.Session.Steps[i].Challenge.ExpectedAnswer = answer
		}
	}
	return env.Session, nil
}

func (s *Store) ListActive(ctx context.Context) ([]id.SessionID, error) {
	members, err := s.client.SMembers(ctx, activeSetKey).Result()
	if err != nil {
		return nil, fmt.Errorf("list active sessions: %w", err)
	}

	var active []id.SessionID
	for _, member := range members {
		sid, err := id.ParseSessionID(member)
		if err != nil {
			// Stale or corrupt entry; drop it rather than fail the sweep.
			s.client.SRem(ctx, activeSetKey, member)
			continue
		}
		active = append(active, sid)
	}
	return active, nil
}
