// Package config builds runtime configuration from the environment so main
// stays lean.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Server captures everything the liveness gateway needs at startup.
type Server struct {
	Addr          string
	JWTSigningKey string
	JWTIssuer     string

	// RedisURL selects the Redis session store when set; empty means the
	// in-memory store (single-instance deployments, development).
	RedisURL string

	// PostgresDSN selects the PostgreSQL audit log when set; empty
	// means the in-memory audit store.
	PostgresDSN string

	// KafkaBrokers enables the streaming audit sink when non-empty.
	KafkaBrokers []string
	KafkaTopic   string

	// DetectorBaseURL selects the remote detector backend when set; empty
	// wires the built-in static detectors.
	DetectorBaseURL string

	Liveness Liveness
}

// Liveness holds the orchestrator's timing and retry policy.
type Liveness struct {
	// Per-step capture windows. Voice captcha gets the longest window
	// because the subject has to read, compute, and speak.
	PresenceTimeout     time.Duration
	BlinkGazeTimeout    time.Duration
	VoiceCaptchaTimeout time.Duration

	// DetectorTimeout bounds a single detector call. Must stay strictly
	// below the shortest step window so deadline expiry remains
	// observable by the orchestrator.
	DetectorTimeout time.Duration

	// MaxAttempts is the retry budget per step (retries, not total tries).
	MaxAttempts int

	// SessionTTL bounds the whole attempt regardless of step progress.
	SessionTTL time.Duration

	// SweepInterval is how often abandoned sessions are expired. Keep it
	// below the shortest step window to bound leaked-session lifetime.
	SweepInterval time.Duration
}

// FromEnv builds a Server config from environment variables.
func FromEnv() Server {
	cfg := Server{
		Addr:            envOr("FACELIVE_ADDR", ":8080"),
		JWTSigningKey:   envOr("JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
		JWTIssuer:       os.Getenv("JWT_ISSUER"),
		RedisURL:        os.Getenv("REDIS_URL"),
		PostgresDSN:     os.Getenv("POSTGRES_DSN"),
		KafkaTopic:      envOr("KAFKA_AUDIT_TOPIC", "facelive.audit"),
		DetectorBaseURL: os.Getenv("DETECTOR_BASE_URL"),
		Liveness: Liveness{
			PresenceTimeout:     envDuration("LIVENESS_PRESENCE_TIMEOUT", 6*time.Second),
			BlinkGazeTimeout:    envDuration("LIVENESS_BLINK_TIMEOUT", 8*time.Second),
			VoiceCaptchaTimeout: envDuration("LIVENESS_VOICE_TIMEOUT", 10*time.Second),
			DetectorTimeout:     envDuration("LIVENESS_DETECTOR_TIMEOUT", 4*time.Second),
			MaxAttempts:         envInt("LIVENESS_MAX_ATTEMPTS", 1),
			SessionTTL:          envDuration("LIVENESS_SESSION_TTL", 120*time.Second),
			SweepInterval:       envDuration("LIVENESS_SWEEP_INTERVAL", 2*time.Second),
		},
	}

	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		for _, b := range strings.Split(brokers, ",") {
			if b = strings.TrimSpace(b); b != "" {
				cfg.KafkaBrokers = append(cfg.KafkaBrokers, b)
			}
		}
	}

	return cfg
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			return d
		}
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			return n
		}
	}
	return fallback
}
