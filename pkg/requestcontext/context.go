// Package requestcontext provides HTTP-independent context accessors for
// request-scoped values.
//
// Middleware sets these values; services and the orchestrator read them.
// Keeping this package free of net/http means domain code can consume
// request metadata without pulling in transport concerns.
//
// The request-scoped clock (Now/WithTime) matters here more than usual:
// deadline checks in the liveness orchestrator read time through the
// context so a whole submission is judged against one instant, and tests
// can pin the clock exactly at or just past a step deadline.
package requestcontext

import (
	"context"
	"time"

	id "facelive/pkg/domain"
)

type (
	subjectIDKey   struct{}
	requestIDKey   struct{}
	requestTimeKey struct{}
	clientIPKey    struct{}
)

// SubjectID retrieves the authenticated subject from the context.
// Returns the zero value if not set.
func SubjectID(ctx context.Context) id.SubjectID {
	if sub, ok := ctx.Value(subjectIDKey{}).(id.SubjectID); ok {
		return sub
	}
	return id.SubjectID{}
}

// WithSubjectID injects the authenticated subject into the context.
func WithSubjectID(ctx context.Context, sub id.SubjectID) context.Context {
	return context.WithValue(ctx, subjectIDKey{}, sub)
}

// RequestID retrieves the correlation ID from the context.
func RequestID(ctx context.Context) string {
	if reqID, ok := ctx.Value(requestIDKey{}).(string); ok {
		return reqID
	}
	return ""
}

// WithRequestID injects a correlation ID into the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, requestID)
}

// ClientIP retrieves the client IP address from the context.
func ClientIP(ctx context.Context) string {
	if ip, ok := ctx.Value(clientIPKey{}).(string); ok {
		return ip
	}
	return ""
}

// WithClientIP injects a client IP address into the context.
func WithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, clientIPKey{}, ip)
}

// Now retrieves the request-scoped time from the context.
// Falls back to time.Now() for non-HTTP contexts (sweeper, tests without
// an injected clock).
func Now(ctx context.Context) time.Time {
	if t, ok := ctx.Value(requestTimeKey{}).(time.Time); ok {
		return t
	}
	return time.Now()
}

// WithTime injects a specific time into a context. Used by the request-time
// middleware and by tests that need a deterministic clock.
func WithTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, requestTimeKey{}, t)
}
