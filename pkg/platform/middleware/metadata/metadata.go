// Package metadata extracts per-request client metadata (correlation ID,
// client IP) into the context for handlers, services, and audit events.
package metadata

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"facelive/pkg/requestcontext"
)

// RequestIDHeader is honored when the caller supplies its own correlation
// ID; otherwise one is generated.
const RequestIDHeader = "X-Request-Id"

// Middleware attaches a request ID and client IP to the context and echoes
// the request ID back in the response headers.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(RequestIDHeader)
		if requestID == "" || len(requestID) > 128 {
			requestID = uuid.NewString()
		}

		ctx := r.Context()
		ctx = requestcontext.WithRequestID(ctx, requestID)
		ctx = requestcontext.WithClientIP(ctx, clientIPFromRequest(r))

		w.Header().Set(RequestIDHeader, requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// clientIPFromRequest extracts the real client IP, handling proxies.
func clientIPFromRequest(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		// First entry is the original client
		if idx := strings.Index(xff, ","); idx != -1 {
			return strings.TrimSpace(xff[:idx])
		}
		return strings.TrimSpace(xff)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}
	if addr := r.RemoteAddr; addr != "" {
		// RemoteAddr is "ip:port" (or "[::1]:port" for IPv6)
		if idx := strings.LastIndex(addr, ":"); idx != -1 {
			return addr[:idx]
		}
		return addr
	}
	return "unknown"
}
