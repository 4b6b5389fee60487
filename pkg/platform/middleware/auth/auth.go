// Package auth provides bearer-token authentication middleware.
//
// User accounts and token issuance live in an external identity service;
// this middleware only validates the signed token and places the subject
// into the request context. Liveness endpoints refuse anonymous callers.
package auth

import (
	"log/slog"
	"net/http"
	"strings"

	id "facelive/pkg/domain"
	dErrors "facelive/pkg/domain-errors"
	"facelive/pkg/platform/httputil"
	"facelive/pkg/requestcontext"
)

// TokenValidator validates a bearer token and returns its claims.
type TokenValidator interface {
	ValidateToken(token string) (*Claims, error)
}

// Claims carries the identity asserted by a validated token.
type Claims struct {
	SubjectID id.SubjectID
}

// RequireAuth rejects requests without a valid bearer token and injects the
// authenticated subject into the context.
func RequireAuth(validator TokenValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || token == "" {
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "missing bearer token"))
				return
			}

			claims, err := validator.ValidateToken(token)
			if err != nil {
				logger.WarnContext(ctx, "rejected invalid token",
					"request_id", requestcontext.RequestID(ctx),
					"error", err,
				)
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "invalid token"))
				return
			}

			ctx = requestcontext.WithSubjectID(ctx, claims.SubjectID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
