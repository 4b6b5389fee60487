package http

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "facelive/pkg/domain"
	"facelive/pkg/platform/middleware/auth"
	"facelive/pkg/requestcontext"
)

type stubValidator struct {
	subject id.SubjectID
	err     error
}

func (v *stubValidator) ValidateToken(string) (*auth.Claims, error) {
	if v.err != nil {
		return nil, v.err
	}
	return &auth.Claims{SubjectID: v.subject}, nil
}

type stubChecker struct {
	name string
	err  error
}

func (c *stubChecker) Name() string { return c.name }

func (c *stubChecker) Healthy(context.Context) error { return c.err }

type echoFeature struct{}

func (echoFeature) Register(r chi.Router) {
	r.Get("/echo", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(requestcontext.SubjectID(r.Context()).String()))
	})
}

func newTestRouter(validator auth.TokenValidator, checkers ...HealthChecker) *chi.Mux {
	return NewRouter(Config{
		Logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		Validator: validator,
		Features:  []Registrar{echoFeature{}},
		Checkers:  checkers,
	})
}

func TestV1RequiresBearerToken(t *testing.T) {
	router := newTestRouter(&stubValidator{subject: id.NewSubjectID()})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/echo", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestV1RejectsInvalidToken(t *testing.T) {
	router := newTestRouter(&stubValidator{err: errors.New("expired")})

	req := httptest.NewRequest(http.MethodGet, "/v1/echo", nil)
	req.Header.Set("Authorization", "Bearer bad")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestV1InjectsSubject(t *testing.T) {
	subject := id.NewSubjectID()
	router := newTestRouter(&stubValidator{subject: subject})

	req := httptest.NewRequest(http.MethodGet, "/v1/echo", nil)
	req.Header.Set("Authorization", "Bearer good")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, subject.String(), w.Body.String())
}

func TestHealthz(t *testing.T) {
	router := newTestRouter(&stubValidator{}, &stubChecker{name: "redis"})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"ok"`)
}

func TestHealthzDegraded(t *testing.T) {
	router := newTestRouter(&stubValidator{},
		&stubChecker{name: "redis"},
		&stubChecker{name: "postgres", err: errors.New("connection refused")},
	)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"degraded"`)
	assert.Contains(t, w.Body.String(), "connection refused")
}

func TestMetricsEndpoint(t *testing.T) {
	router := newTestRouter(&stubValidator{})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}
