// Package http assembles the service's HTTP surface: middleware chain,
// authenticated v1 routes, health, and metrics.
package http

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"facelive/pkg/platform/httputil"
	"facelive/pkg/platform/middleware/auth"
	"facelive/pkg/platform/middleware/metadata"
	"facelive/pkg/platform/middleware/requesttime"
)

// Registrar mounts a feature's routes onto a router.
type Registrar interface {
	Register(r chi.Router)
}

// HealthChecker reports one dependency's health by name.
type HealthChecker interface {
	Name() string
	Healthy(ctx context.Context) error
}

// Config wires the router.
type Config struct {
	Logger    *slog.Logger
	Validator auth.TokenValidator

	// Features are mounted under the authenticated /v1 prefix.
	Features []Registrar

	// Checkers feed /healthz.
	Checkers []HealthChecker
}

// NewRouter builds the full route tree.
func NewRouter(cfg Config) *chi.Mux {
	r := chi.NewRouter()
	r.Use(chimiddleware.Recoverer)
	r.Use(metadata.Middleware)
	r.Use(requesttime.Middleware)

	r.Get("/healthz", healthHandler(cfg.Checkers))
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Use(auth.RequireAuth(cfg.Validator, cfg.Logger))
		for _, feature := range cfg.Features {
			feature.Register(r)
		}
	})

	return r
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

func healthHandler(checkers []HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := healthResponse{Status: "ok"}
		if len(checkers) > 0 {
			resp.Checks = make(map[string]string, len(checkers))
		}

		status := http.StatusOK
		for _, checker := range checkers {
			if err := checker.Healthy(r.Context()); err != nil {
				resp.Status = "degraded"
				resp.Checks[checker.Name()] = err.Error()
				status = http.StatusServiceUnavailable
				continue
			}
			resp.Checks[checker.Name()] = "ok"
		}

		httputil.WriteJSON(w, status, resp)
	}
}
