// Package handler exposes the liveness verification HTTP endpoints.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	id "facelive/pkg/domain"
	dErrors "facelive/pkg/domain-errors"
	"facelive/pkg/platform/httputil"
	"facelive/pkg/requestcontext"

	"facelive/internal/liveness"
)

// Service is the orchestrator surface the handler needs.
type Service interface {
	Start(ctx context.Context, subject id.SubjectID, plan []liveness.StepKind) (*liveness.VerificationSession, error)
	SubmitCapture(ctx context.Context, sessionID id.SessionID, stepIndex int, capture liveness.Capture) (*liveness.StepOutcome, error)
	GetStatus(ctx context.Context, sessionID id.SessionID) (*liveness.VerificationSession, error)
}

// Handler handles the liveness session endpoints.
type Handler struct {
	logger  *slog.Logger
	service Service
}

// New creates a liveness Handler.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{logger: logger, service: service}
}

// Register mounts the liveness routes. Authentication middleware is
// applied by the caller; every route here assumes a subject in context.
func (h *Handler) Register(r chi.Router) {
	r.Route("/liveness/sessions", func(r chi.Router) {
		r.Post("/", h.handleStartSession)
		r.Get("/{sessionID}", h.handleGetSession)
		r.Post("/{sessionID}/captures", h.handleSubmitCapture)
	})
}

func (h *Handler) handleStartSession(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	subject := requestcontext.SubjectID(ctx)
	if subject.IsNil() {
		h.logger.ErrorContext(ctx, "subject missing from context despite auth middleware",
			"request_id", requestID,
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeInternal, "authentication context error"))
		return
	}

	req, ok := httputil.DecodeAndPrepare[startSessionRequest](w, r, h.logger, requestID)
	if !ok {
		return
	}

	session, err := h.service.Start(ctx, subject, req.plan())
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeInvalidPlan) {
			h.logger.WarnContext(ctx, "rejected session plan",
				"request_id", requestID,
				"error", err.Error(),
			)
			httputil.WriteError(w, err)
			return
		}
		h.logger.ErrorContext(ctx, "failed to start verification session",
			"request_id", requestID,
			"error", err.Error(),
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeInternal, "failed to start session"))
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, toSessionResponse(session))
}

func (h *Handler) handleSubmitCapture(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	session, ok := h.ownedSession(w, r)
	if !ok {
		return
	}

	req, ok := httputil.DecodeAndPrepare[submitCaptureRequest](w, r, h.logger, requestID)
	if !ok {
		return
	}
	if req.StepIndex == nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "step_index is required"))
		return
	}
	capture, err := req.capture()
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	outcome, err := h.service.SubmitCapture(ctx, session.ID, *req.StepIndex, capture)
	if err != nil {
		// Submission errors are part of the protocol, not server faults;
		// pass their codes through.
		h.logger.InfoContext(ctx, "capture submission rejected",
			"request_id", requestID,
			"session_id", session.ID,
			"code", dErrors.CodeOf(err),
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, toOutcomeResponse(outcome))
}

func (h *Handler) handleGetSession(w http.ResponseWriter, r *http.Request) {
	session, ok := h.ownedSession(w, r)
	if !ok {
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toSessionResponse(session))
}

// ownedSession resolves the path session ID and enforces that it belongs
// to the authenticated subject. Foreign sessions come back as not found
// so their existence is never revealed.
func (h *Handler) ownedSession(w http.ResponseWriter, r *http.Request) (*liveness.VerificationSession, bool) {
	ctx := r.Context()

	sessionID, err := id.ParseSessionID(chi.URLParam(r, "sessionID"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid session id"))
		return nil, false
	}

	session, err := h.service.GetStatus(ctx, sessionID)
	if err != nil {
		httputil.WriteError(w, err)
		return nil, false
	}

	subject := requestcontext.SubjectID(ctx)
	if subject.IsNil() || session.SubjectID != subject {
		httputil.WriteError(w, dErrors.New(dErrors.CodeNotFound, "session not found"))
		return nil, false
	}
	return session, true
}
