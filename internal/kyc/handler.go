package kyc

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	id "facelive/pkg/domain"
	dErrors "facelive/pkg/domain-errors"
	"facelive/pkg/platform/httputil"
	"facelive/pkg/requestcontext"
)

// Handler exposes the KYC submission endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler creates a KYC Handler.
func NewHandler(service *Service, logger *slog.Logger) *Handler {
	return &Handler{logger: logger, service: service}
}

type submitRequest struct {
	SessionID string `json:"session_id"`
}

// Register mounts the KYC routes; authentication middleware is applied by
// the caller.
func (h *Handler) Register(r chi.Router) {
	r.Route("/kyc/submissions", func(r chi.Router) {
		r.Post("/", h.handleSubmit)
		r.Get("/{submissionID}", h.handleGet)
	})
}

func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	subject := requestcontext.SubjectID(ctx)
	if subject.IsNil() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInternal, "authentication context error"))
		return
	}

	req, ok := httputil.DecodeAndPrepare[submitRequest](w, r, h.logger, requestID)
	if !ok {
		return
	}
	sessionID, err := id.ParseSessionID(req.SessionID)
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid session id"))
		return
	}

	submission, err := h.service.Submit(ctx, subject, sessionID)
	if err != nil {
		h.logger.InfoContext(ctx, "kyc submission rejected",
			"request_id", requestID,
			"code", dErrors.CodeOf(err),
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, submission)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	subject := requestcontext.SubjectID(ctx)
	if subject.IsNil() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInternal, "authentication context error"))
		return
	}

	submissionID, err := id.ParseSubmissionID(chi.URLParam(r, "submissionID"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid submission id"))
		return
	}

	submission, err := h.service.Get(ctx, subject, submissionID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, submission)
}
