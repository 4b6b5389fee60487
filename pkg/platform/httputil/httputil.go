// Package httputil centralizes JSON response writing and domain error
// translation so every handler produces the same envelopes.
package httputil

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	dErrors "facelive/pkg/domain-errors"
)

// maxBodyBytes bounds request bodies; capture payloads are submitted as
// already-decoded references plus small metadata, never raw media.
const maxBodyBytes = 1 << 20

var statusByCode = map[dErrors.Code]int{
	dErrors.CodeInvalidInput:        http.StatusBadRequest,
	dErrors.CodeInvalidPlan:         http.StatusBadRequest,
	dErrors.CodeStepMismatch:        http.StatusConflict,
	dErrors.CodeSessionTerminal:     http.StatusConflict,
	dErrors.CodeSessionBusy:         http.StatusConflict,
	dErrors.CodeDeadlineExceeded:    http.StatusRequestTimeout,
	dErrors.CodeSessionExpired:      http.StatusGone,
	dErrors.CodeDetectorUnavailable: http.StatusBadGateway,
	dErrors.CodeAttemptsExhausted:   http.StatusConflict,
	dErrors.CodeUnauthorized:        http.StatusUnauthorized,
	dErrors.CodeNotFound:            http.StatusNotFound,
	dErrors.CodeConflict:            http.StatusConflict,
	dErrors.CodeInternal:            http.StatusInternalServerError,
}

// ToHTTPStatus maps a domain error code to its HTTP status.
func ToHTTPStatus(code dErrors.Code) int {
	if status, ok := statusByCode[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// WriteJSON writes v as a JSON response with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError translates a domain error into the standard JSON error
// envelope. Internal errors omit the description so implementation details
// never leak to clients.
func WriteError(w http.ResponseWriter, err error) {
	code := dErrors.CodeOf(err)
	body := map[string]string{"error": string(code)}

	var domainErr *dErrors.Error
	if code != dErrors.CodeInternal && errors.As(err, &domainErr) {
		body["error_description"] = domainErr.Message
	}

	WriteJSON(w, ToHTTPStatus(code), body)
}

// Decode parses a JSON request body into T, enforcing a size cap and
// rejecting trailing garbage. Returns a CodeInvalidInput error on any
// malformed body.
func Decode[T any](r *http.Request) (T, error) {
	var req T
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(&req); err != nil {
		return req, dErrors.New(dErrors.CodeInvalidInput, "invalid request body")
	}
	if dec.More() {
		return req, dErrors.New(dErrors.CodeInvalidInput, "unexpected trailing data")
	}
	return req, nil
}

// DecodeAndPrepare decodes the body and writes the error response itself on
// failure, logging the rejection. Handlers use the ok flag to bail out.
func DecodeAndPrepare[T any](w http.ResponseWriter, r *http.Request, logger *slog.Logger, requestID string) (T, bool) {
	req, err := Decode[T](r)
	if err != nil {
		if logger != nil {
			logger.WarnContext(r.Context(), "rejected malformed request body",
				"request_id", requestID,
				"path", r.URL.Path,
			)
		}
		WriteError(w, err)
		return req, false
	}
	return req, true
}
