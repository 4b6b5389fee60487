package handler

import (
	"encoding/base64"

	"facelive/internal/liveness"
	dErrors "facelive/pkg/domain-errors"
)

type startSessionRequest struct {
	Steps []string `json:"steps"`
}

func (r startSessionRequest) plan() []liveness.StepKind {
	plan := make([]liveness.StepKind, len(r.Steps))
	for i, s := range r.Steps {
		plan[i] = liveness.StepKind(s)
	}
	return plan
}

type submitCaptureRequest struct {
	// StepIndex is a pointer so a missing field is distinguishable from
	// step zero.
	StepIndex *int `json:"step_index"`

	// Media is base64-encoded; large payloads are expected to arrive as
	// references in Meta instead.
	Media     string            `json:"media,omitempty"`
	MediaType string            `json:"media_type,omitempty"`
	Meta      map[string]string `json:"meta,omitempty"`
}

func (r submitCaptureRequest) capture() (liveness.Capture, error) {
	capture := liveness.Capture{
		MediaType: r.MediaType,
		Meta:      r.Meta,
	}
	if r.Media != "" {
		media, err := base64.StdEncoding.DecodeString(r.Media)
		if err != nil {
			return liveness.Capture{}, dErrors.New(dErrors.CodeInvalidInput, "media must be base64 encoded")
		}
		capture.Media = media
	}
	return capture, nil
}
