package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	id "facelive/pkg/domain"
	dErrors "facelive/pkg/domain-errors"
	"facelive/pkg/requestcontext"

	"facelive/internal/liveness"
	"facelive/internal/liveness/handler/mocks"
)

//go:generate mockgen -source=handler.go -destination=mocks/handler-mocks.go -package=mocks Service
type LivenessHandlerSuite struct {
	suite.Suite
	subject id.SubjectID
	base    time.Time
}

func (s *LivenessHandlerSuite) SetupSuite() {
	s.subject = id.NewSubjectID()
	s.base = time.Date(2026, 1, 2, 15, 0, 0, 0, time.UTC)
}

func TestLivenessHandlerSuite(t *testing.T) {
	suite.Run(t, new(LivenessHandlerSuite))
}

func newTestHandler(t *testing.T) (*chi.Mux, *mocks.MockService) {
	t.Helper()
	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)
	mockService := mocks.NewMockService(ctrl)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	r := chi.NewRouter()
	New(mockService, logger).Register(r)
	return r, mockService
}

func (s *LivenessHandlerSuite) authedRequest(method, target string, body any) *http.Request {
	var buf bytes.Buffer
	if body != nil {
		require.NoError(s.T(), json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, target, &buf)
	return req.WithContext(requestcontext.WithSubjectID(context.Background(), s.subject))
}

func (s *LivenessHandlerSuite) sampleSession() *liveness.VerificationSession {
	return &liveness.VerificationSession{
		ID:         id.NewSessionID(),
		SubjectID:  s.subject,
		State:      liveness.StateStepActive,
		ActiveStep: 0,
		Steps: []liveness.StepRecord{
			{
				Kind:      liveness.StepVoiceCaptcha,
				Status:    liveness.StatusAwaitingCapture,
				Challenge: &liveness.Challenge{Prompt: "47 - 5", ExpectedAnswer: "42"},
				Deadline:  s.base.Add(10 * time.Second),
			},
		},
		CreatedAt: s.base,
		ExpiresAt: s.base.Add(2 * time.Minute),
	}
}

func (s *LivenessHandlerSuite) TestStartSession() {
	router, mockService := newTestHandler(s.T())
	session := s.sampleSession()
	mockService.EXPECT().
		Start(gomock.Any(), s.subject, []liveness.StepKind{liveness.StepVoiceCaptcha}).
		Return(session, nil)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, s.authedRequest(http.MethodPost, "/liveness/sessions", startSessionRequest{Steps: []string{"voice_captcha"}}))

	assert.Equal(s.T(), http.StatusCreated, w.Code)
	var resp sessionResponse
	require.NoError(s.T(), json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(s.T(), session.ID.String(), resp.ID)
	assert.Equal(s.T(), "step_active", resp.State)
	require.Len(s.T(), resp.Steps, 1)
	assert.Equal(s.T(), "47 - 5", resp.Steps[0].Prompt)
	assert.NotContains(s.T(), w.Body.String(), "42", "expected answer must never reach the client")
}

func (s *LivenessHandlerSuite) TestStartSessionInvalidPlan() {
	router, mockService := newTestHandler(s.T())
	mockService.EXPECT().
		Start(gomock.Any(), s.subject, gomock.Any()).
		Return(nil, dErrors.New(dErrors.CodeInvalidPlan, "unknown step kind"))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, s.authedRequest(http.MethodPost, "/liveness/sessions", startSessionRequest{Steps: []string{"iris_scan"}}))

	assert.Equal(s.T(), http.StatusBadRequest, w.Code)
	assert.Contains(s.T(), w.Body.String(), "invalid_plan")
}

func (s *LivenessHandlerSuite) TestStartSessionWithoutSubject() {
	router, _ := newTestHandler(s.T())

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/liveness/sessions", bytes.NewReader([]byte(`{"steps":["presence"]}`)))
	router.ServeHTTP(w, req)

	assert.Equal(s.T(), http.StatusInternalServerError, w.Code)
}

func (s *LivenessHandlerSuite) TestSubmitCapture() {
	router, mockService := newTestHandler(s.T())
	session := s.sampleSession()
	mockService.EXPECT().GetStatus(gomock.Any(), session.ID).Return(session, nil)
	mockService.EXPECT().
		SubmitCapture(gomock.Any(), session.ID, 0, liveness.Capture{
			Media:     []byte("42"),
			MediaType: "audio/wav",
		}).
		Return(&liveness.StepOutcome{
			Result:  liveness.OutcomeDone,
			Verdict: &liveness.Verdict{Passed: true, Confidence: 0.93},
			Decision: &liveness.FinalDecision{
				Accepted:  true,
				Reasons:   []liveness.DecisionReason{},
				DecidedAt: s.base.Add(5 * time.Second),
			},
		}, nil)

	zero := 0
	w := httptest.NewRecorder()
	router.ServeHTTP(w, s.authedRequest(http.MethodPost, "/liveness/sessions/"+session.ID.String()+"/captures", submitCaptureRequest{
		StepIndex: &zero,
		Media:     "NDI=", // "42"
		MediaType: "audio/wav",
	}))

	assert.Equal(s.T(), http.StatusOK, w.Code)
	var resp outcomeResponse
	require.NoError(s.T(), json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(s.T(), "done", resp.Result)
	require.NotNil(s.T(), resp.Decision)
	assert.True(s.T(), resp.Decision.Accepted)
}

func (s *LivenessHandlerSuite) TestSubmitCaptureProtocolErrors() {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{name: "step mismatch", err: dErrors.New(dErrors.CodeStepMismatch, "active step is 1"), wantStatus: http.StatusConflict},
		{name: "deadline exceeded", err: dErrors.New(dErrors.CodeDeadlineExceeded, "step deadline passed"), wantStatus: http.StatusRequestTimeout},
		{name: "session expired", err: dErrors.New(dErrors.CodeSessionExpired, "session lifetime elapsed"), wantStatus: http.StatusGone},
		{name: "session busy", err: dErrors.New(dErrors.CodeSessionBusy, "another submission in flight"), wantStatus: http.StatusConflict},
		{name: "detector unavailable", err: dErrors.New(dErrors.CodeDetectorUnavailable, "circuit open"), wantStatus: http.StatusBadGateway},
	}

	for _, tt := range tests {
		s.Run(tt.name, func() {
			router, mockService := newTestHandler(s.T())
			session := s.sampleSession()
			mockService.EXPECT().GetStatus(gomock.Any(), session.ID).Return(session, nil)
			mockService.EXPECT().
				SubmitCapture(gomock.Any(), session.ID, 0, gomock.Any()).
				Return(nil, tt.err)

			zero := 0
			w := httptest.NewRecorder()
			router.ServeHTTP(w, s.authedRequest(http.MethodPost, "/liveness/sessions/"+session.ID.String()+"/captures", submitCaptureRequest{StepIndex: &zero}))

			assert.Equal(s.T(), tt.wantStatus, w.Code)
		})
	}
}

func (s *LivenessHandlerSuite) TestSubmitCaptureRequiresStepIndex() {
	router, mockService := newTestHandler(s.T())
	session := s.sampleSession()
	mockService.EXPECT().GetStatus(gomock.Any(), session.ID).Return(session, nil)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, s.authedRequest(http.MethodPost, "/liveness/sessions/"+session.ID.String()+"/captures", map[string]any{
		"media_type": "audio/wav",
	}))

	assert.Equal(s.T(), http.StatusBadRequest, w.Code)
	assert.Contains(s.T(), w.Body.String(), "step_index")
}

func (s *LivenessHandlerSuite) TestSubmitCaptureRejectsBadBase64() {
	router, mockService := newTestHandler(s.T())
	session := s.sampleSession()
	mockService.EXPECT().GetStatus(gomock.Any(), session.ID).Return(session, nil)

	zero := 0
	w := httptest.NewRecorder()
	router.ServeHTTP(w, s.authedRequest(http.MethodPost, "/liveness/sessions/"+session.ID.String()+"/captures", submitCaptureRequest{
		StepIndex: &zero,
		Media:     "not base64!!",
	}))

	assert.Equal(s.T(), http.StatusBadRequest, w.Code)
}

func (s *LivenessHandlerSuite) TestGetSession() {
	router, mockService := newTestHandler(s.T())
	session := s.sampleSession()
	mockService.EXPECT().GetStatus(gomock.Any(), session.ID).Return(session, nil)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, s.authedRequest(http.MethodGet, "/liveness/sessions/"+session.ID.String(), nil))

	assert.Equal(s.T(), http.StatusOK, w.Code)
	assert.NotContains(s.T(), w.Body.String(), "expected_answer")
}

func (s *LivenessHandlerSuite) TestGetSessionHidesForeignSessions() {
	router, mockService := newTestHandler(s.T())
	session := s.sampleSession()
	session.SubjectID = id.NewSubjectID() // someone else's

	mockService.EXPECT().GetStatus(gomock.Any(), session.ID).Return(session, nil)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, s.authedRequest(http.MethodGet, "/liveness/sessions/"+session.ID.String(), nil))

	assert.Equal(s.T(), http.StatusNotFound, w.Code)
}

func (s *LivenessHandlerSuite) TestGetSessionInvalidID() {
	router, _ := newTestHandler(s.T())

	w := httptest.NewRecorder()
	router.ServeHTTP(w, s.authedRequest(http.MethodGet, "/liveness/sessions/not-a-uuid", nil))

	assert.Equal(s.T(), http.StatusBadRequest, w.Code)
}
