package static

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"facelive/internal/liveness"
)

func TestVerifyQuality(t *testing.T) {
	tests := []struct {
		name       string
		meta       map[string]string
		passed     bool
		confidence float64
	}{
		{name: "above threshold", meta: map[string]string{"quality": "0.91"}, passed: true, confidence: 0.91},
		{name: "exactly at threshold", meta: map[string]string{"quality": "0.7"}, passed: true, confidence: 0.7},
		{name: "below threshold", meta: map[string]string{"quality": "0.42"}, passed: false, confidence: 0.42},
		{name: "missing signal", meta: nil, passed: false, confidence: 0},
		{name: "non numeric signal", meta: map[string]string{"quality": "great"}, passed: false, confidence: 0},
		{name: "out of range signal", meta: map[string]string{"quality": "1.5"}, passed: false, confidence: 0},
	}

	det := New()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			verdict, err := det.Verify(context.Background(), nil, liveness.Capture{Meta: tt.meta})
			require.NoError(t, err)
			assert.Equal(t, tt.passed, verdict.Passed)
			assert.InDelta(t, tt.confidence, verdict.Confidence, 1e-9)
		})
	}
}

func TestVerifyQualityCustomThreshold(t *testing.T) {
	det := New(WithThreshold(0.5))

	verdict, err := det.Verify(context.Background(), nil, liveness.Capture{Meta: map[string]string{"quality": "0.6"}})
	require.NoError(t, err)
	assert.True(t, verdict.Passed)
}

func TestVerifyAnswer(t *testing.T) {
	det := New()
	challenge := &liveness.Challenge{Prompt: "47 - 5", ExpectedAnswer: "42"}

	tests := []struct {
		name    string
		capture liveness.Capture
		passed  bool
	}{
		{name: "transcript in meta", capture: liveness.Capture{Meta: map[string]string{"transcript": "42"}}, passed: true},
		{name: "transcript in media", capture: liveness.Capture{Media: []byte("42")}, passed: true},
		{name: "surrounding whitespace ignored", capture: liveness.Capture{Media: []byte(" 42\n")}, passed: true},
		{name: "wrong answer", capture: liveness.Capture{Media: []byte("41")}, passed: false},
		{name: "empty capture", capture: liveness.Capture{}, passed: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			verdict, err := det.Verify(context.Background(), challenge, tt.capture)
			require.NoError(t, err)
			assert.Equal(t, tt.passed, verdict.Passed)
		})
	}
}
