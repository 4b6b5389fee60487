// Package static provides an in-process detector for local development
// and single-binary deployments without a detection service. Observation
// kinds are judged from the capture's self-reported quality signal; the
// voice captcha compares the submitted transcript against the expected
// answer.
package static

import (
	"context"
	"strconv"
	"strings"

	"facelive/internal/liveness"
)

// DefaultThreshold is the minimum quality signal an observation capture
// must carry to pass.
const DefaultThreshold = 0.7

// Detector judges captures without calling out anywhere.
type Detector struct {
	threshold float64
}

// Option configures the Detector.
type Option func(*Detector)

// WithThreshold overrides the pass threshold for observation kinds.
func WithThreshold(threshold float64) Option {
	return func(d *Detector) { d.threshold = threshold }
}

// New constructs a static detector.
func New(opts ...Option) *Detector {
	d := &Detector{threshold: DefaultThreshold}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Verify implements liveness.Detector.
func (d *Detector) Verify(_ context.Context, challenge *liveness.Challenge, capture liveness.Capture) (liveness.Verdict, error) {
	if challenge != nil {
		return d.verifyAnswer(challenge, capture), nil
	}
	return d.verifyQuality(capture), nil
}

// verifyAnswer checks the transcript against the challenge answer. The
// transcript comes from the capture metadata when present, otherwise the
// raw media bytes are treated as text.
func (d *Detector) verifyAnswer(challenge *liveness.Challenge, capture liveness.Capture) liveness.Verdict {
	transcript := capture.Meta["transcript"]
	if transcript == "" {
		transcript = string(capture.Media)
	}
	transcript = strings.TrimSpace(transcript)

	if transcript == "" {
		return liveness.Verdict{
			Confidence: 0,
			Metadata:   map[string]any{"reason": "empty_transcript"},
		}
	}

	passed := transcript == challenge.ExpectedAnswer
	return liveness.Verdict{
		Passed:     passed,
		Confidence: 1,
		Metadata:   map[string]any{"transcript": transcript},
	}
}

// verifyQuality judges observation kinds from the capture's quality
// signal. Confidence mirrors the signal so downstream consumers see the
// raw value, not just the pass bit.
func (d *Detector) verifyQuality(capture liveness.Capture) liveness.Verdict {
	raw, ok := capture.Meta["quality"]
	if !ok {
		return liveness.Verdict{
			Confidence: 0,
			Metadata:   map[string]any{"reason": "missing_quality_signal"},
		}
	}

	quality, err := strconv.ParseFloat(raw, 64)
	if err != nil || quality < 0 || quality > 1 {
		return liveness.Verdict{
			Confidence: 0,
			Metadata:   map[string]any{"reason": "invalid_quality_signal"},
		}
	}

	return liveness.Verdict{
		Passed:     quality >= d.threshold,
		Confidence: quality,
		Metadata:   map[string]any{"quality": quality},
	}
}
