package liveness

import (
	"fmt"
	"math/rand/v2"
	"strconv"
)

// ChallengeGenerator produces step challenges. Stateless: every call is an
// independent draw, so a retried step always gets a fresh value and a
// replayed answer from an earlier prompt is worthless.
type ChallengeGenerator struct {
	intN func(n int) int
}

// NewChallengeGenerator returns a generator backed by the default PRNG.
func NewChallengeGenerator() *ChallengeGenerator {
	return &ChallengeGenerator{intN: rand.IntN}
}

// Requires reports whether the step kind needs a generated challenge.
// Presence and blink/gaze steps are pure observation; only the voice
// captcha carries content.
func (g *ChallengeGenerator) Requires(kind StepKind) bool {
	return kind == StepVoiceCaptcha
}

// Generate returns a challenge for the kind, or nil when none is needed.
//
// The voice captcha is a two-operand arithmetic prompt: a in [20,90],
// b in [0,10], operator + or -. Negative results take the absolute value
// and results above 99 are reduced mod 100, keeping the spoken answer to
// at most two digits.
func (g *ChallengeGenerator) Generate(kind StepKind) *Challenge {
	if kind != StepVoiceCaptcha {
		return nil
	}

	a := 20 + g.intN(71)
	b := g.intN(11)
	op := "+"
	answer := a + b
	if g.intN(2) == 1 {
		op = "-"
		answer = a - b
	}

	if answer < 0 {
		answer = -answer
	}
	if answer > 99 {
		answer = answer % 100
	}

	return &Challenge{
		Prompt:         fmt.Sprintf("%d %s %d", a, op, b),
		ExpectedAnswer: strconv.Itoa(answer),
	}
}
