package liveness

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace/noop"

	dErrors "facelive/pkg/domain-errors"
)

func TestAdapterProbeRecoversCircuit(t *testing.T) {
	calls := 0
	det := detectorFunc(func(context.Context, *Challenge, Capture) (Verdict, error) {
		calls++
		if calls <= 5 {
			return Verdict{}, errors.New("backend down")
		}
		return Verdict{Passed: true, Confidence: 0.9}, nil
	})

	adapter := NewDetectorAdapter(StepPresence, det, time.Second, nil, discardLogger(), noop.NewTracerProvider().Tracer("test"))
	adapter.probeInterval = 0 // every call while open is a probe

	for i := 0; i < 5; i++ {
		_, err := adapter.Verify(context.Background(), nil, Capture{})
		require.True(t, dErrors.HasCode(err, dErrors.CodeDetectorUnavailable))
	}
	require.True(t, adapter.breaker.IsOpen())

	// Two successful probes close the circuit again.
	for i := 0; i < 2; i++ {
		verdict, err := adapter.Verify(context.Background(), nil, Capture{})
		require.NoError(t, err)
		assert.True(t, verdict.Passed)
	}
	assert.False(t, adapter.breaker.IsOpen())
}
