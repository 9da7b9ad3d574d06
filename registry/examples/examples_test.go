package examples_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/duragraph/graphrt/exec"
	"github.com/duragraph/graphrt/registry/examples"
	"github.com/duragraph/graphrt/state"
)

func TestEcho_UsesInputWhenPresent(t *testing.T) {
	st := state.New("t", 10)
	patch, outcome, err := examples.Echo(context.Background(), st, map[string]any{"input": "hi", "output_key": "out"}, &exec.RequestContext{})
	require.NoError(t, err)
	assert.Equal(t, exec.Ok, outcome.Kind)
	assert.Equal(t, "hi", patch["out"])
}

func TestEcho_FallsBackToStateSnapshot(t *testing.T) {
	st := state.New("t", 10)
	st.Set("x", 1, "test", "seed")

	patch, _, err := examples.Echo(context.Background(), st, map[string]any{}, &exec.RequestContext{})
	require.NoError(t, err)
	snap, ok := patch["output"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, 1, snap["x"])
}

func TestDelay_RespectsContextCancellation(t *testing.T) {
	st := state.New("t", 10)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := examples.Delay(ctx, st, map[string]any{"duration_ms": 50}, &exec.RequestContext{})
	require.Error(t, err)
}

func TestDelay_ZeroDurationReturnsImmediately(t *testing.T) {
	st := state.New("t", 10)
	start := time.Now()
	_, outcome, err := examples.Delay(context.Background(), st, nil, &exec.RequestContext{})
	require.NoError(t, err)
	assert.Equal(t, exec.Ok, outcome.Kind)
	assert.Less(t, time.Since(start), 20*time.Millisecond)
}

func TestCounter_IncrementsFromExistingState(t *testing.T) {
	st := state.New("t", 10)
	st.Set("count", 5, "test", "seed")

	patch, _, err := examples.Counter(context.Background(), st, map[string]any{}, &exec.RequestContext{})
	require.NoError(t, err)
	assert.Equal(t, 6, patch["count"])
}

func TestCounter_CustomKeyAndStep(t *testing.T) {
	st := state.New("t", 10)
	patch, _, err := examples.Counter(context.Background(), st, map[string]any{"key": "hits", "by": 3}, &exec.RequestContext{})
	require.NoError(t, err)
	assert.Equal(t, 3, patch["hits"])
}

func TestAlwaysFail_ReturnsFailOutcomeAndError(t *testing.T) {
	st := state.New("t", 10)
	_, outcome, err := examples.AlwaysFail(context.Background(), st, map[string]any{"reason": "boom"}, &exec.RequestContext{})
	require.Error(t, err)
	assert.Equal(t, exec.Fail, outcome.Kind)
	assert.Equal(t, "boom", err.Error())
}
