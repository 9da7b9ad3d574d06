package metrics_test

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/duragraph/graphrt/checkpoint"
	"github.com/duragraph/graphrt/checkpoint/memory"
	"github.com/duragraph/graphrt/exec"
	"github.com/duragraph/graphrt/graph"
	"github.com/duragraph/graphrt/scheduler"
	"github.com/duragraph/graphrt/state"
	"github.com/duragraph/graphrt/telemetry/metrics"
)

func TestMetrics_RecordNodeIncrementsCountersAndHistogram(t *testing.T) {
	m := metrics.New("graphrt_test_node")

	m.RecordNode("agent", "ok", 10*time.Millisecond)
	m.RecordNode("agent", "ok", 20*time.Millisecond)

	assert.Equal(t, float64(2), testutil.ToFloat64(m.NodeExecutionsTotal.WithLabelValues("agent", "ok")))
}

func TestMetrics_RecordNodeErrorIncrementsBothCounters(t *testing.T) {
	m := metrics.New("graphrt_test_nodeerr")

	m.RecordNodeError("tool", "transient_io")

	assert.Equal(t, float64(1), testutil.ToFloat64(m.NodeErrorsTotal.WithLabelValues("tool", "transient_io")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.ErrorsTotal.WithLabelValues("transient_io")))
}

func TestMetrics_RecordExecutionEndTracksActiveGauge(t *testing.T) {
	m := metrics.New("graphrt_test_exec")

	m.RecordExecutionStart()
	assert.Equal(t, float64(1), testutil.ToFloat64(m.ExecutionsActive))

	m.RecordExecutionEnd("mygraph", "ok", 5*time.Millisecond)
	assert.Equal(t, float64(0), testutil.ToFloat64(m.ExecutionsActive))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.ExecutionsTotal.WithLabelValues("mygraph", "ok")))
}

func TestMetrics_RecordHTTPRequest(t *testing.T) {
	m := metrics.New("graphrt_test_http")

	m.RecordHTTPRequest("POST", "/graphs/:name/invoke", 200, 15*time.Millisecond)

	assert.Equal(t, float64(1), testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("POST", "/graphs/:name/invoke", "200")))
}

func TestMetrics_RecordBreakerTransition(t *testing.T) {
	m := metrics.New("graphrt_test_breaker")

	m.RecordBreakerTransition("checkpointer", "closed", "open")

	assert.Equal(t, float64(1), testutil.ToFloat64(m.BreakerTransitionsTotal.WithLabelValues("checkpointer", "closed", "open")))
}

func TestNodeHooks_RecordsOneObservationPerNodeCompletion(t *testing.T) {
	m := metrics.New("graphrt_test_hooks")
	hooks := metrics.NodeHooks(m)

	node := graph.Node{ID: "n1", Type: graph.NodeTypeAgent}
	st := state.New("t1", 10)

	_, err := hooks.Before(context.Background(), node, st)
	require.NoError(t, err)

	res, err := hooks.After(context.Background(), node, st, state.Patch{"out": "x"}, exec.OkOutcome())
	require.NoError(t, err)
	assert.Equal(t, scheduler.HookContinue, res.Kind)

	assert.Equal(t, float64(1), testutil.ToFloat64(m.NodeExecutionsTotal.WithLabelValues("agent", "ok")))
}

func TestNodeHooks_RecordsErrorOnFailOutcome(t *testing.T) {
	m := metrics.New("graphrt_test_hooks_fail")
	hooks := metrics.NodeHooks(m)

	node := graph.Node{ID: "n1", Type: graph.NodeTypeTool}
	st := state.New("t1", 10)

	_, err := hooks.Before(context.Background(), node, st)
	require.NoError(t, err)

	_, err = hooks.After(context.Background(), node, st, state.Patch{}, exec.FailOutcome(assertableErr{}))
	require.NoError(t, err)

	assert.Equal(t, float64(1), testutil.ToFloat64(m.NodeExecutionsTotal.WithLabelValues("tool", "fail")))
}

type assertableErr struct{}

func (assertableErr) Error() string { return "boom" }

func TestInstrumentCheckpointer_RecordsSaveAndLoad(t *testing.T) {
	m := metrics.New("graphrt_test_cp")
	driver := memory.New()
	instrumented := metrics.InstrumentCheckpointer(driver, m)

	id, err := instrumented.Save(context.Background(), "thread-1", map[string]any{"a": 1}, nil, "")
	require.NoError(t, err)
	assert.Equal(t, float64(1), testutil.ToFloat64(m.CheckpointOpsTotal.WithLabelValues("save", "ok")))

	rec, err := instrumented.Load(context.Background(), "thread-1", id)
	require.NoError(t, err)
	assert.Equal(t, id, rec.ID)
	assert.Equal(t, float64(1), testutil.ToFloat64(m.CheckpointOpsTotal.WithLabelValues("load", "ok")))

	var _ checkpoint.Checkpointer = instrumented
}

func TestInstrumentCheckpointer_RecordsErrorStatusOnLoadMiss(t *testing.T) {
	m := metrics.New("graphrt_test_cp_err")
	driver := memory.New()
	instrumented := metrics.InstrumentCheckpointer(driver, m)

	_, err := instrumented.Load(context.Background(), "missing-thread", "")
	require.Error(t, err)
	assert.Equal(t, float64(1), testutil.ToFloat64(m.CheckpointOpsTotal.WithLabelValues("load", "error")))
}
