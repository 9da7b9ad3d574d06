package tracing_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"

	"github.com/duragraph/graphrt/exec"
	"github.com/duragraph/graphrt/graph"
	"github.com/duragraph/graphrt/scheduler"
	"github.com/duragraph/graphrt/state"
	"github.com/duragraph/graphrt/telemetry/tracing"
)

func newRecordingTracer(t *testing.T) (*tracetest.SpanRecorder, trace.Tracer) {
	t.Helper()
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	return sr, tp.Tracer("graphrt-test")
}

func TestStartInvocation_OpensRootSpanWithGraphAttribute(t *testing.T) {
	sr, tracer := newRecordingTracer(t)

	_, span := tracing.StartInvocation(context.Background(), tracer, "mygraph")
	tracing.EndInvocation(span, nil)

	spans := sr.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "graphrt.invoke", spans[0].Name())
}

func TestNodeHooks_OpensAndClosesOneSpanPerNode(t *testing.T) {
	sr, tracer := newRecordingTracer(t)
	hooks := tracing.NodeHooks(tracer)

	node := graph.Node{ID: "n1", Type: graph.NodeTypeAgent}
	st := state.New("t1", 10)
	ctx := context.Background()

	_, err := hooks.Before(ctx, node, st)
	require.NoError(t, err)

	res, err := hooks.After(ctx, node, st, state.Patch{}, exec.OkOutcome())
	require.NoError(t, err)
	assert.Equal(t, scheduler.HookContinue, res.Kind)

	spans := sr.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "graphrt.node", spans[0].Name())
}

func TestNodeHooks_MarksSpanErrorOnFailOutcome(t *testing.T) {
	sr, tracer := newRecordingTracer(t)
	hooks := tracing.NodeHooks(tracer)

	node := graph.Node{ID: "n1", Type: graph.NodeTypeTool}
	st := state.New("t1", 10)
	ctx := context.Background()

	_, err := hooks.Before(ctx, node, st)
	require.NoError(t, err)

	_, err = hooks.After(ctx, node, st, state.Patch{}, exec.FailOutcome(assertErr{}))
	require.NoError(t, err)

	spans := sr.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, codes.Error, spans[0].Status().Code)
}

type assertErr struct{}

func (assertErr) Error() string { return "boom" }
