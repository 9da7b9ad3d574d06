package engine_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/duragraph/graphrt/checkpoint/memory"
	"github.com/duragraph/graphrt/config"
	"github.com/duragraph/graphrt/engine"
	"github.com/duragraph/graphrt/exec"
	"github.com/duragraph/graphrt/graph"
	"github.com/duragraph/graphrt/hil"
	"github.com/duragraph/graphrt/registry"
	"github.com/duragraph/graphrt/registry/examples"
	"github.com/duragraph/graphrt/resilience"
	"github.com/duragraph/graphrt/state"
)

func newTestEngine(t *testing.T) (*engine.Engine, *registry.Registry) {
	t.Helper()
	reg := registry.New()
	reg.Register("echo", examples.Echo)
	reg.Register("delay", examples.Delay)
	reg.RegisterCondition("always-true", func(ctx context.Context, st *state.State, params map[string]any) (bool, error) {
		return true, nil
	})

	rcfg := resilience.DefaultConfig(8)
	rcfg.RetryPolicy.MaxAttempts = 1
	mgr := resilience.NewManager("test-engine", rcfg)

	cfg := config.EngineConfig{MaxConcurrency: 4, DeadlockTimeout: time.Second, StreamBufferSize: 4, MaxRecursionDepth: 3}
	e := engine.New(reg, mgr, cfg, false)
	return e, reg
}

func linearGraph(t *testing.T) *graph.CompiledGraph {
	t.Helper()
	g := graph.New("linear")
	require.NoError(t, g.AddNode(graph.Node{ID: "step", Type: graph.NodeTypeAgent, Handler: "echo", Config: map[string]any{"input": "hi", "output_key": "out"}}))
	require.NoError(t, g.AddEdge(graph.Direct(graph.StartNodeID, "step")))
	require.NoError(t, g.AddEdge(graph.Direct("step", graph.EndNodeID)))
	cg, err := g.Compile()
	require.NoError(t, err)
	return cg
}

func TestEngine_InvokeRunsToCompletion(t *testing.T) {
	e, _ := newTestEngine(t)
	cg := linearGraph(t)

	final, err := e.Invoke(context.Background(), cg, map[string]any{"seed": 1})
	require.NoError(t, err)
	assert.Equal(t, "hi", final["out"])
	assert.Equal(t, 1, final["seed"])
}

func TestEngine_InvokeMarksCancelledStateOnContextCancellation(t *testing.T) {
	e, _ := newTestEngine(t)

	g := graph.New("slow")
	require.NoError(t, g.AddNode(graph.Node{ID: "slow", Type: graph.NodeTypeAgent, Handler: "delay", Config: map[string]any{"duration_ms": 200}}))
	require.NoError(t, g.AddEdge(graph.Direct(graph.StartNodeID, "slow")))
	require.NoError(t, g.AddEdge(graph.Direct("slow", graph.EndNodeID)))
	cg, err := g.Compile()
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	final, err := e.Invoke(ctx, cg, nil)
	require.Error(t, err)
	assert.True(t, final["cancelled"].(bool))
}

func TestEngine_StreamEmitsOneUpdatePerNodeThenFinal(t *testing.T) {
	e, _ := newTestEngine(t)
	cg := linearGraph(t)

	ch := e.Stream(context.Background(), cg, nil)

	var updates []engine.StateUpdate
	for u := range ch {
		updates = append(updates, u)
	}

	// __start__, step, __end__, then the Final update.
	require.Len(t, updates, 4)
	assert.Equal(t, "step", updates[1].NodeID)
	assert.True(t, updates[3].Final)
	require.NoError(t, updates[3].Err)
	assert.Equal(t, "hi", updates[3].State["out"])
}

func TestEngine_ExecuteWithInterruptsPausesAtConfiguredNode(t *testing.T) {
	e, _ := newTestEngine(t)

	g := graph.New("interrupt")
	require.NoError(t, g.AddNode(graph.Node{
		ID: "gate", Type: graph.NodeTypeAgent, Handler: "echo",
		Config:   map[string]any{"input": "gated", "output_key": "out"},
		Metadata: map[string]any{"interrupt": "before"},
	}))
	require.NoError(t, g.AddEdge(graph.Direct(graph.StartNodeID, "gate")))
	require.NoError(t, g.AddEdge(graph.Direct("gate", graph.EndNodeID)))
	cg, err := g.Compile()
	require.NoError(t, err)

	var seenNode string
	cb := func(ctx context.Context, h hil.InterruptHandle) (hil.Decision, error) {
		seenNode = h.NodeID
		return hil.Continue(), nil
	}

	final, err := e.ExecuteWithInterrupts(context.Background(), cg, nil, cb, time.Second)
	require.NoError(t, err)
	assert.Equal(t, "gate", seenNode)
	assert.Equal(t, "gated", final["out"])
}

func TestEngine_ExecuteWithInterruptsAbortsOnDecision(t *testing.T) {
	e, _ := newTestEngine(t)

	g := graph.New("interrupt-abort")
	require.NoError(t, g.AddNode(graph.Node{
		ID: "gate", Type: graph.NodeTypeAgent, Handler: "echo",
		Config:   map[string]any{"input": "gated", "output_key": "out"},
		Metadata: map[string]any{"interrupt": "before"},
	}))
	require.NoError(t, g.AddEdge(graph.Direct(graph.StartNodeID, "gate")))
	require.NoError(t, g.AddEdge(graph.Direct("gate", graph.EndNodeID)))
	cg, err := g.Compile()
	require.NoError(t, err)

	cb := func(ctx context.Context, h hil.InterruptHandle) (hil.Decision, error) {
		return hil.Abort("declined"), nil
	}

	_, err = e.ExecuteWithInterrupts(context.Background(), cg, nil, cb, time.Second)
	require.Error(t, err)
}

func TestEngine_ExecuteWithBreakpointsInterruptsOnHit(t *testing.T) {
	e, reg := newTestEngine(t)
	reg.RegisterCondition("always", func(ctx context.Context, st *state.State, params map[string]any) (bool, error) {
		return true, nil
	})
	cg := linearGraph(t)

	table := hil.NewBreakpointTable()
	table.Add("step", "always", true)

	called := false
	cb := func(ctx context.Context, h hil.InterruptHandle) (hil.Decision, error) {
		called = true
		assert.Equal(t, hil.ReasonBreakpointHit, h.Reason)
		return hil.Continue(), nil
	}

	_, err := e.ExecuteWithBreakpoints(context.Background(), cg, nil, table, cb, time.Second)
	require.NoError(t, err)
	assert.True(t, called)
}

func TestEngine_ExecuteWithInspectionCapturesBeforeAndAfter(t *testing.T) {
	e, _ := newTestEngine(t)
	cg := linearGraph(t)

	inspector := hil.NewStateInspector(10)
	final, err := e.ExecuteWithInspection(context.Background(), cg, nil, inspector, nil)
	require.NoError(t, err)
	assert.Equal(t, "hi", final["out"])

	history := inspector.History()
	// A before/after pair for each of __start__, step and __end__.
	require.Len(t, history, 6)
	assert.Equal(t, "before", history[2].Label)
	assert.Equal(t, "after", history[3].Label)
	assert.Equal(t, "step", history[3].NodeID)
}

func TestEngine_ExecuteWithFeedbackCanRedirect(t *testing.T) {
	e, _ := newTestEngine(t)

	g := graph.New("feedback")
	require.NoError(t, g.AddNode(graph.Node{ID: "a", Type: graph.NodeTypeAgent, Handler: "echo", Config: map[string]any{"input": "A", "output_key": "a_out"}}))
	require.NoError(t, g.AddNode(graph.Node{ID: "b", Type: graph.NodeTypeAgent, Handler: "echo", Config: map[string]any{"input": "B", "output_key": "b_out"}}))
	require.NoError(t, g.AddEdge(graph.Direct(graph.StartNodeID, "a")))
	require.NoError(t, g.AddEdge(graph.Direct("a", graph.EndNodeID)))
	require.NoError(t, g.AddEdge(graph.Direct("a", "b")))
	require.NoError(t, g.AddEdge(graph.Direct("b", graph.EndNodeID)))
	cg, err := g.Compile()
	require.NoError(t, err)

	cb := func(ctx context.Context, h hil.InterruptHandle) (hil.Decision, error) {
		if h.NodeID == "a" {
			return hil.Redirect("b"), nil
		}
		return hil.Continue(), nil
	}

	final, err := e.ExecuteWithFeedback(context.Background(), cg, nil, cb, time.Second)
	require.NoError(t, err)
	assert.Equal(t, "B", final["b_out"])
}

func TestEngine_ExecuteWithCheckpointingChainsParents(t *testing.T) {
	e, _ := newTestEngine(t)

	g := graph.New("checkpointed")
	require.NoError(t, g.AddNode(graph.Node{ID: "a", Type: graph.NodeTypeAgent, Handler: "echo", Config: map[string]any{"input": "A", "output_key": "a_out"}}))
	require.NoError(t, g.AddNode(graph.Node{ID: "b", Type: graph.NodeTypeAgent, Handler: "echo", Config: map[string]any{"input": "B", "output_key": "b_out"}}))
	require.NoError(t, g.AddEdge(graph.Direct(graph.StartNodeID, "a")))
	require.NoError(t, g.AddEdge(graph.Direct("a", "b")))
	require.NoError(t, g.AddEdge(graph.Direct("b", graph.EndNodeID)))
	cg, err := g.Compile()
	require.NoError(t, err)

	cp := memory.New()
	final, lastID, err := e.ExecuteWithCheckpointing(context.Background(), cg, nil, cp, "thread-1")
	require.NoError(t, err)
	assert.Equal(t, "B", final["b_out"])
	require.NotEmpty(t, lastID)

	metas, err := cp.List(context.Background(), "thread-1", 0)
	require.NoError(t, err)
	require.Len(t, metas, 4) // one per completion of __start__, a, b, __end__
	assert.Equal(t, lastID, metas[0].ID)
	assert.NotEmpty(t, metas[0].ParentID)
}

func TestEngine_ResumeFromReentersAtResolvedNode(t *testing.T) {
	e, _ := newTestEngine(t)

	g := graph.New("resume")
	require.NoError(t, g.AddNode(graph.Node{ID: "a", Type: graph.NodeTypeAgent, Handler: "echo", Config: map[string]any{"input": "A", "output_key": "a_out"}}))
	require.NoError(t, g.AddNode(graph.Node{ID: "b", Type: graph.NodeTypeAgent, Handler: "echo", Config: map[string]any{"input": "B", "output_key": "b_out"}}))
	require.NoError(t, g.AddEdge(graph.Direct(graph.StartNodeID, "a")))
	require.NoError(t, g.AddEdge(graph.Direct("a", "b")))
	require.NoError(t, g.AddEdge(graph.Direct("b", graph.EndNodeID)))
	cg, err := g.Compile()
	require.NoError(t, err)

	snap := hil.WorkflowSnapshot{
		ExecutionID:       "resume-thread",
		LastCompletedNode: "a",
		NextNode:          "b",
		State:             map[string]any{"a_out": "A"},
	}

	final, err := e.ResumeFrom(context.Background(), cg, snap, nil)
	require.NoError(t, err)
	assert.Equal(t, "A", final["a_out"])
	assert.Equal(t, "B", final["b_out"])
}

func TestEngine_RunSubgraphMapsInputAndOutput(t *testing.T) {
	e, _ := newTestEngine(t)

	sub := graph.New("sub")
	require.NoError(t, sub.AddNode(graph.Node{ID: "inner", Type: graph.NodeTypeAgent, Handler: "echo", Config: map[string]any{"output_key": "inner_out"}}))
	require.NoError(t, sub.AddEdge(graph.Direct(graph.StartNodeID, "inner")))
	require.NoError(t, sub.AddEdge(graph.Direct("inner", graph.EndNodeID)))
	subCG, err := sub.Compile()
	require.NoError(t, err)
	e.RegisterSubgraph("sub", subCG)

	parent := graph.New("parent")
	require.NoError(t, parent.AddNode(graph.Node{
		ID: "call", Type: graph.NodeTypeSubgraph, SubgraphRef: "sub",
		Metadata: map[string]any{
			"isolation": exec.Isolation{Kind: exec.IsolationShared},
		},
	}))
	require.NoError(t, parent.AddEdge(graph.Direct(graph.StartNodeID, "call")))
	require.NoError(t, parent.AddEdge(graph.Direct("call", graph.EndNodeID)))
	parentCG, err := parent.Compile()
	require.NoError(t, err)

	final, err := e.Invoke(context.Background(), parentCG, map[string]any{"seed": "s"})
	require.NoError(t, err)
	require.NotNil(t, final["inner_out"])
	innerOut, ok := final["inner_out"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "s", innerOut["seed"])
}

func TestEngine_RunSubgraphFailsBeyondMaxRecursionDepth(t *testing.T) {
	e, _ := newTestEngine(t)

	sub := graph.New("recursive")
	require.NoError(t, sub.AddNode(graph.Node{ID: "call", Type: graph.NodeTypeSubgraph, SubgraphRef: "recursive"}))
	require.NoError(t, sub.AddEdge(graph.Direct(graph.StartNodeID, "call")))
	require.NoError(t, sub.AddEdge(graph.Direct("call", graph.EndNodeID)))
	subCG, err := sub.Compile()
	require.NoError(t, err)
	e.RegisterSubgraph("recursive", subCG)

	_, err = e.Invoke(context.Background(), subCG, nil)
	require.Error(t, err)
}
