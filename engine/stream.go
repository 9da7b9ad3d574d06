package engine

import (
	"context"
	"time"

	"github.com/duragraph/graphrt/exec"
	"github.com/duragraph/graphrt/graph"
	"github.com/duragraph/graphrt/scheduler"
	"github.com/duragraph/graphrt/state"
	"github.com/duragraph/graphrt/telemetry/tracing"
	"go.opentelemetry.io/otel/trace"
)

// StateUpdate is one item Stream emits: a single node's completion,
// or — with Final set — the execution's terminal outcome.
type StateUpdate struct {
	NodeID  string
	Patch   state.Patch
	Outcome exec.Outcome
	State   map[string]any

	Final bool
	Err   error
}

// Stream runs cg and emits one StateUpdate per node completion on the
// returned channel, finished by exactly one Final update (spec §4.G:
// "stream(graph, initial_state) → a finite, non-restartable sequence of
// state updates"). The channel is bounded by the engine's configured
// stream buffer; once it fills, node dispatch inside the scheduler
// blocks until the consumer drains it — the same backpressure a
// buffered Go channel gives any other bounded producer/consumer pair.
func (e *Engine) Stream(ctx context.Context, cg *graph.CompiledGraph, initialState map[string]any) <-chan StateUpdate {
	st := e.seedState(initialState)
	threadID := st.ThreadID()
	ch := make(chan StateUpdate, e.streamBuffer)

	sched := e.newScheduler()
	sched.SetHooks(e.combineHooks(threadID, scheduler.Hooks{
		After: func(ctx context.Context, node graph.Node, st *state.State, patch state.Patch, outcome exec.Outcome) (scheduler.HookResult, error) {
			ch <- StateUpdate{NodeID: node.ID, Patch: patch, Outcome: outcome, State: overlay(st.Snapshot(), patch)}
			return scheduler.HookResult{Kind: scheduler.HookContinue}, nil
		},
	}))

	var span trace.Span
	if e.tracer != nil {
		ctx, span = tracing.StartInvocation(ctx, e.tracer, cg.Name)
	}
	start := time.Now()
	if e.metrics != nil {
		e.metrics.RecordExecutionStart()
	}
	e.publishExecutionStarted(ctx, threadID, cg.Name)

	go func() {
		_, err := sched.Run(ctx, cg, st, e.newRequestContext())
		if err != nil && ctx.Err() != nil {
			st.Set("cancelled", true, "engine", "execution cancelled")
			err = ctx.Err()
		}
		status := "ok"
		if err != nil {
			status = "error"
		}
		if e.metrics != nil {
			e.metrics.RecordExecutionEnd(cg.Name, status, time.Since(start))
		}
		e.publishExecutionCompleted(ctx, threadID, cg.Name, status, err, time.Since(start))
		if span != nil {
			tracing.EndInvocation(span, err)
		}
		ch <- StateUpdate{Final: true, State: st.Snapshot(), Err: err}
		close(ch)
	}()

	return ch
}
