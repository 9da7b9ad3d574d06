// Package engine implements the execution engine (spec §4.G): the
// public invoke/stream/interrupt/checkpoint/resume surface built on top
// of the scheduler, and the recursive subgraph dispatcher (spec §4.I)
// that closes the loop between exec.Executor and the engine itself.
// Grounded on the teacher's internal/infrastructure/graph.Engine —
// specifically its Execute/buildExecutionPlan/executePlan shape and its
// createSubgraphCallback wiring — generalized from the teacher's
// single, fixed execution mode to the spec's family of Invoke/Stream/
// ExecuteWith* variants, all sharing one underlying scheduler.Run.
package engine

import (
	"context"
	"sync"
	"time"

	"github.com/duragraph/graphrt/config"
	"github.com/duragraph/graphrt/exec"
	"github.com/duragraph/graphrt/graph"
	"github.com/duragraph/graphrt/ids"
	"github.com/duragraph/graphrt/registry"
	"github.com/duragraph/graphrt/resilience"
	"github.com/duragraph/graphrt/scheduler"
	"github.com/duragraph/graphrt/state"
	"go.opentelemetry.io/otel/trace"

	tgmetrics "github.com/duragraph/graphrt/telemetry/metrics"
	"github.com/duragraph/graphrt/telemetry/tracing"
)

// Engine drives graph executions. One Engine may run many executions
// concurrently; each call to Invoke/Stream/ExecuteWith* builds its own
// State and its own Scheduler (so per-execution Hooks never race
// against each other) but shares the Engine's Executor, registry, and
// subgraph table.
type Engine struct {
	registry *registry.Registry
	executor *exec.Executor

	maxConcurrency    int
	deadlockTimeout    time.Duration
	workStealing       bool
	historyLimit       int
	streamBuffer       int
	maxRecursionDepth  int

	subgraphsMu sync.RWMutex
	subgraphs   map[string]*graph.CompiledGraph

	metrics *tgmetrics.Metrics
	tracer  trace.Tracer
	events  Publisher
}

// New builds an Engine. reg supplies both the HandlerLookup and the
// ConditionLookup the executor and scheduler need; defaultResilience is
// the resilience.Manager applied to nodes that don't override it via
// metadata (spec §4.E).
func New(reg *registry.Registry, defaultResilience *resilience.Manager, cfg config.EngineConfig, workStealing bool) *Engine {
	e := &Engine{
		registry:          reg,
		maxConcurrency:    cfg.MaxConcurrency,
		deadlockTimeout:   cfg.DeadlockTimeout,
		workStealing:      workStealing,
		historyLimit:      1000,
		streamBuffer:      cfg.StreamBufferSize,
		maxRecursionDepth: cfg.MaxRecursionDepth,
		subgraphs:         make(map[string]*graph.CompiledGraph),
	}
	if e.streamBuffer <= 0 {
		e.streamBuffer = 32
	}
	if e.maxRecursionDepth <= 0 {
		e.maxRecursionDepth = 10
	}

	e.executor = exec.New(reg, reg, defaultResilience)
	e.executor.SetSubgraphRunner(e)
	return e
}

// RegisterSubgraph makes cg dispatchable from a Subgraph node whose
// SubgraphRef equals name (spec §4.I).
func (e *Engine) RegisterSubgraph(name string, cg *graph.CompiledGraph) {
	e.subgraphsMu.Lock()
	defer e.subgraphsMu.Unlock()
	e.subgraphs[name] = cg
}

// SetNodeResilience overrides the resilience.Manager used for a
// specific node id, passed through to the underlying Executor (spec
// §4.E: "may be overridden per-node via metadata").
func (e *Engine) SetNodeResilience(nodeID string, m *resilience.Manager) {
	e.executor.SetNodeResilience(nodeID, m)
}

func (e *Engine) newScheduler() *scheduler.Scheduler {
	return scheduler.New(e.executor, e.registry, scheduler.Config{
		MaxConcurrency:  e.maxConcurrency,
		DeadlockTimeout: e.deadlockTimeout,
		WorkStealing:    e.workStealing,
	})
}

// Invoke runs cg to completion synchronously, returning the final
// state as a plain map (spec §4.G: "invoke(graph, initial_state) →
// final_state").
func (e *Engine) Invoke(ctx context.Context, cg *graph.CompiledGraph, initialState map[string]any) (map[string]any, error) {
	st := e.seedState(initialState)
	threadID := st.ThreadID()

	var span trace.Span
	if e.tracer != nil {
		ctx, span = tracing.StartInvocation(ctx, e.tracer, cg.Name)
	}
	start := time.Now()
	if e.metrics != nil {
		e.metrics.RecordExecutionStart()
	}
	e.publishExecutionStarted(ctx, threadID, cg.Name)

	sched := e.newScheduler()
	sched.SetHooks(e.combineHooks(threadID, scheduler.Hooks{}))
	_, err := sched.Run(ctx, cg, st, e.newRequestContext())
	finalState, finalErr := e.finalize(ctx, st, err)

	status := "ok"
	if finalErr != nil {
		status = "error"
	}
	if e.metrics != nil {
		e.metrics.RecordExecutionEnd(cg.Name, status, time.Since(start))
	}
	e.publishExecutionCompleted(ctx, threadID, cg.Name, status, finalErr, time.Since(start))
	if span != nil {
		tracing.EndInvocation(span, finalErr)
	}
	return finalState, finalErr
}

func (e *Engine) seedState(initialState map[string]any) *state.State {
	st := state.New(ids.NewULID(), e.historyLimit)
	if len(initialState) > 0 {
		_, _ = st.Update(initialState, "invoke", "seed initial state")
	}
	return st
}

func (e *Engine) newRequestContext() *exec.RequestContext {
	return &exec.RequestContext{RequestID: ids.NewUUID()}
}

// finalize converts a completed (or failed) execution's State into the
// plain map Invoke/ExecuteWith* return, recording the spec's
// cancellation marker when the failure was ctx-driven (spec §4.G:
// "a cancelled invocation's final state carries cancelled=true").
func (e *Engine) finalize(ctx context.Context, st *state.State, runErr error) (map[string]any, error) {
	if runErr != nil && ctx.Err() != nil {
		st.Set("cancelled", true, "engine", "execution cancelled")
		return st.Snapshot(), ctx.Err()
	}
	if runErr != nil {
		return st.Snapshot(), runErr
	}
	return st.Snapshot(), nil
}

// overlay returns a shallow copy of base with patch's keys applied on
// top, used to show a hook callback "state as it would look with this
// node's patch included" before the scheduler's own barrier merge runs.
func overlay(base map[string]any, patch state.Patch) map[string]any {
	out := make(map[string]any, len(base)+len(patch))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range patch {
		out[k] = v
	}
	return out
}
