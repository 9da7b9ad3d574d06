package engine

import (
	"context"
	"time"

	"github.com/duragraph/graphrt/exec"
	"github.com/duragraph/graphrt/graph"
	"github.com/duragraph/graphrt/hil"
	"github.com/duragraph/graphrt/ids"
	"github.com/duragraph/graphrt/scheduler"
	"github.com/duragraph/graphrt/state"
)

// ExecuteWithInterrupts runs cg like Invoke, but pauses at every node
// whose configured InterruptMode matches Before/After and blocks on
// cb's returned Decision before proceeding (spec §4.H). timeout <= 0
// means wait indefinitely for cb.
func (e *Engine) ExecuteWithInterrupts(ctx context.Context, cg *graph.CompiledGraph, initialState map[string]any, cb hil.Callback, timeout time.Duration) (map[string]any, error) {
	executionID := ids.NewULID()
	st := state.New(executionID, e.historyLimit)
	if len(initialState) > 0 {
		if _, err := st.Update(initialState, "invoke", "seed initial state"); err != nil {
			return nil, err
		}
	}

	sched := e.newScheduler()
	sched.SetHooks(e.combineHooks(executionID, scheduler.Hooks{
		Before: func(ctx context.Context, node graph.Node, st *state.State) (scheduler.HookResult, error) {
			if node.Interrupt() != graph.InterruptBefore {
				return scheduler.HookResult{Kind: scheduler.HookContinue}, nil
			}
			handle := hil.NewInterruptHandle(executionID, node.ID, graph.InterruptBefore, hil.ReasonInputNeeded, st.Snapshot())
			decision, err := hil.AwaitDecision(ctx, cb, handle, timeout)
			if err != nil {
				return scheduler.HookResult{}, err
			}
			return applyDecisionBefore(decision, st)
		},
		After: func(ctx context.Context, node graph.Node, st *state.State, patch state.Patch, outcome exec.Outcome) (scheduler.HookResult, error) {
			if node.Interrupt() != graph.InterruptAfter {
				return scheduler.HookResult{Kind: scheduler.HookContinue}, nil
			}
			handle := hil.NewInterruptHandle(executionID, node.ID, graph.InterruptAfter, hil.ReasonInputNeeded, overlay(st.Snapshot(), patch))
			decision, err := hil.AwaitDecision(ctx, cb, handle, timeout)
			if err != nil {
				return scheduler.HookResult{}, err
			}
			return applyDecisionAfter(decision, patch)
		},
	}))

	_, err := sched.Run(ctx, cg, st, &exec.RequestContext{RequestID: executionID})
	return e.finalize(ctx, st, err)
}

// ExecuteWithBreakpoints runs cg, evaluating table's conditions on
// entry to every node and pausing for cb's Decision whenever a hit
// breakpoint requests an interrupt (spec §4.H).
func (e *Engine) ExecuteWithBreakpoints(ctx context.Context, cg *graph.CompiledGraph, initialState map[string]any, table *hil.BreakpointTable, cb hil.Callback, timeout time.Duration) (map[string]any, error) {
	executionID := ids.NewULID()
	st := state.New(executionID, e.historyLimit)
	if len(initialState) > 0 {
		if _, err := st.Update(initialState, "invoke", "seed initial state"); err != nil {
			return nil, err
		}
	}

	sched := e.newScheduler()
	sched.SetHooks(e.combineHooks(executionID, scheduler.Hooks{
		Before: func(ctx context.Context, node graph.Node, st *state.State) (scheduler.HookResult, error) {
			hits, err := table.Evaluate(ctx, node.ID, st, e.registry)
			if err != nil {
				return scheduler.HookResult{}, err
			}
			if len(hits) == 0 {
				return scheduler.HookResult{Kind: scheduler.HookContinue}, nil
			}
			handle := hil.NewInterruptHandle(executionID, node.ID, graph.InterruptBefore, hil.ReasonBreakpointHit, st.Snapshot())
			decision, err := hil.AwaitDecision(ctx, cb, handle, timeout)
			if err != nil {
				return scheduler.HookResult{}, err
			}
			return applyDecisionBefore(decision, st)
		},
	}))

	_, err := sched.Run(ctx, cg, st, &exec.RequestContext{RequestID: executionID})
	return e.finalize(ctx, st, err)
}

// ExecuteWithInspection runs cg, capturing a labeled before/after
// snapshot into inspector for every node dispatch, with no suspension
// involved (spec §4.H's state inspector surface).
func (e *Engine) ExecuteWithInspection(ctx context.Context, cg *graph.CompiledGraph, initialState map[string]any, inspector *hil.StateInspector, filter []string) (map[string]any, error) {
	st := e.seedState(initialState)

	sched := e.newScheduler()
	sched.SetHooks(e.combineHooks(st.ThreadID(), scheduler.Hooks{
		Before: func(ctx context.Context, node graph.Node, st *state.State) (scheduler.HookResult, error) {
			inspector.Capture(node.ID, "before", st, filter)
			return scheduler.HookResult{Kind: scheduler.HookContinue}, nil
		},
		After: func(ctx context.Context, node graph.Node, st *state.State, patch state.Patch, outcome exec.Outcome) (scheduler.HookResult, error) {
			inspector.Capture(node.ID, "after", st, filter)
			return scheduler.HookResult{Kind: scheduler.HookContinue}, nil
		},
	}))

	_, err := sched.Run(ctx, cg, st, e.newRequestContext())
	return e.finalize(ctx, st, err)
}

// ExecuteWithFeedback is ExecuteWithInterrupts generalized to every
// node rather than just those marked interruptible: cb is consulted
// after each node completes and may continue, redirect, modify, or
// abort (spec §4.H: "execute_with_feedback adds one more suspension
// surface, offered at every step rather than only configured ones").
func (e *Engine) ExecuteWithFeedback(ctx context.Context, cg *graph.CompiledGraph, initialState map[string]any, cb hil.Callback, timeout time.Duration) (map[string]any, error) {
	executionID := ids.NewULID()
	st := state.New(executionID, e.historyLimit)
	if len(initialState) > 0 {
		if _, err := st.Update(initialState, "invoke", "seed initial state"); err != nil {
			return nil, err
		}
	}

	sched := e.newScheduler()
	sched.SetHooks(e.combineHooks(executionID, scheduler.Hooks{
		After: func(ctx context.Context, node graph.Node, st *state.State, patch state.Patch, outcome exec.Outcome) (scheduler.HookResult, error) {
			handle := hil.NewInterruptHandle(executionID, node.ID, graph.InterruptAfter, hil.ReasonApprovalRequired, overlay(st.Snapshot(), patch))
			decision, err := hil.AwaitDecision(ctx, cb, handle, timeout)
			if err != nil {
				return scheduler.HookResult{}, err
			}
			return applyDecisionAfter(decision, patch)
		},
	}))

	_, err := sched.Run(ctx, cg, st, &exec.RequestContext{RequestID: executionID})
	return e.finalize(ctx, st, err)
}

// applyDecisionBefore translates a Decision taken ahead of a node's
// dispatch into the scheduler's HookResult vocabulary.
func applyDecisionBefore(d hil.Decision, st *state.State) (scheduler.HookResult, error) {
	switch d.Kind {
	case hil.DecisionRedirect:
		return scheduler.HookResult{Kind: scheduler.HookRedirect, RedirectTo: d.RedirectTo}, nil
	case hil.DecisionModify:
		if _, err := st.Update(d.ModifiedState, "interrupt", "modify before dispatch"); err != nil {
			return scheduler.HookResult{}, err
		}
		return scheduler.HookResult{Kind: scheduler.HookContinue}, nil
	case hil.DecisionAbort, hil.DecisionTimedOut:
		return scheduler.HookResult{Kind: scheduler.HookAbort, Reason: d.Reason}, nil
	default:
		return scheduler.HookResult{Kind: scheduler.HookContinue}, nil
	}
}

// applyDecisionAfter translates a Decision taken once a node's patch is
// already computed. Modify mutates patch in place — state.Patch is a
// map, so this mutation is visible to the scheduler's caller without
// any extra plumbing in HookResult.
func applyDecisionAfter(d hil.Decision, patch state.Patch) (scheduler.HookResult, error) {
	switch d.Kind {
	case hil.DecisionRedirect:
		return scheduler.HookResult{Kind: scheduler.HookRedirect, RedirectTo: d.RedirectTo}, nil
	case hil.DecisionModify:
		for k := range patch {
			delete(patch, k)
		}
		for k, v := range d.ModifiedState {
			patch[k] = v
		}
		return scheduler.HookResult{Kind: scheduler.HookContinue}, nil
	case hil.DecisionAbort, hil.DecisionTimedOut:
		return scheduler.HookResult{Kind: scheduler.HookAbort, Reason: d.Reason}, nil
	default:
		return scheduler.HookResult{Kind: scheduler.HookContinue}, nil
	}
}
