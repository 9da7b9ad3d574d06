package scheduler

import (
	"context"

	"github.com/duragraph/graphrt/exec"
	"github.com/duragraph/graphrt/graph"
	"github.com/duragraph/graphrt/pkgerrors"
	"github.com/duragraph/graphrt/state"
)

// HookKind is the decision a Before/After hook returns, letting the
// engine implement interrupts, breakpoints, and human-in-the-loop
// redirection (spec §4.H) without the scheduler knowing anything about
// them: every node is offered the hook, and it is the hook closure's
// job to recognize whether it applies to this particular node (its
// interrupt mode, its breakpoint table entry) and no-op otherwise.
type HookKind string

const (
	HookContinue HookKind = "continue"
	HookRedirect HookKind = "redirect"
	HookAbort    HookKind = "abort"
)

// HookResult is a Before/After hook's verdict for one node.
type HookResult struct {
	Kind       HookKind
	RedirectTo string
	Reason     string
}

// Hooks lets a caller observe and redirect dispatch around every node,
// the seam execute_with_interrupts/breakpoints/inspection/feedback and
// execute_with_checkpointing are built on (spec §4.G, §4.H). Either
// field may be nil.
type Hooks struct {
	// Before runs prior to dispatch, with state as it stood before the
	// node (spec §4.H InterruptBefore). A Redirect result skips dispatch
	// entirely and routes as if the node had emitted RouteTo(RedirectTo).
	Before func(ctx context.Context, node graph.Node, st *state.State) (HookResult, error)

	// After runs once dispatch has produced a patch and outcome, with
	// state still unmerged (spec §4.H InterruptAfter; also where
	// per-node checkpointing and state-inspector snapshots hook in).
	After func(ctx context.Context, node graph.Node, st *state.State, patch state.Patch, outcome exec.Outcome) (HookResult, error)
}

// SetHooks installs h, replacing any previously set hooks.
func (s *Scheduler) SetHooks(h Hooks) { s.hooks = h }

// runNode dispatches node through both hook seams around the executor.
func (s *Scheduler) runNode(ctx context.Context, node graph.Node, st *state.State, rc *exec.RequestContext) (state.Patch, exec.Outcome, error) {
	if s.hooks.Before != nil {
		res, err := s.hooks.Before(ctx, node, st)
		if err != nil {
			return state.Patch{}, exec.FailOutcome(err), err
		}
		switch res.Kind {
		case HookAbort:
			aerr := pkgerrors.Aborted(res.Reason)
			return state.Patch{}, exec.FailOutcome(aerr), aerr
		case HookRedirect:
			return state.Patch{}, exec.RouteToOutcome(res.RedirectTo), nil
		}
	}

	patch, outcome, err := s.executor.Execute(ctx, node, st, rc)
	if err != nil {
		return patch, outcome, err
	}

	if s.hooks.After != nil {
		res, herr := s.hooks.After(ctx, node, st, patch, outcome)
		if herr != nil {
			return patch, outcome, herr
		}
		switch res.Kind {
		case HookAbort:
			aerr := pkgerrors.Aborted(res.Reason)
			return patch, exec.FailOutcome(aerr), aerr
		case HookRedirect:
			outcome = exec.RouteToOutcome(res.RedirectTo)
		}
	}

	return patch, outcome, nil
}
