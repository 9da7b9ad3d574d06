package metrics

import (
	"context"
	"time"

	"github.com/duragraph/graphrt/exec"
	"github.com/duragraph/graphrt/graph"
	"github.com/duragraph/graphrt/pkgerrors"
	"github.com/duragraph/graphrt/scheduler"
	"github.com/duragraph/graphrt/state"
)

// NodeHooks returns a scheduler.Hooks pair recording one NodeDuration
// observation and one NodeExecutionsTotal/NodeErrorsTotal increment per
// node dispatch against m. The Before hook never redirects or aborts;
// it only stamps a start time per node id for After to consume.
func NodeHooks(m *Metrics) scheduler.Hooks {
	starts := map[string]time.Time{}

	return scheduler.Hooks{
		Before: func(ctx context.Context, node graph.Node, st *state.State) (scheduler.HookResult, error) {
			starts[node.ID] = time.Now()
			return scheduler.HookResult{Kind: scheduler.HookContinue}, nil
		},
		After: func(ctx context.Context, node graph.Node, st *state.State, patch state.Patch, outcome exec.Outcome) (scheduler.HookResult, error) {
			started, ok := starts[node.ID]
			if !ok {
				started = time.Now()
			}
			delete(starts, node.ID)

			status := "ok"
			if outcome.Kind == exec.Fail {
				status = "fail"
				m.RecordNodeError(string(node.Type), kindOf(outcome.Err))
			}
			m.RecordNode(string(node.Type), status, time.Since(started))
			return scheduler.HookResult{Kind: scheduler.HookContinue}, nil
		},
	}
}

// kindOf extracts a pkgerrors taxonomy label from err, falling back to
// "internal" for errors the runtime didn't originate.
func kindOf(err error) string {
	if err == nil {
		return ""
	}
	var rerr *pkgerrors.RuntimeError
	if pkgerrors.As(err, &rerr) {
		return string(rerr.Kind)
	}
	return string(pkgerrors.KindInternal)
}
