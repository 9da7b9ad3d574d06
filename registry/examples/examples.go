// Package examples ships a small set of illustrative node handlers —
// Echo, Delay, Counter, AlwaysFail — used by the tests (cmd/server and
// cmd/graphrun also register Echo, Delay and Counter), grounded in the teacher's
// LLMNodeExecutor/ToolNodeExecutor placeholders
// (internal/domain/execution/node.go) which likewise returned
// canned output rather than calling a real model or tool. Agent/tool
// implementations themselves are out of scope (spec §1); these exist
// so the exec/scheduler/engine tests have something concrete to
// register and dispatch.
package examples

import (
	"context"
	"time"

	"github.com/duragraph/graphrt/exec"
	"github.com/duragraph/graphrt/state"
)

// Echo copies node.Config["input"] (or the whole state, if absent)
// into the patch key named by node.Config["output_key"] (default
// "output").
func Echo(ctx context.Context, st *state.State, params map[string]any, rc *exec.RequestContext) (state.Patch, exec.Outcome, error) {
	outputKey, _ := params["output_key"].(string)
	if outputKey == "" {
		outputKey = "output"
	}

	if input, ok := params["input"]; ok {
		return state.Patch{outputKey: input}, exec.OkOutcome(), nil
	}
	return state.Patch{outputKey: st.Snapshot()}, exec.OkOutcome(), nil
}

// Delay sleeps for params["duration_ms"] (default 0) before returning
// an empty patch, used to exercise timeout/cancellation paths.
func Delay(ctx context.Context, st *state.State, params map[string]any, rc *exec.RequestContext) (state.Patch, exec.Outcome, error) {
	ms, _ := params["duration_ms"].(int)
	if ms > 0 {
		select {
		case <-time.After(time.Duration(ms) * time.Millisecond):
		case <-ctx.Done():
			return state.Patch{}, exec.Outcome{}, ctx.Err()
		}
	}
	return state.Patch{}, exec.OkOutcome(), nil
}

// Counter increments the state key named by params["key"] (default
// "count") by params["by"] (default 1), returning the new total (the
// current value plus by) as the patch value for that key.
func Counter(ctx context.Context, st *state.State, params map[string]any, rc *exec.RequestContext) (state.Patch, exec.Outcome, error) {
	key, _ := params["key"].(string)
	if key == "" {
		key = "count"
	}
	by, _ := params["by"].(int)
	if by == 0 {
		by = 1
	}

	current, _ := st.Get(key)
	count, _ := current.(int)
	return state.Patch{key: count + by}, exec.OkOutcome(), nil
}

// AlwaysFail returns a Fail outcome carrying params["reason"] (default
// "example failure"), used to exercise the executor's failure and
// retry-classification paths.
func AlwaysFail(ctx context.Context, st *state.State, params map[string]any, rc *exec.RequestContext) (state.Patch, exec.Outcome, error) {
	reason, _ := params["reason"].(string)
	if reason == "" {
		reason = "example failure"
	}
	err := &exampleError{reason: reason}
	return state.Patch{}, exec.FailOutcome(err), err
}

type exampleError struct{ reason string }

func (e *exampleError) Error() string { return e.reason }
