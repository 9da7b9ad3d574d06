package engine

import (
	"context"

	"github.com/duragraph/graphrt/graph"
	"github.com/duragraph/graphrt/hil"
	"github.com/duragraph/graphrt/state"
)

// ResumeFrom re-enters cg at the node snap.NextNode resolves to,
// restoring snap.State as the starting point rather than replaying
// anything upstream of it (spec §4.H: "resume_from(snapshot, graph,
// compat?) re-enters at the resolved node with the snapshot's state").
// compat may be nil.
func (e *Engine) ResumeFrom(ctx context.Context, cg *graph.CompiledGraph, snap hil.WorkflowSnapshot, compat *hil.CompatMap) (map[string]any, error) {
	resumeAt, err := hil.ResolveResumeNode(cg, snap, compat)
	if err != nil {
		return nil, err
	}

	threadID := snap.ExecutionID
	if threadID == "" {
		threadID = snap.GraphName
	}
	st := state.New(threadID, e.historyLimit)
	if len(snap.State) > 0 {
		if _, err := st.Update(snap.State, "resume", "restore snapshot"); err != nil {
			return nil, err
		}
	}

	sched := e.newScheduler()
	sched.SetHooks(e.baseHooks(threadID))
	e.publishExecutionStarted(ctx, threadID, cg.Name)
	_, err = sched.RunFrom(ctx, cg, st, e.newRequestContext(), []string{resumeAt})
	finalState, finalErr := e.finalize(ctx, st, err)
	status := "ok"
	if finalErr != nil {
		status = "error"
	}
	e.publishExecutionCompleted(ctx, threadID, cg.Name, status, finalErr, 0)
	return finalState, finalErr
}
