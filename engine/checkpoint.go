package engine

import (
	"context"
	"sync"
	"time"

	"github.com/duragraph/graphrt/checkpoint"
	"github.com/duragraph/graphrt/eventbus"
	"github.com/duragraph/graphrt/exec"
	"github.com/duragraph/graphrt/graph"
	"github.com/duragraph/graphrt/scheduler"
	"github.com/duragraph/graphrt/state"
)

// ExecuteWithCheckpointing runs cg like Invoke, saving one checkpoint
// per node completion into cp, threaded under threadID with each new
// checkpoint's parent set to the previous one from this same execution
// (spec §4.D, §4.G). Returns the final state and the id of the last
// checkpoint saved.
func (e *Engine) ExecuteWithCheckpointing(ctx context.Context, cg *graph.CompiledGraph, initialState map[string]any, cp checkpoint.Checkpointer, threadID string) (map[string]any, string, error) {
	st := e.seedState(initialState)

	var mu sync.Mutex
	var parentID string

	sched := e.newScheduler()
	sched.SetHooks(e.combineHooks(threadID, scheduler.Hooks{
		After: func(ctx context.Context, node graph.Node, st *state.State, patch state.Patch, outcome exec.Outcome) (scheduler.HookResult, error) {
			snapshot := overlay(st.Snapshot(), patch)

			// Holds the lock across Save, not just around the parentID
			// read/write: a parallel layer runs this hook concurrently
			// per node, and reading the parent before a sibling's Save
			// commits its own new parentID would chain two checkpoints
			// onto the same parent, silently dropping one from the
			// chain once the later writer overwrites parentID.
			mu.Lock()
			defer mu.Unlock()

			parent := parentID
			id, err := cp.Save(ctx, threadID, snapshot, map[string]any{"node": node.ID}, parent)
			if err != nil {
				return scheduler.HookResult{}, err
			}
			parentID = id

			if e.events != nil {
				_ = e.events.Publish(ctx, eventbus.CheckpointSaved{
					ThreadID:     threadID,
					CheckpointID: id,
					ParentID:     parent,
					At:           time.Now(),
				})
			}

			return scheduler.HookResult{Kind: scheduler.HookContinue}, nil
		},
	}))

	_, err := sched.Run(ctx, cg, st, e.newRequestContext())
	finalState, finalErr := e.finalize(ctx, st, err)

	mu.Lock()
	lastCheckpoint := parentID
	mu.Unlock()

	return finalState, lastCheckpoint, finalErr
}
