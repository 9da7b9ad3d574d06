package engine

import (
	"context"

	"github.com/duragraph/graphrt/exec"
	"github.com/duragraph/graphrt/graph"
	"github.com/duragraph/graphrt/pkgerrors"
	"github.com/duragraph/graphrt/state"
)

// recursionDepthKey is where RunSubgraph threads the current nesting
// depth through exec.RequestContext.Metadata (spec §4.I: "exceeding
// max_recursion_depth fails with RecursionLimit").
const recursionDepthKey = "_subgraph_depth"

// RunSubgraph implements exec.SubgraphRunner, the callback a Subgraph
// node's dispatch is routed through (spec §4.I): apply the node's input
// mapper to the parent state, recursively run the referenced compiled
// graph with the depth counter incremented, then apply the output
// mapper and isolation policy to produce the patch that flows back into
// the parent. A node configures its mapping by carrying the already-
// constructed exec.Mapper/exec.Isolation values directly under its
// Metadata (keys "input_mapper", "output_mapper", "isolation") — the
// same "typed value behind an any map" convention graph.Node already
// uses for its barrier flag and interrupt mode, chosen here instead of
// a string-keyed mini-DSL so graph need not learn about exec's types.
func (e *Engine) RunSubgraph(ctx context.Context, node graph.Node, parentState *state.State, rc *exec.RequestContext) (state.Patch, exec.Outcome, error) {
	depth, _ := rc.Metadata[recursionDepthKey].(int)
	if depth+1 > e.maxRecursionDepth {
		err := pkgerrors.RecursionLimit(depth+1, e.maxRecursionDepth)
		return state.Patch{}, exec.FailOutcome(err), err
	}

	e.subgraphsMu.RLock()
	sub, ok := e.subgraphs[node.SubgraphRef]
	e.subgraphsMu.RUnlock()
	if !ok {
		err := pkgerrors.NotFound("subgraph", node.SubgraphRef)
		return state.Patch{}, exec.FailOutcome(err), err
	}

	inputMapper, _ := node.Metadata["input_mapper"].(exec.Mapper)
	outputMapper, _ := node.Metadata["output_mapper"].(exec.Mapper)
	isolation, _ := node.Metadata["isolation"].(exec.Isolation)

	mapped := inputMapper.Apply(parentState.Snapshot())
	childState := state.New(parentState.ThreadID()+"/"+node.ID, e.historyLimit)
	if len(mapped) > 0 {
		if _, err := childState.Update(mapped, "subgraph-input", "map parent state across subgraph boundary"); err != nil {
			return state.Patch{}, exec.FailOutcome(err), err
		}
	}

	childRC := rc.WithMetadata(recursionDepthKey, depth+1)
	sched := e.newScheduler()
	sched.SetHooks(e.baseHooks(childState.ThreadID()))
	if _, err := sched.Run(ctx, sub, childState, &childRC); err != nil {
		return state.Patch{}, exec.FailOutcome(err), err
	}

	output := outputMapper.Apply(childState.Snapshot())
	merged := isolation.Merge(output)
	return state.Patch(merged), exec.OkOutcome(), nil
}
