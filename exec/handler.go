package exec

import (
	"context"

	"github.com/duragraph/graphrt/state"
)

// Handler is the agent/tool dispatch contract (spec §6): a pure
// function from (state, params, context) to (patch, outcome), owned by
// exec since "the engine owns only the dispatch contract" (spec §4.E)
// — agent/tool implementations themselves stay out of scope.
type Handler func(ctx context.Context, st *state.State, params map[string]any, rc *RequestContext) (state.Patch, Outcome, error)

// Condition evaluates a conditional node's named expression against
// the current state (spec §4.E).
type Condition func(ctx context.Context, st *state.State, params map[string]any) (bool, error)

// HandlerLookup is the narrow interface the executor needs from a
// handler registry, satisfied by *registry.Registry without exec
// importing registry (registry imports exec for Handler/Condition;
// the reverse would cycle).
type HandlerLookup interface {
	Get(name string) (Handler, error)
}

// ConditionLookup is HandlerLookup's counterpart for named conditions.
type ConditionLookup interface {
	GetCondition(name string) (Condition, error)
}
