// Package exec implements the node dispatch contract (spec §4.E):
// execute(node, state, context) → (state_patch, outcome). Grounded on
// the teacher's internal/domain/execution.NodeExecutor interface and
// its GetExecutorForNodeType switch, generalized from the teacher's
// fixed llm/tool/condition/human/subgraph types to the spec's
// start/end/agent/tool/conditional/subgraph dispatch kinds, and from a
// plain (map, error) return to the (patch, outcome) contract. Also
// hosts the Command pattern (command.go), grounded on
// original_source/src/graph/command.rs, and the subgraph mapping/
// isolation/merge types (subgraph.go) used by the subgraph executor
// (spec §4.I).
package exec

import (
	"context"

	"github.com/duragraph/graphrt/graph"
	"github.com/duragraph/graphrt/pkgerrors"
	"github.com/duragraph/graphrt/resilience"
	"github.com/duragraph/graphrt/state"
)

// Executor dispatches one node at a time, resolving Agent/Tool
// handlers and Conditional expressions through the injected lookups
// (spec §4.E dispatch table). Every call runs inside a resilience
// Manager, as required by spec §4.E: "every invocation runs inside a
// bulkhead permit and inside a resilience wrapper".
type Executor struct {
	handlers   HandlerLookup
	conditions ConditionLookup
	subgraphs  SubgraphRunner
	resilience map[string]*resilience.Manager
	defaultRes *resilience.Manager
}

// SubgraphRunner recursively invokes a compiled subgraph from a
// Subgraph node, applying its input/output mappers and isolation
// policy (spec §4.I). It is an interface, not a direct dependency on
// the engine, so exec and scheduler never import engine: the engine
// implements SubgraphRunner and hands itself to the Executor/Scheduler
// it owns, the same inversion HandlerLookup uses for the registry.
type SubgraphRunner interface {
	RunSubgraph(ctx context.Context, node graph.Node, parentState *state.State, rc *RequestContext) (state.Patch, Outcome, error)
}

// New builds an Executor. defaultResilience is used for every node
// that has no *resilience.Manager registered for its id through
// SetNodeResilience; node metadata is not read for resilience
// settings. No SubgraphRunner is set initially; Subgraph nodes fail
// dispatch until one is set via SetSubgraphRunner.
func New(handlers HandlerLookup, conditions ConditionLookup, defaultResilience *resilience.Manager) *Executor {
	return &Executor{
		handlers:   handlers,
		conditions: conditions,
		resilience: make(map[string]*resilience.Manager),
		defaultRes: defaultResilience,
	}
}

// SetSubgraphRunner wires the engine-provided recursive dispatcher used
// for Subgraph nodes.
func (e *Executor) SetSubgraphRunner(r SubgraphRunner) {
	e.subgraphs = r
}

// SetNodeResilience overrides the resilience Manager used for nodeID.
func (e *Executor) SetNodeResilience(nodeID string, m *resilience.Manager) {
	e.resilience[nodeID] = m
}

func (e *Executor) managerFor(nodeID string) *resilience.Manager {
	if m, ok := e.resilience[nodeID]; ok {
		return m
	}
	return e.defaultRes
}

// Execute dispatches node against st, honoring spec §4.E's dispatch
// table. Side effects the handler performs outside the returned patch
// must be idempotent across retries (the Manager may re-invoke fn).
func (e *Executor) Execute(ctx context.Context, node graph.Node, st *state.State, rc *RequestContext) (state.Patch, Outcome, error) {
	var patch state.Patch
	var outcome Outcome

	err := e.managerFor(node.ID).ExecuteWithResilience(ctx, func(ctx context.Context, attempt int) error {
		p, o, innerErr := e.dispatch(ctx, node, st, rc)
		patch, outcome = p, o
		return innerErr
	})
	if err != nil {
		return state.Patch{}, FailOutcome(err), err
	}
	if outcome.Kind == Fail {
		return patch, outcome, outcome.Err
	}
	return patch, outcome, nil
}

func (e *Executor) dispatch(ctx context.Context, node graph.Node, st *state.State, rc *RequestContext) (state.Patch, Outcome, error) {
	switch node.Type {
	case graph.NodeTypeStart:
		return state.Patch{}, OkOutcome(), nil

	case graph.NodeTypeEnd:
		return state.Patch{}, OkOutcome(), nil

	case graph.NodeTypeAgent, graph.NodeTypeTool:
		handler, err := e.handlers.Get(node.Handler)
		if err != nil {
			return state.Patch{}, Outcome{}, err
		}
		patch, outcome, err := handler(ctx, st, node.Config, rc)
		if err != nil {
			return state.Patch{}, Outcome{}, err
		}
		return patch, outcome, nil

	case graph.NodeTypeConditional:
		return e.dispatchConditional(ctx, node, st)

	case graph.NodeTypeSubgraph:
		if e.subgraphs == nil {
			return state.Patch{}, Outcome{}, pkgerrors.InvalidState("no-subgraph-runner", "dispatch-subgraph-node").WithNode(node.ID)
		}
		return e.subgraphs.RunSubgraph(ctx, node, st, rc)

	default:
		return state.Patch{}, Outcome{}, pkgerrors.InvalidInput("node.type", "unrecognized node type "+string(node.Type)).WithNode(node.ID)
	}
}

func (e *Executor) dispatchConditional(ctx context.Context, node graph.Node, st *state.State) (state.Patch, Outcome, error) {
	cond, err := e.conditions.GetCondition(node.Condition)
	if err != nil {
		return state.Patch{}, Outcome{}, err
	}

	matched, err := cond(ctx, st, node.Config)
	if err != nil {
		return state.Patch{}, Outcome{}, err
	}

	target := conditionalTarget(node, matched)
	if target == "" {
		return state.Patch{}, Outcome{}, pkgerrors.NoMatchingBranch(node.ID)
	}
	return state.Patch{}, RouteToOutcome(target), nil
}

// conditionalTarget reads the "on_true"/"on_false" node-id config the
// conditional node carries (spec §4.E: "emits RouteTo(target) on true,
// or to the fallback on false").
func conditionalTarget(node graph.Node, matched bool) string {
	key := "on_false"
	if matched {
		key = "on_true"
	}
	v, _ := node.Config[key].(string)
	return v
}
