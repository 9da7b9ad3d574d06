package exec

import "github.com/duragraph/graphrt/state"

// Command bundles a state update with a routing decision, grounded in
// original_source/src/graph/command.rs's Command/GraphTarget pair. A
// handler may return a Command instead of a plain (patch, outcome)
// pair; ToOutcome translates it into the same §4.E contract every
// other handler shape produces.
type Command struct {
	Update   state.Patch
	Goto     string
	GotoMany []string
	Graph    *GraphTarget
	Metadata map[string]any
}

// NewCommand returns an empty command, equivalent to a plain Ok outcome.
func NewCommand() Command { return Command{} }

func (c Command) WithUpdate(patch state.Patch) Command {
	c.Update = patch
	return c
}

func (c Command) WithGoto(nodeID string) Command {
	c.Goto = nodeID
	return c
}

func (c Command) WithGotoMany(nodeIDs []string) Command {
	c.GotoMany = nodeIDs
	return c
}

func (c Command) WithGraph(target GraphTarget) Command {
	c.Graph = &target
	return c
}

func (c Command) WithMetadata(metadata map[string]any) Command {
	c.Metadata = metadata
	return c
}

// ToParent is shorthand for WithGraph(GraphTarget{Kind: GraphParent}).
func ToParent() Command {
	return NewCommand().WithGraph(GraphTarget{Kind: GraphParent})
}

// ToOutcome translates the command into the (patch, outcome) dispatch
// contract: GotoMany → RouteParallel, Goto → RouteTo, neither → Ok.
// Graph, when set, rides along as Outcome.GraphTarget regardless of
// which of the above applies (spec SPEC_FULL §4: "this does not change
// §4.E's contract, it is one more way to produce it").
func (c Command) ToOutcome() (state.Patch, Outcome) {
	patch := c.Update
	if patch == nil {
		patch = state.Patch{}
	}

	var outcome Outcome
	switch {
	case len(c.GotoMany) > 0:
		outcome = RouteParallelOutcome(c.GotoMany)
	case c.Goto != "":
		outcome = RouteToOutcome(c.Goto)
	default:
		outcome = OkOutcome()
	}
	outcome.GraphTarget = c.Graph
	return patch, outcome
}
