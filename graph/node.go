// Package graph implements the graph model and compiler (spec §4.B):
// node/edge declaration, structural validation, DFS cycle detection,
// and topological layering. Grounded on the teacher's
// internal/domain/workflow.Graph aggregate, generalized from the
// teacher's fixed chat-assistant node types to the spec's dispatch
// kinds and from a flat edge list to a compiled, layered plan.
package graph

// NodeType is the dispatch kind a node carries (spec §4.E).
type NodeType string

const (
	NodeTypeStart       NodeType = "start"
	NodeTypeEnd         NodeType = "end"
	NodeTypeAgent       NodeType = "agent"
	NodeTypeTool        NodeType = "tool"
	NodeTypeConditional NodeType = "conditional"
	NodeTypeSubgraph    NodeType = "subgraph"
)

// Reserved node ids every graph must contain (spec §4.B).
const (
	StartNodeID = "__start__"
	EndNodeID   = "__end__"
)

// Node is one vertex of the uncompiled graph.
type Node struct {
	ID   string
	Type NodeType

	// Handler names the registered handler for Agent/Tool nodes (spec §6).
	Handler string

	// Condition names the registered condition function for Conditional nodes.
	Condition string

	// SubgraphRef names the compiled subgraph for Subgraph nodes (spec §4.I).
	SubgraphRef string

	// Config is opaque per-node configuration forwarded to the handler.
	Config map[string]any

	// Metadata carries dispatch-level overrides: retry policy, bulkhead,
	// interrupt mode, barrier flag (spec §4.C, §4.F, §4.H).
	Metadata map[string]any
}

func (n Node) metadataBool(key string) bool {
	if n.Metadata == nil {
		return false
	}
	v, ok := n.Metadata[key]
	if !ok {
		return false
	}
	b, _ := v.(bool)
	return b
}

// IsBarrier reports whether the node carries the work-stealing
// scheduler's "barrier" metadata flag (spec §4.F).
func (n Node) IsBarrier() bool { return n.metadataBool("barrier") }

// InterruptMode names when an interruptible node pauses execution (spec §4.H).
type InterruptMode string

const (
	InterruptNone   InterruptMode = ""
	InterruptBefore InterruptMode = "before"
	InterruptAfter  InterruptMode = "after"
)

// Interrupt returns the node's configured interrupt mode, if any.
func (n Node) Interrupt() InterruptMode {
	if n.Metadata == nil {
		return InterruptNone
	}
	v, ok := n.Metadata["interrupt"]
	if !ok {
		return InterruptNone
	}
	s, _ := v.(string)
	switch InterruptMode(s) {
	case InterruptBefore:
		return InterruptBefore
	case InterruptAfter:
		return InterruptAfter
	default:
		return InterruptNone
	}
}
