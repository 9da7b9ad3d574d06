package graph

import (
	"sort"

	"github.com/duragraph/graphrt/pkgerrors"
)

// Graph is the mutable builder for a graph definition: add_node,
// add_edge, set_entry, compile (spec §4.B).
type Graph struct {
	name string

	nodeOrder []string
	nodes     map[string]Node
	edges     []Edge

	entry string
}

// New creates an empty graph builder with the two reserved nodes
// (__start__, __end__) pre-declared, matching spec §4.B's invariant
// that every graph has them.
func New(name string) *Graph {
	g := &Graph{
		name:  name,
		nodes: make(map[string]Node),
	}
	g.nodes[StartNodeID] = Node{ID: StartNodeID, Type: NodeTypeStart}
	g.nodeOrder = append(g.nodeOrder, StartNodeID)
	g.nodes[EndNodeID] = Node{ID: EndNodeID, Type: NodeTypeEnd}
	g.nodeOrder = append(g.nodeOrder, EndNodeID)
	g.entry = StartNodeID
	return g
}

// Name returns the graph's declared name.
func (g *Graph) Name() string { return g.name }

// AddNode declares a new node. Duplicate ids are rejected eagerly.
func (g *Graph) AddNode(n Node) error {
	if n.ID == "" {
		return pkgerrors.InvalidInput("node.id", "node id is required")
	}
	if _, exists := g.nodes[n.ID]; exists {
		return pkgerrors.InvalidInput("node.id", "duplicate node id: "+n.ID)
	}
	g.nodes[n.ID] = n
	g.nodeOrder = append(g.nodeOrder, n.ID)
	return nil
}

// AddEdge declares a directed edge. Both endpoints must already be
// declared nodes.
func (g *Graph) AddEdge(e Edge) error {
	if _, ok := g.nodes[e.From]; !ok {
		return pkgerrors.InvalidInput("edge.from", "unknown node id: "+e.From)
	}
	if _, ok := g.nodes[e.To]; !ok {
		return pkgerrors.InvalidInput("edge.to", "unknown node id: "+e.To)
	}
	g.edges = append(g.edges, e)
	return nil
}

// SetEntry designates the node the scheduler starts from. Defaults to
// __start__ if never called.
func (g *Graph) SetEntry(nodeID string) error {
	if _, ok := g.nodes[nodeID]; !ok {
		return pkgerrors.InvalidInput("entry", "unknown node id: "+nodeID)
	}
	g.entry = nodeID
	return nil
}

// Node returns the node declaration for id, if present.
func (g *Graph) Node(id string) (Node, bool) {
	n, ok := g.nodes[id]
	return n, ok
}

// NodeIDs returns every declared node id in insertion order.
func (g *Graph) NodeIDs() []string {
	out := make([]string, len(g.nodeOrder))
	copy(out, g.nodeOrder)
	return out
}

// Edges returns every declared edge.
func (g *Graph) Edges() []Edge {
	out := make([]Edge, len(g.edges))
	copy(out, g.edges)
	return out
}

// sortedNodeIDs returns declared node ids sorted ascending, used
// throughout for the spec's node-id tie-break determinism.
func (g *Graph) sortedNodeIDs() []string {
	ids := g.NodeIDs()
	sort.Strings(ids)
	return ids
}
