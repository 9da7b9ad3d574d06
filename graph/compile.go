package graph

// CompiledGraph is the immutable, validated output of Graph.Compile: a
// node/edge index plus the topological layering the scheduler drives
// execution from (spec §4.B, §4.F).
type CompiledGraph struct {
	Name string

	nodes map[string]Node
	entry string

	// successors maps a node id to every outgoing edge, in declaration order.
	successors map[string][]Edge

	// predecessors maps a node id to the ids of every node with a direct
	// edge into it, excluding edges that only close a bounded cycle.
	predecessors map[string][]string

	// boundedEdges are the edges permitted to close a cycle, each
	// capped at its own MaxIterations traversals per execution.
	boundedEdges []Edge

	// Layers is the topological layering L0, L1, … (spec §4.B).
	Layers [][]string
}

// Compile validates the graph and produces a CompiledGraph. Validation
// order follows spec §4.B: structural checks first (missing entry,
// missing reserved nodes, orphaned nodes, dangling edges, duplicate
// ids — duplicates are actually rejected eagerly by AddNode), then the
// cycle check, then layering.
func (g *Graph) Compile() (*CompiledGraph, error) {
	if err := g.validateStructure(); err != nil {
		return nil, err
	}

	boundedEdges, err := g.checkCycles()
	if err != nil {
		return nil, err
	}

	bounded := make(map[Edge]bool, len(boundedEdges))
	for _, e := range boundedEdges {
		bounded[e] = true
	}

	cg := &CompiledGraph{
		Name:         g.name,
		nodes:        make(map[string]Node, len(g.nodes)),
		entry:        g.entry,
		successors:   make(map[string][]Edge, len(g.nodes)),
		predecessors: make(map[string][]string, len(g.nodes)),
		boundedEdges: boundedEdges,
	}
	for id, n := range g.nodes {
		cg.nodes[id] = n
	}
	for _, e := range g.edges {
		cg.successors[e.From] = append(cg.successors[e.From], e)
		if !bounded[e] {
			cg.predecessors[e.To] = append(cg.predecessors[e.To], e.From)
		}
	}

	cg.Layers = g.computeLayers(boundedEdges)

	return cg, nil
}

// Entry returns the designated start node id.
func (cg *CompiledGraph) Entry() string { return cg.entry }

// Node returns the declaration for id.
func (cg *CompiledGraph) Node(id string) (Node, bool) {
	n, ok := cg.nodes[id]
	return n, ok
}

// Successors returns the outgoing edges of id, in declaration order.
func (cg *CompiledGraph) Successors(id string) []Edge {
	return cg.successors[id]
}

// Predecessors returns the ids of nodes with a direct (non-bounded)
// edge into id.
func (cg *CompiledGraph) Predecessors(id string) []string {
	return cg.predecessors[id]
}

// BoundedEdges returns every edge permitted to close a cycle.
func (cg *CompiledGraph) BoundedEdges() []Edge {
	out := make([]Edge, len(cg.boundedEdges))
	copy(out, cg.boundedEdges)
	return out
}

// LayerOf returns the index of the layer containing id, or -1 if id is
// not part of any layer (should not happen for a compiled graph).
func (cg *CompiledGraph) LayerOf(id string) int {
	for i, layer := range cg.Layers {
		for _, n := range layer {
			if n == id {
				return i
			}
		}
	}
	return -1
}
