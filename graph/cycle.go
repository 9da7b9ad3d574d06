package graph

import "github.com/duragraph/graphrt/pkgerrors"

type dfsColor int

const (
	white dfsColor = iota // unvisited
	gray                  // on the current DFS stack
	black                 // fully explored
)

// checkCycles runs a standard DFS with on-stack (gray) coloring over
// the direct-edge graph. A back-edge (an edge into a gray node) is a
// cycle; it is rejected unless the edge is marked Bounded, in which
// case it is recorded as a bounded-cycle edge instead of failing
// compilation (spec §4.B).
func (g *Graph) checkCycles() (boundedEdges []Edge, err error) {
	adjacency := make(map[string][]Edge, len(g.nodes))
	for _, e := range g.edges {
		adjacency[e.From] = append(adjacency[e.From], e)
	}

	colors := make(map[string]dfsColor, len(g.nodes))
	for _, id := range g.sortedNodeIDs() {
		colors[id] = white
	}

	var visit func(id string) error
	visit = func(id string) error {
		colors[id] = gray
		for _, e := range adjacency[id] {
			switch colors[e.To] {
			case white:
				if err := visit(e.To); err != nil {
					return err
				}
			case gray:
				if !e.Bounded {
					return pkgerrors.New("GRAPH_CYCLE", pkgerrors.KindValidation,
						"cycle detected: "+e.From+" -> "+e.To, pkgerrors.ErrGraphCycle).
						WithDetails("from", e.From).WithDetails("to", e.To)
				}
				boundedEdges = append(boundedEdges, e)
			case black:
				// already fully explored, not part of an active cycle
			}
		}
		colors[id] = black
		return nil
	}

	for _, id := range g.sortedNodeIDs() {
		if colors[id] == white {
			if err := visit(id); err != nil {
				return nil, err
			}
		}
	}

	return boundedEdges, nil
}
