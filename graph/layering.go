package graph

import "sort"

// computeLayers produces the topological layering L0, L1, … used by
// the scheduler (spec §4.B): layer i contains every node whose
// predecessors are all in an earlier layer. Ties within a layer are
// broken by node id. Bounded (cycle-closing) edges are excluded from
// the precedence graph here — they express a runtime loop-back the
// scheduler re-enters dynamically, not a static layer dependency — so
// what remains is a true DAG, the precondition Kahn's algorithm needs.
func (g *Graph) computeLayers(boundedEdges []Edge) [][]string {
	bounded := make(map[Edge]bool, len(boundedEdges))
	for _, e := range boundedEdges {
		bounded[e] = true
	}

	predecessors := make(map[string]map[string]bool, len(g.nodes))
	for _, id := range g.nodeOrder {
		predecessors[id] = make(map[string]bool)
	}
	for _, e := range g.edges {
		if bounded[e] {
			continue
		}
		predecessors[e.To][e.From] = true
	}

	remaining := make(map[string]bool, len(g.nodes))
	for _, id := range g.nodeOrder {
		remaining[id] = true
	}

	var layers [][]string
	for len(remaining) > 0 {
		var frontier []string
		for id := range remaining {
			ready := true
			for pred := range predecessors[id] {
				if remaining[pred] {
					ready = false
					break
				}
			}
			if ready {
				frontier = append(frontier, id)
			}
		}

		if len(frontier) == 0 {
			// Every remaining node has an unresolved predecessor still in
			// `remaining`; checkCycles already proved the non-bounded
			// graph is acyclic, so this can only happen if a predecessor
			// was never declared a node — treat defensively as an
			// isolated final layer rather than looping forever.
			for id := range remaining {
				frontier = append(frontier, id)
			}
		}

		sort.Strings(frontier)
		layers = append(layers, frontier)
		for _, id := range frontier {
			delete(remaining, id)
		}
	}

	return layers
}
