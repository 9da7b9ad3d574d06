package graph

import (
	"fmt"

	"github.com/duragraph/graphrt/pkgerrors"
)

// validateStructure implements spec §4.B's rejection rules other than
// the cycle check (which lives in cycle.go since it doubles as input to
// layering): missing entry, missing reserved nodes, orphaned nodes, and
// dangling edge references.
func (g *Graph) validateStructure() error {
	if g.entry == "" {
		return pkgerrors.InvalidInput("entry", "graph has no entry node")
	}
	if _, ok := g.nodes[g.entry]; !ok {
		return pkgerrors.InvalidInput("entry", "entry node not declared: "+g.entry)
	}
	if _, ok := g.nodes[StartNodeID]; !ok {
		return pkgerrors.InvalidInput("nodes", "graph missing reserved node "+StartNodeID)
	}
	if _, ok := g.nodes[EndNodeID]; !ok {
		return pkgerrors.InvalidInput("nodes", "graph missing reserved node "+EndNodeID)
	}

	for _, e := range g.edges {
		if _, ok := g.nodes[e.From]; !ok {
			return pkgerrors.InvalidInput("edge.from", "unknown node id: "+e.From)
		}
		if _, ok := g.nodes[e.To]; !ok {
			return pkgerrors.InvalidInput("edge.to", "unknown node id: "+e.To)
		}
	}

	incoming := make(map[string]int, len(g.nodes))
	for id := range g.nodes {
		incoming[id] = 0
	}
	for _, e := range g.edges {
		incoming[e.To]++
	}

	for _, id := range g.sortedNodeIDs() {
		if id == g.entry || id == StartNodeID || id == EndNodeID {
			continue
		}
		if incoming[id] == 0 {
			return pkgerrors.InvalidInput("nodes", fmt.Sprintf("orphaned node (no incoming edge): %s", id))
		}
	}

	return nil
}
