package hil

import (
	"time"

	"github.com/duragraph/graphrt/graph"
	"github.com/duragraph/graphrt/pkgerrors"
)

// WorkflowSnapshot captures enough to resume an execution elsewhere
// (spec §4.H): the last node to finish, the node that was about to
// run next, and the state as of that point.
type WorkflowSnapshot struct {
	ExecutionID     string
	GraphName       string
	LastCompletedNode string
	NextNode        string
	State           map[string]any
	Timestamp       time.Time
}

// CompatMap lets resume_from tolerate a graph that has evolved since
// the snapshot was taken: Renames maps an old node id to its new name,
// and Drops lists old node ids that no longer exist. A snapshot whose
// NextNode is in Drops is not resumed: ResolveResumeNode fails with
// IncompatibleGraph and does not look for a node after the dropped one.
type CompatMap struct {
	Renames map[string]string
	Drops   []string
}

func (c *CompatMap) dropped(nodeID string) bool {
	if c == nil {
		return false
	}
	for _, d := range c.Drops {
		if d == nodeID {
			return true
		}
	}
	return false
}

func (c *CompatMap) rename(nodeID string) string {
	if c == nil {
		return nodeID
	}
	if renamed, ok := c.Renames[nodeID]; ok {
		return renamed
	}
	return nodeID
}

// ResolveResumeNode maps snap.NextNode onto cg, applying compat (which
// may be nil) to tolerate renamed nodes, and returns the id the
// scheduler should be re-entered at. If NextNode is listed in
// compat.Drops, or the resolved id does not exist in cg, resume fails
// with IncompatibleGraph (spec §4.H).
func ResolveResumeNode(cg *graph.CompiledGraph, snap WorkflowSnapshot, compat *CompatMap) (string, error) {
	if compat.dropped(snap.NextNode) {
		return "", pkgerrors.IncompatibleGraph("resume target node " + snap.NextNode + " was dropped by the compat map with no replacement")
	}
	resolved := compat.rename(snap.NextNode)
	if _, ok := cg.Node(resolved); !ok {
		return "", pkgerrors.IncompatibleGraph("resume target node " + resolved + " does not exist in the current graph")
	}
	return resolved, nil
}
