package main

import (
	"encoding/json"
	"os"

	"github.com/duragraph/graphrt/graph"
	"github.com/duragraph/graphrt/pkgerrors"
)

// manifest is the JSON wire shape of a compiled-graph definition fed to
// the CLI (spec §6's "external contract" CLI surface): a flat node/edge
// list plus an optional entry override, mirroring the Graph builder's
// own AddNode/AddEdge/SetEntry vocabulary one-to-one.
type manifest struct {
	Name  string         `json:"name"`
	Entry string         `json:"entry,omitempty"`
	Nodes []nodeManifest `json:"nodes"`
	Edges []edgeManifest `json:"edges"`
}

type nodeManifest struct {
	ID          string         `json:"id"`
	Type        string         `json:"type"`
	Handler     string         `json:"handler,omitempty"`
	Condition   string         `json:"condition,omitempty"`
	SubgraphRef string         `json:"subgraph_ref,omitempty"`
	Config      map[string]any `json:"config,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

type edgeManifest struct {
	From          string `json:"from"`
	To            string `json:"to"`
	Kind          string `json:"kind,omitempty"`
	Condition     string `json:"condition,omitempty"`
	Bounded       bool   `json:"bounded,omitempty"`
	MaxIterations int    `json:"max_iterations,omitempty"`
}

// loadManifest reads and unmarshals a manifest file from path.
func loadManifest(path string) (*manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, pkgerrors.InvalidInput("manifest", err.Error())
	}
	var m manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, pkgerrors.InvalidInput("manifest", "malformed JSON: "+err.Error())
	}
	return &m, nil
}

// build turns m into a compiled graph, reusing package graph's own
// builder+validator rather than duplicating its invariant checks.
func (m *manifest) build() (*graph.CompiledGraph, error) {
	g := graph.New(m.Name)

	for _, n := range m.Nodes {
		if n.ID == graph.StartNodeID || n.ID == graph.EndNodeID {
			continue
		}
		if err := g.AddNode(graph.Node{
			ID:          n.ID,
			Type:        graph.NodeType(n.Type),
			Handler:     n.Handler,
			Condition:   n.Condition,
			SubgraphRef: n.SubgraphRef,
			Config:      n.Config,
			Metadata:    n.Metadata,
		}); err != nil {
			return nil, err
		}
	}

	for _, e := range m.Edges {
		kind := graph.EdgeKind(e.Kind)
		if kind == "" {
			kind = graph.EdgeDirect
		}
		edge := graph.Edge{
			From:          e.From,
			To:            e.To,
			Kind:          kind,
			Condition:     e.Condition,
			Bounded:       e.Bounded,
			MaxIterations: e.MaxIterations,
		}
		if err := g.AddEdge(edge); err != nil {
			return nil, err
		}
	}

	if m.Entry != "" {
		if err := g.SetEntry(m.Entry); err != nil {
			return nil, err
		}
	}

	return g.Compile()
}

// loadState reads an initial-state JSON document from path. An empty
// path yields an empty state.
func loadState(path string) (map[string]any, error) {
	if path == "" {
		return map[string]any{}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, pkgerrors.InvalidInput("state", err.Error())
	}
	var st map[string]any
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, pkgerrors.InvalidInput("state", "malformed JSON: "+err.Error())
	}
	return st, nil
}

// loadSnapshot reads a hil.WorkflowSnapshot from path, for --resume.
func loadSnapshot(path string) (snapshotDoc, error) {
	var snap snapshotDoc
	data, err := os.ReadFile(path)
	if err != nil {
		return snap, pkgerrors.InvalidInput("resume", err.Error())
	}
	if err := json.Unmarshal(data, &snap); err != nil {
		return snap, pkgerrors.InvalidInput("resume", "malformed JSON: "+err.Error())
	}
	return snap, nil
}

type snapshotDoc struct {
	ExecutionID       string         `json:"execution_id"`
	GraphName         string         `json:"graph_name"`
	LastCompletedNode string         `json:"last_completed_node"`
	NextNode          string         `json:"next_node"`
	State             map[string]any `json:"state"`
}
