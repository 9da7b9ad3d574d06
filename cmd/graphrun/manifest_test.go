package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/duragraph/graphrt/pkgerrors"
)

func writeTempFile(t *testing.T, name, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestManifest_BuildCompilesLinearGraph(t *testing.T) {
	raw := `{
		"name": "linear",
		"nodes": [{"id": "step", "type": "agent", "handler": "echo", "config": {"input": "hi", "output_key": "out"}}],
		"edges": [
			{"from": "__start__", "to": "step"},
			{"from": "step", "to": "__end__"}
		]
	}`
	path := writeTempFile(t, "manifest.json", raw)

	m, err := loadManifest(path)
	require.NoError(t, err)
	assert.Equal(t, "linear", m.Name)

	cg, err := m.build()
	require.NoError(t, err)
	assert.Equal(t, "linear", cg.Name)
}

func TestManifest_BuildRejectsUnknownEdgeEndpoint(t *testing.T) {
	raw := `{
		"name": "bad",
		"nodes": [{"id": "step", "type": "agent", "handler": "echo"}],
		"edges": [{"from": "__start__", "to": "missing"}]
	}`
	path := writeTempFile(t, "manifest.json", raw)

	m, err := loadManifest(path)
	require.NoError(t, err)

	_, err = m.build()
	assert.Error(t, err)
}

func TestManifest_BuildRejectsMalformedJSON(t *testing.T) {
	path := writeTempFile(t, "manifest.json", "{not json")
	_, err := loadManifest(path)
	assert.Error(t, err)
}

func TestLoadState_EmptyPathYieldsEmptyMap(t *testing.T) {
	st, err := loadState("")
	require.NoError(t, err)
	assert.Empty(t, st)
}

func TestLoadState_ParsesJSONDocument(t *testing.T) {
	path := writeTempFile(t, "state.json", `{"seed": 1}`)
	st, err := loadState(path)
	require.NoError(t, err)
	assert.Equal(t, float64(1), st["seed"])
}

func TestLoadSnapshot_ParsesWorkflowSnapshotDoc(t *testing.T) {
	path := writeTempFile(t, "snapshot.json", `{
		"execution_id": "exec-1",
		"graph_name": "linear",
		"next_node": "step",
		"state": {"out": "hi"}
	}`)
	doc, err := loadSnapshot(path)
	require.NoError(t, err)
	assert.Equal(t, "exec-1", doc.ExecutionID)
	assert.Equal(t, "step", doc.NextNode)
}

func TestExitCode_MapsRuntimeErrorKinds(t *testing.T) {
	assert.Equal(t, exitValidation, exitCode(pkgerrors.InvalidInput("field", "bad value")))
	assert.Equal(t, exitDeadlock, exitCode(pkgerrors.DeadlockDetected([]string{"a"})))
	assert.Equal(t, exitAborted, exitCode(pkgerrors.Aborted("user cancelled")))
	assert.Equal(t, exitRuntime, exitCode(pkgerrors.Internal("boom", nil)))
}
