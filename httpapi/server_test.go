package httpapi_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/duragraph/graphrt/checkpoint/memory"
	"github.com/duragraph/graphrt/config"
	"github.com/duragraph/graphrt/engine"
	"github.com/duragraph/graphrt/graph"
	"github.com/duragraph/graphrt/httpapi"
	"github.com/duragraph/graphrt/registry"
	"github.com/duragraph/graphrt/registry/examples"
	"github.com/duragraph/graphrt/resilience"
	"github.com/duragraph/graphrt/state"
)

func newTestServer(t *testing.T, authToken string) (*httptest.Server, *httpapi.Handler) {
	t.Helper()
	reg := registry.New()
	reg.Register("echo", examples.Echo)
	reg.RegisterCondition("always-true", func(ctx context.Context, st *state.State, params map[string]any) (bool, error) {
		return true, nil
	})

	rcfg := resilience.DefaultConfig(8)
	rcfg.RetryPolicy.MaxAttempts = 1
	mgr := resilience.NewManager("test-httpapi", rcfg)

	cfg := config.EngineConfig{MaxConcurrency: 4, DeadlockTimeout: time.Second, StreamBufferSize: 4, MaxRecursionDepth: 3}
	e := engine.New(reg, mgr, cfg, false)

	cp := memory.New()

	srv, h := httpapi.New(e, cp, httpapi.ServerConfig{ServiceName: "graphrt-test", AuthToken: authToken})

	g := graph.New("linear")
	require.NoError(t, g.AddNode(graph.Node{ID: "step", Type: graph.NodeTypeAgent, Handler: "echo", Config: map[string]any{"input": "hi", "output_key": "out"}}))
	require.NoError(t, g.AddEdge(graph.Direct(graph.StartNodeID, "step")))
	require.NoError(t, g.AddEdge(graph.Direct("step", graph.EndNodeID)))
	cg, err := g.Compile()
	require.NoError(t, err)
	h.RegisterGraph("linear", cg)

	return httptest.NewServer(srv), h
}

func TestServer_HealthzReturnsOK(t *testing.T) {
	ts, _ := newTestServer(t, "")
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestServer_InfoListsRegisteredGraphs(t *testing.T) {
	ts, _ := newTestServer(t, "")
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/info")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var info httpapi.InfoResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&info))
	assert.Contains(t, info.Graphs, "linear")
}

func TestServer_InvokeRunsRegisteredGraph(t *testing.T) {
	ts, _ := newTestServer(t, "")
	defer ts.Close()

	body, _ := json.Marshal(httpapi.InvokeRequest{State: map[string]any{"seed": 1}})
	resp, err := http.Post(ts.URL+"/graphs/linear/invoke", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out httpapi.InvokeResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, "linear", out.GraphName)
	assert.Equal(t, "hi", out.FinalState["out"])
}

func TestServer_InvokeUnknownGraphReturns404(t *testing.T) {
	ts, _ := newTestServer(t, "")
	defer ts.Close()

	body, _ := json.Marshal(httpapi.InvokeRequest{})
	resp, err := http.Post(ts.URL+"/graphs/missing/invoke", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestServer_AuthRejectsMissingAndWrongToken(t *testing.T) {
	ts, _ := newTestServer(t, "s3cret")
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/info")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	req, err := http.NewRequest(http.MethodGet, ts.URL+"/info", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer wrong")
	resp2, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp2.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp2.StatusCode)
}

func TestServer_AuthSkipsHealthz(t *testing.T) {
	ts, _ := newTestServer(t, "s3cret")
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestServer_AuthAcceptsCorrectToken(t *testing.T) {
	ts, _ := newTestServer(t, "s3cret")
	defer ts.Close()

	req, err := http.NewRequest(http.MethodGet, ts.URL+"/info", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer s3cret")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestServer_ListCheckpointsWithoutCheckpointerReturns503(t *testing.T) {
	reg := registry.New()
	reg.Register("echo", examples.Echo)
	rcfg := resilience.DefaultConfig(8)
	mgr := resilience.NewManager("test-httpapi-nocp", rcfg)
	cfg := config.EngineConfig{MaxConcurrency: 4, DeadlockTimeout: time.Second, StreamBufferSize: 4, MaxRecursionDepth: 3}
	e := engine.New(reg, mgr, cfg, false)

	srv, _ := httpapi.New(e, nil, httpapi.ServerConfig{ServiceName: "graphrt-test-nocp"})
	ts := httptest.NewServer(srv)
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/checkpoints/some-thread")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}
