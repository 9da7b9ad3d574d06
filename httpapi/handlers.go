// Package httpapi is the runtime's thin HTTP front door (spec §10
// domain stack: "a collaborator surface analogous to the teacher's
// infrastructure/http, not a spec component itself"), exposing
// invoke/stream and checkpoint inspection over the engine built by
// package engine. Grounded on the teacher's internal/infrastructure/
// http/{handlers,middleware} package shape.
package httpapi

import (
	"net/http"
	"runtime"
	"sort"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/duragraph/graphrt/checkpoint"
	"github.com/duragraph/graphrt/engine"
	"github.com/duragraph/graphrt/graph"
)

// Handler holds the collaborators every route needs.
type Handler struct {
	eng     *engine.Engine
	cp      checkpoint.Checkpointer
	graphs  map[string]*graph.CompiledGraph
	version string
}

// NewHandler builds a Handler. cp may be nil, in which case the
// checkpoint inspection routes respond 503.
func NewHandler(eng *engine.Engine, cp checkpoint.Checkpointer, version string) *Handler {
	return &Handler{
		eng:     eng,
		cp:      cp,
		graphs:  make(map[string]*graph.CompiledGraph),
		version: version,
	}
}

// RegisterGraph makes cg invokable at /graphs/:name, keyed by name.
func (h *Handler) RegisterGraph(name string, cg *graph.CompiledGraph) {
	h.graphs[name] = cg
}

func (h *Handler) lookupGraph(c echo.Context) (*graph.CompiledGraph, error) {
	name := c.Param("name")
	cg, ok := h.graphs[name]
	if !ok {
		return nil, echo.NewHTTPError(http.StatusNotFound, "graph not registered: "+name)
	}
	return cg, nil
}

// Invoke handles POST /graphs/:name/invoke.
func (h *Handler) Invoke(c echo.Context) error {
	cg, err := h.lookupGraph(c)
	if err != nil {
		return err
	}

	var req InvokeRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid_request", Message: err.Error()})
	}

	final, err := h.eng.Invoke(c.Request().Context(), cg, req.State)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "execution_failed", Message: err.Error()})
	}

	return c.JSON(http.StatusOK, InvokeResponse{GraphName: cg.Name, FinalState: final})
}

// Stream handles POST /graphs/:name/stream, relaying engine.Stream's
// StateUpdates as server-sent events until the Final update closes the
// connection.
func (h *Handler) Stream(c echo.Context) error {
	cg, err := h.lookupGraph(c)
	if err != nil {
		return err
	}

	var req InvokeRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid_request", Message: err.Error()})
	}

	resp := c.Response()
	resp.Header().Set(echo.HeaderContentType, "text/event-stream")
	resp.Header().Set("Cache-Control", "no-cache")
	resp.Header().Set("Connection", "keep-alive")
	resp.WriteHeader(http.StatusOK)

	updates := h.eng.Stream(c.Request().Context(), cg, req.State)
	enc := newSSEEncoder(resp)
	for update := range updates {
		if err := enc.Encode(update); err != nil {
			return nil
		}
		resp.Flush()
		if update.Final {
			break
		}
	}
	return nil
}

// GetCheckpoint handles GET /checkpoints/:thread_id/:checkpoint_id
// (checkpoint_id may be empty, meaning "latest").
func (h *Handler) GetCheckpoint(c echo.Context) error {
	if h.cp == nil {
		return c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "unavailable", Message: "no checkpointer configured"})
	}
	threadID := c.Param("thread_id")
	checkpointID := c.Param("checkpoint_id")

	rec, err := h.cp.Load(c.Request().Context(), threadID, checkpointID)
	if err != nil {
		return c.JSON(http.StatusNotFound, ErrorResponse{Error: "not_found", Message: err.Error()})
	}

	return c.JSON(http.StatusOK, CheckpointResponse{
		ID:        rec.ID,
		ThreadID:  rec.ThreadID,
		ParentID:  rec.ParentID,
		CreatedAt: rec.CreatedAt,
		State:     rec.State,
		Metadata:  rec.Metadata,
	})
}

// ListCheckpoints handles GET /checkpoints/:thread_id, newest first.
func (h *Handler) ListCheckpoints(c echo.Context) error {
	if h.cp == nil {
		return c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "unavailable", Message: "no checkpointer configured"})
	}
	threadID := c.Param("thread_id")

	limit := 0
	if l := c.QueryParam("limit"); l != "" {
		if n, err := parsePositiveInt(l); err == nil {
			limit = n
		}
	}

	metas, err := h.cp.List(c.Request().Context(), threadID, limit)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal_error", Message: err.Error()})
	}

	out := make([]CheckpointMetaResponse, 0, len(metas))
	for _, m := range metas {
		out = append(out, CheckpointMetaResponse{ID: m.ID, ThreadID: m.ThreadID, ParentID: m.ParentID, CreatedAt: m.CreatedAt})
	}
	return c.JSON(http.StatusOK, out)
}

// DeleteCheckpoint handles DELETE /checkpoints/:thread_id/:checkpoint_id.
func (h *Handler) DeleteCheckpoint(c echo.Context) error {
	if h.cp == nil {
		return c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "unavailable", Message: "no checkpointer configured"})
	}
	threadID := c.Param("thread_id")
	checkpointID := c.Param("checkpoint_id")

	if err := h.cp.Delete(c.Request().Context(), threadID, checkpointID); err != nil {
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal_error", Message: err.Error()})
	}
	return c.NoContent(http.StatusNoContent)
}

// Healthz handles GET /healthz.
func (h *Handler) Healthz(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]bool{"ok": true})
}

// Info handles GET /info.
func (h *Handler) Info(c echo.Context) error {
	names := make([]string, 0, len(h.graphs))
	for name := range h.graphs {
		names = append(names, name)
	}
	sort.Strings(names)

	return c.JSON(http.StatusOK, InfoResponse{
		Version:      h.version,
		GoVersion:    runtime.Version(),
		Platform:     runtime.GOOS,
		Architecture: runtime.GOARCH,
		Graphs:       names,
	})
}

func parsePositiveInt(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "limit must be a non-negative integer")
	}
	return n, nil
}
