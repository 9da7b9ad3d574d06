package httpapi

import "time"

// ErrorResponse is the JSON shape of every non-2xx response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// InvokeRequest is the body of POST /graphs/:name/invoke and
// POST /graphs/:name/stream.
type InvokeRequest struct {
	State map[string]any `json:"state"`
}

// InvokeResponse is the body of a successful POST /graphs/:name/invoke.
type InvokeResponse struct {
	GraphName  string         `json:"graph_name"`
	FinalState map[string]any `json:"final_state"`
}

// CheckpointResponse is one checkpoint record as returned by the
// inspection endpoints.
type CheckpointResponse struct {
	ID        string         `json:"id"`
	ThreadID  string         `json:"thread_id"`
	ParentID  string         `json:"parent_id,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	State     map[string]any `json:"state,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// CheckpointMetaResponse is a checkpoint's metadata only, as returned
// by the list endpoint.
type CheckpointMetaResponse struct {
	ID        string    `json:"id"`
	ThreadID  string    `json:"thread_id"`
	ParentID  string    `json:"parent_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// InfoResponse is the body of GET /info.
type InfoResponse struct {
	Version      string   `json:"version"`
	GoVersion    string   `json:"go_version"`
	Platform     string   `json:"platform"`
	Architecture string   `json:"arch"`
	Graphs       []string `json:"graphs"`
}
