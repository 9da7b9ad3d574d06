package checkpoint

import "context"

// Checkpointer is the §4.D contract every driver (memory/postgres/
// redis) and the resilient wrapper implement.
type Checkpointer interface {
	// Save persists state+metadata for threadID, with an optional
	// parent checkpoint id, returning the new checkpoint's id.
	Save(ctx context.Context, threadID string, state map[string]any, metadata map[string]any, parentID string) (string, error)

	// Load returns the checkpoint for threadID at checkpointID, or the
	// most recent one when checkpointID is "".
	Load(ctx context.Context, threadID, checkpointID string) (Record, error)

	// List returns checkpoint metadata for threadID, newest first,
	// capped at limit (0 means no cap).
	List(ctx context.Context, threadID string, limit int) ([]Meta, error)

	// Delete removes one checkpoint, or the entire thread's history
	// when checkpointID is "".
	Delete(ctx context.Context, threadID, checkpointID string) error

	// HealthCheck reports whether the driver can currently serve requests.
	HealthCheck(ctx context.Context) bool
}
