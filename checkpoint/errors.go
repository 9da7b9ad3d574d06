package checkpoint

import "github.com/duragraph/graphrt/pkgerrors"

// ErrNotFound is returned by Load when the requested checkpoint (or
// thread) does not exist.
func ErrNotFound(threadID, checkpointID string) *pkgerrors.RuntimeError {
	return pkgerrors.NotFound("checkpoint", checkpointID).WithDetails("thread_id", threadID)
}
