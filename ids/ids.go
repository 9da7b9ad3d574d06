// Package ids centralizes identifier generation for the runtime.
//
// Checkpoint and execution ids use ULIDs so they sort lexicographically
// by creation order, satisfying the checkpointer contract's "sortable"
// requirement without a separate sequence. Breakpoint and request ids
// use UUIDv4, matching the rest of the corpus; interrupt ids are built
// by package hil from the execution id and a sequence number.
package ids

import (
	"crypto/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(rand.Reader, 0)
)

// NewULID returns a new 26-character, creation-ordered identifier.
func NewULID() string {
	entropyMu.Lock()
	defer entropyMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), entropy).String()
}

// NewUUID returns a new random UUIDv4 string.
func NewUUID() string {
	return uuid.New().String()
}

// IsValidULID reports whether s parses as a ULID.
func IsValidULID(s string) bool {
	_, err := ulid.Parse(s)
	return err == nil
}
