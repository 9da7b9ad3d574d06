// Package registry implements the node handler registry (spec §6):
// agents/tools register under a string name with a handler signature
// (state, params, context) → (patch, outcome); conditional nodes
// register named condition functions the same way. Grounded on the
// teacher's execution.GetExecutorForNodeType switch, generalized from
// a fixed type→executor mapping to an open, caller-populated name→
// handler map, the way LangGraph-style runtimes let callers register
// arbitrary node functions.
package registry

import (
	"sync"

	"github.com/duragraph/graphrt/exec"
	"github.com/duragraph/graphrt/pkgerrors"
)

// Registry is a thread-safe name→handler and name→condition table.
// Safe for concurrent Register/Get calls, matching spec §5's
// "read-mostly" treatment of registries shared across node dispatches.
type Registry struct {
	mu         sync.RWMutex
	handlers   map[string]exec.Handler
	conditions map[string]exec.Condition
}

// New returns an empty Registry.
func New() *Registry {
	return &Registry{
		handlers:   make(map[string]exec.Handler),
		conditions: make(map[string]exec.Condition),
	}
}

// Register adds or replaces the handler registered under name.
func (r *Registry) Register(name string, h exec.Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[name] = h
}

// Get resolves name to a handler, failing with pkgerrors.UnknownHandler
// (spec §6: "Unknown names cause the executor to fail with
// UnknownHandler(name)").
func (r *Registry) Get(name string) (exec.Handler, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handlers[name]
	if !ok {
		return nil, pkgerrors.UnknownHandler(name)
	}
	return h, nil
}

// RegisterCondition adds or replaces the condition registered under name.
func (r *Registry) RegisterCondition(name string, c exec.Condition) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.conditions[name] = c
}

// GetCondition resolves name to a condition function.
func (r *Registry) GetCondition(name string) (exec.Condition, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.conditions[name]
	if !ok {
		return nil, pkgerrors.UnknownHandler(name)
	}
	return c, nil
}

var (
	_ exec.HandlerLookup   = (*Registry)(nil)
	_ exec.ConditionLookup = (*Registry)(nil)
)
