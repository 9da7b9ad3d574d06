// Package pkgerrors provides the runtime's error taxonomy, adapted from
// the teacher's internal/pkg/errors to the failure kinds §7 names:
// Validation, TransientIO, RateLimited, ConditionMiss, ResourceLimit,
// Deadlock and Aborted.
package pkgerrors

import (
	"errors"
	"fmt"
)

// Kind classifies an error for retry/propagation decisions (spec §7).
type Kind string

const (
	KindValidation    Kind = "validation"
	KindTransientIO   Kind = "transient_io"
	KindRateLimited   Kind = "rate_limited"
	KindConditionMiss Kind = "condition_miss"
	KindResourceLimit Kind = "resource_limit"
	KindDeadlock      Kind = "deadlock"
	KindAborted       Kind = "aborted"
	KindInternal      Kind = "internal"
)

// Sentinel base errors, matched with errors.Is.
var (
	ErrNotFound           = errors.New("resource not found")
	ErrInvalidInput       = errors.New("invalid input")
	ErrInvalidState       = errors.New("invalid state")
	ErrTimeout            = errors.New("operation timeout")
	ErrGraphCycle         = errors.New("cycle detected in graph")
	ErrMaxIterations      = errors.New("max iterations exceeded")
	ErrSchemaMismatch     = errors.New("schema mismatch")
	ErrNoMatchingBranch   = errors.New("no matching branch")
	ErrUnknownHandler     = errors.New("unknown handler")
	ErrRecursionLimit     = errors.New("recursion limit exceeded")
	ErrCircularDependency = errors.New("circular dependency")
	ErrDeadlockDetected   = errors.New("deadlock detected")
	ErrAborted            = errors.New("aborted")
	ErrCircuitOpen        = errors.New("circuit breaker open")
	ErrRetryExhausted     = errors.New("retry attempts exhausted")
	ErrIncompatibleGraph  = errors.New("incompatible graph")
)

// RuntimeError wraps an error with a code, a taxonomy kind, and
// structured details, mirroring the teacher's DomainError.
type RuntimeError struct {
	Code      string
	Message   string
	Kind      Kind
	NodeID    string
	Attempt   int
	Retryable bool
	Err       error
	Details   map[string]any
}

func (e *RuntimeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *RuntimeError) Unwrap() error { return e.Err }

// WithDetails attaches a detail key/value and returns the receiver.
func (e *RuntimeError) WithDetails(key string, value any) *RuntimeError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// WithNode annotates the error with the node id that produced it.
func (e *RuntimeError) WithNode(nodeID string) *RuntimeError {
	e.NodeID = nodeID
	return e
}

// New builds a RuntimeError of the given kind.
func New(code string, kind Kind, message string, err error) *RuntimeError {
	return &RuntimeError{Code: code, Kind: kind, Message: message, Err: err, Retryable: kind == KindTransientIO}
}

func NotFound(resource, id string) *RuntimeError {
	return New("NOT_FOUND", KindValidation, fmt.Sprintf("%s not found", resource), ErrNotFound).
		WithDetails("resource", resource).WithDetails("id", id)
}

func InvalidInput(field, reason string) *RuntimeError {
	return New("INVALID_INPUT", KindValidation, fmt.Sprintf("invalid input for field %s", field), ErrInvalidInput).
		WithDetails("field", field).WithDetails("reason", reason)
}

func InvalidState(current, attempted string) *RuntimeError {
	return New("INVALID_STATE", KindValidation, fmt.Sprintf("cannot perform %s in state %s", attempted, current), ErrInvalidState).
		WithDetails("current_state", current).WithDetails("attempted_operation", attempted)
}

func SchemaMismatch(key, reducer string) *RuntimeError {
	return New("SCHEMA_MISMATCH", KindValidation, fmt.Sprintf("reducer %s precondition failed for key %s", reducer, key), ErrSchemaMismatch).
		WithDetails("key", key).WithDetails("reducer", reducer)
}

func NoMatchingBranch(nodeID string) *RuntimeError {
	return New("NO_MATCHING_BRANCH", KindConditionMiss, "no matching branch and no fallback", ErrNoMatchingBranch).WithNode(nodeID)
}

func UnknownHandler(name string) *RuntimeError {
	return New("UNKNOWN_HANDLER", KindValidation, fmt.Sprintf("no handler registered for %q", name), ErrUnknownHandler).
		WithDetails("name", name)
}

func RecursionLimit(depth, max int) *RuntimeError {
	return New("RECURSION_LIMIT", KindResourceLimit, fmt.Sprintf("recursion depth %d exceeds max %d", depth, max), ErrRecursionLimit).
		WithDetails("depth", depth).WithDetails("max_depth", max)
}

func CircularDependency() *RuntimeError {
	return New("CIRCULAR_DEPENDENCY", KindValidation, "circular dependency among executions", ErrCircularDependency)
}

func DeadlockDetected(inflight []string) *RuntimeError {
	return New("DEADLOCK_DETECTED", KindDeadlock, "no node completed before the deadlock watchdog fired", ErrDeadlockDetected).
		WithDetails("inflight_nodes", inflight)
}

func Aborted(reason string) *RuntimeError {
	return New("ABORTED", KindAborted, reason, ErrAborted).WithDetails("reason", reason)
}

func CircuitOpen(name string) *RuntimeError {
	return New("CIRCUIT_OPEN", KindRateLimited, fmt.Sprintf("circuit %q is open", name), ErrCircuitOpen).
		WithDetails("circuit", name)
}

func RetryExhausted(attempts int, cause error) *RuntimeError {
	return New("RETRY_EXHAUSTED", KindTransientIO, fmt.Sprintf("exhausted %d attempts", attempts), ErrRetryExhausted).WithDetails("attempts", attempts).
		withCause(cause)
}

func (e *RuntimeError) withCause(cause error) *RuntimeError {
	if cause != nil {
		e.Err = cause
	}
	return e
}

func IncompatibleGraph(reason string) *RuntimeError {
	return New("INCOMPATIBLE_GRAPH", KindValidation, reason, ErrIncompatibleGraph)
}

func Internal(message string, err error) *RuntimeError {
	return New("INTERNAL_ERROR", KindInternal, message, err)
}

// Is and As proxy to the standard library for convenience, matching the
// teacher's internal/pkg/errors helpers.
func Is(err, target error) bool { return errors.Is(err, target) }
func As(err error, target any) bool { return errors.As(err, target) }
