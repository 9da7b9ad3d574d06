package resilience

import (
	"sync"
	"time"

	"github.com/duragraph/graphrt/pkgerrors"
)

// BreakerState names a circuit breaker's state machine position (spec §4.C).
type BreakerState string

const (
	Closed   BreakerState = "closed"
	Open     BreakerState = "open"
	HalfOpen BreakerState = "half_open"
)

// CircuitBreaker implements spec §4.C's Closed/Open/HalfOpen machine.
type CircuitBreaker struct {
	name string

	failureThreshold  int
	failureWindow     time.Duration
	timeout           time.Duration
	halfOpenMaxCalls  int
	successThreshold  int

	mu               sync.Mutex
	state            BreakerState
	failureTimes     []time.Time
	openedAt         time.Time
	halfOpenInFlight int
	halfOpenSuccess  int
}

// NewCircuitBreaker creates a breaker in the Closed state.
func NewCircuitBreaker(name string, failureThreshold int, failureWindow, timeout time.Duration, halfOpenMaxCalls, successThreshold int) *CircuitBreaker {
	return &CircuitBreaker{
		name:             name,
		failureThreshold: failureThreshold,
		failureWindow:    failureWindow,
		timeout:          timeout,
		halfOpenMaxCalls: halfOpenMaxCalls,
		successThreshold: successThreshold,
		state:            Closed,
	}
}

// State returns the breaker's current state, transitioning Open→HalfOpen
// if timeout has elapsed.
func (b *CircuitBreaker) State() BreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.maybeTransitionToHalfOpenLocked()
	return b.state
}

// IsAllowed reports whether a call may proceed: false iff Open (or
// HalfOpen with its trial-call budget exhausted).
func (b *CircuitBreaker) IsAllowed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.maybeTransitionToHalfOpenLocked()

	switch b.state {
	case Open:
		return false
	case HalfOpen:
		if b.halfOpenInFlight >= b.halfOpenMaxCalls {
			return false
		}
		b.halfOpenInFlight++
		return true
	default:
		return true
	}
}

func (b *CircuitBreaker) maybeTransitionToHalfOpenLocked() {
	if b.state == Open && time.Since(b.openedAt) >= b.timeout {
		b.state = HalfOpen
		b.halfOpenInFlight = 0
		b.halfOpenSuccess = 0
	}
}

// RecordSuccess reports a successful call, closing the circuit from
// HalfOpen once successThreshold consecutive successes accrue.
func (b *CircuitBreaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case HalfOpen:
		b.halfOpenSuccess++
		if b.halfOpenInFlight > 0 {
			b.halfOpenInFlight--
		}
		if b.halfOpenSuccess >= b.successThreshold {
			b.state = Closed
			b.failureTimes = nil
		}
	case Closed:
		b.failureTimes = nil
	}
}

// RecordFailure reports a failed call. In Closed, consecutive failures
// within failureWindow tripping failureThreshold opens the circuit. Any
// failure in HalfOpen immediately re-opens it.
func (b *CircuitBreaker) RecordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := time.Now()
	switch b.state {
	case HalfOpen:
		if b.halfOpenInFlight > 0 {
			b.halfOpenInFlight--
		}
		b.openCircuitLocked(now)
	case Closed:
		b.failureTimes = append(b.failureTimes, now)
		cutoff := now.Add(-b.failureWindow)
		kept := b.failureTimes[:0]
		for _, t := range b.failureTimes {
			if t.After(cutoff) {
				kept = append(kept, t)
			}
		}
		b.failureTimes = kept
		if len(b.failureTimes) >= b.failureThreshold {
			b.openCircuitLocked(now)
		}
	}
}

func (b *CircuitBreaker) openCircuitLocked(now time.Time) {
	b.state = Open
	b.openedAt = now
	b.failureTimes = nil
}

// Guard wraps a raw call error with pkgerrors.CircuitOpen when the
// breaker currently forbids the call.
func (b *CircuitBreaker) Guard() error {
	if !b.IsAllowed() {
		return pkgerrors.CircuitOpen(b.name)
	}
	return nil
}
