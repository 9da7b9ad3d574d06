package scheduler

import (
	"sync"
	"time"
)

// deadlockWatchdog fires fire(inflight) if timeout elapses with nodes
// still in flight and no intervening progress (spec §4.F: "a watchdog
// raises DeadlockDetected if no node completes within the configured
// timeout while nodes remain in flight"). Every started/completed call
// resets the timer, so the watchdog only fires on a genuine stall.
type deadlockWatchdog struct {
	mu       sync.Mutex
	timeout  time.Duration
	inflight map[string]bool
	timer    *time.Timer
	fire     func(inflight []string)
	stopped  bool
}

func newDeadlockWatchdog(timeout time.Duration, nodeIDs []string, fire func([]string)) *deadlockWatchdog {
	w := &deadlockWatchdog{
		timeout:  timeout,
		inflight: make(map[string]bool, len(nodeIDs)),
		fire:     fire,
	}
	w.timer = time.AfterFunc(timeout, w.onTimeout)
	return w
}

func (w *deadlockWatchdog) started(nodeID string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stopped {
		return
	}
	w.inflight[nodeID] = true
	w.resetLocked()
}

func (w *deadlockWatchdog) completed(nodeID string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stopped {
		return
	}
	delete(w.inflight, nodeID)
	if len(w.inflight) == 0 {
		w.timer.Stop()
		return
	}
	w.resetLocked()
}

func (w *deadlockWatchdog) resetLocked() {
	w.timer.Stop()
	w.timer = time.AfterFunc(w.timeout, w.onTimeout)
}

func (w *deadlockWatchdog) onTimeout() {
	w.mu.Lock()
	if w.stopped || len(w.inflight) == 0 {
		w.mu.Unlock()
		return
	}
	inflight := make([]string, 0, len(w.inflight))
	for id := range w.inflight {
		inflight = append(inflight, id)
	}
	w.mu.Unlock()
	w.fire(inflight)
}

func (w *deadlockWatchdog) stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.stopped = true
	w.timer.Stop()
}
