package relay

import (
	"sync"
	"time"
)

// IdleTimer terminates the relay after a configurable period without
// qualifying traffic. Touch reschedules the deadline without blocking;
// administrative traffic (ping, isBrowserConnected) never calls it, so a
// CLI merely polling liveness cannot keep the relay alive.
//
// The deadline, not the underlying time.Timer, is authoritative: a firing
// that races a concurrent Touch re-checks the deadline under the lock and
// rearms instead of firing, so a Touch is never silently lost.
type IdleTimer struct {
	mu       sync.Mutex
	duration time.Duration
	deadline time.Time
	timer    *time.Timer
	fired    bool
	fire     func()
}

// NewIdleTimer creates an armed timer that calls fire once the duration
// elapses without a Touch. fire is invoked at most once, on the timer's
// own goroutine.
func NewIdleTimer(d time.Duration, fire func()) *IdleTimer {
	t := &IdleTimer{
		duration: d,
		deadline: time.Now().Add(d),
		fire:     fire,
	}
	t.timer = time.AfterFunc(d, t.expire)
	return t
}

// Touch reschedules the deadline to now + duration. It is a no-op once
// the timer has fired or been stopped.
func (t *IdleTimer) Touch() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.fired {
		return
	}
	t.deadline = time.Now().Add(t.duration)
	t.timer.Reset(t.duration)
}

// Stop cancels the timer. fire will not be invoked after Stop returns
// unless it was already in flight.
func (t *IdleTimer) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.fired = true
	t.timer.Stop()
}

func (t *IdleTimer) expire() {
	t.mu.Lock()
	if t.fired {
		t.mu.Unlock()
		return
	}
	// A Touch may have moved the deadline after this firing was scheduled.
	if remaining := time.Until(t.deadline); remaining > 0 {
		t.timer.Reset(remaining)
		t.mu.Unlock()
		return
	}
	t.fired = true
	t.mu.Unlock()
	t.fire()
}
