package relay

import "sync"

// Registry holds the single designated browser connection. It is one
// mutable slot: registering a new browser silently replaces whichever was
// registered before, last writer wins. No queueing, no backpressure.
type Registry struct {
	mu      sync.Mutex
	browser *Conn
}

// Register makes c the browser connection, replacing any previous one.
func (r *Registry) Register(c *Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.browser = c
}

// Current returns the registered browser connection, or nil.
func (r *Registry) Current() *Conn {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.browser
}

// ClearIf removes the registration only if c is the connection currently
// registered. This guards against a stale close event from a replaced
// browser clearing a newer registration. Returns true if the slot was
// cleared.
func (r *Registry) ClearIf(c *Conn) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.browser != c {
		return false
	}
	r.browser = nil
	return true
}
