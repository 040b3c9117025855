package relay

import "sync"

// Table maps in-flight correlation ids to the CLI connections awaiting
// their replies. Entries are never expired by the table itself: a request
// the browser never answers stays until the process exits. The pending
// gauge in metrics makes that population visible.
type Table struct {
	mu      sync.Mutex
	waiting map[string]*Conn
}

// NewTable creates an empty pending request table.
func NewTable() *Table {
	return &Table{waiting: make(map[string]*Conn)}
}

// Insert records c as the waiter for id. Ids are caller-generated and
// assumed unique, so a duplicate is refused: Insert returns false and the
// existing entry is left untouched.
func (t *Table) Insert(id string, c *Conn) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, exists := t.waiting[id]; exists {
		return false
	}
	t.waiting[id] = c
	return true
}

// Take atomically removes and returns the waiter for id. The second return
// is false if no entry exists.
func (t *Table) Take(id string) (*Conn, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	c, ok := t.waiting[id]
	if ok {
		delete(t.waiting, id)
	}
	return c, ok
}

// Len returns the number of in-flight entries.
func (t *Table) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.waiting)
}
