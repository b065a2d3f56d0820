package viewer

import (
	"strconv"
	"sync"
)

// Cache keys mirror the resources the server exposes.
const (
	TasksKey        = "/api/tasks"
	SprintsKey      = "/api/sprints"
	ActiveSprintKey = "/api/sprints/active"
)

func TaskKey(id int) string {
	return TasksKey + "/" + strconv.Itoa(id)
}

func SprintKey(id int) string {
	return SprintsKey + "/" + strconv.Itoa(id)
}

// entry is a two-phase cache slot: an optimistic pending value layered over
// the committed one. Readers see the pending value until it is either
// committed or rolled back.
type entry struct {
	committed  any
	pending    any
	hasPending bool
	valid      bool
}

// Cache is the viewer's local view of server state. Invalidate is a distinct
// primitive from Set: an invalidated key keeps no value and signals the
// surrounding fetch layer to refetch.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]*entry
}

func NewCache() *Cache {
	return &Cache{
		entries: make(map[string]*entry),
	}
}

// Get returns the current value for the key: the pending value if an
// optimistic write is in flight, the committed one otherwise. The second
// result is false for missing or invalidated keys.
func (c *Cache) Get(key string) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[key]
	if !ok || !e.valid {
		return nil, false
	}
	if e.hasPending {
		return e.pending, true
	}
	return e.committed, true
}

// Set writes a confirmed value, discarding any pending one.
func (c *Cache) Set(key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = &entry{committed: value, valid: true}
}

// Invalidate marks the key stale so the next read forces a refetch.
func (c *Cache) Invalidate(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[key]; ok {
		e.valid = false
		e.pending = nil
		e.hasPending = false
	}
}

// Evict removes the key entirely.
func (c *Cache) Evict(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

// StagePending installs an optimistic value that readers observe
// immediately, before the server has confirmed the mutation.
func (c *Cache) StagePending(key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		e = &entry{}
		c.entries[key] = e
	}
	e.pending = value
	e.hasPending = true
	e.valid = true
}

// Commit promotes the pending value to committed after the server confirmed
// the mutation.
func (c *Cache) Commit(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok || !e.hasPending {
		return
	}
	e.committed = e.pending
	e.pending = nil
	e.hasPending = false
}

// Rollback discards the pending value after a failed request, restoring the
// committed one.
func (c *Cache) Rollback(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		return
	}
	e.pending = nil
	e.hasPending = false
	if e.committed == nil {
		delete(c.entries, key)
	}
}

// Valid reports whether the key holds a usable value.
func (c *Cache) Valid(key string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[key]
	return ok && e.valid
}
