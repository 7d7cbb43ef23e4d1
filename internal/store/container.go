package store

import "sync"

// Container is a thread-safe holder for the current snapshot of one
// configuration. The only mutation is wholesale replacement after a
// successful reparse; readers always see either the old or the new
// snapshot, never a partially built one.
type Container struct {
	mu      sync.RWMutex
	current *Snapshot
}

func NewContainer() *Container {
	return &Container{}
}

// Load returns the current snapshot, or nil when none has been published.
func (c *Container) Load() *Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.current
}

// Swap atomically replaces the current snapshot.
func (c *Container) Swap(s *Snapshot) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = s
}
