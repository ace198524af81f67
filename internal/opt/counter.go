package opt

import "sync/atomic"

type counter struct {
	c atomic.Int64
}

// Add adjusts the counter by delta.
func (c *counter) Add(delta int64) {
	c.c.Add(delta)
}

// Load returns the current count.
func (c *counter) Load() int64 {
	return c.c.Load()
}

// Store resets the counter.
func (c *counter) Store(v int64) {
	c.c.Store(v)
}
