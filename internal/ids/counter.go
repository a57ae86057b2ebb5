package ids

import "sync/atomic"

// Counter is a monotonic id source.
//
// Thread-safety: Counter is safe for concurrent use (atomic operations).
// The Allocator additionally serializes callers per key, so seeding and
// incrementing never interleave.
type Counter struct {
	last atomic.Int64
}

// NewCounter creates a counter whose first Next returns 1.
func NewCounter() *Counter {
	return &Counter{}
}

// NewCounterAt creates a counter whose first Next returns last+1.
func NewCounterAt(last int64) *Counter {
	c := &Counter{}
	c.last.Store(last)
	return c
}

// Next returns the next id and advances the counter.
// Calls are linearizable - each call returns a unique, increasing value.
func (c *Counter) Next() int64 {
	return c.last.Add(1)
}

// Current returns the last id handed out without advancing.
func (c *Counter) Current() int64 {
	return c.last.Load()
}
