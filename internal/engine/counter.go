package engine

import "maps"

// Counter counts occurrences of keys. The zero count is never stored.
//
// Counter is not safe for concurrent use; the engine owns its counters from
// a single goroutine.
type Counter[K ~string] struct {
	counts map[K]int
}

// NewCounter creates an empty counter.
func NewCounter[K ~string]() *Counter[K] {
	return &Counter[K]{counts: make(map[K]int)}
}

// Get returns the count for k (0 if never incremented).
func (c *Counter[K]) Get(k K) int {
	return c.counts[k]
}

// Add increments the count for k by n.
func (c *Counter[K]) Add(k K, n int) {
	if n == 0 {
		return
	}
	c.counts[k] += n
}

// Len returns the number of distinct keys with a non-zero count.
func (c *Counter[K]) Len() int {
	return len(c.counts)
}

// Snapshot returns a copy of the counts.
func (c *Counter[K]) Snapshot() map[K]int {
	return maps.Clone(c.counts)
}
