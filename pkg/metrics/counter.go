package metrics

import "sync/atomic"

// Counter is a monotonically increasing event count.
type Counter struct {
	name string
	n    atomic.Int64
}

func newCounter(name string) *Counter {
	return &Counter{name: name}
}

// Inc adds one to the counter.
func (c *Counter) Inc() {
	if !enabled || c == nil {
		return
	}
	c.n.Add(1)
}

// Name returns the counter name.
func (c *Counter) Name() string {
	return c.name
}

// Value returns the current count.
func (c *Counter) Value() int64 {
	return c.n.Load()
}

// Reset sets the counter back to zero.
func (c *Counter) Reset() {
	c.n.Store(0)
}

// Scheduler and patcher counters.
var (
	RecomputeCoalesced = newCounter("recompute_coalesced")
	RecomputeSkipped   = newCounter("recompute_skipped")
	BoundaryFallback   = newCounter("boundary_fallback")
	ColumnFallback     = newCounter("column_fallback")
	ReentrantMutation  = newCounter("reentrant_mutation")
)

// AllCounters returns all registered counters.
func AllCounters() []*Counter {
	return []*Counter{
		RecomputeCoalesced,
		RecomputeSkipped,
		BoundaryFallback,
		ColumnFallback,
		ReentrantMutation,
	}
}

// CounterValues returns a name -> value snapshot of all non-zero counters.
func CounterValues() map[string]int64 {
	out := make(map[string]int64)
	for _, c := range AllCounters() {
		if v := c.Value(); v != 0 {
			out[c.name] = v
		}
	}
	return out
}
