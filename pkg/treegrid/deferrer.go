package treegrid

import (
	"sort"
	"time"
)

// Deferrer runs a callback once after a delay, on the same goroutine that
// drives the grid. The returned stop function cancels a callback that has
// not run yet and reports whether it did so.
type Deferrer interface {
	AfterFunc(d time.Duration, fn func()) (stop func() bool)
}

// ManualClock is a Deferrer driven by explicit Advance calls. It serves
// tests and embedders without an event loop of their own.
type ManualClock struct {
	now   time.Duration
	seq   uint64
	tasks []*manualTask
}

type manualTask struct {
	at   time.Duration
	seq  uint64
	fn   func()
	done bool
}

// NewManualClock creates a clock at time zero.
func NewManualClock() *ManualClock {
	return &ManualClock{}
}

// AfterFunc schedules fn to run once the clock has advanced by d.
func (c *ManualClock) AfterFunc(d time.Duration, fn func()) func() bool {
	c.seq++
	task := &manualTask{at: c.now + d, seq: c.seq, fn: fn}
	c.tasks = append(c.tasks, task)
	return func() bool {
		if task.done {
			return false
		}
		task.done = true
		c.prune()
		return true
	}
}

// Advance moves the clock forward and runs every due callback in schedule
// order. It returns the number of callbacks run.
func (c *ManualClock) Advance(d time.Duration) int {
	c.now += d
	ran := 0
	for {
		due := c.nextDue()
		if due == nil {
			return ran
		}
		due.done = true
		c.prune()
		due.fn()
		ran++
	}
}

// Now returns the elapsed clock time.
func (c *ManualClock) Now() time.Duration {
	return c.now
}

// Pending returns the number of callbacks waiting to run.
func (c *ManualClock) Pending() int {
	return len(c.tasks)
}

func (c *ManualClock) nextDue() *manualTask {
	sort.SliceStable(c.tasks, func(i, j int) bool {
		if c.tasks[i].at != c.tasks[j].at {
			return c.tasks[i].at < c.tasks[j].at
		}
		return c.tasks[i].seq < c.tasks[j].seq
	})
	if len(c.tasks) == 0 || c.tasks[0].at > c.now {
		return nil
	}
	return c.tasks[0]
}

func (c *ManualClock) prune() {
	live := c.tasks[:0]
	for _, t := range c.tasks {
		if !t.done {
			live = append(live, t)
		}
	}
	c.tasks = live
}
