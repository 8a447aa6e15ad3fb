package treegrid

import (
	"time"

	"github.com/vanderheijden86/treegrid/pkg/debug"
	"github.com/vanderheijden86/treegrid/pkg/metrics"
)

// DefaultCoalesceWindow is the delay during which row-list mutations are
// collapsed into one recompute.
const DefaultCoalesceWindow = 20 * time.Millisecond

// SchedulerState is the state of a grid's update scheduler.
type SchedulerState int

const (
	// StateIdle means no recompute is waiting.
	StateIdle SchedulerState = iota
	// StatePending means a recompute is waiting out the coalescing window.
	StatePending
)

func (s SchedulerState) String() string {
	switch s {
	case StatePending:
		return "pending"
	default:
		return "idle"
	}
}

// scheduler coalesces row-list mutations. The first mutation in an idle
// window arms one deferred flush; later mutations only record which parents
// changed until it fires. The window is never extended, which bounds the
// recompute rate during long bursts.
type scheduler struct {
	window   time.Duration
	deferrer Deferrer
	flush    func()

	state     SchedulerState
	stop      func() bool
	dirty     map[RowID]struct{}
	rootDirty bool
	coalesced int
}

func newScheduler(window time.Duration, d Deferrer, flush func()) *scheduler {
	return &scheduler{
		window:   window,
		deferrer: d,
		flush:    flush,
		dirty:    make(map[RowID]struct{}),
	}
}

// requestRows records that parent's child list changed.
func (s *scheduler) requestRows(parent RowID) {
	if parent == RootID {
		s.rootDirty = true
	} else {
		s.dirty[parent] = struct{}{}
	}

	if s.state == StatePending {
		s.coalesced++
		metrics.RecomputeCoalesced.Inc()
		return
	}
	s.state = StatePending
	s.stop = s.deferrer.AfterFunc(s.window, s.fire)
	debug.Log("treegrid: recompute armed for %v", s.window)
}

func (s *scheduler) fire() {
	if s.state != StatePending {
		return
	}
	s.state = StateIdle
	s.stop = nil
	s.flush()
}

// take returns and clears the recorded changes.
func (s *scheduler) take() (dirty []RowID, rootDirty bool) {
	for id := range s.dirty {
		dirty = append(dirty, id)
	}
	rootDirty = s.rootDirty
	s.dirty = make(map[RowID]struct{})
	s.rootDirty = false
	return dirty, rootDirty
}

// cancel disarms a pending flush and forgets recorded changes. Used when a
// full rebuild supersedes the pending one.
func (s *scheduler) cancel() {
	if s.stop != nil {
		s.stop()
		s.stop = nil
	}
	s.state = StateIdle
	s.take()
}

// flushNow runs a pending flush immediately.
func (s *scheduler) flushNow() bool {
	if s.state != StatePending {
		return false
	}
	if s.stop != nil {
		s.stop()
	}
	s.fire()
	return true
}
