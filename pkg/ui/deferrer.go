package ui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// deferredMsg carries a TeaDeferrer callback back onto the update loop.
type deferredMsg struct {
	seq uint64
}

// TeaDeferrer runs grid callbacks on the bubbletea update loop. AfterFunc
// queues a tea.Tick; the model hands the resulting message to Fire, so the
// callback runs on the same goroutine as every other grid mutation.
type TeaDeferrer struct {
	seq   uint64
	tasks map[uint64]func()
	cmds  []tea.Cmd
}

// NewTeaDeferrer creates an empty deferrer.
func NewTeaDeferrer() *TeaDeferrer {
	return &TeaDeferrer{tasks: make(map[uint64]func())}
}

// AfterFunc schedules fn. The tick is only delivered once the command
// returned by Cmd has been handed to the program.
func (d *TeaDeferrer) AfterFunc(delay time.Duration, fn func()) func() bool {
	d.seq++
	seq := d.seq
	d.tasks[seq] = fn
	d.cmds = append(d.cmds, tea.Tick(delay, func(time.Time) tea.Msg {
		return deferredMsg{seq: seq}
	}))
	return func() bool {
		if _, ok := d.tasks[seq]; !ok {
			return false
		}
		delete(d.tasks, seq)
		return true
	}
}

// Cmd drains the ticks queued since the last call.
func (d *TeaDeferrer) Cmd() tea.Cmd {
	if len(d.cmds) == 0 {
		return nil
	}
	cmds := d.cmds
	d.cmds = nil
	if len(cmds) == 1 {
		return cmds[0]
	}
	return tea.Batch(cmds...)
}

// Fire runs the callback a tick was queued for. Stopped callbacks are
// skipped. It reports whether a callback ran.
func (d *TeaDeferrer) Fire(msg deferredMsg) bool {
	fn, ok := d.tasks[msg.seq]
	if !ok {
		return false
	}
	delete(d.tasks, msg.seq)
	fn()
	return true
}

// Pending returns the number of callbacks waiting for their tick.
func (d *TeaDeferrer) Pending() int {
	return len(d.tasks)
}
