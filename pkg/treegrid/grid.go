package treegrid

import (
	"fmt"
	"time"

	"github.com/vanderheijden86/treegrid/pkg/debug"
	"github.com/vanderheijden86/treegrid/pkg/metrics"
)

// Stats counts the recompute decisions of a grid.
type Stats struct {
	FullRebuilds   int
	BranchRebuilds int
	Coalesced      int
	Skipped        int
}

// Grid presents a Tree as a set of columns.
//
// A grid does nothing until Attach is called. From then on it keeps its
// projection and columns in sync with the tree:
//   - column count, row height or separator changes rebuild everything
//     immediately;
//   - child list changes are coalesced and applied once the window elapses;
//   - a collapsed flag change on a row that has been rendered before patches
//     only that row's branch, immediately.
type Grid struct {
	tree  *Tree
	proj  projector
	sched *scheduler

	columns     []*Column
	columnCount int
	rowHeight   int
	separator   *Separator
	widths      map[int]*WidthSpec
	factories   []ColumnFactory

	deferrer Deferrer
	window   time.Duration

	attached    bool
	initialized bool
	busy        bool

	onInit    []func()
	onContent []func(*Column)
	stats     Stats
}

// nopDeferrer never fires; pending work waits for Flush.
type nopDeferrer struct{}

func (nopDeferrer) AfterFunc(time.Duration, func()) func() bool {
	return func() bool { return true }
}

// New creates a grid over a new, empty tree unless WithTree is given.
//
// Without WithDeferrer nothing schedules the coalesced recompute: row
// insertions and removals stay pending until Flush is called. Collapse and
// expand still apply immediately.
func New(opts ...Option) *Grid {
	g := &Grid{
		proj:        newProjector(),
		columnCount: 1,
		rowHeight:   DefaultRowHeight,
		widths:      make(map[int]*WidthSpec),
		window:      DefaultCoalesceWindow,
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.tree == nil {
		g.tree = NewTree()
	}
	if g.deferrer == nil {
		g.deferrer = nopDeferrer{}
	}
	g.tree.obs = g
	g.sched = newScheduler(g.window, g.deferrer, g.flushPending)
	return g
}

// Tree returns the rows presented by the grid.
func (g *Grid) Tree() *Tree {
	return g.tree
}

// Attach connects the grid to its rendering context: the projection and
// columns are built from scratch. The first Attach of a grid also fires the
// OnInitialize callbacks, once the projection is complete.
func (g *Grid) Attach() {
	if g.attached {
		return
	}
	g.attached = true
	g.fullRebuild(true)
	if !g.initialized {
		g.initialized = true
		for _, fn := range g.onInit {
			fn()
		}
	}
}

// Detach stops keeping the grid in sync. A pending recompute is dropped; the
// next Attach rebuilds everything.
func (g *Grid) Detach() {
	g.attached = false
	g.sched.cancel()
}

// Attached reports whether the grid is attached.
func (g *Grid) Attached() bool {
	return g.attached
}

// Initialized reports whether the initial projection has completed.
func (g *Grid) Initialized() bool {
	return g.initialized
}

// OnInitialize registers fn to run once, after the first projection.
func (g *Grid) OnInitialize(fn func()) {
	g.onInit = append(g.onInit, fn)
}

// OnContentChange registers fn to run after each column content swap.
func (g *Grid) OnContentChange(fn func(*Column)) {
	g.onContent = append(g.onContent, fn)
}

// ColumnCount returns the number of visible columns.
func (g *Grid) ColumnCount() int {
	return g.columnCount
}

// SetColumnCount changes the number of visible columns.
func (g *Grid) SetColumnCount(n int) error {
	if n < 1 {
		return fmt.Errorf("column count %d: %w", n, ErrInvalidColumnCount)
	}
	if n == g.columnCount {
		return nil
	}
	g.columnCount = n
	g.structuralChanged("column count")
	return nil
}

// RowHeight returns the fixed row height.
func (g *Grid) RowHeight() int {
	return g.rowHeight
}

// SetRowHeight changes the fixed row height.
func (g *Grid) SetRowHeight(h int) error {
	if h <= 0 {
		return fmt.Errorf("row height %d: %w", h, ErrInvalidRowHeight)
	}
	if h == g.rowHeight {
		return nil
	}
	g.rowHeight = h
	g.structuralChanged("row height")
	return nil
}

// RowSeparator returns the row separator, or nil.
func (g *Grid) RowSeparator() *Separator {
	return g.separator
}

// SetRowSeparator changes the row separator; nil removes it.
func (g *Grid) SetRowSeparator(s *Separator) {
	g.separator = s
	g.structuralChanged("row separator")
}

// SetColumnWidth sets the width of column index, or removes it when w is
// nil. A constructed column is updated in place; otherwise the width is
// kept for the next column rebuild.
func (g *Grid) SetColumnWidth(index int, w *WidthSpec) error {
	if index < 0 {
		return fmt.Errorf("column width %d: %w", index, ErrInvalidColumn)
	}
	if w == nil {
		delete(g.widths, index)
	} else {
		g.widths[index] = w.clone()
	}
	if index < len(g.columns) {
		g.columns[index].Width = g.widths[index].clone()
	}
	return nil
}

// ColumnWidth returns a copy of the configured width of column index.
func (g *Grid) ColumnWidth(index int) *WidthSpec {
	return g.widths[index].clone()
}

// Columns returns the constructed columns.
func (g *Grid) Columns() []*Column {
	out := make([]*Column, len(g.columns))
	copy(out, g.columns)
	return out
}

// VisibleRows returns the rows of the current projection, in order.
// Rows removed from the tree while a recompute is pending are left out,
// so positions here can trail ProjectedRows until the next recompute.
func (g *Grid) VisibleRows() []RowID {
	return g.proj.rows(g.tree)
}

// ProjectedRows returns every row of the current projection, including
// rows already removed from the tree. Index i matches cell i of each
// column's content.
func (g *Grid) ProjectedRows() []RowID {
	out := make([]RowID, len(g.proj.visible))
	for i, ptr := range g.proj.visible {
		out[i] = ptr.row
	}
	return out
}

// VisibleIndex returns the position of id in VisibleRows, or -1 when id
// is not projected or has been removed from the tree.
func (g *Grid) VisibleIndex(id RowID) int {
	ptr := g.proj.lookup(id)
	if ptr == nil || !g.tree.Contains(id) {
		return -1
	}
	pos := g.proj.position(ptr, 0)
	if pos < 0 {
		return -1
	}
	dead := 0
	for _, p := range g.proj.visible[:pos] {
		if !g.tree.Contains(p.row) {
			dead++
		}
	}
	return pos - dead
}

// CellAt returns the cell of id for column; see Tree.CellAt.
func (g *Grid) CellAt(id RowID, column int) (*Cell, error) {
	return g.tree.CellAt(id, column)
}

// State returns the scheduler state.
func (g *Grid) State() SchedulerState {
	return g.sched.state
}

// Flush runs a pending recompute now instead of waiting for the window.
func (g *Grid) Flush() bool {
	return g.sched.flushNow()
}

// Refresh rebuilds the whole projection and all column content.
func (g *Grid) Refresh() {
	if !g.attached {
		return
	}
	g.fullRebuild(false)
}

// RefreshBranch rebuilds the visible descendants of id only.
func (g *Grid) RefreshBranch(id RowID) {
	if !g.attached {
		return
	}
	g.updateBranch(id)
}

// Stats returns the recompute counters.
func (g *Grid) Stats() Stats {
	s := g.stats
	s.Coalesced = g.sched.coalesced
	return s
}

func (g *Grid) rowsChanged(parent RowID) {
	if !g.attached {
		return
	}
	g.sched.requestRows(parent)
}

func (g *Grid) collapsedChanged(id RowID) {
	if !g.attached {
		return
	}
	if g.tree.CellCount(id) == 0 {
		// never rendered; the next rebuild picks up the flag
		return
	}
	g.updateBranch(id)
}

func (g *Grid) rebuilding() bool {
	return g.busy
}

func (g *Grid) structuralChanged(what string) {
	if !g.attached {
		return
	}
	debug.Log("treegrid: %s changed, rebuilding columns", what)
	g.fullRebuild(true)
}

// flushPending runs when the coalescing window elapses. A single dirty
// branch that is currently visible is patched in place; anything else
// rebuilds the projection.
func (g *Grid) flushPending() {
	dirty, rootDirty := g.sched.take()
	if !g.attached {
		return
	}
	if !rootDirty && len(dirty) == 1 && g.tree.Contains(dirty[0]) {
		if g.proj.lookup(dirty[0]) == nil {
			debug.Log("treegrid: row %d is hidden, nothing to recompute", dirty[0])
			g.stats.Skipped++
			metrics.RecomputeSkipped.Inc()
			return
		}
		g.updateBranch(dirty[0])
		return
	}
	g.fullRebuild(false)
}

func (g *Grid) fullRebuild(columns bool) {
	g.sched.cancel()

	g.busy = true
	defer func() { g.busy = false }()

	g.proj.projectAll(g.tree)
	if columns || len(g.columns) != g.columnCount {
		g.rebuildColumns()
	}
	g.rebuildAllCells()
	g.stats.FullRebuilds++
	debug.Log("treegrid: full rebuild, %d visible rows", len(g.proj.visible))
}

func (g *Grid) updateBranch(id RowID) {
	ptr := g.proj.lookup(id)
	if ptr == nil || !g.tree.Contains(id) {
		debug.Log("treegrid: no pointer for row %d, branch rebuild skipped", id)
		g.stats.Skipped++
		metrics.RecomputeSkipped.Inc()
		return
	}

	if !g.patchOrFail(ptr) {
		debug.Log("treegrid: branch of row %d unresolved, falling back to full rebuild", id)
		g.fullRebuild(false)
	}
}

func (g *Grid) patchOrFail(ptr *rowPointer) bool {
	g.busy = true
	defer func() { g.busy = false }()

	oldLen := len(g.proj.visible)
	start, oldEnd, segment, ok := g.proj.replaceBranch(g.tree, ptr)
	if !ok {
		return false
	}
	if len(g.columns) != g.columnCount {
		g.rebuildColumns()
		g.rebuildAllCells()
	} else {
		g.patchBranch(ptr, start, oldEnd, oldLen, segment)
	}
	g.stats.BranchRebuilds++
	return true
}
