package treegrid

import (
	"fmt"

	"github.com/vanderheijden86/treegrid/pkg/debug"
	"github.com/vanderheijden86/treegrid/pkg/metrics"
)

// RowID uniquely identifies a row within a Tree.
type RowID uint64

// RootID is the parent handle of all top-level rows. It never names a row.
const RootID RowID = 0

// row is one node of the tree arena. Parent and children are stored as
// handles; only the arena owns row lifetime.
type row struct {
	id        RowID
	parent    RowID
	children  []RowID
	collapsed bool
	cells     []*Cell
	populator Populator
}

// treeObserver receives mutation notifications. The Grid implements it.
type treeObserver interface {
	rowsChanged(parent RowID)
	collapsedChanged(id RowID)
	rebuilding() bool
}

// Tree is an arena of rows addressed by RowID.
type Tree struct {
	rows   map[RowID]*row
	roots  []RowID
	nextID RowID
	obs    treeObserver
}

// RowOption configures a row at insertion time.
type RowOption func(*row)

// Collapsed creates the row with its children hidden.
func Collapsed() RowOption {
	return func(r *row) {
		r.collapsed = true
	}
}

// NewTree creates an empty tree.
func NewTree() *Tree {
	return &Tree{
		rows:   make(map[RowID]*row),
		nextID: RootID + 1,
	}
}

// Len returns the number of live rows at any depth.
func (t *Tree) Len() int {
	return len(t.rows)
}

// Contains reports whether id refers to a live row.
func (t *Tree) Contains(id RowID) bool {
	_, ok := t.rows[id]
	return ok
}

// Children returns a copy of the child handles of parent. Use RootID for the
// top-level list.
func (t *Tree) Children(parent RowID) []RowID {
	list, ok := t.childList(parent)
	if !ok {
		return nil
	}
	out := make([]RowID, len(*list))
	copy(out, *list)
	return out
}

// ChildCount returns the number of children of parent.
func (t *Tree) ChildCount(parent RowID) int {
	list, ok := t.childList(parent)
	if !ok {
		return 0
	}
	return len(*list)
}

// Parent returns the parent handle of id (RootID for top-level rows).
func (t *Tree) Parent(id RowID) (RowID, bool) {
	r, ok := t.rows[id]
	if !ok {
		return RootID, false
	}
	return r.parent, true
}

// Depth returns the nesting level of id, 0 for top-level rows and -1 for
// unknown rows.
func (t *Tree) Depth(id RowID) int {
	r, ok := t.rows[id]
	if !ok {
		return -1
	}
	depth := 0
	for r.parent != RootID {
		r = t.rows[r.parent]
		depth++
	}
	return depth
}

// IsCollapsed reports whether the children of id are hidden.
func (t *Tree) IsCollapsed(id RowID) bool {
	r, ok := t.rows[id]
	return ok && r.collapsed
}

// Append adds a new row at the end of parent's children.
func (t *Tree) Append(parent RowID, p Populator, opts ...RowOption) (RowID, error) {
	list, ok := t.childList(parent)
	if !ok {
		return RootID, fmt.Errorf("append under %d: %w", parent, ErrRowNotFound)
	}
	return t.Insert(parent, len(*list), p, opts...)
}

// Insert adds a new row as child number index of parent.
func (t *Tree) Insert(parent RowID, index int, p Populator, opts ...RowOption) (RowID, error) {
	if err := t.guard(); err != nil {
		return RootID, err
	}
	list, ok := t.childList(parent)
	if !ok {
		return RootID, fmt.Errorf("insert under %d: %w", parent, ErrRowNotFound)
	}
	if index < 0 || index > len(*list) {
		return RootID, fmt.Errorf("insert at %d of %d: %w", index, len(*list), ErrInvalidIndex)
	}

	r := &row{id: t.nextID, parent: parent, populator: p}
	for _, opt := range opts {
		opt(r)
	}
	t.nextID++
	t.rows[r.id] = r
	*list = insertID(*list, index, r.id)

	t.notifyRows(parent)
	return r.id, nil
}

// Remove deletes id and its whole subtree, including their cells.
func (t *Tree) Remove(id RowID) error {
	if err := t.guard(); err != nil {
		return err
	}
	r, ok := t.rows[id]
	if !ok {
		return fmt.Errorf("remove %d: %w", id, ErrRowNotFound)
	}
	list, _ := t.childList(r.parent)
	*list = removeID(*list, id)

	var drop func(id RowID)
	drop = func(id RowID) {
		n := t.rows[id]
		for _, c := range n.children {
			drop(c)
		}
		delete(t.rows, id)
	}
	drop(id)

	t.notifyRows(r.parent)
	return nil
}

// Clear removes every row.
func (t *Tree) Clear() error {
	if err := t.guard(); err != nil {
		return err
	}
	if len(t.roots) == 0 {
		return nil
	}
	t.rows = make(map[RowID]*row)
	t.roots = nil
	t.notifyRows(RootID)
	return nil
}

// Move re-parents id as child number index of newParent. The index is
// interpreted after id has been detached from its old position.
func (t *Tree) Move(id, newParent RowID, index int) error {
	if err := t.guard(); err != nil {
		return err
	}
	r, ok := t.rows[id]
	if !ok {
		return fmt.Errorf("move %d: %w", id, ErrRowNotFound)
	}
	dst, ok := t.childList(newParent)
	if !ok {
		return fmt.Errorf("move under %d: %w", newParent, ErrRowNotFound)
	}
	for p := newParent; p != RootID; p = t.rows[p].parent {
		if p == id {
			return ErrCyclicMove
		}
	}

	oldParent := r.parent
	limit := len(*dst)
	if oldParent == newParent {
		limit--
	}
	if index < 0 || index > limit {
		return fmt.Errorf("move to %d of %d: %w", index, limit, ErrInvalidIndex)
	}
	src, _ := t.childList(oldParent)
	*src = removeID(*src, id)
	*dst = insertID(*dst, index, id)
	r.parent = newParent

	t.notifyRows(oldParent)
	if newParent != oldParent {
		t.notifyRows(newParent)
	}
	return nil
}

// SetCollapsed changes whether the children of id are hidden.
func (t *Tree) SetCollapsed(id RowID, collapsed bool) error {
	if err := t.guard(); err != nil {
		return err
	}
	r, ok := t.rows[id]
	if !ok {
		return fmt.Errorf("collapse %d: %w", id, ErrRowNotFound)
	}
	if r.collapsed == collapsed {
		return nil
	}
	r.collapsed = collapsed
	if t.obs != nil {
		t.obs.collapsedChanged(id)
	}
	return nil
}

// Toggle flips the collapsed flag of id and returns the new value.
func (t *Tree) Toggle(id RowID) (bool, error) {
	r, ok := t.rows[id]
	if !ok {
		return false, fmt.Errorf("toggle %d: %w", id, ErrRowNotFound)
	}
	next := !r.collapsed
	return next, t.SetCollapsed(id, next)
}

// Walk visits every row in pre-order, including the descendants of
// collapsed rows. Returning false from fn skips the row's subtree.
func (t *Tree) Walk(fn func(id RowID, depth int) bool) {
	var walk func(ids []RowID, depth int)
	walk = func(ids []RowID, depth int) {
		for _, id := range ids {
			if fn(id, depth) {
				walk(t.rows[id].children, depth+1)
			}
		}
	}
	walk(t.roots, 0)
}

// Populator returns the populator of id.
func (t *Tree) Populator(id RowID) Populator {
	if r, ok := t.rows[id]; ok {
		return r.populator
	}
	return nil
}

// SetPopulator replaces the populator of id and marks its cells for
// re-population.
func (t *Tree) SetPopulator(id RowID, p Populator) error {
	r, ok := t.rows[id]
	if !ok {
		return fmt.Errorf("set populator %d: %w", id, ErrRowNotFound)
	}
	r.populator = p
	for _, c := range r.cells {
		c.stale = true
	}
	return nil
}

func (t *Tree) childList(parent RowID) (*[]RowID, bool) {
	if parent == RootID {
		return &t.roots, true
	}
	r, ok := t.rows[parent]
	if !ok {
		return nil, false
	}
	return &r.children, true
}

func (t *Tree) guard() error {
	if t.obs != nil && t.obs.rebuilding() {
		debug.Log("treegrid: rejected tree mutation during rebuild")
		metrics.ReentrantMutation.Inc()
		return ErrReentrantMutation
	}
	return nil
}

func (t *Tree) notifyRows(parent RowID) {
	if t.obs != nil {
		t.obs.rowsChanged(parent)
	}
}

func insertID(list []RowID, index int, id RowID) []RowID {
	list = append(list, RootID)
	copy(list[index+1:], list[index:])
	list[index] = id
	return list
}

func removeID(list []RowID, id RowID) []RowID {
	for i, v := range list {
		if v == id {
			return append(list[:i], list[i+1:]...)
		}
	}
	return list
}
