package treegrid

import (
	"github.com/vanderheijden86/treegrid/pkg/debug"
	"github.com/vanderheijden86/treegrid/pkg/metrics"
)

// projector maintains the visible projection: the pre-order traversal of the
// tree that descends into a row's children iff the row is not collapsed.
type projector struct {
	visible  []*rowPointer
	index    map[RowID]*rowPointer
	lastRoot *rowPointer
}

func newProjector() projector {
	return projector{index: make(map[RowID]*rowPointer)}
}

// projectAll discards the former projection and index and rebuilds both
// from the top-level rows.
func (p *projector) projectAll(t *Tree) []*rowPointer {
	defer metrics.Timer(metrics.ProjectAll)()

	p.index = make(map[RowID]*rowPointer, len(p.index))
	p.lastRoot = nil
	visible := p.makePointers(t, nil, t.roots, make([]*rowPointer, 0, len(p.visible)))
	for i := len(visible) - 1; i >= 0; i-- {
		if visible[i].parent == nil {
			p.lastRoot = visible[i]
			break
		}
	}
	p.visible = visible
	return visible
}

// projectBranch returns fresh pointers for the visible descendants of
// anchor, or nothing when anchor's row is collapsed.
func (p *projector) projectBranch(t *Tree, anchor *rowPointer) []*rowPointer {
	defer metrics.Timer(metrics.ProjectBranch)()

	r, ok := t.rows[anchor.row]
	if !ok || r.collapsed {
		return nil
	}
	return p.makePointers(t, anchor, r.children, nil)
}

// replaceBranch recomputes the descendant segment of anchor and splices it
// into the projection. It returns the position of anchor, the end of the old
// segment (exclusive, in old positions) and the new segment. ok is false if
// the segment boundaries cannot be resolved; the projection is then left
// untouched and the caller must rebuild everything.
func (p *projector) replaceBranch(t *Tree, anchor *rowPointer) (start, oldEnd int, segment []*rowPointer, ok bool) {
	start = p.position(anchor, 0)
	if start < 0 {
		debug.Log("treegrid: pointer for row %d is not in the projection", anchor.row)
		return 0, 0, nil, false
	}
	next, ok := findNextVisible(p, anchor)
	if !ok {
		return 0, 0, nil, false
	}
	oldEnd = len(p.visible)
	if next != nil {
		oldEnd = p.position(next, start+1)
		if oldEnd < 0 {
			debug.Assert(false, "boundary pointer is not in the projection")
			metrics.BoundaryFallback.Inc()
			return 0, 0, nil, false
		}
	}

	// Drop index entries of the old segment before projecting; rows that
	// are still visible get their new pointer back from makePointers.
	for _, old := range p.visible[start+1 : oldEnd] {
		if p.index[old.row] == old {
			delete(p.index, old.row)
		}
	}
	segment = p.projectBranch(t, anchor)

	spliced := make([]*rowPointer, 0, len(p.visible)-(oldEnd-start-1)+len(segment))
	spliced = append(spliced, p.visible[:start+1]...)
	spliced = append(spliced, segment...)
	spliced = append(spliced, p.visible[oldEnd:]...)
	p.visible = spliced
	return start, oldEnd, segment, true
}

// makePointers appends one pointer per row of ids to result, linking
// siblings through next and recursing into expanded rows.
func (p *projector) makePointers(t *Tree, parent *rowPointer, ids []RowID, result []*rowPointer) []*rowPointer {
	var prev *rowPointer
	for _, id := range ids {
		r, ok := t.rows[id]
		if !ok {
			continue
		}
		ptr := &rowPointer{row: id, parent: parent}
		if prev != nil {
			prev.next = ptr
		}
		result = append(result, ptr)
		p.index[id] = ptr
		prev = ptr
		if !r.collapsed {
			result = p.makePointers(t, ptr, r.children, result)
		}
	}
	return result
}

// position returns the index of ptr in the projection, searching from
// offset, or -1.
func (p *projector) position(ptr *rowPointer, offset int) int {
	for i := offset; i < len(p.visible); i++ {
		if p.visible[i] == ptr {
			return i
		}
	}
	return -1
}

// lookup returns the current pointer of id.
func (p *projector) lookup(id RowID) *rowPointer {
	return p.index[id]
}

// rows returns the visible rows that are still alive in t.
func (p *projector) rows(t *Tree) []RowID {
	out := make([]RowID, 0, len(p.visible))
	for _, ptr := range p.visible {
		if t.Contains(ptr.row) {
			out = append(out, ptr.row)
		}
	}
	return out
}
