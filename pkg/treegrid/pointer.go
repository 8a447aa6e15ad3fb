package treegrid

import (
	"github.com/vanderheijden86/treegrid/pkg/debug"
	"github.com/vanderheijden86/treegrid/pkg/metrics"
)

// rowPointer is one element of the visible projection. Pointers are never
// mutated after a rebuild; a rebuild of a level replaces them, so pointer
// identity is not stable while cell identity is.
type rowPointer struct {
	row    RowID
	parent *rowPointer // nil at the root level
	next   *rowPointer // next sibling at the same level
}

// findNextVisible returns the first pointer after the subtree of p: the next
// sibling of p, or of the nearest ancestor that has one. A nil pointer with
// ok set means p's branch runs to the end of the projection.
//
// The walk must end at the last root-level pointer of the projection;
// anything else is an inconsistent reference and ok is false.
func findNextVisible(pr *projector, p *rowPointer) (next *rowPointer, ok bool) {
	cur := p
	for cur.next == nil && cur.parent != nil {
		cur = cur.parent
	}
	if cur.next != nil {
		return cur.next, true
	}
	if cur == pr.lastRoot {
		return nil, true
	}
	debug.Assert(false, "boundary walk ended before the last root row")
	debug.Log("treegrid: no boundary for row %d (stopped at %d)", p.row, cur.row)
	metrics.BoundaryFallback.Inc()
	return nil, false
}
