package treegrid

import (
	"github.com/vanderheijden86/treegrid/pkg/debug"
	"github.com/vanderheijden86/treegrid/pkg/metrics"
)

// rebuildColumns replaces all columns with new ones built by the column
// factories, carrying the separator and any configured widths.
func (g *Grid) rebuildColumns() {
	cols := make([]*Column, g.columnCount)
	for i := range cols {
		var col *Column
		if f := g.factoryFor(i); f != nil {
			col = f(i)
		}
		if col == nil {
			col = &Column{}
		}
		col.index = i
		col.Layout = ColumnLayout{Separator: g.separator, Clip: true}
		if w, ok := g.widths[i]; ok {
			col.Width = w.clone()
		}
		cols[i] = col
	}
	g.columns = cols
}

func (g *Grid) factoryFor(i int) ColumnFactory {
	switch {
	case len(g.factories) == 0:
		return nil
	case i < len(g.factories) && g.factories[i] != nil:
		return g.factories[i]
	default:
		return g.factories[len(g.factories)-1]
	}
}

// rebuildAllCells recomputes every column's content from the projection.
// Cells are looked up, never recreated.
func (g *Grid) rebuildAllCells() {
	defer metrics.Timer(metrics.RebuildCells)()

	for j, col := range g.columns {
		g.swap(col, g.columnCells(j))
	}
}

// columnCells returns the cells of column j for the whole projection.
func (g *Grid) columnCells(j int) []*Cell {
	cells := make([]*Cell, 0, len(g.proj.visible))
	for _, ptr := range g.proj.visible {
		r, ok := g.tree.rows[ptr.row]
		if !ok {
			continue
		}
		cells = append(cells, g.present(r, j))
	}
	return cells
}

// patchBranch replaces, in every column, the cells of the old descendant
// run of anchor (positions start+1 up to oldEnd) by the cells of segment.
// Each column is spliced on a copy which then replaces the live content in
// one step, so the anchor and every row outside the run keep their cells
// and positions.
func (g *Grid) patchBranch(anchor *rowPointer, start, oldEnd, oldLen int, segment []*rowPointer) {
	defer metrics.Timer(metrics.PatchBranch)()

	anchorRow := g.tree.rows[anchor.row]
	for j, col := range g.columns {
		own := g.present(anchorRow, j)
		live := col.content
		if len(live) != oldLen || live[start] != own {
			debug.Log("treegrid: column %d out of step with projection, rebuilding it", j)
			metrics.ColumnFallback.Inc()
			g.swap(col, g.columnCells(j))
			continue
		}

		cells := make([]*Cell, 0, len(segment))
		for _, ptr := range segment {
			cells = append(cells, g.present(g.tree.rows[ptr.row], j))
		}

		clone := make([]*Cell, 0, len(live)-(oldEnd-start-1)+len(cells))
		clone = append(clone, live[:start+1]...)
		clone = append(clone, cells...)
		clone = append(clone, live[oldEnd:]...)
		g.swap(col, clone)
	}
}

// present returns the cell of r for column j, sized to the row height and
// populated if it was invalidated.
func (g *Grid) present(r *row, j int) *Cell {
	c := g.tree.cellAt(r, j)
	c.Height = g.rowHeight
	g.tree.prepare(c)
	return c
}

func (g *Grid) swap(col *Column, content []*Cell) {
	col.replace(content)
	for _, fn := range g.onContent {
		fn(col)
	}
}
