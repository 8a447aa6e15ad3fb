package treegrid

import "fmt"

// Cell is the rendering slot for one (row, column) pair. A cell is created
// once per column index and lives as long as its row; rebuilds only change
// which columns present it.
type Cell struct {
	row    RowID
	column int

	// Content is filled by the row's Populator.
	Content any

	// Height is the fixed row height applied by the grid each time the cell
	// is presented. Cells never grow or shrink.
	Height int

	stale       bool
	populations int
}

// Row returns the row that owns this cell.
func (c *Cell) Row() RowID {
	return c.row
}

// Column returns the column index this cell was created for.
func (c *Cell) Column() int {
	return c.column
}

// Populations returns how often the populate callback has run for this cell.
func (c *Cell) Populations() int {
	return c.populations
}

// Stale reports whether the cell is waiting for re-population.
func (c *Cell) Stale() bool {
	return c.stale
}

// Populator fills the visual content of a cell. It is called once when the
// cell is allocated and once after every Invalidate of its row, just before
// the cell is presented again.
//
// A Populator must not mutate the Tree; mutations from inside PopulateCell
// are rejected with ErrReentrantMutation while the grid is rebuilding.
type Populator interface {
	PopulateCell(c *Cell, column int)
}

// PopulatorFunc adapts a function to the Populator interface.
type PopulatorFunc func(c *Cell, column int)

// PopulateCell calls f(c, column).
func (f PopulatorFunc) PopulateCell(c *Cell, column int) {
	f(c, column)
}

// CellAt returns the cell of id for the given column. Missing cells up to
// and including column are allocated and populated in column order. Indexes
// beyond the grid's column count are allowed; those cells stay inert.
func (t *Tree) CellAt(id RowID, column int) (*Cell, error) {
	if column < 0 {
		return nil, fmt.Errorf("cell %d/%d: %w", id, column, ErrInvalidColumn)
	}
	r, ok := t.rows[id]
	if !ok {
		return nil, fmt.Errorf("cell %d/%d: %w", id, column, ErrRowNotFound)
	}
	return t.cellAt(r, column), nil
}

// CellCount returns the number of cells allocated for id so far. It may be
// smaller or larger than the grid's column count.
func (t *Tree) CellCount(id RowID) int {
	if r, ok := t.rows[id]; ok {
		return len(r.cells)
	}
	return 0
}

// Invalidate marks every allocated cell of id for re-population. Each cell
// is populated once, the next time the grid presents it.
func (t *Tree) Invalidate(id RowID) error {
	r, ok := t.rows[id]
	if !ok {
		return fmt.Errorf("invalidate %d: %w", id, ErrRowNotFound)
	}
	for _, c := range r.cells {
		c.stale = true
	}
	return nil
}

// RefreshCell re-populates a single cell right away, allocating it first
// if needed.
func (t *Tree) RefreshCell(id RowID, column int) (*Cell, error) {
	c, err := t.CellAt(id, column)
	if err != nil {
		return nil, err
	}
	c.stale = true
	t.prepare(c)
	return c, nil
}

func (t *Tree) cellAt(r *row, column int) *Cell {
	for len(r.cells) <= column {
		c := &Cell{row: r.id, column: len(r.cells), stale: true}
		r.cells = append(r.cells, c)
		t.populate(r, c)
	}
	return r.cells[column]
}

// prepare populates c if it has been marked stale since its last population.
func (t *Tree) prepare(c *Cell) {
	if !c.stale {
		return
	}
	if r, ok := t.rows[c.row]; ok {
		t.populate(r, c)
	}
}

func (t *Tree) populate(r *row, c *Cell) {
	c.stale = false
	c.populations++
	if r.populator != nil {
		r.populator.PopulateCell(c, c.column)
	}
}
