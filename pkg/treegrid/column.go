package treegrid

// WidthSpec describes the horizontal size of a column. Zero fields are
// unset. Heights are not part of a column width; every row has the grid's
// fixed row height.
type WidthSpec struct {
	Width    int
	MinWidth int
	MaxWidth int
	Grow     float64
	Shrink   float64
}

// Fixed returns a WidthSpec pinning a column to exactly w units.
func Fixed(w int) *WidthSpec {
	return &WidthSpec{Width: w, MaxWidth: w}
}

// Separator describes the line drawn between rows of a column.
type Separator struct {
	Style     string // "line", "dashed", "space"
	Color     string
	Thickness int
}

// ColumnLayout is applied to every column on construction.
type ColumnLayout struct {
	Separator *Separator
	Clip      bool
}

// Column is one rendering column. Its content is the ordered list of cells
// presented for the visible rows, one per row.
type Column struct {
	// Name is an optional label set by a ColumnFactory.
	Name string

	// Width is the column's size, or nil for the renderer default.
	Width *WidthSpec

	// Layout is set by the grid whenever columns are rebuilt.
	Layout ColumnLayout

	index   int
	content []*Cell
	version uint64
}

// ColumnFactory constructs the column for index. Returning nil selects a
// plain column.
type ColumnFactory func(index int) *Column

// Index returns the position of the column in the grid.
func (c *Column) Index() int {
	return c.index
}

// Content returns the live content slice. Callers must not modify it; it is
// replaced, never mutated, on every update.
func (c *Column) Content() []*Cell {
	return c.content
}

// Len returns the number of presented cells.
func (c *Column) Len() int {
	return len(c.content)
}

// Version increases by one on every content replacement.
func (c *Column) Version() uint64 {
	return c.version
}

func (c *Column) replace(content []*Cell) {
	c.content = content
	c.version++
}

func (w *WidthSpec) clone() *WidthSpec {
	if w == nil {
		return nil
	}
	cp := *w
	return &cp
}
