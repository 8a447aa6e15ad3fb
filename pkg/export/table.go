package export

import (
	"fmt"

	"github.com/vanderheijden86/treegrid/pkg/treegrid"
)

// TextFunc renders a cell's content as plain text.
type TextFunc func(c *treegrid.Cell) string

// CellText is the default TextFunc. Strings and fmt.Stringers are used as
// is, nil is empty and anything else goes through fmt.Sprint.
func CellText(c *treegrid.Cell) string {
	if c == nil {
		return ""
	}
	switch v := c.Content.(type) {
	case nil:
		return ""
	case string:
		return v
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}

// TableRow is one visible row as presented by the grid's columns.
type TableRow struct {
	ID         treegrid.RowID
	Depth      int
	Expandable bool
	Collapsed  bool
	Cells      []string
}

// Table is a plain-text capture of a grid's visible projection.
type Table struct {
	Headers   []string
	Widths    []*treegrid.WidthSpec
	RowHeight int
	Separator *treegrid.Separator
	Rows      []TableRow
}

// Capture reads the grid's columns into a Table. Cell i of every column
// belongs to projected row i; a column that is shorter than the projection
// leaves its remaining cells empty. Rows removed from the tree while a
// recompute is pending are left out. text may be nil.
func Capture(g *treegrid.Grid, headers []string, text TextFunc) Table {
	if text == nil {
		text = CellText
	}
	tree := g.Tree()
	cols := g.Columns()
	projected := g.ProjectedRows()

	t := Table{
		Headers:   headers,
		Widths:    make([]*treegrid.WidthSpec, len(cols)),
		RowHeight: g.RowHeight(),
		Separator: g.RowSeparator(),
		Rows:      make([]TableRow, 0, len(projected)),
	}
	for j, col := range cols {
		t.Widths[j] = col.Width
	}
	for i, id := range projected {
		if !tree.Contains(id) {
			continue
		}
		row := TableRow{
			ID:         id,
			Depth:      tree.Depth(id),
			Expandable: tree.ChildCount(id) > 0,
			Collapsed:  tree.IsCollapsed(id),
			Cells:      make([]string, len(cols)),
		}
		for j, col := range cols {
			if content := col.Content(); i < len(content) {
				row.Cells[j] = text(content[i])
			}
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}

// Header returns the title of column j, or "" when there is none.
func (t Table) Header(j int) string {
	if j < len(t.Headers) {
		return t.Headers[j]
	}
	return ""
}

// Columns returns the number of columns.
func (t Table) Columns() int {
	return len(t.Widths)
}

// Marker returns the disclosure glyph of a row: "▸" collapsed, "▾"
// expanded and a blank for leaves.
func (r TableRow) Marker() string {
	switch {
	case !r.Expandable:
		return " "
	case r.Collapsed:
		return "▸"
	default:
		return "▾"
	}
}
