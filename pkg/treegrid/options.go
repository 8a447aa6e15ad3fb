package treegrid

import "time"

// DefaultRowHeight is the fixed row height, in absolute units, of a new grid.
const DefaultRowHeight = 32

// Option configures a Grid.
type Option func(*Grid)

// WithColumnCount sets the number of visible columns. Values below one are
// ignored.
func WithColumnCount(n int) Option {
	return func(g *Grid) {
		if n >= 1 {
			g.columnCount = n
		}
	}
}

// WithRowHeight sets the fixed row height. Non-positive values are ignored.
func WithRowHeight(h int) Option {
	return func(g *Grid) {
		if h > 0 {
			g.rowHeight = h
		}
	}
}

// WithRowSeparator sets the separator drawn between rows.
func WithRowSeparator(s *Separator) Option {
	return func(g *Grid) {
		g.separator = s
	}
}

// WithColumnFactory sets the column constructors. The last factory is used
// for every column beyond the given ones.
func WithColumnFactory(f ...ColumnFactory) Option {
	return func(g *Grid) {
		g.factories = f
	}
}

// WithColumnWidth presets the width of column index.
func WithColumnWidth(index int, w *WidthSpec) Option {
	return func(g *Grid) {
		if index >= 0 && w != nil {
			g.widths[index] = w.clone()
		}
	}
}

// WithDeferrer sets the timer used for the coalescing window. Without one,
// pending recomputes only run on Flush.
func WithDeferrer(d Deferrer) Option {
	return func(g *Grid) {
		g.deferrer = d
	}
}

// WithCoalesceWindow sets the coalescing window for row-list mutations.
func WithCoalesceWindow(d time.Duration) Option {
	return func(g *Grid) {
		if d >= 0 {
			g.window = d
		}
	}
}

// WithTree makes the grid present an existing tree.
func WithTree(t *Tree) Option {
	return func(g *Grid) {
		if t != nil {
			g.tree = t
		}
	}
}
