package treegrid

import (
	"fmt"
	"testing"

	"github.com/vanderheijden86/treegrid/pkg/testutil"
)

// fixture is a grid over a labelled tree driven by a manual clock.
type fixture struct {
	t      *testing.T
	grid   *Grid
	tree   *Tree
	clock  *ManualClock
	ids    map[string]RowID
	labels map[RowID]string
	order  []string // "label/column" in population order
}

func newFixture(t *testing.T, f testutil.Forest, opts ...Option) *fixture {
	t.Helper()

	clock := NewManualClock()
	opts = append([]Option{WithDeferrer(clock)}, opts...)
	fx := &fixture{
		t:      t,
		grid:   New(opts...),
		clock:  clock,
		ids:    make(map[string]RowID),
		labels: make(map[RowID]string),
	}
	fx.tree = fx.grid.Tree()
	fx.load(RootID, f)
	return fx
}

func (fx *fixture) load(parent RowID, shapes []*testutil.Shape) {
	fx.t.Helper()
	for _, s := range shapes {
		var opts []RowOption
		if s.Collapsed {
			opts = append(opts, Collapsed())
		}
		id := fx.add(parent, s.Label, opts...)
		fx.load(id, s.Children)
	}
}

func (fx *fixture) add(parent RowID, label string, opts ...RowOption) RowID {
	fx.t.Helper()
	id, err := fx.tree.Append(parent, fx.populator(label), opts...)
	if err != nil {
		fx.t.Fatalf("Append(%q): %v", label, err)
	}
	fx.ids[label] = id
	fx.labels[id] = label
	return id
}

func (fx *fixture) populator(label string) Populator {
	return PopulatorFunc(func(c *Cell, column int) {
		c.Content = fmt.Sprintf("%s/%d", label, column)
		fx.order = append(fx.order, fmt.Sprintf("%s/%d", label, column))
	})
}

func (fx *fixture) id(label string) RowID {
	fx.t.Helper()
	id, ok := fx.ids[label]
	if !ok {
		fx.t.Fatalf("unknown row %q", label)
	}
	return id
}

// visible returns the labels of the grid's projection.
func (fx *fixture) visible() []string {
	var out []string
	for _, id := range fx.grid.VisibleRows() {
		out = append(out, fx.labels[id])
	}
	return out
}

// settle lets a pending coalescing window elapse.
func (fx *fixture) settle() {
	fx.clock.Advance(DefaultCoalesceWindow)
}

// expectedVisible computes the projection straight from the tree.
func expectedVisible(t *Tree) []RowID {
	var out []RowID
	t.Walk(func(id RowID, _ int) bool {
		out = append(out, id)
		return !t.IsCollapsed(id)
	})
	return out
}

// assertAligned checks that every column presents exactly the visible rows,
// in order, with cells owned by those rows.
func assertAligned(t *testing.T, g *Grid) {
	t.Helper()

	rows := g.VisibleRows()
	if len(g.Columns()) != g.ColumnCount() {
		t.Fatalf("expected %d columns, got %d", g.ColumnCount(), len(g.Columns()))
	}
	for j, col := range g.Columns() {
		if col.Index() != j {
			t.Errorf("column %d reports index %d", j, col.Index())
		}
		content := col.Content()
		if len(content) != len(rows) {
			t.Errorf("column %d has %d cells, projection has %d rows", j, len(content), len(rows))
			continue
		}
		for i, c := range content {
			if c.Row() != rows[i] || c.Column() != j {
				t.Errorf("column %d position %d: cell of row %d/col %d, want row %d/col %d",
					j, i, c.Row(), c.Column(), rows[i], j)
			}
			if c.Height != g.RowHeight() {
				t.Errorf("column %d position %d: height %d, want %d", j, i, c.Height, g.RowHeight())
			}
		}
	}
}

func sameIDs(a, b []RowID) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
