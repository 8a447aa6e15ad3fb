package outline

import (
	"errors"
	"strings"
	"testing"

	"github.com/vanderheijden86/treegrid/pkg/testutil"
	"github.com/vanderheijden86/treegrid/pkg/treegrid"
)

func mustParse(t *testing.T, src string) *Document {
	t.Helper()
	doc, err := Parse(strings.NewReader(src), FormatYAML, ParseOptions{})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	return doc
}

func boundGrid(t *testing.T, doc *Document) (*treegrid.Grid, *Binding, *treegrid.ManualClock) {
	t.Helper()
	clock := treegrid.NewManualClock()
	g := treegrid.New(treegrid.WithDeferrer(clock), treegrid.WithColumnCount(2))
	b, err := Bind(g.Tree(), treegrid.RootID, doc)
	if err != nil {
		t.Fatalf("Bind: %v", err)
	}
	g.Attach()
	return g, b, clock
}

func visibleText(t *testing.T, g *treegrid.Grid) []string {
	t.Helper()
	var out []string
	for _, col := range g.Columns()[:1] {
		for _, c := range col.Content() {
			out = append(out, c.Content.(string))
		}
	}
	return out
}

func TestBindShowsLabelsAndCells(t *testing.T) {
	g, b, _ := boundGrid(t, mustParse(t, groceriesYAML))

	testutil.AssertLabels(t, []string{"Fruit", "Apples", "Pears", "Dairy"}, visibleText(t, g))
	if b.Len() != 5 {
		t.Errorf("Len = %d, want 5", b.Len())
	}
	apples, _ := b.Row("apples")
	c, _ := g.CellAt(apples, 1)
	if c.Content != "6" {
		t.Errorf("apples qty = %v", c.Content)
	}
	if id, ok := b.NodeID(apples); !ok || id != "apples" {
		t.Errorf("NodeID = %q, %v", id, ok)
	}
}

func TestSyncKeepsUnchangedRows(t *testing.T) {
	g, b, clock := boundGrid(t, mustParse(t, groceriesYAML))
	pears, _ := b.Row("pears")
	pearsCell, _ := g.CellAt(pears, 0)

	next := mustParse(t, `rows:
  - id: fruit
    label: Fruit
    children:
      - id: pears
        label: Pears
        cells: ["2"]
      - id: kiwi
        label: Kiwi
  - id: dairy
    label: Dairy products
    children:
      - id: milk
        label: Milk
        cells: ["1 l"]
`)
	res, err := b.Sync(next)
	if err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if res.Added != 1 || res.Removed != 1 || res.Refreshed != 1 {
		t.Errorf("result = %+v", res)
	}
	clock.Advance(treegrid.DefaultCoalesceWindow)
	g.Refresh()

	if again, _ := b.Row("pears"); again != pears {
		t.Error("pears got a new row")
	}
	if c, _ := g.CellAt(pears, 0); c != pearsCell || c.Populations() != 1 {
		t.Error("pears cell recreated or repopulated")
	}
	// dairy stays collapsed: the runtime flag wins over the document.
	testutil.AssertLabels(t, []string{"Fruit", "Pears", "Kiwi", "Dairy products"}, visibleText(t, g))
	if _, ok := b.Row("apples"); ok {
		t.Error("apples still bound")
	}
}

func TestSyncMovesAcrossParents(t *testing.T) {
	g, b, clock := boundGrid(t, mustParse(t, groceriesYAML))
	milk, _ := b.Row("milk")

	next := mustParse(t, `rows:
  - id: milk
    label: Milk
    cells: ["1 l"]
    children:
      - id: fruit
        label: Fruit
        children:
          - id: pears
            label: Pears
            cells: ["2"]
`)
	res, err := b.Sync(next)
	if err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if res.Removed != 2 {
		t.Errorf("Removed = %d, want 2 (apples, dairy)", res.Removed)
	}
	clock.Advance(treegrid.DefaultCoalesceWindow)

	if again, _ := b.Row("milk"); again != milk {
		t.Error("milk got a new row")
	}
	testutil.AssertLabels(t, []string{"Milk", "Fruit", "Pears"}, visibleText(t, g))
	testutil.AssertJSONEqual(t, next, b.Document())
}

func TestSyncIsIdempotent(t *testing.T) {
	doc := mustParse(t, groceriesYAML)
	_, b, _ := boundGrid(t, doc)

	res, err := b.Sync(mustParse(t, groceriesYAML))
	if err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if res.Changed() {
		t.Errorf("second sync changed %+v", res)
	}
}

func TestSyncRandomForests(t *testing.T) {
	gen := testutil.New(testutil.GeneratorConfig{Seed: 7, CollapseRatio: 0.2})
	g, b, clock := boundGrid(t, &Document{})

	for round := 0; round < 5; round++ {
		forest := gen.Random(30)
		doc := fromShapes(forest)
		if _, err := b.Sync(doc); err != nil {
			t.Fatalf("round %d: Sync: %v", round, err)
		}
		clock.Advance(treegrid.DefaultCoalesceWindow)

		if b.Len() != forest.Count() {
			t.Errorf("round %d: %d bound nodes, want %d", round, b.Len(), forest.Count())
		}
		if g.Tree().Len() != forest.Count() {
			t.Errorf("round %d: tree has %d rows, want %d", round, g.Tree().Len(), forest.Count())
		}
	}
}

func fromShapes(f testutil.Forest) *Document {
	var conv func(list []*testutil.Shape) []*Node
	conv = func(list []*testutil.Shape) []*Node {
		var out []*Node
		for _, s := range list {
			out = append(out, &Node{ID: s.Label, Label: s.Label, Collapsed: s.Collapsed, Children: conv(s.Children)})
		}
		return out
	}
	return &Document{Rows: conv(f)}
}

func TestBindingEdits(t *testing.T) {
	g, b, clock := boundGrid(t, mustParse(t, groceriesYAML))
	fruit, _ := b.Row("fruit")

	row, err := b.Insert(fruit, 0, &Node{Label: "Bananas"})
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if id, _ := b.NodeID(row); id != "bananas" {
		t.Errorf("generated id = %q", id)
	}
	if _, err := b.Insert(fruit, 0, &Node{ID: "pears", Label: "x"}); !errors.Is(err, ErrDuplicateID) {
		t.Errorf("duplicate Insert err = %v", err)
	}
	if _, err := b.Insert(999, 0, &Node{Label: "x"}); !errors.Is(err, ErrNodeNotFound) {
		t.Errorf("Insert under unknown row err = %v", err)
	}

	pears, _ := b.Row("pears")
	if err := b.Rename(pears, "Nashi"); err != nil {
		t.Fatalf("Rename: %v", err)
	}
	if err := b.Remove(fruit); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	clock.Advance(treegrid.DefaultCoalesceWindow)
	if _, ok := b.Row("bananas"); ok {
		t.Error("descendant still bound after Remove")
	}
	testutil.AssertLabels(t, []string{"Dairy"}, visibleText(t, g))

	doc := b.Document()
	if doc.Count() != 2 || !doc.Rows[0].Collapsed {
		t.Errorf("document = %+v", doc.Rows)
	}
}

func TestRenameRepopulatesOnNextRefresh(t *testing.T) {
	g, b, _ := boundGrid(t, mustParse(t, groceriesYAML))
	pears, _ := b.Row("pears")

	b.Rename(pears, "Nashi")
	g.Refresh()

	c, _ := g.CellAt(pears, 0)
	if c.Content != "Nashi" || c.Populations() != 2 {
		t.Errorf("content = %v populations = %d", c.Content, c.Populations())
	}
}
