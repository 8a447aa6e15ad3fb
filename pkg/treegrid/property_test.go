package treegrid

import (
	"testing"

	"pgregory.net/rapid"
)

// TestProjectionMatchesTree drives a grid with random mutations and checks
// after every settled step that the projection equals the pre-order walk of
// the tree, that columns stay aligned with it and that cells are never
// recreated.
func TestProjectionMatchesTree(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		clock := NewManualClock()
		g := New(
			WithDeferrer(clock),
			WithColumnCount(rapid.IntRange(1, 3).Draw(rt, "columns")),
		)
		tree := g.Tree()
		g.Attach()

		seen := map[RowID]*Cell{}
		pick := func(label string) (RowID, bool) {
			var all []RowID
			tree.Walk(func(id RowID, _ int) bool {
				all = append(all, id)
				return true
			})
			if len(all) == 0 {
				return RootID, false
			}
			return all[rapid.IntRange(0, len(all)-1).Draw(rt, label)], true
		}

		steps := rapid.IntRange(1, 40).Draw(rt, "steps")
		for i := 0; i < steps; i++ {
			switch rapid.IntRange(0, 5).Draw(rt, "op") {
			case 0, 1:
				parent, ok := pick("parent")
				if !ok || rapid.Bool().Draw(rt, "top") {
					parent = RootID
				}
				if _, err := tree.Append(parent, nil); err != nil {
					rt.Fatalf("Append: %v", err)
				}
			case 2:
				if id, ok := pick("remove"); ok {
					if err := tree.Remove(id); err != nil {
						rt.Fatalf("Remove: %v", err)
					}
				}
			case 3:
				if id, ok := pick("toggle"); ok {
					if _, err := tree.Toggle(id); err != nil {
						rt.Fatalf("Toggle: %v", err)
					}
				}
			case 4:
				id, ok := pick("move")
				target, ok2 := pick("target")
				if ok && ok2 {
					_ = tree.Move(id, target, 0) // cyclic moves are expected to fail
				}
			case 5:
				if id, ok := pick("invalidate"); ok {
					_ = tree.Invalidate(id)
				}
			}
			if rapid.Bool().Draw(rt, "settle") {
				clock.Advance(DefaultCoalesceWindow)
			}
		}
		g.Flush()

		want := expectedVisible(tree)
		got := g.VisibleRows()
		if !sameIDs(want, got) {
			rt.Fatalf("projection = %v, want %v", got, want)
		}
		for j, col := range g.Columns() {
			content := col.Content()
			if len(content) != len(got) {
				rt.Fatalf("column %d has %d cells, want %d", j, len(content), len(got))
			}
			for i, c := range content {
				if c.Row() != got[i] || c.Column() != j {
					rt.Fatalf("column %d position %d: row %d col %d", j, i, c.Row(), c.Column())
				}
				if j == 0 {
					if prev, ok := seen[c.Row()]; ok && prev != c {
						rt.Fatalf("cell of row %d recreated", c.Row())
					}
					seen[c.Row()] = c
				}
			}
		}
	})
}

// TestBranchRebuildMatchesFullRebuild checks that patching one branch yields
// the same projection as rebuilding from scratch.
func TestBranchRebuildMatchesFullRebuild(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		g := New(WithDeferrer(NewManualClock()))
		tree := g.Tree()
		ids := []RowID{RootID}
		n := rapid.IntRange(1, 30).Draw(rt, "rows")
		for i := 0; i < n; i++ {
			parent := rapid.SampledFrom(ids).Draw(rt, "parent")
			var opts []RowOption
			if rapid.Bool().Draw(rt, "collapsed") {
				opts = append(opts, Collapsed())
			}
			id, err := tree.Append(parent, nil, opts...)
			if err != nil {
				rt.Fatalf("Append: %v", err)
			}
			ids = append(ids, id)
		}
		g.Attach()

		for _, id := range g.VisibleRows() {
			if rapid.Bool().Draw(rt, "toggle") && tree.Contains(id) {
				tree.Toggle(id)
			}
		}
		patched := g.VisibleRows()

		g.Refresh()
		if full := g.VisibleRows(); !sameIDs(patched, full) {
			rt.Fatalf("branch rebuilds gave %v, full rebuild %v", patched, full)
		}
		if !sameIDs(patched, expectedVisible(tree)) {
			rt.Fatalf("projection %v does not match tree", patched)
		}
	})
}
