package outline

import (
	"fmt"

	"github.com/vanderheijden86/treegrid/pkg/debug"
	"github.com/vanderheijden86/treegrid/pkg/metrics"
	"github.com/vanderheijden86/treegrid/pkg/treegrid"
)

// Binding keeps the rows of a treegrid.Tree in step with an outline
// document. Every node owns exactly one row; the row's cells show the node's
// label and extra cells.
type Binding struct {
	tree   *treegrid.Tree
	parent treegrid.RowID
	title  string
	cols   []string

	nodes map[string]*Node // content only, Children unused
	rows  map[string]treegrid.RowID
	ids   map[treegrid.RowID]string
}

// SyncResult counts what a Sync changed.
type SyncResult struct {
	Added     int
	Removed   int
	Moved     int
	Refreshed int
}

// Changed reports whether the sync touched the tree.
func (r SyncResult) Changed() bool {
	return r.Added+r.Removed+r.Moved+r.Refreshed > 0
}

// Bind creates rows for every node of doc below parent (treegrid.RootID for
// the top level) and returns the binding that owns them.
func Bind(tree *treegrid.Tree, parent treegrid.RowID, doc *Document) (*Binding, error) {
	b := &Binding{
		tree:   tree,
		parent: parent,
		nodes:  make(map[string]*Node),
		rows:   make(map[string]treegrid.RowID),
		ids:    make(map[treegrid.RowID]string),
	}
	if _, err := b.Sync(doc); err != nil {
		return nil, err
	}
	return b, nil
}

// Tree returns the bound tree.
func (b *Binding) Tree() *treegrid.Tree {
	return b.tree
}

// Parent returns the row the outline's top-level nodes hang from.
func (b *Binding) Parent() treegrid.RowID {
	return b.parent
}

// Title returns the title of the last synced document.
func (b *Binding) Title() string {
	return b.title
}

// Columns returns the column headers of the last synced document.
func (b *Binding) Columns() []string {
	return b.cols
}

// Row returns the row of the node with the given ID.
func (b *Binding) Row(id string) (treegrid.RowID, bool) {
	r, ok := b.rows[id]
	return r, ok
}

// NodeID returns the ID of the node shown by row.
func (b *Binding) NodeID(row treegrid.RowID) (string, bool) {
	id, ok := b.ids[row]
	return id, ok
}

// Node returns the content of the node shown by row. Children are not set.
func (b *Binding) Node(row treegrid.RowID) (*Node, bool) {
	id, ok := b.ids[row]
	if !ok {
		return nil, false
	}
	return b.nodes[id], true
}

// Len returns the number of bound nodes.
func (b *Binding) Len() int {
	return len(b.rows)
}

// Sync makes the bound rows match doc. Nodes are matched by ID: missing
// nodes lose their rows, new nodes get rows, nodes under a different parent
// or at a different position are moved and nodes with changed content have
// their cells re-populated. Rows of unchanged nodes keep their identity and
// cells. The collapsed flag of an existing row is left alone; the document's
// flag only applies to new rows.
func (b *Binding) Sync(doc *Document) (SyncResult, error) {
	defer metrics.Timer(metrics.OutlineSync)()

	var res SyncResult
	doc.AssignIDs()
	if err := doc.Validate(); err != nil {
		return res, err
	}
	b.title = doc.Title
	b.cols = doc.Columns

	keep := make(map[string]bool)
	var place func(parent treegrid.RowID, list []*Node) error
	place = func(parent treegrid.RowID, list []*Node) error {
		for i, n := range list {
			keep[n.ID] = true
			row, err := b.placeNode(parent, i, n, &res)
			if err != nil {
				return err
			}
			if err := place(row, n.Children); err != nil {
				return err
			}
		}
		return nil
	}
	if err := place(b.parent, doc.Rows); err != nil {
		return res, err
	}

	// Kept nodes have been moved out of dropped subtrees above.
	for id, row := range b.rows {
		if keep[id] {
			continue
		}
		if b.tree.Contains(row) {
			if err := b.tree.Remove(row); err != nil {
				return res, fmt.Errorf("sync %q: %w", id, err)
			}
		}
		b.forget(id)
		res.Removed++
	}
	debug.Log("outline: sync %+v", res)
	return res, nil
}

func (b *Binding) placeNode(parent treegrid.RowID, index int, n *Node, res *SyncResult) (treegrid.RowID, error) {
	content := &Node{ID: n.ID, Label: n.Label, Cells: append([]string(nil), n.Cells...), Collapsed: n.Collapsed}

	row, ok := b.rows[n.ID]
	if ok && !b.tree.Contains(row) {
		// removed behind our back
		b.forget(n.ID)
		ok = false
	}
	if !ok {
		var opts []treegrid.RowOption
		if n.Collapsed {
			opts = append(opts, treegrid.Collapsed())
		}
		row, err := b.tree.Insert(parent, index, b.populator(n.ID), opts...)
		if err != nil {
			return treegrid.RootID, fmt.Errorf("sync %q: %w", n.ID, err)
		}
		b.rows[n.ID] = row
		b.ids[row] = n.ID
		b.nodes[n.ID] = content
		res.Added++
		return row, nil
	}

	cur, _ := b.tree.Parent(row)
	if cur != parent || indexOf(b.tree.Children(parent), row) != index {
		if err := b.tree.Move(row, parent, index); err != nil {
			return treegrid.RootID, fmt.Errorf("sync %q: %w", n.ID, err)
		}
		res.Moved++
	}
	if !b.nodes[n.ID].sameContent(content) {
		b.nodes[n.ID] = content
		if err := b.tree.Invalidate(row); err != nil {
			return treegrid.RootID, err
		}
		res.Refreshed++
	}
	return row, nil
}

// Insert adds n (without its children) as child number index of parent and
// returns its row. n gets a generated ID when it has none.
func (b *Binding) Insert(parent treegrid.RowID, index int, n *Node) (treegrid.RowID, error) {
	if parent != b.parent {
		if _, ok := b.ids[parent]; !ok {
			return treegrid.RootID, fmt.Errorf("insert under row %d: %w", parent, ErrNodeNotFound)
		}
	}
	if n.ID == "" {
		n.ID = b.freshID(n.Label)
	}
	if _, dup := b.rows[n.ID]; dup {
		return treegrid.RootID, fmt.Errorf("%q: %w", n.ID, ErrDuplicateID)
	}
	var res SyncResult
	return b.placeNode(parent, index, n, &res)
}

// Rename changes the label of the node shown by row.
func (b *Binding) Rename(row treegrid.RowID, label string) error {
	id, ok := b.ids[row]
	if !ok {
		return fmt.Errorf("rename row %d: %w", row, ErrNodeNotFound)
	}
	b.nodes[id].Label = label
	return b.tree.Invalidate(row)
}

// Remove deletes the node shown by row and its descendants.
func (b *Binding) Remove(row treegrid.RowID) error {
	id, ok := b.ids[row]
	if !ok {
		return fmt.Errorf("remove row %d: %w", row, ErrNodeNotFound)
	}
	var doomed []string
	b.collect(row, &doomed)
	if err := b.tree.Remove(row); err != nil {
		return fmt.Errorf("remove %q: %w", id, err)
	}
	for _, d := range doomed {
		b.forget(d)
	}
	return nil
}

// Document rebuilds the outline from the current rows, including their
// order and collapsed flags.
func (b *Binding) Document() *Document {
	doc := &Document{Title: b.title, Columns: b.cols}
	var build func(parent treegrid.RowID) []*Node
	build = func(parent treegrid.RowID) []*Node {
		var out []*Node
		for _, row := range b.tree.Children(parent) {
			id, ok := b.ids[row]
			if !ok {
				continue
			}
			c := b.nodes[id]
			out = append(out, &Node{
				ID:        id,
				Label:     c.Label,
				Cells:     append([]string(nil), c.Cells...),
				Collapsed: b.tree.IsCollapsed(row),
				Children:  build(row),
			})
		}
		return out
	}
	doc.Rows = build(b.parent)
	return doc
}

func (b *Binding) populator(id string) treegrid.Populator {
	return treegrid.PopulatorFunc(func(c *treegrid.Cell, column int) {
		if n, ok := b.nodes[id]; ok {
			c.Content = n.Text(column)
		}
	})
}

func (b *Binding) collect(row treegrid.RowID, out *[]string) {
	if id, ok := b.ids[row]; ok {
		*out = append(*out, id)
	}
	for _, c := range b.tree.Children(row) {
		b.collect(c, out)
	}
}

func (b *Binding) forget(id string) {
	if row, ok := b.rows[id]; ok {
		delete(b.ids, row)
	}
	delete(b.rows, id)
	delete(b.nodes, id)
}

func (b *Binding) freshID(label string) string {
	base := slug(label)
	id := base
	for k := 2; ; k++ {
		if _, used := b.rows[id]; !used {
			return id
		}
		id = fmt.Sprintf("%s#%d", base, k)
	}
}

func indexOf(list []treegrid.RowID, row treegrid.RowID) int {
	for i, r := range list {
		if r == row {
			return i
		}
	}
	return -1
}
