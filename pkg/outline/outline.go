// Package outline is the document model shown by treegrid: an ordered forest
// of labelled rows with optional extra cells, loadable from YAML, JSON and
// JSONL files and bindable to a treegrid.Tree.
package outline

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrDuplicateID is returned when two nodes of a document share an ID.
	ErrDuplicateID = errors.New("duplicate node id")
	// ErrUnknownFormat is returned for file extensions without a codec.
	ErrUnknownFormat = errors.New("unknown outline format")
	// ErrNodeNotFound is returned for IDs that are not part of a document.
	ErrNodeNotFound = errors.New("node not found")
)

// Node is one row of an outline.
type Node struct {
	ID        string   `json:"id,omitempty" yaml:"id,omitempty"`
	Label     string   `json:"label" yaml:"label"`
	Cells     []string `json:"cells,omitempty" yaml:"cells,omitempty"`
	Collapsed bool     `json:"collapsed,omitempty" yaml:"collapsed,omitempty"`
	Children  []*Node  `json:"children,omitempty" yaml:"children,omitempty"`
}

// Text returns what the node shows in column: the label for column 0 and
// the matching extra cell otherwise.
func (n *Node) Text(column int) string {
	if column == 0 {
		return n.Label
	}
	if column-1 < len(n.Cells) {
		return n.Cells[column-1]
	}
	return ""
}

// sameContent reports whether n and o render identically.
func (n *Node) sameContent(o *Node) bool {
	if n.Label != o.Label || len(n.Cells) != len(o.Cells) {
		return false
	}
	for i := range n.Cells {
		if n.Cells[i] != o.Cells[i] {
			return false
		}
	}
	return true
}

// Document is a whole outline file.
type Document struct {
	Title   string   `json:"title,omitempty" yaml:"title,omitempty"`
	Columns []string `json:"columns,omitempty" yaml:"columns,omitempty"`
	Rows    []*Node  `json:"rows" yaml:"rows"`
}

// Walk visits every node in pre-order. Returning false skips the subtree.
func (d *Document) Walk(fn func(n *Node, parent *Node, depth int) bool) {
	var walk func(list []*Node, parent *Node, depth int)
	walk = func(list []*Node, parent *Node, depth int) {
		for _, n := range list {
			if fn(n, parent, depth) {
				walk(n.Children, n, depth+1)
			}
		}
	}
	walk(d.Rows, nil, 0)
}

// Count returns the number of nodes at any depth.
func (d *Document) Count() int {
	n := 0
	d.Walk(func(*Node, *Node, int) bool {
		n++
		return true
	})
	return n
}

// Find returns the node with the given ID.
func (d *Document) Find(id string) (*Node, error) {
	var found *Node
	d.Walk(func(n *Node, _ *Node, _ int) bool {
		if found == nil && n.ID == id {
			found = n
		}
		return found == nil
	})
	if found == nil {
		return nil, fmt.Errorf("%s: %w", id, ErrNodeNotFound)
	}
	return found, nil
}

// MaxCells returns the largest number of extra cells of any node.
func (d *Document) MaxCells() int {
	m := 0
	d.Walk(func(n *Node, _ *Node, _ int) bool {
		if len(n.Cells) > m {
			m = len(n.Cells)
		}
		return true
	})
	return m
}

// AssignIDs gives every node without an ID one derived from its label path,
// e.g. "groceries/fruit". Collisions get a "#2", "#3" ... suffix.
// Documents that are edited and re-synced should carry explicit IDs.
func (d *Document) AssignIDs() {
	used := make(map[string]int)
	d.Walk(func(n *Node, _ *Node, _ int) bool {
		if n.ID != "" {
			used[n.ID]++
		}
		return true
	})

	var assign func(list []*Node, prefix string)
	assign = func(list []*Node, prefix string) {
		for _, n := range list {
			if n.ID == "" {
				base := slug(n.Label)
				if prefix != "" {
					base = prefix + "/" + base
				}
				id := base
				for k := 2; used[id] > 0; k++ {
					id = fmt.Sprintf("%s#%d", base, k)
				}
				used[id]++
				n.ID = id
			}
			assign(n.Children, n.ID)
		}
	}
	assign(d.Rows, "")
}

// Validate checks that node IDs are unique. Empty IDs are ignored.
func (d *Document) Validate() error {
	seen := make(map[string]bool)
	var err error
	d.Walk(func(n *Node, _ *Node, _ int) bool {
		if err != nil {
			return false
		}
		if n.ID == "" {
			return true
		}
		if seen[n.ID] {
			err = fmt.Errorf("%q: %w", n.ID, ErrDuplicateID)
			return false
		}
		seen[n.ID] = true
		return true
	})
	return err
}

func slug(label string) string {
	s := strings.ToLower(strings.TrimSpace(label))
	s = strings.Map(func(r rune) rune {
		switch r {
		case '/', '#', ' ', '\t':
			return '-'
		}
		return r
	}, s)
	if s == "" {
		return "row"
	}
	return s
}
