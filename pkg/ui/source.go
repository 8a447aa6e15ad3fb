package ui

import (
	"fmt"
	"path/filepath"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/vanderheijden86/treegrid/pkg/outline"
	"github.com/vanderheijden86/treegrid/pkg/treegrid"
	"github.com/vanderheijden86/treegrid/pkg/watcher"
)

// Source is one outline shown by the grid.
type Source struct {
	Name string
	Path string

	// Load re-reads the outline after its file changed. Save writes the
	// edited outline back. Either may be nil.
	Load func() (*outline.Document, error)
	Save func(*outline.Document) error

	// Watcher, when set, drives live reload through WatchFileCmd.
	Watcher *watcher.Watcher

	Binding *outline.Binding
	dirty   bool
}

// SourceName derives a display name from a path.
func SourceName(path string) string {
	return filepath.Base(strings.TrimRight(path, string(filepath.Separator)))
}

// Dirty reports whether the outline has unsaved edits.
func (s *Source) Dirty() bool {
	return s.dirty
}

// synthetic reports whether the source hangs below its own title row.
func (s *Source) synthetic() bool {
	return s.Binding != nil && s.Binding.Parent() != treegrid.RootID
}

// owns reports whether row belongs to the source, its title row included.
func (s *Source) owns(row treegrid.RowID) bool {
	if s.Binding == nil {
		return false
	}
	if s.synthetic() && row == s.Binding.Parent() {
		return true
	}
	_, ok := s.Binding.NodeID(row)
	return ok
}

// eachRow visits the source's rows in pre-order with their node IDs.
func (s *Source) eachRow(fn func(row treegrid.RowID, id string)) {
	if s.Binding == nil {
		return
	}
	tree := s.Binding.Tree()
	if s.synthetic() {
		fn(s.Binding.Parent(), "")
	}
	var walk func(parent treegrid.RowID)
	walk = func(parent treegrid.RowID) {
		for _, row := range tree.Children(parent) {
			id, ok := s.Binding.NodeID(row)
			if !ok {
				continue
			}
			fn(row, id)
			walk(row)
		}
	}
	walk(s.Binding.Parent())
}

// Mount binds each document below tree. A single source fills the top
// level; with several sources each outline hangs below a title row.
func Mount(tree *treegrid.Tree, sources []*Source, docs []*outline.Document) error {
	if len(sources) != len(docs) {
		return fmt.Errorf("mount: %d sources for %d documents", len(sources), len(docs))
	}
	for i, src := range sources {
		parent := treegrid.RootID
		if len(sources) > 1 {
			var err error
			parent, err = tree.Append(treegrid.RootID, titlePopulator(src, docs[i].Title))
			if err != nil {
				return fmt.Errorf("mount %s: %w", src.Name, err)
			}
		}
		b, err := outline.Bind(tree, parent, docs[i])
		if err != nil {
			return fmt.Errorf("mount %s: %w", src.Name, err)
		}
		src.Binding = b
	}
	return nil
}

func titlePopulator(src *Source, title string) treegrid.Populator {
	return treegrid.PopulatorFunc(func(c *treegrid.Cell, column int) {
		if column != 0 {
			c.Content = ""
			return
		}
		label := src.Name
		if title != "" {
			label = fmt.Sprintf("%s (%s)", title, src.Name)
		}
		c.Content = label
	})
}

// FileChangedMsg reports that the file of sources[Source] changed on disk.
type FileChangedMsg struct {
	Source int
}

// WatchFileCmd waits for the next change of w.
func WatchFileCmd(w *watcher.Watcher, source int) tea.Cmd {
	if w == nil {
		return nil
	}
	return func() tea.Msg {
		<-w.Changed()
		return FileChangedMsg{Source: source}
	}
}
