package ui

import (
	"log"
	"os"
	"path/filepath"

	json "github.com/goccy/go-json"

	"github.com/vanderheijden86/treegrid/pkg/treegrid"
)

// CollapseState is the persisted expand/collapse state of the grid.
//
// File format (JSON):
//
//	{
//	  "version": 1,
//	  "collapsed": {
//	    "plan.yaml/groceries": true,
//	    "plan.yaml/groceries/fruit": false
//	  }
//	}
//
// Keys are "<source>/<node id>"; the synthetic row of a source is
// "<source>/". Rows missing from the map keep the flag of their document.
// A missing or corrupt file means defaults.
type CollapseState struct {
	Version   int             `json:"version"`
	Collapsed map[string]bool `json:"collapsed"`
}

// CollapseStateVersion is the current schema version.
const CollapseStateVersion = 1

// DefaultCollapseState returns an empty state.
func DefaultCollapseState() *CollapseState {
	return &CollapseState{
		Version:   CollapseStateVersion,
		Collapsed: make(map[string]bool),
	}
}

func stateKey(source, id string) string {
	return source + "/" + id
}

// LoadCollapseState reads path. Errors are logged and yield the default
// state; an empty path skips persistence.
func LoadCollapseState(path string) *CollapseState {
	state := DefaultCollapseState()
	if path == "" {
		return state
	}
	data, err := os.ReadFile(path)
	if err != nil {
		// First run.
		return state
	}
	if err := json.Unmarshal(data, state); err != nil {
		log.Printf("warning: invalid collapse state file %s, using defaults: %v", path, err)
		return DefaultCollapseState()
	}
	if state.Version != CollapseStateVersion {
		log.Printf("warning: collapse state %s has version %d, want %d; ignoring", path, state.Version, CollapseStateVersion)
		return DefaultCollapseState()
	}
	if state.Collapsed == nil {
		state.Collapsed = make(map[string]bool)
	}
	return state
}

// Save writes the state to path. An empty path is a no-op.
func (s *CollapseState) Save(path string) error {
	if path == "" {
		return nil
	}
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// CaptureCollapseState records the flag of every row that has children.
func CaptureCollapseState(tree *treegrid.Tree, sources []*Source) *CollapseState {
	state := DefaultCollapseState()
	for _, src := range sources {
		src.eachRow(func(row treegrid.RowID, id string) {
			if tree.ChildCount(row) > 0 {
				state.Collapsed[stateKey(src.Name, id)] = tree.IsCollapsed(row)
			}
		})
	}
	return state
}

// Apply sets the recorded flags. Unknown keys are ignored. It returns the
// number of rows it touched.
func (s *CollapseState) Apply(tree *treegrid.Tree, sources []*Source) int {
	if s == nil || len(s.Collapsed) == 0 {
		return 0
	}
	n := 0
	for _, src := range sources {
		src.eachRow(func(row treegrid.RowID, id string) {
			collapsed, ok := s.Collapsed[stateKey(src.Name, id)]
			if !ok || tree.IsCollapsed(row) == collapsed {
				return
			}
			if err := tree.SetCollapsed(row, collapsed); err == nil {
				n++
			}
		})
	}
	return n
}
