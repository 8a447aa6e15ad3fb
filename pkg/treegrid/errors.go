// Package treegrid renders a hierarchical, collapsible set of rows as a fixed
// grid of columns.
//
// Rows live in a Tree arena and are addressed by RowID handles. A Grid keeps
// a flat projection of the currently visible rows (pre-order, skipping the
// descendants of collapsed rows) and one content slice per Column. Each
// (row, column) pair lazily owns a Cell which is never recreated: rebuilds
// change which cells a column presents, never the cells themselves.
//
// All Grid and Tree methods must be called from a single goroutine, normally
// the UI event loop. The coalescing window for row-list mutations is driven
// by a Deferrer that runs its callbacks on that same loop.
package treegrid

import "errors"

// Tree errors
var (
	// ErrRowNotFound indicates that a RowID does not refer to a live row.
	ErrRowNotFound = errors.New("row not found")

	// ErrInvalidIndex indicates that a child index is out of bounds.
	ErrInvalidIndex = errors.New("child index out of bounds")

	// ErrCyclicMove indicates an attempt to move a row below itself.
	ErrCyclicMove = errors.New("cannot move a row into its own subtree")

	// ErrReentrantMutation indicates a tree mutation from inside a populate
	// callback, while the grid is rebuilding. Such mutations are rejected.
	ErrReentrantMutation = errors.New("tree mutated during a grid rebuild")
)

// Cell errors
var (
	// ErrInvalidColumn indicates a negative column index.
	ErrInvalidColumn = errors.New("column index must not be negative")
)

// Configuration errors
var (
	// ErrInvalidColumnCount indicates a column count below one.
	ErrInvalidColumnCount = errors.New("column count must be at least 1")

	// ErrInvalidRowHeight indicates a row height that is not a positive size.
	ErrInvalidRowHeight = errors.New("row height must be positive")
)
