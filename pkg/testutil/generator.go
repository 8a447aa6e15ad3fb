// Package testutil provides outline fixture generators for various tree shapes.
// All generators produce deterministic output for reproducible tests.
package testutil

import (
	"fmt"
	"math/rand"
	"time"
)

// Shape is an abstract outline: a labelled node with ordered children.
// Fixtures are plain data so every package can load them into its own
// tree type.
type Shape struct {
	Label     string   `json:"label" yaml:"label"`
	Collapsed bool     `json:"collapsed,omitempty" yaml:"collapsed,omitempty"`
	Children  []*Shape `json:"children,omitempty" yaml:"children,omitempty"`
}

// Forest is an ordered list of top-level shapes.
type Forest []*Shape

// GeneratorConfig controls fixture generation.
type GeneratorConfig struct {
	Seed          int64   // Random seed for determinism (0 = use current time)
	LabelPrefix   string  // Prefix for node labels (default: "row")
	CollapseRatio float64 // Probability that a node with children is collapsed
}

// DefaultConfig returns a config suitable for most tests.
func DefaultConfig() GeneratorConfig {
	return GeneratorConfig{
		Seed:        42, // Deterministic
		LabelPrefix: "row",
	}
}

// Generator creates outline fixtures with various shapes.
type Generator struct {
	cfg  GeneratorConfig
	rng  *rand.Rand
	next int
}

// New creates a Generator with the given config.
func New(cfg GeneratorConfig) *Generator {
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	if cfg.LabelPrefix == "" {
		cfg.LabelPrefix = "row"
	}
	return &Generator{
		cfg: cfg,
		rng: rand.New(rand.NewSource(seed)),
	}
}

// NewDefault creates a Generator with default config.
func NewDefault() *Generator {
	return New(DefaultConfig())
}

func (g *Generator) node() *Shape {
	g.next++
	return &Shape{Label: fmt.Sprintf("%s-%d", g.cfg.LabelPrefix, g.next)}
}

func (g *Generator) maybeCollapse(s *Shape) {
	if len(s.Children) > 0 && g.cfg.CollapseRatio > 0 && g.rng.Float64() < g.cfg.CollapseRatio {
		s.Collapsed = true
	}
}

// Flat creates size top-level rows without children.
func (g *Generator) Flat(size int) Forest {
	out := make(Forest, size)
	for i := range out {
		out[i] = g.node()
	}
	return out
}

// Chain creates a single path: each row is the only child of the previous.
func (g *Generator) Chain(size int) Forest {
	if size <= 0 {
		return nil
	}
	root := g.node()
	cur := root
	for i := 1; i < size; i++ {
		child := g.node()
		cur.Children = []*Shape{child}
		cur = child
	}
	return Forest{root}
}

// Star creates one root with spokes leaf children.
func (g *Generator) Star(spokes int) Forest {
	root := g.node()
	for i := 0; i < spokes; i++ {
		root.Children = append(root.Children, g.node())
	}
	return Forest{root}
}

// Tree creates a complete tree of the given depth where every inner node has
// breadth children. Depth 1 is a single row.
func (g *Generator) Tree(depth, breadth int) Forest {
	if depth <= 0 {
		return nil
	}
	var build func(level int) *Shape
	build = func(level int) *Shape {
		s := g.node()
		if level < depth {
			for i := 0; i < breadth; i++ {
				s.Children = append(s.Children, build(level+1))
			}
		}
		g.maybeCollapse(s)
		return s
	}
	return Forest{build(1)}
}

// Random creates size rows attached to uniformly chosen earlier rows (or the
// top level), so the shape is a random recursive forest.
func (g *Generator) Random(size int) Forest {
	var forest Forest
	all := make([]*Shape, 0, size)
	for i := 0; i < size; i++ {
		s := g.node()
		pick := g.rng.Intn(len(all) + 1)
		if pick == len(all) {
			forest = append(forest, s)
		} else {
			parent := all[pick]
			parent.Children = append(parent.Children, s)
		}
		all = append(all, s)
	}
	for _, s := range all {
		g.maybeCollapse(s)
	}
	return forest
}

// Count returns the number of nodes in f at any depth.
func (f Forest) Count() int {
	n := 0
	f.Walk(func(*Shape, int) bool {
		n++
		return true
	})
	return n
}

// Walk visits every node in pre-order. Returning false skips the subtree.
func (f Forest) Walk(fn func(s *Shape, depth int) bool) {
	var walk func(list []*Shape, depth int)
	walk = func(list []*Shape, depth int) {
		for _, s := range list {
			if fn(s, depth) {
				walk(s.Children, depth+1)
			}
		}
	}
	walk(f, 0)
}

// Visible returns the labels of the rows a grid shows for f: pre-order,
// without the descendants of collapsed rows.
func (f Forest) Visible() []string {
	var out []string
	f.Walk(func(s *Shape, _ int) bool {
		out = append(out, s.Label)
		return !s.Collapsed
	})
	return out
}

// Find returns the first node labelled label.
func (f Forest) Find(label string) *Shape {
	var found *Shape
	f.Walk(func(s *Shape, _ int) bool {
		if found == nil && s.Label == label {
			found = s
		}
		return found == nil
	})
	return found
}
