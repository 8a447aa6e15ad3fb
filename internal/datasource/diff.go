package datasource

import (
	"fmt"
	"sort"

	"github.com/vanderheijden86/treegrid/pkg/outline"
)

// SourceDiff represents differences between two outline sources
type SourceDiff struct {
	// SourceA is the path of the first source
	SourceA string
	// SourceB is the path of the second source
	SourceB string
	// MissingInA contains node IDs present in B but not in A
	MissingInA []string
	// MissingInB contains node IDs present in A but not in B
	MissingInB []string
	// LabelMismatch contains nodes whose label or cells differ
	LabelMismatch []FieldDifference
	// ParentMismatch contains nodes placed under different parents
	ParentMismatch []FieldDifference
	// CountA is the number of nodes in source A
	CountA int
	// CountB is the number of nodes in source B
	CountB int
}

// FieldDifference represents a mismatch of one field for a single node
type FieldDifference struct {
	ID string `json:"id"`
	A  string `json:"a"`
	B  string `json:"b"`
}

// HasInconsistencies returns true if there are any differences between sources
func (d SourceDiff) HasInconsistencies() bool {
	return len(d.MissingInA) > 0 || len(d.MissingInB) > 0 ||
		len(d.LabelMismatch) > 0 || len(d.ParentMismatch) > 0
}

// Summary returns a human-readable summary of the differences
func (d SourceDiff) Summary() string {
	if !d.HasInconsistencies() {
		return fmt.Sprintf("Sources match (%d rows each)", d.CountA)
	}

	summary := fmt.Sprintf("Inconsistencies found between %s and %s:\n", d.SourceA, d.SourceB)
	if d.CountA != d.CountB {
		summary += fmt.Sprintf("  - Count mismatch: %d vs %d\n", d.CountA, d.CountB)
	}
	summary += listIDs(d.MissingInA, fmt.Sprintf("rows in %s but not %s", d.SourceB, d.SourceA))
	summary += listIDs(d.MissingInB, fmt.Sprintf("rows in %s but not %s", d.SourceA, d.SourceB))
	summary += listFields(d.LabelMismatch, "rows with different content")
	summary += listFields(d.ParentMismatch, "rows under different parents")
	return summary
}

func listIDs(ids []string, what string) string {
	if len(ids) == 0 {
		return ""
	}
	s := fmt.Sprintf("  - %d %s\n", len(ids), what)
	if len(ids) <= 5 {
		for _, id := range ids {
			s += fmt.Sprintf("    - %s\n", id)
		}
	}
	return s
}

func listFields(diffs []FieldDifference, what string) string {
	if len(diffs) == 0 {
		return ""
	}
	s := fmt.Sprintf("  - %d %s\n", len(diffs), what)
	if len(diffs) <= 5 {
		for _, m := range diffs {
			s += fmt.Sprintf("    - %s: %q vs %q\n", m.ID, m.A, m.B)
		}
	}
	return s
}

// DiffOptions configures the diff operation
type DiffOptions struct {
	// IgnoreCells compares labels only
	IgnoreCells bool
	// MaxDifferences limits the number of differences tracked per kind (0 = unlimited)
	MaxDifferences int
}

// DefaultDiffOptions returns sensible default diff options
func DefaultDiffOptions() DiffOptions {
	return DiffOptions{MaxDifferences: 100}
}

type flatNode struct {
	parent  string
	content string
}

func flatten(doc *outline.Document, opts DiffOptions) map[string]flatNode {
	out := make(map[string]flatNode)
	for _, rec := range doc.Records() {
		content := rec.Label
		if !opts.IgnoreCells {
			for _, c := range rec.Cells {
				content += " | " + c
			}
		}
		out[rec.ID] = flatNode{parent: rec.Parent, content: content}
	}
	return out
}

// DetectInconsistencies compares two outlines by node ID. Result lists are
// sorted by ID.
func DetectInconsistencies(docA, docB *outline.Document, sourceA, sourceB string, opts DiffOptions) SourceDiff {
	diff := SourceDiff{
		SourceA: sourceA,
		SourceB: sourceB,
	}
	mapA := flatten(docA, opts)
	mapB := flatten(docB, opts)
	diff.CountA = len(mapA)
	diff.CountB = len(mapB)

	room := func(n int) bool {
		return opts.MaxDifferences == 0 || n < opts.MaxDifferences
	}
	for _, id := range sortedKeys(mapA) {
		if _, exists := mapB[id]; !exists && room(len(diff.MissingInB)) {
			diff.MissingInB = append(diff.MissingInB, id)
		}
	}
	for _, id := range sortedKeys(mapB) {
		b := mapB[id]
		a, exists := mapA[id]
		if !exists {
			if room(len(diff.MissingInA)) {
				diff.MissingInA = append(diff.MissingInA, id)
			}
			continue
		}
		if a.content != b.content && room(len(diff.LabelMismatch)) {
			diff.LabelMismatch = append(diff.LabelMismatch, FieldDifference{ID: id, A: a.content, B: b.content})
		}
		if a.parent != b.parent && room(len(diff.ParentMismatch)) {
			diff.ParentMismatch = append(diff.ParentMismatch, FieldDifference{ID: id, A: a.parent, B: b.parent})
		}
	}
	return diff
}

func sortedKeys(m map[string]flatNode) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// CompareSources loads and compares two data sources
func CompareSources(sourceA, sourceB DataSource, opts DiffOptions) (*SourceDiff, error) {
	docA, err := LoadFromSource(sourceA)
	if err != nil {
		return nil, fmt.Errorf("failed to load source A (%s): %w", sourceA.Path, err)
	}
	docB, err := LoadFromSource(sourceB)
	if err != nil {
		return nil, fmt.Errorf("failed to load source B (%s): %w", sourceB.Path, err)
	}
	diff := DetectInconsistencies(docA, docB, sourceA.Path, sourceB.Path, opts)
	return &diff, nil
}

// CheckAllSourcesConsistent compares every pair of valid sources and returns
// the pairs that differ.
func CheckAllSourcesConsistent(sources []DataSource, opts DiffOptions) ([]SourceDiff, error) {
	var diffs []SourceDiff
	for i := 0; i < len(sources); i++ {
		if !sources[i].Valid {
			continue
		}
		for j := i + 1; j < len(sources); j++ {
			if !sources[j].Valid {
				continue
			}
			diff, err := CompareSources(sources[i], sources[j], opts)
			if err != nil {
				// Unloadable pair; validation already reported it.
				continue
			}
			if diff.HasInconsistencies() {
				diffs = append(diffs, *diff)
			}
		}
	}
	return diffs, nil
}

// InconsistencyReport provides a comprehensive report of all source inconsistencies
type InconsistencyReport struct {
	// Sources is the list of all sources checked
	Sources []DataSource
	// Diffs contains all detected differences
	Diffs []SourceDiff
	// TotalInconsistencies is the total number of inconsistencies found
	TotalInconsistencies int
	// HasStructuralInconsistencies indicates rows missing or re-parented
	HasStructuralInconsistencies bool
}

// GenerateInconsistencyReport creates a comprehensive report
func GenerateInconsistencyReport(sources []DataSource, opts DiffOptions) (*InconsistencyReport, error) {
	diffs, err := CheckAllSourcesConsistent(sources, opts)
	if err != nil {
		return nil, err
	}
	report := &InconsistencyReport{
		Sources: sources,
		Diffs:   diffs,
	}
	for _, diff := range diffs {
		report.TotalInconsistencies += len(diff.MissingInA) + len(diff.MissingInB) +
			len(diff.LabelMismatch) + len(diff.ParentMismatch)
		if len(diff.MissingInA)+len(diff.MissingInB)+len(diff.ParentMismatch) > 0 {
			report.HasStructuralInconsistencies = true
		}
	}
	return report, nil
}
