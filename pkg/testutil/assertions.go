package testutil

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	json "github.com/goccy/go-json"
	"gopkg.in/yaml.v3"
)

// AssertLabels checks that got lists exactly the labels of want, in order.
func AssertLabels(t *testing.T, want, got []string) {
	t.Helper()

	if len(want) != len(got) {
		t.Errorf("expected %d rows, got %d\nwant: %v\ngot:  %v", len(want), len(got), want, got)
		return
	}
	for i := range want {
		if want[i] != got[i] {
			t.Errorf("row %d: expected %q, got %q\nwant: %v\ngot:  %v", i, want[i], got[i], want, got)
			return
		}
	}
}

// AssertNoDuplicates checks that no label occurs twice in got.
func AssertNoDuplicates(t *testing.T, got []string) {
	t.Helper()

	seen := make(map[string]int, len(got))
	for i, l := range got {
		if j, ok := seen[l]; ok {
			t.Errorf("duplicate row %q at positions %d and %d", l, j, i)
		}
		seen[l] = i
	}
}

// AssertJSONEqual compares two values after JSON round-tripping.
// Useful for comparing structs that may have different Go representations
// but equivalent JSON forms.
func AssertJSONEqual(t *testing.T, expected, actual interface{}) {
	t.Helper()

	expectedJSON, err := json.Marshal(expected)
	if err != nil {
		t.Fatalf("failed to marshal expected: %v", err)
	}

	actualJSON, err := json.Marshal(actual)
	if err != nil {
		t.Fatalf("failed to marshal actual: %v", err)
	}

	if string(expectedJSON) != string(actualJSON) {
		t.Errorf("JSON mismatch:\nexpected: %s\nactual:   %s", expectedJSON, actualJSON)
	}
}

// Golden file helpers

// GoldenFile handles golden file comparisons.
type GoldenFile struct {
	t      *testing.T
	dir    string
	name   string
	update bool
}

// NewGoldenFile creates a golden file helper.
// If GENERATE_GOLDEN env var is set, golden files will be updated.
func NewGoldenFile(t *testing.T, dir, name string) *GoldenFile {
	t.Helper()
	return &GoldenFile{
		t:      t,
		dir:    dir,
		name:   name,
		update: os.Getenv("GENERATE_GOLDEN") != "",
	}
}

// Path returns the full path to the golden file.
func (g *GoldenFile) Path() string {
	return filepath.Join(g.dir, g.name)
}

// Assert compares actual content against the golden file.
// If GENERATE_GOLDEN is set, updates the golden file instead.
func (g *GoldenFile) Assert(actual string) {
	g.t.Helper()

	path := g.Path()
	if g.update {
		if err := os.MkdirAll(g.dir, 0755); err != nil {
			g.t.Fatalf("failed to create golden dir: %v", err)
		}
		if err := os.WriteFile(path, []byte(actual), 0644); err != nil {
			g.t.Fatalf("failed to write golden file: %v", err)
		}
		g.t.Logf("updated golden file: %s", path)
		return
	}

	expected, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			g.t.Fatalf("golden file does not exist: %s\nRun with GENERATE_GOLDEN=1 to create it", path)
		}
		g.t.Fatalf("failed to read golden file: %v", err)
	}

	if string(expected) == actual {
		return
	}
	expectedLines := strings.Split(string(expected), "\n")
	actualLines := strings.Split(actual, "\n")
	for i := 0; i < len(expectedLines) || i < len(actualLines); i++ {
		var expLine, actLine string
		if i < len(expectedLines) {
			expLine = expectedLines[i]
		}
		if i < len(actualLines) {
			actLine = actualLines[i]
		}
		if expLine != actLine {
			g.t.Errorf("golden file mismatch at line %d:\nexpected: %s\nactual:   %s", i+1, expLine, actLine)
			return
		}
	}
	g.t.Errorf("golden file mismatch (length differs)")
}

// Outline file helpers

// WriteOutlineYAML writes f as an outline YAML document into dir and returns
// its path.
func WriteOutlineYAML(t *testing.T, dir, name string, f Forest) string {
	t.Helper()

	data, err := yaml.Marshal(map[string]Forest{"rows": f})
	if err != nil {
		t.Fatalf("failed to marshal outline: %v", err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("failed to write outline: %v", err)
	}
	return path
}

// WriteOutlineJSON writes f as an outline JSON document into dir and returns
// its path.
func WriteOutlineJSON(t *testing.T, dir, name string, f Forest) string {
	t.Helper()

	data, err := json.MarshalIndent(map[string]Forest{"rows": f}, "", "  ")
	if err != nil {
		t.Fatalf("failed to marshal outline: %v", err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("failed to write outline: %v", err)
	}
	return path
}
