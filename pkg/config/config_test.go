package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/vanderheijden86/treegrid/pkg/treegrid"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Grid.ColumnCount != 1 {
		t.Errorf("expected 1 column, got %d", cfg.Grid.ColumnCount)
	}
	if cfg.Grid.RowHeight != treegrid.DefaultRowHeight {
		t.Errorf("expected row height %d, got %d", treegrid.DefaultRowHeight, cfg.Grid.RowHeight)
	}
	if cfg.CoalesceWindow() != 20*time.Millisecond {
		t.Errorf("expected 20ms coalesce window, got %v", cfg.CoalesceWindow())
	}
	if cfg.Separator() != nil {
		t.Error("expected no row separator by default")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config invalid: %v", err)
	}
}

func TestLoadFrom_NonExistent(t *testing.T) {
	cfg, err := LoadFrom("/nonexistent/path/config.yaml")
	if err != nil {
		t.Fatalf("expected no error for missing file, got: %v", err)
	}
	if cfg.Grid.ColumnCount != 1 {
		t.Errorf("expected default config, got %d columns", cfg.Grid.ColumnCount)
	}
}

func TestLoadFrom_ValidConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	content := `
grid:
  column_count: 3
  row_separator:
    style: dashed
    color: "#444444"
  columns:
    - width: 30
      fixed: true
    - min_width: 8
      max_width: 20
      grow: 1
  coalesce_ms: 50

ui:
  state_file: ~/state/collapse.json
  headers: [Task, Owner, Due]
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Grid.ColumnCount != 3 {
		t.Errorf("expected 3 columns, got %d", cfg.Grid.ColumnCount)
	}
	// Unset keys keep their defaults.
	if cfg.Grid.RowHeight != treegrid.DefaultRowHeight {
		t.Errorf("row height = %d, want default", cfg.Grid.RowHeight)
	}
	if cfg.CoalesceWindow() != 50*time.Millisecond {
		t.Errorf("coalesce window = %v", cfg.CoalesceWindow())
	}
	sep := cfg.Separator()
	if sep == nil || sep.Style != "dashed" || sep.Color != "#444444" {
		t.Errorf("separator = %+v", sep)
	}
	if len(cfg.UI.Headers) != 3 || cfg.UI.Headers[2] != "Due" {
		t.Errorf("headers = %v", cfg.UI.Headers)
	}

	home, _ := os.UserHomeDir()
	if want := filepath.Join(home, "state/collapse.json"); cfg.UI.StateFile != want {
		t.Errorf("expected expanded state file %q, got %q", want, cfg.UI.StateFile)
	}
}

func TestLoadFrom_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("grid: [unclosed"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFrom(path); err == nil {
		t.Error("expected parse error")
	}
}

func TestLoadFrom_RejectsInvalidValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("grid:\n  column_count: -2\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := LoadFrom(path)
	if !errors.Is(err, ErrInvalidColumnCount) {
		t.Errorf("err = %v, want ErrInvalidColumnCount", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   error
	}{
		{"default", func(*Config) {}, nil},
		{"zero columns", func(c *Config) { c.Grid.ColumnCount = 0 }, ErrInvalidColumnCount},
		{"zero height", func(c *Config) { c.Grid.RowHeight = 0 }, ErrInvalidRowHeight},
		{"negative coalesce", func(c *Config) { c.Grid.CoalesceMS = -1 }, ErrInvalidCoalesce},
		{"zero coalesce", func(c *Config) { c.Grid.CoalesceMS = 0 }, nil},
		{"min above max", func(c *Config) {
			c.Grid.Columns = []ColumnConfig{{MinWidth: 10, MaxWidth: 5}}
		}, ErrInvalidColumnWidth},
		{"negative grow", func(c *Config) {
			c.Grid.Columns = []ColumnConfig{{Grow: -1}}
		}, ErrInvalidColumnWidth},
		{"fixed without width", func(c *Config) {
			c.Grid.Columns = []ColumnConfig{{Fixed: true}}
		}, ErrInvalidColumnWidth},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.want == nil {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestColumnSpec(t *testing.T) {
	if w := (ColumnConfig{}).Spec(); w != nil {
		t.Errorf("empty column width = %+v, want nil", w)
	}
	fixed := ColumnConfig{Width: 12, Fixed: true}.Spec()
	if fixed.Width != 12 || fixed.MaxWidth != 12 || fixed.Grow != 0 {
		t.Errorf("fixed width = %+v", fixed)
	}
	flex := ColumnConfig{MinWidth: 4, Grow: 2}.Spec()
	if flex.MinWidth != 4 || flex.Grow != 2 || flex.Width != 0 {
		t.Errorf("flex width = %+v", flex)
	}
}

func TestGridOptions(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Grid.ColumnCount = 2
	cfg.Grid.RowHeight = 64
	cfg.Grid.RowSeparator = &SeparatorConfig{Style: "line"}
	cfg.Grid.Columns = []ColumnConfig{{}, {Width: 9, Fixed: true}}

	g := treegrid.New(cfg.GridOptions()...)

	if g.ColumnCount() != 2 {
		t.Errorf("ColumnCount = %d", g.ColumnCount())
	}
	if g.RowHeight() != 64 {
		t.Errorf("RowHeight = %d", g.RowHeight())
	}
	if s := g.RowSeparator(); s == nil || s.Style != "line" {
		t.Errorf("RowSeparator = %+v", s)
	}
	if w := g.ColumnWidth(0); w != nil {
		t.Errorf("column 0 width = %+v, want unset", w)
	}
	if w := g.ColumnWidth(1); w == nil || w.Width != 9 || w.MaxWidth != 9 {
		t.Errorf("column 1 width = %+v", w)
	}
}

func TestSaveTo_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "config.yaml")

	cfg := DefaultConfig()
	cfg.Grid.ColumnCount = 4
	cfg.Grid.Columns = []ColumnConfig{{Width: 20, Fixed: true}}
	cfg.UI.Headers = []string{"Name"}

	if err := SaveTo(cfg, path); err != nil {
		t.Fatalf("SaveTo: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "column_count: 4") {
		t.Errorf("saved yaml missing column_count:\n%s", data)
	}

	loaded, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}
	if loaded.Grid.ColumnCount != 4 || len(loaded.Grid.Columns) != 1 || !loaded.Grid.Columns[0].Fixed {
		t.Errorf("loaded = %+v", loaded.Grid)
	}
	if len(loaded.UI.Headers) != 1 || loaded.UI.Headers[0] != "Name" {
		t.Errorf("headers = %v", loaded.UI.Headers)
	}
}

func TestXDGPaths(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "cfg"))
	t.Setenv("XDG_STATE_HOME", filepath.Join(dir, "state"))

	if got, want := ConfigPath(), filepath.Join(dir, "cfg", "treegrid", "config.yaml"); got != want {
		t.Errorf("ConfigPath = %q, want %q", got, want)
	}
	if got, want := StateDir(), filepath.Join(dir, "state", "treegrid"); got != want {
		t.Errorf("StateDir = %q, want %q", got, want)
	}

	cfg := DefaultConfig()
	cfg.Grid.ColumnCount = 5
	if err := Save(cfg); err != nil {
		t.Fatalf("Save: %v", err)
	}
	loaded, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.Grid.ColumnCount != 5 {
		t.Errorf("Load() column count = %d", loaded.Grid.ColumnCount)
	}
}

func TestResolvedStateFile(t *testing.T) {
	t.Setenv("XDG_STATE_HOME", "/tmp/xdg-state")

	cfg := DefaultConfig()
	if got := cfg.ResolvedStateFile("/data/plan.yaml"); got != "/tmp/xdg-state/treegrid/plan.collapse.json" {
		t.Errorf("derived state file = %q", got)
	}
	if got := cfg.ResolvedStateFile(""); got != "" {
		t.Errorf("no outline path gave %q", got)
	}

	cfg.UI.StateFile = "/explicit.json"
	if got := cfg.ResolvedStateFile("/data/plan.yaml"); got != "/explicit.json" {
		t.Errorf("explicit state file = %q", got)
	}
}
