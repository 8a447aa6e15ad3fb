// Package config handles loading and saving treegrid configuration.
//
// Configuration follows the XDG Base Directory specification:
//   - Config:  ~/.config/treegrid/config.yaml
//   - State:   ~/.local/state/treegrid/ (collapse state per outline)
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/vanderheijden86/treegrid/pkg/treegrid"
)

// Validation errors.
var (
	ErrInvalidColumnCount = errors.New("grid.column_count must be at least 1")
	ErrInvalidRowHeight   = errors.New("grid.row_height must be positive")
	ErrInvalidCoalesce    = errors.New("grid.coalesce_ms must not be negative")
	ErrInvalidColumnWidth = errors.New("column width bounds are inconsistent")
)

// SeparatorConfig describes the line drawn between rows.
type SeparatorConfig struct {
	Style     string `yaml:"style,omitempty"` // line, dashed, space
	Color     string `yaml:"color,omitempty"`
	Thickness int    `yaml:"thickness,omitempty"`
}

// ColumnConfig sizes one column. Zero fields are unset.
type ColumnConfig struct {
	Width    int     `yaml:"width,omitempty"`
	MinWidth int     `yaml:"min_width,omitempty"`
	MaxWidth int     `yaml:"max_width,omitempty"`
	Grow     float64 `yaml:"grow,omitempty"`
	Fixed    bool    `yaml:"fixed,omitempty"` // pin to Width
}

// GridConfig holds the engine settings.
type GridConfig struct {
	ColumnCount  int              `yaml:"column_count,omitempty"`
	RowHeight    int              `yaml:"row_height,omitempty"` // engine units; the TUI draws one line per 32
	RowSeparator *SeparatorConfig `yaml:"row_separator,omitempty"`
	Columns      []ColumnConfig   `yaml:"columns,omitempty"`
	CoalesceMS   int              `yaml:"coalesce_ms,omitempty"`
}

// UIConfig holds UI preference settings.
type UIConfig struct {
	StateFile string   `yaml:"state_file,omitempty"` // collapse state; defaults under StateDir
	Headers   []string `yaml:"headers,omitempty"`    // column titles when the outline has none
	Theme     string   `yaml:"theme,omitempty"`      // dark, light
}

// Config is the top-level configuration for treegrid.
type Config struct {
	Grid GridConfig `yaml:"grid"`
	UI   UIConfig   `yaml:"ui,omitempty"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Grid: GridConfig{
			ColumnCount: 1,
			RowHeight:   treegrid.DefaultRowHeight,
			CoalesceMS:  int(treegrid.DefaultCoalesceWindow / time.Millisecond),
		},
		UI: UIConfig{
			Theme: "dark",
		},
	}
}

// ConfigDir returns the XDG config directory for treegrid.
func ConfigDir() string {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, "treegrid")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "treegrid")
}

// StateDir returns the XDG state directory for treegrid.
func StateDir() string {
	if dir := os.Getenv("XDG_STATE_HOME"); dir != "" {
		return filepath.Join(dir, "treegrid")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".local", "state", "treegrid")
}

// ConfigPath returns the full path to config.yaml.
func ConfigPath() string {
	dir := ConfigDir()
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, "config.yaml")
}

// Load reads the config file from the XDG config directory.
// Returns DefaultConfig if the file doesn't exist.
func Load() (Config, error) {
	path := ConfigPath()
	if path == "" {
		return DefaultConfig(), nil
	}
	return LoadFrom(path)
}

// LoadFrom reads config from a specific path. Returns DefaultConfig if the
// file doesn't exist. Keys missing from the file keep their defaults.
func LoadFrom(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config: %w", err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config: %w", err)
	}
	cfg.UI.StateFile = expandHome(cfg.UI.StateFile)

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Save writes the config to the XDG config directory.
func Save(cfg Config) error {
	path := ConfigPath()
	if path == "" {
		return fmt.Errorf("cannot determine config directory")
	}
	return SaveTo(cfg, path)
}

// SaveTo writes the config to a specific path.
func SaveTo(cfg Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// Validate reports the first setting the grid would reject.
func (c Config) Validate() error {
	g := c.Grid
	if g.ColumnCount < 1 {
		return ErrInvalidColumnCount
	}
	if g.RowHeight <= 0 {
		return ErrInvalidRowHeight
	}
	if g.CoalesceMS < 0 {
		return ErrInvalidCoalesce
	}
	for i, col := range g.Columns {
		if col.Width < 0 || col.MinWidth < 0 || col.MaxWidth < 0 || col.Grow < 0 {
			return fmt.Errorf("column %d: %w", i, ErrInvalidColumnWidth)
		}
		if col.MaxWidth > 0 && col.MinWidth > col.MaxWidth {
			return fmt.Errorf("column %d: min_width %d exceeds max_width %d: %w",
				i, col.MinWidth, col.MaxWidth, ErrInvalidColumnWidth)
		}
		if col.Fixed && col.Width == 0 {
			return fmt.Errorf("column %d: fixed column needs a width: %w", i, ErrInvalidColumnWidth)
		}
	}
	return nil
}

// CoalesceWindow returns grid.coalesce_ms as a duration.
func (c Config) CoalesceWindow() time.Duration {
	return time.Duration(c.Grid.CoalesceMS) * time.Millisecond
}

// Separator converts grid.row_separator, or returns nil when absent.
func (c Config) Separator() *treegrid.Separator {
	s := c.Grid.RowSeparator
	if s == nil {
		return nil
	}
	return &treegrid.Separator{Style: s.Style, Color: s.Color, Thickness: s.Thickness}
}

// Spec converts a column entry to a width spec, or nil when it sets nothing.
func (col ColumnConfig) Spec() *treegrid.WidthSpec {
	if col.Fixed {
		return treegrid.Fixed(col.Width)
	}
	if col == (ColumnConfig{}) {
		return nil
	}
	return &treegrid.WidthSpec{
		Width:    col.Width,
		MinWidth: col.MinWidth,
		MaxWidth: col.MaxWidth,
		Grow:     col.Grow,
	}
}

// GridOptions translates the grid section into treegrid options.
func (c Config) GridOptions() []treegrid.Option {
	opts := []treegrid.Option{
		treegrid.WithColumnCount(c.Grid.ColumnCount),
		treegrid.WithRowHeight(c.Grid.RowHeight),
		treegrid.WithRowSeparator(c.Separator()),
		treegrid.WithCoalesceWindow(c.CoalesceWindow()),
	}
	for i, col := range c.Grid.Columns {
		if w := col.Spec(); w != nil {
			opts = append(opts, treegrid.WithColumnWidth(i, w))
		}
	}
	return opts
}

// ResolvedStateFile returns ui.state_file, or a file under StateDir named
// after the outline when unset. It returns "" when no location is known.
func (c Config) ResolvedStateFile(outlinePath string) string {
	if c.UI.StateFile != "" {
		return c.UI.StateFile
	}
	dir := StateDir()
	if dir == "" || outlinePath == "" {
		return ""
	}
	base := strings.TrimSuffix(filepath.Base(outlinePath), filepath.Ext(outlinePath))
	return filepath.Join(dir, base+".collapse.json")
}

func expandHome(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[1:])
}
