// Package datasource discovers, validates and selects outline sources:
// SQLite databases and YAML, JSON or JSONL outline files. When a directory
// holds several copies of an outline, the freshest valid one wins.
package datasource

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/vanderheijden86/treegrid/pkg/outline"
)

// ErrNoSources is returned when discovery finds nothing loadable.
var ErrNoSources = errors.New("no valid sources discovered")

// SourceType identifies the type of data source
type SourceType string

const (
	// SourceTypeSQLite is a SQLite database with an outline_rows table
	SourceTypeSQLite SourceType = "sqlite"
	// SourceTypeYAML is a nested YAML outline
	SourceTypeYAML SourceType = "yaml"
	// SourceTypeJSON is a nested JSON outline
	SourceTypeJSON SourceType = "json"
	// SourceTypeJSONL is a flat JSONL outline
	SourceTypeJSONL SourceType = "jsonl"
)

// Priority values for source types (higher = more authoritative)
const (
	PrioritySQLite = 100
	PriorityYAML   = 80
	PriorityJSON   = 60
	PriorityJSONL  = 50
)

// DataSource represents a potential source of outline data
type DataSource struct {
	// Type identifies the source type
	Type SourceType `json:"type"`
	// Path is the absolute path to the source file
	Path string `json:"path"`
	// Priority determines preference when timestamps are equal (higher = preferred)
	Priority int `json:"priority"`
	// ModTime is the last modification time of the source; for a validated
	// SQLite source it is the newest row stamp
	ModTime time.Time `json:"mod_time"`
	// Valid indicates whether the source passed validation
	Valid bool `json:"valid"`
	// ValidationError describes why validation failed (if Valid is false)
	ValidationError string `json:"validation_error,omitempty"`
	// RowCount is the number of rows in the source (set during validation)
	RowCount int `json:"row_count"`
	// Size is the file size in bytes
	Size int64 `json:"size"`
}

// String returns a human-readable description of the source
func (s DataSource) String() string {
	status := "valid"
	if !s.Valid {
		status = fmt.Sprintf("invalid: %s", s.ValidationError)
	}
	return fmt.Sprintf("%s (%s, priority=%d, mod=%s, rows=%d, %s)",
		s.Path, s.Type, s.Priority, s.ModTime.Format(time.RFC3339), s.RowCount, status)
}

// TypeFromPath maps a file extension to a source type.
func TypeFromPath(path string) (SourceType, int, bool) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".db", ".sqlite", ".sqlite3":
		return SourceTypeSQLite, PrioritySQLite, true
	case ".yaml", ".yml":
		return SourceTypeYAML, PriorityYAML, true
	case ".json":
		return SourceTypeJSON, PriorityJSON, true
	case ".jsonl", ".ndjson":
		return SourceTypeJSONL, PriorityJSONL, true
	}
	return "", 0, false
}

// NewSource describes the file at path without validating it.
func NewSource(path string) (DataSource, error) {
	typ, prio, ok := TypeFromPath(path)
	if !ok {
		return DataSource{}, fmt.Errorf("%s: %w", path, outline.ErrUnknownFormat)
	}
	info, err := os.Stat(path)
	if err != nil {
		return DataSource{}, fmt.Errorf("stat source: %w", err)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	return DataSource{
		Type:     typ,
		Path:     abs,
		Priority: prio,
		ModTime:  info.ModTime(),
		Size:     info.Size(),
	}, nil
}

// DiscoveryOptions configures source discovery behavior
type DiscoveryOptions struct {
	// Dir is the directory to scan (uses cwd if empty)
	Dir string
	// Basename restricts discovery to files named Basename.<ext> (optional)
	Basename string
	// ValidateAfterDiscovery runs validation on each discovered source
	ValidateAfterDiscovery bool
	// IncludeInvalid includes sources that failed validation in results
	IncludeInvalid bool
	// Verbose enables detailed logging during discovery
	Verbose bool
	// Logger receives log messages when Verbose is true
	Logger func(msg string)
}

// DiscoverSources finds all outline sources in a directory, freshest first.
func DiscoverSources(opts DiscoveryOptions) ([]DataSource, error) {
	if opts.Logger == nil {
		opts.Logger = func(string) {}
	}
	dir := opts.Dir
	if dir == "" {
		var err error
		dir, err = os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current directory: %w", err)
		}
	}
	if opts.Verbose {
		opts.Logger(fmt.Sprintf("Discovering sources in: %s", dir))
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read source directory: %w", err)
	}

	var sources []DataSource
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if strings.HasSuffix(name, ".tmp") || strings.Contains(name, ".backup") || strings.HasPrefix(name, ".") {
			continue
		}
		if opts.Basename != "" && strings.TrimSuffix(name, filepath.Ext(name)) != opts.Basename {
			continue
		}
		if _, _, ok := TypeFromPath(name); !ok {
			continue
		}
		src, err := NewSource(filepath.Join(dir, name))
		if err != nil {
			continue
		}
		sources = append(sources, src)
		if opts.Verbose {
			opts.Logger(fmt.Sprintf("Found %s: %s (mod=%s)", src.Type, src.Path, src.ModTime.Format(time.RFC3339)))
		}
	}

	if opts.ValidateAfterDiscovery {
		for i := range sources {
			if err := ValidateSource(&sources[i]); err != nil && opts.Verbose {
				opts.Logger(fmt.Sprintf("Validation failed for %s: %v", sources[i].Path, err))
			}
		}
		if !opts.IncludeInvalid {
			var valid []DataSource
			for _, s := range sources {
				if s.Valid {
					valid = append(valid, s)
				}
			}
			sources = valid
		}
	}

	sortSources(sources)
	if opts.Verbose {
		opts.Logger(fmt.Sprintf("Discovered %d sources", len(sources)))
	}
	return sources, nil
}

// ValidateSource loads the source and records whether it is usable.
func ValidateSource(s *DataSource) error {
	doc, err := LoadFromSource(*s)
	if err != nil {
		s.Valid = false
		s.ValidationError = err.Error()
		return err
	}
	s.Valid = true
	s.ValidationError = ""
	s.RowCount = doc.Count()
	if s.Type == SourceTypeSQLite {
		// Row stamps survive copies and checkpoints that move the file time.
		if stamp := sqliteStamp(*s); !stamp.IsZero() {
			s.ModTime = stamp
		}
	}
	return nil
}

// sqliteStamp returns the newest row update time of a database, or zero.
func sqliteStamp(s DataSource) time.Time {
	reader, err := NewSQLiteReader(s)
	if err != nil {
		return time.Time{}
	}
	defer reader.Close()
	stamp, err := reader.GetLastModified()
	if err != nil {
		return time.Time{}
	}
	return stamp
}

// SelectBestSource returns the freshest valid source; priority breaks ties.
func SelectBestSource(sources []DataSource) (DataSource, error) {
	var valid []DataSource
	for _, s := range sources {
		if s.Valid {
			valid = append(valid, s)
		}
	}
	if len(valid) == 0 {
		return DataSource{}, ErrNoSources
	}
	sortSources(valid)
	return valid[0], nil
}

func sortSources(sources []DataSource) {
	sort.SliceStable(sources, func(i, j int) bool {
		if sources[i].ModTime.Equal(sources[j].ModTime) {
			return sources[i].Priority > sources[j].Priority
		}
		return sources[i].ModTime.After(sources[j].ModTime)
	})
}
