package datasource

import (
	"fmt"
	"os"

	"github.com/vanderheijden86/treegrid/pkg/debug"
	"github.com/vanderheijden86/treegrid/pkg/outline"
)

// sourceWarner sends load warnings to the debug log; the TUI owns the
// terminal, so they never go to stderr.
func sourceWarner(source DataSource) func(string) {
	return func(msg string) {
		debug.Log("%s: %s", source.Path, msg)
	}
}

// LoadPath loads an outline from a file or a directory. For a directory the
// sources are discovered and the best one is loaded.
func LoadPath(path string) (*outline.Document, DataSource, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, DataSource{}, fmt.Errorf("failed to stat %s: %w", path, err)
	}
	if info.IsDir() {
		return LoadDir(path)
	}
	src, err := NewSource(path)
	if err != nil {
		return nil, DataSource{}, err
	}
	doc, err := LoadFromSource(src)
	if err != nil {
		return nil, src, err
	}
	src.Valid = true
	src.RowCount = doc.Count()
	return doc, src, nil
}

// LoadDir performs smart source detection within dir and loads the freshest
// valid outline.
func LoadDir(dir string) (*outline.Document, DataSource, error) {
	sources, err := DiscoverSources(DiscoveryOptions{
		Dir:                    dir,
		ValidateAfterDiscovery: true,
	})
	if err != nil {
		return nil, DataSource{}, err
	}
	best, err := SelectBestSource(sources)
	if err != nil {
		return nil, DataSource{}, fmt.Errorf("%s: %w", dir, err)
	}
	doc, err := LoadFromSource(best)
	return doc, best, err
}

// LoadFromSource loads an outline from a specific DataSource, dispatching to
// the appropriate reader based on source type.
func LoadFromSource(source DataSource) (*outline.Document, error) {
	switch source.Type {
	case SourceTypeSQLite:
		reader, err := NewSQLiteReader(source)
		if err != nil {
			return nil, fmt.Errorf("failed to open SQLite source %s: %w", source.Path, err)
		}
		defer reader.Close()
		return reader.LoadDocument(sourceWarner(source))

	case SourceTypeYAML, SourceTypeJSON, SourceTypeJSONL:
		return outline.LoadFileWithOptions(source.Path, outline.ParseOptions{
			WarningHandler: sourceWarner(source),
		})

	default:
		return nil, fmt.Errorf("unknown source type: %s", source.Type)
	}
}

// SavePath writes doc to path, as a SQLite database or an outline file
// depending on the extension.
func SavePath(path string, doc *outline.Document) error {
	typ, _, ok := TypeFromPath(path)
	if !ok {
		return fmt.Errorf("%s: %w", path, outline.ErrUnknownFormat)
	}
	if typ == SourceTypeSQLite {
		return WriteSQLite(path, doc)
	}
	return outline.Save(path, doc)
}
