package outline

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	json "github.com/goccy/go-json"
	"gopkg.in/yaml.v3"

	"github.com/vanderheijden86/treegrid/pkg/metrics"
)

// Format identifies an outline file encoding.
type Format string

const (
	// FormatYAML is a nested document, the default.
	FormatYAML Format = "yaml"
	// FormatJSON is the same nested document as JSON.
	FormatJSON Format = "json"
	// FormatJSONL is one flat Record per line, children after their parent.
	FormatJSONL Format = "jsonl"
)

// FormatFromPath infers the format from a file extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".json":
		return FormatJSON, nil
	case ".jsonl", ".ndjson":
		return FormatJSONL, nil
	default:
		return "", fmt.Errorf("%s: %w", path, ErrUnknownFormat)
	}
}

// Record is the flat form of a Node used by JSONL files and SQL tables.
type Record struct {
	ID        string   `json:"id"`
	Parent    string   `json:"parent,omitempty"`
	Label     string   `json:"label"`
	Cells     []string `json:"cells,omitempty"`
	Collapsed bool     `json:"collapsed,omitempty"`
}

// DefaultMaxLineSize is the longest JSONL line read (1MB).
const DefaultMaxLineSize = 1024 * 1024

// ParseOptions configures Parse.
type ParseOptions struct {
	// WarningHandler receives messages about skipped JSONL lines.
	// If nil, warnings are printed to os.Stderr.
	WarningHandler func(string)

	// MaxLineSize bounds JSONL lines; longer lines are skipped with a
	// warning. If 0, DefaultMaxLineSize is used.
	MaxLineSize int
}

// LoadFile reads the outline at path, inferring the format from its
// extension. Nodes without IDs get generated ones.
func LoadFile(path string) (*Document, error) {
	return LoadFileWithOptions(path, ParseOptions{})
}

// LoadFileWithOptions is LoadFile with custom parse options.
func LoadFileWithOptions(path string, opts ParseOptions) (*Document, error) {
	defer metrics.Timer(metrics.OutlineLoad)()

	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open outline: %w", err)
	}
	defer f.Close()

	doc, err := Parse(f, format, opts)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return doc, nil
}

// Parse decodes an outline in the given format.
func Parse(r io.Reader, format Format, opts ParseOptions) (*Document, error) {
	var doc *Document
	switch format {
	case FormatJSONL:
		records, err := parseRecords(r, opts)
		if err != nil {
			return nil, err
		}
		doc = FromRecords(records, opts.WarningHandler)
	case FormatYAML, FormatJSON:
		data, err := io.ReadAll(r)
		if err != nil {
			return nil, fmt.Errorf("reading outline: %w", err)
		}
		data = stripBOM(data)
		doc = &Document{}
		if format == FormatJSON {
			err = json.Unmarshal(data, doc)
		} else {
			err = yaml.Unmarshal(data, doc)
		}
		if err != nil {
			return nil, fmt.Errorf("parsing %s outline: %w", format, err)
		}
	default:
		return nil, fmt.Errorf("%q: %w", format, ErrUnknownFormat)
	}

	doc.AssignIDs()
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	return doc, nil
}

func parseRecords(r io.Reader, opts ParseOptions) ([]Record, error) {
	maxLine := opts.MaxLineSize
	if maxLine <= 0 {
		maxLine = DefaultMaxLineSize
	}
	warn := warner(opts.WarningHandler)
	reader := bufio.NewReaderSize(r, maxLine)

	var records []Record
	lineNum := 0
	for {
		lineNum++
		line, isPrefix, err := reader.ReadLine()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("error reading outline stream at line %d: %w", lineNum, err)
		}
		if isPrefix {
			warn(fmt.Sprintf("skipping line %d: line too long (exceeds %d bytes)", lineNum, maxLine))
			for isPrefix {
				_, isPrefix, err = reader.ReadLine()
				if err == io.EOF {
					break
				}
				if err != nil {
					return nil, fmt.Errorf("error skipping long line at line %d: %w", lineNum, err)
				}
			}
			continue
		}
		if lineNum == 1 {
			line = stripBOM(line)
		}
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}

		var rec Record
		if err := json.Unmarshal(line, &rec); err != nil {
			warn(fmt.Sprintf("skipping malformed JSON on line %d: %v", lineNum, err))
			continue
		}
		if rec.ID == "" {
			warn(fmt.Sprintf("skipping line %d: record without id", lineNum))
			continue
		}
		records = append(records, rec)
	}
	return records, nil
}

// FromRecords assembles flat records into a document. A record whose parent
// has not been seen before it is attached at the top level with a warning;
// a repeated ID is skipped with a warning.
func FromRecords(records []Record, warnFunc func(string)) *Document {
	warn := warner(warnFunc)
	doc := &Document{}
	byID := make(map[string]*Node, len(records))
	for _, rec := range records {
		if _, dup := byID[rec.ID]; dup {
			warn(fmt.Sprintf("skipping duplicate record %q", rec.ID))
			continue
		}
		n := &Node{ID: rec.ID, Label: rec.Label, Cells: rec.Cells, Collapsed: rec.Collapsed}
		byID[rec.ID] = n
		if rec.Parent == "" {
			doc.Rows = append(doc.Rows, n)
			continue
		}
		parent, ok := byID[rec.Parent]
		if !ok {
			warn(fmt.Sprintf("record %q: parent %q not seen yet, attaching at top level", rec.ID, rec.Parent))
			doc.Rows = append(doc.Rows, n)
			continue
		}
		parent.Children = append(parent.Children, n)
	}
	return doc
}

// Records flattens d in pre-order, so parents precede their children.
func (d *Document) Records() []Record {
	var out []Record
	d.Walk(func(n *Node, parent *Node, _ int) bool {
		rec := Record{ID: n.ID, Label: n.Label, Cells: n.Cells, Collapsed: n.Collapsed}
		if parent != nil {
			rec.Parent = parent.ID
		}
		out = append(out, rec)
		return true
	})
	return out
}

// Encode writes d in the given format.
func Encode(w io.Writer, d *Document, format Format) error {
	switch format {
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(d); err != nil {
			return fmt.Errorf("marshaling outline: %w", err)
		}
		return enc.Close()
	case FormatJSON:
		data, err := json.MarshalIndent(d, "", "  ")
		if err != nil {
			return fmt.Errorf("marshaling outline: %w", err)
		}
		_, err = w.Write(append(data, '\n'))
		return err
	case FormatJSONL:
		enc := json.NewEncoder(w)
		for _, rec := range d.Records() {
			if err := enc.Encode(rec); err != nil {
				return fmt.Errorf("marshaling record %q: %w", rec.ID, err)
			}
		}
		return nil
	default:
		return fmt.Errorf("%q: %w", format, ErrUnknownFormat)
	}
}

// Save writes d to path in the format given by its extension. The file is
// replaced atomically.
func Save(path string, d *Document) error {
	format, err := FormatFromPath(path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating outline directory: %w", err)
	}

	var buf bytes.Buffer
	if err := Encode(&buf, d, format); err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("writing outline: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("replacing outline: %w", err)
	}
	return nil
}

func warner(fn func(string)) func(string) {
	if fn != nil {
		return fn
	}
	if os.Getenv("TREEGRID_QUIET") == "1" {
		return func(string) {}
	}
	return func(msg string) {
		fmt.Fprintf(os.Stderr, "Warning: %s\n", msg)
	}
}

func stripBOM(b []byte) []byte {
	return bytes.TrimPrefix(b, []byte("\xef\xbb\xbf"))
}
