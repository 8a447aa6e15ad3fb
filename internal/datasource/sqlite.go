package datasource

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	_ "modernc.org/sqlite"

	"github.com/vanderheijden86/treegrid/pkg/outline"
)

const schema = `
CREATE TABLE IF NOT EXISTS outline_rows (
	id         TEXT PRIMARY KEY,
	parent_id  TEXT,
	position   INTEGER NOT NULL DEFAULT 0,
	label      TEXT NOT NULL DEFAULT '',
	cells      TEXT,
	collapsed  INTEGER NOT NULL DEFAULT 0,
	updated_at TIMESTAMP
);
CREATE TABLE IF NOT EXISTS outline_meta (
	key   TEXT PRIMARY KEY,
	value TEXT
);
`

// SQLiteReader provides read access to an outline SQLite database
type SQLiteReader struct {
	db   *sql.DB
	path string
}

// NewSQLiteReader opens a SQLite database for reading
func NewSQLiteReader(source DataSource) (*SQLiteReader, error) {
	if source.Type != SourceTypeSQLite {
		return nil, fmt.Errorf("source is not SQLite: %s", source.Type)
	}
	if _, err := os.Stat(source.Path); err != nil {
		return nil, fmt.Errorf("cannot open database: %w", err)
	}

	dsn := fmt.Sprintf("file:%s?mode=ro&_pragma=busy_timeout(5000)", source.Path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("cannot open database: %w", err)
	}

	// Best effort; a read-only connection still works without them.
	for _, pragma := range []string{
		"PRAGMA cache_size = -16000",
		"PRAGMA temp_store = MEMORY",
	} {
		_, _ = db.Exec(pragma)
	}

	return &SQLiteReader{
		db:   db,
		path: source.Path,
	}, nil
}

// Close closes the database connection
func (r *SQLiteReader) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// LoadRecords reads every row, parents before children and siblings in
// position order. Rows that cannot be decoded and rows caught in a parent
// cycle are skipped and reported to warnFunc; a nil warnFunc discards them.
func (r *SQLiteReader) LoadRecords(warnFunc func(string)) ([]outline.Record, error) {
	warn := warnFunc
	if warn == nil {
		warn = func(string) {}
	}
	rows, err := r.db.Query(`
		SELECT id, parent_id, position, label, cells, collapsed
		FROM outline_rows
		ORDER BY position, id
	`)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	type entry struct {
		rec      outline.Record
		position int
	}
	children := make(map[string][]entry)
	known := make(map[string]bool)
	scanned := 0
	for rows.Next() {
		scanned++
		var e entry
		var parent, cells sql.NullString
		var collapsed sql.NullInt64
		if err := rows.Scan(&e.rec.ID, &parent, &e.position, &e.rec.Label, &cells, &collapsed); err != nil {
			warn(fmt.Sprintf("skipping row %d: %v", scanned, err))
			continue
		}
		if parent.Valid {
			e.rec.Parent = parent.String
		}
		if cells.Valid {
			e.rec.Cells = parseJSONStringArray(cells.String)
		}
		e.rec.Collapsed = collapsed.Valid && collapsed.Int64 != 0
		children[e.rec.Parent] = append(children[e.rec.Parent], e)
		known[e.rec.ID] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	// Rows whose parent does not exist are shown at the top level.
	var orphans []string
	for parent := range children {
		if parent != "" && !known[parent] {
			orphans = append(orphans, parent)
		}
	}
	sort.Strings(orphans)
	for _, p := range orphans {
		for _, e := range children[p] {
			e.rec.Parent = ""
			children[""] = append(children[""], e)
		}
		delete(children, p)
	}

	var out []outline.Record
	emitted := make(map[string]bool)
	var walk func(parent string)
	walk = func(parent string) {
		list := children[parent]
		sort.SliceStable(list, func(i, j int) bool { return list[i].position < list[j].position })
		for _, e := range list {
			out = append(out, e.rec)
			emitted[e.rec.ID] = true
			walk(e.rec.ID)
		}
	}
	walk("")

	// Whatever the walk missed hangs off a parent cycle.
	var cyclic []string
	for id := range known {
		if !emitted[id] {
			cyclic = append(cyclic, id)
		}
	}
	sort.Strings(cyclic)
	for _, id := range cyclic {
		warn(fmt.Sprintf("skipping row %q: parent cycle", id))
	}
	return out, nil
}

// LoadDocument reads the whole outline. Skipped rows are reported to
// warnFunc.
func (r *SQLiteReader) LoadDocument(warnFunc func(string)) (*outline.Document, error) {
	records, err := r.LoadRecords(warnFunc)
	if err != nil {
		return nil, err
	}
	doc := outline.FromRecords(records, warnFunc)
	doc.Title, doc.Columns = r.loadMeta()
	return doc, nil
}

// loadMeta reads the optional title and column headers.
func (r *SQLiteReader) loadMeta() (string, []string) {
	var title string
	var columns []string
	rows, err := r.db.Query(`SELECT key, value FROM outline_meta`)
	if err != nil {
		return "", nil
	}
	defer rows.Close()
	for rows.Next() {
		var key string
		var value sql.NullString
		if err := rows.Scan(&key, &value); err != nil || !value.Valid {
			continue
		}
		switch key {
		case "title":
			title = value.String
		case "columns":
			columns = parseJSONStringArray(value.String)
		}
	}
	// Note: rows.Err() not checked; meta is optional.
	return title, columns
}

// CountRows returns the number of stored rows
func (r *SQLiteReader) CountRows() (int, error) {
	var count int
	if err := r.db.QueryRow("SELECT COUNT(*) FROM outline_rows").Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

// GetLastModified returns the most recent update time
func (r *SQLiteReader) GetLastModified() (time.Time, error) {
	// MAX() drops the column type, so the driver hands back text.
	var updatedAt sql.NullString
	if err := r.db.QueryRow("SELECT MAX(updated_at) FROM outline_rows").Scan(&updatedAt); err != nil {
		return time.Time{}, err
	}
	if !updatedAt.Valid || updatedAt.String == "" {
		return time.Time{}, nil
	}
	return parseSQLiteTime(updatedAt.String)
}

// parseSQLiteTime accepts the layouts SQLite tools and the driver write.
func parseSQLiteTime(s string) (time.Time, error) {
	// time.Time.String appends the monotonic reading when present.
	if i := strings.Index(s, " m="); i >= 0 {
		s = s[:i]
	}
	for _, layout := range sqliteTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}

var sqliteTimeLayouts = []string{
	"2006-01-02 15:04:05.999999999 -0700 MST", // time.Time.String, the driver default
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02T15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
	time.RFC3339Nano,
}

// WriteSQLite stores doc in the database at path, replacing any outline
// already there. The database and its tables are created as needed.
func WriteSQLite(path string, doc *outline.Document) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating database directory: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return fmt.Errorf("cannot open database: %w", err)
	}
	defer db.Close()

	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM outline_rows`); err != nil {
		return fmt.Errorf("clearing rows: %w", err)
	}
	stmt, err := tx.Prepare(`
		INSERT INTO outline_rows (id, parent_id, position, label, cells, collapsed, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("prepare: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC()
	positions := make(map[string]int)
	for _, rec := range doc.Records() {
		var parent any
		if rec.Parent != "" {
			parent = rec.Parent
		}
		var cells any
		if len(rec.Cells) > 0 {
			data, err := json.Marshal(rec.Cells)
			if err != nil {
				return fmt.Errorf("marshaling cells of %q: %w", rec.ID, err)
			}
			cells = string(data)
		}
		pos := positions[rec.Parent]
		positions[rec.Parent]++
		if _, err := stmt.Exec(rec.ID, parent, pos, rec.Label, cells, boolInt(rec.Collapsed), now); err != nil {
			return fmt.Errorf("inserting %q: %w", rec.ID, err)
		}
	}

	cols, err := json.Marshal(doc.Columns)
	if err != nil {
		return fmt.Errorf("marshaling columns: %w", err)
	}
	for key, value := range map[string]string{"title": doc.Title, "columns": string(cols)} {
		if _, err := tx.Exec(`INSERT OR REPLACE INTO outline_meta (key, value) VALUES (?, ?)`, key, value); err != nil {
			return fmt.Errorf("writing %s: %w", key, err)
		}
	}
	return tx.Commit()
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// parseJSONStringArray parses a JSON array of strings
func parseJSONStringArray(s string) []string {
	s = strings.TrimSpace(s)
	if s == "" || s == "null" || s == "[]" {
		return nil
	}

	var result []string
	if err := json.Unmarshal([]byte(s), &result); err != nil {
		// Fallback to simple parser for malformed JSON
		s = strings.TrimPrefix(s, "[")
		s = strings.TrimSuffix(s, "]")
		if s == "" {
			return nil
		}
		for _, item := range strings.Split(s, ",") {
			item = strings.TrimSpace(item)
			item = strings.Trim(item, `"`)
			if item != "" {
				result = append(result, item)
			}
		}
	}
	return result
}
