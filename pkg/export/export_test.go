package export

import (
	"bytes"
	"encoding/xml"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/vanderheijden86/treegrid/pkg/testutil"
	"github.com/vanderheijden86/treegrid/pkg/treegrid"
)

// sampleGrid builds
//
//	fruit
//	  apples
//	  pears
//	dairy (collapsed)
//	  milk
//
// with two columns whose cells read "label" and "label:1".
func sampleGrid(t *testing.T, opts ...treegrid.Option) *treegrid.Grid {
	t.Helper()
	g := treegrid.New(append([]treegrid.Option{treegrid.WithColumnCount(2)}, opts...)...)
	tree := g.Tree()

	label := func(s string) treegrid.Populator {
		return treegrid.PopulatorFunc(func(c *treegrid.Cell, column int) {
			if column == 0 {
				c.Content = s
				return
			}
			c.Content = s + ":" + string(rune('0'+column))
		})
	}
	add := func(parent treegrid.RowID, name string, ropts ...treegrid.RowOption) treegrid.RowID {
		id, err := tree.Append(parent, label(name), ropts...)
		if err != nil {
			t.Fatalf("Append(%s): %v", name, err)
		}
		return id
	}
	fruit := add(treegrid.RootID, "fruit")
	add(fruit, "apples")
	add(fruit, "pears")
	dairy := add(treegrid.RootID, "dairy", treegrid.Collapsed())
	add(dairy, "milk")

	g.Attach()
	return g
}

func TestCellText(t *testing.T) {
	tests := []struct {
		content any
		want    string
	}{
		{nil, ""},
		{"plain", "plain"},
		{42, "42"},
		{treegrid.StatePending, "pending"},
	}
	for _, tt := range tests {
		if got := CellText(&treegrid.Cell{Content: tt.content}); got != tt.want {
			t.Errorf("CellText(%v) = %q, want %q", tt.content, got, tt.want)
		}
	}
	if got := CellText(nil); got != "" {
		t.Errorf("CellText(nil) = %q", got)
	}
}

func TestCapture(t *testing.T) {
	g := sampleGrid(t)
	table := Capture(g, []string{"Name", "Note"}, nil)

	if table.Columns() != 2 || table.RowHeight != treegrid.DefaultRowHeight {
		t.Fatalf("columns=%d rowHeight=%d", table.Columns(), table.RowHeight)
	}
	want := []struct {
		first  string
		depth  int
		marker string
	}{
		{"fruit", 0, "▾"},
		{"apples", 1, " "},
		{"pears", 1, " "},
		{"dairy", 0, "▸"},
	}
	if len(table.Rows) != len(want) {
		t.Fatalf("rows = %d, want %d", len(table.Rows), len(want))
	}
	for i, w := range want {
		r := table.Rows[i]
		if r.Cells[0] != w.first || r.Depth != w.depth || r.Marker() != w.marker {
			t.Errorf("row %d = %q depth %d marker %q, want %q %d %q",
				i, r.Cells[0], r.Depth, r.Marker(), w.first, w.depth, w.marker)
		}
		if r.Cells[1] != w.first+":1" {
			t.Errorf("row %d column 1 = %q", i, r.Cells[1])
		}
	}
	if table.Header(5) != "" {
		t.Error("missing header should be empty")
	}
}

func TestCaptureCustomText(t *testing.T) {
	g := sampleGrid(t)
	table := Capture(g, nil, func(c *treegrid.Cell) string {
		return strings.ToUpper(CellText(c))
	})
	if table.Rows[0].Cells[0] != "FRUIT" {
		t.Errorf("custom text = %q", table.Rows[0].Cells[0])
	}
}

func TestWriteTSV(t *testing.T) {
	g := sampleGrid(t)
	table := Capture(g, []string{"Name", "Note"}, nil)

	var buf bytes.Buffer
	if err := WriteTSV(&buf, table, TextOptions{Indent: "  ", Markers: true}); err != nil {
		t.Fatalf("WriteTSV: %v", err)
	}
	want := strings.Join([]string{
		"Name\tNote",
		"▾ fruit\tfruit:1",
		"    apples\tapples:1",
		"    pears\tpears:1",
		"▸ dairy\tdairy:1",
		"",
	}, "\n")
	if buf.String() != want {
		t.Errorf("TSV mismatch\n got: %q\nwant: %q", buf.String(), want)
	}
}

func TestWriteTSVEscapes(t *testing.T) {
	table := Table{
		Widths: make([]*treegrid.WidthSpec, 1),
		Rows:   []TableRow{{Cells: []string{"a\tb\nc"}}},
	}
	var buf bytes.Buffer
	if err := WriteTSV(&buf, table, TextOptions{}); err != nil {
		t.Fatal(err)
	}
	if buf.String() != "a b c\n" {
		t.Errorf("escaped = %q", buf.String())
	}
}

func TestWriteMarkdown(t *testing.T) {
	g := sampleGrid(t)
	table := Capture(g, []string{"Name", "Note|x"}, nil)

	var buf bytes.Buffer
	if err := WriteMarkdown(&buf, table, TextOptions{}); err != nil {
		t.Fatalf("WriteMarkdown: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 6 {
		t.Fatalf("got %d lines:\n%s", len(lines), buf.String())
	}
	if lines[0] != `| Name | Note\|x |` || lines[1] != "| --- | --- |" {
		t.Errorf("header = %q / %q", lines[0], lines[1])
	}
	if lines[3] != "| &nbsp;&nbsp;apples | apples:1 |" {
		t.Errorf("indented row = %q", lines[3])
	}

	var empty bytes.Buffer
	if err := WriteMarkdown(&empty, Table{}, TextOptions{}); err != nil || empty.Len() != 0 {
		t.Errorf("empty table wrote %q, %v", empty.String(), err)
	}
}

func TestWriteMarkdownGolden(t *testing.T) {
	table := Capture(sampleGrid(t), []string{"Name", "Note"}, nil)
	var buf bytes.Buffer
	if err := WriteMarkdown(&buf, table, TextOptions{Markers: true}); err != nil {
		t.Fatalf("WriteMarkdown: %v", err)
	}
	testutil.NewGoldenFile(t, "testdata", "sample.md").Assert(buf.String())
}

func assertValidXML(t *testing.T, data []byte) {
	t.Helper()
	dec := xml.NewDecoder(bytes.NewReader(data))
	for {
		_, err := dec.Token()
		if err == io.EOF {
			return
		}
		if err != nil {
			t.Fatalf("SVG is not valid XML: %v\n%s", err, data)
		}
	}
}

func TestSaveSnapshotSVG(t *testing.T) {
	g := sampleGrid(t, treegrid.WithRowSeparator(&treegrid.Separator{Style: "dashed", Color: "#abc"}))
	out := filepath.Join(t.TempDir(), "nested", "grid.svg")

	err := SaveSnapshot(SnapshotOptions{
		Path:  out,
		Title: "Groceries",
		Table: Capture(g, []string{"Name", "Note"}, nil),
	})
	if err != nil {
		t.Fatalf("SaveSnapshot: %v", err)
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	assertValidXML(t, data)

	svgText := string(data)
	for _, want := range []string{"<svg", "Groceries", "apples", "▸ dairy", "stroke-dasharray:4,3", "#aabbcc"} {
		if !strings.Contains(svgText, want) {
			t.Errorf("SVG missing %q", want)
		}
	}
	if strings.Contains(svgText, "milk") {
		t.Error("collapsed child was rendered")
	}
}

func TestSaveSnapshotPNG(t *testing.T) {
	g := sampleGrid(t, treegrid.WithColumnWidth(0, treegrid.Fixed(200)))
	out := filepath.Join(t.TempDir(), "grid.png")

	if err := SaveSnapshot(SnapshotOptions{Path: out, Table: Capture(g, nil, nil)}); err != nil {
		t.Fatalf("SaveSnapshot: %v", err)
	}
	f, err := os.Open(out)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	img, err := png.Decode(f)
	if err != nil {
		t.Fatalf("decode png: %v", err)
	}

	wantW := 2*padding + 200 + DefaultColumnWidth
	wantH := 2*padding + 4*treegrid.DefaultRowHeight
	if b := img.Bounds(); b.Dx() != wantW || b.Dy() != wantH {
		t.Errorf("image = %dx%d, want %dx%d", b.Dx(), b.Dy(), wantW, wantH)
	}
}

func TestSaveSnapshotFormats(t *testing.T) {
	table := Capture(sampleGrid(t), nil, nil)
	dir := t.TempDir()

	if err := SaveSnapshot(SnapshotOptions{Path: filepath.Join(dir, "noext"), Table: table}); err != nil {
		t.Fatalf("extensionless path: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "noext.svg")); err != nil {
		t.Errorf("expected .svg to be appended: %v", err)
	}

	if err := SaveSnapshot(SnapshotOptions{Path: filepath.Join(dir, "x.gif"), Format: "gif", Table: table}); err == nil {
		t.Error("expected unsupported format error")
	}
	if err := SaveSnapshot(SnapshotOptions{Table: table}); err == nil {
		t.Error("expected missing path error")
	}
	if err := SaveSnapshot(SnapshotOptions{Path: filepath.Join(dir, "e.svg")}); err == nil {
		t.Error("expected error for a table without columns")
	}
}

func TestBuildLayoutMaxRows(t *testing.T) {
	table := Capture(sampleGrid(t), nil, nil)
	l := buildLayout(SnapshotOptions{Table: table, MaxRows: 1})

	if len(l.Rows) != 1 || !strings.Contains(l.Footer, "3 more rows") {
		t.Errorf("rows=%d footer=%q", len(l.Rows), l.Footer)
	}
	if l.Height != 2*padding+3*treegrid.DefaultRowHeight-treegrid.DefaultRowHeight {
		t.Errorf("height = %d", l.Height)
	}
}

func TestColumnWidth(t *testing.T) {
	tests := []struct {
		spec *treegrid.WidthSpec
		want int
	}{
		{nil, DefaultColumnWidth},
		{&treegrid.WidthSpec{Width: 90}, 90},
		{&treegrid.WidthSpec{MinWidth: 300}, 300},
		{&treegrid.WidthSpec{MaxWidth: 50}, 50},
		{treegrid.Fixed(70), 70},
	}
	for _, tt := range tests {
		if got := columnWidth(tt.spec); got != tt.want {
			t.Errorf("columnWidth(%+v) = %d, want %d", tt.spec, got, tt.want)
		}
	}
}

func TestParseHexColor(t *testing.T) {
	if c, ok := parseHexColor("#102030"); !ok || c.R != 0x10 || c.G != 0x20 || c.B != 0x30 {
		t.Errorf("parse #102030 = %v %v", c, ok)
	}
	if c, ok := parseHexColor("fff"); !ok || c.R != 0xff {
		t.Errorf("parse fff = %v %v", c, ok)
	}
	for _, bad := range []string{"", "red", "#12345", "#gggggg"} {
		if _, ok := parseHexColor(bad); ok {
			t.Errorf("parseHexColor(%q) accepted", bad)
		}
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("abcdefgh", 5); got != "ab..." {
		t.Errorf("truncate = %q", got)
	}
	if got := truncate("abc", 5); got != "abc" {
		t.Errorf("truncate short = %q", got)
	}
	if got := truncate("abc", 0); got != "" {
		t.Errorf("truncate zero = %q", got)
	}
}

func TestCaptureSkipsRemovedRows(t *testing.T) {
	g := sampleGrid(t)
	tree := g.Tree()
	fruit := tree.Children(treegrid.RootID)[0]
	if err := tree.Remove(tree.Children(fruit)[0]); err != nil {
		t.Fatal(err)
	}
	if g.State() != treegrid.StatePending {
		t.Fatalf("state = %v, want pending", g.State())
	}

	table := Capture(g, nil, nil)
	if len(table.Rows) != 3 {
		t.Fatalf("rows = %d, want 3", len(table.Rows))
	}
	if table.Rows[1].Cells[0] != "pears" || table.Rows[1].Cells[1] != "pears:1" {
		t.Errorf("row after the removed one = %v", table.Rows[1].Cells)
	}
}
