package ui

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/vanderheijden86/treegrid/pkg/export"
	"github.com/vanderheijden86/treegrid/pkg/outline"
	"github.com/vanderheijden86/treegrid/pkg/treegrid"
)

func testTheme() Theme {
	return NewTheme(lipgloss.NewRenderer(os.Stdout), "dark")
}

func TestTruncateRunesHelper(t *testing.T) {
	tests := []struct {
		in   string
		max  int
		want string
	}{
		{"hello", 10, "hello"},
		{"hello world", 8, "hello w…"},
		{"日本語テキスト", 7, "日本語…"},
		{"abc", 0, ""},
		{"abcdef", 1, "…"},
	}
	for _, tt := range tests {
		if got := truncateRunesHelper(tt.in, tt.max, "…"); got != tt.want {
			t.Errorf("truncateRunesHelper(%q, %d) = %q, want %q", tt.in, tt.max, got, tt.want)
		}
	}
}

func TestFitCell(t *testing.T) {
	if got := fitCell("ab", 5); got != "ab   " {
		t.Errorf("pad = %q", got)
	}
	if got := fitCell("a\tb\nc", 5); got != "a b c" {
		t.Errorf("flatten = %q", got)
	}
	if got := fitCell("abcdefgh", 4); got != "abc…" {
		t.Errorf("truncate = %q", got)
	}
}

func TestLinesPerRow(t *testing.T) {
	tests := map[int]int{0: 1, 10: 1, 32: 1, 63: 1, 64: 2, 96: 3}
	for h, want := range tests {
		if got := linesPerRow(h); got != want {
			t.Errorf("linesPerRow(%d) = %d, want %d", h, got, want)
		}
	}
}

func TestColumnWidths(t *testing.T) {
	tests := []struct {
		name  string
		specs []*treegrid.WidthSpec
		total int
		want  []int
	}{
		{"even split", []*treegrid.WidthSpec{nil, nil}, 41, []int{20, 20}},
		{"fixed and grow", []*treegrid.WidthSpec{treegrid.Fixed(10), nil, {Grow: 2}}, 40, []int{10, 9, 19}},
		{"min width", []*treegrid.WidthSpec{{MinWidth: 30}, nil}, 41, []int{30, 20}},
		{"max width", []*treegrid.WidthSpec{{MaxWidth: 5}, nil}, 41, []int{5, 20}},
		{"too narrow", []*treegrid.WidthSpec{treegrid.Fixed(50), nil}, 20, []int{50, minColumn}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := columnWidths(export.Table{Widths: tt.specs}, tt.total)
			for j := range tt.want {
				if got[j] != tt.want[j] {
					t.Fatalf("widths = %v, want %v", got, tt.want)
				}
			}
		})
	}
	if got := columnWidths(export.Table{}, 80); len(got) != 0 {
		t.Errorf("no columns gave %v", got)
	}
}

func TestRenderTable(t *testing.T) {
	table := export.Table{
		Headers:   []string{"Name"},
		Widths:    []*treegrid.WidthSpec{nil},
		RowHeight: 64,
		Separator: &treegrid.Separator{Style: "dashed"},
		Rows: []export.TableRow{
			{Depth: 0, Expandable: true, Cells: []string{"top"}},
			{Depth: 1, Cells: []string{"leaf"}},
		},
	}
	v := renderTable(table, []int{12}, 1, testTheme())

	body := stripANSI(v.body)
	lines := strings.Split(body, "\n")
	// two lines per row plus one separator between the rows
	if v.lines != 5 || len(lines) != 5 {
		t.Fatalf("lines = %d:\n%s", v.lines, body)
	}
	if v.rowLines[0] != 0 || v.rowLines[1] != 3 {
		t.Errorf("rowLines = %v", v.rowLines)
	}
	if !strings.HasPrefix(lines[0], "▾ top") || !strings.HasPrefix(lines[3], "    leaf") {
		t.Errorf("rows:\n%s", body)
	}
	if !strings.Contains(lines[2], "╌") {
		t.Errorf("separator line = %q", lines[2])
	}
	if !strings.Contains(stripANSI(v.header), "Name") {
		t.Errorf("header = %q", v.header)
	}
}

func TestSeparatorLine(t *testing.T) {
	theme := testTheme()
	if separatorLine(nil, 10, theme) != "" {
		t.Error("nil separator should draw nothing")
	}
	if got := stripANSI(separatorLine(&treegrid.Separator{Style: "line", Color: "#ff0000"}, 4, theme)); got != "────" {
		t.Errorf("line = %q", got)
	}
	if got := separatorLine(&treegrid.Separator{Style: "space"}, 3, theme); got != "   " {
		t.Errorf("space = %q", got)
	}
}

func TestTeaDeferrer(t *testing.T) {
	d := NewTeaDeferrer()
	ran := 0
	stop := d.AfterFunc(time.Millisecond, func() { ran++ })
	d.AfterFunc(time.Millisecond, func() { ran += 10 })

	if d.Pending() != 2 {
		t.Fatalf("pending = %d", d.Pending())
	}
	if d.Cmd() == nil {
		t.Fatal("expected queued ticks")
	}
	if d.Cmd() != nil {
		t.Error("Cmd should drain the queue")
	}

	if !stop() || stop() {
		t.Error("stop should succeed exactly once")
	}
	if d.Fire(deferredMsg{seq: 1}) {
		t.Error("stopped callback ran")
	}
	if !d.Fire(deferredMsg{seq: 2}) || ran != 10 {
		t.Errorf("ran = %d", ran)
	}
	if d.Fire(deferredMsg{seq: 2}) {
		t.Error("callback ran twice")
	}
	if d.Pending() != 0 {
		t.Errorf("pending = %d", d.Pending())
	}
}

func TestTeaDeferrerTickMessage(t *testing.T) {
	d := NewTeaDeferrer()
	d.AfterFunc(time.Millisecond, func() {})
	msg := d.Cmd()()
	dm, ok := msg.(deferredMsg)
	if !ok || dm.seq != 1 {
		t.Errorf("tick delivered %#v", msg)
	}
}

func TestCollapseStateFiles(t *testing.T) {
	dir := t.TempDir()

	if s := LoadCollapseState(""); len(s.Collapsed) != 0 || s.Version != CollapseStateVersion {
		t.Errorf("empty path = %+v", s)
	}
	if s := LoadCollapseState(filepath.Join(dir, "missing.json")); len(s.Collapsed) != 0 {
		t.Errorf("missing file = %+v", s)
	}

	corrupt := filepath.Join(dir, "corrupt.json")
	if err := os.WriteFile(corrupt, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	if s := LoadCollapseState(corrupt); len(s.Collapsed) != 0 {
		t.Errorf("corrupt file = %+v", s)
	}

	future := filepath.Join(dir, "future.json")
	if err := os.WriteFile(future, []byte(`{"version": 9, "collapsed": {"a/b": true}}`), 0o644); err != nil {
		t.Fatal(err)
	}
	if s := LoadCollapseState(future); len(s.Collapsed) != 0 {
		t.Errorf("unknown version = %+v", s)
	}

	path := filepath.Join(dir, "nested", "state.json")
	s := DefaultCollapseState()
	s.Collapsed["plan.yaml/x"] = true
	if err := s.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if got := LoadCollapseState(path); !got.Collapsed["plan.yaml/x"] {
		t.Errorf("round trip = %+v", got)
	}
	if err := s.Save(""); err != nil {
		t.Errorf("empty path save: %v", err)
	}
}

func TestCollapseStateIgnoresUnknownKeys(t *testing.T) {
	tree := treegrid.NewTree()
	src := &Source{Name: "plan.yaml"}
	if err := Mount(tree, []*Source{src}, nil); err == nil {
		t.Fatal("expected mismatch error")
	}
	if err := Mount(tree, []*Source{src}, []*outline.Document{groceriesDoc()}); err != nil {
		t.Fatal(err)
	}

	s := DefaultCollapseState()
	s.Collapsed["plan.yaml/gone"] = true
	s.Collapsed["other/groceries"] = true
	s.Collapsed["plan.yaml/dairy"] = false
	if n := s.Apply(tree, []*Source{src}); n != 1 {
		t.Errorf("applied %d, want 1", n)
	}
	row, _ := src.Binding.Row("groceries")
	if tree.IsCollapsed(row) {
		t.Error("key of another source applied")
	}
}

func TestHelpMarkdown(t *testing.T) {
	md := helpMarkdown(DefaultKeyMap())
	for _, want := range []string{"## Navigation", "| `a` | add child |", "| `y` | copy TSV |"} {
		if !strings.Contains(md, want) {
			t.Errorf("help missing %q", want)
		}
	}
	if out := renderHelp(DefaultKeyMap(), 60, true); !strings.Contains(stripANSI(out), "Navigation") {
		t.Errorf("rendered help:\n%s", out)
	}
}

func TestSourceName(t *testing.T) {
	if got := SourceName("/data/plans/q3.yaml"); got != "q3.yaml" {
		t.Errorf("SourceName = %q", got)
	}
	if got := SourceName("/data/plans/"); got != "plans" {
		t.Errorf("SourceName dir = %q", got)
	}
}

func TestWatchFileCmdNilWatcher(t *testing.T) {
	if WatchFileCmd(nil, 0) != nil {
		t.Error("nil watcher should give a nil command")
	}
}
