package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/vanderheijden86/treegrid/pkg/export"
	"github.com/vanderheijden86/treegrid/pkg/treegrid"
)

const (
	// unitsPerLine converts engine row height to terminal lines.
	unitsPerLine = treegrid.DefaultRowHeight
	indentWidth  = 2
	columnGap    = 1
	minColumn    = 3
)

// linesPerRow returns how many terminal lines a row of height h takes.
func linesPerRow(h int) int {
	if n := h / unitsPerLine; n > 1 {
		return n
	}
	return 1
}

// columnWidths divides total cells between the columns of t. Columns with a
// width and no grow factor keep it; the rest share what is left by grow
// (1 when unset), bounded by their min and max widths.
func columnWidths(t export.Table, total int) []int {
	n := t.Columns()
	widths := make([]int, n)
	if n == 0 {
		return widths
	}
	avail := total - columnGap*(n-1)

	type flex struct {
		j    int
		grow float64
	}
	var flexible []flex
	var growSum float64
	for j := 0; j < n; j++ {
		spec := t.Widths[j]
		if spec != nil && spec.Width > 0 && spec.Grow == 0 {
			widths[j] = bound(spec.Width, spec)
			avail -= widths[j]
			continue
		}
		g := 1.0
		if spec != nil && spec.Grow > 0 {
			g = spec.Grow
		}
		flexible = append(flexible, flex{j, g})
		growSum += g
	}

	if avail < 0 {
		avail = 0
	}
	left := avail
	for i, f := range flexible {
		w := int(float64(avail) * f.grow / growSum)
		if i == len(flexible)-1 {
			w = left
		}
		widths[f.j] = bound(w, t.Widths[f.j])
		left -= w
	}
	return widths
}

func bound(w int, spec *treegrid.WidthSpec) int {
	if spec != nil {
		if spec.MinWidth > 0 && w < spec.MinWidth {
			w = spec.MinWidth
		}
		if spec.MaxWidth > 0 && w > spec.MaxWidth {
			w = spec.MaxWidth
		}
	}
	if w < minColumn {
		w = minColumn
	}
	return w
}

// gridView is the rendered body of the grid plus where each row starts.
type gridView struct {
	header   string
	body     string
	rowLines []int // first body line of each row
	lines    int
}

// renderTable draws the header and rows of t. cursor is the selected row
// index, or -1.
func renderTable(t export.Table, widths []int, cursor int, theme Theme) gridView {
	var v gridView
	total := 0
	for _, w := range widths {
		total += w
	}
	total += columnGap * max(len(widths)-1, 0)

	if len(t.Headers) > 0 {
		cells := make([]string, len(widths))
		for j, w := range widths {
			cells[j] = fitCell(t.Header(j), w)
		}
		v.header = theme.Header.Render(strings.Join(cells, strings.Repeat(" ", columnGap)))
	}

	per := linesPerRow(t.RowHeight)
	sep := separatorLine(t.Separator, total, theme)
	blank := strings.Repeat(" ", total)

	var lines []string
	for i, r := range t.Rows {
		v.rowLines = append(v.rowLines, len(lines))

		cells := make([]string, len(widths))
		for j, w := range widths {
			cells[j] = fitCell(rowCellText(r, j), w)
		}
		first := strings.Join(cells, strings.Repeat(" ", columnGap))

		style := theme.Base
		if i == cursor {
			style = theme.Selected
		}
		lines = append(lines, style.Render(first))
		for k := 1; k < per; k++ {
			lines = append(lines, style.Render(blank))
		}
		if sep != "" && i < len(t.Rows)-1 {
			lines = append(lines, sep)
		}
	}
	v.lines = len(lines)
	v.body = strings.Join(lines, "\n")
	return v
}

// rowCellText is the text of column j with the tree indent and marker on
// the first column.
func rowCellText(r export.TableRow, j int) string {
	text := ""
	if j < len(r.Cells) {
		text = r.Cells[j]
	}
	if j != 0 {
		return text
	}
	return strings.Repeat(" ", r.Depth*indentWidth) + r.Marker() + " " + text
}

// separatorLine returns the line drawn between rows, or "" for none.
func separatorLine(s *treegrid.Separator, width int, theme Theme) string {
	if s == nil || width <= 0 {
		return ""
	}
	style := theme.Separator
	if s.Color != "" {
		style = style.Foreground(lipgloss.Color(s.Color))
	}
	switch s.Style {
	case "space":
		return strings.Repeat(" ", width)
	case "dashed":
		return style.Render(repeatToWidth("╌", width))
	default:
		return style.Render(repeatToWidth("─", width))
	}
}

func repeatToWidth(glyph string, width int) string {
	w := runewidth.StringWidth(glyph)
	if w == 0 {
		return ""
	}
	return strings.Repeat(glyph, width/w)
}
