package export

import (
	"fmt"
	"image/color"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"git.sr.ht/~sbinet/gg"
	"github.com/ajstarks/svgo"
	"golang.org/x/image/font/basicfont"

	"github.com/vanderheijden86/treegrid/pkg/metrics"
	"github.com/vanderheijden86/treegrid/pkg/treegrid"
)

// SnapshotOptions controls grid snapshot export behaviour.
type SnapshotOptions struct {
	Path    string // Output path; format inferred from extension when Format empty
	Format  string // "svg" or "png" (case-insensitive). If empty, inferred from Path.
	Title   string // Optional title drawn above the grid
	Table   Table  // Captured projection to draw
	MaxRows int    // Rows beyond this are summarized in a footer (0 = all)
}

// DefaultColumnWidth is used for columns without a width spec.
const DefaultColumnWidth = 160

// SaveSnapshot renders the captured grid as a static SVG or PNG image.
func SaveSnapshot(opts SnapshotOptions) error {
	defer metrics.Timer(metrics.ExportSnapshot)()

	if opts.Table.Columns() == 0 {
		return fmt.Errorf("grid has no columns to export")
	}

	format := strings.ToLower(strings.TrimPrefix(opts.Format, "."))
	if format == "" {
		switch strings.ToLower(filepath.Ext(opts.Path)) {
		case ".svg":
			format = "svg"
		case ".png":
			format = "png"
		default:
			format = "svg"
			if opts.Path != "" && filepath.Ext(opts.Path) == "" {
				opts.Path = opts.Path + ".svg"
			}
		}
	}
	if format != "svg" && format != "png" {
		return fmt.Errorf("unsupported format %q (want svg or png)", format)
	}
	if opts.Path == "" {
		return fmt.Errorf("output path is required")
	}

	if err := os.MkdirAll(filepath.Dir(opts.Path), 0o755); err != nil {
		return fmt.Errorf("create parent dir: %w", err)
	}

	layout := buildLayout(opts)

	switch format {
	case "svg":
		file, err := os.Create(opts.Path)
		if err != nil {
			return err
		}
		if err := renderSVG(file, layout); err != nil {
			file.Close()
			return err
		}
		return file.Close()
	default:
		return renderPNG(layout).SavePNG(opts.Path)
	}
}

// --- layout computation ----------------------------------------------------

const (
	padding     = 24
	titleHeight = 40
	indentStep  = 16
	cellPadX    = 8
	glyphWidth  = 7 // basicfont.Face7x13
)

type layoutCell struct {
	X, W int
	Text string
}

type layoutRow struct {
	Y     int
	Cells []layoutCell
}

type layoutResult struct {
	Width, Height int
	RowHeight     int
	Title         string
	Header        *layoutRow
	Rows          []layoutRow
	Separator     *treegrid.Separator
	GridTop       int
	GridBottom    int
	ColumnX       []int
	Footer        string
}

func columnWidth(w *treegrid.WidthSpec) int {
	width := DefaultColumnWidth
	if w == nil {
		return width
	}
	if w.Width > 0 {
		width = w.Width
	}
	if w.MinWidth > 0 && width < w.MinWidth {
		width = w.MinWidth
	}
	if w.MaxWidth > 0 && width > w.MaxWidth {
		width = w.MaxWidth
	}
	return width
}

func buildLayout(opts SnapshotOptions) layoutResult {
	t := opts.Table
	rowH := t.RowHeight
	if rowH <= 0 {
		rowH = treegrid.DefaultRowHeight
	}

	l := layoutResult{
		RowHeight: rowH,
		Title:     opts.Title,
		Separator: t.Separator,
	}

	x := padding
	l.ColumnX = make([]int, t.Columns()+1)
	widths := make([]int, t.Columns())
	for j := range widths {
		widths[j] = columnWidth(t.Widths[j])
		l.ColumnX[j] = x
		x += widths[j]
	}
	l.ColumnX[t.Columns()] = x
	l.Width = x + padding

	y := padding
	if l.Title != "" {
		y += titleHeight
	}
	l.GridTop = y

	if len(t.Headers) > 0 {
		hdr := layoutRow{Y: y, Cells: make([]layoutCell, t.Columns())}
		for j := range hdr.Cells {
			hdr.Cells[j] = layoutCell{X: l.ColumnX[j], W: widths[j], Text: fit(t.Header(j), widths[j])}
		}
		l.Header = &hdr
		y += rowH
	}

	rows := t.Rows
	if opts.MaxRows > 0 && len(rows) > opts.MaxRows {
		l.Footer = fmt.Sprintf("… %d more rows", len(rows)-opts.MaxRows)
		rows = rows[:opts.MaxRows]
	}
	for _, r := range rows {
		lr := layoutRow{Y: y, Cells: make([]layoutCell, t.Columns())}
		for j := range lr.Cells {
			cx, cw := l.ColumnX[j], widths[j]
			text := r.Cells[j]
			if j == 0 {
				cx += r.Depth * indentStep
				cw -= r.Depth * indentStep
				text = r.Marker() + " " + text
			}
			lr.Cells[j] = layoutCell{X: cx, W: cw, Text: fit(text, cw)}
		}
		l.Rows = append(l.Rows, lr)
		y += rowH
	}
	l.GridBottom = y

	if l.Footer != "" {
		y += rowH
	}
	l.Height = y + padding
	return l
}

// fit truncates text to the glyphs that fit in a cell of width px.
func fit(text string, px int) string {
	return truncate(text, (px-2*cellPadX)/glyphWidth)
}

// --- rendering -------------------------------------------------------------

var (
	colorBackdrop  = color.RGBA{0xf9, 0xfa, 0xfb, 0xff}
	colorHeaderBG  = color.RGBA{0xf3, 0xf4, 0xf6, 0xff}
	colorStroke    = color.RGBA{0x22, 0x22, 0x22, 0xff}
	colorText      = color.RGBA{0x11, 0x11, 0x11, 0xff}
	colorSubtle    = color.RGBA{0x66, 0x66, 0x66, 0xff}
	colorSeparator = color.RGBA{0xd1, 0xd5, 0xdb, 0xff}
)

func separatorColor(s *treegrid.Separator) color.RGBA {
	if s == nil {
		return colorSeparator
	}
	if c, ok := parseHexColor(s.Color); ok {
		return c
	}
	return colorSeparator
}

func separatorThickness(s *treegrid.Separator) float64 {
	if s == nil || s.Thickness <= 0 {
		return 1
	}
	return float64(s.Thickness)
}

// drawsSeparator reports whether row lines are drawn; "space" separates
// rows without a line.
func drawsSeparator(s *treegrid.Separator) bool {
	return s != nil && !strings.EqualFold(s.Style, "space")
}

func renderSVG(w io.Writer, l layoutResult) error {
	canvas := svg.New(w)
	canvas.Start(l.Width, l.Height)
	canvas.Rect(0, 0, l.Width, l.Height, fmt.Sprintf("fill:%s", css(colorBackdrop)))

	if l.Title != "" {
		canvas.Text(padding, padding+20, l.Title,
			fmt.Sprintf("fill:%s;font-size:16px;font-family:monospace;font-weight:bold", css(colorText)))
	}
	if l.Header != nil {
		canvas.Rect(l.ColumnX[0], l.Header.Y, l.ColumnX[len(l.ColumnX)-1]-l.ColumnX[0], l.RowHeight,
			fmt.Sprintf("fill:%s", css(colorHeaderBG)))
		drawRowSVG(canvas, *l.Header, l.RowHeight, "font-weight:bold;")
	}

	if drawsSeparator(l.Separator) {
		style := fmt.Sprintf("stroke:%s;stroke-width:%g", css(separatorColor(l.Separator)), separatorThickness(l.Separator))
		if strings.EqualFold(l.Separator.Style, "dashed") {
			style += ";stroke-dasharray:4,3"
		}
		for _, r := range l.Rows {
			y := r.Y + l.RowHeight
			canvas.Line(l.ColumnX[0], y, l.ColumnX[len(l.ColumnX)-1], y, style)
		}
	}
	for _, r := range l.Rows {
		drawRowSVG(canvas, r, l.RowHeight, "")
	}

	for _, x := range l.ColumnX {
		canvas.Line(x, l.GridTop, x, l.GridBottom, fmt.Sprintf("stroke:%s;stroke-width:1", css(colorSeparator)))
	}
	canvas.Rect(l.ColumnX[0], l.GridTop, l.ColumnX[len(l.ColumnX)-1]-l.ColumnX[0], l.GridBottom-l.GridTop,
		fmt.Sprintf("fill:none;stroke:%s;stroke-width:1.2", css(colorStroke)))

	if l.Footer != "" {
		canvas.Text(padding, l.GridBottom+l.RowHeight/2+4, l.Footer,
			fmt.Sprintf("fill:%s;font-size:12px;font-family:monospace", css(colorSubtle)))
	}

	canvas.End()
	return nil
}

func drawRowSVG(canvas *svg.SVG, r layoutRow, rowH int, extra string) {
	for _, c := range r.Cells {
		if c.Text == "" {
			continue
		}
		canvas.Text(c.X+cellPadX, r.Y+rowH/2+4, c.Text,
			fmt.Sprintf("fill:%s;font-size:12px;font-family:monospace;%s", css(colorText), extra))
	}
}

func renderPNG(l layoutResult) *gg.Context {
	dc := gg.NewContext(l.Width, l.Height)
	dc.SetColor(colorBackdrop)
	dc.Clear()
	dc.SetFontFace(basicfont.Face7x13)

	left := float64(l.ColumnX[0])
	right := float64(l.ColumnX[len(l.ColumnX)-1])
	rowH := float64(l.RowHeight)

	if l.Title != "" {
		dc.SetColor(colorText)
		dc.DrawStringAnchored(l.Title, padding, padding+titleHeight/2, 0, 0.5)
	}
	if l.Header != nil {
		dc.SetColor(colorHeaderBG)
		dc.DrawRectangle(left, float64(l.Header.Y), right-left, rowH)
		dc.Fill()
		drawRowPNG(dc, *l.Header, rowH)
	}

	if drawsSeparator(l.Separator) {
		dc.SetColor(separatorColor(l.Separator))
		dc.SetLineWidth(separatorThickness(l.Separator))
		if strings.EqualFold(l.Separator.Style, "dashed") {
			dc.SetDash(4, 3)
		}
		for _, r := range l.Rows {
			y := float64(r.Y) + rowH
			dc.DrawLine(left, y, right, y)
			dc.Stroke()
		}
		dc.SetDash()
	}
	for _, r := range l.Rows {
		drawRowPNG(dc, r, rowH)
	}

	dc.SetColor(colorSeparator)
	dc.SetLineWidth(1)
	for _, x := range l.ColumnX {
		dc.DrawLine(float64(x), float64(l.GridTop), float64(x), float64(l.GridBottom))
		dc.Stroke()
	}
	dc.SetColor(colorStroke)
	dc.SetLineWidth(1.2)
	dc.DrawRectangle(left, float64(l.GridTop), right-left, float64(l.GridBottom-l.GridTop))
	dc.Stroke()

	if l.Footer != "" {
		dc.SetColor(colorSubtle)
		dc.DrawStringAnchored(l.Footer, padding, float64(l.GridBottom)+rowH/2, 0, 0.5)
	}
	return dc
}

func drawRowPNG(dc *gg.Context, r layoutRow, rowH float64) {
	dc.SetColor(colorText)
	for _, c := range r.Cells {
		if c.Text == "" {
			continue
		}
		dc.DrawStringAnchored(c.Text, float64(c.X+cellPadX), float64(r.Y)+rowH/2, 0, 0.5)
	}
}

// --- helpers ---------------------------------------------------------------

func truncate(s string, max int) string {
	if max <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	if max <= 3 {
		return string(runes[:max])
	}
	return string(runes[:max-3]) + "..."
}

func css(c color.RGBA) string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

// parseHexColor accepts "#rgb" and "#rrggbb".
func parseHexColor(s string) (color.RGBA, bool) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(s) == 3 {
		s = string([]byte{s[0], s[0], s[1], s[1], s[2], s[2]})
	}
	if len(s) != 6 {
		return color.RGBA{}, false
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return color.RGBA{}, false
	}
	return color.RGBA{uint8(v >> 16), uint8(v >> 8), uint8(v), 0xff}, true
}
