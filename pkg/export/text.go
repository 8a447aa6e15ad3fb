package export

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// TextOptions controls TSV and Markdown output.
type TextOptions struct {
	// Indent is repeated once per depth level in front of the first column.
	Indent string
	// Markers prefixes the first column with the disclosure glyph.
	Markers bool
}

// WriteTSV writes the table as tab separated values, headers first when
// there are any. Tabs and newlines inside cells become spaces.
func WriteTSV(w io.Writer, t Table, opts TextOptions) error {
	bw := bufio.NewWriter(w)
	if len(t.Headers) > 0 {
		heads := make([]string, t.Columns())
		for j := range heads {
			heads[j] = tsvEscape(t.Header(j))
		}
		fmt.Fprintln(bw, strings.Join(heads, "\t"))
	}
	for _, r := range t.Rows {
		fields := make([]string, len(r.Cells))
		for j, c := range r.Cells {
			if j == 0 {
				c = firstCell(r, c, opts)
			}
			fields[j] = tsvEscape(c)
		}
		fmt.Fprintln(bw, strings.Join(fields, "\t"))
	}
	return bw.Flush()
}

// WriteMarkdown writes the table as a GitHub flavored markdown table.
func WriteMarkdown(w io.Writer, t Table, opts TextOptions) error {
	bw := bufio.NewWriter(w)
	n := t.Columns()
	if n == 0 {
		return bw.Flush()
	}
	if opts.Indent == "" {
		// Leading spaces collapse in rendered markdown.
		opts.Indent = "&nbsp;&nbsp;"
	}

	heads := make([]string, n)
	rule := make([]string, n)
	for j := range heads {
		heads[j] = mdEscape(t.Header(j))
		rule[j] = "---"
	}
	fmt.Fprintf(bw, "| %s |\n", strings.Join(heads, " | "))
	fmt.Fprintf(bw, "| %s |\n", strings.Join(rule, " | "))
	for _, r := range t.Rows {
		fields := make([]string, n)
		for j, c := range r.Cells {
			if j == 0 {
				c = firstCell(r, c, opts)
			}
			fields[j] = mdEscape(c)
		}
		fmt.Fprintf(bw, "| %s |\n", strings.Join(fields, " | "))
	}
	return bw.Flush()
}

func firstCell(r TableRow, text string, opts TextOptions) string {
	prefix := strings.Repeat(opts.Indent, r.Depth)
	if opts.Markers {
		prefix += r.Marker() + " "
	}
	return prefix + text
}

var tsvReplacer = strings.NewReplacer("\t", " ", "\r\n", " ", "\n", " ", "\r", " ")

func tsvEscape(s string) string {
	return tsvReplacer.Replace(s)
}

var mdReplacer = strings.NewReplacer("|", `\|`, "\r\n", "<br>", "\n", "<br>")

func mdEscape(s string) string {
	return mdReplacer.Replace(s)
}
