package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"
)

var helpSections = []string{"Navigation", "Tree", "Editing", "Grid"}

// helpMarkdown lists every binding of k, one table per FullHelp group.
func helpMarkdown(k KeyMap) string {
	var sb strings.Builder
	sb.WriteString("# treegrid keys\n\n")
	for i, group := range k.FullHelp() {
		title := "More"
		if i < len(helpSections) {
			title = helpSections[i]
		}
		fmt.Fprintf(&sb, "## %s\n\n| Key | Action |\n| --- | --- |\n", title)
		for _, b := range group {
			h := b.Help()
			fmt.Fprintf(&sb, "| `%s` | %s |\n", h.Key, h.Desc)
		}
		sb.WriteString("\n")
	}
	sb.WriteString("Edits stay in memory until saved with `s`. ")
	sb.WriteString("Expand and collapse state is remembered between runs.\n")
	return sb.String()
}

// renderHelp renders the help text for a terminal of the given width. A
// renderer failure falls back to the raw markdown.
func renderHelp(k KeyMap, width int, dark bool) string {
	md := helpMarkdown(k)
	style := "dark"
	if !dark {
		style = "light"
	}
	if width <= 0 {
		width = 80
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(style),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return md
	}
	out, err := r.Render(md)
	if err != nil {
		return md
	}
	return out
}
