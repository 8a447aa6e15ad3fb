package ui

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"

	"github.com/vanderheijden86/treegrid/pkg/treegrid"
)

type editKind int

const (
	editAddChild editKind = iota
	editAddSibling
	editRename
	editDelete
)

func (k editKind) String() string {
	switch k {
	case editAddChild:
		return "add child"
	case editAddSibling:
		return "add sibling"
	case editRename:
		return "rename"
	case editDelete:
		return "delete"
	default:
		return "edit"
	}
}

// editor is the modal form for one row edit. The huh form writes into the
// editor's fields; the model applies them once the form completes.
type editor struct {
	kind editKind
	row  treegrid.RowID
	form *huh.Form

	label   string
	cells   string
	confirm bool
}

func newEditor(kind editKind, row treegrid.RowID, label string, width int) *editor {
	e := &editor{kind: kind, row: row}

	var fields []huh.Field
	switch kind {
	case editRename:
		e.label = label
		fields = append(fields, huh.NewInput().
			Title("Rename").
			Value(&e.label).
			Validate(requireText))
	case editDelete:
		fields = append(fields, huh.NewConfirm().
			Title("Delete "+quoteLabel(label)+" and everything below it?").
			Affirmative("Delete").
			Negative("Keep").
			Value(&e.confirm))
	default:
		fields = append(fields,
			huh.NewInput().
				Title("Label").
				Value(&e.label).
				Validate(requireText),
			huh.NewInput().
				Title("Cells").
				Description("extra columns, separated by |").
				Value(&e.cells),
		)
	}

	km := huh.NewDefaultKeyMap()
	km.Quit = key.NewBinding(key.WithKeys("esc", "ctrl+c"), key.WithHelp("esc", "cancel"))

	e.form = huh.NewForm(huh.NewGroup(fields...)).
		WithTheme(huh.ThemeDracula()).
		WithKeyMap(km).
		WithShowHelp(false)
	if width > 0 {
		e.form = e.form.WithWidth(clamp(width-8, 20, 72))
	}
	return e
}

func (e *editor) Init() tea.Cmd {
	return e.form.Init()
}

// Update forwards every message; huh needs its own internal messages too.
func (e *editor) Update(msg tea.Msg) tea.Cmd {
	m, cmd := e.form.Update(msg)
	if f, ok := m.(*huh.Form); ok {
		e.form = f
	}
	return cmd
}

func (e *editor) View() string {
	return e.form.View()
}

func (e *editor) completed() bool {
	return e.form.State == huh.StateCompleted
}

func (e *editor) aborted() bool {
	return e.form.State == huh.StateAborted
}

// cellValues splits the cells field on "|".
func (e *editor) cellValues() []string {
	if strings.TrimSpace(e.cells) == "" {
		return nil
	}
	parts := strings.Split(e.cells, "|")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

func requireText(s string) error {
	if strings.TrimSpace(s) == "" {
		return errEmptyLabel
	}
	return nil
}

func quoteLabel(s string) string {
	return `"` + truncateRunesHelper(flatten(s), 40, "…") + `"`
}
