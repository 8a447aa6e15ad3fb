package ui

import "github.com/charmbracelet/bubbles/key"

// KeyMap holds the grid key bindings.
type KeyMap struct {
	Up          key.Binding
	Down        key.Binding
	Top         key.Binding
	Bottom      key.Binding
	PageUp      key.Binding
	PageDown    key.Binding
	Toggle      key.Binding
	Expand      key.Binding
	Collapse    key.Binding
	ExpandAll   key.Binding
	CollapseAll key.Binding
	AddChild    key.Binding
	AddSibling  key.Binding
	Rename      key.Binding
	Delete      key.Binding
	MoreColumns key.Binding
	FewerCols   key.Binding
	Copy        key.Binding
	Save        key.Binding
	Help        key.Binding
	Quit        key.Binding
}

// DefaultKeyMap returns the default bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Up:          key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		Down:        key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		Top:         key.NewBinding(key.WithKeys("g", "home"), key.WithHelp("g", "top")),
		Bottom:      key.NewBinding(key.WithKeys("G", "end"), key.WithHelp("G", "bottom")),
		PageUp:      key.NewBinding(key.WithKeys("pgup", "ctrl+u"), key.WithHelp("pgup", "page up")),
		PageDown:    key.NewBinding(key.WithKeys("pgdown", "ctrl+d"), key.WithHelp("pgdn", "page down")),
		Toggle:      key.NewBinding(key.WithKeys(" ", "enter"), key.WithHelp("space", "toggle")),
		Expand:      key.NewBinding(key.WithKeys("l", "right"), key.WithHelp("l/→", "expand")),
		Collapse:    key.NewBinding(key.WithKeys("h", "left"), key.WithHelp("h/←", "collapse")),
		ExpandAll:   key.NewBinding(key.WithKeys("E"), key.WithHelp("E", "expand all")),
		CollapseAll: key.NewBinding(key.WithKeys("C"), key.WithHelp("C", "collapse all")),
		AddChild:    key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "add child")),
		AddSibling:  key.NewBinding(key.WithKeys("A"), key.WithHelp("A", "add sibling")),
		Rename:      key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "rename")),
		Delete:      key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "delete")),
		MoreColumns: key.NewBinding(key.WithKeys("+", "="), key.WithHelp("+", "more columns")),
		FewerCols:   key.NewBinding(key.WithKeys("-"), key.WithHelp("-", "fewer columns")),
		Copy:        key.NewBinding(key.WithKeys("y"), key.WithHelp("y", "copy TSV")),
		Save:        key.NewBinding(key.WithKeys("s", "ctrl+s"), key.WithHelp("s", "save")),
		Help:        key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
		Quit:        key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

// ShortHelp implements help.KeyMap.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Down, k.Up, k.Toggle, k.AddChild, k.Rename, k.Save, k.Help, k.Quit}
}

// FullHelp implements help.KeyMap.
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Top, k.Bottom, k.PageUp, k.PageDown},
		{k.Toggle, k.Expand, k.Collapse, k.ExpandAll, k.CollapseAll},
		{k.AddChild, k.AddSibling, k.Rename, k.Delete, k.Save},
		{k.MoreColumns, k.FewerCols, k.Copy, k.Help, k.Quit},
	}
}
