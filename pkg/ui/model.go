// Package ui is the terminal front end of treegrid: a bubbletea model that
// shows a treegrid.Grid, lets the user fold, edit and save the outlines
// behind it and reloads them when their files change.
package ui

import (
	"bytes"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/vanderheijden86/treegrid/pkg/export"
	"github.com/vanderheijden86/treegrid/pkg/metrics"
	"github.com/vanderheijden86/treegrid/pkg/outline"
	"github.com/vanderheijden86/treegrid/pkg/treegrid"
)

var (
	// ErrNoSources is returned by NewGridModel without any mounted outline.
	ErrNoSources = errors.New("no outline to show")
	// ErrNoDeferrer is returned by NewGridModel without the grid's deferrer.
	ErrNoDeferrer = errors.New("grid model needs the grid's tea deferrer")

	errEmptyLabel = errors.New("label must not be empty")
)

const (
	defaultWidth  = 80
	defaultHeight = 24
	maxColumns    = 16
)

// Options configure a GridModel.
type Options struct {
	// Headers title the columns. Empty means the headers of the first
	// outline, if any.
	Headers []string
	// StatePath is where expand/collapse state is kept; empty disables it.
	StatePath string
	// Theme is "dark", "light" or empty for detection.
	Theme string
	// Clipboard replaces the system clipboard, mainly for tests.
	Clipboard func(string) error
}

// GridModel is the bubbletea model of the grid view.
type GridModel struct {
	grid      *treegrid.Grid
	deferrer  *TeaDeferrer
	sources   []*Source
	keys      KeyMap
	theme     Theme
	headers   []string
	statePath string
	copyFn    func(string) error

	cursor    treegrid.RowID
	cursorIdx int

	width    int
	height   int
	viewport viewport.Model
	help     help.Model
	showHelp bool
	helpView viewport.Model

	editor *editor

	table     export.Table
	view      gridView
	status    string
	statusErr bool
	quitArmed bool
	quitting  bool
}

// NewGridModel wraps grid, whose tree already holds the mounted sources
// (see Mount). The grid must have been created with deferrer as its
// Deferrer; a nil deferrer returns ErrNoDeferrer. Saved collapse state is
// applied and the grid is attached.
func NewGridModel(grid *treegrid.Grid, deferrer *TeaDeferrer, sources []*Source, opts Options) (GridModel, error) {
	if len(sources) == 0 {
		return GridModel{}, ErrNoSources
	}
	for _, src := range sources {
		if src.Binding == nil {
			return GridModel{}, fmt.Errorf("source %s is not mounted: %w", src.Name, ErrNoSources)
		}
	}
	if deferrer == nil {
		return GridModel{}, ErrNoDeferrer
	}

	m := GridModel{
		grid:      grid,
		deferrer:  deferrer,
		sources:   sources,
		keys:      DefaultKeyMap(),
		theme:     NewTheme(lipgloss.DefaultRenderer(), opts.Theme),
		headers:   opts.Headers,
		statePath: opts.StatePath,
		copyFn:    opts.Clipboard,
		width:     defaultWidth,
		height:    defaultHeight,
		help:      help.New(),
	}
	if m.copyFn == nil {
		m.copyFn = clipboard.WriteAll
	}
	if len(m.headers) == 0 {
		m.headers = sources[0].Binding.Columns()
	}

	LoadCollapseState(m.statePath).Apply(grid.Tree(), sources)
	grid.Attach()

	if rows := grid.VisibleRows(); len(rows) > 0 {
		m.cursor = rows[0]
	}
	m.viewport = viewport.New(m.width, m.bodyHeight())
	m.refresh()
	return m, nil
}

// Init starts the file watches.
func (m GridModel) Init() tea.Cmd {
	var cmds []tea.Cmd
	for i, src := range m.sources {
		if src.Watcher != nil {
			cmds = append(cmds, WatchFileCmd(src.Watcher, i))
		}
	}
	cmds = append(cmds, m.deferrer.Cmd())
	return tea.Batch(cmds...)
}

// Update handles a message and hands any newly deferred grid work to the
// program.
func (m GridModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	m, cmd := m.update(msg)
	return m, tea.Batch(cmd, m.deferrer.Cmd())
}

func (m GridModel) update(msg tea.Msg) (GridModel, tea.Cmd) {
	switch msg := msg.(type) {
	case deferredMsg:
		if m.deferrer.Fire(msg) {
			m.refresh()
		}
		return m, nil

	case FileChangedMsg:
		cmd := m.reload(msg.Source)
		m.refresh()
		return m, cmd

	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
	}

	// The form needs every message, not just keys, for its own navigation.
	if m.editor != nil {
		cmd := m.editor.Update(msg)
		m.finishEdit()
		return m, cmd
	}

	if m.showHelp {
		if k, ok := msg.(tea.KeyMsg); ok {
			switch {
			case key.Matches(k, m.keys.Help), k.String() == "esc", k.String() == "q":
				m.showHelp = false
				return m, nil
			case k.String() == "ctrl+c":
				return m.quit(true)
			}
		}
		var cmd tea.Cmd
		m.helpView, cmd = m.helpView.Update(msg)
		return m, cmd
	}

	if k, ok := msg.(tea.KeyMsg); ok {
		return m.handleKey(k)
	}
	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m GridModel) handleKey(msg tea.KeyMsg) (GridModel, tea.Cmd) {
	if !key.Matches(msg, m.keys.Quit) {
		m.quitArmed = false
	}
	tree := m.grid.Tree()

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m.quit(msg.String() == "ctrl+c")

	case key.Matches(msg, m.keys.Up):
		m.moveCursor(-1)
	case key.Matches(msg, m.keys.Down):
		m.moveCursor(1)
	case key.Matches(msg, m.keys.Top):
		m.moveCursor(-len(m.table.Rows))
	case key.Matches(msg, m.keys.Bottom):
		m.moveCursor(len(m.table.Rows))
	case key.Matches(msg, m.keys.PageUp):
		m.moveCursor(-m.pageRows())
	case key.Matches(msg, m.keys.PageDown):
		m.moveCursor(m.pageRows())

	case key.Matches(msg, m.keys.Toggle):
		if tree.ChildCount(m.cursor) > 0 {
			if _, err := tree.Toggle(m.cursor); err != nil {
				m.setError(err)
			}
			m.saveCollapseState()
		}

	case key.Matches(msg, m.keys.Expand):
		switch {
		case tree.ChildCount(m.cursor) == 0:
		case tree.IsCollapsed(m.cursor):
			m.setCollapsed(m.cursor, false)
		default:
			m.cursor = tree.Children(m.cursor)[0]
		}

	case key.Matches(msg, m.keys.Collapse):
		if tree.ChildCount(m.cursor) > 0 && !tree.IsCollapsed(m.cursor) {
			m.setCollapsed(m.cursor, true)
		} else if parent, ok := tree.Parent(m.cursor); ok && parent != treegrid.RootID {
			m.cursor = parent
		}

	case key.Matches(msg, m.keys.ExpandAll):
		m.setAllCollapsed(false)
	case key.Matches(msg, m.keys.CollapseAll):
		m.setAllCollapsed(true)

	case key.Matches(msg, m.keys.AddChild):
		return m.openEditor(editAddChild)
	case key.Matches(msg, m.keys.AddSibling):
		return m.openEditor(editAddSibling)
	case key.Matches(msg, m.keys.Rename):
		return m.openEditor(editRename)
	case key.Matches(msg, m.keys.Delete):
		return m.openEditor(editDelete)

	case key.Matches(msg, m.keys.MoreColumns):
		m.changeColumns(1)
	case key.Matches(msg, m.keys.FewerCols):
		m.changeColumns(-1)

	case key.Matches(msg, m.keys.Copy):
		m.copyVisible()
	case key.Matches(msg, m.keys.Save):
		m.saveSources()

	case key.Matches(msg, m.keys.Help):
		m.showHelp = true
		m.helpView = viewport.New(m.width, m.height-1)
		m.helpView.SetContent(renderHelp(m.keys, m.width, m.theme.Dark))
		return m, nil

	default:
		return m, nil
	}

	m.refresh()
	return m, nil
}

func (m GridModel) quit(force bool) (GridModel, tea.Cmd) {
	if !force && m.dirty() && !m.quitArmed {
		m.quitArmed = true
		m.setStatus("unsaved edits: s saves, q again quits without saving")
		return m, nil
	}
	m.saveCollapseState()
	m.quitting = true
	return m, tea.Quit
}

// moveCursor moves the selection by delta rows, clamped to the grid.
func (m *GridModel) moveCursor(delta int) {
	if len(m.table.Rows) == 0 {
		return
	}
	i := clamp(m.cursorIdx+delta, 0, len(m.table.Rows)-1)
	m.cursorIdx = i
	m.cursor = m.table.Rows[i].ID
}

func (m *GridModel) pageRows() int {
	per := linesPerRow(m.grid.RowHeight())
	if m.grid.RowSeparator() != nil {
		per++
	}
	return max(m.viewport.Height/per, 1)
}

func (m *GridModel) setCollapsed(row treegrid.RowID, collapsed bool) {
	if err := m.grid.Tree().SetCollapsed(row, collapsed); err != nil {
		m.setError(err)
		return
	}
	m.saveCollapseState()
}

func (m *GridModel) setAllCollapsed(collapsed bool) {
	tree := m.grid.Tree()
	n := 0
	tree.Walk(func(id treegrid.RowID, _ int) bool {
		if tree.ChildCount(id) > 0 && tree.IsCollapsed(id) != collapsed {
			if err := tree.SetCollapsed(id, collapsed); err == nil {
				n++
			}
		}
		return true
	})
	verb := "expanded"
	if collapsed {
		verb = "collapsed"
	}
	m.setStatus(fmt.Sprintf("%s %d rows", verb, n))
	m.saveCollapseState()
}

func (m *GridModel) changeColumns(delta int) {
	n := clamp(m.grid.ColumnCount()+delta, 1, maxColumns)
	if n == m.grid.ColumnCount() {
		return
	}
	if err := m.grid.SetColumnCount(n); err != nil {
		m.setError(err)
		return
	}
	m.setStatus(fmt.Sprintf("%d columns", n))
}

func (m *GridModel) copyVisible() {
	var buf bytes.Buffer
	if err := export.WriteTSV(&buf, m.table, export.TextOptions{Indent: "  "}); err != nil {
		m.setError(err)
		return
	}
	if err := m.copyFn(buf.String()); err != nil {
		m.setError(fmt.Errorf("clipboard: %w", err))
		return
	}
	m.setStatus(fmt.Sprintf("copied %d rows", len(m.table.Rows)))
}

// saveSources writes every edited outline and tells its watcher about the
// new content.
func (m *GridModel) saveSources() {
	var saved []string
	for _, src := range m.sources {
		if !src.dirty {
			continue
		}
		if src.Save == nil {
			m.setError(fmt.Errorf("%s cannot be saved", src.Name))
			return
		}
		if err := src.Save(src.Binding.Document()); err != nil {
			m.setError(fmt.Errorf("save %s: %w", src.Name, err))
			return
		}
		if src.Watcher != nil {
			src.Watcher.Acknowledge()
		}
		src.dirty = false
		saved = append(saved, src.Name)
	}
	if len(saved) == 0 {
		m.setStatus("nothing to save")
		return
	}
	m.setStatus("saved " + strings.Join(saved, ", "))
}

// reload re-reads sources[i] after its file changed and re-arms the watch.
func (m *GridModel) reload(i int) tea.Cmd {
	if i < 0 || i >= len(m.sources) {
		return nil
	}
	src := m.sources[i]
	next := WatchFileCmd(src.Watcher, i)
	if src.Load == nil {
		return next
	}

	doc, err := src.Load()
	if err != nil {
		m.setError(fmt.Errorf("reload %s: %w", src.Name, err))
		return next
	}
	res, err := src.Binding.Sync(doc)
	if err != nil {
		m.setError(fmt.Errorf("reload %s: %w", src.Name, err))
		return next
	}

	if res.Refreshed > 0 {
		// invalidated cells are only re-populated when presented again
		m.grid.Refresh()
	}

	msg := fmt.Sprintf("reloaded %s: +%d -%d ~%d", src.Name, res.Added, res.Removed, res.Moved+res.Refreshed)
	if src.dirty {
		msg += " (local edits replaced)"
		src.dirty = false
	}
	m.setStatus(msg)
	return next
}

func (m GridModel) openEditor(kind editKind) (GridModel, tea.Cmd) {
	src, node, ok := m.target()
	label := ""
	switch {
	case node != nil:
		label = node.Label
	case ok:
		label = src.Name
	}

	if kind == editRename || kind == editDelete {
		if node == nil {
			m.setStatus("select an outline row to " + kind.String())
			return m, nil
		}
	}

	m.editor = newEditor(kind, m.cursor, label, m.width)
	return m, m.editor.Init()
}

// finishEdit closes the editor once its form completed or was aborted.
func (m *GridModel) finishEdit() {
	e := m.editor
	switch {
	case e == nil:
		return
	case e.aborted():
		m.editor = nil
		m.setStatus(e.kind.String() + " cancelled")
	case e.completed():
		m.editor = nil
		if err := m.applyEdit(e); err != nil {
			m.setError(err)
		}
	default:
		return
	}
	m.refresh()
}

func (m *GridModel) applyEdit(e *editor) error {
	src, ok := m.sourceOf(e.row)
	if !ok {
		src = m.sources[0]
	}
	tree := m.grid.Tree()
	label := strings.TrimSpace(e.label)

	switch e.kind {
	case editRename:
		if err := src.Binding.Rename(e.row, label); err != nil {
			return err
		}
		for j := 0; j < m.grid.ColumnCount(); j++ {
			if _, err := tree.RefreshCell(e.row, j); err != nil {
				return err
			}
		}
		m.setStatus("renamed to " + quoteLabel(label))

	case editDelete:
		if !e.confirm {
			m.setStatus("kept")
			return nil
		}
		next := m.neighbour(e.row)
		if err := src.Binding.Remove(e.row); err != nil {
			return err
		}
		m.cursor = next
		m.setStatus("deleted")

	default:
		parent, index := src.Binding.Parent(), 0
		switch {
		case !ok:
			index = tree.ChildCount(parent)
		case e.kind == editAddChild || e.row == src.Binding.Parent():
			parent, index = e.row, tree.ChildCount(e.row)
		default:
			parent, _ = tree.Parent(e.row)
			index = indexOf(tree.Children(parent), e.row) + 1
		}
		row, err := src.Binding.Insert(parent, index, &outline.Node{Label: label, Cells: e.cellValues()})
		if err != nil {
			return err
		}
		if parent != treegrid.RootID && tree.IsCollapsed(parent) {
			if err := tree.SetCollapsed(parent, false); err != nil {
				return err
			}
		}
		m.cursor = row
		m.setStatus("added " + quoteLabel(label))
	}

	src.dirty = true
	return nil
}

// neighbour picks the row to select once row is gone: the next visible row
// outside its subtree, else the previous one.
func (m *GridModel) neighbour(row treegrid.RowID) treegrid.RowID {
	tree := m.grid.Tree()
	idx := -1
	for i, r := range m.table.Rows {
		if r.ID == row {
			idx = i
			break
		}
	}
	if idx < 0 {
		return m.cursor
	}
	depth := m.table.Rows[idx].Depth
	for _, r := range m.table.Rows[idx+1:] {
		if r.Depth <= depth {
			return r.ID
		}
	}
	if idx > 0 {
		return m.table.Rows[idx-1].ID
	}
	parent, _ := tree.Parent(row)
	return parent
}

// target returns the source and node under the cursor.
func (m *GridModel) target() (*Source, *outline.Node, bool) {
	src, ok := m.sourceOf(m.cursor)
	if !ok {
		return nil, nil, false
	}
	node, _ := src.Binding.Node(m.cursor)
	return src, node, true
}

func (m *GridModel) sourceOf(row treegrid.RowID) (*Source, bool) {
	for _, src := range m.sources {
		if src.owns(row) {
			return src, true
		}
	}
	return nil, false
}

func (m *GridModel) dirty() bool {
	for _, src := range m.sources {
		if src.dirty {
			return true
		}
	}
	return false
}

func (m *GridModel) saveCollapseState() {
	if m.statePath == "" {
		return
	}
	state := CaptureCollapseState(m.grid.Tree(), m.sources)
	if err := state.Save(m.statePath); err != nil {
		log.Printf("warning: failed to write collapse state to %s: %v", m.statePath, err)
	}
}

func (m *GridModel) setStatus(s string) {
	m.status = s
	m.statusErr = false
}

func (m *GridModel) setError(err error) {
	m.status = err.Error()
	m.statusErr = true
}

func (m *GridModel) resize(w, h int) {
	m.width, m.height = w, h
	m.viewport.Width = w
	m.viewport.Height = m.bodyHeight()
	m.help.Width = w
	if m.showHelp {
		m.helpView.Width = w
		m.helpView.Height = h - 1
		m.helpView.SetContent(renderHelp(m.keys, w, m.theme.Dark))
	}
	m.refresh()
}

// bodyHeight is what is left for rows after the title, header, status and
// help lines.
func (m *GridModel) bodyHeight() int {
	chrome := 3
	if len(m.headers) > 0 {
		chrome++
	}
	return max(m.height-chrome, 1)
}

// refresh re-captures the grid, re-renders it and keeps the cursor on a
// visible row.
func (m *GridModel) refresh() {
	defer metrics.Timer(metrics.UIRender)()

	m.table = export.Capture(m.grid, m.headers, nil)
	m.syncCursor()

	widths := columnWidths(m.table, m.width)
	m.view = renderTable(m.table, widths, m.cursorIdx, m.theme)
	m.viewport.SetContent(m.view.body)
	m.scrollToCursor()
}

// syncCursor finds the cursor row in the table. A row that is not visible
// yet because a recompute is pending keeps the selection; a hidden row
// passes it to its nearest visible ancestor.
func (m *GridModel) syncCursor() {
	if len(m.table.Rows) == 0 {
		m.cursorIdx = 0
		return
	}
	tree := m.grid.Tree()
	index := func(id treegrid.RowID) int {
		for i, r := range m.table.Rows {
			if r.ID == id {
				return i
			}
		}
		return -1
	}

	if i := index(m.cursor); i >= 0 {
		m.cursorIdx = i
		return
	}
	if tree.Contains(m.cursor) {
		if m.grid.State() == treegrid.StatePending {
			return
		}
		for id, ok := tree.Parent(m.cursor); ok && id != treegrid.RootID; id, ok = tree.Parent(id) {
			if i := index(id); i >= 0 {
				m.cursor, m.cursorIdx = id, i
				return
			}
		}
	}
	m.cursorIdx = clamp(m.cursorIdx, 0, len(m.table.Rows)-1)
	m.cursor = m.table.Rows[m.cursorIdx].ID
}

func (m *GridModel) scrollToCursor() {
	if m.cursorIdx >= len(m.view.rowLines) {
		return
	}
	top := m.view.rowLines[m.cursorIdx]
	bottom := top + linesPerRow(m.table.RowHeight) - 1
	switch {
	case top < m.viewport.YOffset:
		m.viewport.SetYOffset(top)
	case bottom >= m.viewport.YOffset+m.viewport.Height:
		m.viewport.SetYOffset(bottom - m.viewport.Height + 1)
	}
}

// View renders the model.
func (m GridModel) View() string {
	if m.quitting {
		return ""
	}
	if m.showHelp {
		return m.titleBar() + "\n" + m.helpView.View()
	}

	var sb strings.Builder
	sb.WriteString(m.titleBar())
	sb.WriteString("\n")
	if m.view.header != "" {
		sb.WriteString(m.view.header)
		sb.WriteString("\n")
	}
	if m.editor != nil {
		modal := m.theme.Modal.Render(m.editor.View())
		sb.WriteString(lipgloss.Place(m.width, m.viewport.Height, lipgloss.Center, lipgloss.Center, modal))
	} else {
		sb.WriteString(m.viewport.View())
	}
	sb.WriteString("\n")
	sb.WriteString(m.statusBar())
	sb.WriteString("\n")
	sb.WriteString(m.help.View(m.keys))
	return sb.String()
}

func (m GridModel) titleBar() string {
	var names []string
	for _, src := range m.sources {
		name := src.Name
		if t := src.Binding.Title(); t != "" && len(m.sources) == 1 {
			name = t
		}
		if src.dirty {
			name += m.theme.Dirty.Render(" ●")
		}
		names = append(names, name)
	}
	return m.theme.Title.Render(strings.Join(names, " · "))
}

func (m GridModel) statusBar() string {
	pos := 0
	if len(m.table.Rows) > 0 {
		pos = m.cursorIdx + 1
	}
	right := fmt.Sprintf("row %d/%d · %d cols · %s", pos, len(m.table.Rows), m.grid.ColumnCount(), m.grid.State())

	left := m.theme.Status.Render(m.status)
	if m.statusErr {
		left = m.theme.Error.Render(m.status)
	}
	gap := m.width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 1 {
		gap = 1
	}
	return left + strings.Repeat(" ", gap) + m.theme.Status.Render(right)
}

// Cursor returns the selected row.
func (m GridModel) Cursor() treegrid.RowID {
	return m.cursor
}

// Status returns the last status message.
func (m GridModel) Status() string {
	return m.status
}

// Sources returns the shown outlines.
func (m GridModel) Sources() []*Source {
	return m.sources
}

func indexOf(list []treegrid.RowID, row treegrid.RowID) int {
	for i, r := range list {
		if r == row {
			return i
		}
	}
	return -1
}
