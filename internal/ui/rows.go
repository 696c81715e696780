package ui

import (
	"fmt"
	"io"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"

	"tasklist/internal/storage"
)

// row adapts a task to list.Item.
type row struct {
	task *storage.Task
}

func (r row) FilterValue() string { return r.task.Title }

type rowDelegate struct{}

func (d rowDelegate) Height() int                               { return 1 }
func (d rowDelegate) Spacing() int                              { return 0 }
func (d rowDelegate) Update(msg tea.Msg, m *list.Model) tea.Cmd { return nil }
func (d rowDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	r, ok := item.(row)
	if !ok {
		return
	}
	title := r.task.Title
	if title == "" {
		title = mutedStyle.Render("(untitled)")
	}
	prefix := "  "
	if index == m.Index() {
		prefix = selectedStyle.Render("> ")
		title = selectedStyle.Render(title)
	}
	fmt.Fprint(w, prefix+title)
}

// table is the visible list of rows. It is shared by pointer so the
// controller and the Bubble Tea model see the same rows.
type table struct {
	list list.Model
	cmds []tea.Cmd
}

func newTable(width, height int) *table {
	l := list.New(nil, rowDelegate{}, width, height)
	l.Title = "Task List"
	l.Styles.Title = titleStyle
	l.SetShowHelp(false)
	l.SetShowStatusBar(true)
	l.SetFilteringEnabled(false)
	l.DisableQuitKeybindings()
	l.SetStatusBarItemName("task", "tasks")
	return &table{list: l}
}

func (t *table) Reload(tasks []*storage.Task) {
	items := make([]list.Item, 0, len(tasks))
	for _, task := range tasks {
		items = append(items, row{task: task})
	}
	t.cmds = append(t.cmds, t.list.SetItems(items))
}

func (t *table) InsertRow(i int, task *storage.Task) {
	t.cmds = append(t.cmds, t.list.InsertItem(i, row{task: task}))
	t.list.Select(i)
}

func (t *table) DeleteRow(i int) {
	t.list.RemoveItem(i)
	if n := len(t.list.Items()); n > 0 && t.list.Index() >= n {
		t.list.Select(n - 1)
	}
}

func (t *table) ReloadRow(i int, task *storage.Task) {
	t.cmds = append(t.cmds, t.list.SetItem(i, row{task: task}))
}

// Len is the number of rows on screen.
func (t *table) Len() int { return len(t.list.Items()) }

func (t *table) Index() int { return t.list.Index() }

// flush returns the commands queued by row changes.
func (t *table) flush() tea.Cmd {
	cmds := t.cmds
	t.cmds = nil
	return tea.Batch(cmds...)
}
