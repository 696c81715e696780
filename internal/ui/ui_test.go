package ui

import (
	"errors"
	"path/filepath"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tasklist/internal/config"
	"tasklist/internal/storage"
	"tasklist/internal/tasklist"
)

func testConfig() config.Config {
	return config.Config{
		DBPath:        "unused.db",
		ConfirmDelete: true,
		Keys: config.Keymap{
			Quit:    "q",
			Add:     "a",
			Up:      "k",
			Down:    "j",
			Delete:  "d",
			Edit:    "e",
			Reload:  "r",
			Confirm: "enter",
			Cancel:  "esc",
		},
	}
}

func openStore(t *testing.T, titles ...string) *storage.Store {
	t.Helper()
	s, err := storage.Open(filepath.Join(t.TempDir(), "tasks.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	for _, title := range titles {
		_, err := s.Create(title)
		require.NoError(t, err)
	}
	return s
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

var (
	enter = tea.KeyMsg{Type: tea.KeyEnter}
	esc   = tea.KeyMsg{Type: tea.KeyEsc}
)

func send(t *testing.T, m Model, msgs ...tea.Msg) Model {
	t.Helper()
	for _, msg := range msgs {
		next, _ := m.Update(msg)
		var ok bool
		m, ok = next.(Model)
		require.True(t, ok)
	}
	return m
}

func appeared(t *testing.T, store tasklist.Store, cfg config.Config) Model {
	t.Helper()
	m := New(store, cfg)
	return send(t, m, appearMsg{})
}

func shown(m Model) []string {
	out := []string{}
	for _, item := range m.rows.list.Items() {
		out = append(out, item.(row).task.Title)
	}
	return out
}

func held(m Model) []string {
	out := []string{}
	for _, task := range m.ctrl.Tasks() {
		out = append(out, task.Title)
	}
	return out
}

func assertRows(t *testing.T, m Model, want ...string) {
	t.Helper()
	if want == nil {
		want = []string{}
	}
	assert.Equal(t, want, shown(m))
	assert.Equal(t, want, held(m))
}

func TestInitLoadsTasks(t *testing.T) {
	m := New(openStore(t, "A", "B"), testConfig())
	assert.Zero(t, m.rows.Len())

	msg := m.Init()()
	m = send(t, m, msg)

	assertRows(t, m, "A", "B")
}

func TestAddTask(t *testing.T) {
	s := openStore(t, "A")
	m := appeared(t, s, testConfig())

	m = send(t, m, runes("a"))
	assert.Equal(t, modeAdd, m.mode)
	assert.Equal(t, "New Task", m.prompt.Title)
	assert.Contains(t, m.View(), "What do you want to do?")

	m = send(t, m, runes("B"), enter)

	assert.Equal(t, modeList, m.mode)
	assertRows(t, m, "A", "B")
	assert.Equal(t, "Added task", m.status)
	assert.Len(t, s.FetchAll(), 2)
}

func TestAddBlankOrCancelledIsNoop(t *testing.T) {
	tests := []struct {
		name string
		keys []tea.Msg
	}{
		{name: "empty", keys: []tea.Msg{runes("a"), enter}},
		{name: "whitespace", keys: []tea.Msg{runes("a"), runes("   "), enter}},
		{name: "cancel", keys: []tea.Msg{runes("a"), runes("B"), esc}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := openStore(t, "A")
			m := appeared(t, s, testConfig())

			m = send(t, m, tt.keys...)

			assert.Equal(t, modeList, m.mode)
			assertRows(t, m, "A")
			assert.Len(t, s.FetchAll(), 1)
		})
	}
}

func TestDeleteWithConfirmation(t *testing.T) {
	s := openStore(t, "A", "B", "C")
	m := appeared(t, s, testConfig())

	m = send(t, m, runes("j"), runes("d"))
	assert.Equal(t, modeConfirmDelete, m.mode)
	assert.Contains(t, m.status, `"B"`)

	m = send(t, m, runes("y"))

	assertRows(t, m, "A", "C")
	assert.Len(t, s.FetchAll(), 2)
}

func TestDeleteDeclined(t *testing.T) {
	m := appeared(t, openStore(t, "A", "B"), testConfig())

	m = send(t, m, runes("d"), runes("n"))

	assert.Equal(t, modeList, m.mode)
	assertRows(t, m, "A", "B")
}

func TestDeleteWithoutConfirmation(t *testing.T) {
	cfg := testConfig()
	cfg.ConfirmDelete = false
	m := appeared(t, openStore(t, "A", "B", "C"), cfg)

	m = send(t, m, runes("j"), runes("j"), runes("d"))

	assertRows(t, m, "A", "B")
}

func TestEditTask(t *testing.T) {
	s := openStore(t, "A", "B", "C")
	m := appeared(t, s, testConfig())

	m = send(t, m, runes("j"), runes("e"))
	require.Equal(t, modeEdit, m.mode)
	assert.Equal(t, "B", m.input.Value())
	assert.Contains(t, m.prompt.Message, `"B"`)

	m = send(t, m, runes("2"), enter)

	assertRows(t, m, "A", "B2", "C")
	got := s.FetchAll()
	require.Len(t, got, 3)
	assert.Equal(t, "B2", got[1].Title)
}

func TestEditClearedTitleIsNoop(t *testing.T) {
	m := appeared(t, openStore(t, "A"), testConfig())

	m = send(t, m, runes("e"))
	m.input.SetValue("  ")
	m = send(t, m, enter)

	assertRows(t, m, "A")
}

func TestEditFollowsTaskAcrossReload(t *testing.T) {
	s := openStore(t, "A", "B")
	m := appeared(t, s, testConfig())

	m = send(t, m, runes("j"), runes("e"))
	// the task under edit is removed out of band and the list reloaded
	require.NoError(t, s.Delete(m.target))
	m.ctrl.Appear()
	m.rows.flush()

	m = send(t, m, enter)

	assertRows(t, m, "A")
	assert.Equal(t, "Task no longer exists", m.status)
}

func TestReloadPicksUpExternalChanges(t *testing.T) {
	s := openStore(t, "A")
	m := appeared(t, s, testConfig())

	_, err := s.Create("external")
	require.NoError(t, err)

	m = send(t, m, runes("r"))

	assertRows(t, m, "A", "external")
}

func TestActionsOnEmptyList(t *testing.T) {
	m := appeared(t, openStore(t), testConfig())

	m = send(t, m, runes("e"))
	assert.Equal(t, "No tasks to edit", m.status)
	m = send(t, m, runes("d"))
	assert.Equal(t, "No tasks to delete", m.status)
	assert.Equal(t, modeList, m.mode)
	assert.Contains(t, m.View(), "No tasks yet")
}

// brokenStore fails every write with a fatal error.
type brokenStore struct {
	tasks []*storage.Task
}

func (b *brokenStore) FetchAll() []*storage.Task { return b.tasks }
func (b *brokenStore) Create(string) (*storage.Task, error) {
	return nil, &storage.FatalError{Op: "create", Err: errors.New("disk full")}
}
func (b *brokenStore) Update(*storage.Task) error {
	return &storage.FatalError{Op: "update", Err: errors.New("disk full")}
}
func (b *brokenStore) Delete(*storage.Task) error {
	return &storage.FatalError{Op: "delete", Err: errors.New("disk full")}
}

func TestFatalErrorQuits(t *testing.T) {
	m := appeared(t, &brokenStore{}, testConfig())

	m = send(t, m, runes("a"), runes("B"))
	next, cmd := m.Update(enter)
	m = next.(Model)

	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
	assert.True(t, storage.IsFatal(m.Err()))
	assertRows(t, m)
}

func TestQuit(t *testing.T) {
	m := appeared(t, openStore(t), testConfig())
	_, cmd := m.Update(runes("q"))
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}

func TestHelpMentionsBindings(t *testing.T) {
	help := renderHelp(testConfig().Keys)
	for _, want := range []string{"add", "delete", "edit", "reload", "quit"} {
		assert.Contains(t, help, want)
	}
}
