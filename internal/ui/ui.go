package ui

import (
	"fmt"
	"log"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"tasklist/internal/config"
	"tasklist/internal/storage"
	"tasklist/internal/tasklist"
)

type mode int

const (
	modeList mode = iota
	modeAdd
	modeEdit
	modeConfirmDelete
)

const (
	defaultWidth  = 60
	defaultHeight = 20
	// rows reserved below the list for prompts, status and help
	chromeHeight = 8
)

// appearMsg tells the model its screen became visible.
type appearMsg struct{}

type keyMap struct {
	Quit    key.Binding
	Add     key.Binding
	Up      key.Binding
	Down    key.Binding
	Delete  key.Binding
	Edit    key.Binding
	Reload  key.Binding
	Confirm key.Binding
	Cancel  key.Binding
}

func newKeyMap(k config.Keymap) keyMap {
	bind := func(keys, help string) key.Binding {
		return key.NewBinding(key.WithKeys(keys), key.WithHelp(keys, help))
	}
	return keyMap{
		Quit:    key.NewBinding(key.WithKeys(k.Quit, "ctrl+c"), key.WithHelp(k.Quit, "quit")),
		Add:     bind(k.Add, "add"),
		Up:      key.NewBinding(key.WithKeys(k.Up, "up"), key.WithHelp(k.Up, "up")),
		Down:    key.NewBinding(key.WithKeys(k.Down, "down"), key.WithHelp(k.Down, "down")),
		Delete:  bind(k.Delete, "delete"),
		Edit:    bind(k.Edit, "edit"),
		Reload:  bind(k.Reload, "reload"),
		Confirm: bind(k.Confirm, "save"),
		Cancel:  bind(k.Cancel, "cancel"),
	}
}

type Model struct {
	ctrl   *tasklist.Controller
	rows   *table
	cfg    config.Config
	keys   keyMap
	mode   mode
	input  textinput.Model
	prompt tasklist.Prompt
	// target is the task being edited or waiting for delete confirmation.
	target *storage.Task
	status string
	err    error
}

func New(store tasklist.Store, cfg config.Config) Model {
	rows := newTable(defaultWidth, defaultHeight)

	ti := textinput.New()
	ti.CharLimit = 256
	ti.Width = 40

	return Model{
		ctrl:   tasklist.New(store, rows),
		rows:   rows,
		cfg:    cfg,
		keys:   newKeyMap(cfg.Keys),
		mode:   modeList,
		input:  ti,
		status: fmt.Sprintf("Press '%s' to add, '%s' to delete, '%s' to edit.", cfg.Keys.Add, cfg.Keys.Delete, cfg.Keys.Edit),
	}
}

// Run shows the task list until the user quits. A fatal storage error ends
// the program and is returned.
func Run(store tasklist.Store, cfg config.Config) error {
	program := tea.NewProgram(New(store, cfg), tea.WithAltScreen())
	final, err := program.Run()
	if err != nil {
		return err
	}
	if m, ok := final.(Model); ok && m.err != nil {
		return m.err
	}
	return nil
}

func (m Model) Init() tea.Cmd {
	return func() tea.Msg { return appearMsg{} }
}

// Err returns the fatal error that stopped the model, if any.
func (m Model) Err() error { return m.err }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case appearMsg:
		m.ctrl.Appear()
		return m, m.rows.flush()
	case tea.WindowSizeMsg:
		m.rows.list.SetSize(msg.Width, max(msg.Height-chromeHeight, 3))
		m.input.Width = max(msg.Width-10, 10)
		return m, nil
	case tea.KeyMsg:
		switch m.mode {
		case modeAdd, modeEdit:
			return m.updatePromptMode(msg)
		case modeConfirmDelete:
			return m.updateDeleteConfirm(msg.String())
		default:
			return m.updateListMode(msg)
		}
	}
	return m, nil
}

func (m Model) updateListMode(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Up):
		m.rows.list.CursorUp()
	case key.Matches(msg, m.keys.Down):
		m.rows.list.CursorDown()
	case key.Matches(msg, m.keys.Add):
		return m.startPrompt(modeAdd, m.ctrl.NewTaskPrompt(), nil)
	case key.Matches(msg, m.keys.Edit):
		i := m.rows.Index()
		prompt, err := m.ctrl.EditTaskPrompt(i)
		if err != nil {
			m.status = "No tasks to edit"
			return m, nil
		}
		t, _ := m.ctrl.Task(i)
		return m.startPrompt(modeEdit, prompt, t)
	case key.Matches(msg, m.keys.Delete):
		t, err := m.ctrl.Task(m.rows.Index())
		if err != nil {
			m.status = "No tasks to delete"
			return m, nil
		}
		if !m.cfg.ConfirmDelete {
			return m.deleteTask(t)
		}
		m.mode = modeConfirmDelete
		m.target = t
		m.status = fmt.Sprintf("Delete %q? y/n", t.Title)
	case key.Matches(msg, m.keys.Reload):
		m.ctrl.Appear()
		m.status = "Reloaded"
		return m, m.rows.flush()
	default:
		var cmd tea.Cmd
		m.rows.list, cmd = m.rows.list.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m Model) startPrompt(md mode, p tasklist.Prompt, target *storage.Task) (tea.Model, tea.Cmd) {
	m.mode = md
	m.prompt = p
	m.target = target
	m.input.Placeholder = p.Placeholder
	m.input.SetValue(p.Initial)
	m.input.CursorEnd()
	return m, m.input.Focus()
}

func (m Model) closePrompt() Model {
	m.mode = modeList
	m.prompt = tasklist.Prompt{}
	m.target = nil
	m.input.SetValue("")
	m.input.Blur()
	return m
}

func (m Model) updatePromptMode(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Cancel):
		m = m.closePrompt()
		m.status = "Cancelled"
		return m, nil
	case key.Matches(msg, m.keys.Confirm):
		text := m.input.Value()
		md, target := m.mode, m.target
		m = m.closePrompt()
		if md == modeAdd {
			return m.saveTask(text)
		}
		return m.editTask(target, text)
	default:
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}
}

func (m Model) updateDeleteConfirm(k string) (tea.Model, tea.Cmd) {
	switch k {
	case "y", "Y":
		t := m.target
		m.mode = modeList
		m.target = nil
		return m.deleteTask(t)
	case "n", "N", m.cfg.Keys.Cancel:
		m.mode = modeList
		m.target = nil
		m.status = "Delete cancelled"
		return m, nil
	default:
		return m, nil
	}
}

func (m Model) saveTask(text string) (tea.Model, tea.Cmd) {
	before := m.ctrl.Len()
	if err := m.ctrl.SaveTask(text); err != nil {
		return m.fail("save", err)
	}
	if m.ctrl.Len() > before {
		m.status = "Added task"
	}
	return m, m.rows.flush()
}

// editTask applies text to t at whatever row t occupies now.
func (m Model) editTask(t *storage.Task, text string) (tea.Model, tea.Cmd) {
	i := m.ctrl.IndexOf(t)
	if i < 0 {
		m.status = "Task no longer exists"
		return m, nil
	}
	if err := m.ctrl.EditTask(i, text); err != nil {
		return m.fail("edit", err)
	}
	if strings.TrimSpace(text) != "" {
		m.status = "Saved task"
	}
	return m, m.rows.flush()
}

func (m Model) deleteTask(t *storage.Task) (tea.Model, tea.Cmd) {
	i := m.ctrl.IndexOf(t)
	if i < 0 {
		m.status = "Task no longer exists"
		return m, nil
	}
	if err := m.ctrl.DeleteTask(i); err != nil {
		return m.fail("delete", err)
	}
	m.status = "Deleted task"
	return m, m.rows.flush()
}

func (m Model) fail(op string, err error) (tea.Model, tea.Cmd) {
	log.Printf("%s task: %v", op, err)
	if storage.IsFatal(err) {
		m.err = err
		return m, tea.Quit
	}
	m.status = fmt.Sprintf("%s failed: %v", op, err)
	return m, nil
}

func (m Model) View() string {
	var b strings.Builder

	if m.ctrl.Len() == 0 {
		b.WriteString(titleStyle.Render("Task List"))
		b.WriteString("\n\n")
		b.WriteString(mutedStyle.Render(fmt.Sprintf("No tasks yet. Press '%s' to add one.", m.cfg.Keys.Add)))
		b.WriteString("\n")
	} else {
		b.WriteString(m.rows.list.View())
		b.WriteString("\n")
	}

	if m.mode == modeAdd || m.mode == modeEdit {
		b.WriteString("\n")
		b.WriteString(m.renderPrompt())
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(statusStyle.Render(m.status))
	b.WriteString("\n")
	b.WriteString(renderHelp(m.cfg.Keys))

	return b.String()
}

func (m Model) renderPrompt() string {
	var b strings.Builder
	b.WriteString(promptTitleStyle.Render(m.prompt.Title))
	b.WriteString("\n")
	b.WriteString(m.prompt.Message)
	b.WriteString("\n\n")
	b.WriteString(m.input.View())
	b.WriteString("\n\n")
	b.WriteString(mutedStyle.Render(fmt.Sprintf("%s save • %s cancel", m.cfg.Keys.Confirm, m.cfg.Keys.Cancel)))
	return promptStyle.Render(b.String())
}

// renderHelp marks delete as destructive and edit as a normal action.
func renderHelp(k config.Keymap) string {
	return fmt.Sprintf("%s/%s move • %s add • %s • %s • %s reload • %s quit",
		k.Up, k.Down, k.Add,
		destructiveStyle.Render(k.Delete+" delete"),
		normalStyle.Render(k.Edit+" edit"),
		k.Reload, k.Quit)
}
