// Package tasklist keeps an ordered, in-memory list of tasks in step with the
// store and with the rows a host displays.
//
// The controller is single-threaded: every method runs to completion on the
// caller's goroutine, and the list and the view are only changed after the
// store accepted the change.
package tasklist

import (
	"errors"
	"fmt"
	"strings"

	"tasklist/internal/storage"
)

var (
	ErrNotLoaded       = errors.New("task list is not loaded")
	ErrIndexOutOfRange = errors.New("task index out of range")
)

type Store interface {
	FetchAll() []*storage.Task
	Create(title string) (*storage.Task, error)
	Update(t *storage.Task) error
	Delete(t *storage.Task) error
}

// View is the set of visible rows. Each call touches exactly one row, except
// Reload which replaces them all.
type View interface {
	Reload(tasks []*storage.Task)
	InsertRow(i int, t *storage.Task)
	DeleteRow(i int)
	ReloadRow(i int, t *storage.Task)
}

// Prompt describes a modal text entry.
type Prompt struct {
	Title       string
	Message     string
	Placeholder string
	Initial     string
}

// Prompter presents a prompt and returns the entered text, or false when the
// prompt was cancelled.
type Prompter interface {
	Present(p Prompt) (string, bool)
}

type state int

const (
	stateEmpty state = iota
	stateLoaded
)

type Controller struct {
	store Store
	view  View
	tasks []*storage.Task
	state state
}

func New(store Store, view View) *Controller {
	return &Controller{store: store, view: view}
}

// Appear reloads the list from the store, discarding what was held before.
func (c *Controller) Appear() {
	c.tasks = c.store.FetchAll()
	c.state = stateLoaded
	c.view.Reload(c.Tasks())
}

func (c *Controller) Loaded() bool { return c.state == stateLoaded }

func (c *Controller) Len() int { return len(c.tasks) }

func (c *Controller) Task(i int) (*storage.Task, error) {
	if i < 0 || i >= len(c.tasks) {
		return nil, fmt.Errorf("%w: %d of %d", ErrIndexOutOfRange, i, len(c.tasks))
	}
	return c.tasks[i], nil
}

// Tasks returns a copy of the list.
func (c *Controller) Tasks() []*storage.Task {
	out := make([]*storage.Task, len(c.tasks))
	copy(out, c.tasks)
	return out
}

// IndexOf returns the current row of t, or -1.
func (c *Controller) IndexOf(t *storage.Task) int {
	for i, task := range c.tasks {
		if task == t {
			return i
		}
	}
	return -1
}

func (c *Controller) NewTaskPrompt() Prompt {
	return Prompt{
		Title:       "New Task",
		Message:     "What do you want to do?",
		Placeholder: "New Task",
	}
}

func (c *Controller) EditTaskPrompt(i int) (Prompt, error) {
	t, err := c.Task(i)
	if err != nil {
		return Prompt{}, err
	}
	return Prompt{
		Title:       "Edit!",
		Message:     fmt.Sprintf("Your old task is - %q. What do you want to do now?", t.Title),
		Placeholder: "Edit Task",
		Initial:     t.Title,
	}, nil
}

// SaveTask creates a task and appends its row. Blank text is ignored.
func (c *Controller) SaveTask(text string) error {
	if !c.Loaded() {
		return ErrNotLoaded
	}
	title := strings.TrimSpace(text)
	if title == "" {
		return nil
	}
	t, err := c.store.Create(title)
	if err != nil {
		return err
	}
	if t == nil {
		return nil
	}
	c.tasks = append(c.tasks, t)
	c.view.InsertRow(len(c.tasks)-1, t)
	return nil
}

// DeleteTask removes the task currently at row i.
func (c *Controller) DeleteTask(i int) error {
	if !c.Loaded() {
		return ErrNotLoaded
	}
	t, err := c.Task(i)
	if err != nil {
		return err
	}
	if err := c.store.Delete(t); err != nil {
		return err
	}
	c.tasks = append(c.tasks[:i], c.tasks[i+1:]...)
	c.view.DeleteRow(i)
	return nil
}

// EditTask retitles the task at row i in place. Blank text is ignored.
func (c *Controller) EditTask(i int, text string) error {
	if !c.Loaded() {
		return ErrNotLoaded
	}
	t, err := c.Task(i)
	if err != nil {
		return err
	}
	title := strings.TrimSpace(text)
	if title == "" {
		return nil
	}
	previous := t.Title
	t.Title = title
	if err := c.store.Update(t); err != nil {
		t.Title = previous
		return err
	}
	c.view.ReloadRow(i, t)
	return nil
}

// Add prompts for a title and saves it.
func (c *Controller) Add(p Prompter) error {
	if !c.Loaded() {
		return ErrNotLoaded
	}
	text, ok := p.Present(c.NewTaskPrompt())
	if !ok {
		return nil
	}
	return c.SaveTask(text)
}

// Edit prompts for a replacement title for the task at row i. The row is
// looked up again once the prompt returns.
func (c *Controller) Edit(i int, p Prompter) error {
	if !c.Loaded() {
		return ErrNotLoaded
	}
	prompt, err := c.EditTaskPrompt(i)
	if err != nil {
		return err
	}
	t := c.tasks[i]
	text, ok := p.Present(prompt)
	if !ok {
		return nil
	}
	idx := c.IndexOf(t)
	if idx < 0 {
		return nil
	}
	return c.EditTask(idx, text)
}
