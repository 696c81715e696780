package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"log"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

const entityName = "tasks"

var (
	ErrEmptyTitle     = errors.New("task title is empty")
	ErrEntityNotFound = errors.New("task entity is not defined in the store")
	ErrTaskNotFound   = errors.New("task not found")
)

// FatalError marks a failure the store cannot recover from: the database could
// not be opened or pending changes could not be committed.
type FatalError struct {
	Op  string
	Err error
}

func (e *FatalError) Error() string {
	return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
}

func (e *FatalError) Unwrap() error { return e.Err }

// IsFatal reports whether err carries a *FatalError.
func IsFatal(err error) bool {
	var fe *FatalError
	return errors.As(err, &fe)
}

// Task is a single to-do record. Its identity is owned by the store.
type Task struct {
	id    string
	Title string

	// stored is the title last synchronized with the database.
	stored string
}

// ID returns the opaque record handle.
func (t *Task) ID() string { return t.id }

type Store struct {
	db     *sql.DB
	logger *log.Logger
}

type Option func(*Store)

// WithLogger sets the logger used when reads fail.
func WithLogger(l *log.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

func Open(dbPath string, opts ...Option) (*Store, error) {
	if dbPath == "" {
		return nil, &FatalError{Op: "open", Err: errors.New("db path is empty")}
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil && !errors.Is(err, os.ErrExist) {
		return nil, &FatalError{Op: "open", Err: err}
	}
	db, err := sql.Open("sqlite", sqliteDSN(dbPath))
	if err != nil {
		return nil, &FatalError{Op: "open", Err: err}
	}
	db.SetMaxOpenConns(1)

	s := &Store{db: db, logger: log.Default()}
	for _, opt := range opts {
		opt(s)
	}
	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, &FatalError{Op: "open", Err: err}
	}
	return s, nil
}

func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) ensureSchema() error {
	const ddl = `
CREATE TABLE IF NOT EXISTS tasks (
	seq INTEGER PRIMARY KEY AUTOINCREMENT,
	id TEXT NOT NULL UNIQUE,
	title TEXT DEFAULT NULL
);`
	_, err := s.db.Exec(ddl)
	return err
}

// FetchAll returns every stored task in insertion order. A failed read is
// logged and yields an empty list.
func (s *Store) FetchAll() []*Task {
	tasks, err := s.fetchAll()
	if err != nil {
		s.logger.Printf("fetch tasks: %v", err)
		return []*Task{}
	}
	return tasks
}

func (s *Store) fetchAll() ([]*Task, error) {
	rows, err := s.db.Query(`SELECT id, title FROM tasks ORDER BY seq;`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tasks := []*Task{}
	for rows.Next() {
		var id string
		var title sql.NullString
		if err := rows.Scan(&id, &title); err != nil {
			return nil, err
		}
		tasks = append(tasks, &Task{id: id, Title: title.String, stored: title.String})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return tasks, nil
}

// Create stores a new task. It returns ErrEntityNotFound without a task when
// the tasks table is missing from the schema.
func (s *Store) Create(title string) (*Task, error) {
	if strings.TrimSpace(title) == "" {
		return nil, ErrEmptyTitle
	}
	ok, err := s.entityDefined()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrEntityNotFound
	}

	t := &Task{id: newID(), Title: title}
	err = s.commit("create", func(tx *sql.Tx) error {
		_, err := tx.Exec(`INSERT INTO tasks (id, title) VALUES (?, ?);`, t.id, t.Title)
		return err
	})
	if err != nil {
		return nil, err
	}
	t.stored = t.Title
	return t, nil
}

// Update merges t with its stored row and commits. A title changed in memory
// since the last sync wins over the stored one; otherwise t is refreshed.
func (s *Store) Update(t *Task) error {
	var notFound bool
	err := s.commit("update", func(tx *sql.Tx) error {
		var current sql.NullString
		err := tx.QueryRow(`SELECT title FROM tasks WHERE id = ?;`, t.id).Scan(&current)
		if errors.Is(err, sql.ErrNoRows) {
			notFound = true
			return nil
		}
		if err != nil {
			return err
		}
		if t.Title == t.stored {
			t.Title = current.String
		}
		_, err = tx.Exec(`UPDATE tasks SET title = ? WHERE id = ?;`, t.Title, t.id)
		return err
	})
	if err != nil {
		return err
	}
	if notFound {
		return ErrTaskNotFound
	}
	t.stored = t.Title
	return nil
}

func (s *Store) Delete(t *Task) error {
	return s.commit("delete", func(tx *sql.Tx) error {
		_, err := tx.Exec(`DELETE FROM tasks WHERE id = ?;`, t.id)
		return err
	})
}

// commit runs fn in a transaction. Any failure is fatal.
func (s *Store) commit(op string, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.Begin()
	if err != nil {
		return &FatalError{Op: op, Err: err}
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return &FatalError{Op: op, Err: err}
	}
	if err := tx.Commit(); err != nil {
		return &FatalError{Op: op, Err: err}
	}
	return nil
}

func (s *Store) entityDefined() (bool, error) {
	var n int
	err := s.db.QueryRow(`SELECT count(*) FROM sqlite_master WHERE type = 'table' AND name = ?;`, entityName).Scan(&n)
	if err != nil {
		return false, &FatalError{Op: "create", Err: err}
	}
	return n > 0, nil
}

func newID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.New().String()
	}
	return id.String()
}

func sqliteDSN(path string) string {
	if strings.HasPrefix(path, "file:") {
		return path
	}
	abs, err := filepath.Abs(path)
	if err == nil {
		path = abs
	}
	u := url.URL{
		Scheme: "file",
		Path:   path,
	}
	q := u.Query()
	q.Set("mode", "rwc")
	q.Set("_pragma", "busy_timeout(5000)")
	u.RawQuery = q.Encode()
	return u.String()
}
