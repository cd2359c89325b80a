package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/japaniel/mmagic/pkg/markup"
	"github.com/japaniel/mmagic/pkg/vocab"
)

// DBExecutor is an interface that allows methods to accept either *sql.DB or *sql.Tx
type DBExecutor interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// ErrNotFound is returned for unknown notes and models.
var ErrNotFound = errors.New("not found")

// isUniqueConstraintErr returns true when the error indicates a unique/constraint violation
func isUniqueConstraintErr(err error) bool {
	if err == nil {
		return false
	}
	s := strings.ToLower(err.Error())
	return strings.Contains(s, "unique") || strings.Contains(s, "constraint failed")
}

// Store is a SQLite backed vocab.Store.
type Store struct {
	db     *sql.DB
	Logger *slog.Logger
}

var _ vocab.Store = (*Store)(nil)

// NewStore wraps an already migrated connection.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// DB returns the underlying connection.
func (s *Store) DB() *sql.DB { return s.db }

// Close closes the underlying connection.
func (s *Store) Close() error { return s.db.Close() }

func (s *Store) logger() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// CreateOrGetModel returns the id of the named model, inserting it with the
// given fields and templates if missing. An existing model is left as is.
func CreateOrGetModel(ctx context.Context, db DBExecutor, name string, fields []string, templates []Template) (int64, error) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return 0, fmt.Errorf("model name must be non-empty")
	}
	if len(fields) == 0 {
		return 0, fmt.Errorf("model %q needs at least one field", trimmed)
	}

	const maxRetries = 3

	var id int64
	for attempt := 0; attempt < maxRetries; attempt++ {
		err := db.QueryRowContext(ctx, `SELECT id FROM models WHERE name = ?`, trimmed).Scan(&id)
		if err == nil {
			return id, nil
		}
		if err != sql.ErrNoRows {
			return 0, err
		}

		res, err := db.ExecContext(ctx, `INSERT INTO models (name) VALUES (?)`, trimmed)
		if err != nil {
			// Another connection created it first; select again.
			if isUniqueConstraintErr(err) {
				continue
			}
			return 0, err
		}
		id, err = res.LastInsertId()
		if err != nil {
			return 0, err
		}
		for i, f := range fields {
			if _, err := db.ExecContext(ctx, `INSERT INTO model_fields (model_id, ord, name) VALUES (?, ?, ?)`, id, i, f); err != nil {
				return 0, fmt.Errorf("add field %q: %w", f, err)
			}
		}
		for _, t := range templates {
			if _, err := db.ExecContext(ctx, `INSERT INTO templates (model_id, name, required_field) VALUES (?, ?, ?)`, id, t.Name, t.RequiredField); err != nil {
				return 0, fmt.Errorf("add template %q: %w", t.Name, err)
			}
		}
		return id, nil
	}

	return 0, fmt.Errorf("could not create or get model after %d retries", maxRetries)
}

// EnsureModel creates the named model in one transaction if it does not exist.
func (s *Store) EnsureModel(ctx context.Context, name string, fields []string, templates []Template) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()
	id, err := CreateOrGetModel(ctx, tx, name, fields, templates)
	if err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return id, nil
}

// LoadModel reads the named model with its fields and templates.
func LoadModel(ctx context.Context, db DBExecutor, name string) (*Model, error) {
	m := &Model{Name: name}
	err := db.QueryRowContext(ctx, `SELECT id FROM models WHERE name = ?`, name).Scan(&m.ID)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("model %q: %w", name, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return m, loadModelParts(ctx, db, m)
}

func loadModelParts(ctx context.Context, db DBExecutor, m *Model) error {
	rows, err := db.QueryContext(ctx, `SELECT name FROM model_fields WHERE model_id = ? ORDER BY ord`, m.ID)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var f string
		if err := rows.Scan(&f); err != nil {
			return err
		}
		m.Fields = append(m.Fields, f)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	trows, err := db.QueryContext(ctx, `SELECT id, name, required_field FROM templates WHERE model_id = ? ORDER BY id`, m.ID)
	if err != nil {
		return err
	}
	defer trows.Close()
	for trows.Next() {
		var t Template
		if err := trows.Scan(&t.ID, &t.Name, &t.RequiredField); err != nil {
			return err
		}
		m.Templates = append(m.Templates, t)
	}
	return trows.Err()
}

// FindRecords returns, in id order, the notes having any of fieldNames set to
// value once markup is stripped.
func (s *Store) FindRecords(ctx context.Context, fieldNames []string, value string) ([]int64, error) {
	if len(fieldNames) == 0 {
		return nil, nil
	}
	args := make([]interface{}, 0, len(fieldNames)+1)
	args = append(args, strings.TrimSpace(value))
	for _, f := range fieldNames {
		args = append(args, f)
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(fieldNames)), ", ")
	rows, err := s.db.QueryContext(ctx,
		`SELECT DISTINCT note_id FROM note_fields WHERE plain = ? AND name IN (`+placeholders+`) ORDER BY note_id`,
		args...)
	if err != nil {
		return nil, fmt.Errorf("find records: %w", err)
	}
	defer rows.Close()
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Record loads the note with the given id.
func (s *Store) Record(ctx context.Context, id int64) (vocab.Record, error) {
	n, err := s.Note(ctx, id)
	if err != nil {
		return nil, err
	}
	return n, nil
}

// Note loads the note with the given id.
func (s *Store) Note(ctx context.Context, id int64) (*Note, error) {
	m := &Model{}
	n := &Note{store: s, id: id, model: m}
	err := s.db.QueryRowContext(ctx,
		`SELECT m.id, m.name, n.modified_at FROM notes n JOIN models m ON m.id = n.model_id WHERE n.id = ?`, id,
	).Scan(&m.ID, &m.Name, &n.ModifiedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("note %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	if err := loadModelParts(ctx, s.db, m); err != nil {
		return nil, err
	}
	n.values = make(map[string]string, len(m.Fields))
	for _, f := range m.Fields {
		n.values[f] = ""
	}

	rows, err := s.db.QueryContext(ctx, `SELECT name, value FROM note_fields WHERE note_id = ?`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var name, value string
		if err := rows.Scan(&name, &value); err != nil {
			return nil, err
		}
		if _, ok := n.values[name]; ok {
			n.values[name] = value
		}
	}
	return n, rows.Err()
}

// NewRecord returns an unsaved note of the named model with empty fields.
func (s *Store) NewRecord(ctx context.Context, model string) (vocab.Record, error) {
	m, err := LoadModel(ctx, s.db, model)
	if err != nil {
		return nil, err
	}
	n := &Note{store: s, model: m, values: make(map[string]string, len(m.Fields))}
	for _, f := range m.Fields {
		n.values[f] = ""
	}
	return n, nil
}

// AddRecord saves a new note and generates its cards. A note that would get
// no cards is not saved and 0 is returned.
func (s *Store) AddRecord(ctx context.Context, rec vocab.Record) (int, error) {
	n, ok := rec.(*Note)
	if !ok || n.store != s {
		return 0, fmt.Errorf("record does not belong to this store")
	}
	if n.id != 0 {
		return 0, fmt.Errorf("note %d already added", n.id)
	}
	templates := n.cardTemplates()
	if len(templates) == 0 {
		s.logger().Debug("note generates no cards", "model", n.model.Name)
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `INSERT INTO notes (model_id) VALUES (?)`, n.model.ID)
	if err != nil {
		return 0, fmt.Errorf("insert note: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	for _, f := range n.model.Fields {
		v := n.values[f]
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO note_fields (note_id, name, value, plain) VALUES (?, ?, ?, ?)`,
			id, f, v, markup.Text(v)); err != nil {
			return 0, fmt.Errorf("insert field %q: %w", f, err)
		}
	}
	for _, t := range templates {
		if _, err := tx.ExecContext(ctx, `INSERT INTO cards (note_id, template_id) VALUES (?, ?)`, id, t.ID); err != nil {
			return 0, fmt.Errorf("insert card: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	n.id = id
	s.logger().Debug("added note", "id", id, "cards", len(templates))
	return len(templates), nil
}

func (s *Store) updateNote(ctx context.Context, n *Note) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	for _, f := range n.model.Fields {
		v := n.values[f]
		if _, err := tx.ExecContext(ctx, `INSERT INTO note_fields (note_id, name, value, plain) VALUES (?, ?, ?, ?)
			ON CONFLICT(note_id, name) DO UPDATE SET value = excluded.value, plain = excluded.plain`,
			n.id, f, v, markup.Text(v)); err != nil {
			return fmt.Errorf("update field %q: %w", f, err)
		}
	}
	if _, err := tx.ExecContext(ctx, `UPDATE notes SET modified_at = CURRENT_TIMESTAMP WHERE id = ?`, n.id); err != nil {
		return err
	}
	return tx.Commit()
}

// AddTag tags every note in ids. Tagging twice is a no-op.
func (s *Store) AddTag(ctx context.Context, ids []int64, tag string) error {
	tag = strings.TrimSpace(tag)
	if tag == "" {
		return fmt.Errorf("tag must be non-empty")
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	for _, id := range ids {
		if _, err := tx.ExecContext(ctx, `INSERT OR IGNORE INTO note_tags (note_id, tag) VALUES (?, ?)`, id, tag); err != nil {
			return fmt.Errorf("tag note %d: %w", id, err)
		}
	}
	return tx.Commit()
}

// Tags returns the tags of a note in alphabetical order.
func (s *Store) Tags(ctx context.Context, id int64) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT tag FROM note_tags WHERE note_id = ? ORDER BY tag`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// CardCount returns the number of cards of a note.
func (s *Store) CardCount(ctx context.Context, id int64) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM cards WHERE note_id = ?`, id).Scan(&n)
	return n, err
}
