package db

import (
	"context"
	"fmt"
	"time"

	"github.com/japaniel/mmagic/pkg/markup"
)

// Template generates a card for a note whose RequiredField is not blank.
type Template struct {
	ID            int64
	Name          string
	RequiredField string
}

// Model is a note type.
type Model struct {
	ID        int64
	Name      string
	Fields    []string
	Templates []Template
}

// ChineseFields are the fields of the default note type, one per role.
var ChineseFields = []string{"Mandarin", "English", "Pinyin", "Measure Word", "Decomposition"}

// ChineseTemplates are the card templates of the default note type.
var ChineseTemplates = []Template{
	{Name: "Recognition", RequiredField: "Mandarin"},
	{Name: "Recall", RequiredField: "English"},
}

// Note is a stored or pending record of a Model. It implements vocab.Record.
type Note struct {
	store      *Store
	id         int64
	model      *Model
	values     map[string]string
	ModifiedAt time.Time
}

func (n *Note) ID() int64        { return n.id }
func (n *Note) NoteType() string { return n.model.Name }

// Keys returns the model's fields in order.
func (n *Note) Keys() []string { return append([]string(nil), n.model.Fields...) }

func (n *Note) Get(name string) (string, bool) {
	v, ok := n.values[name]
	return v, ok
}

func (n *Note) Set(name, value string) error {
	if _, ok := n.values[name]; !ok {
		return fmt.Errorf("note type %q has no field %q", n.model.Name, name)
	}
	n.values[name] = value
	return nil
}

// Persist writes the field values of an added note.
func (n *Note) Persist(ctx context.Context) error {
	if n.id == 0 {
		return fmt.Errorf("note has not been added")
	}
	return n.store.updateNote(ctx, n)
}

// cardTemplates returns the templates that generate a card for the note.
func (n *Note) cardTemplates() []Template {
	var out []Template
	for _, t := range n.model.Templates {
		if !markup.IsBlank(n.values[t.RequiredField]) {
			out = append(out, t)
		}
	}
	return out
}
