// Package vocabtest provides an in-memory vocab.Store for tests.
package vocabtest

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/japaniel/mmagic/pkg/markup"
	"github.com/japaniel/mmagic/pkg/vocab"
)

// Model is a note type. A record of the model gets one card per non-empty
// Required field.
type Model struct {
	Name     string
	Fields   []string
	Required []string
}

// ChineseModel has one field per default role and a card template on the
// Mandarin field.
var ChineseModel = Model{
	Name:     "Chinese",
	Fields:   []string{"Mandarin", "English", "Pinyin", "Measure Word", "Decomposition"},
	Required: []string{"Mandarin"},
}

// Store is a vocab.Store kept in memory.
type Store struct {
	mu      sync.Mutex
	models  map[string]Model
	records map[int64]*Record
	tags    map[int64][]string
	nextID  int64

	// Persists counts Persist calls, by record id.
	Persists map[int64]int
}

// NewStore creates a store knowing the given models.
func NewStore(models ...Model) *Store {
	s := &Store{
		models:   make(map[string]Model),
		records:  make(map[int64]*Record),
		tags:     make(map[int64][]string),
		Persists: make(map[int64]int),
	}
	for _, m := range models {
		s.models[m.Name] = m
	}
	return s
}

// Record is an in-memory vocab.Record.
type Record struct {
	store  *Store
	id     int64
	model  Model
	values map[string]string
}

func (r *Record) ID() int64        { return r.id }
func (r *Record) NoteType() string { return r.model.Name }
func (r *Record) Keys() []string   { return append([]string(nil), r.model.Fields...) }

func (r *Record) Get(name string) (string, bool) {
	v, ok := r.values[name]
	return v, ok
}

func (r *Record) Set(name, value string) error {
	if _, ok := r.values[name]; !ok {
		return fmt.Errorf("note type %q has no field %q", r.model.Name, name)
	}
	r.values[name] = value
	return nil
}

func (r *Record) Persist(ctx context.Context) error {
	if r.id == 0 {
		return fmt.Errorf("record has not been added")
	}
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	r.store.Persists[r.id]++
	stored := r.store.records[r.id]
	for k, v := range r.values {
		stored.values[k] = v
	}
	return nil
}

// Add creates and stores a record with the given field values.
func (s *Store) Add(model string, values map[string]string) *Record {
	rec, err := s.NewRecord(context.Background(), model)
	if err != nil {
		panic(err)
	}
	r := rec.(*Record)
	for k, v := range values {
		if err := r.Set(k, v); err != nil {
			panic(err)
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	r.id = s.nextID
	s.records[r.id] = r.clone()
	return r
}

func (r *Record) clone() *Record {
	c := &Record{store: r.store, id: r.id, model: r.model, values: make(map[string]string, len(r.values))}
	for k, v := range r.values {
		c.values[k] = v
	}
	return c
}

func (s *Store) FindRecords(ctx context.Context, fieldNames []string, value string) ([]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var ids []int64
	for id, r := range s.records {
		for _, f := range fieldNames {
			if v, ok := r.values[f]; ok && markup.Text(v) == value {
				ids = append(ids, id)
				break
			}
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func (s *Store) Record(ctx context.Context, id int64) (vocab.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.records[id]
	if !ok {
		return nil, fmt.Errorf("no record %d", id)
	}
	return r.clone(), nil
}

func (s *Store) NewRecord(ctx context.Context, model string) (vocab.Record, error) {
	s.mu.Lock()
	m, ok := s.models[model]
	s.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("unknown model %q", model)
	}
	r := &Record{store: s, model: m, values: make(map[string]string, len(m.Fields))}
	for _, f := range m.Fields {
		r.values[f] = ""
	}
	return r, nil
}

func (s *Store) AddRecord(ctx context.Context, rec vocab.Record) (int, error) {
	r, ok := rec.(*Record)
	if !ok || r.store != s {
		return 0, fmt.Errorf("record does not belong to this store")
	}
	if r.id != 0 {
		return 0, fmt.Errorf("record %d already added", r.id)
	}
	cards := 0
	for _, f := range r.model.Required {
		if !markup.IsBlank(r.values[f]) {
			cards++
		}
	}
	if cards == 0 {
		return 0, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	r.id = s.nextID
	s.records[r.id] = r.clone()
	return cards, nil
}

func (s *Store) AddTag(ctx context.Context, ids []int64, tag string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ids {
		if _, ok := s.records[id]; !ok {
			return fmt.Errorf("no record %d", id)
		}
		s.tags[id] = append(s.tags[id], tag)
	}
	return nil
}

// Tags returns the tags added to id.
func (s *Store) Tags(id int64) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.tags[id]...)
}

// Len is the number of stored records.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

// Value returns the stored value of field for id.
func (s *Store) Value(id int64, field string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r, ok := s.records[id]; ok {
		return r.values[field]
	}
	return ""
}
