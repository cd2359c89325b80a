// Package vocab defines the vocabulary record and record store contracts the
// enrichment engine works against, together with the semantic field roles.
package vocab

import (
	"context"
	"fmt"
	"strings"
)

// Record is a host vocabulary record: a note of some note type exposing a
// mapping from field name to text value.
type Record interface {
	// ID is the store identifier. Zero until the record has been added.
	ID() int64
	// NoteType names the record's model.
	NoteType() string
	// Keys lists the record's field names in model order.
	Keys() []string
	Get(name string) (string, bool)
	Set(name, value string) error
	// Persist writes field changes of an already added record.
	Persist(ctx context.Context) error
}

// Store is the host record store.
type Store interface {
	// FindRecords returns the ids of records having any of fieldNames set to value.
	FindRecords(ctx context.Context, fieldNames []string, value string) ([]int64, error)
	Record(ctx context.Context, id int64) (Record, error)
	// NewRecord returns an unsaved record of the given model.
	NewRecord(ctx context.Context, model string) (Record, error)
	// AddRecord saves a new record and returns the number of cards generated for it.
	AddRecord(ctx context.Context, rec Record) (int, error)
	AddTag(ctx context.Context, ids []int64, tag string) error
}

// Role is the semantic purpose of a field, independent of its literal name.
type Role int

const (
	RoleMandarin Role = iota
	RoleEnglish
	RolePronunciation
	RoleMeasureWord
	RoleDecomposition
)

// Roles lists every role in declaration order.
var Roles = []Role{RoleMandarin, RoleEnglish, RolePronunciation, RoleMeasureWord, RoleDecomposition}

func (r Role) String() string {
	switch r {
	case RoleMandarin:
		return "mandarin"
	case RoleEnglish:
		return "english"
	case RolePronunciation:
		return "pronunciation"
	case RoleMeasureWord:
		return "measure_word"
	case RoleDecomposition:
		return "decomposition"
	}
	return fmt.Sprintf("role(%d)", int(r))
}

// ParseRole maps a role name as produced by String back to its Role.
func ParseRole(name string) (Role, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	for _, r := range Roles {
		if r.String() == n {
			return r, nil
		}
	}
	return 0, fmt.Errorf("unknown role %q", name)
}

// RoleSet maps each role to the field names that may play it.
type RoleSet map[Role][]string

// DefaultRoles returns the built-in field name sets.
func DefaultRoles() RoleSet {
	return RoleSet{
		RoleMandarin:      {"Mandarin", "Hanzi", "Chinese", "Front"},
		RoleEnglish:       {"English", "Meaning", "Definition", "Back"},
		RolePronunciation: {"Pinyin", "Pronunciation", "Reading"},
		RoleMeasureWord:   {"Measure Word", "Classifier", "MW"},
		RoleDecomposition: {"Decomposition", "Components"},
	}
}

// Names returns the candidate field names for role.
func (s RoleSet) Names(role Role) []string {
	return s[role]
}
