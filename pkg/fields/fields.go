// Package fields resolves which field of a record plays a semantic role.
package fields

import (
	"github.com/japaniel/mmagic/pkg/errs"
	"github.com/japaniel/mmagic/pkg/markup"
	"github.com/japaniel/mmagic/pkg/vocab"
)

// Resolver maps roles to field names using a fixed RoleSet.
type Resolver struct {
	roles vocab.RoleSet
}

// NewResolver creates a Resolver. A nil roles uses vocab.DefaultRoles.
func NewResolver(roles vocab.RoleSet) *Resolver {
	if roles == nil {
		roles = vocab.DefaultRoles()
	}
	return &Resolver{roles: roles}
}

// Roles returns the role set in use.
func (r *Resolver) Roles() vocab.RoleSet { return r.roles }

// ResolveNames returns the single field of rec whose name is in names.
// Matches are reported in the record's field order.
func ResolveNames(rec vocab.Record, names []string) (string, error) {
	want := make(map[string]bool, len(names))
	for _, n := range names {
		want[n] = true
	}
	var matched []string
	for _, k := range rec.Keys() {
		if want[k] {
			matched = append(matched, k)
		}
	}
	switch len(matched) {
	case 0:
		return "", errs.FieldMissing(rec.NoteType(), names)
	case 1:
		return matched[0], nil
	default:
		return "", errs.FieldAmbiguous(rec.NoteType(), matched)
	}
}

// Resolve returns the field of rec playing role.
func (r *Resolver) Resolve(rec vocab.Record, role vocab.Role) (string, error) {
	return ResolveNames(rec, r.roles.Names(role))
}

// Has reports whether rec has exactly one field for role.
func (r *Resolver) Has(rec vocab.Record, role vocab.Role) bool {
	_, err := r.Resolve(rec, role)
	return err == nil
}

// HasEmpty reports whether the role's field is present and blank once
// markup is stripped.
func (r *Resolver) HasEmpty(rec vocab.Record, role vocab.Role) (bool, error) {
	v, err := r.Get(rec, role)
	if err != nil {
		return false, err
	}
	return markup.IsBlank(v), nil
}

// Get returns the raw value of the role's field.
func (r *Resolver) Get(rec vocab.Record, role vocab.Role) (string, error) {
	name, err := r.Resolve(rec, role)
	if err != nil {
		return "", err
	}
	v, _ := rec.Get(name)
	return v, nil
}

// GetNonEmpty returns the role's field as plain text, failing with
// FieldEmpty when nothing is left after stripping markup.
func (r *Resolver) GetNonEmpty(rec vocab.Record, role vocab.Role) (string, error) {
	name, err := r.Resolve(rec, role)
	if err != nil {
		return "", err
	}
	v, _ := rec.Get(name)
	text := markup.Text(v)
	if text == "" {
		return "", errs.FieldEmpty(name)
	}
	return text, nil
}

// Set writes value into the role's field.
func (r *Resolver) Set(rec vocab.Record, role vocab.Role, value string) error {
	name, err := r.Resolve(rec, role)
	if err != nil {
		return err
	}
	return rec.Set(name, value)
}
