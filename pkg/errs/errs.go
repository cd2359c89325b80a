// Package errs holds the failure kinds reported by the enrichment engine and
// the Collection used to aggregate independent failures of a batch.
package errs

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies a failure.
type Kind int

const (
	KindUnknown Kind = iota
	KindFieldMissing
	KindFieldAmbiguous
	KindFieldEmpty
	KindNoDictionaryEntry
	KindTooManyRecords
	KindNoRecordForWord
	KindMissingComponentList
	KindCycleDetected
	KindDecompositionFailure
	KindRecordCreationFailed
)

var kindNames = map[Kind]string{
	KindUnknown:              "unknown",
	KindFieldMissing:         "field missing",
	KindFieldAmbiguous:       "field ambiguous",
	KindFieldEmpty:           "field empty",
	KindNoDictionaryEntry:    "no dictionary entry",
	KindTooManyRecords:       "too many records",
	KindNoRecordForWord:      "no record for word",
	KindMissingComponentList: "missing component list",
	KindCycleDetected:        "cycle detected",
	KindDecompositionFailure: "decomposition failure",
	KindRecordCreationFailed: "record creation failed",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Error is a single engine failure.
type Error struct {
	Kind Kind
	// Word is the headword or field name the failure is about, when there is one.
	Word string
	msg  string
	err  error
}

func (e *Error) Error() string { return e.msg }

func (e *Error) Unwrap() error { return e.err }

// New builds an Error with a preformatted message.
func New(kind Kind, word, msg string) *Error {
	return &Error{Kind: kind, Word: word, msg: msg}
}

func quoteAll(names []string) string {
	q := make([]string, len(names))
	for i, n := range names {
		q[i] = fmt.Sprintf("%q", n)
	}
	return strings.Join(q, ", ")
}

func FieldMissing(noteType string, candidates []string) *Error {
	return New(KindFieldMissing, noteType,
		fmt.Sprintf("Note type %q has none of the fields %s", noteType, quoteAll(candidates)))
}

func FieldAmbiguous(noteType string, matched []string) *Error {
	return New(KindFieldAmbiguous, noteType,
		fmt.Sprintf("Note type %q has the fields %s; at most one of them is allowed", noteType, quoteAll(matched)))
}

func FieldEmpty(field string) *Error {
	return New(KindFieldEmpty, field, fmt.Sprintf("Field %q is empty", field))
}

func NoDictionaryEntry(word string) *Error {
	return New(KindNoDictionaryEntry, word, fmt.Sprintf("No dictionary entry for %q", word))
}

func TooManyRecords(word string) *Error {
	return New(KindTooManyRecords, word, fmt.Sprintf("More than one note for %q", word))
}

func NoRecordForWord(word string) *Error {
	return New(KindNoRecordForWord, word, fmt.Sprintf("No note for %q", word))
}

func MissingComponentList(word string) *Error {
	return New(KindMissingComponentList, word, fmt.Sprintf("The note for %q has no component list", word))
}

func CycleDetected(word string) *Error {
	return New(KindCycleDetected, word, fmt.Sprintf("Circular dependency involving %q", word))
}

// DecompositionFailure wraps the decomposition source's error for word.
func DecompositionFailure(word string, cause error) *Error {
	msg := fmt.Sprintf("Cannot decompose %q", word)
	if cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, cause)
	}
	return &Error{Kind: KindDecompositionFailure, Word: word, msg: msg, err: cause}
}

// RecordCreationFailed reports a created record that produced no cards.
func RecordCreationFailed(word string) *Error {
	return New(KindRecordCreationFailed, word, fmt.Sprintf("Adding a note for %q produced no cards", word))
}

// KindOf returns the Kind of err, or KindUnknown when err is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// HasKind reports whether err, or any failure nested in it, has kind k.
func HasKind(err error, k Kind) bool {
	if err == nil {
		return false
	}
	var c *Collection
	if errors.As(err, &c) {
		for _, e := range c.Errors() {
			if KindOf(e) == k {
				return true
			}
		}
		return false
	}
	return KindOf(err) == k
}
