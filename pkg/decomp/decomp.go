package decomp

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/japaniel/mmagic/pkg/dictionary"
)

var (
	ErrNoData       = errors.New("no decomposition data")
	ErrNotCharacter = errors.New("not a single character")
	ErrNoCharacters = errors.New("no Chinese characters")
	ErrNoSegmenter  = errors.New("no segmenter configured")
)

// Error is a decomposition source failure.
type Error struct {
	Op   string
	Text string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s %q: %v", e.Op, e.Text, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Segmenter splits text into words.
type Segmenter interface {
	Segment(text string, script dictionary.Script) ([]string, error)
}

// Source decomposes characters with a Table and segments text with a Segmenter.
type Source struct {
	table *Table
	seg   Segmenter
}

// NewSource creates a decomposition source. Either argument may be nil; the
// operations that need it then fail.
func NewSource(table *Table, seg Segmenter) *Source {
	return &Source{table: table, seg: seg}
}

// DecomposeCharacter returns the components of a single character.
func (s *Source) DecomposeCharacter(ch string) ([]string, error) {
	ch = strings.TrimSpace(ch)
	if utf8.RuneCountInString(ch) != 1 {
		return nil, &Error{Op: "decompose character", Text: ch, Err: ErrNotCharacter}
	}
	comps, ok := s.table.components(ch)
	if !ok {
		return nil, &Error{Op: "decompose character", Text: ch, Err: ErrNoData}
	}
	return unique(comps, ch), nil
}

// DecomposeWord returns the distinct Chinese characters of word in order.
func (s *Source) DecomposeWord(word string) ([]string, error) {
	word = strings.TrimSpace(word)
	var chars []string
	for _, r := range word {
		if unicode.Is(unicode.Han, r) {
			chars = append(chars, string(r))
		}
	}
	if len(chars) == 0 {
		return nil, &Error{Op: "decompose word", Text: word, Err: ErrNoCharacters}
	}
	return unique(chars, word), nil
}

// Segment splits text into words.
func (s *Source) Segment(text string, script dictionary.Script) ([]string, error) {
	if s.seg == nil {
		return nil, &Error{Op: "segment", Text: text, Err: ErrNoSegmenter}
	}
	words, err := s.seg.Segment(text, script)
	if err != nil {
		return nil, &Error{Op: "segment", Text: text, Err: err}
	}
	return words, nil
}

// unique drops duplicates and self, keeping first occurrences.
func unique(items []string, self string) []string {
	seen := map[string]bool{self: true}
	out := make([]string, 0, len(items))
	for _, it := range items {
		if seen[it] {
			continue
		}
		seen[it] = true
		out = append(out, it)
	}
	return out
}

// ExtractCJKRuns replaces each maximal run of Chinese characters in text with
// a %s verb and returns the resulting fmt template with the runs in order.
// Literal percent signs are escaped, so fmt.Sprintf(template, runs...)
// reproduces text.
func ExtractCJKRuns(text string) (string, []string) {
	var tmpl, run strings.Builder
	var runs []string
	flush := func() {
		if run.Len() > 0 {
			runs = append(runs, run.String())
			tmpl.WriteString("%s")
			run.Reset()
		}
	}
	for _, r := range text {
		if unicode.Is(unicode.Han, r) {
			run.WriteRune(r)
			continue
		}
		flush()
		if r == '%' {
			tmpl.WriteString("%%")
			continue
		}
		tmpl.WriteRune(r)
	}
	flush()
	return tmpl.String(), runs
}
