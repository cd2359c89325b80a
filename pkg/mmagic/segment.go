package mmagic

import (
	"errors"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/japaniel/mmagic/pkg/dictionary"
)

// ErrNothingToSegment is returned for text without any word tokens.
var ErrNothingToSegment = errors.New("nothing to segment")

// Lexicon is the word list a Segmenter segments against.
type Lexicon interface {
	Headwords(script dictionary.Script) []string
	Contains(word string, script dictionary.Script) bool
}

// Segmenter splits Chinese text into words. The kagome lattice does the
// first pass with the lexicon's multi-character words as a user dictionary;
// a longest-match pass then joins adjacent tokens whose concatenation is a
// lexicon word, since the lattice is free to prefer shorter pieces.
type Segmenter struct {
	lex Lexicon

	mu        sync.Mutex
	analyzers map[dictionary.Script]*Analyzer
}

// NewSegmenter creates a segmenter. A nil lexicon segments with the
// tokenizer's own dictionary only.
func NewSegmenter(lex Lexicon) *Segmenter {
	return &Segmenter{
		lex:       lex,
		analyzers: make(map[dictionary.Script]*Analyzer),
	}
}

func (s *Segmenter) analyzer(script dictionary.Script) (*Analyzer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a, ok := s.analyzers[script]; ok {
		return a, nil
	}
	var words []string
	if s.lex != nil {
		for _, w := range s.lex.Headwords(script) {
			if utf8.RuneCountInString(w) > 1 {
				words = append(words, w)
			}
		}
	}
	a, err := NewAnalyzerWithWords(words)
	if err != nil {
		return nil, err
	}
	s.analyzers[script] = a
	return a, nil
}

// Segment returns the words of text in order, punctuation removed.
func (s *Segmenter) Segment(text string, script dictionary.Script) ([]string, error) {
	a, err := s.analyzer(script)
	if err != nil {
		return nil, err
	}
	tokens, err := a.Analyze(text)
	if err != nil {
		return nil, err
	}
	var pieces []string
	for _, t := range tokens {
		if t.PrimaryPOS == SymbolPOS || IsPunctuation(t.Surface) {
			continue
		}
		pieces = append(pieces, t.Surface)
	}
	if len(pieces) == 0 {
		return nil, ErrNothingToSegment
	}
	return s.merge(pieces, script), nil
}

func (s *Segmenter) merge(pieces []string, script dictionary.Script) []string {
	if s.lex == nil {
		return pieces
	}
	var out []string
	for i := 0; i < len(pieces); {
		j := len(pieces)
		for ; j > i+1; j-- {
			if s.lex.Contains(strings.Join(pieces[i:j], ""), script) {
				break
			}
		}
		out = append(out, strings.Join(pieces[i:j], ""))
		i = j
	}
	return out
}
