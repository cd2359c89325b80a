package decomp

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/japaniel/mmagic/pkg/dictionary"
	"github.com/japaniel/mmagic/pkg/markup"
)

// Kind is what a headword turned out to be.
type Kind int

const (
	Character Kind = iota
	Word
	Sentence
)

func (k Kind) String() string {
	switch k {
	case Character:
		return "character"
	case Word:
		return "word"
	case Sentence:
		return "sentence"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Classification is the result of Classify.
type Classification struct {
	Kind Kind
	// Components are the sub-character components of a character, the
	// characters of a word or the words of a sentence.
	Components []string
}

// Classify decides whether text is a character, a word or a sentence and
// decomposes it accordingly. Multi-character text is segmented with the
// traditional script. On error Kind is still set when it could be decided;
// a text that cannot be segmented is treated as a word.
func (s *Source) Classify(text string) (Classification, error) {
	text = strings.TrimSpace(text)
	if utf8.RuneCountInString(text) == 1 {
		comps, err := s.DecomposeCharacter(text)
		return Classification{Kind: Character, Components: comps}, err
	}

	words, err := s.Segment(text, dictionary.ScriptTraditional)
	if err != nil {
		return Classification{Kind: Word}, err
	}
	if len(words) > 1 {
		return Classification{Kind: Sentence, Components: unique(words, text)}, nil
	}
	comps, err := s.DecomposeWord(text)
	return Classification{Kind: Word, Components: comps}, err
}

// Components returns the dependencies of word: Classify's components.
func (s *Source) Components(word string) ([]string, error) {
	c, err := s.Classify(word)
	if err != nil {
		return nil, err
	}
	return c.Components, nil
}

// NoComponents is the decomposition field value of a word without components.
// An empty field instead means the decomposition was never computed.
const NoComponents = "None"

// FormatComponents renders a component list for the decomposition field.
func FormatComponents(comps []string) (string, error) {
	if len(comps) == 0 {
		return NoComponents, nil
	}
	for _, c := range comps {
		if strings.TrimSpace(c) == "" {
			return "", fmt.Errorf("empty component in %q", comps)
		}
		if strings.ContainsAny(c, ",，") {
			return "", fmt.Errorf("component %q contains a list separator", c)
		}
	}
	return strings.Join(comps, ", "), nil
}

// ParseComponents reads a decomposition field value. computed is false for
// an empty field; NoComponents yields an empty, computed list. Markup such
// as highlight spans is ignored.
func ParseComponents(value string) (comps []string, computed bool) {
	text := markup.Text(value)
	if text == "" {
		return nil, false
	}
	if text == NoComponents {
		return []string{}, true
	}
	parts := strings.FieldsFunc(text, func(r rune) bool { return r == ',' || r == '，' })
	seen := make(map[string]bool)
	comps = []string{}
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" || seen[p] {
			continue
		}
		seen[p] = true
		comps = append(comps, p)
	}
	return comps, true
}
