// Package pinyin converts numbered-tone pinyin ("ni3 hao3") into tone-mark
// form ("nǐ hǎo").
package pinyin

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// combining tone marks for tones 1-4
var toneMarks = [...]rune{1: '\u0304', 2: '\u0301', 3: '\u030C', 4: '\u0300'}

var reNumbered = regexp.MustCompile(`[A-Za-zÜü:]+[0-9]`)

// SyntaxError reports a numbered syllable that cannot be converted.
type SyntaxError struct {
	Syllable string
	msg      string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("pinyin: %q: %s", e.Syllable, e.msg)
}

// FromNumbered rewrites every numbered syllable in s with tone marks. Text
// without numbered syllables, including text that already carries tone
// marks, is returned unchanged. If any syllable is invalid the error is
// returned together with the original s.
func FromNumbered(s string) (string, error) {
	var firstErr error
	out := reNumbered.ReplaceAllStringFunc(s, func(m string) string {
		conv, err := convertSyllable(m)
		if err != nil && firstErr == nil {
			firstErr = err
		}
		return conv
	})
	if firstErr != nil {
		return s, firstErr
	}
	return out, nil
}

// Normalize is FromNumbered that keeps s as is when it cannot be parsed.
func Normalize(s string) string {
	out, err := FromNumbered(s)
	if err != nil {
		return s
	}
	return out
}

func convertSyllable(syl string) (string, error) {
	tone := int(syl[len(syl)-1] - '0')
	letters := syl[:len(syl)-1]

	letters = strings.NewReplacer("u:", "ü", "U:", "Ü", "v", "ü", "V", "Ü").Replace(letters)
	if strings.Contains(letters, ":") {
		return syl, &SyntaxError{Syllable: syl, msg: "stray colon"}
	}
	runes := []rune(letters)

	if tone == 0 || tone == 5 {
		return string(runes), nil
	}
	if tone > 5 {
		return syl, &SyntaxError{Syllable: syl, msg: "tone out of range"}
	}

	idx := markIndex(runes)
	if idx < 0 {
		return syl, &SyntaxError{Syllable: syl, msg: "no vowel to carry the tone"}
	}

	var b strings.Builder
	for i, r := range runes {
		b.WriteRune(r)
		if i == idx {
			b.WriteRune(toneMarks[tone])
		}
	}
	return norm.NFC.String(b.String()), nil
}

// markIndex picks the rune that carries the tone mark: a or e when present,
// o in "ou", otherwise the last vowel. Syllabic m and n (as in "m2", "ng2")
// carry it when there is no vowel at all.
func markIndex(runes []rune) int {
	lower := make([]rune, len(runes))
	for i, r := range runes {
		lower[i] = unicode.ToLower(r)
	}
	for i, r := range lower {
		if r == 'a' || r == 'e' {
			return i
		}
	}
	for i := 0; i+1 < len(lower); i++ {
		if lower[i] == 'o' && lower[i+1] == 'u' {
			return i
		}
	}
	for i := len(lower) - 1; i >= 0; i-- {
		switch lower[i] {
		case 'i', 'o', 'u', 'ü':
			return i
		}
	}
	s := string(lower)
	if s == "m" || s == "n" || s == "ng" || s == "hm" || s == "hng" {
		return strings.IndexAny(s, "mn")
	}
	return -1
}
