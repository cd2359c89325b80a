package dictionary

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"

	"github.com/japaniel/mmagic/pkg/pinyin"
)

// Script selects the written form(s) a lookup matches against.
type Script uint8

const (
	ScriptTraditional Script = 1 << iota
	ScriptSimplified

	ScriptBoth = ScriptTraditional | ScriptSimplified
)

// Entry is one CC-CEDICT entry.
type Entry struct {
	Traditional string
	Simplified  string
	// Pinyin is the numbered-tone reading as written in the source ("ni3 hao3").
	Pinyin      string
	Meanings    []string
	Classifiers []Classifier
}

// Classifier is a measure word listed for an entry ("CL:個|个[ge4]").
type Classifier struct {
	Traditional string
	Simplified  string
	Pinyin      string
}

// Pronunciation returns the entry's reading with tone marks.
func (e Entry) Pronunciation() string {
	return pinyin.Normalize(e.Pinyin)
}

// String renders the classifier as "個|个 (gè)", or "本 (běn)" when both
// scripts agree.
func (c Classifier) String() string {
	form := c.Traditional
	if c.Simplified != "" && c.Simplified != c.Traditional {
		form += "|" + c.Simplified
	}
	if c.Pinyin == "" {
		return form
	}
	return fmt.Sprintf("%s (%s)", form, pinyin.Normalize(c.Pinyin))
}

var (
	// 傳統 传统 [chuan2 tong3] /tradition/traditional/
	reLine       = regexp.MustCompile(`^(\S+)\s+(\S+)\s+\[([^\]]*)\]\s+/(.*)/\s*$`)
	reClassifier = regexp.MustCompile(`^([^|\[]+)(?:\|([^\[]+))?\[([^\]]*)\]$`)
)

// ParseError reports a malformed dictionary line.
type ParseError struct {
	Line int
	Text string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("dictionary: line %d: malformed entry %q", e.Line, e.Text)
}

// Parse reads CC-CEDICT formatted entries. Blank lines and '#' comments are skipped.
func Parse(r io.Reader) ([]Entry, error) {
	var entries []Entry
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		e, ok := parseLine(line)
		if !ok {
			return nil, &ParseError{Line: lineNo, Text: line}
		}
		entries = append(entries, e)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}

func parseLine(line string) (Entry, bool) {
	m := reLine.FindStringSubmatch(line)
	if m == nil {
		return Entry{}, false
	}
	e := Entry{
		Traditional: m[1],
		Simplified:  m[2],
		Pinyin:      strings.TrimSpace(m[3]),
	}
	for _, gloss := range strings.Split(m[4], "/") {
		gloss = strings.TrimSpace(gloss)
		if gloss == "" {
			continue
		}
		if rest, ok := strings.CutPrefix(gloss, "CL:"); ok {
			if cls, ok := parseClassifiers(rest); ok {
				e.Classifiers = append(e.Classifiers, cls...)
				continue
			}
		}
		e.Meanings = append(e.Meanings, gloss)
	}
	return e, true
}

func parseClassifiers(s string) ([]Classifier, bool) {
	var out []Classifier
	for _, part := range strings.Split(s, ",") {
		m := reClassifier.FindStringSubmatch(strings.TrimSpace(part))
		if m == nil {
			return nil, false
		}
		c := Classifier{Traditional: m[1], Simplified: m[2], Pinyin: m[3]}
		if c.Simplified == "" {
			c.Simplified = c.Traditional
		}
		out = append(out, c)
	}
	return out, len(out) > 0
}

// Load reads a CC-CEDICT file from path.
func Load(path string) ([]Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	entries, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("failed to parse dictionary %s: %w", path, err)
	}
	return entries, nil
}
