// Package decomp is the decomposition source: it splits characters into
// their graphical components, words into characters and sentences into words.
package decomp

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"
)

// Table holds character decompositions in the cjk-decomp layout:
//
//	好:a(女,子)
//	20012:a(口,口)
//	品:stl(口,20012)
//
// Numeric components reference intermediate shapes that have no code point
// of their own; they are expanded when a character is decomposed.
type Table struct {
	entries map[string][]string
}

var reTableLine = regexp.MustCompile(`^([^:\s]+):([A-Za-z0-9/]*)(?:\((.*)\))?$`)

// ParseTable reads a decomposition table. Blank lines and '#' comments are skipped.
func ParseTable(r io.Reader) (*Table, error) {
	t := &Table{entries: make(map[string][]string)}
	sc := bufio.NewScanner(r)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		m := reTableLine.FindStringSubmatch(line)
		if m == nil {
			return nil, fmt.Errorf("decomposition table: line %d: malformed entry %q", lineNo, line)
		}
		var comps []string
		for _, c := range strings.Split(m[3], ",") {
			c = strings.TrimSpace(c)
			if c == "" || c == "0" {
				continue
			}
			comps = append(comps, c)
		}
		t.entries[m[1]] = comps
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return t, nil
}

// LoadTable reads a decomposition table from path.
func LoadTable(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ParseTable(f)
}

// Len is the number of table entries, intermediate shapes included.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.entries)
}

// components returns the expanded components of key and whether key is in
// the table at all.
func (t *Table) components(key string) ([]string, bool) {
	if t == nil {
		return nil, false
	}
	raw, ok := t.entries[key]
	if !ok {
		return nil, false
	}
	var out []string
	visiting := map[string]bool{key: true}
	var expand func(comps []string)
	expand = func(comps []string) {
		for _, c := range comps {
			if !isReference(c) {
				out = append(out, c)
				continue
			}
			if visiting[c] {
				continue
			}
			visiting[c] = true
			// Unknown references are shapes the table cannot describe; drop them.
			expand(t.entries[c])
			visiting[c] = false
		}
	}
	expand(raw)
	return out, true
}

func isReference(c string) bool {
	for _, r := range c {
		if r < '0' || r > '9' {
			return false
		}
	}
	return c != ""
}
