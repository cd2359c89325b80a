package dictionary

import (
	"sort"
	"strings"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
)

const defaultCacheSize = 4096

type lookupKey struct {
	word           string
	mask           Script
	includeEnglish bool
}

// Dictionary is an in-memory index over dictionary entries.
type Dictionary struct {
	// mu guards the entries and both indexes. Lookups only read them, so
	// concurrent Find calls share the read lock; Add takes the write lock.
	mu      sync.RWMutex
	entries []Entry
	// Key: headword in one script. Value: positions in entries, ascending.
	trad map[string][]int
	simp map[string][]int

	cache *lru.Cache[lookupKey, []Entry]
}

// New builds a dictionary and indexes the provided entries.
func New(entries []Entry) *Dictionary {
	// lru.New only fails for non-positive sizes.
	cache, _ := lru.New[lookupKey, []Entry](defaultCacheSize)
	d := &Dictionary{
		trad:  make(map[string][]int),
		simp:  make(map[string][]int),
		cache: cache,
	}
	d.Add(entries...)
	return d
}

// Add indexes more entries. Cached lookups are dropped.
func (d *Dictionary) Add(entries ...Entry) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, e := range entries {
		i := len(d.entries)
		d.entries = append(d.entries, e)
		d.trad[e.Traditional] = append(d.trad[e.Traditional], i)
		d.simp[e.Simplified] = append(d.simp[e.Simplified], i)
	}
	d.cache.Purge()
}

// Len is the number of entries.
func (d *Dictionary) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.entries)
}

// Find returns the entries whose headword in any script selected by mask
// equals word, in source order. With includeEnglish, entries having word as
// one of the words of a meaning follow; that scan touches every entry, so
// callers that only need headword matches leave it off.
func (d *Dictionary) Find(word string, mask Script, includeEnglish bool) []Entry {
	word = strings.TrimSpace(word)
	if word == "" {
		return nil
	}
	key := lookupKey{word: word, mask: mask, includeEnglish: includeEnglish}
	if cached, ok := d.cache.Get(key); ok {
		return cached
	}

	d.mu.RLock()
	seen := make(map[int]bool)
	var positions []int
	collect := func(idx map[string][]int) {
		for _, i := range idx[word] {
			if !seen[i] {
				seen[i] = true
				positions = append(positions, i)
			}
		}
	}
	if mask&ScriptTraditional != 0 {
		collect(d.trad)
	}
	if mask&ScriptSimplified != 0 {
		collect(d.simp)
	}
	// Sort results deterministically so both scripts interleave in file order.
	sort.Ints(positions)

	if includeEnglish {
		for i, e := range d.entries {
			if !seen[i] && meaningMentions(e, word) {
				seen[i] = true
				positions = append(positions, i)
			}
		}
	}

	var results []Entry
	for _, i := range positions {
		results = append(results, d.entries[i])
	}
	// Add purges under the write lock, so nothing stale is cached here.
	d.cache.Add(key, results)
	d.mu.RUnlock()
	return results
}

func meaningMentions(e Entry, word string) bool {
	for _, m := range e.Meanings {
		for _, w := range strings.FieldsFunc(m, func(r rune) bool {
			return r == ' ' || r == ',' || r == ';' || r == '(' || r == ')'
		}) {
			if strings.EqualFold(w, word) {
				return true
			}
		}
	}
	return false
}

// Contains reports whether word is a headword in script.
func (d *Dictionary) Contains(word string, script Script) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if script&ScriptTraditional != 0 && len(d.trad[word]) > 0 {
		return true
	}
	return script&ScriptSimplified != 0 && len(d.simp[word]) > 0
}

// Headwords lists the distinct headwords of script, sorted.
func (d *Dictionary) Headwords(script Script) []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	set := make(map[string]bool)
	if script&ScriptTraditional != 0 {
		for w := range d.trad {
			set[w] = true
		}
	}
	if script&ScriptSimplified != 0 {
		for w := range d.simp {
			set[w] = true
		}
	}
	out := make([]string, 0, len(set))
	for w := range set {
		out = append(out, w)
	}
	sort.Strings(out)
	return out
}
