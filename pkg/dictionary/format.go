package dictionary

import (
	"fmt"
	"strings"
)

// LineBreak separates the blocks of a multi-entry field.
const LineBreak = "<br>"

// numbered prefixes each block with a 1-based "[n] " ordinal when ordinals
// is set and joins blocks with LineBreak.
func numbered(blocks []string, ordinals bool) string {
	if !ordinals {
		return strings.Join(blocks, LineBreak)
	}
	out := make([]string, len(blocks))
	for i, b := range blocks {
		out[i] = fmt.Sprintf("[%d] %s", i+1, b)
	}
	return strings.Join(out, LineBreak)
}

// FormatMeanings renders the meanings of entries. A single entry gives its
// meanings joined by "; "; several entries give one numbered block each.
func FormatMeanings(entries []Entry) string {
	blocks := make([]string, len(entries))
	for i, e := range entries {
		blocks[i] = strings.Join(e.Meanings, "; ")
	}
	return numbered(blocks, len(entries) > 1)
}

// FormatPronunciations renders each entry's tone-marked reading with the
// same numbering as FormatMeanings.
func FormatPronunciations(entries []Entry) string {
	blocks := make([]string, len(entries))
	for i, e := range entries {
		blocks[i] = e.Pronunciation()
	}
	return numbered(blocks, len(entries) > 1)
}

// FormatClassifiers renders the measure words of entries, one line per
// entry that has any. Entries without classifiers take no ordinal. The
// result is empty when no entry has classifiers.
func FormatClassifiers(entries []Entry) string {
	var blocks []string
	for _, e := range entries {
		if len(e.Classifiers) == 0 {
			continue
		}
		parts := make([]string, len(e.Classifiers))
		for i, c := range e.Classifiers {
			parts[i] = c.String()
		}
		blocks = append(blocks, strings.Join(parts, ", "))
	}
	return numbered(blocks, len(entries) > 1)
}
