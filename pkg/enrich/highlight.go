package enrich

import (
	"context"
	"fmt"
	"regexp"

	"github.com/japaniel/mmagic/pkg/decomp"
	"github.com/japaniel/mmagic/pkg/errs"
	"github.com/japaniel/mmagic/pkg/vocab"
)

// MissingClass marks words that have no record yet.
const MissingClass = "mmagic-missing"

var reMissing = regexp.MustCompile(`<span class="` + MissingClass + `">(.*?)</span>`)

// Unhighlight removes missing-word markers from s.
func Unhighlight(s string) string {
	return reMissing.ReplaceAllString(s, "$1")
}

// Highlight wraps every Chinese run of s for which missing returns true.
func Highlight(s string, missing func(word string) (bool, error)) (string, error) {
	tmpl, runs := decomp.ExtractCJKRuns(Unhighlight(s))
	args := make([]any, len(runs))
	for i, r := range runs {
		m, err := missing(r)
		if err != nil {
			return s, err
		}
		if m {
			args[i] = `<span class="` + MissingClass + `">` + r + `</span>`
		} else {
			args[i] = r
		}
	}
	return fmt.Sprintf(tmpl, args...), nil
}

// RefreshHighlights re-marks the words in the decomposition and measure word
// fields of rec according to whether a record exists for them now.
func (e *Enricher) RefreshHighlights(ctx context.Context, rec vocab.Record) error {
	all := &errs.Collection{}
	known := make(map[string]bool)
	names := e.Fields.Roles().Names(vocab.RoleMandarin)
	missing := func(word string) (bool, error) {
		if has, ok := known[word]; ok {
			return !has, nil
		}
		ids, err := e.Records.FindRecords(ctx, names, word)
		if err != nil {
			return false, err
		}
		known[word] = len(ids) > 0
		return len(ids) == 0, nil
	}

	for _, role := range []vocab.Role{vocab.RoleDecomposition, vocab.RoleMeasureWord} {
		name, ok := e.field(rec, role, all)
		if !ok {
			continue
		}
		v, _ := rec.Get(name)
		out, err := Highlight(v, missing)
		if err != nil {
			all.Append(fmt.Errorf("highlight %s: %w", name, err))
			continue
		}
		if out != v {
			all.Append(rec.Set(name, out))
		}
	}
	return all.ErrOrNil()
}
