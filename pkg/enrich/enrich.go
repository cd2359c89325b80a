// Package enrich fills in the derived fields of vocabulary records from the
// dictionary and the decomposition source.
package enrich

import (
	"context"
	"io"
	"log/slog"

	"github.com/japaniel/mmagic/pkg/decomp"
	"github.com/japaniel/mmagic/pkg/dictionary"
	"github.com/japaniel/mmagic/pkg/errs"
	"github.com/japaniel/mmagic/pkg/fields"
	"github.com/japaniel/mmagic/pkg/markup"
	"github.com/japaniel/mmagic/pkg/pinyin"
	"github.com/japaniel/mmagic/pkg/vocab"
)

const (
	// SentenceMessage fills the English field of a sentence.
	SentenceMessage = "Sentences cannot be looked up in the dictionary"
	// NoEntryMessage fills the English field of a word the dictionary lacks.
	NoEntryMessage = "No dictionary entry"
)

// Dictionary looks words up.
type Dictionary interface {
	Find(word string, mask dictionary.Script, includeEnglish bool) []dictionary.Entry
}

// Decomposer classifies and decomposes a headword.
type Decomposer interface {
	Classify(text string) (decomp.Classification, error)
}

// RecordFinder answers whether a record exists for a word.
type RecordFinder interface {
	FindRecords(ctx context.Context, fieldNames []string, value string) ([]int64, error)
}

// Enricher populates records. It never persists them.
type Enricher struct {
	Fields  *fields.Resolver
	Dict    Dictionary
	Decomp  Decomposer
	Records RecordFinder
	Logger  *slog.Logger
}

// New creates an Enricher.
func New(resolver *fields.Resolver, dict Dictionary, dec Decomposer, records RecordFinder) *Enricher {
	return &Enricher{Fields: resolver, Dict: dict, Decomp: dec, Records: records}
}

func (e *Enricher) logger() *slog.Logger {
	if e.Logger != nil {
		return e.Logger
	}
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// Populate derives every empty field of rec it can. Problems are collected
// and returned together as an *errs.Collection; changes already made stay
// made. Only a missing headword stops it early.
func (e *Enricher) Populate(ctx context.Context, rec vocab.Record) error {
	word, err := e.Fields.GetNonEmpty(rec, vocab.RoleMandarin)
	if err != nil {
		return err
	}
	log := e.logger().With("word", word)

	all := &errs.Collection{}
	cls, derr := e.Decomp.Classify(word)
	computed := derr == nil
	if derr != nil {
		all.Append(errs.DecompositionFailure(word, derr))
	}
	log.Debug("classified", "kind", cls.Kind, "components", cls.Components)

	if cls.Kind == decomp.Sentence {
		e.fillEmpty(rec, vocab.RoleEnglish, SentenceMessage, all)
	} else {
		entries := e.Dict.Find(word, dictionary.ScriptBoth, false)
		if len(entries) == 0 {
			all.Append(errs.NoDictionaryEntry(word))
			e.fillEmpty(rec, vocab.RoleEnglish, NoEntryMessage, all)
		} else {
			e.fillEmpty(rec, vocab.RoleEnglish, dictionary.FormatMeanings(entries), all)
			e.fillEmpty(rec, vocab.RolePronunciation, dictionary.FormatPronunciations(entries), all)
			if cl := dictionary.FormatClassifiers(entries); cl != "" {
				e.fillEmpty(rec, vocab.RoleMeasureWord, cl, all)
			}
		}
	}

	e.normalizePronunciation(rec, all)

	if computed {
		v, ferr := decomp.FormatComponents(cls.Components)
		if ferr != nil {
			all.Append(errs.DecompositionFailure(word, ferr))
		} else {
			e.fillEmpty(rec, vocab.RoleDecomposition, v, all)
		}
	}

	all.Append(e.RefreshHighlights(ctx, rec))

	if all.Len() > 0 {
		log.Info("populated with problems", "problems", all.Len())
	}
	return all.ErrOrNil()
}

// field resolves role on rec. A missing field is not a problem for the
// optional roles; an ambiguous one is collected.
func (e *Enricher) field(rec vocab.Record, role vocab.Role, all *errs.Collection) (string, bool) {
	name, err := e.Fields.Resolve(rec, role)
	if err != nil {
		if errs.KindOf(err) != errs.KindFieldMissing {
			all.Append(err)
		}
		return "", false
	}
	return name, true
}

func (e *Enricher) fillEmpty(rec vocab.Record, role vocab.Role, value string, all *errs.Collection) {
	name, ok := e.field(rec, role, all)
	if !ok {
		return
	}
	if v, _ := rec.Get(name); !markup.IsBlank(v) {
		return
	}
	all.Append(rec.Set(name, value))
}

// normalizePronunciation rewrites numbered tones as tone marks in the text
// of the field; markup is kept byte for byte. Text that does not parse is
// left alone.
func (e *Enricher) normalizePronunciation(rec vocab.Record, all *errs.Collection) {
	name, ok := e.field(rec, vocab.RolePronunciation, all)
	if !ok {
		return
	}
	v, _ := rec.Get(name)
	if markup.IsBlank(v) {
		return
	}
	out, err := markup.MapText(v, pinyin.FromNumbered)
	if err != nil || out == v {
		return
	}
	all.Append(rec.Set(name, out))
}
