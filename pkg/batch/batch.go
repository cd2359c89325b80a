// Package batch composes graph building, sorting and enrichment into the
// operations run over many records at once.
package batch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/japaniel/mmagic/pkg/depgraph"
	"github.com/japaniel/mmagic/pkg/enrich"
	"github.com/japaniel/mmagic/pkg/errs"
	"github.com/japaniel/mmagic/pkg/fields"
	"github.com/japaniel/mmagic/pkg/vocab"
)

// ErrExists is returned by AddWord for a word that already has a record.
var ErrExists = errors.New("a note already exists")

const (
	DefaultChunkSize = 200
	DefaultExportTag = "mmagic-exported"
)

// Orchestrator runs batch operations against a record store.
type Orchestrator struct {
	Store    vocab.Store
	Fields   *fields.Resolver
	Enricher *enrich.Enricher
	Builder  *depgraph.Builder
	// Model is the note type of created records.
	Model     string
	ExportTag string
	ChunkSize int
	Logger    *slog.Logger
}

// NewOrchestrator creates an Orchestrator with the default chunk size and
// export tag.
func NewOrchestrator(store vocab.Store, resolver *fields.Resolver, enricher *enrich.Enricher, builder *depgraph.Builder, model string) *Orchestrator {
	return &Orchestrator{
		Store:     store,
		Fields:    resolver,
		Enricher:  enricher,
		Builder:   builder,
		Model:     model,
		ExportTag: DefaultExportTag,
		ChunkSize: DefaultChunkSize,
	}
}

func (o *Orchestrator) logger() *slog.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// find returns the records whose headword is word.
func (o *Orchestrator) find(ctx context.Context, word string) ([]int64, error) {
	return o.Store.FindRecords(ctx, o.Fields.Roles().Names(vocab.RoleMandarin), word)
}

// AddResult reports what AddMissingDependencies did.
type AddResult struct {
	// Order is the dependency order of the words considered, root excluded.
	Order []string
	// Created lists the ids of new records in creation order.
	Created []int64
}

// AddMissingDependencies creates a record for every word root depends on
// that has none, dependencies first. Problems are collected and returned
// together; the records that could be created are created regardless.
func (o *Orchestrator) AddMissingDependencies(ctx context.Context, root string) (*AddResult, error) {
	log := o.logger().With("root", root)
	all := &errs.Collection{}

	g, problems := o.Builder.Build(ctx, root)
	all.Append(problems)

	order, err := depgraph.Sort(g)
	if err != nil {
		// Keep whatever could be ordered.
		all.Append(err)
	}

	res := &AddResult{}
	for _, w := range order {
		if w != root {
			res.Order = append(res.Order, w)
		}
	}

	var touched []vocab.Record
	for _, w := range res.Order {
		if err := ctx.Err(); err != nil {
			all.Append(err)
			break
		}
		ids, err := o.find(ctx, w)
		if err != nil {
			all.Append(err)
			continue
		}
		if len(ids) > 0 {
			continue
		}
		rec, err := o.create(ctx, w, all)
		if err != nil {
			all.Append(err)
			continue
		}
		res.Created = append(res.Created, rec.ID())
		touched = append(touched, rec)
		log.Info("created record", "word", w, "id", rec.ID())
	}

	// Words created later may be components of the root and of earlier words.
	if ids, err := o.find(ctx, root); err == nil && len(ids) == 1 {
		if rec, err := o.Store.Record(ctx, ids[0]); err == nil {
			touched = append(touched, rec)
		} else {
			all.Append(err)
		}
	}
	for _, rec := range touched {
		all.Append(o.refresh(ctx, rec))
	}

	return res, all.ErrOrNil()
}

// create adds a populated record for word. Enrichment problems go into all;
// a returned error means no record was added.
func (o *Orchestrator) create(ctx context.Context, word string, all *errs.Collection) (vocab.Record, error) {
	rec, err := o.Store.NewRecord(ctx, o.Model)
	if err != nil {
		return nil, err
	}
	if err := o.Fields.Set(rec, vocab.RoleMandarin, word); err != nil {
		return nil, err
	}
	all.Append(o.Enricher.Populate(ctx, rec))
	cards, err := o.Store.AddRecord(ctx, rec)
	if err != nil {
		return nil, err
	}
	if cards == 0 {
		return nil, errs.RecordCreationFailed(word)
	}
	return rec, nil
}

func (o *Orchestrator) refresh(ctx context.Context, rec vocab.Record) error {
	if err := o.Enricher.RefreshHighlights(ctx, rec); err != nil {
		return err
	}
	return rec.Persist(ctx)
}

// AddWord creates and populates a record for word. Enrichment problems are
// returned with the new record; an existing record is an error.
func (o *Orchestrator) AddWord(ctx context.Context, word string) (vocab.Record, error) {
	ids, err := o.find(ctx, word)
	if err != nil {
		return nil, err
	}
	if len(ids) > 0 {
		return nil, fmt.Errorf("%w: %q", ErrExists, word)
	}
	all := &errs.Collection{}
	rec, err := o.create(ctx, word, all)
	if err != nil {
		all.Append(err)
		return nil, all.ErrOrNil()
	}
	return rec, all.ErrOrNil()
}

// Populate enriches and saves the record with the given id.
func (o *Orchestrator) Populate(ctx context.Context, id int64) error {
	rec, err := o.Store.Record(ctx, id)
	if err != nil {
		return err
	}
	all := &errs.Collection{}
	perr := o.Enricher.Populate(ctx, rec)
	var problems *errs.Collection
	if perr != nil && !errors.As(perr, &problems) {
		// Nothing was derived.
		return perr
	}
	all.Append(perr)
	all.Append(rec.Persist(ctx))
	return all.ErrOrNil()
}
