package depgraph

import (
	"context"
	"io"
	"log/slog"

	"github.com/japaniel/mmagic/pkg/decomp"
	"github.com/japaniel/mmagic/pkg/errs"
	"github.com/japaniel/mmagic/pkg/fields"
	"github.com/japaniel/mmagic/pkg/vocab"
)

// Decomposer supplies the dependencies of words that have no record.
type Decomposer interface {
	Components(word string) ([]string, error)
}

// Builder walks the dependencies of a word through existing records, and
// through the decomposition source where no record exists.
type Builder struct {
	Store  vocab.Store
	Fields *fields.Resolver
	Decomp Decomposer
	Logger *slog.Logger
}

// NewBuilder creates a Builder.
func NewBuilder(store vocab.Store, resolver *fields.Resolver, dec Decomposer) *Builder {
	return &Builder{Store: store, Fields: resolver, Decomp: dec}
}

func (b *Builder) logger() *slog.Logger {
	if b.Logger != nil {
		return b.Logger
	}
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// Build returns the graph of everything root depends on, breadth first.
// Words whose dependencies cannot be determined are kept with none, and the
// reasons are returned alongside. The collection is empty when nothing went
// wrong; a cancelled context stops the walk and is reported in it too.
func (b *Builder) Build(ctx context.Context, root string) (*Graph, *errs.Collection) {
	g := New()
	all := &errs.Collection{}
	visited := map[string]bool{root: true}
	queue := []string{root}

	for len(queue) > 0 {
		if err := ctx.Err(); err != nil {
			all.Append(err)
			break
		}
		word := queue[0]
		queue = queue[1:]

		deps, err := b.dependencies(ctx, word)
		if err != nil {
			all.Append(err)
		}
		g.Add(word, deps)
		for _, d := range g.Deps(word) {
			if !visited[d] {
				visited[d] = true
				queue = append(queue, d)
			}
		}
	}
	b.logger().Debug("built dependency graph", "root", root, "words", g.Len(), "problems", all.Len())
	return g, all
}

// dependencies looks word up. A non-nil error comes with nil dependencies.
func (b *Builder) dependencies(ctx context.Context, word string) ([]string, error) {
	ids, err := b.Store.FindRecords(ctx, b.Fields.Roles().Names(vocab.RoleMandarin), word)
	if err != nil {
		return nil, err
	}
	switch len(ids) {
	case 0:
		comps, err := b.Decomp.Components(word)
		if err != nil {
			return nil, errs.DecompositionFailure(word, err)
		}
		return comps, nil
	case 1:
		return b.RecordDependencies(ctx, ids[0], word)
	default:
		return nil, errs.TooManyRecords(word)
	}
}

// RecordDependencies reads the component list stored on a record.
func (b *Builder) RecordDependencies(ctx context.Context, id int64, word string) ([]string, error) {
	rec, err := b.Store.Record(ctx, id)
	if err != nil {
		return nil, err
	}
	v, err := b.Fields.Get(rec, vocab.RoleDecomposition)
	if err != nil {
		return nil, err
	}
	comps, computed := decomp.ParseComponents(v)
	if !computed {
		return nil, errs.MissingComponentList(word)
	}
	return comps, nil
}
