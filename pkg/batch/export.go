package batch

import (
	"context"
	"strings"

	"github.com/japaniel/mmagic/pkg/depgraph"
	"github.com/japaniel/mmagic/pkg/errs"
)

// Sink receives exported words.
type Sink interface {
	// Emit receives one chunk of newline separated words.
	Emit(ctx context.Context, chunk string) error
	// Confirm is asked before every chunk after the first. done words of
	// total have been emitted so far. Returning false stops the export.
	Confirm(ctx context.Context, done, total int) (bool, error)
}

// ExportResult reports what ExportSelection did.
type ExportResult struct {
	// Exported lists the emitted words in dependency order.
	Exported []string
	Chunks   int
	// Stopped is set when the sink declined to continue.
	Stopped bool
}

// ExportSelection emits words to sink in dependency order, ChunkSize at a
// time, tagging each chunk's records after it is emitted. Every word must
// have exactly one record; otherwise nothing is exported and the failures
// are returned together.
func (o *Orchestrator) ExportSelection(ctx context.Context, words []string, sink Sink) (*ExportResult, error) {
	ids := make(map[string]int64, len(words))
	var selected []string
	all := &errs.Collection{}
	for _, w := range words {
		w = strings.TrimSpace(w)
		if w == "" {
			continue
		}
		if _, dup := ids[w]; dup {
			continue
		}
		found, err := o.find(ctx, w)
		switch {
		case err != nil:
			all.Append(err)
		case len(found) == 0:
			all.Append(errs.NoRecordForWord(w))
		case len(found) > 1:
			all.Append(errs.TooManyRecords(w))
		default:
			ids[w] = found[0]
			selected = append(selected, w)
		}
	}
	if err := all.ErrOrNil(); err != nil {
		return nil, err
	}

	deps := make(map[string][]string, len(selected))
	for _, w := range selected {
		d, err := o.Builder.RecordDependencies(ctx, ids[w], w)
		if err != nil {
			// A word without a component list can still be exported.
			if errs.KindOf(err) != errs.KindMissingComponentList {
				all.Append(err)
			}
			continue
		}
		deps[w] = d
	}
	if err := all.ErrOrNil(); err != nil {
		return nil, err
	}

	g := depgraph.Induced(selected, func(w string) []string { return deps[w] })
	order, err := depgraph.Sort(g)
	if err != nil {
		return nil, err
	}

	size := o.ChunkSize
	if size <= 0 {
		size = DefaultChunkSize
	}
	res := &ExportResult{}
	log := o.logger()
	for start := 0; start < len(order); start += size {
		if start > 0 {
			if err := ctx.Err(); err != nil {
				return res, err
			}
			ok, err := sink.Confirm(ctx, start, len(order))
			if err != nil {
				return res, err
			}
			if !ok {
				res.Stopped = true
				log.Info("export stopped", "exported", start, "total", len(order))
				return res, nil
			}
		}
		end := min(start+size, len(order))
		chunk := order[start:end]
		if err := sink.Emit(ctx, strings.Join(chunk, "\n")); err != nil {
			return res, err
		}
		chunkIDs := make([]int64, len(chunk))
		for i, w := range chunk {
			chunkIDs[i] = ids[w]
		}
		if err := o.Store.AddTag(ctx, chunkIDs, o.ExportTag); err != nil {
			return res, err
		}
		res.Exported = append(res.Exported, chunk...)
		res.Chunks++
		log.Debug("exported chunk", "chunk", res.Chunks, "words", len(chunk))
	}
	return res, nil
}
