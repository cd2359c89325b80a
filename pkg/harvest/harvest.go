// Package harvest finds vocabulary in running text: it segments sentences
// in parallel and reports each Chinese word with how often it occurs,
// whether the dictionary knows it and whether a record exists for it.
package harvest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"unicode"

	"github.com/japaniel/mmagic/pkg/dictionary"
	"github.com/japaniel/mmagic/pkg/mmagic"
)

// Segmenter splits a sentence into words.
type Segmenter interface {
	Segment(text string, script dictionary.Script) ([]string, error)
}

// Lexicon answers whether the dictionary has a word.
type Lexicon interface {
	Contains(word string, script dictionary.Script) bool
}

// RecordFinder finds records by headword.
type RecordFinder interface {
	FindRecords(ctx context.Context, fieldNames []string, value string) ([]int64, error)
}

// Candidate is a word found in the text.
type Candidate struct {
	Word  string
	Count int
	// Sentence is the first sentence the word occurs in.
	Sentence  string
	Known     bool
	HasRecord bool
}

// Harvester collects candidates from sentences.
type Harvester struct {
	Segmenter Segmenter
	Lexicon   Lexicon
	// Records and HeadwordFields are optional; without them HasRecord stays false.
	Records        RecordFinder
	HeadwordFields []string
	Script         dictionary.Script
	Workers        int
	Logger         *slog.Logger
	// OnProgress is called with the number of sentences handled so far.
	OnProgress func(current, total int)
	// PoolFactory allows tests to inject custom worker pool implementations.
	PoolFactory func(workers, queue int) Pool
}

// NewHarvester creates a Harvester for traditional script text.
func NewHarvester(seg Segmenter, lex Lexicon) *Harvester {
	return &Harvester{
		Segmenter: seg,
		Lexicon:   lex,
		Script:    dictionary.ScriptTraditional,
		Workers:   4,
	}
}

func (h *Harvester) logger() *slog.Logger {
	if h.Logger != nil {
		return h.Logger
	}
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type segmented struct {
	Index int
	Words []string
	Err   error
}

// Harvest segments sentences concurrently and returns the Chinese words in
// order of first occurrence. Record lookups happen afterwards, one at a time.
func (h *Harvester) Harvest(ctx context.Context, sentences []string) ([]Candidate, error) {
	total := len(sentences)
	if total == 0 {
		return nil, nil
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wp Pool
	if h.PoolFactory != nil {
		wp = h.PoolFactory(h.Workers, h.Workers*2)
	} else {
		wp = NewWorkerPool(h.Workers, h.Workers*2)
	}
	wp.Start(ctx)

	resultCh := make(chan segmented, h.Workers*2+1)
	submitErr := make(chan error, 1)
	go func() {
		defer close(submitErr)
		for i, s := range sentences {
			idx, sentence := i, s
			job := func(ctx context.Context) error {
				words, err := h.Segmenter.Segment(sentence, h.Script)
				if errors.Is(err, mmagic.ErrNothingToSegment) {
					words, err = nil, nil
				}
				select {
				case resultCh <- segmented{Index: idx, Words: words, Err: err}:
				case <-ctx.Done():
				}
				return err
			}
			if err := wp.SubmitCtx(ctx, job); err != nil {
				submitErr <- err
				return
			}
		}
	}()

	// Reorder results by sentence index.
	buffer := make(map[int]segmented)
	byWord := make(map[string]int)
	var out []Candidate
	next := 0
	for next < total {
		select {
		case <-ctx.Done():
			wp.Close()
			return nil, ctx.Err()
		case err, ok := <-submitErr:
			if ok && err != nil {
				cancel()
				wp.Close()
				return nil, fmt.Errorf("submit sentence: %w", err)
			}
			// Every sentence was submitted; stop watching.
			submitErr = nil
		case res := <-resultCh:
			if res.Err != nil {
				cancel()
				wp.Close()
				return nil, fmt.Errorf("segment sentence %d: %w", res.Index, res.Err)
			}
			buffer[res.Index] = res
			for {
				item, ok := buffer[next]
				if !ok {
					break
				}
				delete(buffer, next)
				for _, w := range item.Words {
					if !hasHan(w) {
						continue
					}
					if i, seen := byWord[w]; seen {
						out[i].Count++
						continue
					}
					byWord[w] = len(out)
					out = append(out, Candidate{Word: w, Count: 1, Sentence: sentences[item.Index]})
				}
				next++
				if h.OnProgress != nil {
					h.OnProgress(next, total)
				}
			}
		}
	}
	wp.Close()

	for i := range out {
		if h.Lexicon != nil {
			out[i].Known = h.Lexicon.Contains(out[i].Word, dictionary.ScriptBoth)
		}
		if h.Records != nil && len(h.HeadwordFields) > 0 {
			ids, err := h.Records.FindRecords(ctx, h.HeadwordFields, out[i].Word)
			if err != nil {
				return nil, fmt.Errorf("find records for %q: %w", out[i].Word, err)
			}
			out[i].HasRecord = len(ids) > 0
		}
	}
	h.logger().Info("harvested", "sentences", total, "words", len(out))
	return out, nil
}

func hasHan(s string) bool {
	for _, r := range s {
		if unicode.Is(unicode.Han, r) {
			return true
		}
	}
	return false
}
