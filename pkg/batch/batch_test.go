package batch

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/japaniel/mmagic/pkg/decomp"
	"github.com/japaniel/mmagic/pkg/depgraph"
	"github.com/japaniel/mmagic/pkg/dictionary"
	"github.com/japaniel/mmagic/pkg/enrich"
	"github.com/japaniel/mmagic/pkg/errs"
	"github.com/japaniel/mmagic/pkg/fields"
	"github.com/japaniel/mmagic/pkg/vocab/vocabtest"
)

const testCEDICT = `好人 好人 [hao3 ren2] /good person/
好 好 [hao3] /good/
女 女 [nu:3] /female/
子 子 [zi3] /son/child/
人 人 [ren2] /person/
`

const testTable = `好:a(女,子)
女:c
子:c
人:c
`

type spaceSegmenter struct{}

func (spaceSegmenter) Segment(text string, _ dictionary.Script) ([]string, error) {
	return strings.Fields(text), nil
}

func newTestOrchestrator(t *testing.T, store *vocabtest.Store, model string) *Orchestrator {
	t.Helper()
	entries, err := dictionary.Parse(strings.NewReader(testCEDICT))
	require.NoError(t, err)
	table, err := decomp.ParseTable(strings.NewReader(testTable))
	require.NoError(t, err)
	src := decomp.NewSource(table, spaceSegmenter{})
	resolver := fields.NewResolver(nil)
	e := enrich.New(resolver, dictionary.New(entries), src, store)
	b := depgraph.NewBuilder(store, resolver, src)
	return NewOrchestrator(store, resolver, e, b, model)
}

func TestAddMissingDependencies(t *testing.T) {
	store := vocabtest.NewStore(vocabtest.ChineseModel)
	root := store.Add("Chinese", map[string]string{"Mandarin": "好人"})
	o := newTestOrchestrator(t, store, "Chinese")
	ctx := context.Background()
	require.NoError(t, o.Populate(ctx, root.ID()))
	assert.Equal(t,
		`<span class="mmagic-missing">好</span>, <span class="mmagic-missing">人</span>`,
		store.Value(root.ID(), "Decomposition"))

	res, err := o.AddMissingDependencies(ctx, "好人")
	require.NoError(t, err)
	assert.Equal(t, []string{"人", "女", "子", "好"}, res.Order)
	assert.Len(t, res.Created, 4)
	assert.Equal(t, 5, store.Len())

	// Dependencies were created first, so the last record sees them all.
	last := res.Created[len(res.Created)-1]
	assert.Equal(t, "好", store.Value(last, "Mandarin"))
	assert.Equal(t, "女, 子", store.Value(last, "Decomposition"))
	assert.Equal(t, "好, 人", store.Value(root.ID(), "Decomposition"))

	// Nothing is left to create.
	res, err = o.AddMissingDependencies(ctx, "好人")
	require.NoError(t, err)
	assert.Empty(t, res.Created)
}

func TestAddMissingDependenciesReportsRecordsWithoutCards(t *testing.T) {
	model := vocabtest.ChineseModel
	model.Name = "PinyinCards"
	model.Required = []string{"Pinyin"}
	store := vocabtest.NewStore(model)
	store.Add("PinyinCards", map[string]string{"Mandarin": "根", "Pinyin": "gēn", "Decomposition": "木, 人"})
	o := newTestOrchestrator(t, store, "PinyinCards")

	res, err := o.AddMissingDependencies(context.Background(), "根")
	require.Error(t, err)
	// 木 is in neither source: no decomposition, no entry, no pinyin and so no card.
	assert.True(t, errs.HasKind(err, errs.KindRecordCreationFailed))
	assert.True(t, errs.HasKind(err, errs.KindDecompositionFailure))
	assert.Equal(t, []string{"木", "人"}, res.Order)
	assert.Len(t, res.Created, 1, "人 is still created")
}

func TestAddMissingDependenciesSurvivesCycles(t *testing.T) {
	store := vocabtest.NewStore(vocabtest.ChineseModel)
	store.Add("Chinese", map[string]string{"Mandarin": "甲", "Decomposition": "乙, 人"})
	store.Add("Chinese", map[string]string{"Mandarin": "乙", "Decomposition": "甲"})
	o := newTestOrchestrator(t, store, "Chinese")

	res, err := o.AddMissingDependencies(context.Background(), "甲")
	assert.True(t, errs.HasKind(err, errs.KindCycleDetected))
	assert.Equal(t, []string{"人"}, res.Order)
	assert.Len(t, res.Created, 1)
}

func TestAddWord(t *testing.T) {
	store := vocabtest.NewStore(vocabtest.ChineseModel)
	o := newTestOrchestrator(t, store, "Chinese")
	ctx := context.Background()

	rec, err := o.AddWord(ctx, "人")
	require.NoError(t, err)
	assert.Equal(t, "person", store.Value(rec.ID(), "English"))
	assert.Equal(t, "rén", store.Value(rec.ID(), "Pinyin"))

	_, err = o.AddWord(ctx, "人")
	assert.ErrorIs(t, err, ErrExists)
}

type recordingSink struct {
	chunks   []string
	confirms int
	decline  bool
}

func (s *recordingSink) Emit(ctx context.Context, chunk string) error {
	s.chunks = append(s.chunks, chunk)
	return nil
}

func (s *recordingSink) Confirm(ctx context.Context, done, total int) (bool, error) {
	s.confirms++
	return !s.decline, nil
}

func addChain(store *vocabtest.Store, n int) []string {
	words := make([]string, n)
	for i := range words {
		words[i] = fmt.Sprintf("w%03d", i)
	}
	// Every word depends on the next one.
	for i, w := range words {
		d := decomp.NoComponents
		if i+1 < n {
			d = words[i+1]
		}
		store.Add("Chinese", map[string]string{"Mandarin": w, "Decomposition": d})
	}
	return words
}

func TestExportSelectionChunks(t *testing.T) {
	store := vocabtest.NewStore(vocabtest.ChineseModel)
	words := addChain(store, 250)
	o := newTestOrchestrator(t, store, "Chinese")
	sink := &recordingSink{}

	res, err := o.ExportSelection(context.Background(), words, sink)
	require.NoError(t, err)
	require.Len(t, sink.chunks, 2)
	first := strings.Split(sink.chunks[0], "\n")
	second := strings.Split(sink.chunks[1], "\n")
	assert.Len(t, first, 200)
	assert.Len(t, second, 50)
	assert.Equal(t, 1, sink.confirms)
	assert.Equal(t, 2, res.Chunks)

	// Dependency order: the chain is reversed.
	assert.Equal(t, "w249", first[0])
	assert.Equal(t, "w000", second[len(second)-1])

	for id := int64(1); id <= 250; id++ {
		assert.Equal(t, []string{DefaultExportTag}, store.Tags(id))
	}
}

func TestExportSelectionStopsWhenDeclined(t *testing.T) {
	store := vocabtest.NewStore(vocabtest.ChineseModel)
	words := addChain(store, 5)
	o := newTestOrchestrator(t, store, "Chinese")
	o.ChunkSize = 2
	sink := &recordingSink{decline: true}

	res, err := o.ExportSelection(context.Background(), words, sink)
	require.NoError(t, err)
	assert.True(t, res.Stopped)
	assert.Equal(t, []string{"w004", "w003"}, res.Exported)
	assert.Len(t, sink.chunks, 1)
	// Only the emitted chunk was tagged.
	assert.Empty(t, store.Tags(1))
	assert.Equal(t, []string{DefaultExportTag}, store.Tags(5))
}

func TestExportSelectionRequiresOneRecordPerWord(t *testing.T) {
	store := vocabtest.NewStore(vocabtest.ChineseModel)
	store.Add("Chinese", map[string]string{"Mandarin": "好", "Decomposition": "None"})
	store.Add("Chinese", map[string]string{"Mandarin": "人", "Decomposition": "None"})
	store.Add("Chinese", map[string]string{"Mandarin": "人", "Decomposition": "None"})
	o := newTestOrchestrator(t, store, "Chinese")
	sink := &recordingSink{}

	_, err := o.ExportSelection(context.Background(), []string{"好", "人", "女"}, sink)
	require.Error(t, err)
	assert.True(t, errs.HasKind(err, errs.KindTooManyRecords))
	assert.True(t, errs.HasKind(err, errs.KindNoRecordForWord))
	assert.Empty(t, sink.chunks)
	assert.Empty(t, store.Tags(1))
}

func TestExportSelectionAbortsOnCycle(t *testing.T) {
	store := vocabtest.NewStore(vocabtest.ChineseModel)
	store.Add("Chinese", map[string]string{"Mandarin": "甲", "Decomposition": "乙"})
	store.Add("Chinese", map[string]string{"Mandarin": "乙", "Decomposition": "甲"})
	o := newTestOrchestrator(t, store, "Chinese")
	sink := &recordingSink{}

	_, err := o.ExportSelection(context.Background(), []string{"甲", "乙"}, sink)
	assert.True(t, errs.HasKind(err, errs.KindCycleDetected))
	assert.Empty(t, sink.chunks)
}

func TestExportSelectionHonoursCancellation(t *testing.T) {
	store := vocabtest.NewStore(vocabtest.ChineseModel)
	words := addChain(store, 4)
	o := newTestOrchestrator(t, store, "Chinese")
	o.ChunkSize = 2
	ctx, cancel := context.WithCancel(context.Background())
	sink := &cancellingSink{cancel: cancel}

	res, err := o.ExportSelection(ctx, words, sink)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Equal(t, 1, res.Chunks)
}

type cancellingSink struct {
	cancel context.CancelFunc
}

func (s *cancellingSink) Emit(ctx context.Context, chunk string) error {
	s.cancel()
	return nil
}

func (s *cancellingSink) Confirm(ctx context.Context, done, total int) (bool, error) {
	return true, nil
}
