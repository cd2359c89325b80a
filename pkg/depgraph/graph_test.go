package depgraph

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/japaniel/mmagic/pkg/errs"
	"github.com/japaniel/mmagic/pkg/fields"
	"github.com/japaniel/mmagic/pkg/vocab/vocabtest"
)

func graphOf(pairs ...interface{}) *Graph {
	g := New()
	for i := 0; i < len(pairs); i += 2 {
		g.Add(pairs[i].(string), pairs[i+1].([]string))
	}
	return g
}

func assertValidOrder(t *testing.T, g *Graph, order []string) {
	t.Helper()
	pos := make(map[string]int, len(order))
	for i, w := range order {
		pos[w] = i
	}
	for _, w := range g.Words() {
		for _, d := range g.Deps(w) {
			assert.Less(t, pos[d], pos[w], "%s must come before %s", d, w)
		}
	}
}

func TestSortChain(t *testing.T) {
	g := graphOf("A", []string{"B"}, "B", []string{"C"}, "C", []string{})
	order, err := Sort(g)
	require.NoError(t, err)
	assert.Equal(t, []string{"C", "B", "A"}, order)
}

func TestSortDetectsCycle(t *testing.T) {
	g := graphOf("A", []string{"B"}, "B", []string{"A"})
	order, err := Sort(g)
	require.Error(t, err)
	assert.Equal(t, errs.KindCycleDetected, errs.KindOf(err))
	assert.Empty(t, order)

	var e *errs.Error
	require.ErrorAs(t, err, &e)
	assert.Contains(t, []string{"A", "B"}, e.Word)
}

func TestSortCycleKeepsOrderablePart(t *testing.T) {
	g := graphOf(
		"root", []string{"x", "loop1"},
		"x", []string{},
		"loop1", []string{"loop2"},
		"loop2", []string{"loop1"},
	)
	order, err := Sort(g)
	require.Error(t, err)
	assert.Equal(t, []string{"x"}, order)

	var e *errs.Error
	require.ErrorAs(t, err, &e)
	assert.Contains(t, []string{"loop1", "loop2"}, e.Word, "the reported word lies on the cycle")
}

func TestSortIsDeterministicAndValid(t *testing.T) {
	g := graphOf(
		"你好嗎", []string{"你", "好", "嗎"},
		"你", []string{"亻", "尔"},
		"好", []string{"女", "子"},
		"嗎", []string{"口", "馬"},
		"馬", []string{},
	)
	first, err := Sort(g)
	require.NoError(t, err)
	assertValidOrder(t, g, first)
	assert.Equal(t, "你好嗎", first[len(first)-1])
	// Leaves that are not keys are still ordered.
	assert.Len(t, first, 10)

	for i := 0; i < 5; i++ {
		again, err := Sort(g)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestAddDropsDuplicatesAndSelf(t *testing.T) {
	g := New()
	g.Add("好", []string{"女", "好", "子", "女", ""})
	assert.Equal(t, []string{"女", "子"}, g.Deps("好"))
}

func TestInduced(t *testing.T) {
	all := map[string][]string{
		"好人": {"好", "人"},
		"好":  {"女", "子"},
		"女":  {},
	}
	g := Induced([]string{"好人", "好", "女"}, func(w string) []string { return all[w] })
	assert.Equal(t, []string{"好"}, g.Deps("好人"))
	assert.Equal(t, []string{"女"}, g.Deps("好"))

	order, err := Sort(g)
	require.NoError(t, err)
	assert.Equal(t, []string{"女", "好", "好人"}, order)
}

type mapDecomposer map[string][]string

func (m mapDecomposer) Components(word string) ([]string, error) {
	comps, ok := m[word]
	if !ok {
		return nil, fmt.Errorf("no data for %q", word)
	}
	return comps, nil
}

func TestBuildUsesRecordsThenDecomposition(t *testing.T) {
	store := vocabtest.NewStore(vocabtest.ChineseModel)
	store.Add("Chinese", map[string]string{"Mandarin": "好人", "Decomposition": "好, 人"})
	store.Add("Chinese", map[string]string{"Mandarin": "人", "Decomposition": "None"})
	dec := mapDecomposer{
		"好": {"女", "子"},
		"女": {},
		"子": {},
		// Records win over the decomposition source.
		"好人": {"unused"},
	}
	b := NewBuilder(store, fields.NewResolver(nil), dec)

	g, problems := b.Build(context.Background(), "好人")
	assert.Zero(t, problems.Len())
	assert.Equal(t, []string{"好人", "好", "人", "女", "子"}, g.Words())
	assert.Equal(t, []string{"好", "人"}, g.Deps("好人"))

	order, err := Sort(g)
	require.NoError(t, err)
	assert.Equal(t, "好人", order[len(order)-1])
	assertValidOrder(t, g, order)
}

func TestBuildCollectsProblemsAndContinues(t *testing.T) {
	store := vocabtest.NewStore(vocabtest.ChineseModel)
	store.Add("Chinese", map[string]string{"Mandarin": "根", "Decomposition": "甲, 乙, 丙, 丁"})
	store.Add("Chinese", map[string]string{"Mandarin": "甲"})
	store.Add("Chinese", map[string]string{"Mandarin": "乙", "Decomposition": "None"})
	store.Add("Chinese", map[string]string{"Mandarin": "乙", "Decomposition": "None"})
	dec := mapDecomposer{"丁": {}}
	b := NewBuilder(store, fields.NewResolver(nil), dec)

	g, problems := b.Build(context.Background(), "根")
	assert.Equal(t, 3, problems.Len())
	assert.True(t, errs.HasKind(problems, errs.KindMissingComponentList))
	assert.True(t, errs.HasKind(problems, errs.KindTooManyRecords))
	assert.True(t, errs.HasKind(problems, errs.KindDecompositionFailure))

	for _, w := range []string{"甲", "乙", "丙", "丁"} {
		assert.True(t, g.Has(w), w)
		assert.Empty(t, g.Deps(w), w)
	}
}

func TestBuildToleratesCycles(t *testing.T) {
	store := vocabtest.NewStore(vocabtest.ChineseModel)
	store.Add("Chinese", map[string]string{"Mandarin": "甲", "Decomposition": "乙"})
	store.Add("Chinese", map[string]string{"Mandarin": "乙", "Decomposition": "甲"})
	b := NewBuilder(store, fields.NewResolver(nil), mapDecomposer{})

	g, problems := b.Build(context.Background(), "甲")
	assert.Zero(t, problems.Len())
	assert.Equal(t, 2, g.Len())

	_, err := Sort(g)
	assert.True(t, errs.HasKind(err, errs.KindCycleDetected))
}
