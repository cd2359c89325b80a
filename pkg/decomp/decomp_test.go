package decomp

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/japaniel/mmagic/pkg/dictionary"
)

const sampleTable = `# sample
好:a(女,子)
女:c
子:c()
20012:a(口,口)
品:stl(口,20012)
你:a(亻,尔)
亻:c
尔:c
`

// fakeSegmenter splits on spaces; text without spaces is one word.
type fakeSegmenter struct{}

func (fakeSegmenter) Segment(text string, _ dictionary.Script) ([]string, error) {
	if strings.TrimSpace(text) == "" {
		return nil, errors.New("empty")
	}
	return strings.Fields(text), nil
}

func newTestSource(t *testing.T) *Source {
	t.Helper()
	table, err := ParseTable(strings.NewReader(sampleTable))
	require.NoError(t, err)
	return NewSource(table, fakeSegmenter{})
}

func TestDecomposeCharacter(t *testing.T) {
	s := newTestSource(t)

	got, err := s.DecomposeCharacter("好")
	require.NoError(t, err)
	assert.Equal(t, []string{"女", "子"}, got)

	got, err = s.DecomposeCharacter("女")
	require.NoError(t, err)
	assert.Empty(t, got)

	// Intermediate shapes expand and duplicates collapse.
	got, err = s.DecomposeCharacter("品")
	require.NoError(t, err)
	assert.Equal(t, []string{"口"}, got)

	_, err = s.DecomposeCharacter("龘")
	assert.ErrorIs(t, err, ErrNoData)

	_, err = s.DecomposeCharacter("好好")
	assert.ErrorIs(t, err, ErrNotCharacter)
}

func TestDecomposeWord(t *testing.T) {
	s := newTestSource(t)

	got, err := s.DecomposeWord("好好學習")
	require.NoError(t, err)
	assert.Equal(t, []string{"好", "學", "習"}, got)

	_, err = s.DecomposeWord("abc")
	assert.ErrorIs(t, err, ErrNoCharacters)
}

func TestClassify(t *testing.T) {
	s := newTestSource(t)

	c, err := s.Classify("好")
	require.NoError(t, err)
	assert.Equal(t, Character, c.Kind)

	c, err = s.Classify("你好")
	require.NoError(t, err)
	assert.Equal(t, Word, c.Kind)
	assert.Equal(t, []string{"你", "好"}, c.Components)

	c, err = s.Classify("我 喜歡 書")
	require.NoError(t, err)
	assert.Equal(t, Sentence, c.Kind)
	assert.Equal(t, []string{"我", "喜歡", "書"}, c.Components)

	c, err = s.Classify("龘")
	assert.Error(t, err)
	assert.Equal(t, Character, c.Kind)
}

func TestClassifyWithoutSegmenter(t *testing.T) {
	s := NewSource(nil, nil)
	c, err := s.Classify("你好")
	assert.ErrorIs(t, err, ErrNoSegmenter)
	assert.Equal(t, Word, c.Kind)
}

func TestExtractCJKRuns(t *testing.T) {
	text := `<span class="x">女</span>, 子 100% 好人`
	tmpl, runs := ExtractCJKRuns(text)

	assert.Equal(t, `<span class="x">%s</span>, %s 100%% %s`, tmpl)
	assert.Equal(t, []string{"女", "子", "好人"}, runs)

	args := make([]any, len(runs))
	for i, r := range runs {
		args[i] = r
	}
	assert.Equal(t, text, fmt.Sprintf(tmpl, args...))
}

func TestFormatAndParseComponents(t *testing.T) {
	v, err := FormatComponents([]string{"女", "子"})
	require.NoError(t, err)
	assert.Equal(t, "女, 子", v)

	v, err = FormatComponents(nil)
	require.NoError(t, err)
	assert.Equal(t, NoComponents, v)

	_, err = FormatComponents([]string{"a,b"})
	assert.Error(t, err)

	comps, computed := ParseComponents(`<span class="mmagic-missing">女</span>, 子，女`)
	assert.True(t, computed)
	assert.Equal(t, []string{"女", "子"}, comps)

	comps, computed = ParseComponents("None")
	assert.True(t, computed)
	assert.Empty(t, comps)

	_, computed = ParseComponents("  <br> ")
	assert.False(t, computed)
}
