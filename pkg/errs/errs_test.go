package errs

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollectionDeduplicatesNestedMessages(t *testing.T) {
	a := &Collection{}
	a.Append(NoDictionaryEntry("X"))
	b := &Collection{}
	b.Append(NoDictionaryEntry("X"))

	all := &Collection{}
	all.Append(a)
	all.Append(b)

	assert.Equal(t, 2, all.Len())
	assert.Equal(t, []string{`No dictionary entry for "X"`}, all.Messages())
	assert.Equal(t, `No dictionary entry for "X"`, all.Error())
}

func TestCollectionNumbersDistinctMessages(t *testing.T) {
	c := &Collection{}
	c.Append(TooManyRecords("好"))
	c.Append(NoDictionaryEntry("好"))
	c.Append(TooManyRecords("好"))

	assert.Equal(t, "1. More than one note for \"好\"\n2. No dictionary entry for \"好\"", c.Error())
}

func TestErrOrNil(t *testing.T) {
	var c Collection
	require.NoError(t, c.ErrOrNil())

	c.Append(nil)
	c.Append(&Collection{})
	require.NoError(t, c.ErrOrNil())

	c.Append(FieldEmpty("Hanzi"))
	err := c.ErrOrNil()
	require.Error(t, err)

	var got *Collection
	require.True(t, errors.As(err, &got))
	assert.Equal(t, 1, got.Len())
}

func TestHasKindSearchesNested(t *testing.T) {
	inner := &Collection{}
	inner.Append(MissingComponentList("你"))
	outer := &Collection{}
	outer.Append(errors.New("plain"))
	outer.Append(inner)

	assert.True(t, HasKind(outer, KindMissingComponentList))
	assert.False(t, HasKind(outer, KindCycleDetected))
	assert.True(t, HasKind(CycleDetected("A"), KindCycleDetected))
	assert.False(t, HasKind(nil, KindCycleDetected))
}

func TestDecompositionFailureUnwraps(t *testing.T) {
	cause := errors.New("no data")
	err := DecompositionFailure("龘", cause)

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, KindDecompositionFailure, KindOf(err))
	assert.Contains(t, err.Error(), "no data")
}

func TestFieldMessagesListNames(t *testing.T) {
	err := FieldAmbiguous("Basic", []string{"Front", "Hanzi"})
	assert.Contains(t, err.Error(), `"Front", "Hanzi"`)
	assert.Contains(t, err.Error(), "at most one")

	err = FieldMissing("Basic", []string{"Pinyin", "Reading"})
	assert.Contains(t, err.Error(), `"Pinyin", "Reading"`)
}
