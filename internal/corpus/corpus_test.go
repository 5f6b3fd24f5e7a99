package corpus

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/Adithya-Monish-Kumar-K/Parallel-Corpus-Concordance/pkg/errors"
)

func build(sentences ...[]WordID) *Corpus {
	c := New()
	for _, s := range sentences {
		for _, w := range s {
			c.AddWord(w, 0)
		}
		c.EndSentence()
	}
	return c
}

func words(cells []Cell) []WordID {
	out := make([]WordID, 0, len(cells))
	for _, c := range cells {
		out = append(out, c.Word)
	}
	return out
}

func TestOffsetsTrackTerminators(t *testing.T) {
	c := build([]WordID{2, 3, 4}, []WordID{2, 5}, []WordID{6})
	assert.Equal(t, []uint32{0, 4, 7, 9}, c.Offsets())
	assert.Equal(t, 3, c.Sentences())
	assert.Equal(t, WordID(6), c.MaxWordID())

	s, ok := c.Sentence(1)
	require.True(t, ok)
	assert.Equal(t, []WordID{2, 5, 0}, words(s))
	_, ok = c.Sentence(3)
	assert.False(t, ok)
}

func TestCursor(t *testing.T) {
	c := build([]WordID{2, 3}, []WordID{4}, []WordID{5, 6, 7})

	s, ok := c.FirstSentence()
	require.True(t, ok)
	assert.Equal(t, 2, SentenceLength(s))

	var lengths []int
	for s, ok := c.NextSentence(); ok; s, ok = c.NextSentence() {
		lengths = append(lengths, SentenceLength(s))
	}
	assert.Equal(t, []int{1, 3}, lengths)

	// the cursor rewinds after reaching the end
	s, ok = c.NextSentence()
	require.True(t, ok)
	assert.Equal(t, []WordID{4, 0}, words(s))
}

func TestCursorEmpty(t *testing.T) {
	c := New()
	_, ok := c.FirstSentence()
	assert.False(t, ok)
	_, ok = c.NextSentence()
	assert.False(t, ok)
}

func TestSaveLoadRetrieve(t *testing.T) {
	path := filepath.Join(t.TempDir(), "source.001.crp")
	c := New()
	c.AddWord(2, FlagCapital)
	c.AddWord(3, 0)
	c.EndSentence()
	c.AddWord(4, FlagUpper)
	c.EndSentence()
	require.NoError(t, c.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, c.Cells(), loaded.Cells())
	assert.Nil(t, loaded.Offsets())

	offsets, err := LoadOffsets(path)
	require.NoError(t, err)
	assert.Equal(t, []uint32{0, 3, 5}, offsets)

	n, err := SentenceCount(path)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	cells, err := Retrieve(path, offsets, 1)
	require.NoError(t, err)
	assert.Equal(t, []Cell{{Word: 4, Flags: FlagUpper}, {Word: 0}}, cells)

	_, err = Retrieve(path, offsets, 2)
	assert.ErrorIs(t, err, apperrors.ErrOutOfRange)
}

func TestLoadTruncated(t *testing.T) {
	path := filepath.Join(t.TempDir(), "c.crp")
	require.NoError(t, build([]WordID{2, 3, 4}).Save(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data[:len(data)-CellSize], 0o644))

	_, err = Load(path)
	assert.ErrorIs(t, err, apperrors.ErrFormat)
}

func TestSentenceCountMissingIndex(t *testing.T) {
	n, err := SentenceCount(filepath.Join(t.TempDir(), "absent"))
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestReaderSharedAcrossSentences(t *testing.T) {
	path := filepath.Join(t.TempDir(), "c.crp")
	c := build([]WordID{2, 3}, []WordID{4, 5, 6})
	require.NoError(t, c.Save(path))

	r, err := OpenReader(path)
	require.NoError(t, err)
	defer r.Close()

	for i := 0; i < c.Sentences(); i++ {
		want, _ := c.Sentence(i)
		got, err := r.ReadSentence(c.Offsets(), i)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
}

func TestRecase(t *testing.T) {
	assert.Equal(t, "CAT", Recase("cat", FlagUpper))
	assert.Equal(t, "Cat", Recase("cat", FlagCapital))
	assert.Equal(t, "Édito", Recase("édito", FlagCapital))
	assert.Equal(t, "cat", Recase("cat", 0))
	assert.Equal(t, "", Recase("", FlagCapital))
}

func TestSaveLoadRoundTripProperty(t *testing.T) {
	dir := t.TempDir()
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50
	properties := gopter.NewProperties(parameters)

	properties.Property("save then load preserves cells and offsets", prop.ForAll(
		func(sentences [][]uint32) bool {
			c := build(sentences...)
			path := filepath.Join(dir, "prop.crp")
			if err := c.Save(path); err != nil {
				return false
			}
			loaded, err := Load(path)
			if err != nil {
				return false
			}
			if !assert.ObjectsAreEqual(c.Cells(), loaded.Cells()) {
				return false
			}
			loaded.RebuildOffsets()
			saved, err := LoadOffsets(path)
			if err != nil {
				return false
			}
			return assert.ObjectsAreEqual(saved, loaded.Offsets())
		},
		gen.SliceOf(gen.SliceOf(gen.UInt32Range(2, 1000))),
	))

	properties.TestingRun(t)
}
