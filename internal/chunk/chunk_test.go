package chunk

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/Parallel-Corpus-Concordance/internal/corpus"
	apperrors "github.com/Adithya-Monish-Kumar-K/Parallel-Corpus-Concordance/pkg/errors"
)

func writeChunk(t *testing.T, layout Layout, id uint8, src, tgt [][]corpus.WordID) {
	t.Helper()
	for side, sentences := range map[corpus.Side][][]corpus.WordID{corpus.Source: src, corpus.Target: tgt} {
		c := corpus.New()
		for _, s := range sentences {
			for _, w := range s {
				c.AddWord(w, 0)
			}
			c.EndSentence()
		}
		require.NoError(t, c.Save(layout.Corpus(side, id)))
	}
}

func TestLayoutNames(t *testing.T) {
	l := Layout{Dir: "/c"}
	assert.Equal(t, "/c/source.007.crp", l.Corpus(corpus.Source, 7))
	assert.Equal(t, "/c/target.120.crp", l.Corpus(corpus.Target, 120))
	assert.Equal(t, "/c/rank.001.rnk", l.Rank(1))
	assert.Equal(t, "/c/source-target.dic", l.Dictionary(corpus.Source))
	assert.Equal(t, "/c/target-source.dic", l.Dictionary(corpus.Target))
	assert.Equal(t, "/c/target.invidx", l.Index(corpus.Target))
	assert.Equal(t, "/c/corpus.yaml", l.Meta())
}

func TestManagerRetrieve(t *testing.T) {
	layout := Layout{Dir: t.TempDir()}
	writeChunk(t, layout, 1, [][]corpus.WordID{{2, 3}, {4}}, [][]corpus.WordID{{5}, {6, 7}})
	writeChunk(t, layout, 2, [][]corpus.WordID{{8}}, [][]corpus.WordID{{9}})
	require.NoError(t, WriteRanks(layout.Rank(2), []float64{0.75}))

	m, err := Open(context.Background(), layout, 2)
	require.NoError(t, err)
	defer m.Close()

	assert.Equal(t, 2, m.NrChunks())
	assert.Equal(t, 2, m.Sentences(1))
	assert.Equal(t, 3, m.TotalSentences())

	cells, q, err := m.RetrieveSentence(corpus.Target, 1, 1)
	require.NoError(t, err)
	assert.Equal(t, []corpus.Cell{{Word: 6}, {Word: 7}, {Word: 0}}, cells)
	assert.Equal(t, NoRank, q)
	assert.False(t, m.Ranks().HasRank())

	cells, q, err = m.RetrieveSentence(corpus.Source, 2, 0)
	require.NoError(t, err)
	assert.Equal(t, corpus.WordID(8), cells[0].Word)
	assert.Equal(t, 0.75, q)
	assert.True(t, m.Ranks().HasRank())

	_, _, err = m.RetrieveSentence(corpus.Source, 3, 0)
	assert.ErrorIs(t, err, apperrors.ErrOutOfRange)
	_, _, err = m.RetrieveSentence(corpus.Source, 0, 0)
	assert.ErrorIs(t, err, apperrors.ErrOutOfRange)
	_, _, err = m.RetrieveSentence(corpus.Source, 2, 1)
	assert.ErrorIs(t, err, apperrors.ErrOutOfRange)
}

func TestOpenRejectsMisalignedChunk(t *testing.T) {
	layout := Layout{Dir: t.TempDir()}
	writeChunk(t, layout, 1, [][]corpus.WordID{{2}, {3}}, [][]corpus.WordID{{4}})

	_, err := Open(context.Background(), layout, 1)
	assert.ErrorIs(t, err, apperrors.ErrFormat)
}

func TestOpenMissingChunk(t *testing.T) {
	layout := Layout{Dir: t.TempDir()}
	writeChunk(t, layout, 1, [][]corpus.WordID{{2}}, [][]corpus.WordID{{3}})

	_, err := Open(context.Background(), layout, 2)
	assert.Error(t, err)

	_, err = Open(context.Background(), layout, 0)
	assert.ErrorIs(t, err, apperrors.ErrOutOfRange)
}

func TestRankCacheAlternatesSlots(t *testing.T) {
	dir := t.TempDir()
	files := make([]string, 3)
	for i := range files {
		files[i] = filepath.Join(dir, "rank."+string(rune('a'+i)))
		require.NoError(t, WriteRanks(files[i], []float64{float64(i), 1}))
	}

	c := NewRankCache()
	r, ok := c.Load(files[0], 2)
	require.True(t, ok)
	assert.Equal(t, []float64{0, 1}, r)
	_, ok = c.Load(files[1], 2)
	require.True(t, ok)
	assert.Equal(t, []string{files[0], files[1]}, c.Cached())

	_, ok = c.Load(files[0], 2)
	require.True(t, ok)
	assert.Equal(t, int64(1), c.Hits())

	// third file evicts the older slot
	_, ok = c.Load(files[2], 2)
	require.True(t, ok)
	assert.Equal(t, []string{files[1], files[2]}, c.Cached())
	assert.Equal(t, int64(3), c.Misses())
}

func TestRankCacheMissingAndShortFiles(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "good.rnk")
	require.NoError(t, WriteRanks(good, []float64{0.5}))
	short := filepath.Join(dir, "short.rnk")
	require.NoError(t, os.WriteFile(short, []byte{1, 2, 3}, 0o644))

	c := NewRankCache()
	_, ok := c.Load(good, 1)
	require.True(t, ok)
	assert.True(t, c.HasRank())

	_, ok = c.Load(filepath.Join(dir, "absent.rnk"), 1)
	assert.False(t, ok)
	assert.False(t, c.HasRank())

	_, ok = c.Load(short, 1)
	assert.False(t, ok)

	// a cached file restores the flag
	_, ok = c.Load(good, 1)
	assert.True(t, ok)
	assert.True(t, c.HasRank())
}
