package ngrams

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/Parallel-Corpus-Concordance/internal/corpus"
	apperrors "github.com/Adithya-Monish-Kumar-K/Parallel-Corpus-Concordance/pkg/errors"
)

func toyCorpus(sentences ...[]corpus.WordID) *corpus.Corpus {
	c := corpus.New()
	for _, s := range sentences {
		for _, w := range s {
			c.AddWord(w, 0)
		}
		c.EndSentence()
	}
	return c
}

func TestBuildAndLookup(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "source.ngrams")

	// 2 3 4 | 2 3 5 | 2 3
	c := toyCorpus([]corpus.WordID{2, 3, 4}, []corpus.WordID{2, 3, 5}, []corpus.WordID{2, 3})
	counts, err := Build(ctx, path, c)
	require.NoError(t, err)
	assert.Equal(t, 3, counts.Sentences)
	assert.Equal(t, 5, counts.Grams[2])
	assert.Equal(t, 2, counts.Grams[3])
	assert.Zero(t, counts.Grams[4])

	db, err := Open(path)
	require.NoError(t, err)
	defer db.Close()

	grams, err := db.Lookup(ctx, []corpus.WordID{2, corpus.Wildcard}, 10)
	require.NoError(t, err)
	require.Len(t, grams, 1)
	assert.Equal(t, Gram{Words: []corpus.WordID{2, 3}, Count: 3}, grams[0])

	grams, err = db.Lookup(ctx, []corpus.WordID{corpus.Wildcard, corpus.Wildcard}, 10)
	require.NoError(t, err)
	require.Len(t, grams, 3)
	assert.Equal(t, int64(3), grams[0].Count)
	assert.Equal(t, []corpus.WordID{3, 4}, grams[1].Words)

	grams, err = db.Lookup(ctx, []corpus.WordID{2, 3, 5}, 10)
	require.NoError(t, err)
	require.Len(t, grams, 1)
	assert.Equal(t, int64(1), grams[0].Count)

	grams, err = db.Lookup(ctx, []corpus.WordID{corpus.Wildcard, corpus.Wildcard}, 1)
	require.NoError(t, err)
	assert.Len(t, grams, 1)
}

func TestLookupArity(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "t.ngrams")
	_, err := Build(ctx, path, toyCorpus([]corpus.WordID{2, 3}))
	require.NoError(t, err)
	db, err := Open(path)
	require.NoError(t, err)
	defer db.Close()

	_, err = db.Lookup(ctx, []corpus.WordID{2}, 10)
	assert.ErrorIs(t, err, apperrors.ErrSyntax)
	_, err = db.Lookup(ctx, []corpus.WordID{2, 3, 4, 5, 6}, 10)
	assert.ErrorIs(t, err, apperrors.ErrSyntax)
}

func TestOpenMissing(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "absent.ngrams"))
	assert.ErrorIs(t, err, apperrors.ErrNotAvailable)
}

func TestBuildReplacesExisting(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "r.ngrams")
	_, err := Build(ctx, path, toyCorpus([]corpus.WordID{2, 3}))
	require.NoError(t, err)
	_, err = Build(ctx, path, toyCorpus([]corpus.WordID{4, 5}))
	require.NoError(t, err)

	db, err := Open(path)
	require.NoError(t, err)
	defer db.Close()
	grams, err := db.Lookup(ctx, []corpus.WordID{corpus.Wildcard, corpus.Wildcard}, 10)
	require.NoError(t, err)
	require.Len(t, grams, 1)
	assert.Equal(t, []corpus.WordID{4, 5}, grams[0].Words)
}
