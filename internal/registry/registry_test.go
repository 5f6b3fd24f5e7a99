package registry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/Parallel-Corpus-Concordance/internal/chunk"
	"github.com/Adithya-Monish-Kumar-K/Parallel-Corpus-Concordance/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/Parallel-Corpus-Concordance/internal/ngrams"
	"github.com/Adithya-Monish-Kumar-K/Parallel-Corpus-Concordance/internal/registry/registrytest"
	"github.com/Adithya-Monish-Kumar-K/Parallel-Corpus-Concordance/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/Parallel-Corpus-Concordance/pkg/errors"
)

func TestOpenAndGet(t *testing.T) {
	toy := registrytest.Build(t, "toy", registrytest.ToySource, registrytest.ToyTarget)
	other := registrytest.Build(t, "other", []string{"a b"}, []string{"c d"})

	r, err := Open(context.Background(), []config.CorpusConfig{
		{Name: "toy", Dir: toy},
		{Name: "second", Dir: other},
	})
	require.NoError(t, err)
	defer r.Close()

	assert.Equal(t, 2, r.Len())
	c, err := r.Get(1)
	require.NoError(t, err)
	assert.Equal(t, "toy", c.Name)
	assert.Equal(t, 1, c.ID)

	c2, err := r.Get(2)
	require.NoError(t, err)
	assert.Equal(t, "second", c2.Name)
	name, _ := c2.Config("name")
	assert.Equal(t, "second", name)

	for _, id := range []int{0, 3, -1} {
		_, err := r.Get(id)
		assert.ErrorIs(t, err, apperrors.ErrUnknownCorpus, "id %d", id)
	}
}

func TestCorpusConfig(t *testing.T) {
	dir := registrytest.Build(t, "toy", registrytest.ToySource, registrytest.ToyTarget)
	c, err := OpenCorpus(context.Background(), 1, "", dir)
	require.NoError(t, err)
	defer c.Close()

	assert.Equal(t, "toy", c.Name)
	home, ok := c.Config("homedir")
	require.True(t, ok)
	assert.Equal(t, dir, home)
	sentences, _ := c.Config("sentences")
	assert.Equal(t, "2", sentences)
	lang, _ := c.Config("target-language")
	assert.Equal(t, "pt", lang)
	_, ok = c.Config("missing")
	assert.False(t, ok)
	assert.IsIncreasing(t, c.ConfigKeys())
}

func TestCorpusRetrieve(t *testing.T) {
	dir := registrytest.Build(t, "toy", registrytest.ToySource, registrytest.ToyTarget)
	c, err := OpenCorpus(context.Background(), 1, "toy", dir)
	require.NoError(t, err)
	defer c.Close()

	cells, quality, err := c.RetrieveSentence(corpus.Target, 1, 1)
	require.NoError(t, err)
	assert.Equal(t, chunk.NoRank, quality)
	assert.Equal(t, 3, corpus.SentenceLength(cells))
	word, _ := c.Lexicon(corpus.Target).Word(cells[1].Word)
	assert.Equal(t, "cão", word)

	cat, ok := c.Lexicon(corpus.Source).ID("cat")
	require.True(t, ok)
	assert.Len(t, c.Index(corpus.Source).Postings(cat), 1)
}

func TestOptionalResources(t *testing.T) {
	dir := registrytest.Build(t, "toy", registrytest.ToySource, registrytest.ToyTarget)
	c, err := OpenCorpus(context.Background(), 1, "toy", dir)
	require.NoError(t, err)
	defer c.Close()

	_, err = c.Dictionary(corpus.Source)
	assert.ErrorIs(t, err, apperrors.ErrNotAvailable)
	_, err = c.Ngrams(corpus.Source)
	assert.ErrorIs(t, err, apperrors.ErrNotAvailable)

	src, err := corpus.Load(chunk.Layout{Dir: dir}.Corpus(corpus.Source, 1))
	require.NoError(t, err)
	_, err = ngrams.Build(context.Background(), chunk.Layout{Dir: dir}.Ngrams(corpus.Source), src)
	require.NoError(t, err)

	db, err := c.Ngrams(corpus.Source)
	require.NoError(t, err)
	again, err := c.Ngrams(corpus.Source)
	require.NoError(t, err)
	assert.Same(t, db, again)
}

func TestOpenFailsOnMissingDir(t *testing.T) {
	_, err := Open(context.Background(), []config.CorpusConfig{{Name: "x", Dir: t.TempDir()}})
	assert.Error(t, err)
}
