package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/alecthomas/kong"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/Parallel-Corpus-Concordance/internal/chunk"
	"github.com/Adithya-Monish-Kumar-K/Parallel-Corpus-Concordance/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/Parallel-Corpus-Concordance/internal/dictionary"
	"github.com/Adithya-Monish-Kumar-K/Parallel-Corpus-Concordance/internal/ngrams"
	"github.com/Adithya-Monish-Kumar-K/Parallel-Corpus-Concordance/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/Parallel-Corpus-Concordance/pkg/errors"
)

func newEnv() (*env, *bytes.Buffer) {
	var buf bytes.Buffer
	return &env{ctx: context.Background(), cfg: config.Default(), out: &buf}, &buf
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// buildToy indexes a four-pair corpus split into chunks of two pairs.
func buildToy(t *testing.T) string {
	t.Helper()
	tmp := t.TempDir()
	src := writeFile(t, tmp, "en.txt", "the cat sat\nthe dog sat\nThe cat and the dog\na cat\n")
	tgt := writeFile(t, tmp, "pt.txt", "o gato sentou\no cão sentou\nO gato e o cão\num gato\n")
	out := filepath.Join(tmp, "animals")

	e, buf := newEnv()
	cmd := &BuildCmd{Out: out, SourceLang: "en", TargetLang: "pt", ChunkSize: 2, Source: src, Target: tgt}
	require.NoError(t, cmd.Run(e))
	assert.Contains(t, buf.String(), "animals: 2 chunks, 4 sentence pairs, 0 skipped")
	return out
}

func TestBuildAndInfo(t *testing.T) {
	dir := buildToy(t)

	e, buf := newEnv()
	require.NoError(t, (&InfoCmd{Dir: dir}).Run(e))
	out := buf.String()
	assert.Contains(t, out, "name=animals\n")
	assert.Contains(t, out, "source-language=en\n")
	assert.Contains(t, out, "chunk 1: 2 sentences, ranked=false\n")
	assert.Contains(t, out, "chunk 2: 2 sentences, ranked=false\n")
	assert.Contains(t, out, "source: dictionary=false ngrams=false\n")
}

func TestGrep(t *testing.T) {
	dir := buildToy(t)

	e, buf := newEnv()
	require.NoError(t, (&GrepCmd{Dir: dir, Terms: []string{"dog"}}).Run(e))
	assert.Equal(t, "the dog sat\no cão sentou\n\nThe cat and the dog\nO gato e o cão\n\n", buf.String())

	e, buf = newEnv()
	require.NoError(t, (&GrepCmd{Dir: dir, Terms: []string{"gato"}, Target: true, Limit: 1}).Run(e))
	assert.Equal(t, "the cat sat\no gato sentou\n\n", buf.String())

	e, _ = newEnv()
	assert.Error(t, (&GrepCmd{Dir: dir, Terms: []string{"cat"}, Target: true, Both: true}).Run(e))
}

func TestRank(t *testing.T) {
	dir := buildToy(t)
	scores := writeFile(t, t.TempDir(), "scores.txt", "0.75\n\n0.5\n")

	e, buf := newEnv()
	require.NoError(t, (&RankCmd{Dir: dir, Chunk: 2, Scores: scores}).Run(e))
	assert.Equal(t, "chunk 2: 2 scores written\n", buf.String())
	ranks, err := chunk.ReadRanks(chunk.Layout{Dir: dir}.Rank(2), 2)
	require.NoError(t, err)
	assert.Equal(t, []float64{0.75, 0.5}, ranks)

	e, buf = newEnv()
	require.NoError(t, (&GrepCmd{Dir: dir, Terms: []string{"a", "cat"}, Exact: true}).Run(e))
	assert.Equal(t, "% 0.500000\na cat\num gato\n\n", buf.String())

	short := writeFile(t, t.TempDir(), "short.txt", "0.1\n")
	e, _ = newEnv()
	assert.ErrorIs(t, (&RankCmd{Dir: dir, Chunk: 1, Scores: short}).Run(e), apperrors.ErrFormat)
	e, _ = newEnv()
	assert.ErrorIs(t, (&RankCmd{Dir: dir, Chunk: 3, Scores: scores}).Run(e), apperrors.ErrOutOfRange)
}

func TestNgrams(t *testing.T) {
	dir := buildToy(t)

	e, buf := newEnv()
	require.NoError(t, (&NgramsCmd{Dir: dir, Side: "source"}).Run(e))
	assert.Equal(t, "source: 4 sentences, 9 bigrams, 5 trigrams, 2 tetragrams\n", buf.String())

	db, err := ngrams.Open(chunk.Layout{Dir: dir}.Ngrams(corpus.Source))
	require.NoError(t, err)
	defer db.Close()
	_, err = os.Stat(chunk.Layout{Dir: dir}.Ngrams(corpus.Target))
	assert.True(t, os.IsNotExist(err))
}

func TestDict(t *testing.T) {
	dir := buildToy(t)
	table := writeFile(t, t.TempDir(), "en-pt.tsv", "cat gato 0.8\ncat o 0.1\nzebra zebra 1\n")

	e, buf := newEnv()
	require.NoError(t, (&DictCmd{Dir: dir, Table: table}).Run(e))
	assert.Equal(t, "source dictionary: 1 words from 3 lines, 1 lines with unknown words\n", buf.String())

	d, err := dictionary.Load(chunk.Layout{Dir: dir}.Dictionary(corpus.Source))
	require.NoError(t, err)
	assert.Greater(t, d.Size(), 0)
}

func TestCLIParsing(t *testing.T) {
	parser, err := kong.New(&cli, kong.Name("natctl"), kong.Exit(func(int) { t.Fatal("unexpected exit") }))
	require.NoError(t, err)

	dir := t.TempDir()
	_, err = parser.Parse([]string{"grep", "-t", "-n", "5", dir, "gato", "*"})
	require.NoError(t, err)
	assert.True(t, cli.Grep.Target)
	assert.Equal(t, 5, cli.Grep.Limit)
	assert.Equal(t, []string{"gato", "*"}, cli.Grep.Terms)

	_, err = parser.Parse([]string{"query", "--", "-> 1 cat"})
	require.NoError(t, err)
	assert.Equal(t, "-> 1 cat", strings.Join(cli.Query.Request, " "))
}
