// Package registrytest builds small corpus directories for tests.
package registrytest

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/Parallel-Corpus-Concordance/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/Parallel-Corpus-Concordance/pkg/config"
)

var (
	ToySource = []string{"the cat sat", "the dog sat"}
	ToyTarget = []string{"o gato sentou", "o cão sentou"}
)

// Build indexes the aligned lines into a fresh temporary corpus directory
// and returns its path.
func Build(tb testing.TB, name string, src, tgt []string) string {
	tb.Helper()
	return BuildWith(tb, config.Default().Indexer, name, src, tgt)
}

func BuildWith(tb testing.TB, cfg config.IndexerConfig, name string, src, tgt []string) string {
	tb.Helper()
	dir := tb.TempDir()
	e, err := indexer.NewEngine(cfg, dir)
	require.NoError(tb, err)
	_, err = e.Build(context.Background(),
		strings.NewReader(strings.Join(src, "\n")+"\n"),
		strings.NewReader(strings.Join(tgt, "\n")+"\n"))
	require.NoError(tb, err)
	_, err = e.Finish(indexer.Meta{Name: name, SourceLanguage: "en", TargetLanguage: "pt"})
	require.NoError(tb, err)
	return dir
}
