package executor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/Parallel-Corpus-Concordance/internal/chunk"
	"github.com/Adithya-Monish-Kumar-K/Parallel-Corpus-Concordance/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/Parallel-Corpus-Concordance/internal/lexicon"
	"github.com/Adithya-Monish-Kumar-K/Parallel-Corpus-Concordance/internal/registry"
	"github.com/Adithya-Monish-Kumar-K/Parallel-Corpus-Concordance/internal/registry/registrytest"
	"github.com/Adithya-Monish-Kumar-K/Parallel-Corpus-Concordance/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/Parallel-Corpus-Concordance/pkg/errors"
)

var (
	animalsSource = []string{"the cat sat", "the dog sat", "The cat and the dog", "a cat"}
	animalsTarget = []string{"o gato sentou", "o cão sentou", "O gato e o cão", "um gato"}
)

func openCorpus(t *testing.T, src, tgt []string, ranks []float64) *registry.Corpus {
	t.Helper()
	dir := registrytest.Build(t, "animals", src, tgt)
	if ranks != nil {
		require.NoError(t, chunk.WriteRanks(chunk.Layout{Dir: dir}.Rank(1), ranks))
	}
	c, err := registry.OpenCorpus(context.Background(), 1, "animals", dir)
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

func newExecutor() *Executor {
	return New(config.Default().Search)
}

func run(t *testing.T, c Corpus, q Query) []TranslationUnit {
	t.Helper()
	var out Collector
	_, err := newExecutor().Execute(context.Background(), c, q, &out)
	require.NoError(t, err)
	return out.Units
}

func query(verb string, tokens string) Query {
	q := Query{Tokens: strings.Fields(tokens)}
	switch verb {
	case "->":
		q.Direction = 1
	case "<-":
		q.Direction = -1
	case "=>":
		q.Direction, q.Exact = 1, true
	case "<=":
		q.Direction, q.Exact = -1, true
	case "<->":
		q.Direction, q.Both = 1, true
	case "<=>":
		q.Direction, q.Both, q.Exact = 1, true, true
	}
	return q
}

func TestToyCorpusForwardQuery(t *testing.T) {
	c := openCorpus(t, registrytest.ToySource, registrytest.ToyTarget, nil)
	units := run(t, c, query("->", "cat"))
	assert.Equal(t, []TranslationUnit{{Quality: -1, Source: "the cat sat", Target: "o gato sentou"}}, units)
}

func TestQueries(t *testing.T) {
	c := openCorpus(t, animalsSource, animalsTarget, nil)

	tests := []struct {
		verb    string
		tokens  string
		sources []string
	}{
		{"->", "cat", []string{"the cat sat", "The cat and the dog", "a cat"}},
		{"->", "cat sat", []string{"the cat sat"}},
		{"=>", "the cat", []string{"the cat sat", "The cat and the dog"}},
		{"=>", "cat the", nil},
		{"=>", "the * sat", []string{"the cat sat", "the dog sat"}},
		{"=>", "* cat", nil},
		{"->", "* cat", nil},
		{"->", "cat * sat", []string{"the cat sat"}},
		{"<-", "gato", []string{"the cat sat", "The cat and the dog", "a cat"}},
		{"<=", "o gato", []string{"the cat sat", "The cat and the dog"}},
		{"<=", "gato o", nil},
		{"<=>", "cat <=> gato", []string{"the cat sat", "The cat and the dog", "a cat"}},
		{"<=>", "cat <=> cão", []string{"The cat and the dog"}},
		{"<=>", "cat <=> o *", []string{"the cat sat", "The cat and the dog"}},
		{"<->", "cat <-> cão", []string{"the cat sat", "The cat and the dog", "a cat"}},
		{"=>", "cat <-> gato", []string{"the cat sat", "The cat and the dog", "a cat"}},
		{"->", "zebra", nil},
		{"->", "cat zebra", nil},
		{"<=>", "cat <=> zebra", nil},
		{"->", "* *", nil},
		{"->", "cat #1", []string{"the cat sat"}},
		{"->", "cat #0", []string{"the cat sat"}},
		{"->", "cat #2 dog", []string{"the cat sat", "The cat and the dog"}},
		{"->", "cat #x", nil},
		{"->", "cat #-5", nil},
	}
	for _, tt := range tests {
		t.Run(tt.verb+" "+tt.tokens, func(t *testing.T) {
			var got []string
			for _, u := range run(t, c, query(tt.verb, tt.tokens)) {
				got = append(got, u.Source)
			}
			assert.Equal(t, tt.sources, got)
		})
	}
}

func TestQueryRendersCaseAndTarget(t *testing.T) {
	c := openCorpus(t, animalsSource, animalsTarget, nil)
	units := run(t, c, query("->", "dog"))
	require.Len(t, units, 2)
	assert.Equal(t, "The cat and the dog", units[1].Source)
	assert.Equal(t, "O gato e o cão", units[1].Target)
}

func TestQuerySyntaxErrors(t *testing.T) {
	c := openCorpus(t, animalsSource, animalsTarget, nil)
	tests := []Query{
		query("<->", "<-> cat"),
		query("<-", "gato <-> cat"),
		query("<=>", "cat <=> gato <=> x"),
		query("->", "#5"),
		query("->", "cat #5x"),
		query("->", ""),
		{Tokens: []string{"cat"}},
	}
	for _, q := range tests {
		t.Run(strings.Join(q.Tokens, " "), func(t *testing.T) {
			_, err := newExecutor().Execute(context.Background(), c, q, &Collector{})
			assert.ErrorIs(t, err, apperrors.ErrSyntax)
		})
	}
}

func TestQueryFoldCase(t *testing.T) {
	c := openCorpus(t, animalsSource, animalsTarget, nil)
	q := query("->", "THE")
	assert.Empty(t, run(t, c, q))
	q.FoldCase = true
	assert.Len(t, run(t, c, q), 3)
}

func TestQueryQualityFromRanks(t *testing.T) {
	c := openCorpus(t, animalsSource, animalsTarget, []float64{0.5, 0.25, 0.75, 1})
	units := run(t, c, query("->", "cat"))
	require.Len(t, units, 3)
	assert.Equal(t, 0.5, units[0].Quality)
	assert.Equal(t, 0.75, units[1].Quality)
	assert.Equal(t, 1.0, units[2].Quality)
}

func TestSinkErrorStopsSilently(t *testing.T) {
	c := openCorpus(t, animalsSource, animalsTarget, nil)
	calls := 0
	sink := SinkFunc(func(TranslationUnit) error {
		calls++
		if calls > 1 {
			return errors.New("broken pipe")
		}
		return nil
	})
	stats, err := newExecutor().Execute(context.Background(), c, query("->", "cat"), sink)
	require.NoError(t, err)
	assert.True(t, stats.Aborted)
	assert.Equal(t, 1, stats.Emitted)
	assert.Equal(t, 2, calls)
}

func TestCancelledContext(t *testing.T) {
	c := openCorpus(t, animalsSource, animalsTarget, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := newExecutor().Execute(ctx, c, query("->", "cat"), &Collector{})
	assert.ErrorIs(t, err, apperrors.ErrTimeout)
}

func TestRenderUnknownID(t *testing.T) {
	lex := lexicon.New()
	hello := lex.Add("hello")
	cells := []corpus.Cell{
		{Word: hello, Flags: corpus.FlagUpper},
		{Word: 999},
		{Word: corpus.Terminator},
	}
	assert.Equal(t, "HELLO (none)", Render(lex, cells))
}

func TestResultCapProperty(t *testing.T) {
	src := make([]string, 60)
	tgt := make([]string, 60)
	for i := range src {
		src[i] = fmt.Sprintf("w s%d", i)
		tgt[i] = fmt.Sprintf("v t%d", i)
	}
	c := openCorpus(t, src, tgt, nil)
	e := newExecutor()

	properties := gopter.NewProperties(gopter.DefaultTestParameters())
	properties.Property("emitted units never exceed the clamped cap", prop.ForAll(
		func(n int) bool {
			var out Collector
			stats, err := e.Execute(context.Background(), c, query("->", fmt.Sprintf("w #%d", n)), &out)
			if err != nil {
				return false
			}
			want := min(max(n, 1), 60)
			return stats.Emitted == want && len(out.Units) == want
		},
		gen.IntRange(-10, 200),
	))
	properties.TestingRun(t)
}
