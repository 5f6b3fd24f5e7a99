// Package executor runs concordance queries: it resolves query terms,
// intersects their postings, retrieves the aligned sentence pairs and
// filters them by phrase order.
package executor

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/Parallel-Corpus-Concordance/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/Parallel-Corpus-Concordance/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/Parallel-Corpus-Concordance/internal/lexicon"
	"github.com/Adithya-Monish-Kumar-K/Parallel-Corpus-Concordance/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/Parallel-Corpus-Concordance/pkg/errors"
)

const (
	DefaultLimit = 20
	MaxLimit     = 1000
)

// NoneWord renders ids missing from the lexicon.
const NoneWord = "(none)"

// Corpus is what a query needs from a loaded corpus.
type Corpus interface {
	Lexicon(side corpus.Side) *lexicon.Lexicon
	Index(side corpus.Side) *index.CompactIndex
	RetrieveSentence(side corpus.Side, chunk uint8, sentence uint32) ([]corpus.Cell, float64, error)
}

// TranslationUnit is one rendered sentence pair. Quality is -1 when the
// corpus has no rank for the sentence.
type TranslationUnit struct {
	Quality float64 `json:"quality"`
	Source  string  `json:"source"`
	Target  string  `json:"target"`
}

// Sink receives accepted units in postings order. An error from Emit stops
// the query without failing it.
type Sink interface {
	Emit(tu TranslationUnit) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(TranslationUnit) error

func (f SinkFunc) Emit(tu TranslationUnit) error { return f(tu) }

// Collector gathers units in memory.
type Collector struct {
	Units []TranslationUnit
}

func (c *Collector) Emit(tu TranslationUnit) error {
	c.Units = append(c.Units, tu)
	return nil
}

// Stats describes one execution.
type Stats struct {
	Candidates int
	Examined   int
	Emitted    int
	Limit      int
	// Aborted is set when the sink refused a unit.
	Aborted bool
}

type Executor struct {
	defaultLimit int
	maxLimit     int
	logger       *slog.Logger
}

func New(cfg config.SearchConfig) *Executor {
	e := &Executor{
		defaultLimit: cfg.DefaultLimit,
		maxLimit:     cfg.MaxResults,
		logger:       slog.Default().With("component", "query-executor"),
	}
	if e.maxLimit <= 0 {
		e.maxLimit = MaxLimit
	}
	if e.defaultLimit <= 0 {
		e.defaultLimit = DefaultLimit
	}
	e.defaultLimit = min(e.defaultLimit, e.maxLimit)
	return e
}

func (e *Executor) clampLimit(n int) int {
	return max(1, min(n, e.maxLimit))
}

// Execute runs q against c and streams accepted units to sink. It checks
// ctx between candidates and returns ErrTimeout once it is done.
func (e *Executor) Execute(ctx context.Context, c Corpus, q Query, sink Sink) (Stats, error) {
	p, err := e.resolve(c, q)
	if err != nil {
		return Stats{}, err
	}
	stats := Stats{Candidates: len(p.candidates), Limit: p.limit}

	for _, packed := range p.candidates {
		if stats.Emitted >= p.limit {
			break
		}
		if err := ctx.Err(); err != nil {
			return stats, apperrors.Newf(apperrors.ErrTimeout, "query abandoned after %d units: %v", stats.Emitted, err)
		}
		occ := index.DecodeOccurrence(packed)
		src, quality, err := c.RetrieveSentence(corpus.Source, occ.Chunk, occ.Sentence)
		if err != nil {
			return stats, errors.Join(apperrors.ErrInternal, err)
		}
		tgt, _, err := c.RetrieveSentence(corpus.Target, occ.Chunk, occ.Sentence)
		if err != nil {
			return stats, errors.Join(apperrors.ErrInternal, err)
		}
		stats.Examined++
		if !p.accept(src, tgt) {
			continue
		}
		tu := TranslationUnit{
			Quality: quality,
			Source:  Render(c.Lexicon(corpus.Source), src),
			Target:  Render(c.Lexicon(corpus.Target), tgt),
		}
		if err := sink.Emit(tu); err != nil {
			e.logger.Debug("sink closed, stopping query", "emitted", stats.Emitted, "error", err)
			stats.Aborted = true
			break
		}
		stats.Emitted++
	}
	return stats, nil
}

// Render joins the re-cased words of a sentence with single spaces.
func Render(lex *lexicon.Lexicon, cells []corpus.Cell) string {
	n := corpus.SentenceLength(cells)
	var b strings.Builder
	for i, cell := range cells[:n] {
		if i > 0 {
			b.WriteByte(' ')
		}
		word, ok := lex.Word(cell.Word)
		if !ok {
			b.WriteString(NoneWord)
			continue
		}
		b.WriteString(corpus.Recase(word, cell.Flags))
	}
	return b.String()
}
