// Package handler answers protocol requests. Every response ends with the
// DONE or SYNTAX ERROR sentinel line.
package handler

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Parallel-Corpus-Concordance/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/Parallel-Corpus-Concordance/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/Parallel-Corpus-Concordance/internal/lexicon"
	"github.com/Adithya-Monish-Kumar-K/Parallel-Corpus-Concordance/internal/registry"
	"github.com/Adithya-Monish-Kumar-K/Parallel-Corpus-Concordance/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/Parallel-Corpus-Concordance/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/Parallel-Corpus-Concordance/internal/searcher/parser"
	"github.com/Adithya-Monish-Kumar-K/Parallel-Corpus-Concordance/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/Parallel-Corpus-Concordance/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/Parallel-Corpus-Concordance/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/Parallel-Corpus-Concordance/pkg/metrics"
)

const invalidVerb = "invalid"

type Handler struct {
	registry   *registry.Registry
	executor   *executor.Executor
	cache      *cache.QueryCache
	tracker    analytics.Tracker
	metrics    *metrics.Metrics
	maxTokens  int
	ngramLimit int
	foldCase   bool
	logger     *slog.Logger
}

// New builds a handler over reg. queryCache and m may be nil; a nil tracker
// discards events.
func New(reg *registry.Registry, search config.SearchConfig, foldCase bool, queryCache *cache.QueryCache, tracker analytics.Tracker, m *metrics.Metrics) *Handler {
	if tracker == nil {
		tracker = analytics.Discard{}
	}
	return &Handler{
		registry:   reg,
		executor:   executor.New(search),
		cache:      queryCache,
		tracker:    tracker,
		metrics:    m,
		maxTokens:  search.MaxTokens,
		ngramLimit: search.NgramLimit,
		foldCase:   foldCase,
		logger:     slog.Default().With("component", "request-handler"),
	}
}

// outcome is what one request produced besides its output lines.
type outcome struct {
	results  int
	cacheHit bool
}

// Handle parses line, writes the response to w and returns the first write
// error. Request failures are answered on the wire, not returned.
func (h *Handler) Handle(ctx context.Context, line string, w io.Writer) error {
	start := time.Now()
	log := logger.FromContext(ctx)
	out := newResponse(w)

	var (
		res outcome
		err error
	)
	req, err := parser.Parse(line, h.maxTokens)
	if err == nil {
		res, err = h.dispatch(ctx, req, out)
	}
	out.line(apperrors.Marker(err))
	writeErr := out.flush()

	verb, corpusID, raw := invalidVerb, 0, strings.TrimSpace(line)
	if req != nil {
		verb, corpusID, raw = req.Verb, req.CorpusID, req.Raw
	}
	latency := time.Since(start)
	switch {
	case err == nil:
		log.Info("request served", "verb", verb, "corpus", corpusID, "results", res.results, "cache_hit", res.cacheHit, "latency_ms", latency.Milliseconds())
	case apperrors.IsClientError(err):
		log.Info("request rejected", "verb", verb, "query", raw, "error", err)
	case errors.Is(err, apperrors.ErrTimeout):
		log.Warn("request timed out", "verb", verb, "query", raw, "results", res.results, "error", err)
	default:
		log.Error("request failed", "verb", verb, "query", raw, "error", err)
	}
	h.observe(req, verb, res, err, latency)
	h.tracker.Track(analytics.QueryEvent{
		Type:      analytics.EventQuery,
		Verb:      verb,
		Corpus:    corpusID,
		Query:     raw,
		Results:   res.results,
		LatencyMs: latency.Milliseconds(),
		CacheHit:  res.cacheHit,
		Failed:    err != nil,
		TimedOut:  errors.Is(err, apperrors.ErrTimeout),
		RequestID: logger.RequestID(ctx),
		Timestamp: time.Now().UTC(),
	})
	return writeErr
}

func (h *Handler) observe(req *parser.Request, verb string, res outcome, err error, latency time.Duration) {
	if h.metrics == nil {
		return
	}
	result := metrics.OutcomeOK
	switch {
	case errors.Is(err, apperrors.ErrTimeout):
		result = metrics.OutcomeTimeout
	case err != nil:
		result = metrics.OutcomeSyntaxError
	case req != nil && req.Kind == parser.KindConcordance && res.results == 0:
		result = metrics.OutcomeZeroResult
	}
	h.metrics.QueriesTotal.WithLabelValues(verb, result).Inc()
	h.metrics.QueryLatency.WithLabelValues(verb).Observe(latency.Seconds())
	if req != nil && req.Kind == parser.KindConcordance && err == nil {
		h.metrics.QueryResults.Observe(float64(res.results))
	}
}

func (h *Handler) dispatch(ctx context.Context, req *parser.Request, out *response) (outcome, error) {
	if req.Kind == parser.KindList {
		return h.list(out), nil
	}
	c, err := h.registry.Get(req.CorpusID)
	if err != nil {
		return outcome{}, err
	}
	switch req.Kind {
	case parser.KindConfigAll:
		return h.configAll(c, out), nil
	case parser.KindConfig:
		return h.config(c, req.Args[0], out)
	case parser.KindDictWord, parser.KindDictID:
		return h.dictionary(c, req, out)
	case parser.KindNgrams:
		return h.ngrams(ctx, c, req, out)
	case parser.KindConcordance:
		return h.concordance(ctx, c, req, out)
	}
	return outcome{}, apperrors.Newf(apperrors.ErrSyntax, "verb %s not handled", req.Verb)
}

func (h *Handler) list(out *response) outcome {
	corpora := h.registry.List()
	out.printf("%d\n", len(corpora))
	for _, c := range corpora {
		out.printf("[%d] %s\n", c.ID, c.Name)
	}
	return outcome{results: len(corpora)}
}

func (h *Handler) configAll(c *registry.Corpus, out *response) outcome {
	keys := c.ConfigKeys()
	for _, k := range keys {
		v, _ := c.Config(k)
		out.printf("%s=%s\n", k, v)
	}
	return outcome{results: len(keys)}
}

func (h *Handler) config(c *registry.Corpus, key string, out *response) (outcome, error) {
	v, ok := c.Config(key)
	if !ok {
		return outcome{}, apperrors.Newf(apperrors.ErrSyntax, "corpus %s has no key %q", c.Name, key)
	}
	out.line(v)
	return outcome{results: 1}, nil
}

func sideOf(direction int) corpus.Side {
	if direction < 0 {
		return corpus.Target
	}
	return corpus.Source
}

func (h *Handler) token(s string) string {
	if h.foldCase {
		return strings.ToLower(s)
	}
	return s
}

// dictionary prints the headword, its occurrence count and one
// "probability translation" line per used slot.
func (h *Handler) dictionary(c *registry.Corpus, req *parser.Request, out *response) (outcome, error) {
	side := sideOf(req.Direction)
	dict, err := c.Dictionary(side)
	if err != nil {
		return outcome{}, err
	}
	lex, other := c.Lexicon(side), c.Lexicon(side.Other())

	var (
		id   corpus.WordID
		word string
		ok   bool
	)
	if req.Kind == parser.KindDictID {
		n, _ := strconv.ParseUint(req.Args[0], 10, 32)
		id = corpus.WordID(n)
		word, ok = lex.Word(id)
	} else {
		word = h.token(req.Args[0])
		id, ok = lex.ID(word)
	}
	if !ok {
		return outcome{}, apperrors.Newf(apperrors.ErrSyntax, "word %q not in the %s lexicon", req.Args[0], side)
	}

	entries := dict.Entries(id)
	out.line(word)
	out.printf("%d\n", dict.Occurrences(id))
	for _, e := range entries {
		out.printf("%.6f %s\n", e.Prob, wordOrNone(other, e.ID))
	}
	return outcome{results: len(entries)}, nil
}

// ngrams prints the most frequent n-grams matching the pattern, one
// "words... count" line each. Unknown words match nothing.
func (h *Handler) ngrams(ctx context.Context, c *registry.Corpus, req *parser.Request, out *response) (outcome, error) {
	side := sideOf(req.Direction)
	db, err := c.Ngrams(side)
	if err != nil {
		return outcome{}, err
	}
	lex := c.Lexicon(side)
	pattern := make([]corpus.WordID, 0, len(req.Args))
	for _, tok := range req.Args {
		id, ok := lex.Resolve(h.token(tok))
		if !ok {
			return outcome{}, nil
		}
		pattern = append(pattern, id)
	}
	grams, err := db.Lookup(ctx, pattern, h.ngramLimit)
	if err != nil {
		return outcome{}, err
	}
	for _, g := range grams {
		for _, id := range g.Words {
			out.printf("%s ", wordOrNone(lex, id))
		}
		out.printf("%d\n", g.Count)
	}
	return outcome{results: len(grams)}, nil
}

func (h *Handler) concordance(ctx context.Context, c *registry.Corpus, req *parser.Request, out *response) (outcome, error) {
	q := executor.Query{
		Direction: req.Direction,
		Both:      req.Both,
		Exact:     req.Exact,
		Tokens:    req.Args,
		FoldCase:  h.foldCase,
	}
	if h.cache == nil {
		stats, err := h.executor.Execute(ctx, c, q, executor.SinkFunc(out.stream))
		return outcome{results: stats.Emitted}, err
	}

	key := cache.Key{Corpus: c.Name, Verb: req.Verb, Tokens: req.Args, Fold: h.foldCase}
	entry, hit, err := h.cache.GetOrCompute(ctx, key, func() (*cache.Entry, error) {
		var col executor.Collector
		stats, err := h.executor.Execute(ctx, c, q, &col)
		if err != nil {
			return nil, err
		}
		return &cache.Entry{Units: col.Units, Stats: stats}, nil
	})
	if h.metrics != nil {
		if hit {
			h.metrics.ResultCacheHits.Inc()
		} else {
			h.metrics.ResultCacheMisses.Inc()
		}
	}
	if err != nil {
		return outcome{}, err
	}
	for _, tu := range entry.Units {
		out.unit(tu)
	}
	return outcome{results: len(entry.Units), cacheHit: hit}, nil
}

func wordOrNone(lex *lexicon.Lexicon, id corpus.WordID) string {
	if w, ok := lex.Word(id); ok {
		return w
	}
	return executor.NoneWord
}

// response buffers output lines and keeps the first write error.
type response struct {
	w   *bufio.Writer
	err error
}

func newResponse(w io.Writer) *response {
	return &response{w: bufio.NewWriter(w)}
}

func (r *response) printf(format string, args ...any) {
	if r.err != nil {
		return
	}
	_, r.err = fmt.Fprintf(r.w, format, args...)
}

func (r *response) line(s string) {
	r.printf("%s\n", s)
}

// unit writes a translation unit: an optional "% quality" line, then the
// source and target sentences.
func (r *response) unit(tu executor.TranslationUnit) {
	if tu.Quality >= 0 {
		r.printf("%% %f\n", tu.Quality)
	}
	r.line(tu.Source)
	r.line(tu.Target)
}

// stream writes tu and flushes it so a closed connection stops the query at
// the next unit.
func (r *response) stream(tu executor.TranslationUnit) error {
	r.unit(tu)
	if r.err == nil {
		r.err = r.w.Flush()
	}
	return r.err
}

func (r *response) flush() error {
	if r.err != nil {
		return r.err
	}
	return r.w.Flush()
}
