package analytics

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Parallel-Corpus-Concordance/pkg/kafka"
)

const (
	maxLatencySamples = 10000
	topQueries        = 10
)

type Stats struct {
	TotalQueries      int64            `json:"total_queries"`
	QueriesByVerb     map[string]int64 `json:"queries_by_verb"`
	QueriesByCorpus   map[int]int64    `json:"queries_by_corpus"`
	CacheHits         int64            `json:"cache_hits"`
	Failures          int64            `json:"failures"`
	Timeouts          int64            `json:"timeouts"`
	ZeroResults       int64            `json:"zero_results"`
	AvgLatencyMs      float64          `json:"avg_latency_ms"`
	P50LatencyMs      int64            `json:"p50_latency_ms"`
	P95LatencyMs      int64            `json:"p95_latency_ms"`
	P99LatencyMs      int64            `json:"p99_latency_ms"`
	TopQueries        []QueryCount     `json:"top_queries"`
	ZeroResultQueries []QueryCount     `json:"zero_result_queries"`
	IndexRuns         int64            `json:"index_runs"`
	SentencesIndexed  int64            `json:"sentences_indexed"`
	QueriesPerMinute  float64          `json:"queries_per_minute"`
}

type QueryCount struct {
	Query string `json:"query"`
	Count int64  `json:"count"`
}

// Aggregator sums events in memory. It implements Tracker for in-process
// use and HandleMessage for Kafka consumption.
type Aggregator struct {
	mu        sync.Mutex
	stats     Stats
	latencies []int64
	next      int
	queries   map[string]int64
	zero      map[string]int64
	started   time.Time
	logger    *slog.Logger
}

func NewAggregator() *Aggregator {
	return &Aggregator{
		stats: Stats{
			QueriesByVerb:   make(map[string]int64),
			QueriesByCorpus: make(map[int]int64),
		},
		latencies: make([]int64, 0, 1024),
		queries:   make(map[string]int64),
		zero:      make(map[string]int64),
		started:   time.Now(),
		logger:    slog.Default().With("component", "analytics-aggregator"),
	}
}

func (a *Aggregator) Track(ev any) {
	switch e := ev.(type) {
	case QueryEvent:
		a.recordQuery(e)
	case *QueryEvent:
		a.recordQuery(*e)
	case IndexEvent:
		a.recordIndex(e)
	case *IndexEvent:
		a.recordIndex(*e)
	default:
		a.logger.Warn("unknown analytics event", "type", fmt.Sprintf("%T", ev))
	}
}

// HandleMessage decodes a Kafka message by its type field. Undecodable
// messages are logged and acknowledged.
func (a *Aggregator) HandleMessage(_ context.Context, _, value []byte) error {
	var head struct {
		Type EventType `json:"type"`
	}
	if err := json.Unmarshal(value, &head); err != nil {
		a.logger.Error("undecodable analytics event", "error", err)
		return nil
	}
	switch head.Type {
	case EventQuery:
		e, err := kafka.DecodeJSON[QueryEvent](value)
		if err != nil {
			a.logger.Error("undecodable query event", "error", err)
			return nil
		}
		a.recordQuery(e)
	case EventIndex:
		e, err := kafka.DecodeJSON[IndexEvent](value)
		if err != nil {
			a.logger.Error("undecodable index event", "error", err)
			return nil
		}
		a.recordIndex(e)
	default:
		a.logger.Warn("unknown analytics event", "type", head.Type)
	}
	return nil
}

func (a *Aggregator) recordQuery(e QueryEvent) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.stats.TotalQueries++
	a.stats.QueriesByVerb[e.Verb]++
	if e.Corpus > 0 {
		a.stats.QueriesByCorpus[e.Corpus]++
	}
	if e.CacheHit {
		a.stats.CacheHits++
	}
	if e.Failed {
		a.stats.Failures++
	}
	if e.TimedOut {
		a.stats.Timeouts++
	}
	if len(a.latencies) < maxLatencySamples {
		a.latencies = append(a.latencies, e.LatencyMs)
	} else {
		a.latencies[a.next] = e.LatencyMs
		a.next = (a.next + 1) % maxLatencySamples
	}
	if e.Query != "" {
		a.queries[e.Query]++
		if e.Results == 0 && !e.Failed {
			a.stats.ZeroResults++
			a.zero[e.Query]++
		}
	}
}

func (a *Aggregator) recordIndex(e IndexEvent) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.stats.IndexRuns++
	a.stats.SentencesIndexed += int64(e.Sentences)
}

// Stats returns a snapshot with latency percentiles and the most frequent
// queries.
func (a *Aggregator) Stats() Stats {
	a.mu.Lock()
	defer a.mu.Unlock()

	s := a.stats
	s.QueriesByVerb = maps.Clone(a.stats.QueriesByVerb)
	s.QueriesByCorpus = maps.Clone(a.stats.QueriesByCorpus)
	if len(a.latencies) > 0 {
		sorted := slices.Clone(a.latencies)
		slices.Sort(sorted)
		var sum int64
		for _, l := range sorted {
			sum += l
		}
		s.AvgLatencyMs = float64(sum) / float64(len(sorted))
		s.P50LatencyMs = percentile(sorted, 50)
		s.P95LatencyMs = percentile(sorted, 95)
		s.P99LatencyMs = percentile(sorted, 99)
	}
	s.TopQueries = topN(a.queries, topQueries)
	s.ZeroResultQueries = topN(a.zero, topQueries)
	if minutes := time.Since(a.started).Minutes(); minutes > 0 {
		s.QueriesPerMinute = float64(s.TotalQueries) / minutes
	}
	return s
}

func percentile(sorted []int64, pct int) int64 {
	idx := min(pct*len(sorted)/100, len(sorted)-1)
	return sorted[idx]
}

func topN(counts map[string]int64, n int) []QueryCount {
	out := make([]QueryCount, 0, len(counts))
	for q, c := range counts {
		out = append(out, QueryCount{Query: q, Count: c})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Query < out[j].Query
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}
