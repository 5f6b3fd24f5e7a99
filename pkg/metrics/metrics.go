// Package metrics defines the Prometheus collectors of the concordance
// server and the admin HTTP server that exposes them.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Query outcomes used as the "outcome" label.
const (
	OutcomeOK          = "ok"
	OutcomeZeroResult  = "zero_result"
	OutcomeSyntaxError = "syntax_error"
	OutcomeTimeout     = "timeout"
)

type Metrics struct {
	AdminRequestsTotal   *prometheus.CounterVec
	AdminRequestDuration *prometheus.HistogramVec
	QueriesTotal         *prometheus.CounterVec
	QueryLatency         *prometheus.HistogramVec
	QueryResults         prometheus.Histogram
	ConnectionsActive    prometheus.Gauge
	ConnectionsTotal     prometheus.Counter
	ResultCacheHits      prometheus.Counter
	ResultCacheMisses    prometheus.Counter
	CorpusSentences      *prometheus.GaugeVec

	reg prometheus.Registerer
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		AdminRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "concordance_admin_requests_total",
				Help: "Admin HTTP requests by method, path and status.",
			},
			[]string{"method", "path", "status"},
		),
		AdminRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "concordance_admin_request_duration_seconds",
				Help:    "Admin HTTP request latency in seconds.",
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
			},
			[]string{"method", "path"},
		),
		QueriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "concordance_queries_total",
				Help: "Protocol requests by verb and outcome.",
			},
			[]string{"verb", "outcome"},
		),
		QueryLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "concordance_query_latency_seconds",
				Help:    "Protocol request latency in seconds.",
				Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 20, 50},
			},
			[]string{"verb"},
		),
		QueryResults: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "concordance_query_results",
				Help:    "Translation units returned per concordance query.",
				Buckets: []float64{0, 1, 5, 10, 20, 50, 100, 500, 1000},
			},
		),
		ConnectionsActive: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "concordance_connections_active",
				Help: "Client connections being served.",
			},
		),
		ConnectionsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "concordance_connections_total",
				Help: "Client connections accepted.",
			},
		),
		ResultCacheHits: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "concordance_result_cache_hits_total",
				Help: "Concordance queries answered from the result cache.",
			},
		),
		ResultCacheMisses: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "concordance_result_cache_misses_total",
				Help: "Concordance queries that missed the result cache.",
			},
		),
		CorpusSentences: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "concordance_corpus_sentences",
				Help: "Aligned sentence pairs per loaded corpus.",
			},
			[]string{"corpus"},
		),
		reg: reg,
	}
	reg.MustRegister(
		m.AdminRequestsTotal,
		m.AdminRequestDuration,
		m.QueriesTotal,
		m.QueryLatency,
		m.QueryResults,
		m.ConnectionsActive,
		m.ConnectionsTotal,
		m.ResultCacheHits,
		m.ResultCacheMisses,
		m.CorpusSentences,
	)
	return m
}

// RankCacheSource reports rank cache activity of one corpus.
type RankCacheSource interface {
	Hits() int64
	Misses() int64
}

// WatchRankCache exports the rank cache counters of corpus.
func (m *Metrics) WatchRankCache(corpus string, src RankCacheSource) error {
	labels := prometheus.Labels{"corpus": corpus}
	hits := prometheus.NewCounterFunc(prometheus.CounterOpts{
		Name:        "concordance_rank_cache_hits_total",
		Help:        "Rank lookups served from a cached rank file.",
		ConstLabels: labels,
	}, func() float64 { return float64(src.Hits()) })
	misses := prometheus.NewCounterFunc(prometheus.CounterOpts{
		Name:        "concordance_rank_cache_misses_total",
		Help:        "Rank lookups that had to read a rank file.",
		ConstLabels: labels,
	}, func() float64 { return float64(src.Misses()) })
	if err := m.reg.Register(hits); err != nil {
		return err
	}
	return m.reg.Register(misses)
}

// Handler returns the scrape handler of the default gatherer.
func Handler() http.Handler {
	return promhttp.Handler()
}
