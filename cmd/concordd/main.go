// Command concordd serves concordance queries over the line protocol.
//
// It loads every configured corpus, answers one request per TCP connection
// and exposes /metrics, health probes and /api/v1/analytics on the admin
// port. Redis result caching, Kafka analytics and PostgreSQL snapshots are
// enabled from the configuration.
//
// Usage:
//
//	concordd [-config configs/development.yaml]
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/Adithya-Monish-Kumar-K/Parallel-Corpus-Concordance/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/Parallel-Corpus-Concordance/internal/analytics/snapshot"
	"github.com/Adithya-Monish-Kumar-K/Parallel-Corpus-Concordance/internal/registry"
	"github.com/Adithya-Monish-Kumar-K/Parallel-Corpus-Concordance/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/Parallel-Corpus-Concordance/internal/searcher/handler"
	"github.com/Adithya-Monish-Kumar-K/Parallel-Corpus-Concordance/internal/searcher/server"
	"github.com/Adithya-Monish-Kumar-K/Parallel-Corpus-Concordance/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/Parallel-Corpus-Concordance/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/Parallel-Corpus-Concordance/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/Parallel-Corpus-Concordance/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/Parallel-Corpus-Concordance/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/Parallel-Corpus-Concordance/pkg/middleware"
	"github.com/Adithya-Monish-Kumar-K/Parallel-Corpus-Concordance/pkg/postgres"
	pkgredis "github.com/Adithya-Monish-Kumar-K/Parallel-Corpus-Concordance/pkg/redis"
	"github.com/Adithya-Monish-Kumar-K/Parallel-Corpus-Concordance/pkg/resilience"
)

const (
	collectorBuffer  = 10000
	collectorBatch   = 100
	collectorFlush   = time.Second
	snapshotInterval = time.Minute
	// corpusLoadTimeout is allowed per configured corpus.
	corpusLoadTimeout = 10 * time.Second
)

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting concordance server", "port", cfg.Server.Port, "corpora", len(cfg.Corpora))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	loadCtx, cancelLoad := context.WithTimeout(ctx, corpusLoadTimeout*time.Duration(max(1, len(cfg.Corpora))))
	reg, err := registry.Open(loadCtx, cfg.Corpora)
	cancelLoad()
	if err != nil {
		slog.Error("failed to load corpora", "error", err)
		os.Exit(1)
	}
	defer reg.Close()

	m := metrics.New(prometheus.DefaultRegisterer)
	for _, c := range reg.List() {
		m.CorpusSentences.WithLabelValues(c.Name).Set(float64(c.Chunks().TotalSentences()))
		if err := m.WatchRankCache(c.Name, c.Chunks().Ranks()); err != nil {
			slog.Warn("rank cache metrics unavailable", "corpus", c.Name, "error", err)
		}
	}

	checker := health.NewChecker()
	checker.Register("corpora", true, func(context.Context) error {
		if reg.Len() == 0 {
			return fmt.Errorf("no corpora loaded")
		}
		return nil
	})

	queryCache, closeRedis := openCache(ctx, cfg.Redis, checker)
	defer closeRedis()

	aggregator := analytics.NewAggregator()
	tracker, closeAnalytics := startAnalytics(ctx, cfg.Kafka, aggregator)
	defer closeAnalytics()

	closePostgres := startSnapshots(ctx, cfg.Postgres, aggregator, checker)
	defer closePostgres()

	h := handler.New(reg, cfg.Search, cfg.Indexer.IgnoreCase, queryCache, tracker, m)
	srv := server.New(cfg.Server, h, m)

	shutdownAdmin := func(context.Context) error { return nil }
	if cfg.Metrics.Enabled {
		mux := http.NewServeMux()
		mux.Handle("GET /metrics", metrics.Handler())
		mux.HandleFunc("GET /health/live", checker.LiveHandler())
		mux.HandleFunc("GET /health/ready", checker.ReadyHandler())
		mux.Handle("GET /api/v1/analytics", analytics.NewHandler(aggregator))
		shutdownAdmin = metrics.StartServer(cfg.Metrics.Port, middleware.Metrics(m)(mux))
	}

	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		<-ctx.Done()
		slog.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := srv.Stop(shutdownCtx); err != nil {
			slog.Error("protocol server shutdown error", "error", err)
		}
		if err := shutdownAdmin(shutdownCtx); err != nil {
			slog.Error("admin server shutdown error", "error", err)
		}
	}()

	if err := srv.ListenAndServe(fmt.Sprintf(":%d", cfg.Server.Port)); err != nil {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
	// Handlers still running may track events until Stop returns.
	<-stopped
	slog.Info("concordance server stopped")
}

// openCache connects to Redis when enabled. Results cached by a previous
// process may describe corpora that were rebuilt since, so they are dropped.
func openCache(ctx context.Context, cfg config.RedisConfig, checker *health.Checker) (*cache.QueryCache, func()) {
	if !cfg.Enabled {
		slog.Info("result cache disabled")
		return nil, func() {}
	}
	var client *pkgredis.Client
	err := resilience.Retry(ctx, "redis connect", resilience.DefaultRetry, func(ctx context.Context) error {
		var err error
		client, err = pkgredis.NewClient(ctx, cfg)
		return err
	})
	if err != nil {
		slog.Warn("redis unavailable, result cache disabled", "error", err)
		return nil, func() {}
	}
	qc := cache.New(client, cfg.CacheTTL)
	if err := qc.Invalidate(ctx); err != nil {
		slog.Warn("could not clear stale results", "error", err)
	}
	checker.Register("redis", false, client.Ping)
	slog.Info("result cache enabled", "addr", cfg.Addr, "ttl", cfg.CacheTTL)
	return qc, func() { client.Close() }
}

// startAnalytics publishes query events to Kafka and feeds the aggregator
// from the same topic. Without Kafka the aggregator tracks events directly.
func startAnalytics(ctx context.Context, cfg config.KafkaConfig, aggregator *analytics.Aggregator) (analytics.Tracker, func()) {
	if !cfg.Enabled {
		slog.Info("kafka disabled, aggregating analytics in process")
		return aggregator, func() {}
	}
	topic := cfg.Topics.AnalyticsEvents
	producer := kafka.NewProducer(cfg, topic)
	collector := analytics.NewCollector(producer, collectorBuffer, collectorBatch, collectorFlush)
	collector.Start(ctx)

	consumer := kafka.NewConsumer(cfg, topic, aggregator.HandleMessage)
	go func() {
		if err := consumer.Run(ctx); err != nil {
			slog.Error("analytics consumer error", "error", err)
		}
	}()
	slog.Info("analytics pipeline started", "topic", topic)
	return collector, func() {
		collector.Close()
		producer.Close()
	}
}

// startSnapshots persists aggregated stats to PostgreSQL when enabled.
func startSnapshots(ctx context.Context, cfg config.PostgresConfig, aggregator *analytics.Aggregator, checker *health.Checker) func() {
	if !cfg.Enabled {
		return func() {}
	}
	var db *postgres.Client
	err := resilience.Retry(ctx, "postgres connect", resilience.DefaultRetry, func(ctx context.Context) error {
		var err error
		db, err = postgres.New(ctx, cfg)
		return err
	})
	if err != nil {
		slog.Warn("postgres unavailable, analytics snapshots disabled", "error", err)
		return func() {}
	}
	store := snapshot.NewStore(db)
	if last, err := store.Latest(ctx); err != nil {
		slog.Warn("reading last snapshot", "error", err)
	} else if last != nil {
		slog.Info("previous analytics snapshot", "queries", last.TotalQueries)
	}
	checker.Register("postgres", false, db.Ping)

	done := make(chan struct{})
	go func() {
		defer close(done)
		store.Run(ctx, aggregator, snapshotInterval)
	}()
	return func() {
		<-done
		db.Close()
	}
}
