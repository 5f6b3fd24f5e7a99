package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Parallel-Corpus-Concordance/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/Parallel-Corpus-Concordance/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/Parallel-Corpus-Concordance/internal/indexer/catalog"
	"github.com/Adithya-Monish-Kumar-K/Parallel-Corpus-Concordance/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/Parallel-Corpus-Concordance/pkg/postgres"
)

type BuildCmd struct {
	Out           string `short:"o" required:"" type:"path" help:"Corpus directory to write."`
	Name          string `help:"Corpus name; defaults to the directory name."`
	SourceLang    string `name:"source-lang" help:"Source language code."`
	TargetLang    string `name:"target-lang" help:"Target language code."`
	ChunkSize     int    `name:"chunk-size" help:"Sentence pairs per chunk; 0 sizes chunks by the packed-occurrence limit."`
	CaseSensitive bool   `name:"case-sensitive" help:"Keep case distinctions in the lexicons."`

	Source string `arg:"" type:"existingfile" help:"Source language text, one sentence per line."`
	Target string `arg:"" type:"existingfile" help:"Target language text, aligned line by line."`
}

func (c *BuildCmd) Run(e *env) error {
	icfg := e.cfg.Indexer
	if c.ChunkSize > 0 {
		icfg.ChunkSize = c.ChunkSize
	}
	if c.CaseSensitive {
		icfg.IgnoreCase = false
	}
	if c.SourceLang != "" {
		icfg.SourceLanguage = c.SourceLang
	}
	if c.TargetLang != "" {
		icfg.TargetLanguage = c.TargetLang
	}
	name := c.Name
	if name == "" {
		name = filepath.Base(filepath.Clean(c.Out))
	}

	src, err := os.Open(c.Source)
	if err != nil {
		return fmt.Errorf("opening source text: %w", err)
	}
	defer src.Close()
	tgt, err := os.Open(c.Target)
	if err != nil {
		return fmt.Errorf("opening target text: %w", err)
	}
	defer tgt.Close()

	started := time.Now()
	engine, err := indexer.NewEngine(icfg, c.Out)
	if err != nil {
		return err
	}
	_, err = engine.Build(e.ctx, src, tgt)
	var meta *indexer.Meta
	if err == nil {
		meta, err = engine.Finish(indexer.Meta{
			Name:           name,
			SourceLanguage: icfg.SourceLanguage,
			TargetLanguage: icfg.TargetLanguage,
		})
	}
	stats := engine.Stats()
	recordRun(e, catalog.NewRun(name, c.Out, stats, started, err))
	if err != nil {
		return fmt.Errorf("building %s: %w", c.Out, err)
	}
	publishIndexEvent(e, analytics.IndexEvent{
		Type:      analytics.EventIndex,
		Corpus:    name,
		Chunks:    meta.NrChunks,
		Sentences: meta.NrSentences,
		Skipped:   stats.Skipped,
		LatencyMs: time.Since(started).Milliseconds(),
		Timestamp: time.Now().UTC(),
	})

	fmt.Fprintf(e.out, "%s: %d chunks, %d sentence pairs, %d skipped\n", name, meta.NrChunks, meta.NrSentences, stats.Skipped)
	fmt.Fprintf(e.out, "source: %d words, %d forms\n", meta.SourceWords, meta.SourceForms)
	fmt.Fprintf(e.out, "target: %d words, %d forms\n", meta.TargetWords, meta.TargetForms)
	return nil
}

// recordRun stores the run in the ingestion catalog when PostgreSQL is
// configured. Catalog failures do not fail the build.
func recordRun(e *env, run catalog.Run) {
	if !e.cfg.Postgres.Enabled {
		return
	}
	db, err := postgres.New(e.ctx, e.cfg.Postgres)
	if err != nil {
		slog.Warn("ingestion catalog unavailable", "error", err)
		return
	}
	defer db.Close()
	if _, err := catalog.New(db).Record(e.ctx, run); err != nil {
		slog.Warn("ingestion run not recorded", "error", err)
	}
}

func publishIndexEvent(e *env, ev analytics.IndexEvent) {
	if !e.cfg.Kafka.Enabled {
		return
	}
	producer := kafka.NewProducer(e.cfg.Kafka, e.cfg.Kafka.Topics.AnalyticsEvents)
	defer producer.Close()
	if err := producer.Publish(e.ctx, kafka.Event{Key: "index:" + ev.Corpus, Value: ev}); err != nil {
		slog.Warn("index event not published", "error", err)
	}
}
