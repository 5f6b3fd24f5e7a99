// Package catalog records ingestion runs in PostgreSQL.
//
// It requires an `ingestion_runs` table:
//
//	CREATE TABLE ingestion_runs (
//	    id           BIGSERIAL PRIMARY KEY,
//	    corpus       TEXT NOT NULL,
//	    dir          TEXT NOT NULL,
//	    chunks       INTEGER NOT NULL,
//	    sentences    INTEGER NOT NULL,
//	    skipped      INTEGER NOT NULL,
//	    source_words INTEGER NOT NULL,
//	    target_words INTEGER NOT NULL,
//	    started_at   TIMESTAMPTZ NOT NULL,
//	    finished_at  TIMESTAMPTZ NOT NULL,
//	    status       TEXT NOT NULL
//	);
package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Parallel-Corpus-Concordance/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/Parallel-Corpus-Concordance/pkg/postgres"
)

const (
	StatusCompleted = "COMPLETED"
	StatusFailed    = "FAILED"
)

// Run describes one ingestion.
type Run struct {
	Corpus     string
	Dir        string
	Stats      indexer.Stats
	StartedAt  time.Time
	FinishedAt time.Time
	Status     string
}

// NewRun fills a Run from an engine's stats. A non-nil buildErr marks the
// run as failed.
func NewRun(corpus, dir string, stats indexer.Stats, started time.Time, buildErr error) Run {
	status := StatusCompleted
	if buildErr != nil {
		status = StatusFailed
	}
	return Run{
		Corpus:     corpus,
		Dir:        dir,
		Stats:      stats,
		StartedAt:  started.UTC(),
		FinishedAt: time.Now().UTC(),
		Status:     status,
	}
}

func (r Run) args() []any {
	return []any{
		r.Corpus, r.Dir,
		r.Stats.Chunks, r.Stats.Sentences, r.Stats.Skipped,
		r.Stats.SourceWords, r.Stats.TargetWords,
		r.StartedAt, r.FinishedAt, r.Status,
	}
}

const insertRun = `INSERT INTO ingestion_runs
	(corpus, dir, chunks, sentences, skipped, source_words, target_words, started_at, finished_at, status)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	RETURNING id`

// Catalog persists ingestion runs.
type Catalog struct {
	db     *postgres.Client
	logger *slog.Logger
}

func New(db *postgres.Client) *Catalog {
	return &Catalog{
		db:     db,
		logger: slog.Default().With("component", "ingestion-catalog"),
	}
}

// Record inserts run and returns its row id.
func (c *Catalog) Record(ctx context.Context, run Run) (int64, error) {
	var id int64
	err := c.db.InTx(ctx, func(tx *sql.Tx) error {
		return tx.QueryRowContext(ctx, insertRun, run.args()...).Scan(&id)
	})
	if err != nil {
		return 0, fmt.Errorf("recording ingestion run: %w", err)
	}
	c.logger.Info("ingestion run recorded",
		"id", id,
		"corpus", run.Corpus,
		"sentences", run.Stats.Sentences,
		"status", run.Status,
	)
	return id, nil
}

// Latest returns the most recent runs of corpus, newest first.
func (c *Catalog) Latest(ctx context.Context, corpus string, limit int) ([]Run, error) {
	rows, err := c.db.DB.QueryContext(ctx,
		`SELECT corpus, dir, chunks, sentences, skipped, source_words, target_words, started_at, finished_at, status
		 FROM ingestion_runs WHERE corpus = $1 ORDER BY finished_at DESC LIMIT $2`,
		corpus, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("listing ingestion runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		if err := rows.Scan(&r.Corpus, &r.Dir,
			&r.Stats.Chunks, &r.Stats.Sentences, &r.Stats.Skipped,
			&r.Stats.SourceWords, &r.Stats.TargetWords,
			&r.StartedAt, &r.FinishedAt, &r.Status); err != nil {
			return nil, fmt.Errorf("scanning ingestion run: %w", err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}
