package catalog

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/Adithya-Monish-Kumar-K/Parallel-Corpus-Concordance/internal/indexer"
)

func TestNewRunStatus(t *testing.T) {
	started := time.Now().Add(-time.Minute)
	stats := indexer.Stats{Chunks: 2, Sentences: 10, Skipped: 1, SourceWords: 50, TargetWords: 60}

	ok := NewRun("toy", "/data/toy", stats, started, nil)
	assert.Equal(t, StatusCompleted, ok.Status)
	assert.False(t, ok.FinishedAt.Before(ok.StartedAt))

	failed := NewRun("toy", "/data/toy", stats, started, errors.New("disk full"))
	assert.Equal(t, StatusFailed, failed.Status)
}

func TestRunArgsMatchInsertColumns(t *testing.T) {
	run := NewRun("toy", "/d", indexer.Stats{Chunks: 1, Sentences: 3, SourceWords: 9, TargetWords: 8}, time.Now(), nil)
	args := run.args()
	assert.Len(t, args, 10)
	assert.Equal(t, "toy", args[0])
	assert.Equal(t, 3, args[3])
	assert.Equal(t, StatusCompleted, args[9])
}
