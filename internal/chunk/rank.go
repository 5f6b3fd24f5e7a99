package chunk

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"math"
	"os"
	"sync"
	"sync/atomic"

	apperrors "github.com/Adithya-Monish-Kumar-K/Parallel-Corpus-Concordance/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/Parallel-Corpus-Concordance/pkg/fileutil"
)

// NoRank is the quality reported for sentences without a rank value.
const NoRank = -1.0

type rankSlot struct {
	filename string
	ranks    []float64
}

// RankCache holds the rank arrays of the two most recently loaded rank
// files. A miss fills the slots alternately, evicting the older one.
type RankCache struct {
	mu      sync.Mutex
	slots   [2]rankSlot
	next    int
	hasRank bool

	hits   atomic.Int64
	misses atomic.Int64
	logger *slog.Logger
}

func NewRankCache() *RankCache {
	return &RankCache{
		logger: slog.Default().With("component", "rank-cache"),
	}
}

// Load returns the n rank values stored in filename. A missing or unreadable
// file clears the has-rank flag and reports ok=false; it is not an error.
func (c *RankCache) Load(filename string, n int) ([]float64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, slot := range c.slots {
		if slot.ranks != nil && slot.filename == filename {
			c.hits.Add(1)
			c.hasRank = true
			return slot.ranks, true
		}
	}
	c.misses.Add(1)

	ranks, err := ReadRanks(filename, n)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			c.logger.Warn("rank file unusable", "file", filename, "error", err)
		}
		c.hasRank = false
		return nil, false
	}
	c.slots[c.next] = rankSlot{filename: filename, ranks: ranks}
	c.next = 1 - c.next
	c.hasRank = true
	return ranks, true
}

// HasRank reports whether the most recent Load found a rank file.
func (c *RankCache) HasRank() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hasRank
}

// Cached returns the file names currently held, oldest slot first.
func (c *RankCache) Cached() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	var names []string
	for i := 0; i < len(c.slots); i++ {
		slot := c.slots[(c.next+i)%len(c.slots)]
		if slot.ranks != nil {
			names = append(names, slot.filename)
		}
	}
	return names
}

func (c *RankCache) Hits() int64 {
	return c.hits.Load()
}

func (c *RankCache) Misses() int64 {
	return c.misses.Load()
}

// ReadRanks reads n little-endian f64 values from filename.
func ReadRanks(filename string, n int) ([]float64, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	buf := make([]byte, 8*n)
	if _, err := io.ReadFull(f, buf); err != nil {
		return nil, apperrors.Newf(apperrors.ErrFormat, "rank file %s holds fewer than %d values", filename, n)
	}
	ranks := make([]float64, n)
	for i := range ranks {
		ranks[i] = math.Float64frombits(binary.LittleEndian.Uint64(buf[8*i:]))
	}
	return ranks, nil
}

// WriteRanks stores one f64 per sentence.
func WriteRanks(filename string, ranks []float64) error {
	err := fileutil.WriteAtomic(filename, func(w io.Writer) error {
		buf := make([]byte, 8*len(ranks))
		for i, r := range ranks {
			binary.LittleEndian.PutUint64(buf[8*i:], math.Float64bits(r))
		}
		_, err := w.Write(buf)
		return err
	})
	if err != nil {
		return fmt.Errorf("writing rank file: %w", err)
	}
	return nil
}
