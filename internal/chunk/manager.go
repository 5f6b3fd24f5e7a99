package chunk

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/Adithya-Monish-Kumar-K/Parallel-Corpus-Concordance/internal/corpus"
	apperrors "github.com/Adithya-Monish-Kumar-K/Parallel-Corpus-Concordance/pkg/errors"
)

type chunkFiles struct {
	id        uint8
	sentences int
	readers   [2]*corpus.Reader
	offsets   [2][]uint32
}

func (c *chunkFiles) close() error {
	var firstErr error
	for _, r := range c.readers {
		if r == nil {
			continue
		}
		if err := r.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Manager owns the open chunk files of one corpus. Chunk ids run from 1 to
// NrChunks. Retrieval only reads immutable state plus the mutex-protected
// rank cache, so it is safe for concurrent use.
type Manager struct {
	layout Layout
	chunks []*chunkFiles
	ranks  *RankCache
	logger *slog.Logger
}

// Open loads the offset indexes of nrChunks chunks and keeps their corpus
// files open.
func Open(ctx context.Context, layout Layout, nrChunks int) (*Manager, error) {
	if nrChunks < 1 || nrChunks > MaxChunks {
		return nil, apperrors.Newf(apperrors.ErrOutOfRange, "%d chunks outside 1..%d", nrChunks, MaxChunks)
	}
	m := &Manager{
		layout: layout,
		chunks: make([]*chunkFiles, nrChunks),
		ranks:  NewRankCache(),
		logger: slog.Default().With("component", "chunk-manager", "dir", layout.Dir),
	}

	g, ctx := errgroup.WithContext(ctx)
	for i := range m.chunks {
		id := uint8(i + 1)
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			cf, err := openChunk(layout, id)
			if err != nil {
				return fmt.Errorf("opening chunk %d: %w", id, err)
			}
			m.chunks[id-1] = cf
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		m.Close()
		return nil, err
	}

	total := 0
	for _, c := range m.chunks {
		total += c.sentences
	}
	m.logger.Info("chunks opened", "chunks", nrChunks, "sentences", total)
	return m, nil
}

func openChunk(layout Layout, id uint8) (*chunkFiles, error) {
	cf := &chunkFiles{id: id}
	for _, side := range []corpus.Side{corpus.Source, corpus.Target} {
		path := layout.Corpus(side, id)
		offsets, err := corpus.LoadOffsets(path)
		if err != nil {
			cf.close()
			return nil, err
		}
		r, err := corpus.OpenReader(path)
		if err != nil {
			cf.close()
			return nil, err
		}
		cf.offsets[side] = offsets
		cf.readers[side] = r
	}
	src, tgt := len(cf.offsets[corpus.Source]), len(cf.offsets[corpus.Target])
	if src != tgt {
		cf.close()
		return nil, apperrors.Newf(apperrors.ErrFormat,
			"source has %d sentences, target %d", max(src-1, 0), max(tgt-1, 0))
	}
	cf.sentences = max(src-1, 0)
	return cf, nil
}

func (m *Manager) chunk(id uint8) (*chunkFiles, error) {
	if id < 1 || int(id) > len(m.chunks) {
		return nil, apperrors.Newf(apperrors.ErrOutOfRange, "chunk %d outside 1..%d", id, len(m.chunks))
	}
	return m.chunks[id-1], nil
}

// RetrieveSentence reads one sentence of side and its rank. Quality is NoRank
// when the chunk has no rank file.
func (m *Manager) RetrieveSentence(side corpus.Side, chunk uint8, sentence uint32) ([]corpus.Cell, float64, error) {
	cf, err := m.chunk(chunk)
	if err != nil {
		return nil, NoRank, err
	}
	cells, err := cf.readers[side].ReadSentence(cf.offsets[side], int(sentence))
	if err != nil {
		return nil, NoRank, err
	}
	quality := NoRank
	if ranks, ok := m.ranks.Load(m.layout.Rank(chunk), cf.sentences); ok {
		quality = ranks[sentence]
	}
	return cells, quality, nil
}

func (m *Manager) NrChunks() int {
	return len(m.chunks)
}

// Sentences returns the number of aligned sentences in chunk.
func (m *Manager) Sentences(chunk uint8) int {
	cf, err := m.chunk(chunk)
	if err != nil {
		return 0
	}
	return cf.sentences
}

// TotalSentences sums the sentences of every chunk.
func (m *Manager) TotalSentences() int {
	total := 0
	for _, c := range m.chunks {
		total += c.sentences
	}
	return total
}

func (m *Manager) Ranks() *RankCache {
	return m.ranks
}

func (m *Manager) Layout() Layout {
	return m.layout
}

// Close closes every chunk, returning the first error encountered.
func (m *Manager) Close() error {
	var firstErr error
	for _, c := range m.chunks {
		if c == nil {
			continue
		}
		if err := c.close(); err != nil {
			m.logger.Error("close failed", "chunk", c.id, "error", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}
