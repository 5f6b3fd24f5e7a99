package index

import (
	"github.com/Adithya-Monish-Kumar-K/Parallel-Corpus-Concordance/internal/corpus"
	apperrors "github.com/Adithya-Monish-Kumar-K/Parallel-Corpus-Concordance/pkg/errors"
)

// CompactIndex is the query-time inverted index: for every word id, offsets
// points at the start of its run in entries, and each run ends with a 0.
// It is never mutated after construction.
type CompactIndex struct {
	offsets   []uint32
	entries   []uint32
	nrentries int
}

// NewCompactIndex validates and wraps raw arrays, as read from disk.
func NewCompactIndex(offsets, entries []uint32) (*CompactIndex, error) {
	if len(entries) < len(offsets) {
		return nil, apperrors.Newf(apperrors.ErrFormat,
			"%d entries cannot hold %d terminated runs", len(entries), len(offsets))
	}
	if len(entries) > 0 && entries[len(entries)-1] != corpus.Terminator {
		return nil, apperrors.New(apperrors.ErrFormat, "last entry is not a terminator")
	}
	terminators := 0
	for _, v := range entries {
		if v == corpus.Terminator {
			terminators++
		}
	}
	for id, off := range offsets {
		if int(off) >= len(entries) {
			return nil, apperrors.Newf(apperrors.ErrFormat,
				"word %d points at %d beyond %d entries", id, off, len(entries))
		}
	}
	return &CompactIndex{
		offsets:   offsets,
		entries:   entries,
		nrentries: len(entries) - terminators,
	}, nil
}

// Postings returns the run for word without its terminator. The slice aliases
// the index and must not be modified. Unknown ids yield nil.
func (ci *CompactIndex) Postings(word corpus.WordID) []uint32 {
	if int(word) >= len(ci.offsets) {
		return nil
	}
	start := int(ci.offsets[word])
	end := start
	for end < len(ci.entries) && ci.entries[end] != corpus.Terminator {
		end++
	}
	if end == start {
		return nil
	}
	return ci.entries[start:end:end]
}

// Frequency returns the number of sentences word occurs in.
func (ci *CompactIndex) Frequency(word corpus.WordID) int {
	return len(ci.Postings(word))
}

func (ci *CompactIndex) NrWords() int {
	return len(ci.offsets)
}

// NrEntries returns the number of packed occurrences, terminators excluded.
func (ci *CompactIndex) NrEntries() int {
	return ci.nrentries
}

// Offsets and Entries expose the raw arrays for persistence.
func (ci *CompactIndex) Offsets() []uint32 {
	return ci.offsets
}

func (ci *CompactIndex) Entries() []uint32 {
	return ci.entries
}
