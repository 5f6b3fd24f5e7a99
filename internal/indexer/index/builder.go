package index

import (
	"sync"

	"github.com/Adithya-Monish-Kumar-K/Parallel-Corpus-Concordance/internal/corpus"
	apperrors "github.com/Adithya-Monish-Kumar-K/Parallel-Corpus-Concordance/pkg/errors"
)

const initialPostingCap = 4

// Builder accumulates packed occurrences per word id during ingestion. Each
// word owns a growable slice in the arena, indexed by id.
type Builder struct {
	mu          sync.Mutex
	postings    [][]uint32
	occurrences int
}

// NewBuilder sizes the arena for roughly sizeHint word ids.
func NewBuilder(sizeHint int) *Builder {
	return &Builder{
		postings: make([][]uint32, 0, max(sizeHint, 0)),
	}
}

// Add records that word occurs in sentence of chunk. Occurrences must arrive
// in non-decreasing (chunk, sentence) order; a repeat of the word's last
// occurrence is dropped so every list stays strictly increasing.
func (b *Builder) Add(word corpus.WordID, chunk uint8, sentence uint32) error {
	if word < corpus.FirstWordID {
		return apperrors.Newf(apperrors.ErrOutOfRange, "cannot index reserved word id %d", word)
	}
	packed, err := Encode(chunk, sentence)
	if err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	for int(word) >= len(b.postings) {
		b.postings = append(b.postings, nil)
	}
	list := b.postings[word]
	if n := len(list); n > 0 {
		last := list[n-1]
		if last == packed {
			return nil
		}
		if last > packed {
			return apperrors.Newf(apperrors.ErrOutOfRange,
				"occurrence %d of word %d arrived after %d", packed, word, last)
		}
	}
	if list == nil {
		list = make([]uint32, 0, initialPostingCap)
	}
	b.postings[word] = append(list, packed)
	b.occurrences++
	return nil
}

// Postings returns the occurrences recorded so far for word.
func (b *Builder) Postings(word corpus.WordID) []uint32 {
	b.mu.Lock()
	defer b.mu.Unlock()
	if int(word) >= len(b.postings) {
		return nil
	}
	return append([]uint32(nil), b.postings[word]...)
}

// NrWords returns one past the highest word id seen.
func (b *Builder) NrWords() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.postings)
}

// Occurrences returns the number of stored packed values.
func (b *Builder) Occurrences() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.occurrences
}

// Size estimates the arena's memory footprint in bytes.
func (b *Builder) Size() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	var size int64
	for _, list := range b.postings {
		size += int64(cap(list))*4 + 24
	}
	return size
}

func (b *Builder) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.postings = b.postings[:0]
	b.occurrences = 0
}

// Compact flattens the arena into an immutable CompactIndex covering word ids
// [0, nrwords). Ids beyond the arena get an empty run; arena entries at or
// beyond nrwords are left out.
func (b *Builder) Compact(nrwords int) *CompactIndex {
	b.mu.Lock()
	defer b.mu.Unlock()

	total := 0
	for id, list := range b.postings {
		if id < nrwords {
			total += len(list)
		}
	}
	ci := &CompactIndex{
		offsets:   make([]uint32, nrwords),
		entries:   make([]uint32, 0, total+nrwords),
		nrentries: total,
	}
	for id := 0; id < nrwords; id++ {
		ci.offsets[id] = uint32(len(ci.entries))
		if id < len(b.postings) {
			ci.entries = append(ci.entries, b.postings[id]...)
		}
		ci.entries = append(ci.entries, corpus.Terminator)
	}
	return ci
}
