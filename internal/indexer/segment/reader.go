package segment

import (
	"encoding/binary"
	"fmt"
	"os"

	"github.com/Adithya-Monish-Kumar-K/Parallel-Corpus-Concordance/internal/indexer/index"
	apperrors "github.com/Adithya-Monish-Kumar-K/Parallel-Corpus-Concordance/pkg/errors"
)

// Load reads a compact index with a single read of the whole file.
func Load(path string) (*index.CompactIndex, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading index file: %w", err)
	}
	ci, err := decode(data)
	if err != nil {
		return nil, fmt.Errorf("loading index %s: %w", path, err)
	}
	return ci, nil
}

func decode(data []byte) (*index.CompactIndex, error) {
	if len(data) < wordSize || len(data)%wordSize != 0 {
		return nil, apperrors.Newf(apperrors.ErrFormat, "size %d is not a whole number of words", len(data))
	}
	nrwords := int(binary.LittleEndian.Uint32(data[:wordSize]))
	words := (len(data) - wordSize) / wordSize
	if words < 2*nrwords {
		return nil, apperrors.Newf(apperrors.ErrFormat,
			"truncated: %d words cannot hold %d offsets and their runs", words, nrwords)
	}
	body := data[wordSize:]
	offsets := make([]uint32, nrwords)
	for i := range offsets {
		offsets[i] = binary.LittleEndian.Uint32(body[i*wordSize:])
	}
	body = body[nrwords*wordSize:]
	entries := make([]uint32, len(body)/wordSize)
	for i := range entries {
		entries[i] = binary.LittleEndian.Uint32(body[i*wordSize:])
	}
	return index.NewCompactIndex(offsets, entries)
}
