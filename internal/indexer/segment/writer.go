package segment

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/Adithya-Monish-Kumar-K/Parallel-Corpus-Concordance/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/Parallel-Corpus-Concordance/pkg/fileutil"
)

// Index files are little-endian u32 arrays laid out as:
//
//	nrwords | offsets[nrwords] | entries[nrentries+nrwords]
//
// The entries length is implied by the file size.
const wordSize = 4

// Write atomically stores ci at path, going through a .tmp file.
func Write(path string, ci *index.CompactIndex) error {
	err := fileutil.WriteAtomic(path, func(w io.Writer) error {
		offsets, entries := ci.Offsets(), ci.Entries()
		header := make([]byte, wordSize)
		binary.LittleEndian.PutUint32(header, uint32(len(offsets)))
		if _, err := w.Write(header); err != nil {
			return fmt.Errorf("writing header: %w", err)
		}
		if err := writeWords(w, offsets); err != nil {
			return fmt.Errorf("writing offsets: %w", err)
		}
		if err := writeWords(w, entries); err != nil {
			return fmt.Errorf("writing entries: %w", err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("writing index %s: %w", path, err)
	}
	return nil
}

func writeWords(w io.Writer, values []uint32) error {
	const batch = 8192
	buf := make([]byte, batch*wordSize)
	for start := 0; start < len(values); start += batch {
		end := min(start+batch, len(values))
		n := 0
		for _, v := range values[start:end] {
			binary.LittleEndian.PutUint32(buf[n:], v)
			n += wordSize
		}
		if _, err := w.Write(buf[:n]); err != nil {
			return err
		}
	}
	return nil
}
