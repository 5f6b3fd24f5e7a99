package corpus

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"

	apperrors "github.com/Adithya-Monish-Kumar-K/Parallel-Corpus-Concordance/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/Parallel-Corpus-Concordance/pkg/fileutil"
)

const (
	// CellSize is the on-disk record size: u32 word, u8 flags, 3 pad bytes.
	CellSize = 8
	// HeaderSize is the u32 cell count preceding the records.
	HeaderSize = 4
	// IndexSuffix names the offset index written next to a corpus file.
	IndexSuffix = ".index"

	batchCells = 4096
)

// Save writes the cell file and its offset index. The corpus must end with a
// terminator for the index sentinel to equal the cell count.
func (c *Corpus) Save(path string) error {
	err := fileutil.WriteAtomic(path, func(w io.Writer) error {
		return writeCells(w, c.cells)
	})
	if err != nil {
		return fmt.Errorf("writing corpus %s: %w", path, err)
	}
	offsets := c.offsets
	if len(offsets) == 0 || offsets[len(offsets)-1] != uint32(len(c.cells)) {
		c.RebuildOffsets()
		offsets = c.offsets
	}
	return SaveOffsets(path, offsets)
}

func writeCells(w io.Writer, cells []Cell) error {
	header := make([]byte, HeaderSize)
	binary.LittleEndian.PutUint32(header, uint32(len(cells)))
	if _, err := w.Write(header); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	buf := make([]byte, batchCells*CellSize)
	for start := 0; start < len(cells); start += batchCells {
		end := min(start+batchCells, len(cells))
		n := 0
		for _, cell := range cells[start:end] {
			encodeCell(buf[n:n+CellSize], cell)
			n += CellSize
		}
		if _, err := w.Write(buf[:n]); err != nil {
			return fmt.Errorf("writing cells: %w", err)
		}
	}
	return nil
}

func encodeCell(b []byte, cell Cell) {
	binary.LittleEndian.PutUint32(b[0:4], cell.Word)
	b[4] = cell.Flags
	b[5], b[6], b[7] = 0, 0, 0
}

func decodeCells(b []byte) []Cell {
	cells := make([]Cell, len(b)/CellSize)
	for i := range cells {
		rec := b[i*CellSize : (i+1)*CellSize]
		cells[i] = Cell{Word: binary.LittleEndian.Uint32(rec[0:4]), Flags: rec[4]}
	}
	return cells
}

// SaveOffsets writes path.index: u32 count followed by the offsets.
func SaveOffsets(path string, offsets []uint32) error {
	err := fileutil.WriteAtomic(path+IndexSuffix, func(w io.Writer) error {
		return writeUint32s(w, offsets)
	})
	if err != nil {
		return fmt.Errorf("writing offset index for %s: %w", path, err)
	}
	return nil
}

func writeUint32s(w io.Writer, values []uint32) error {
	buf := make([]byte, 4+4*len(values))
	binary.LittleEndian.PutUint32(buf[0:4], uint32(len(values)))
	for i, v := range values {
		binary.LittleEndian.PutUint32(buf[4+4*i:], v)
	}
	_, err := w.Write(buf)
	return err
}

// Load reads a cell file. The offset index is not reconstructed; use
// LoadOffsets or RebuildOffsets when random access is needed.
func Load(path string) (*Corpus, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading corpus: %w", err)
	}
	if len(data) < HeaderSize {
		return nil, apperrors.Newf(apperrors.ErrFormat, "corpus %s: missing header", path)
	}
	n := int(binary.LittleEndian.Uint32(data[:HeaderSize]))
	body := data[HeaderSize:]
	if len(body) < n*CellSize {
		return nil, apperrors.Newf(apperrors.ErrFormat,
			"corpus %s: declared %d cells, found %d", path, n, len(body)/CellSize)
	}
	return &Corpus{cells: decodeCells(body[:n*CellSize])}, nil
}

// LoadOffsets reads path.index.
func LoadOffsets(path string) ([]uint32, error) {
	data, err := os.ReadFile(path + IndexSuffix)
	if err != nil {
		return nil, fmt.Errorf("reading offset index: %w", err)
	}
	if len(data) < 4 {
		return nil, apperrors.Newf(apperrors.ErrFormat, "offset index %s: missing header", path)
	}
	n := int(binary.LittleEndian.Uint32(data[:4]))
	if len(data)-4 < 4*n {
		return nil, apperrors.Newf(apperrors.ErrFormat,
			"offset index %s: declared %d offsets, found %d", path, n, (len(data)-4)/4)
	}
	offsets := make([]uint32, n)
	for i := range offsets {
		offsets[i] = binary.LittleEndian.Uint32(data[4+4*i:])
	}
	for i := 1; i < n; i++ {
		if offsets[i] <= offsets[i-1] {
			return nil, apperrors.Newf(apperrors.ErrFormat,
				"offset index %s: offsets not increasing at %d", path, i)
		}
	}
	return offsets, nil
}

// SentenceCount returns the number of sentences recorded in path.index
// without loading the whole file. A missing index counts as empty.
func SentenceCount(path string) (int, error) {
	f, err := os.Open(path + IndexSuffix)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("opening offset index: %w", err)
	}
	defer f.Close()
	var header [4]byte
	if _, err := io.ReadFull(f, header[:]); err != nil {
		return 0, apperrors.Newf(apperrors.ErrFormat, "offset index %s: missing header", path)
	}
	n := int(binary.LittleEndian.Uint32(header[:]))
	if n == 0 {
		return 0, nil
	}
	return n - 1, nil
}

// Retrieve opens path and reads sentence i, terminator included, into a fresh
// slice.
func Retrieve(path string, offsets []uint32, i int) ([]Cell, error) {
	r, err := OpenReader(path)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return r.ReadSentence(offsets, i)
}

// Reader keeps a corpus file open for repeated random access. ReadSentence
// only uses ReadAt, so one Reader may serve concurrent callers.
type Reader struct {
	file *os.File
	path string
}

func OpenReader(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening corpus file: %w", err)
	}
	return &Reader{file: f, path: path}, nil
}

func (r *Reader) Path() string {
	return r.path
}

func (r *Reader) ReadSentence(offsets []uint32, i int) ([]Cell, error) {
	if i < 0 || i+1 >= len(offsets) {
		return nil, apperrors.Newf(apperrors.ErrOutOfRange,
			"sentence %d outside %s (%d sentences)", i, r.path, max(len(offsets)-1, 0))
	}
	start, end := offsets[i], offsets[i+1]
	buf := make([]byte, int(end-start)*CellSize)
	if _, err := r.file.ReadAt(buf, HeaderSize+int64(start)*CellSize); err != nil {
		return nil, apperrors.Newf(apperrors.ErrFormat, "reading sentence %d of %s: %v", i, r.path, err)
	}
	return decodeCells(buf), nil
}

func (r *Reader) Close() error {
	return r.file.Close()
}
