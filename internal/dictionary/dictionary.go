// Package dictionary reads and writes probabilistic translation dictionaries.
// A dictionary maps every word id of one language to at most MaxEntries
// candidate translations in the other language, each with a probability,
// plus the word's occurrence count in the corpus it was extracted from.
package dictionary

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/klauspost/compress/gzip"

	"github.com/Adithya-Monish-Kumar-K/Parallel-Corpus-Concordance/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/Parallel-Corpus-Concordance/internal/lexicon"
	apperrors "github.com/Adithya-Monish-Kumar-K/Parallel-Corpus-Concordance/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/Parallel-Corpus-Concordance/pkg/fileutil"
)

// MaxEntries is the number of translation slots per word.
const MaxEntries = 8

// Entry is one candidate translation. ID 0 marks an unused slot.
type Entry struct {
	ID   corpus.WordID
	Prob float32
}

type Dictionary struct {
	occurs []uint32
	pairs  []Entry
}

// New allocates a dictionary for word ids [0, size).
func New(size int) *Dictionary {
	return &Dictionary{
		occurs: make([]uint32, size),
		pairs:  make([]Entry, size*MaxEntries),
	}
}

func (d *Dictionary) Size() int {
	return len(d.occurs)
}

func (d *Dictionary) inRange(word corpus.WordID) bool {
	return int(word) < len(d.occurs)
}

// Set stores e in slot of word.
func (d *Dictionary) Set(word corpus.WordID, slot int, e Entry) error {
	if !d.inRange(word) || slot < 0 || slot >= MaxEntries {
		return apperrors.Newf(apperrors.ErrOutOfRange, "word %d slot %d outside dictionary of %d", word, slot, d.Size())
	}
	d.pairs[int(word)*MaxEntries+slot] = e
	return nil
}

func (d *Dictionary) SetOccurrences(word corpus.WordID, n uint32) error {
	if !d.inRange(word) {
		return apperrors.Newf(apperrors.ErrOutOfRange, "word %d outside dictionary of %d", word, d.Size())
	}
	d.occurs[word] = n
	return nil
}

func (d *Dictionary) Occurrences(word corpus.WordID) uint32 {
	if !d.inRange(word) {
		return 0
	}
	return d.occurs[word]
}

// Entries returns the used slots of word in slot order.
func (d *Dictionary) Entries(word corpus.WordID) []Entry {
	if !d.inRange(word) {
		return nil
	}
	var out []Entry
	for _, e := range d.pairs[int(word)*MaxEntries : (int(word)+1)*MaxEntries] {
		if e.ID != 0 {
			out = append(out, e)
		}
	}
	return out
}

// Save writes a gzip stream of u32 size, u32 occurrences[size] and
// size*MaxEntries pairs of u32 id, f32 probability.
func (d *Dictionary) Save(path string) error {
	err := fileutil.WriteAtomic(path, func(w io.Writer) error {
		zw := gzip.NewWriter(w)
		bw := bufio.NewWriter(zw)
		var buf [8]byte
		binary.LittleEndian.PutUint32(buf[:4], uint32(d.Size()))
		if _, err := bw.Write(buf[:4]); err != nil {
			return err
		}
		for _, n := range d.occurs {
			binary.LittleEndian.PutUint32(buf[:4], n)
			if _, err := bw.Write(buf[:4]); err != nil {
				return err
			}
		}
		for _, e := range d.pairs {
			binary.LittleEndian.PutUint32(buf[0:4], e.ID)
			binary.LittleEndian.PutUint32(buf[4:8], math.Float32bits(e.Prob))
			if _, err := bw.Write(buf[:]); err != nil {
				return err
			}
		}
		if err := bw.Flush(); err != nil {
			return err
		}
		return zw.Close()
	})
	if err != nil {
		return fmt.Errorf("saving dictionary %s: %w", path, err)
	}
	return nil
}

func Load(path string) (*Dictionary, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening dictionary: %w", err)
	}
	defer f.Close()

	zr, err := gzip.NewReader(f)
	if err != nil {
		return nil, apperrors.Newf(apperrors.ErrFormat, "dictionary %s: %v", path, err)
	}
	defer zr.Close()
	r := bufio.NewReader(zr)

	var buf [8]byte
	if _, err := io.ReadFull(r, buf[:4]); err != nil {
		return nil, apperrors.Newf(apperrors.ErrFormat, "dictionary %s: missing header", path)
	}
	d := New(int(binary.LittleEndian.Uint32(buf[:4])))
	for i := range d.occurs {
		if _, err := io.ReadFull(r, buf[:4]); err != nil {
			return nil, apperrors.Newf(apperrors.ErrFormat, "dictionary %s: truncated occurrences", path)
		}
		d.occurs[i] = binary.LittleEndian.Uint32(buf[:4])
	}
	for i := range d.pairs {
		if _, err := io.ReadFull(r, buf[:]); err != nil {
			return nil, apperrors.Newf(apperrors.ErrFormat, "dictionary %s: truncated entries", path)
		}
		d.pairs[i] = Entry{
			ID:   binary.LittleEndian.Uint32(buf[0:4]),
			Prob: math.Float32frombits(binary.LittleEndian.Uint32(buf[4:8])),
		}
	}
	return d, nil
}

// ImportStats reports what Import did with its input.
type ImportStats struct {
	Lines   int
	Unknown int
	Words   int
}

// Import builds a dictionary from "source target probability" lines. Words
// missing from either lexicon are counted and skipped. Each source word keeps
// its MaxEntries most probable translations; occurrence counts come from the
// source lexicon.
func Import(r io.Reader, src, tgt *lexicon.Lexicon) (*Dictionary, ImportStats, error) {
	var stats ImportStats
	candidates := make(map[corpus.WordID][]Entry)

	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		stats.Lines++
		fields := strings.Fields(line)
		if len(fields) != 3 {
			return nil, stats, apperrors.Newf(apperrors.ErrFormat, "line %d: want 3 fields, got %d", stats.Lines, len(fields))
		}
		prob, err := strconv.ParseFloat(fields[2], 32)
		if err != nil {
			return nil, stats, apperrors.Newf(apperrors.ErrFormat, "line %d: %v", stats.Lines, err)
		}
		sid, ok1 := src.ID(fields[0])
		tid, ok2 := tgt.ID(fields[1])
		if !ok1 || !ok2 {
			stats.Unknown++
			continue
		}
		candidates[sid] = append(candidates[sid], Entry{ID: tid, Prob: float32(prob)})
	}
	if err := sc.Err(); err != nil {
		return nil, stats, fmt.Errorf("reading dictionary source: %w", err)
	}

	d := New(src.NrIDs())
	for id := corpus.FirstWordID; int(id) < src.NrIDs(); id++ {
		d.occurs[id] = src.Count(id)
	}
	for sid, entries := range candidates {
		sort.SliceStable(entries, func(i, j int) bool { return entries[i].Prob > entries[j].Prob })
		for slot, e := range entries[:min(len(entries), MaxEntries)] {
			d.pairs[int(sid)*MaxEntries+slot] = e
		}
		stats.Words++
	}
	return d, stats, nil
}
