// Package lexicon maps words to dense numeric ids for one language of a
// parallel corpus. Ids 0 and 1 are reserved for the sentence terminator and
// the query wildcard, so the first word added receives id 2.
package lexicon

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"slices"
	"sort"

	"github.com/Adithya-Monish-Kumar-K/Parallel-Corpus-Concordance/internal/corpus"
	apperrors "github.com/Adithya-Monish-Kumar-K/Parallel-Corpus-Concordance/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/Parallel-Corpus-Concordance/pkg/fileutil"
)

// WildcardToken is the query token resolving to corpus.Wildcard.
const WildcardToken = "*"

type entry struct {
	word  string
	count uint32
}

// Lexicon is not safe for concurrent mutation. Once built or loaded it is
// read-only and may be shared.
type Lexicon struct {
	ids         map[string]corpus.WordID
	entries     []entry
	occurrences uint32
}

func New() *Lexicon {
	return &Lexicon{
		ids:     make(map[string]corpus.WordID),
		entries: make([]entry, corpus.FirstWordID),
	}
}

// Add registers one occurrence of word and returns its id. The first insertion
// assigns the id; later insertions only increment the count.
func (l *Lexicon) Add(word string) corpus.WordID {
	l.occurrences++
	if id, ok := l.ids[word]; ok {
		l.entries[id].count++
		return id
	}
	id := corpus.WordID(len(l.entries))
	l.entries = append(l.entries, entry{word: word, count: 1})
	l.ids[word] = id
	return id
}

// ID looks a word up without modifying counts.
func (l *Lexicon) ID(word string) (corpus.WordID, bool) {
	id, ok := l.ids[word]
	return id, ok
}

// Resolve maps a query token to an id, treating "*" as the wildcard.
func (l *Lexicon) Resolve(token string) (corpus.WordID, bool) {
	if token == WildcardToken {
		return corpus.Wildcard, true
	}
	return l.ID(token)
}

func (l *Lexicon) Word(id corpus.WordID) (string, bool) {
	if id < corpus.FirstWordID || int(id) >= len(l.entries) || l.entries[id].count == 0 {
		return "", false
	}
	return l.entries[id].word, true
}

func (l *Lexicon) Count(id corpus.WordID) uint32 {
	if int(id) >= len(l.entries) {
		return 0
	}
	return l.entries[id].count
}

// Size returns the number of distinct words.
func (l *Lexicon) Size() int {
	return len(l.ids)
}

// NrIDs returns one past the highest assigned id, the table width an index
// over this vocabulary needs.
func (l *Lexicon) NrIDs() int {
	return len(l.entries)
}

// Occurrences returns the total number of Add calls.
func (l *Lexicon) Occurrences() uint32 {
	return l.occurrences
}

// Save writes u32 size, u32 occurrences, then one record per word in
// lexicographic order: u32 id, u32 count, the word bytes and a NUL.
func (l *Lexicon) Save(path string) error {
	words := make([]string, 0, len(l.ids))
	for w := range l.ids {
		words = append(words, w)
	}
	sort.Strings(words)

	err := fileutil.WriteAtomic(path, func(w io.Writer) error {
		var rec [8]byte
		binary.LittleEndian.PutUint32(rec[0:4], uint32(len(words)))
		binary.LittleEndian.PutUint32(rec[4:8], l.occurrences)
		if _, err := w.Write(rec[:]); err != nil {
			return fmt.Errorf("writing header: %w", err)
		}
		for _, word := range words {
			if bytes.IndexByte([]byte(word), 0) >= 0 {
				return fmt.Errorf("word %q contains NUL", word)
			}
			id := l.ids[word]
			binary.LittleEndian.PutUint32(rec[0:4], id)
			binary.LittleEndian.PutUint32(rec[4:8], l.entries[id].count)
			if _, err := w.Write(rec[:]); err != nil {
				return fmt.Errorf("writing record: %w", err)
			}
			if _, err := io.WriteString(w, word); err != nil {
				return fmt.Errorf("writing record: %w", err)
			}
			if _, err := w.Write([]byte{0}); err != nil {
				return fmt.Errorf("writing record: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("saving lexicon %s: %w", path, err)
	}
	return nil
}

func Load(path string) (*Lexicon, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening lexicon: %w", err)
	}
	defer f.Close()

	l, err := read(bufio.NewReader(f))
	if err != nil {
		return nil, fmt.Errorf("loading lexicon %s: %w", path, err)
	}
	return l, nil
}

type record struct {
	id    corpus.WordID
	count uint32
	word  string
}

// read parses every record before growing the id table. Ids are dense, so a
// file with n records only uses ids below n+FirstWordID.
func read(r *bufio.Reader) (*Lexicon, error) {
	var rec [8]byte
	if _, err := io.ReadFull(r, rec[:]); err != nil {
		return nil, apperrors.New(apperrors.ErrFormat, "missing header")
	}
	size := binary.LittleEndian.Uint32(rec[0:4])
	l := New()
	l.occurrences = binary.LittleEndian.Uint32(rec[4:8])

	var records []record
	for i := uint32(0); i < size; i++ {
		if _, err := io.ReadFull(r, rec[:]); err != nil {
			return nil, apperrors.Newf(apperrors.ErrFormat, "record %d of %d: truncated", i, size)
		}
		id := binary.LittleEndian.Uint32(rec[0:4])
		count := binary.LittleEndian.Uint32(rec[4:8])
		word, err := r.ReadString(0)
		if err != nil {
			return nil, apperrors.Newf(apperrors.ErrFormat, "record %d of %d: unterminated word", i, size)
		}
		word = word[:len(word)-1]
		if id < corpus.FirstWordID {
			return nil, apperrors.Newf(apperrors.ErrFormat, "word %q uses reserved id %d", word, id)
		}
		if uint64(id) >= uint64(size)+uint64(corpus.FirstWordID) {
			return nil, apperrors.Newf(apperrors.ErrFormat, "word %q has id %d beyond %d words", word, id, size)
		}
		records = append(records, record{id: id, count: count, word: word})
	}

	l.entries = slices.Grow(l.entries, len(records))[:len(records)+int(corpus.FirstWordID)]
	for _, rc := range records {
		if err := l.insert(rc.id, rc.count, rc.word); err != nil {
			return nil, err
		}
	}
	return l, nil
}

func (l *Lexicon) insert(id corpus.WordID, count uint32, word string) error {
	if _, dup := l.ids[word]; dup {
		return apperrors.Newf(apperrors.ErrFormat, "duplicate word %q", word)
	}
	if l.entries[id].count != 0 {
		return apperrors.Newf(apperrors.ErrFormat, "duplicate id %d", id)
	}
	if count == 0 {
		count = 1
	}
	l.entries[id] = entry{word: word, count: count}
	l.ids[word] = id
	return nil
}
