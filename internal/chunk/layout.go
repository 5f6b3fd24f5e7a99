// Package chunk manages the physical partitions of a corpus directory. Each
// chunk owns a source and a target corpus file with their offset indexes and
// an optional rank file; the Manager routes sentence retrieval to the right
// chunk and the RankCache keeps the two most recently used rank arrays.
package chunk

import (
	"fmt"
	"path/filepath"

	"github.com/Adithya-Monish-Kumar-K/Parallel-Corpus-Concordance/internal/corpus"
)

// MaxChunks is the largest number of chunks a packed occurrence can address.
const MaxChunks = 255

// Layout names every file of a corpus directory.
type Layout struct {
	Dir string
}

func (l Layout) Corpus(side corpus.Side, chunk uint8) string {
	return filepath.Join(l.Dir, fmt.Sprintf("%s.%03d.crp", side, chunk))
}

func (l Layout) Rank(chunk uint8) string {
	return filepath.Join(l.Dir, fmt.Sprintf("rank.%03d.rnk", chunk))
}

func (l Layout) Lexicon(side corpus.Side) string {
	return filepath.Join(l.Dir, side.String()+".lex")
}

func (l Layout) Index(side corpus.Side) string {
	return filepath.Join(l.Dir, side.String()+".invidx")
}

// Dictionary names the translation dictionary whose entries are words of
// side.
func (l Layout) Dictionary(side corpus.Side) string {
	return filepath.Join(l.Dir, fmt.Sprintf("%s-%s.dic", side, side.Other()))
}

func (l Layout) Ngrams(side corpus.Side) string {
	return filepath.Join(l.Dir, side.String()+".ngrams")
}

func (l Layout) Meta() string {
	return filepath.Join(l.Dir, "corpus.yaml")
}
