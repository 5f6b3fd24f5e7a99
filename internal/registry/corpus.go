package registry

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"slices"
	"strconv"
	"sync"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Parallel-Corpus-Concordance/internal/chunk"
	"github.com/Adithya-Monish-Kumar-K/Parallel-Corpus-Concordance/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/Parallel-Corpus-Concordance/internal/dictionary"
	"github.com/Adithya-Monish-Kumar-K/Parallel-Corpus-Concordance/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/Parallel-Corpus-Concordance/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/Parallel-Corpus-Concordance/internal/indexer/segment"
	"github.com/Adithya-Monish-Kumar-K/Parallel-Corpus-Concordance/internal/lexicon"
	"github.com/Adithya-Monish-Kumar-K/Parallel-Corpus-Concordance/internal/ngrams"
	apperrors "github.com/Adithya-Monish-Kumar-K/Parallel-Corpus-Concordance/pkg/errors"
)

// Corpus is one loaded corpus directory. Everything but the lazily opened
// n-gram databases is immutable after OpenCorpus.
type Corpus struct {
	ID   int
	Name string
	Dir  string

	config  map[string]string
	lex     [2]*lexicon.Lexicon
	idx     [2]*index.CompactIndex
	dicts   [2]*dictionary.Dictionary
	chunks  *chunk.Manager
	layout  chunk.Layout
	ngramMu sync.Mutex
	ngrams  [2]*ngrams.DB
	logger  *slog.Logger
}

// OpenCorpus loads the metadata, lexicons, inverted indexes, chunk files and
// any translation dictionaries found in dir. A configured name overrides the
// one in corpus.yaml.
func OpenCorpus(ctx context.Context, id int, name, dir string) (*Corpus, error) {
	meta, err := indexer.LoadMeta(dir)
	if err != nil {
		return nil, err
	}
	if name == "" {
		name = meta.Name
	}
	c := &Corpus{
		ID:     id,
		Name:   name,
		Dir:    dir,
		layout: chunk.Layout{Dir: dir},
		logger: slog.Default().With("component", "corpus", "corpus", name),
	}
	c.config = configMap(c, meta)

	for _, side := range []corpus.Side{corpus.Source, corpus.Target} {
		if c.lex[side], err = lexicon.Load(c.layout.Lexicon(side)); err != nil {
			return nil, fmt.Errorf("corpus %s: %w", name, err)
		}
		if c.idx[side], err = segment.Load(c.layout.Index(side)); err != nil {
			return nil, fmt.Errorf("corpus %s: %w", name, err)
		}
		if c.dicts[side], err = loadDictionary(c.layout.Dictionary(side)); err != nil {
			c.logger.Warn("dictionary unusable", "side", side.String(), "error", err)
		}
	}

	if c.chunks, err = chunk.Open(ctx, c.layout, meta.NrChunks); err != nil {
		return nil, fmt.Errorf("corpus %s: %w", name, err)
	}
	c.logger.Info("corpus loaded",
		"id", id,
		"chunks", meta.NrChunks,
		"sentences", c.chunks.TotalSentences(),
		"dictionaries", c.dicts[corpus.Source] != nil,
	)
	return c, nil
}

func loadDictionary(path string) (*dictionary.Dictionary, error) {
	d, err := dictionary.Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	return d, err
}

func configMap(c *Corpus, m *indexer.Meta) map[string]string {
	cfg := map[string]string{
		"name":         c.Name,
		"homedir":      c.Dir,
		"nrchunks":     strconv.Itoa(m.NrChunks),
		"sentences":    strconv.Itoa(m.NrSentences),
		"source-words": strconv.Itoa(m.SourceWords),
		"target-words": strconv.Itoa(m.TargetWords),
		"source-forms": strconv.Itoa(m.SourceForms),
		"target-forms": strconv.Itoa(m.TargetForms),
	}
	if m.SourceLanguage != "" {
		cfg["source-language"] = m.SourceLanguage
	}
	if m.TargetLanguage != "" {
		cfg["target-language"] = m.TargetLanguage
	}
	if !m.Created.IsZero() {
		cfg["created"] = m.Created.UTC().Format(time.RFC3339)
	}
	return cfg
}

// Config returns one configuration value.
func (c *Corpus) Config(key string) (string, bool) {
	v, ok := c.config[key]
	return v, ok
}

// ConfigKeys returns the configuration keys in sorted order.
func (c *Corpus) ConfigKeys() []string {
	keys := make([]string, 0, len(c.config))
	for k := range c.config {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

func (c *Corpus) Lexicon(side corpus.Side) *lexicon.Lexicon {
	return c.lex[side]
}

func (c *Corpus) Index(side corpus.Side) *index.CompactIndex {
	return c.idx[side]
}

func (c *Corpus) RetrieveSentence(side corpus.Side, chunkID uint8, sentence uint32) ([]corpus.Cell, float64, error) {
	return c.chunks.RetrieveSentence(side, chunkID, sentence)
}

func (c *Corpus) Chunks() *chunk.Manager {
	return c.chunks
}

// Dictionary returns the dictionary whose headwords belong to side.
func (c *Corpus) Dictionary(side corpus.Side) (*dictionary.Dictionary, error) {
	if d := c.dicts[side]; d != nil {
		return d, nil
	}
	return nil, apperrors.Newf(apperrors.ErrNotAvailable, "corpus %s has no %s dictionary", c.Name, side)
}

// Ngrams opens the n-gram database of side on first use.
func (c *Corpus) Ngrams(side corpus.Side) (*ngrams.DB, error) {
	c.ngramMu.Lock()
	defer c.ngramMu.Unlock()
	if db := c.ngrams[side]; db != nil {
		return db, nil
	}
	db, err := ngrams.Open(c.layout.Ngrams(side))
	if err != nil {
		return nil, err
	}
	c.ngrams[side] = db
	return db, nil
}

// Close releases chunk files and open n-gram databases.
func (c *Corpus) Close() error {
	var errs []error
	if c.chunks != nil {
		errs = append(errs, c.chunks.Close())
	}
	c.ngramMu.Lock()
	for i, db := range c.ngrams {
		if db != nil {
			errs = append(errs, db.Close())
			c.ngrams[i] = nil
		}
	}
	c.ngramMu.Unlock()
	return errors.Join(errs...)
}
