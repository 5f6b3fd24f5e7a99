package indexer

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Adithya-Monish-Kumar-K/Parallel-Corpus-Concordance/internal/chunk"
	"github.com/Adithya-Monish-Kumar-K/Parallel-Corpus-Concordance/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/Parallel-Corpus-Concordance/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/Parallel-Corpus-Concordance/internal/indexer/segment"
	"github.com/Adithya-Monish-Kumar-K/Parallel-Corpus-Concordance/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/Parallel-Corpus-Concordance/internal/lexicon"
	"github.com/Adithya-Monish-Kumar-K/Parallel-Corpus-Concordance/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/Parallel-Corpus-Concordance/pkg/errors"
)

const maxLineBytes = 1 << 20

// Meta is the corpus.yaml document describing a built corpus directory.
type Meta struct {
	Name           string    `yaml:"name"`
	SourceLanguage string    `yaml:"source-language,omitempty"`
	TargetLanguage string    `yaml:"target-language,omitempty"`
	NrChunks       int       `yaml:"nr-chunks"`
	NrSentences    int       `yaml:"nr-sentences"`
	SourceWords    int       `yaml:"source-words"`
	TargetWords    int       `yaml:"target-words"`
	SourceForms    int       `yaml:"source-forms"`
	TargetForms    int       `yaml:"target-forms"`
	Created        time.Time `yaml:"created"`
}

// LoadMeta reads corpus.yaml from a corpus directory.
func LoadMeta(dir string) (*Meta, error) {
	path := chunk.Layout{Dir: dir}.Meta()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading corpus metadata: %w", err)
	}
	var m Meta
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, apperrors.Newf(apperrors.ErrFormat, "parsing %s: %v", path, err)
	}
	if m.NrChunks < 1 || m.NrChunks > chunk.MaxChunks {
		return nil, apperrors.Newf(apperrors.ErrFormat, "%s: nr-chunks %d outside 1..%d", path, m.NrChunks, chunk.MaxChunks)
	}
	return &m, nil
}

// Stats summarises an ingestion run.
type Stats struct {
	Chunks      int
	Sentences   int
	Skipped     int
	SourceWords int
	TargetWords int
}

type side struct {
	lex     *lexicon.Lexicon
	builder *index.Builder
	current *corpus.Corpus
}

// Engine ingests sentence-aligned text into a corpus directory. Completed
// chunks are written as soon as they fill up; Finish writes the last chunk,
// both lexicons, both inverted indexes and corpus.yaml. An Engine is used by
// a single goroutine.
type Engine struct {
	cfg      config.IndexerConfig
	layout   chunk.Layout
	sides    [2]*side
	chunkID  uint8
	sentence uint32
	stats    Stats
	logger   *slog.Logger
}

func NewEngine(cfg config.IndexerConfig, dir string) (*Engine, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating corpus directory: %w", err)
	}
	e := &Engine{
		cfg:    cfg,
		layout: chunk.Layout{Dir: dir},
		logger: slog.Default().With("component", "indexer", "dir", dir),
	}
	for i := range e.sides {
		e.sides[i] = &side{
			lex:     lexicon.New(),
			builder: index.NewBuilder(1 << 14),
		}
	}
	return e, nil
}

// Build reads one sentence per line from both texts until either ends. The
// two texts must hold the same number of lines.
func (e *Engine) Build(ctx context.Context, src, tgt io.Reader) (Stats, error) {
	srcLines := bufio.NewScanner(src)
	srcLines.Buffer(make([]byte, 64*1024), maxLineBytes)
	tgtLines := bufio.NewScanner(tgt)
	tgtLines.Buffer(make([]byte, 64*1024), maxLineBytes)

	for line := 1; ; line++ {
		hasSrc, hasTgt := srcLines.Scan(), tgtLines.Scan()
		if !hasSrc || !hasTgt {
			if err := srcLines.Err(); err != nil {
				return e.stats, fmt.Errorf("reading source text: %w", err)
			}
			if err := tgtLines.Err(); err != nil {
				return e.stats, fmt.Errorf("reading target text: %w", err)
			}
			if hasSrc != hasTgt {
				return e.stats, apperrors.Newf(apperrors.ErrFormat,
					"texts differ in length: one side ends at line %d", line)
			}
			return e.stats, nil
		}
		if line%1000 == 0 {
			if err := ctx.Err(); err != nil {
				return e.stats, err
			}
		}
		if err := e.AddPair(srcLines.Text(), tgtLines.Text()); err != nil {
			return e.stats, fmt.Errorf("line %d: %w", line, err)
		}
	}
}

// AddPair ingests one aligned sentence pair. Pairs with an empty side are
// ignored and pairs longer than MaxSentenceLen tokens are skipped with a
// warning.
func (e *Engine) AddPair(src, tgt string) error {
	opts := tokenizer.Options{IgnoreCase: e.cfg.IgnoreCase, MaxWordLen: e.cfg.MaxWordLen}
	srcTokens := tokenizer.Tokenize(src, opts)
	tgtTokens := tokenizer.Tokenize(tgt, opts)
	if len(srcTokens) == 0 || len(tgtTokens) == 0 {
		return nil
	}
	if limit := e.cfg.MaxSentenceLen; limit > 0 && max(len(srcTokens), len(tgtTokens)) > limit {
		e.logger.Warn("sentence too big, skipping",
			"source_tokens", len(srcTokens),
			"target_tokens", len(tgtTokens),
			"limit", limit,
		)
		e.stats.Skipped++
		return nil
	}
	if err := e.ensureChunk(); err != nil {
		return err
	}
	if err := e.addSentence(e.sides[corpus.Source], srcTokens); err != nil {
		return err
	}
	if err := e.addSentence(e.sides[corpus.Target], tgtTokens); err != nil {
		return err
	}
	e.sentence++
	e.stats.Sentences++
	e.stats.SourceWords += len(srcTokens)
	e.stats.TargetWords += len(tgtTokens)
	return nil
}

func (e *Engine) addSentence(s *side, tokens []tokenizer.Token) error {
	for _, tok := range tokens {
		id := s.lex.Add(tok.Word)
		s.current.AddWord(id, tok.Flags)
		if !tok.Indexed {
			continue
		}
		if err := s.builder.Add(id, e.chunkID, e.sentence); err != nil {
			return err
		}
	}
	s.current.EndSentence()
	return nil
}

// ensureChunk opens the first chunk, or rolls over to a new one when the
// current chunk holds ChunkSize sentences.
func (e *Engine) ensureChunk() error {
	if e.chunkID != 0 {
		full := e.cfg.ChunkSize > 0 && int(e.sentence) >= e.cfg.ChunkSize
		if !full && e.sentence <= index.MaxSentence {
			return nil
		}
		if err := e.flushChunk(); err != nil {
			return err
		}
	}
	if int(e.chunkID) >= chunk.MaxChunks {
		return apperrors.Newf(apperrors.ErrOutOfRange, "corpus needs more than %d chunks", chunk.MaxChunks)
	}
	e.chunkID++
	e.sentence = 0
	for _, s := range e.sides {
		s.current = corpus.New()
	}
	return nil
}

func (e *Engine) flushChunk() error {
	for i, s := range e.sides {
		path := e.layout.Corpus(corpus.Side(i), e.chunkID)
		if err := s.current.Save(path); err != nil {
			return fmt.Errorf("saving chunk %d: %w", e.chunkID, err)
		}
		s.current = nil
	}
	e.stats.Chunks++
	e.logger.Info("chunk written", "chunk", e.chunkID, "sentences", e.sentence)
	return nil
}

// Finish writes everything still in memory and the corpus metadata.
func (e *Engine) Finish(meta Meta) (*Meta, error) {
	if e.stats.Sentences == 0 {
		return nil, apperrors.New(apperrors.ErrFormat, "no sentence pairs to index")
	}
	if err := e.flushChunk(); err != nil {
		return nil, err
	}
	for i, s := range e.sides {
		sd := corpus.Side(i)
		if err := s.lex.Save(e.layout.Lexicon(sd)); err != nil {
			return nil, err
		}
		ci := s.builder.Compact(s.lex.NrIDs())
		if err := segment.Write(e.layout.Index(sd), ci); err != nil {
			return nil, err
		}
		e.logger.Info("index written",
			"side", sd.String(),
			"words", ci.NrWords(),
			"entries", ci.NrEntries(),
		)
	}

	meta.NrChunks = e.stats.Chunks
	meta.NrSentences = e.stats.Sentences
	meta.SourceWords = e.stats.SourceWords
	meta.TargetWords = e.stats.TargetWords
	meta.SourceForms = e.sides[corpus.Source].lex.Size()
	meta.TargetForms = e.sides[corpus.Target].lex.Size()
	if meta.Created.IsZero() {
		meta.Created = time.Now().UTC()
	}
	if strings.TrimSpace(meta.Name) == "" {
		meta.Name = "corpus"
	}
	data, err := yaml.Marshal(&meta)
	if err != nil {
		return nil, fmt.Errorf("encoding corpus metadata: %w", err)
	}
	if err := os.WriteFile(e.layout.Meta(), data, 0o644); err != nil {
		return nil, fmt.Errorf("writing corpus metadata: %w", err)
	}
	e.logger.Info("corpus ready",
		"chunks", meta.NrChunks,
		"sentences", meta.NrSentences,
		"skipped", e.stats.Skipped,
	)
	return &meta, nil
}

func (e *Engine) Stats() Stats {
	return e.stats
}

// Lexicon exposes the vocabulary built so far for side.
func (e *Engine) Lexicon(sd corpus.Side) *lexicon.Lexicon {
	return e.sides[sd].lex
}
