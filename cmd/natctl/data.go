package main

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/Parallel-Corpus-Concordance/internal/chunk"
	"github.com/Adithya-Monish-Kumar-K/Parallel-Corpus-Concordance/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/Parallel-Corpus-Concordance/internal/dictionary"
	"github.com/Adithya-Monish-Kumar-K/Parallel-Corpus-Concordance/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/Parallel-Corpus-Concordance/internal/lexicon"
	"github.com/Adithya-Monish-Kumar-K/Parallel-Corpus-Concordance/internal/ngrams"
	apperrors "github.com/Adithya-Monish-Kumar-K/Parallel-Corpus-Concordance/pkg/errors"
)

type RankCmd struct {
	Dir    string `arg:"" type:"existingdir" help:"Corpus directory."`
	Chunk  uint8  `arg:"" help:"Chunk id, counting from 1."`
	Scores string `arg:"" type:"existingfile" help:"One quality score per line, in sentence order."`
}

func (c *RankCmd) Run(e *env) error {
	layout := chunk.Layout{Dir: c.Dir}
	meta, err := indexer.LoadMeta(c.Dir)
	if err != nil {
		return err
	}
	m, err := chunk.Open(e.ctx, layout, meta.NrChunks)
	if err != nil {
		return err
	}
	want := m.Sentences(c.Chunk)
	m.Close()
	if want == 0 {
		return apperrors.Newf(apperrors.ErrOutOfRange, "chunk %d not in 1..%d", c.Chunk, meta.NrChunks)
	}

	ranks, err := readScores(c.Scores)
	if err != nil {
		return err
	}
	if len(ranks) != want {
		return apperrors.Newf(apperrors.ErrFormat, "%s has %d scores, chunk %d has %d sentences", c.Scores, len(ranks), c.Chunk, want)
	}
	if err := chunk.WriteRanks(layout.Rank(c.Chunk), ranks); err != nil {
		return err
	}
	fmt.Fprintf(e.out, "chunk %d: %d scores written\n", c.Chunk, len(ranks))
	return nil
}

func readScores(path string) ([]float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening scores: %w", err)
	}
	defer f.Close()

	var out []float64
	sc := bufio.NewScanner(f)
	for n := 1; sc.Scan(); n++ {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		v, err := strconv.ParseFloat(line, 64)
		if err != nil {
			return nil, apperrors.Newf(apperrors.ErrFormat, "%s line %d: %v", path, n, err)
		}
		out = append(out, v)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading scores: %w", err)
	}
	return out, nil
}

type NgramsCmd struct {
	Side string `default:"both" enum:"source,target,both" help:"Language side to build (source, target, both)."`

	Dir string `arg:"" type:"existingdir" help:"Corpus directory."`
}

func (c *NgramsCmd) sides() []corpus.Side {
	switch c.Side {
	case "source":
		return []corpus.Side{corpus.Source}
	case "target":
		return []corpus.Side{corpus.Target}
	}
	return []corpus.Side{corpus.Source, corpus.Target}
}

func (c *NgramsCmd) Run(e *env) error {
	layout := chunk.Layout{Dir: c.Dir}
	meta, err := indexer.LoadMeta(c.Dir)
	if err != nil {
		return err
	}
	for _, side := range c.sides() {
		chunks := make([]*corpus.Corpus, 0, meta.NrChunks)
		for id := 1; id <= meta.NrChunks; id++ {
			crp, err := corpus.Load(layout.Corpus(side, uint8(id)))
			if err != nil {
				return err
			}
			chunks = append(chunks, crp)
		}
		counts, err := ngrams.Build(e.ctx, layout.Ngrams(side), chunks...)
		if err != nil {
			return err
		}
		fmt.Fprintf(e.out, "%s: %d sentences, %d bigrams, %d trigrams, %d tetragrams\n",
			side, counts.Sentences, counts.Grams[2], counts.Grams[3], counts.Grams[4])
	}
	return nil
}

type DictCmd struct {
	Reverse bool `help:"The table maps target words to source words."`

	Dir   string `arg:"" type:"existingdir" help:"Corpus directory."`
	Table string `arg:"" type:"existingfile" help:"Lines of \"word translation probability\"."`
}

func (c *DictCmd) Run(e *env) error {
	layout := chunk.Layout{Dir: c.Dir}
	side := corpus.Source
	if c.Reverse {
		side = corpus.Target
	}
	from, err := lexicon.Load(layout.Lexicon(side))
	if err != nil {
		return err
	}
	to, err := lexicon.Load(layout.Lexicon(side.Other()))
	if err != nil {
		return err
	}

	f, err := os.Open(c.Table)
	if err != nil {
		return fmt.Errorf("opening dictionary table: %w", err)
	}
	defer f.Close()
	d, stats, err := dictionary.Import(f, from, to)
	if err != nil {
		return err
	}
	if err := d.Save(layout.Dictionary(side)); err != nil {
		return err
	}
	fmt.Fprintf(e.out, "%s dictionary: %d words from %d lines, %d lines with unknown words\n", side, stats.Words, stats.Lines, stats.Unknown)
	return nil
}
