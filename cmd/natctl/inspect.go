package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Parallel-Corpus-Concordance/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/Parallel-Corpus-Concordance/internal/indexer/catalog"
	"github.com/Adithya-Monish-Kumar-K/Parallel-Corpus-Concordance/internal/registry"
	"github.com/Adithya-Monish-Kumar-K/Parallel-Corpus-Concordance/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/Parallel-Corpus-Concordance/pkg/client"
	"github.com/Adithya-Monish-Kumar-K/Parallel-Corpus-Concordance/pkg/postgres"
)

type InfoCmd struct {
	Dir     string `arg:"" type:"existingdir" help:"Corpus directory."`
	History int    `help:"Also list the last N ingestion runs from the catalog."`
}

func (c *InfoCmd) Run(e *env) error {
	crp, err := registry.OpenCorpus(e.ctx, 1, "", c.Dir)
	if err != nil {
		return err
	}
	defer crp.Close()

	for _, k := range crp.ConfigKeys() {
		v, _ := crp.Config(k)
		fmt.Fprintf(e.out, "%s=%s\n", k, v)
	}
	m := crp.Chunks()
	for id := 1; id <= m.NrChunks(); id++ {
		fmt.Fprintf(e.out, "chunk %d: %d sentences, ranked=%t\n", id, m.Sentences(uint8(id)), fileExists(m.Layout().Rank(uint8(id))))
	}
	for _, side := range []corpus.Side{corpus.Source, corpus.Target} {
		_, dictErr := crp.Dictionary(side)
		fmt.Fprintf(e.out, "%s: dictionary=%t ngrams=%t\n", side, dictErr == nil, fileExists(m.Layout().Ngrams(side)))
	}

	if c.History > 0 {
		return c.history(e, crp.Name)
	}
	return nil
}

func (c *InfoCmd) history(e *env, name string) error {
	if !e.cfg.Postgres.Enabled {
		return errors.New("ingestion history needs postgres to be enabled")
	}
	db, err := postgres.New(e.ctx, e.cfg.Postgres)
	if err != nil {
		return err
	}
	defer db.Close()
	runs, err := catalog.New(db).Latest(e.ctx, name, c.History)
	if err != nil {
		return err
	}
	for _, r := range runs {
		fmt.Fprintf(e.out, "%s %s %d sentences in %s\n",
			r.FinishedAt.Format(time.RFC3339), r.Status, r.Stats.Sentences, r.FinishedAt.Sub(r.StartedAt).Round(time.Millisecond))
	}
	return nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

type GrepCmd struct {
	Target bool `short:"t" help:"Anchor the query on the target language."`
	Exact  bool `short:"e" help:"Require the terms as a contiguous phrase."`
	Both   bool `short:"b" help:"Check both languages; separate the target terms with <-> or <=>."`
	Limit  int  `short:"n" help:"Maximum number of translation units; the server default when 0."`

	Dir   string   `arg:"" type:"existingdir" help:"Corpus directory."`
	Terms []string `arg:"" help:"Query terms; * matches any word."`
}

func (c *GrepCmd) query(foldCase bool) (executor.Query, error) {
	q := executor.Query{
		Direction: 1,
		Both:      c.Both,
		Exact:     c.Exact,
		Tokens:    c.Terms,
		FoldCase:  foldCase,
	}
	if c.Target {
		if c.Both {
			return q, errors.New("--both queries are anchored on the source language")
		}
		q.Direction = -1
	}
	if c.Limit > 0 {
		q.Tokens = append(q.Tokens[:len(q.Tokens):len(q.Tokens)], "#"+strconv.Itoa(c.Limit))
	}
	return q, nil
}

func (c *GrepCmd) Run(e *env) error {
	q, err := c.query(e.cfg.Indexer.IgnoreCase)
	if err != nil {
		return err
	}
	crp, err := registry.OpenCorpus(e.ctx, 1, "", c.Dir)
	if err != nil {
		return err
	}
	defer crp.Close()

	stats, err := executor.New(e.cfg.Search).Execute(e.ctx, crp, q, executor.SinkFunc(func(tu executor.TranslationUnit) error {
		if tu.Quality >= 0 {
			if _, err := fmt.Fprintf(e.out, "%% %f\n", tu.Quality); err != nil {
				return err
			}
		}
		_, err := fmt.Fprintf(e.out, "%s\n%s\n\n", tu.Source, tu.Target)
		return err
	}))
	if err != nil {
		return err
	}
	slog.Info("query finished",
		"candidates", stats.Candidates,
		"examined", stats.Examined,
		"emitted", stats.Emitted,
		"limit", stats.Limit,
	)
	return nil
}

type QueryCmd struct {
	Addr    string        `default:"localhost:4000" help:"Server address."`
	Timeout time.Duration `default:"50s" help:"Request timeout."`

	Request []string `arg:"" help:"Request line, e.g. -- \"-> 1 cat\"."`
}

func (c *QueryCmd) Run(e *env) error {
	lines, err := client.New(c.Addr, c.Timeout).Do(e.ctx, strings.Join(c.Request, " "))
	for _, l := range lines {
		fmt.Fprintln(e.out, l)
	}
	return err
}
