// Package registry holds the corpora a server instance answers for. Corpus
// ids are 1-based and follow the configuration order.
package registry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/Adithya-Monish-Kumar-K/Parallel-Corpus-Concordance/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/Parallel-Corpus-Concordance/pkg/errors"
)

// maxParallelLoads bounds how many corpora load at once.
const maxParallelLoads = 4

type Registry struct {
	corpora []*Corpus
	logger  *slog.Logger
}

// Open loads every configured corpus. Any failure closes what was loaded.
func Open(ctx context.Context, cfgs []config.CorpusConfig) (*Registry, error) {
	r := &Registry{
		corpora: make([]*Corpus, len(cfgs)),
		logger:  slog.Default().With("component", "registry"),
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallelLoads)
	for i, cc := range cfgs {
		g.Go(func() error {
			c, err := OpenCorpus(gctx, i+1, cc.Name, cc.Dir)
			if err != nil {
				return fmt.Errorf("loading corpus %q from %s: %w", cc.Name, cc.Dir, err)
			}
			r.corpora[i] = c
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		r.Close()
		return nil, err
	}
	r.logger.Info("corpora loaded", "count", len(r.corpora))
	return r, nil
}

// Get returns corpus id, counting from 1.
func (r *Registry) Get(id int) (*Corpus, error) {
	if id < 1 || id > len(r.corpora) {
		return nil, apperrors.Newf(apperrors.ErrUnknownCorpus, "corpus %d not in 1..%d", id, len(r.corpora))
	}
	return r.corpora[id-1], nil
}

// List returns the corpora in id order.
func (r *Registry) List() []*Corpus {
	return r.corpora
}

func (r *Registry) Len() int {
	return len(r.corpora)
}

func (r *Registry) Close() error {
	var errs []error
	for _, c := range r.corpora {
		if c != nil {
			errs = append(errs, c.Close())
		}
	}
	return errors.Join(errs...)
}
