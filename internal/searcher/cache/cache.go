// Package cache keeps collected concordance results in Redis so repeated
// queries skip retrieval and phrase verification.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/Adithya-Monish-Kumar-K/Parallel-Corpus-Concordance/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/Parallel-Corpus-Concordance/pkg/resilience"
)

const keyPrefix = "conc:"

// Store is the key-value backend; *redis.Client from pkg/redis satisfies it.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	DeletePrefix(ctx context.Context, prefix string) (int64, error)
}

// Key identifies a concordance query.
type Key struct {
	Corpus string
	Verb   string
	Tokens []string
	Fold   bool
}

// Entry is a cached query result.
type Entry struct {
	Units []executor.TranslationUnit `json:"units"`
	Stats executor.Stats             `json:"stats"`
}

type QueryCache struct {
	store   Store
	ttl     time.Duration
	breaker *resilience.Breaker
	group   singleflight.Group
	hits    atomic.Int64
	misses  atomic.Int64
	logger  *slog.Logger
}

func New(store Store, ttl time.Duration) *QueryCache {
	return &QueryCache{
		store:   store,
		ttl:     ttl,
		breaker: resilience.NewBreaker("query-cache", resilience.BreakerConfig{Failures: 5, Cooldown: 30 * time.Second}),
		logger:  slog.Default().With("component", "query-cache"),
	}
}

// Get reports a miss when the store fails or its breaker is open.
func (c *QueryCache) Get(ctx context.Context, k Key) (*Entry, bool) {
	key := buildKey(k)
	var (
		data  []byte
		found bool
	)
	err := c.breaker.Do(func() error {
		var err error
		data, found, err = c.store.Get(ctx, key)
		return err
	})
	if err != nil && !errors.Is(err, resilience.ErrOpen) {
		c.logger.Error("cache get failed", "key", key, "error", err)
	}
	if err != nil || !found {
		c.misses.Add(1)
		return nil, false
	}
	var e Entry
	if err := json.Unmarshal(data, &e); err != nil {
		c.logger.Error("cache entry corrupt", "key", key, "error", err)
		c.misses.Add(1)
		return nil, false
	}
	c.hits.Add(1)
	return &e, true
}

func (c *QueryCache) Set(ctx context.Context, k Key, e *Entry) {
	key := buildKey(k)
	data, err := json.Marshal(e)
	if err != nil {
		c.logger.Error("cache marshal failed", "key", key, "error", err)
		return
	}
	err = c.breaker.Do(func() error { return c.store.Set(ctx, key, data, c.ttl) })
	if err != nil && !errors.Is(err, resilience.ErrOpen) {
		c.logger.Error("cache set failed", "key", key, "error", err)
	}
}

// GetOrCompute returns the cached entry for k or runs compute once for all
// concurrent callers with the same key. Failed computations are not cached.
func (c *QueryCache) GetOrCompute(ctx context.Context, k Key, compute func() (*Entry, error)) (*Entry, bool, error) {
	if e, ok := c.Get(ctx, k); ok {
		return e, true, nil
	}
	v, err, _ := c.group.Do(buildKey(k), func() (any, error) {
		e, err := compute()
		if err != nil {
			return nil, err
		}
		if !e.Stats.Aborted {
			c.Set(ctx, k, e)
		}
		return e, nil
	})
	if err != nil {
		return nil, false, err
	}
	return v.(*Entry), false, nil
}

// Invalidate drops every cached result.
func (c *QueryCache) Invalidate(ctx context.Context) error {
	deleted, err := c.store.DeletePrefix(ctx, keyPrefix)
	if err != nil {
		return fmt.Errorf("invalidating query cache: %w", err)
	}
	c.logger.Info("query cache invalidated", "keys_deleted", deleted)
	return nil
}

func (c *QueryCache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

// buildKey hashes the normalized query. Token order is significant.
func buildKey(k Key) string {
	tokens := strings.Join(k.Tokens, " ")
	if k.Fold {
		tokens = strings.ToLower(tokens)
	}
	raw := fmt.Sprintf("%s\x00%s\x00%s", k.Corpus, k.Verb, tokens)
	sum := sha256.Sum256([]byte(raw))
	return fmt.Sprintf("%s%x", keyPrefix, sum[:16])
}
