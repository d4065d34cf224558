package cache

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync/atomic"
	"time"

	"github.com/Adithya-Monish-Kumar-K/search-server/internal/searcher/ranker"
	"github.com/Adithya-Monish-Kumar-K/search-server/pkg/resilience"
	"golang.org/x/sync/singleflight"
)

const keyPrefix = "search:"

// Backend is the key/value store behind the cache. *redis.Client from
// pkg/redis satisfies it.
type Backend interface {
	Fetch(ctx context.Context, key string) ([]byte, bool, error)
	Store(ctx context.Context, key string, value []byte, ttl time.Duration) error
	FlushByPattern(ctx context.Context, pattern string) (int64, error)
}

// Key identifies one cacheable result. PlusWords and MinusWords are the
// parsed, sorted and deduplicated query words. Epoch names the collection
// instance writing to the backend and Revision must change whenever that
// collection does; together they make entries of another process or of an
// older state unreachable without an explicit flush.
type Key struct {
	PlusWords  []string `json:"plus"`
	MinusWords []string `json:"minus"`
	Status     string   `json:"status"`
	Epoch      string   `json:"epoch"`
	Revision   uint64   `json:"revision"`
}

// QueryCache memoises ranked results. Backend failures are logged and treated
// as misses so a broken cache never fails a search.
type QueryCache struct {
	backend Backend
	ttl     time.Duration
	group   singleflight.Group
	logger  *slog.Logger
	hits    atomic.Int64
	misses  atomic.Int64
}

func New(backend Backend, ttl time.Duration) *QueryCache {
	return &QueryCache{
		backend: backend,
		ttl:     ttl,
		logger:  slog.Default().With("component", "query-cache"),
	}
}

func (c *QueryCache) Get(ctx context.Context, key Key) ([]ranker.ScoredDoc, bool) {
	k := BuildKey(key)
	data, ok, err := c.backend.Fetch(ctx, k)
	if err != nil {
		c.logFailure("cache get failed", k, err)
		c.misses.Add(1)
		return nil, false
	}
	if !ok {
		c.misses.Add(1)
		return nil, false
	}
	var result []ranker.ScoredDoc
	if err := json.Unmarshal(data, &result); err != nil {
		c.logger.Error("cache unmarshal failed", "key", k, "error", err)
		c.misses.Add(1)
		return nil, false
	}
	c.hits.Add(1)
	c.logger.Debug("cache hit", "plus_words", key.PlusWords, "key", k)
	return result, true
}

func (c *QueryCache) Set(ctx context.Context, key Key, result []ranker.ScoredDoc) {
	k := BuildKey(key)
	data, err := json.Marshal(result)
	if err != nil {
		c.logger.Error("cache marshal failed", "key", k, "error", err)
		return
	}
	if err := c.backend.Store(ctx, k, data, c.ttl); err != nil {
		c.logFailure("cache set failed", k, err)
	}
}

// logFailure keeps an open breaker from flooding the log with one error per
// search.
func (c *QueryCache) logFailure(msg, key string, err error) {
	if errors.Is(err, resilience.ErrOpen) {
		c.logger.Debug(msg, "key", key, "error", err)
		return
	}
	c.logger.Error(msg, "key", key, "error", err)
}

// GetOrCompute returns the cached result for key or computes, stores and
// returns it. Concurrent callers with the same key share one computation.
// The boolean reports a cache hit.
func (c *QueryCache) GetOrCompute(
	ctx context.Context,
	key Key,
	computeFn func() ([]ranker.ScoredDoc, error),
) ([]ranker.ScoredDoc, bool, error) {
	if result, ok := c.Get(ctx, key); ok {
		return result, true, nil
	}
	val, err, _ := c.group.Do(BuildKey(key), func() (any, error) {
		if result, ok := c.Get(ctx, key); ok {
			return result, nil
		}
		result, err := computeFn()
		if err != nil {
			return nil, err
		}
		c.Set(ctx, key, result)
		return result, nil
	})
	if err != nil {
		return nil, false, err
	}
	return slices.Clone(val.([]ranker.ScoredDoc)), false, nil
}

func (c *QueryCache) Invalidate(ctx context.Context) error {
	deleted, err := c.backend.FlushByPattern(ctx, keyPrefix+"*")
	if err != nil {
		return fmt.Errorf("invalidating cache: %w", err)
	}
	c.logger.Info("cache invalidate", "keys_deleted", deleted)
	return nil
}

func (c *QueryCache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

// BuildKey hashes the JSON encoding of key. Words may contain any byte but
// a space or a control character, so only an escaping encoding keeps two
// different word lists from colliding.
func BuildKey(key Key) string {
	if key.PlusWords == nil {
		key.PlusWords = []string{}
	}
	if key.MinusWords == nil {
		key.MinusWords = []string{}
	}
	// Strings and integers always marshal.
	raw, _ := json.Marshal(key)
	hash := sha256.Sum256(raw)
	return fmt.Sprintf("%s%x", keyPrefix, hash[:16])
}
