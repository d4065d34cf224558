package cache

import (
	"context"
	"time"

	"github.com/Adithya-Monish-Kumar-K/search-server/pkg/resilience"
)

// GuardedBackend bounds every call to inner by timeout and stops calling it
// while breaker is open, so an unreachable store costs a search nothing
// beyond a fast miss.
type GuardedBackend struct {
	inner   Backend
	breaker *resilience.Breaker
	timeout time.Duration
}

// Guard wraps inner. A non-positive timeout leaves the caller's deadline
// untouched.
func Guard(inner Backend, breaker *resilience.Breaker, timeout time.Duration) *GuardedBackend {
	return &GuardedBackend{inner: inner, breaker: breaker, timeout: timeout}
}

func (g *GuardedBackend) Fetch(ctx context.Context, key string) (value []byte, ok bool, err error) {
	err = g.do(ctx, func(ctx context.Context) error {
		var ferr error
		value, ok, ferr = g.inner.Fetch(ctx, key)
		return ferr
	})
	return value, ok, err
}

func (g *GuardedBackend) Store(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return g.do(ctx, func(ctx context.Context) error {
		return g.inner.Store(ctx, key, value, ttl)
	})
}

func (g *GuardedBackend) FlushByPattern(ctx context.Context, pattern string) (n int64, err error) {
	err = g.do(ctx, func(ctx context.Context) error {
		var ferr error
		n, ferr = g.inner.FlushByPattern(ctx, pattern)
		return ferr
	})
	return n, err
}

func (g *GuardedBackend) do(ctx context.Context, fn func(context.Context) error) error {
	return g.breaker.Do(func() error {
		if g.timeout <= 0 {
			return fn(ctx)
		}
		ctx, cancel := context.WithTimeout(ctx, g.timeout)
		defer cancel()
		return fn(ctx)
	})
}
