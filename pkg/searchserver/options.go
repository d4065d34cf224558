package searchserver

import (
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/search-server/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/search-server/pkg/metrics"
)

// CacheBackend stores cached results; *redis.Client from pkg/redis
// implements it.
type CacheBackend = cache.Backend

type Option func(*Server)

// WithMetrics records engine activity on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Server) {
		s.metrics = m
	}
}

// WithLogger replaces the default component logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		s.logger = l
	}
}

// WithResultCache caches status-filtered searches in backend for ttl. The
// cache key includes the collection revision, so adding or removing a
// document makes every older entry unreachable.
func WithResultCache(backend CacheBackend, ttl time.Duration) Option {
	return func(s *Server) {
		s.cache = cache.New(backend, ttl)
	}
}
