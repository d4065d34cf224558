// Package searchserver is an embedded TF-IDF search engine over short text
// documents. A Server indexes documents by id, answers ranked top-document
// queries with plus- and minus-words, and can run every heavy operation
// either sequentially or in parallel.
//
// Reads may run concurrently with each other; AddDocument and
// RemoveDocument are exclusive.
package searchserver

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/Adithya-Monish-Kumar-K/search-server/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/search-server/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/search-server/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/search-server/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/search-server/internal/searcher/parser"
	"github.com/Adithya-Monish-Kumar-K/search-server/internal/searcher/ranker"
	"github.com/Adithya-Monish-Kumar-K/search-server/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/search-server/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/search-server/pkg/metrics"
)

type Server struct {
	mu      sync.RWMutex
	engine  *indexer.Engine
	exec    *executor.Executor
	cache   *cache.QueryCache
	epoch   string
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// New builds an empty server. Invalid stop words are the only way
// construction can fail.
func New(cfg config.EngineConfig, opts ...Option) (*Server, error) {
	stopWords, err := tokenizer.NewStopWords(cfg.StopWords)
	if err != nil {
		return nil, fmt.Errorf("building stop words: %w", err)
	}
	return newServer(stopWords, cfg, opts), nil
}

// NewFromText builds a server with default tuning and space-separated stop
// words.
func NewFromText(stopWords string, opts ...Option) (*Server, error) {
	return New(config.EngineConfig{StopWords: stopWords}, opts...)
}

// NewFromWords builds a server with default tuning from a list of stop
// words. Empty entries are ignored.
func NewFromWords(stopWords []string, opts ...Option) (*Server, error) {
	sw, err := tokenizer.StopWordsFrom(stopWords)
	if err != nil {
		return nil, fmt.Errorf("building stop words: %w", err)
	}
	return newServer(sw, config.EngineConfig{}, opts), nil
}

func newServer(stopWords *tokenizer.StopWords, cfg config.EngineConfig, opts []Option) *Server {
	engine := indexer.NewEngine(stopWords, cfg.MaxWorkers)
	s := &Server{
		engine: engine,
		exec:   executor.New(engine, cfg.AccumulatorShards, cfg.MaxWorkers),
		epoch:  newEpoch(),
		logger: slog.Default().With("component", "search-server"),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.metrics == nil {
		s.metrics = metrics.New(nil)
	}
	return s
}

// AddDocument indexes text under id. It fails with ErrInvalidArgument when
// id is negative or already used, or text contains a control character; a
// failed call changes nothing.
func (s *Server) AddDocument(id int, text string, status Status, ratings []int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.engine.Add(id, text, status, ratings); err != nil {
		s.recordError(err)
		return err
	}
	s.metrics.DocumentsAddedTotal.Inc()
	s.metrics.DocumentsLive.Set(float64(s.engine.DocumentCount()))
	return nil
}

// RemoveDocument deletes id from the store and every postings list. It fails
// with ErrNotFound when id is not live.
func (s *Server) RemoveDocument(mode Mode, id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.engine.Remove(mode, id); err != nil {
		s.recordError(err)
		return err
	}
	s.metrics.DocumentsRemovedTotal.WithLabelValues(mode.String()).Inc()
	s.metrics.DocumentsLive.Set(float64(s.engine.DocumentCount()))
	return nil
}

// FindTopDocuments returns up to MaxResultDocumentCount documents accepted
// by predicate, best first. A nil predicate keeps StatusActual documents.
func (s *Server) FindTopDocuments(mode Mode, rawQuery string, predicate Predicate) ([]Document, error) {
	return s.FindTopDocumentsContext(context.Background(), mode, rawQuery, predicate)
}

// FindTopDocumentsContext is FindTopDocuments with a context for the result
// cache round trips. Scoring itself is not interruptible.
func (s *Server) FindTopDocumentsContext(ctx context.Context, mode Mode, rawQuery string, predicate Predicate) ([]Document, error) {
	if predicate == nil {
		return s.findByStatus(ctx, mode, rawQuery, StatusActual)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.search(mode, rawQuery, func() ([]ranker.ScoredDoc, error) {
		return s.exec.FindTop(mode, rawQuery, predicate)
	})
}

// FindTopDocumentsByStatus keeps only documents with the given status.
func (s *Server) FindTopDocumentsByStatus(mode Mode, rawQuery string, status Status) ([]Document, error) {
	return s.findByStatus(context.Background(), mode, rawQuery, status)
}

func (s *Server) findByStatus(ctx context.Context, mode Mode, rawQuery string, status Status) ([]Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	compute := func() ([]ranker.ScoredDoc, error) {
		return s.exec.FindTop(mode, rawQuery, ByStatus(status))
	}
	if s.cache == nil {
		return s.search(mode, rawQuery, compute)
	}
	plan, err := parser.Parse(rawQuery, s.engine.StopWords(), true)
	if err != nil {
		return s.search(mode, rawQuery, func() ([]ranker.ScoredDoc, error) {
			return nil, fmt.Errorf("parsing query: %w", err)
		})
	}
	key := cache.Key{
		PlusWords:  plan.PlusWords,
		MinusWords: plan.MinusWords,
		Status:     status.String(),
		Epoch:      s.epoch,
		Revision:   s.engine.Revision(),
	}
	return s.search(mode, rawQuery, func() ([]ranker.ScoredDoc, error) {
		docs, hit, err := s.cache.GetOrCompute(ctx, key, compute)
		if hit {
			s.metrics.CacheHitsTotal.Inc()
		} else if err == nil {
			s.metrics.CacheMissesTotal.Inc()
		}
		return docs, err
	})
}

// search times fn and records its outcome. Callers hold the read lock.
func (s *Server) search(mode Mode, rawQuery string, fn func() ([]ranker.ScoredDoc, error)) ([]Document, error) {
	start := time.Now()
	scored, err := fn()
	s.metrics.SearchLatency.WithLabelValues(mode.String()).Observe(time.Since(start).Seconds())
	if err != nil {
		s.metrics.SearchQueriesTotal.WithLabelValues(mode.String(), metrics.ResultError).Inc()
		s.recordError(err)
		s.logger.Debug("query rejected", "query", rawQuery, "error", err)
		return nil, err
	}
	result := metrics.ResultHit
	if len(scored) == 0 {
		result = metrics.ResultZero
	}
	s.metrics.SearchQueriesTotal.WithLabelValues(mode.String(), result).Inc()
	s.metrics.SearchResultsCount.Observe(float64(len(scored)))
	return fromScored(scored), nil
}

// MatchDocument returns the plus-words of rawQuery present in document id,
// sorted, or none if the document contains a minus-word, together with the
// document's status. It fails with ErrNotFound for an unknown id.
func (s *Server) MatchDocument(mode Mode, rawQuery string, id int) ([]string, Status, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	words, status, err := s.exec.Match(mode, rawQuery, id)
	if err != nil {
		s.recordError(err)
		return nil, 0, err
	}
	return words, status, nil
}

// GetWordFrequencies returns a copy of the term frequencies of id, empty
// when id is unknown.
func (s *Server) GetWordFrequencies(id int) map[string]float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.engine.WordFrequencies(id)
}

func (s *Server) GetDocumentCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.engine.DocumentCount()
}

// IDs yields the live document ids in ascending order as of the call. The
// sequence is a snapshot, so the caller may add or remove documents while
// ranging over it.
func (s *Server) IDs() iter.Seq[int] {
	s.mu.RLock()
	ids := s.engine.IDList()
	s.mu.RUnlock()
	return slices.Values(ids)
}

// StopWords returns the configured stop words, sorted.
func (s *Server) StopWords() []string {
	return s.engine.StopWords().Words()
}

// Revision changes on every successful AddDocument or RemoveDocument.
func (s *Server) Revision() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.engine.Revision()
}

// Metrics exposes the collectors so collaborators can record on them.
func (s *Server) Metrics() *metrics.Metrics {
	return s.metrics
}

// newEpoch identifies one Server for the lifetime of the process. Revisions
// restart at zero in every Server, so cache entries are scoped by epoch too.
func newEpoch() string {
	var b [8]byte
	_, _ = rand.Read(b[:])
	return hex.EncodeToString(b[:])
}

func (s *Server) recordError(err error) {
	if err == nil || errors.Is(err, context.Canceled) {
		return
	}
	s.metrics.QueryErrorsTotal.WithLabelValues(string(apperrors.KindOf(err))).Inc()
}
