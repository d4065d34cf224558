package executor

import (
	"fmt"
	"log/slog"
	"runtime"
	"slices"

	"github.com/Adithya-Monish-Kumar-K/search-server/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/search-server/internal/indexer/store"
	"github.com/Adithya-Monish-Kumar-K/search-server/internal/searcher/accumulator"
	"github.com/Adithya-Monish-Kumar-K/search-server/internal/searcher/parser"
	"github.com/Adithya-Monish-Kumar-K/search-server/internal/searcher/ranker"
	apperrors "github.com/Adithya-Monish-Kumar-K/search-server/pkg/errors"
	"golang.org/x/sync/errgroup"
)

// Predicate decides whether a document may be scored at all.
type Predicate func(id int, status store.Status, rating int) bool

// Executor scores queries against an engine. It only reads the engine, so
// any number of executors may run at once as long as nobody is adding or
// removing documents.
type Executor struct {
	engine     *indexer.Engine
	shards     int
	maxWorkers int
	logger     *slog.Logger
}

// New creates an executor. shards sizes the parallel accumulator and
// maxWorkers bounds the scoring goroutines; non-positive values fall back
// to accumulator.DefaultShardCount and GOMAXPROCS.
func New(engine *indexer.Engine, shards, maxWorkers int) *Executor {
	if shards <= 0 {
		shards = accumulator.DefaultShardCount
	}
	if maxWorkers <= 0 {
		maxWorkers = runtime.GOMAXPROCS(0)
	}
	return &Executor{
		engine:     engine,
		shards:     shards,
		maxWorkers: maxWorkers,
		logger:     slog.Default().With("component", "query-executor"),
	}
}

// FindTop parses rawQuery and returns the best matching documents accepted
// by predicate, ranked and truncated to ranker.MaxResultDocumentCount.
func (e *Executor) FindTop(mode indexer.Mode, rawQuery string, predicate Predicate) ([]ranker.ScoredDoc, error) {
	plan, err := parser.Parse(rawQuery, e.engine.StopWords(), true)
	if err != nil {
		return nil, fmt.Errorf("parsing query: %w", err)
	}
	found := e.FindAll(mode, plan, predicate)
	candidates := len(found)
	ranked := ranker.Rank(found, ranker.MaxResultDocumentCount)

	e.logger.Debug("query executed",
		"query", rawQuery,
		"mode", mode.String(),
		"plus_words", len(plan.PlusWords),
		"minus_words", len(plan.MinusWords),
		"candidates", candidates,
		"results", len(ranked),
	)
	return ranked, nil
}

// FindAll returns every document that matches at least one plus-word,
// passes predicate and contains no minus-word, in ascending id order and
// unranked. The query must be sorted and deduplicated.
func (e *Executor) FindAll(mode indexer.Mode, plan *parser.Query, predicate Predicate) []ranker.ScoredDoc {
	if plan.IsEmpty() {
		return []ranker.ScoredDoc{}
	}
	var acc *accumulator.Map
	if mode == indexer.ModeParallel {
		acc = accumulator.New(e.shards)
		e.forEach(plan.PlusWords, func(word string) {
			e.scoreWord(acc, word, predicate)
		})
		e.forEach(plan.MinusWords, func(word string) {
			e.excludeWord(acc, word)
		})
	} else {
		acc = accumulator.New(1)
		for _, word := range plan.PlusWords {
			e.scoreWord(acc, word, predicate)
		}
		for _, word := range plan.MinusWords {
			e.excludeWord(acc, word)
		}
	}

	entries := acc.Entries()
	out := make([]ranker.ScoredDoc, 0, len(entries))
	for _, entry := range entries {
		doc, ok := e.engine.Document(entry.Key)
		if !ok {
			continue
		}
		out = append(out, ranker.ScoredDoc{
			ID:        entry.Key,
			Relevance: entry.Score,
			Rating:    doc.Rating,
		})
	}
	return out
}

func (e *Executor) scoreWord(acc *accumulator.Map, word string, predicate Predicate) {
	postings, ok := e.engine.Postings(word)
	if !ok {
		return
	}
	idf := ranker.InverseDocumentFrequency(e.engine.DocumentCount(), int(postings.GetCardinality()))
	it := postings.Iterator()
	for it.HasNext() {
		id := int(it.Next())
		doc, ok := e.engine.Document(id)
		if !ok {
			continue
		}
		if predicate != nil && !predicate(id, doc.Status, doc.Rating) {
			continue
		}
		acc.Increment(id, doc.Frequencies[word]*idf)
	}
}

func (e *Executor) excludeWord(acc *accumulator.Map, word string) {
	postings, ok := e.engine.Postings(word)
	if !ok {
		return
	}
	it := postings.Iterator()
	for it.HasNext() {
		acc.Erase(int(it.Next()))
	}
}

// forEach runs fn for every word on a bounded worker group and waits for all
// of them.
func (e *Executor) forEach(words []string, fn func(word string)) {
	var g errgroup.Group
	g.SetLimit(e.maxWorkers)
	for _, word := range words {
		g.Go(func() error {
			fn(word)
			return nil
		})
	}
	_ = g.Wait()
}

// Match reports which plus-words of rawQuery occur in document id, along with
// the document's status. A document containing any minus-word matches
// nothing.
func (e *Executor) Match(mode indexer.Mode, rawQuery string, id int) ([]string, store.Status, error) {
	doc, ok := e.engine.Document(id)
	if !ok {
		return nil, 0, apperrors.Newf(apperrors.ErrNotFound, "document id %d", id)
	}
	if mode == indexer.ModeParallel {
		return e.matchParallel(rawQuery, doc)
	}

	plan, err := parser.Parse(rawQuery, e.engine.StopWords(), true)
	if err != nil {
		return nil, 0, fmt.Errorf("parsing query: %w", err)
	}
	for _, word := range plan.MinusWords {
		if _, ok := doc.Frequencies[word]; ok {
			return []string{}, doc.Status, nil
		}
	}
	matched := make([]string, 0, len(plan.PlusWords))
	for _, word := range plan.PlusWords {
		if _, ok := doc.Frequencies[word]; ok {
			matched = append(matched, word)
		}
	}
	return matched, doc.Status, nil
}

// matchParallel skips the parse-time sort and instead sorts only the
// matched words, which is usually a much smaller set.
func (e *Executor) matchParallel(rawQuery string, doc *store.Document) ([]string, store.Status, error) {
	plan, err := parser.Parse(rawQuery, e.engine.StopWords(), false)
	if err != nil {
		return nil, 0, fmt.Errorf("parsing query: %w", err)
	}

	excluded := make([]bool, len(plan.MinusWords))
	e.forEachIndex(len(plan.MinusWords), func(i int) {
		_, excluded[i] = doc.Frequencies[plan.MinusWords[i]]
	})
	if slices.Contains(excluded, true) {
		return []string{}, doc.Status, nil
	}

	present := make([]bool, len(plan.PlusWords))
	e.forEachIndex(len(plan.PlusWords), func(i int) {
		_, present[i] = doc.Frequencies[plan.PlusWords[i]]
	})
	matched := make([]string, 0, len(plan.PlusWords))
	for i, word := range plan.PlusWords {
		if present[i] {
			matched = append(matched, word)
		}
	}
	slices.Sort(matched)
	return slices.Compact(matched), doc.Status, nil
}

func (e *Executor) forEachIndex(n int, fn func(i int)) {
	var g errgroup.Group
	g.SetLimit(e.maxWorkers)
	for i := range n {
		g.Go(func() error {
			fn(i)
			return nil
		})
	}
	_ = g.Wait()
}
