package indexer

import (
	"fmt"
	"iter"
	"log/slog"
	"maps"

	"github.com/Adithya-Monish-Kumar-K/search-server/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/search-server/internal/indexer/store"
	"github.com/Adithya-Monish-Kumar-K/search-server/internal/indexer/tokenizer"
	apperrors "github.com/Adithya-Monish-Kumar-K/search-server/pkg/errors"
	"github.com/RoaringBitmap/roaring/v2/roaring64"
)

// Mode selects how an operation spreads its work.
type Mode int

const (
	// ModeSequential runs the whole operation on the calling goroutine.
	ModeSequential Mode = iota
	// ModeParallel partitions independent work (query words, postings
	// edits) over a bounded set of goroutines and joins before returning.
	ModeParallel
)

func (m Mode) String() string {
	if m == ModeParallel {
		return "parallel"
	}
	return "sequential"
}

// ParseMode maps "sequential"/"seq" and "parallel"/"par".
func ParseMode(s string) (Mode, error) {
	switch s {
	case "sequential", "seq", "":
		return ModeSequential, nil
	case "parallel", "par":
		return ModeParallel, nil
	default:
		return 0, fmt.Errorf("unknown execution mode %q", s)
	}
}

// Engine owns the document store and the inverted index and is the only
// code path that mutates them, so the two always describe the same set of
// documents. Engine does no locking: callers must not run Add or Remove
// concurrently with any other method.
type Engine struct {
	stopWords  *tokenizer.StopWords
	index      *index.InvertedIndex
	store      *store.Store
	maxWorkers int
	revision   uint64
	logger     *slog.Logger
}

// NewEngine creates an empty engine. maxWorkers bounds the goroutines used
// by parallel removal; zero or less means unbounded.
func NewEngine(stopWords *tokenizer.StopWords, maxWorkers int) *Engine {
	return &Engine{
		stopWords:  stopWords,
		index:      index.NewInvertedIndex(),
		store:      store.New(),
		maxWorkers: maxWorkers,
		logger:     slog.Default().With("component", "indexer"),
	}
}

// Add indexes a new document. Every check runs before the first mutation,
// so a rejected document leaves no trace.
func (e *Engine) Add(id int, text string, status store.Status, ratings []int) error {
	if id < 0 {
		return apperrors.Newf(apperrors.ErrInvalidArgument, "document id %d is negative", id)
	}
	if e.store.Has(id) {
		return apperrors.Newf(apperrors.ErrInvalidArgument, "document id %d already exists", id)
	}
	words, err := tokenizer.SplitValidWords(text)
	if err != nil {
		return fmt.Errorf("adding document %d: %w", id, err)
	}
	words = e.stopWords.Filter(words)

	doc := &store.Document{
		Rating:      store.AverageRating(ratings),
		Status:      status,
		Frequencies: store.ComputeTermFrequencies(words),
	}
	e.index.Add(uint64(id), doc.Words())
	e.store.Put(id, doc)
	e.revision++

	e.logger.Debug("document indexed",
		"doc_id", id,
		"status", status.String(),
		"rating", doc.Rating,
		"token_count", len(words),
		"vocabulary", len(doc.Frequencies),
	)
	return nil
}

// Remove deletes a live document. Postings are purged first (concurrently
// across words in ModeParallel) and only after every edit has joined are the
// id and metadata dropped.
func (e *Engine) Remove(mode Mode, id int) error {
	doc, ok := e.store.Get(id)
	if !ok {
		return apperrors.Newf(apperrors.ErrNotFound, "document id %d", id)
	}
	words := doc.Words()
	if mode == ModeParallel {
		e.index.RemoveParallel(uint64(id), words, e.maxWorkers)
	} else {
		e.index.Remove(uint64(id), words)
	}
	e.store.Delete(id)
	e.revision++

	e.logger.Debug("document removed",
		"doc_id", id,
		"mode", mode.String(),
		"vocabulary", len(words),
	)
	return nil
}

// WordFrequencies returns a copy of the document's term frequencies, or an
// empty map for an unknown id.
func (e *Engine) WordFrequencies(id int) map[string]float64 {
	doc, ok := e.store.Get(id)
	if !ok {
		return map[string]float64{}
	}
	return maps.Clone(doc.Frequencies)
}

func (e *Engine) Document(id int) (*store.Document, bool) {
	return e.store.Get(id)
}

func (e *Engine) Postings(word string) (*roaring64.Bitmap, bool) {
	return e.index.Postings(word)
}

func (e *Engine) Has(id int) bool {
	return e.store.Has(id)
}

func (e *Engine) DocumentCount() int {
	return e.store.Len()
}

// IDs yields live ids in ascending order.
func (e *Engine) IDs() iter.Seq[int] {
	return e.store.IDs()
}

func (e *Engine) IDList() []int {
	return e.store.IDList()
}

func (e *Engine) VocabularySize() int {
	return e.index.Len()
}

func (e *Engine) StopWords() *tokenizer.StopWords {
	return e.stopWords
}

func (e *Engine) MaxWorkers() int {
	return e.maxWorkers
}

// Revision increases on every successful Add or Remove.
func (e *Engine) Revision() uint64 {
	return e.revision
}
