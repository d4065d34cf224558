package searchserver

import (
	"fmt"

	"github.com/Adithya-Monish-Kumar-K/search-server/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/search-server/internal/indexer/store"
	"github.com/Adithya-Monish-Kumar-K/search-server/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/search-server/internal/searcher/ranker"
)

// Mode selects sequential or parallel execution of one call.
type Mode = indexer.Mode

const (
	ModeSequential = indexer.ModeSequential
	ModeParallel   = indexer.ModeParallel
)

// ParseMode accepts "sequential"/"seq" and "parallel"/"par".
func ParseMode(s string) (Mode, error) {
	return indexer.ParseMode(s)
}

// Status is the ranking-filter attribute of a document.
type Status = store.Status

const (
	StatusActual     = store.StatusActual
	StatusIrrelevant = store.StatusIrrelevant
	StatusBanned     = store.StatusBanned
	StatusRemoved    = store.StatusRemoved
)

func ParseStatus(s string) (Status, error) {
	return store.ParseStatus(s)
}

// Predicate decides whether a document takes part in a search.
type Predicate = executor.Predicate

// ByStatus accepts documents whose status equals status.
func ByStatus(status Status) Predicate {
	return func(_ int, s Status, _ int) bool {
		return s == status
	}
}

const (
	// MaxResultDocumentCount bounds every FindTopDocuments result.
	MaxResultDocumentCount = ranker.MaxResultDocumentCount
	// RelevanceEpsilon is the tolerance under which relevances tie.
	RelevanceEpsilon = ranker.Epsilon
)

// Document is one search hit.
type Document struct {
	ID        int     `json:"document_id"`
	Relevance float64 `json:"relevance"`
	Rating    int     `json:"rating"`
}

func (d Document) String() string {
	return fmt.Sprintf("{ document_id = %d, relevance = %.6g, rating = %d }", d.ID, d.Relevance, d.Rating)
}

func fromScored(docs []ranker.ScoredDoc) []Document {
	out := make([]Document, len(docs))
	for i, d := range docs {
		out[i] = Document{ID: d.ID, Relevance: d.Relevance, Rating: d.Rating}
	}
	return out
}
