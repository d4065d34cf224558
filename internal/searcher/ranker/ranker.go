package ranker

import (
	"math"
	"sort"
)

const (
	// MaxResultDocumentCount caps every top-documents result.
	MaxResultDocumentCount = 5
	// Epsilon is the tolerance under which two relevances count as equal.
	Epsilon = 1e-6
)

type ScoredDoc struct {
	ID        int     `json:"document_id"`
	Relevance float64 `json:"relevance"`
	Rating    int     `json:"rating"`
}

// InverseDocumentFrequency is ln(totalDocs / docFreq). It returns 0 when
// either count is not positive so callers never see Inf or NaN.
func InverseDocumentFrequency(totalDocs, docFreq int) float64 {
	if totalDocs <= 0 || docFreq <= 0 {
		return 0
	}
	return math.Log(float64(totalDocs) / float64(docFreq))
}

// Less orders a before b: higher relevance first, ratings break
// near-ties, ids make the order total.
func Less(a, b ScoredDoc) bool {
	if math.Abs(a.Relevance-b.Relevance) < Epsilon {
		if a.Rating != b.Rating {
			return a.Rating > b.Rating
		}
		return a.ID < b.ID
	}
	return a.Relevance > b.Relevance
}

// Rank sorts docs in place and returns at most limit of them. A limit of
// zero or less means MaxResultDocumentCount.
func Rank(docs []ScoredDoc, limit int) []ScoredDoc {
	if limit <= 0 {
		limit = MaxResultDocumentCount
	}
	sort.SliceStable(docs, func(i, j int) bool {
		return Less(docs[i], docs[j])
	})
	if len(docs) > limit {
		docs = docs[:limit]
	}
	return docs
}
