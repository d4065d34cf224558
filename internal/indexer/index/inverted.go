// Package index holds the postings side of the search engine: for every
// vocabulary word, the set of live document ids containing it. Term
// frequencies are not stored here; the document store owns them and this
// index is derived from it.
package index

import (
	"sort"

	"github.com/RoaringBitmap/roaring/v2/roaring64"
	"golang.org/x/sync/errgroup"
)

// InvertedIndex maps word -> set of document ids. It performs no locking of
// its own; the indexer engine serialises writers against readers.
type InvertedIndex struct {
	postings map[string]*roaring64.Bitmap
}

func NewInvertedIndex() *InvertedIndex {
	return &InvertedIndex{
		postings: make(map[string]*roaring64.Bitmap),
	}
}

// Add records docID under every word in words. Words must be distinct.
func (ix *InvertedIndex) Add(docID uint64, words []string) {
	for _, w := range words {
		bm, ok := ix.postings[w]
		if !ok {
			bm = roaring64.New()
			ix.postings[w] = bm
		}
		bm.Add(docID)
	}
}

// Remove erases docID from the postings of every word in words and deletes
// postings that become empty.
func (ix *InvertedIndex) Remove(docID uint64, words []string) {
	for _, w := range words {
		bm, ok := ix.postings[w]
		if !ok {
			continue
		}
		bm.Remove(docID)
		if bm.IsEmpty() {
			delete(ix.postings, w)
		}
	}
}

// RemoveParallel is Remove with the per-word bitmap edits spread over up to
// workers goroutines. Each word owns a distinct bitmap, so the edits are
// independent; the postings map itself is only read until every edit has
// joined, after which empty postings are deleted sequentially.
func (ix *InvertedIndex) RemoveParallel(docID uint64, words []string, workers int) {
	var g errgroup.Group
	if workers > 0 {
		g.SetLimit(workers)
	}
	for _, w := range words {
		bm, ok := ix.postings[w]
		if !ok {
			continue
		}
		g.Go(func() error {
			bm.Remove(docID)
			return nil
		})
	}
	_ = g.Wait()

	for _, w := range words {
		if bm, ok := ix.postings[w]; ok && bm.IsEmpty() {
			delete(ix.postings, w)
		}
	}
}

// Postings returns the live document set for word. The bitmap is shared
// and must not be modified by the caller.
func (ix *InvertedIndex) Postings(word string) (*roaring64.Bitmap, bool) {
	bm, ok := ix.postings[word]
	return bm, ok
}

// DocFreq is the number of documents containing word.
func (ix *InvertedIndex) DocFreq(word string) int {
	bm, ok := ix.postings[word]
	if !ok {
		return 0
	}
	return int(bm.GetCardinality())
}

// Contains reports whether docID is listed under word.
func (ix *InvertedIndex) Contains(word string, docID uint64) bool {
	bm, ok := ix.postings[word]
	return ok && bm.Contains(docID)
}

// Len is the vocabulary size.
func (ix *InvertedIndex) Len() int {
	return len(ix.postings)
}

// Words returns the vocabulary in ascending order.
func (ix *InvertedIndex) Words() []string {
	words := make([]string, 0, len(ix.postings))
	for w := range ix.postings {
		words = append(words, w)
	}
	sort.Strings(words)
	return words
}
