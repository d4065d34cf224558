// Package store keeps per-document metadata (rating, status and the term
// frequency map) together with the ordered set of live document ids.
package store

import (
	"fmt"
	"iter"
	"sort"
	"strings"

	"github.com/RoaringBitmap/roaring/v2/roaring64"
)

// Status is a ranking predicate input. It never removes a document by
// itself.
type Status int

const (
	StatusActual Status = iota
	StatusIrrelevant
	StatusBanned
	StatusRemoved
)

func (s Status) String() string {
	switch s {
	case StatusActual:
		return "actual"
	case StatusIrrelevant:
		return "irrelevant"
	case StatusBanned:
		return "banned"
	case StatusRemoved:
		return "removed"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// ParseStatus accepts the names produced by String (case-insensitive) and
// "active" as an alias of StatusActual.
func ParseStatus(s string) (Status, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "actual", "active", "":
		return StatusActual, nil
	case "irrelevant":
		return StatusIrrelevant, nil
	case "banned":
		return StatusBanned, nil
	case "removed":
		return StatusRemoved, nil
	default:
		return 0, fmt.Errorf("unknown document status %q", s)
	}
}

// Document is the stored metadata of one live document. Frequencies maps
// each non-stop word to occurrences / non-stop word count.
type Document struct {
	Rating      int
	Status      Status
	Frequencies map[string]float64
}

// Words returns the document's vocabulary in ascending order.
func (d *Document) Words() []string {
	words := make([]string, 0, len(d.Frequencies))
	for w := range d.Frequencies {
		words = append(words, w)
	}
	sort.Strings(words)
	return words
}

// Store is not safe for concurrent mutation.
type Store struct {
	docs map[int]*Document
	ids  *roaring64.Bitmap
}

func New() *Store {
	return &Store{
		docs: make(map[int]*Document),
		ids:  roaring64.New(),
	}
}

func (s *Store) Put(id int, doc *Document) {
	s.docs[id] = doc
	s.ids.Add(uint64(id))
}

func (s *Store) Get(id int) (*Document, bool) {
	doc, ok := s.docs[id]
	return doc, ok
}

func (s *Store) Has(id int) bool {
	_, ok := s.docs[id]
	return ok
}

func (s *Store) Delete(id int) {
	s.ids.Remove(uint64(id))
	delete(s.docs, id)
}

func (s *Store) Len() int {
	return len(s.docs)
}

// IDs yields the live ids in ascending order. The store must not be mutated
// while the sequence is being consumed.
func (s *Store) IDs() iter.Seq[int] {
	return func(yield func(int) bool) {
		it := s.ids.Iterator()
		for it.HasNext() {
			if !yield(int(it.Next())) {
				return
			}
		}
	}
}

// IDList returns a copy of the live ids in ascending order.
func (s *Store) IDList() []int {
	raw := s.ids.ToArray()
	out := make([]int, len(raw))
	for i, id := range raw {
		out[i] = int(id)
	}
	return out
}

// ComputeTermFrequencies counts words and divides by the total. An empty
// slice yields an empty map.
func ComputeTermFrequencies(words []string) map[string]float64 {
	freqs := make(map[string]float64, len(words))
	if len(words) == 0 {
		return freqs
	}
	counts := make(map[string]int, len(words))
	for _, w := range words {
		counts[w]++
	}
	total := float64(len(words))
	for w, c := range counts {
		freqs[w] = float64(c) / total
	}
	return freqs
}

// AverageRating is the truncated integer mean, 0 for no ratings.
func AverageRating(ratings []int) int {
	if len(ratings) == 0 {
		return 0
	}
	sum := 0
	for _, r := range ratings {
		sum += r
	}
	return sum / len(ratings)
}
