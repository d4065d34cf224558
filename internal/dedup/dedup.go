// Package dedup removes documents whose vocabulary repeats that of an
// earlier document.
package dedup

import (
	"fmt"
	"iter"
	"log/slog"
	"maps"
	"slices"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/search-server/pkg/searchserver"
)

// Index is the part of a search server duplicate removal needs.
type Index interface {
	IDs() iter.Seq[int]
	GetWordFrequencies(id int) map[string]float64
	RemoveDocument(mode searchserver.Mode, id int) error
}

// FindDuplicates returns, in ascending order, every id whose set of distinct
// words equals that of a lower id. Word counts and order are ignored.
func FindDuplicates(index Index) []int {
	seen := make(map[string]struct{})
	var duplicates []int
	for id := range index.IDs() {
		words := slices.Sorted(maps.Keys(index.GetWordFrequencies(id)))
		// Words never contain spaces, so the join is unambiguous.
		key := strings.Join(words, " ")
		if _, ok := seen[key]; ok {
			duplicates = append(duplicates, id)
			continue
		}
		seen[key] = struct{}{}
	}
	return duplicates
}

// RemoveDuplicates removes everything FindDuplicates reports and returns
// the removed ids.
func RemoveDuplicates(index Index, mode searchserver.Mode) ([]int, error) {
	logger := slog.Default().With("component", "dedup")
	duplicates := FindDuplicates(index)
	for i, id := range duplicates {
		if err := index.RemoveDocument(mode, id); err != nil {
			return duplicates[:i], fmt.Errorf("removing duplicate document %d: %w", id, err)
		}
		logger.Info("found duplicate document", "doc_id", id)
	}
	return duplicates, nil
}
