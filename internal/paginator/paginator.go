// Package paginator splits an ordered result sequence into fixed-size pages.
package paginator

import (
	apperrors "github.com/Adithya-Monish-Kumar-K/search-server/pkg/errors"
)

// Paginate returns consecutive pages of at most pageSize items; only the
// last page may be shorter. Pages share the backing array of items.
func Paginate[T any](items []T, pageSize int) ([][]T, error) {
	if pageSize <= 0 {
		return nil, apperrors.Newf(apperrors.ErrInvalidArgument, "page size must be positive, got %d", pageSize)
	}
	pages := make([][]T, 0, (len(items)+pageSize-1)/pageSize)
	for start := 0; start < len(items); start += pageSize {
		end := min(start+pageSize, len(items))
		pages = append(pages, items[start:end:end])
	}
	return pages, nil
}
