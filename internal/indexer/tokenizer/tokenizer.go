// Package tokenizer splits document and query text into words and validates
// them. Splitting is purely space-based: words are never lower-cased,
// stemmed or stripped of punctuation.
package tokenizer

import (
	"strings"

	apperrors "github.com/Adithya-Monish-Kumar-K/search-server/pkg/errors"
)

// SplitWords breaks text into the non-empty runs between space characters.
// Only ' ' separates words; tabs and other control bytes stay inside words so
// that IsValidWord can reject them.
func SplitWords(text string) []string {
	words := make([]string, 0, strings.Count(text, " ")+1)
	start := -1
	for i := 0; i < len(text); i++ {
		if text[i] == ' ' {
			if start >= 0 {
				words = append(words, text[start:i])
				start = -1
			}
			continue
		}
		if start < 0 {
			start = i
		}
	}
	if start >= 0 {
		words = append(words, text[start:])
	}
	return words
}

// IsValidWord reports whether word is free of control characters
// (bytes below ' ').
func IsValidWord(word string) bool {
	for i := 0; i < len(word); i++ {
		if word[i] < ' ' {
			return false
		}
	}
	return true
}

// SplitValidWords splits text and fails on the first invalid word.
func SplitValidWords(text string) ([]string, error) {
	words := SplitWords(text)
	for _, w := range words {
		if !IsValidWord(w) {
			return nil, apperrors.Newf(apperrors.ErrInvalidArgument, "word %q contains control characters", w)
		}
	}
	return words, nil
}
