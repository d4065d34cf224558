package tokenizer

import (
	"sort"

	apperrors "github.com/Adithya-Monish-Kumar-K/search-server/pkg/errors"
)

// StopWords is an immutable set of words excluded from indexing and
// querying. The zero value is not usable; build one with NewStopWords or
// StopWordsFrom.
type StopWords struct {
	words map[string]struct{}
}

// NewStopWords builds the set from space-separated text.
func NewStopWords(text string) (*StopWords, error) {
	return StopWordsFrom(SplitWords(text))
}

// StopWordsFrom builds the set from a list of words. Empty strings are
// ignored and duplicates collapse; a word with control characters makes the
// whole set invalid.
func StopWordsFrom(words []string) (*StopWords, error) {
	sw := &StopWords{words: make(map[string]struct{}, len(words))}
	for _, w := range words {
		if w == "" {
			continue
		}
		if !IsValidWord(w) {
			return nil, apperrors.Newf(apperrors.ErrInvalidArgument, "stop word %q contains control characters", w)
		}
		sw.words[w] = struct{}{}
	}
	return sw, nil
}

func (s *StopWords) Contains(word string) bool {
	if s == nil {
		return false
	}
	_, ok := s.words[word]
	return ok
}

func (s *StopWords) Len() int {
	if s == nil {
		return 0
	}
	return len(s.words)
}

// Words returns the stop words in ascending order.
func (s *StopWords) Words() []string {
	if s == nil {
		return nil
	}
	out := make([]string, 0, len(s.words))
	for w := range s.words {
		out = append(out, w)
	}
	sort.Strings(out)
	return out
}

// Filter drops stop words from words in place and returns the shortened
// slice.
func (s *StopWords) Filter(words []string) []string {
	n := 0
	for _, w := range words {
		if !s.Contains(w) {
			words[n] = w
			n++
		}
	}
	return words[:n]
}
