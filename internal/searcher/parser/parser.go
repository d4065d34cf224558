package parser

import (
	"slices"

	"github.com/Adithya-Monish-Kumar-K/search-server/internal/indexer/tokenizer"
	apperrors "github.com/Adithya-Monish-Kumar-K/search-server/pkg/errors"
)

// ExclusionMarker prefixes a minus-word.
const ExclusionMarker = '-'

// Query is a parsed search query. Stop words never appear in either list.
type Query struct {
	PlusWords  []string
	MinusWords []string
	RawQuery   string
}

// IsEmpty reports whether the query has no plus-words and therefore cannot
// match anything.
func (q *Query) IsEmpty() bool {
	return len(q.PlusWords) == 0
}

// Parse turns raw query text into a Query. With toSort set both word lists
// are sorted and deduplicated, which is required before comparing queries or
// fanning words out to parallel scorers; callers that make a single
// order-insensitive pass may skip it.
func Parse(text string, stopWords *tokenizer.StopWords, toSort bool) (*Query, error) {
	plan := &Query{
		PlusWords:  make([]string, 0),
		MinusWords: make([]string, 0),
		RawQuery:   text,
	}
	for _, raw := range tokenizer.SplitWords(text) {
		word, minus, err := parseWord(raw)
		if err != nil {
			return nil, err
		}
		if stopWords.Contains(word) {
			continue
		}
		if minus {
			plan.MinusWords = append(plan.MinusWords, word)
		} else {
			plan.PlusWords = append(plan.PlusWords, word)
		}
	}
	if toSort {
		slices.Sort(plan.PlusWords)
		plan.PlusWords = slices.Compact(plan.PlusWords)
		slices.Sort(plan.MinusWords)
		plan.MinusWords = slices.Compact(plan.MinusWords)
	}
	return plan, nil
}

func parseWord(raw string) (word string, minus bool, err error) {
	word = raw
	if word != "" && word[0] == ExclusionMarker {
		minus = true
		word = word[1:]
	}
	switch {
	case word == "":
		return "", false, apperrors.Newf(apperrors.ErrInvalidArgument, "query word %q has nothing after the exclusion marker", raw)
	case word[0] == ExclusionMarker:
		return "", false, apperrors.Newf(apperrors.ErrInvalidArgument, "query word %q has a double exclusion marker", raw)
	case !tokenizer.IsValidWord(word):
		return "", false, apperrors.Newf(apperrors.ErrInvalidArgument, "query word %q contains control characters", raw)
	}
	return word, minus, nil
}
