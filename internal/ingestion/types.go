// Package ingestion defines the document event schema shared by every way
// documents reach the engine (line files, PostgreSQL, Kafka) and applies
// those events to an index.
package ingestion

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/search-server/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/search-server/internal/indexer/store"
	apperrors "github.com/Adithya-Monish-Kumar-K/search-server/pkg/errors"
)

type Op string

const (
	OpAdd    Op = "add"
	OpRemove Op = "remove"
)

// DocumentEvent is the Kafka message payload and the unit produced by every
// document source. Text, Status and Ratings are ignored for OpRemove.
type DocumentEvent struct {
	Op      Op     `json:"op"`
	ID      int    `json:"id"`
	Text    string `json:"text,omitempty"`
	Status  string `json:"status,omitempty"`
	Ratings []int  `json:"ratings,omitempty"`
}

// Target is the write side of a search index.
type Target interface {
	AddDocument(id int, text string, status store.Status, ratings []int) error
	RemoveDocument(mode indexer.Mode, id int) error
}

// Apply performs event against target.
func Apply(target Target, mode indexer.Mode, event DocumentEvent) error {
	switch event.Op {
	case OpAdd, "":
		status, err := store.ParseStatus(event.Status)
		if err != nil {
			return apperrors.Newf(apperrors.ErrInvalidArgument, "document %d: %v", event.ID, err)
		}
		return target.AddDocument(event.ID, event.Text, status, event.Ratings)
	case OpRemove:
		return target.RemoveDocument(mode, event.ID)
	default:
		return apperrors.Newf(apperrors.ErrInvalidArgument, "unknown event op %q", event.Op)
	}
}

const fieldSeparator = "\t"

// ParseLine decodes one line of the document file format:
//
//	id<TAB>status<TAB>r1,r2,...<TAB>text
//
// The ratings field may be empty. The text is everything after the third
// tab, so it may itself contain tabs.
func ParseLine(line string) (DocumentEvent, error) {
	fields := strings.SplitN(strings.TrimRight(line, "\r\n"), fieldSeparator, 4)
	if len(fields) != 4 {
		return DocumentEvent{}, apperrors.Newf(apperrors.ErrInvalidArgument,
			"document line needs 4 tab-separated fields, got %d", len(fields))
	}
	id, err := strconv.Atoi(strings.TrimSpace(fields[0]))
	if err != nil {
		return DocumentEvent{}, apperrors.Newf(apperrors.ErrInvalidArgument, "document id %q: %v", fields[0], err)
	}
	ratings, err := parseRatings(fields[2])
	if err != nil {
		return DocumentEvent{}, fmt.Errorf("document %d: %w", id, err)
	}
	return DocumentEvent{
		Op:      OpAdd,
		ID:      id,
		Status:  strings.TrimSpace(fields[1]),
		Ratings: ratings,
		Text:    fields[3],
	}, nil
}

func parseRatings(field string) ([]int, error) {
	field = strings.TrimSpace(field)
	if field == "" {
		return nil, nil
	}
	parts := strings.Split(field, ",")
	ratings := make([]int, 0, len(parts))
	for _, p := range parts {
		r, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, apperrors.Newf(apperrors.ErrInvalidArgument, "rating %q: %v", p, err)
		}
		ratings = append(ratings, r)
	}
	return ratings, nil
}

// FormatLine is the inverse of ParseLine for add events.
func FormatLine(event DocumentEvent) string {
	ratings := make([]string, len(event.Ratings))
	for i, r := range event.Ratings {
		ratings[i] = strconv.Itoa(r)
	}
	status := event.Status
	if status == "" {
		status = store.StatusActual.String()
	}
	return strings.Join([]string{
		strconv.Itoa(event.ID),
		status,
		strings.Join(ratings, ","),
		event.Text,
	}, fieldSeparator)
}
