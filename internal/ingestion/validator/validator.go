// Package validator checks document events before they are published or
// applied, reporting every failing field at once.
package validator

import (
	"fmt"
	"sort"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/search-server/internal/indexer/store"
	"github.com/Adithya-Monish-Kumar-K/search-server/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/search-server/internal/ingestion"
	apperrors "github.com/Adithya-Monish-Kumar-K/search-server/pkg/errors"
)

const maxTextLength = 1048576

// ValidationError holds per-field validation failure messages.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for field, msg := range e.Fields {
		parts = append(parts, fmt.Sprintf("%s: %s", field, msg))
	}
	sort.Strings(parts)
	return strings.Join(parts, "; ")
}

// Unwrap lets callers match validation failures with
// errors.Is(err, errors.ErrInvalidArgument).
func (e *ValidationError) Unwrap() error {
	return apperrors.ErrInvalidArgument
}

// ValidateEvent applies the same rules the engine enforces on add, so a bad
// event is rejected before it reaches Kafka or PostgreSQL.
func ValidateEvent(ev *ingestion.DocumentEvent) error {
	errs := make(map[string]string)

	if ev.ID < 0 {
		errs["id"] = "id must not be negative"
	}
	switch ev.Op {
	case ingestion.OpRemove:
	case ingestion.OpAdd, "":
		if len(ev.Text) > maxTextLength {
			errs["text"] = fmt.Sprintf("text must be at most %d bytes", maxTextLength)
		} else if _, err := tokenizer.SplitValidWords(ev.Text); err != nil {
			errs["text"] = "text must not contain control characters"
		}
		if _, err := store.ParseStatus(ev.Status); err != nil {
			errs["status"] = err.Error()
		}
	default:
		errs["op"] = fmt.Sprintf("op must be %q or %q", ingestion.OpAdd, ingestion.OpRemove)
	}
	if len(errs) > 0 {
		return &ValidationError{Fields: errs}
	}
	return nil
}
