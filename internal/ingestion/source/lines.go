// Package source loads documents into an index from line-oriented text or
// from PostgreSQL.
package source

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/search-server/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/search-server/internal/ingestion"
)

// Stats counts the outcome of a load.
type Stats struct {
	Added    int
	Rejected int
}

func (s *Stats) record(logger *slog.Logger, id int, err error) {
	if err != nil {
		s.Rejected++
		logger.Warn("document rejected", "doc_id", id, "error", err)
		return
	}
	s.Added++
}

// LineSource reads documents in the ingestion line format. Lines without a
// tab are taken as bare document text and numbered sequentially from
// NextID; blank lines are skipped.
type LineSource struct {
	r      io.Reader
	NextID int
	logger *slog.Logger
}

func NewLineSource(r io.Reader) *LineSource {
	return &LineSource{
		r:      r,
		logger: slog.Default().With("component", "line-source"),
	}
}

// Events decodes the whole input. A malformed line stops decoding.
func (s *LineSource) Events() ([]ingestion.DocumentEvent, error) {
	var events []ingestion.DocumentEvent
	scanner := bufio.NewScanner(s.r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimRight(scanner.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		var ev ingestion.DocumentEvent
		if strings.Contains(line, "\t") {
			var err error
			ev, err = ingestion.ParseLine(line)
			if err != nil {
				return events, fmt.Errorf("line %d: %w", lineNo, err)
			}
		} else {
			ev = ingestion.DocumentEvent{Op: ingestion.OpAdd, ID: s.NextID, Text: line}
		}
		if ev.ID >= s.NextID {
			s.NextID = ev.ID + 1
		}
		events = append(events, ev)
	}
	if err := scanner.Err(); err != nil {
		return events, fmt.Errorf("reading documents: %w", err)
	}
	return events, nil
}

// Load adds every decoded document to target. Documents the engine rejects
// are logged and counted; a malformed line aborts the load.
func (s *LineSource) Load(ctx context.Context, target ingestion.Target) (Stats, error) {
	var stats Stats
	events, err := s.Events()
	for _, ev := range events {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return stats, ctxErr
		}
		stats.record(s.logger, ev.ID, ingestion.Apply(target, indexer.ModeSequential, ev))
	}
	if err != nil {
		return stats, err
	}
	s.logger.Info("documents loaded", "added", stats.Added, "rejected", stats.Rejected)
	return stats, nil
}
