// Package publisher validates document events, optionally mirrors them into
// PostgreSQL, and publishes them to Kafka for every search process to index.
package publisher

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/Adithya-Monish-Kumar-K/search-server/internal/ingestion"
	"github.com/Adithya-Monish-Kumar-K/search-server/internal/ingestion/source"
	"github.com/Adithya-Monish-Kumar-K/search-server/internal/ingestion/validator"
	"github.com/Adithya-Monish-Kumar-K/search-server/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/search-server/pkg/postgres"
)

// EventWriter is the Kafka side of the publisher; *kafka.Producer
// implements it.
type EventWriter interface {
	Publish(ctx context.Context, events ...kafka.Event) error
}

type Publisher struct {
	db       *postgres.Client
	producer EventWriter
	logger   *slog.Logger
}

// New creates a Publisher. db may be nil, in which case events go to Kafka
// only.
func New(db *postgres.Client, producer EventWriter) *Publisher {
	return &Publisher{
		db:       db,
		producer: producer,
		logger:   slog.Default().With("component", "publisher"),
	}
}

// Publish validates the whole batch, writes it to PostgreSQL in one
// transaction and then publishes it. Nothing is written if any event is
// invalid. Events are keyed by document id so that an add and a later
// remove of the same document land on the same partition in order.
func (p *Publisher) Publish(ctx context.Context, events []ingestion.DocumentEvent) error {
	if len(events) == 0 {
		return nil
	}
	for i := range events {
		if err := validator.ValidateEvent(&events[i]); err != nil {
			return fmt.Errorf("event %d (document %d): %w", i, events[i].ID, err)
		}
	}

	if p.db != nil {
		err := p.db.InTx(ctx, nil, func(tx *sql.Tx) error {
			return source.SaveEvents(ctx, tx, events)
		})
		if err != nil {
			return fmt.Errorf("persisting documents: %w", err)
		}
	}

	batch := make([]kafka.Event, len(events))
	for i, ev := range events {
		if ev.Op == "" {
			ev.Op = ingestion.OpAdd
		}
		batch[i] = kafka.Event{Key: strconv.Itoa(ev.ID), Value: ev}
	}
	if err := p.producer.Publish(ctx, batch...); err != nil {
		if p.db != nil {
			p.logger.Error("documents persisted but not published",
				"count", len(events),
				"error", err,
			)
		}
		return err
	}
	p.logger.Info("documents published", "count", len(events))
	return nil
}
