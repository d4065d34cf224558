// Package consumer applies document events read from Kafka to a live index.
package consumer

import (
	"context"
	"errors"
	"log/slog"

	"github.com/Adithya-Monish-Kumar-K/search-server/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/search-server/internal/ingestion"
	"github.com/Adithya-Monish-Kumar-K/search-server/internal/ingestion/validator"
	apperrors "github.com/Adithya-Monish-Kumar-K/search-server/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/search-server/pkg/kafka"
)

// IndexConsumer drives the indexing pipeline from a Kafka consumer.
type IndexConsumer struct {
	consumer *kafka.Consumer
	logger   *slog.Logger
}

func New(kafkaConsumer *kafka.Consumer) *IndexConsumer {
	return &IndexConsumer{
		consumer: kafkaConsumer,
		logger:   slog.Default().With("component", "index-consumer"),
	}
}

// Run blocks until ctx is cancelled.
func (ic *IndexConsumer) Run(ctx context.Context) error {
	ic.logger.Info("index consumer starting")
	return ic.consumer.Run(ctx)
}

func (ic *IndexConsumer) Close() error {
	return ic.consumer.Close()
}

// HandleMessage returns a MessageHandler that applies each event to target.
// Events that can never succeed (undecodable, invalid, rejected by the
// engine) are logged and acknowledged so they do not block the partition.
func HandleMessage(target ingestion.Target, mode indexer.Mode) kafka.MessageHandler {
	logger := slog.Default().With("component", "index-consumer")
	return func(ctx context.Context, key []byte, value []byte) error {
		event, err := kafka.DecodeJSON[ingestion.DocumentEvent](value)
		if err != nil {
			logger.Error("failed to decode document event",
				"error", err,
				"key", string(key),
			)
			return nil
		}
		if err := validator.ValidateEvent(&event); err != nil {
			logger.Error("invalid document event",
				"doc_id", event.ID,
				"error", err,
			)
			return nil
		}

		if err := ingestion.Apply(target, mode, event); err != nil {
			level := slog.LevelWarn
			if errors.Is(err, apperrors.ErrNotFound) {
				level = slog.LevelDebug
			}
			logger.Log(ctx, level, "document event rejected",
				"op", string(event.Op),
				"doc_id", event.ID,
				"error", err,
			)
			return nil
		}
		logger.Debug("document event applied",
			"op", string(event.Op),
			"doc_id", event.ID,
		)
		return nil
	}
}
