// Package kafka provides the document event producer and consumer backed by
// segmentio/kafka-go. Events travel as JSON; the consumer hands raw payloads
// to a MessageHandler.
package kafka

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/search-server/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/search-server/pkg/resilience"
	"github.com/segmentio/kafka-go"
)

// MessageHandler processes one message. Returning an error leaves the
// message uncommitted.
type MessageHandler func(ctx context.Context, key []byte, value []byte) error

type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// fetchBackoff paces retries after failed fetches, e.g. while a broker is
// down.
var fetchBackoff = resilience.Backoff{
	Initial: 100 * time.Millisecond,
	Max:     5 * time.Second,
	Jitter:  0.1,
}

type Consumer struct {
	reader  messageReader
	backoff resilience.Backoff
	logger  *slog.Logger
	handler MessageHandler
}

// NewConsumer subscribes to cfg.DocumentTopic.
func NewConsumer(cfg config.KafkaConfig, handler MessageHandler) *Consumer {
	rc := ReaderConfig(cfg)
	return &Consumer{
		reader:  kafka.NewReader(rc),
		backoff: fetchBackoff,
		logger:  slog.Default().With("component", "kafka-consumer", "topic", cfg.DocumentTopic, "group", rc.GroupID),
		handler: handler,
	}
}

// ReaderConfig builds the reader settings for one process. The index lives
// only in memory and must replay the whole topic on every start, so each
// call joins a fresh group named cfg.ConsumerGroup plus a random suffix:
// a new group has no committed offsets and starts at FirstOffset.
func ReaderConfig(cfg config.KafkaConfig) kafka.ReaderConfig {
	return kafka.ReaderConfig{
		Brokers:     cfg.Brokers,
		Topic:       cfg.DocumentTopic,
		GroupID:     cfg.ConsumerGroup + "-" + groupSuffix(),
		MinBytes:    1,
		MaxBytes:    10e6,
		StartOffset: kafka.FirstOffset,
	}
}

func groupSuffix() string {
	var b [6]byte
	_, _ = rand.Read(b[:])
	return hex.EncodeToString(b[:])
}

// Run fetches and processes messages until ctx is cancelled or the reader
// is closed. Fetch failures are retried with exponential backoff.
func (c *Consumer) Run(ctx context.Context) error {
	c.logger.Info("consumer started")
	defer c.logger.Info("consumer stopped")
	failures := 0
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, io.EOF) {
				return nil
			}
			failures++
			delay := c.backoff.Delay(failures)
			c.logger.Error("failed to fetch message", "error", err, "attempt", failures, "next_delay", delay)
			timer := time.NewTimer(delay)
			select {
			case <-timer.C:
			case <-ctx.Done():
				timer.Stop()
				return nil
			}
			continue
		}
		failures = 0
		c.logger.Debug("message received",
			"partition", msg.Partition,
			"offset", msg.Offset,
			"key", string(msg.Key),
			"value_size", len(msg.Value),
		)
		if err := c.handler(ctx, msg.Key, msg.Value); err != nil {
			c.logger.Error("failed to process message",
				"partition", msg.Partition,
				"offset", msg.Offset,
				"error", err,
			)
			continue
		}
		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			c.logger.Error("failed to commit message",
				"offset", msg.Offset,
				"error", err,
			)
		}
	}
}

func (c *Consumer) Close() error {
	return c.reader.Close()
}

// DecodeJSON unmarshals a message value into T.
func DecodeJSON[T any](value []byte) (T, error) {
	var result T
	if err := json.Unmarshal(value, &result); err != nil {
		return result, fmt.Errorf("decoding kafka message: %w", err)
	}
	return result, nil
}
