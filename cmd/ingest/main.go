package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/Adithya-Monish-Kumar-K/search-server/internal/ingestion"
	"github.com/Adithya-Monish-Kumar-K/search-server/internal/ingestion/publisher"
	"github.com/Adithya-Monish-Kumar-K/search-server/internal/ingestion/source"
	"github.com/Adithya-Monish-Kumar-K/search-server/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/search-server/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/search-server/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/search-server/pkg/postgres"
	"github.com/Adithya-Monish-Kumar-K/search-server/pkg/resilience"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	withPostgres := flag.Bool("postgres", false, "also mirror documents into the PostgreSQL documents table")
	remove := flag.Bool("remove", false, "treat each input line as a document id to remove")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var events []ingestion.DocumentEvent
	if *remove {
		events, err = readRemovals(os.Stdin)
	} else {
		events, err = source.NewLineSource(os.Stdin).Events()
	}
	if err != nil {
		slog.Error("failed to read documents", "error", err)
		os.Exit(1)
	}

	var db *postgres.Client
	if *withPostgres || cfg.Postgres.Enabled {
		err = resilience.Retry(ctx, "connect postgres", resilience.DefaultBackoff, func(ctx context.Context) error {
			var err error
			db, err = postgres.New(ctx, cfg.Postgres)
			return err
		})
		if err != nil {
			slog.Error("failed to connect to postgres", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		if err := source.EnsureSchema(ctx, db); err != nil {
			slog.Error("failed to prepare schema", "error", err)
			os.Exit(1)
		}
	}

	producer := kafka.NewProducer(cfg.Kafka)
	defer producer.Close()

	if err := publisher.New(db, producer).Publish(ctx, events); err != nil {
		slog.Error("failed to publish documents", "error", err)
		os.Exit(1)
	}
	slog.Info("ingest finished", "events", len(events), "topic", cfg.Kafka.DocumentTopic)
}

func readRemovals(r io.Reader) ([]ingestion.DocumentEvent, error) {
	var events []ingestion.DocumentEvent
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		id, err := strconv.Atoi(line)
		if err != nil {
			return nil, fmt.Errorf("document id %q: %w", line, err)
		}
		events = append(events, ingestion.DocumentEvent{Op: ingestion.OpRemove, ID: id})
	}
	return events, scanner.Err()
}
