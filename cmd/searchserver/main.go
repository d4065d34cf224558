package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Adithya-Monish-Kumar-K/search-server/internal/dedup"
	"github.com/Adithya-Monish-Kumar-K/search-server/internal/indexer/consumer"
	"github.com/Adithya-Monish-Kumar-K/search-server/internal/ingestion/source"
	"github.com/Adithya-Monish-Kumar-K/search-server/internal/paginator"
	"github.com/Adithya-Monish-Kumar-K/search-server/internal/requests"
	"github.com/Adithya-Monish-Kumar-K/search-server/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/search-server/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/search-server/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/search-server/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/search-server/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/search-server/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/search-server/pkg/postgres"
	pkgredis "github.com/Adithya-Monish-Kumar-K/search-server/pkg/redis"
	"github.com/Adithya-Monish-Kumar-K/search-server/pkg/resilience"
	"github.com/Adithya-Monish-Kumar-K/search-server/pkg/searchserver"
	"github.com/prometheus/client_golang/prometheus"
)

type options struct {
	configPath string
	docsPath   string
	postgres   bool
	kafka      bool
	mode       string
	dedup      bool
	batch      bool
}

func main() {
	var opts options
	flag.StringVar(&opts.configPath, "config", "", "path to config file")
	flag.StringVar(&opts.docsPath, "docs", "", "file of documents, one per line (id<TAB>status<TAB>ratings<TAB>text or bare text)")
	flag.BoolVar(&opts.postgres, "postgres", false, "bulk-load the documents table from PostgreSQL")
	flag.BoolVar(&opts.kafka, "kafka", false, "apply document events from Kafka until interrupted")
	flag.StringVar(&opts.mode, "mode", "", "execution mode: seq or par (default from config)")
	flag.BoolVar(&opts.dedup, "dedup", false, "remove documents with duplicate vocabularies before searching")
	flag.BoolVar(&opts.batch, "batch", false, "run all queries concurrently and print the joined results")
	flag.Parse()

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, opts, os.Stdin, os.Stdout); err != nil {
		slog.Error("search server failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, opts options, in io.Reader, out io.Writer) error {
	modeName := cfg.Engine.Mode
	if opts.mode != "" {
		modeName = opts.mode
	}
	mode, err := searchserver.ParseMode(modeName)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	checker := health.NewChecker(5 * time.Second)

	serverOpts := []searchserver.Option{searchserver.WithMetrics(m)}
	if cfg.Redis.Enabled {
		var redisClient *pkgredis.Client
		err := resilience.Retry(ctx, "connect redis", resilience.DefaultBackoff, func(ctx context.Context) error {
			var err error
			redisClient, err = pkgredis.NewClient(ctx, cfg.Redis)
			return err
		})
		if err != nil {
			slog.Warn("redis unavailable, result caching disabled", "error", err)
		} else {
			defer redisClient.Close()
			breaker := resilience.NewBreaker("result-cache", resilience.BreakerConfig{
				FailureThreshold: cfg.Redis.FailureThreshold,
				ResetTimeout:     cfg.Redis.ResetTimeout,
			})
			backend := cache.Guard(redisClient, breaker, cfg.Redis.OpTimeout)
			serverOpts = append(serverOpts, searchserver.WithResultCache(backend, cfg.Redis.CacheTTL))
			checker.Optional("redis", redisClient.Ping)
			slog.Info("result cache enabled", "addr", cfg.Redis.Addr, "ttl", cfg.Redis.CacheTTL)
		}
	}

	server, err := searchserver.New(cfg.Engine, serverOpts...)
	if err != nil {
		return err
	}
	checker.Critical("engine", func(ctx context.Context) error {
		done := make(chan int, 1)
		go func() { done <- server.GetDocumentCount() }()
		select {
		case <-done:
			return nil
		case <-ctx.Done():
			return fmt.Errorf("engine lock not acquired: %w", ctx.Err())
		}
	})

	if cfg.Metrics.Enabled {
		shutdown := metrics.StartServer(cfg.Metrics.Port, reg, map[string]http.Handler{
			"/livez":  health.LiveHandler(),
			"/readyz": checker.ReadyHandler(),
		})
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = shutdown(shutdownCtx)
		}()
	}
	slog.Info("search server created",
		"mode", mode.String(),
		"stop_words", len(server.StopWords()),
		"accumulator_shards", cfg.Engine.AccumulatorShards,
	)

	if err := loadDocuments(ctx, cfg, opts, server); err != nil {
		return err
	}

	if opts.dedup {
		removed, err := dedup.RemoveDuplicates(server, mode)
		for _, id := range removed {
			fmt.Fprintf(out, "Found duplicate document id %d\n", id)
		}
		m.DuplicatesRemovedTotal.Add(float64(len(removed)))
		if err != nil {
			return err
		}
	}

	var consumerDone chan error
	if opts.kafka || cfg.Kafka.Enabled {
		ic := consumer.New(kafka.NewConsumer(cfg.Kafka, consumer.HandleMessage(server, mode)))
		defer ic.Close()
		consumerDone = make(chan error, 1)
		go func() {
			consumerDone <- ic.Run(ctx)
		}()
	}

	if opts.batch {
		err = runBatch(ctx, server, in, out)
	} else {
		err = runQueries(cfg, mode, server, m, in, out)
	}
	if err != nil {
		return err
	}

	if consumerDone != nil {
		slog.Info("queries done, consuming document events until interrupted")
		return <-consumerDone
	}
	return nil
}

func loadDocuments(ctx context.Context, cfg *config.Config, opts options, server *searchserver.Server) error {
	if opts.docsPath != "" {
		f, err := os.Open(opts.docsPath)
		if err != nil {
			return fmt.Errorf("opening documents file: %w", err)
		}
		defer f.Close()
		done := logger.LogDuration(slog.Default(), "load documents file")
		_, err = source.NewLineSource(f).Load(ctx, server)
		done()
		if err != nil {
			return err
		}
	}

	if opts.postgres || cfg.Postgres.Enabled {
		var client *postgres.Client
		err := resilience.Retry(ctx, "connect postgres", resilience.DefaultBackoff, func(ctx context.Context) error {
			var err error
			client, err = postgres.New(ctx, cfg.Postgres)
			return err
		})
		if err != nil {
			return err
		}
		defer client.Close()
		done := logger.LogDuration(slog.Default(), "load documents from postgres")
		_, err = source.NewPostgresSource(client).Load(ctx, server)
		done()
		if err != nil {
			return err
		}
	}
	return nil
}

func runQueries(cfg *config.Config, mode searchserver.Mode, server *searchserver.Server, m *metrics.Metrics, in io.Reader, out io.Writer) error {
	queue := requests.NewQueue(server, cfg.Requests.Window, requests.WithGauge(m.EmptyResultRequests))
	w := bufio.NewWriter(out)
	defer w.Flush()

	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		query := scanner.Text()
		docs, err := queue.AddFindRequest(mode, query, nil)
		if err != nil {
			fmt.Fprintf(w, "Error in searching %q: %v\n", query, err)
			continue
		}
		fmt.Fprintf(w, "Results for %q:\n", query)
		pages, err := paginator.Paginate(docs, cfg.Pagination.PageSize)
		if err != nil {
			return err
		}
		for _, page := range pages {
			for _, d := range page {
				fmt.Fprintln(w, d)
			}
			fmt.Fprintln(w, "Page break")
		}
	}
	if err := scanner.Err(); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("reading queries: %w", err)
	}
	fmt.Fprintf(w, "Empty-result requests: %d\n", queue.NoResultRequests())
	return nil
}

func runBatch(ctx context.Context, server *searchserver.Server, in io.Reader, out io.Writer) error {
	var queries []string
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		queries = append(queries, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading queries: %w", err)
	}

	done := logger.LogDuration(slog.Default(), "process queries")
	docs, err := requests.ProcessQueriesJoined(ctx, server, queries)
	done()
	if err != nil {
		return err
	}
	w := bufio.NewWriter(out)
	defer w.Flush()
	for _, d := range docs {
		fmt.Fprintln(w, d)
	}
	return nil
}
