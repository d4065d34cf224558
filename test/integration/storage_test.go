//go:build integration

// Package integration runs the document store and result cache adapters
// against real PostgreSQL and Redis instances. Tests skip when either is
// unreachable.
//
// Run with:
//
//	go test -v -tags=integration ./test/integration/...
package integration

import (
	"context"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/Adithya-Monish-Kumar-K/search-server/internal/ingestion"
	"github.com/Adithya-Monish-Kumar-K/search-server/internal/ingestion/publisher"
	"github.com/Adithya-Monish-Kumar-K/search-server/internal/ingestion/source"
	"github.com/Adithya-Monish-Kumar-K/search-server/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/search-server/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/search-server/pkg/postgres"
	pkgredis "github.com/Adithya-Monish-Kumar-K/search-server/pkg/redis"
	"github.com/Adithya-Monish-Kumar-K/search-server/pkg/searchserver"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func skipIfNoPostgres(t *testing.T) *postgres.Client {
	t.Helper()
	cfg := config.PostgresConfig{
		Host:            envOrDefault("TEST_POSTGRES_HOST", "localhost"),
		Port:            envOrDefaultInt("TEST_POSTGRES_PORT", 5432),
		Database:        envOrDefault("TEST_POSTGRES_DB", "searchserver_test"),
		User:            envOrDefault("TEST_POSTGRES_USER", "searchserver"),
		Password:        envOrDefault("TEST_POSTGRES_PASSWORD", "localdev"),
		SSLMode:         "disable",
		MaxOpenConns:    5,
		MaxIdleConns:    2,
		ConnMaxLifetime: 5 * time.Minute,
	}
	db, err := postgres.New(t.Context(), cfg)
	if err != nil {
		t.Skipf("skipping integration test: postgres unavailable: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func skipIfNoRedis(t *testing.T) *pkgredis.Client {
	t.Helper()
	client, err := pkgredis.NewClient(t.Context(), config.RedisConfig{
		Addr:     envOrDefault("TEST_REDIS_ADDR", "localhost:6379"),
		DB:       envOrDefaultInt("TEST_REDIS_DB", 15),
		PoolSize: 4,
	})
	if err != nil {
		t.Skipf("skipping integration test: redis unavailable: %v", err)
	}
	t.Cleanup(func() { client.Close() })
	return client
}

type discardWriter struct {
	published []kafka.Event
}

func (d *discardWriter) Publish(_ context.Context, events ...kafka.Event) error {
	d.published = append(d.published, events...)
	return nil
}

func TestPublishThenBulkLoad(t *testing.T) {
	db := skipIfNoPostgres(t)
	ctx := t.Context()
	require.NoError(t, source.EnsureSchema(ctx, db))
	_, err := db.DB.ExecContext(ctx, `TRUNCATE documents`)
	require.NoError(t, err)

	writer := &discardWriter{}
	pub := publisher.New(db, writer)
	require.NoError(t, pub.Publish(ctx, []ingestion.DocumentEvent{
		{Op: ingestion.OpAdd, ID: 1, Text: "white cat and fancy collar", Status: "actual", Ratings: []int{8, -3}},
		{Op: ingestion.OpAdd, ID: 2, Text: "fluffy cat fluffy tail", Status: "actual", Ratings: []int{7, 2, 7}},
		{Op: ingestion.OpAdd, ID: 3, Text: "groomed dog expressive eyes", Status: "banned", Ratings: []int{5, -12, 2, 1}},
		{Op: ingestion.OpRemove, ID: 1},
	}))
	assert.Len(t, writer.published, 4)

	server, err := searchserver.NewFromText("and in on")
	require.NoError(t, err)
	stats, err := source.NewPostgresSource(db).Load(ctx, server)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Added)
	assert.Equal(t, []int{2, 3}, collect(server))

	docs, err := server.FindTopDocumentsByStatus(searchserver.ModeSequential, "fluffy groomed cat", searchserver.StatusBanned)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, 3, docs[0].ID)
	assert.Equal(t, -1, docs[0].Rating)
}

func TestPublishRejectsInvalidBatch(t *testing.T) {
	db := skipIfNoPostgres(t)
	ctx := t.Context()
	require.NoError(t, source.EnsureSchema(ctx, db))
	_, err := db.DB.ExecContext(ctx, `TRUNCATE documents`)
	require.NoError(t, err)

	writer := &discardWriter{}
	err = publisher.New(db, writer).Publish(ctx, []ingestion.DocumentEvent{
		{Op: ingestion.OpAdd, ID: 10, Text: "valid"},
		{Op: ingestion.OpAdd, ID: -1, Text: "invalid"},
	})
	require.Error(t, err)
	assert.Empty(t, writer.published)

	var n int
	require.NoError(t, db.DB.QueryRowContext(ctx, `SELECT count(*) FROM documents`).Scan(&n))
	assert.Zero(t, n)
}

func TestResultCacheRoundTrip(t *testing.T) {
	client := skipIfNoRedis(t)
	ctx := t.Context()
	_, err := client.FlushByPattern(ctx, "search:*")
	require.NoError(t, err)

	server, err := searchserver.NewFromText("and in on", searchserver.WithResultCache(client, time.Minute))
	require.NoError(t, err)
	require.NoError(t, server.AddDocument(1, "white cat and fancy collar", searchserver.StatusActual, []int{8, -3}))
	require.NoError(t, server.AddDocument(2, "fluffy cat fluffy tail", searchserver.StatusActual, []int{7, 2, 7}))

	first, err := server.FindTopDocuments(searchserver.ModeSequential, "fluffy cat", nil)
	require.NoError(t, err)
	second, err := server.FindTopDocuments(searchserver.ModeSequential, "cat fluffy", nil)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	require.NoError(t, server.RemoveDocument(searchserver.ModeSequential, 2))
	third, err := server.FindTopDocuments(searchserver.ModeSequential, "fluffy cat", nil)
	require.NoError(t, err)
	require.Len(t, third, 1)
	assert.Equal(t, 1, third[0].ID)
}

func collect(s *searchserver.Server) []int {
	var ids []int
	for id := range s.IDs() {
		ids = append(ids, id)
	}
	return ids
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envOrDefaultInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
