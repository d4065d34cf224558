package source

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/Adithya-Monish-Kumar-K/search-server/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/search-server/internal/ingestion"
	"github.com/Adithya-Monish-Kumar-K/search-server/pkg/postgres"
	"github.com/lib/pq"
)

const schema = `CREATE TABLE IF NOT EXISTS documents (
	id      BIGINT PRIMARY KEY CHECK (id >= 0),
	body    TEXT NOT NULL,
	status  TEXT NOT NULL DEFAULT 'actual',
	ratings INTEGER[] NOT NULL DEFAULT '{}'
)`

// EnsureSchema creates the documents table if it does not exist.
func EnsureSchema(ctx context.Context, client *postgres.Client) error {
	if _, err := client.DB.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("creating documents table: %w", err)
	}
	return nil
}

// SaveEvents mirrors events into the documents table within tx: adds are
// upserted, removes deleted.
func SaveEvents(ctx context.Context, tx *sql.Tx, events []ingestion.DocumentEvent) error {
	for _, ev := range events {
		if ev.Op == ingestion.OpRemove {
			if _, err := tx.ExecContext(ctx, `DELETE FROM documents WHERE id = $1`, ev.ID); err != nil {
				return fmt.Errorf("deleting document %d: %w", ev.ID, err)
			}
			continue
		}
		status := ev.Status
		if status == "" {
			status = "actual"
		}
		ratings := make(pq.Int64Array, len(ev.Ratings))
		for i, r := range ev.Ratings {
			ratings[i] = int64(r)
		}
		_, err := tx.ExecContext(ctx,
			`INSERT INTO documents (id, body, status, ratings)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (id) DO UPDATE SET body = EXCLUDED.body, status = EXCLUDED.status, ratings = EXCLUDED.ratings`,
			ev.ID, ev.Text, status, ratings)
		if err != nil {
			return fmt.Errorf("upserting document %d: %w", ev.ID, err)
		}
	}
	return nil
}

// PostgresSource bulk-loads the documents table.
type PostgresSource struct {
	client *postgres.Client
	logger *slog.Logger
}

func NewPostgresSource(client *postgres.Client) *PostgresSource {
	return &PostgresSource{
		client: client,
		logger: slog.Default().With("component", "postgres-source"),
	}
}

// Load adds every row to target in id order from a single read-only
// snapshot. Rows the engine rejects are logged and skipped; the returned
// Stats count both outcomes.
func (s *PostgresSource) Load(ctx context.Context, target ingestion.Target) (Stats, error) {
	var stats Stats
	err := s.client.InTx(ctx, &sql.TxOptions{ReadOnly: true, Isolation: sql.LevelRepeatableRead}, func(tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx, `SELECT id, body, status, ratings FROM documents ORDER BY id`)
		if err != nil {
			return fmt.Errorf("querying documents: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			var (
				id      int64
				body    string
				status  string
				ratings pq.Int64Array
			)
			if err := rows.Scan(&id, &body, &status, &ratings); err != nil {
				return fmt.Errorf("scanning document row: %w", err)
			}
			ev := ingestion.DocumentEvent{
				Op:      ingestion.OpAdd,
				ID:      int(id),
				Text:    body,
				Status:  status,
				Ratings: toInts(ratings),
			}
			stats.record(s.logger, ev.ID, ingestion.Apply(target, indexer.ModeSequential, ev))
		}
		return rows.Err()
	})
	if err != nil {
		return stats, fmt.Errorf("loading documents from postgres: %w", err)
	}
	s.logger.Info("documents loaded", "added", stats.Added, "rejected", stats.Rejected)
	return stats, nil
}

func toInts(a pq.Int64Array) []int {
	if len(a) == 0 {
		return nil
	}
	out := make([]int, len(a))
	for i, v := range a {
		out[i] = int(v)
	}
	return out
}
