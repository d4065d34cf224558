package requests

import (
	"context"
	"fmt"
	"runtime"

	"github.com/Adithya-Monish-Kumar-K/search-server/pkg/searchserver"
	"golang.org/x/sync/errgroup"
)

// ProcessQueries runs every query against searcher concurrently and returns
// the results in input order. Each query is scored sequentially; the
// parallelism is across queries. The first rejected query cancels the rest
// and its error is returned.
func ProcessQueries(ctx context.Context, searcher Searcher, queries []string) ([][]searchserver.Document, error) {
	results := make([][]searchserver.Document, len(queries))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, query := range queries {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			docs, err := searcher.FindTopDocuments(searchserver.ModeSequential, query, nil)
			if err != nil {
				return fmt.Errorf("query %d %q: %w", i, query, err)
			}
			results[i] = docs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// ProcessQueriesJoined is ProcessQueries flattened into one sequence, query
// by query.
func ProcessQueriesJoined(ctx context.Context, searcher Searcher, queries []string) ([]searchserver.Document, error) {
	perQuery, err := ProcessQueries(ctx, searcher, queries)
	if err != nil {
		return nil, err
	}
	total := 0
	for _, docs := range perQuery {
		total += len(docs)
	}
	joined := make([]searchserver.Document, 0, total)
	for _, docs := range perQuery {
		joined = append(joined, docs...)
	}
	return joined, nil
}
