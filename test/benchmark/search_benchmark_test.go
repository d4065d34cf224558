package benchmark

import (
	"context"
	"fmt"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/search-server/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/search-server/internal/indexer/store"
	"github.com/Adithya-Monish-Kumar-K/search-server/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/search-server/internal/requests"
	"github.com/Adithya-Monish-Kumar-K/search-server/internal/searcher/accumulator"
	"github.com/Adithya-Monish-Kumar-K/search-server/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/search-server/internal/searcher/parser"
	"github.com/Adithya-Monish-Kumar-K/search-server/internal/searcher/ranker"
	"github.com/Adithya-Monish-Kumar-K/search-server/pkg/searchserver"
)

var benchQueries = []struct {
	name  string
	query string
}{
	{"single", "cat"},
	{"plus_words", "curly fluffy tail collar"},
	{"with_minus", "cat dog -rat -park"},
	{"long", "cat dog curly fluffy tail collar fancy groomed starling sparrow -house -street"},
}

func actual(_ int, s store.Status, _ int) bool {
	return s == store.StatusActual
}

// BenchmarkQueryParse measures parsing with and without sorting.
func BenchmarkQueryParse(b *testing.B) {
	stop, err := tokenizer.NewStopWords("and in on with")
	if err != nil {
		b.Fatal(err)
	}
	for _, q := range benchQueries {
		for _, sorted := range []bool{false, true} {
			b.Run(fmt.Sprintf("%s/sorted=%t", q.name, sorted), func(b *testing.B) {
				b.ReportAllocs()
				for i := 0; i < b.N; i++ {
					if _, err := parser.Parse(q.query, stop, sorted); err != nil {
						b.Fatal(err)
					}
				}
			})
		}
	}
}

// BenchmarkRank measures sorting and truncation for different candidate
// counts.
func BenchmarkRank(b *testing.B) {
	for _, n := range []int{100, 1000, 10000} {
		b.Run(fmt.Sprintf("docs_%d", n), func(b *testing.B) {
			src := make([]ranker.ScoredDoc, n)
			for i := range src {
				src[i] = ranker.ScoredDoc{ID: i, Relevance: float64(i%97) / 97, Rating: i % 7}
			}
			docs := make([]ranker.ScoredDoc, n)
			b.ReportAllocs()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				copy(docs, src)
				_ = ranker.Rank(docs, ranker.MaxResultDocumentCount)
			}
		})
	}
}

// BenchmarkFindTop measures end-to-end scoring in both modes over growing
// collections.
func BenchmarkFindTop(b *testing.B) {
	for _, size := range []int{1000, 10000} {
		e := newEngine(b, size)
		ex := executor.New(e, accumulator.DefaultShardCount, 0)
		for _, mode := range []indexer.Mode{indexer.ModeSequential, indexer.ModeParallel} {
			for _, q := range benchQueries {
				b.Run(fmt.Sprintf("docs_%d/%s/%s", size, mode, q.name), func(b *testing.B) {
					b.ReportAllocs()
					for i := 0; i < b.N; i++ {
						if _, err := ex.FindTop(mode, q.query, actual); err != nil {
							b.Fatal(err)
						}
					}
				})
			}
		}
	}
}

// BenchmarkAccumulatorIncrement measures contention on the striped map.
func BenchmarkAccumulatorIncrement(b *testing.B) {
	for _, shards := range []int{1, 8, accumulator.DefaultShardCount} {
		b.Run(fmt.Sprintf("shards_%d", shards), func(b *testing.B) {
			m := accumulator.New(shards)
			b.ReportAllocs()
			b.RunParallel(func(pb *testing.PB) {
				key := 0
				for pb.Next() {
					m.Increment(key%4096, 0.5)
					key++
				}
			})
		})
	}
}

// BenchmarkConcurrentSearch measures read throughput of a shared server.
func BenchmarkConcurrentSearch(b *testing.B) {
	s, err := searchserver.NewFromText("and in on with")
	if err != nil {
		b.Fatal(err)
	}
	for i := 0; i < 10000; i++ {
		if err := s.AddDocument(i, documentText(i, 12), searchserver.StatusActual, []int{i % 10}); err != nil {
			b.Fatal(err)
		}
	}
	b.ReportAllocs()
	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			if _, err := s.FindTopDocuments(searchserver.ModeSequential, "curly fluffy -rat", nil); err != nil {
				b.Fatal(err)
			}
		}
	})
}

// BenchmarkProcessQueries measures batch query processing.
func BenchmarkProcessQueries(b *testing.B) {
	s, err := searchserver.NewFromText("and in on with")
	if err != nil {
		b.Fatal(err)
	}
	for i := 0; i < 10000; i++ {
		if err := s.AddDocument(i, documentText(i, 12), searchserver.StatusActual, []int{i % 10}); err != nil {
			b.Fatal(err)
		}
	}
	queries := make([]string, 0, 100)
	for i := 0; i < 100; i++ {
		queries = append(queries, benchQueries[i%len(benchQueries)].query)
	}
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := requests.ProcessQueriesJoined(context.Background(), s, queries); err != nil {
			b.Fatal(err)
		}
	}
}
