// Command loadtest builds a synthetic collection in process and hammers it
// with concurrent queries for a fixed duration, then prints throughput and
// latency percentiles.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"math"
	"math/rand/v2"
	"os"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Adithya-Monish-Kumar-K/search-server/pkg/searchserver"
	"golang.org/x/sync/errgroup"
)

type Config struct {
	Documents   int
	WordsPerDoc int
	Concurrency int
	Duration    time.Duration
	Mode        searchserver.Mode
	Seed        uint64
}

var vocabulary = strings.Fields(`
	white black grey ginger fluffy cat dog parrot starling hamster collar
	tail eyes whiskers fancy groomed city village river forest big small
	old young loud quiet striped spotted curly brave lazy`)

var queries = []string{
	"fluffy cat",
	"white cat -collar",
	"groomed dog -fancy",
	"starling parrot",
	"big -small river",
	"curly tail",
	"brave young dog -lazy",
	"quiet village forest",
	"spotted striped -grey",
	"old city",
}

type Stats struct {
	total     atomic.Int64
	errors    atomic.Int64
	empty     atomic.Int64
	mu        sync.Mutex
	latencies []time.Duration
}

func (s *Stats) record(d time.Duration, results int, err error) {
	s.total.Add(1)
	switch {
	case err != nil:
		s.errors.Add(1)
		return
	case results == 0:
		s.empty.Add(1)
	}
	s.mu.Lock()
	s.latencies = append(s.latencies, d)
	s.mu.Unlock()
}

func main() {
	var (
		cfg  Config
		mode string
	)
	flag.IntVar(&cfg.Documents, "docs", 10000, "number of synthetic documents")
	flag.IntVar(&cfg.WordsPerDoc, "words", 12, "words per document")
	flag.IntVar(&cfg.Concurrency, "concurrency", 8, "number of concurrent searchers")
	flag.DurationVar(&cfg.Duration, "duration", 10*time.Second, "test duration")
	flag.StringVar(&mode, "mode", "par", "execution mode: seq or par")
	flag.Uint64Var(&cfg.Seed, "seed", 1, "corpus random seed")
	flag.Parse()

	m, err := searchserver.ParseMode(mode)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	cfg.Mode = m

	stats, err := run(context.Background(), cfg, os.Stdout)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load test failed: %v\n", err)
		os.Exit(1)
	}
	if stats.total.Load() == 0 {
		fmt.Println("WARNING: no queries completed")
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg Config, out io.Writer) (*Stats, error) {
	server, err := searchserver.NewFromText("and in on with the")
	if err != nil {
		return nil, err
	}

	fmt.Fprintln(out, "=== Search Server Load Test ===")
	fmt.Fprintf(out, "Documents:   %d x %d words\n", cfg.Documents, cfg.WordsPerDoc)
	fmt.Fprintf(out, "Concurrency: %d\n", cfg.Concurrency)
	fmt.Fprintf(out, "Duration:    %s\n", cfg.Duration)
	fmt.Fprintf(out, "Mode:        %s\n", cfg.Mode)

	start := time.Now()
	if err := populate(server, cfg); err != nil {
		return nil, err
	}
	fmt.Fprintf(out, "Indexed in:  %s\n\n", time.Since(start).Round(time.Millisecond))

	stats := &Stats{latencies: make([]time.Duration, 0, 1<<16)}
	ctx, cancel := context.WithTimeout(ctx, cfg.Duration)
	defer cancel()

	var g errgroup.Group
	for w := range cfg.Concurrency {
		g.Go(func() error {
			for i := w; ctx.Err() == nil; i++ {
				q := queries[i%len(queries)]
				began := time.Now()
				docs, err := server.FindTopDocuments(cfg.Mode, q, nil)
				stats.record(time.Since(began), len(docs), err)
			}
			return nil
		})
	}
	_ = g.Wait()

	printReport(out, stats, cfg.Duration)
	return stats, nil
}

func populate(server *searchserver.Server, cfg Config) error {
	rng := rand.New(rand.NewPCG(cfg.Seed, cfg.Seed))
	statuses := []searchserver.Status{
		searchserver.StatusActual, searchserver.StatusActual, searchserver.StatusActual,
		searchserver.StatusIrrelevant, searchserver.StatusBanned, searchserver.StatusRemoved,
	}
	words := make([]string, cfg.WordsPerDoc)
	for id := range cfg.Documents {
		for j := range words {
			words[j] = vocabulary[rng.IntN(len(vocabulary))]
		}
		ratings := []int{rng.IntN(11) - 5, rng.IntN(11) - 5, rng.IntN(11) - 5}
		status := statuses[rng.IntN(len(statuses))]
		if err := server.AddDocument(id, strings.Join(words, " "), status, ratings); err != nil {
			return fmt.Errorf("adding document %d: %w", id, err)
		}
	}
	return nil
}

func printReport(out io.Writer, stats *Stats, duration time.Duration) {
	total := stats.total.Load()
	fmt.Fprintln(out, "=== Results ===")
	fmt.Fprintf(out, "Total Queries:   %d\n", total)
	fmt.Fprintf(out, "Errors:          %d\n", stats.errors.Load())
	fmt.Fprintf(out, "Empty Results:   %d\n", stats.empty.Load())
	if total > 0 {
		fmt.Fprintf(out, "Queries/sec:     %.2f\n", float64(total)/duration.Seconds())
	}

	stats.mu.Lock()
	latencies := slices.Clone(stats.latencies)
	stats.mu.Unlock()
	if len(latencies) == 0 {
		return
	}
	slices.Sort(latencies)

	var sum time.Duration
	for _, l := range latencies {
		sum += l
	}
	fmt.Fprintln(out)
	fmt.Fprintln(out, "=== Latency ===")
	fmt.Fprintf(out, "Min:    %s\n", latencies[0])
	fmt.Fprintf(out, "Avg:    %s\n", sum/time.Duration(len(latencies)))
	fmt.Fprintf(out, "P50:    %s\n", percentile(latencies, 50))
	fmt.Fprintf(out, "P90:    %s\n", percentile(latencies, 90))
	fmt.Fprintf(out, "P99:    %s\n", percentile(latencies, 99))
	fmt.Fprintf(out, "Max:    %s\n", latencies[len(latencies)-1])
}

func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(math.Ceil(p/100*float64(len(sorted)))) - 1
	return sorted[min(max(idx, 0), len(sorted)-1)]
}
