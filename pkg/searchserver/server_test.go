package searchserver

import (
	"context"
	"errors"
	"fmt"
	"math"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Adithya-Monish-Kumar-K/search-server/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/search-server/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/search-server/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var modes = []Mode{ModeSequential, ModeParallel}

func newTestServer(t *testing.T, stopWords string, opts ...Option) *Server {
	t.Helper()
	s, err := NewFromText(stopWords, opts...)
	require.NoError(t, err)
	return s
}

func ids(docs []Document) []int {
	out := make([]int, len(docs))
	for i, d := range docs {
		out[i] = d.ID
	}
	return out
}

func TestMinusWordScenario(t *testing.T) {
	s := newTestServer(t, "and in on")
	require.NoError(t, s.AddDocument(0, "a cat and a dog", StatusActual, []int{5, 5}))
	require.NoError(t, s.AddDocument(1, "a cat in the house", StatusActual, []int{4, 4}))

	for _, mode := range modes {
		t.Run(mode.String(), func(t *testing.T) {
			docs, err := s.FindTopDocuments(mode, "cat -dog", nil)
			require.NoError(t, err)
			require.Len(t, docs, 1)
			assert.Equal(t, 1, docs[0].ID)
			assert.Equal(t, 4, docs[0].Rating)
		})
	}
}

func TestTieBrokenByRating(t *testing.T) {
	s := newTestServer(t, "")
	require.NoError(t, s.AddDocument(0, "white cat", StatusActual, []int{2}))
	require.NoError(t, s.AddDocument(1, "white cat", StatusActual, []int{8}))
	require.NoError(t, s.AddDocument(2, "black dog", StatusActual, []int{5}))

	for _, mode := range modes {
		t.Run(mode.String(), func(t *testing.T) {
			for range 20 {
				docs, err := s.FindTopDocuments(mode, "white cat", nil)
				require.NoError(t, err)
				require.Equal(t, []int{1, 0}, ids(docs))
				assert.Less(t, math.Abs(docs[0].Relevance-docs[1].Relevance), RelevanceEpsilon)
			}
		})
	}
}

func TestAddDocumentRejections(t *testing.T) {
	s := newTestServer(t, "")
	require.NoError(t, s.AddDocument(1, "white cat", StatusActual, []int{1}))
	rev := s.Revision()

	tests := []struct {
		name string
		id   int
		text string
	}{
		{"negative id", -1, "text"},
		{"control character", 5, "bad\x01word"},
		{"duplicate id", 1, "black dog"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := s.AddDocument(tt.id, tt.text, StatusActual, []int{})
			require.Error(t, err)
			assert.True(t, errors.Is(err, apperrors.ErrInvalidArgument))
		})
	}
	assert.Equal(t, 1, s.GetDocumentCount())
	assert.Equal(t, []int{1}, slices.Collect(s.IDs()))
	assert.Empty(t, s.GetWordFrequencies(5))
	assert.Equal(t, rev, s.Revision())
	docs, err := s.FindTopDocuments(ModeSequential, "text bad dog", nil)
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestConstructionRejectsInvalidStopWords(t *testing.T) {
	_, err := NewFromText("in \x12on")
	assert.True(t, errors.Is(err, apperrors.ErrInvalidArgument))
	_, err = NewFromWords([]string{"in", "o\x01n"})
	assert.True(t, errors.Is(err, apperrors.ErrInvalidArgument))

	s, err := NewFromWords([]string{"on", "", "in", "on"})
	require.NoError(t, err)
	assert.Equal(t, []string{"in", "on"}, s.StopWords())
}

func TestFrequenciesSumToOne(t *testing.T) {
	s := newTestServer(t, "and with")
	texts := []string{
		"funny pet and nasty rat",
		"funny pet with curly hair",
		"big cat fancy collar",
		"and with",
	}
	for i, text := range texts {
		require.NoError(t, s.AddDocument(i, text, StatusActual, nil))
	}
	for i := range 3 {
		var sum float64
		for _, f := range s.GetWordFrequencies(i) {
			sum += f
		}
		assert.InDelta(t, 1.0, sum, 1e-9)
	}
	assert.Empty(t, s.GetWordFrequencies(3))
	assert.Equal(t, 4, s.GetDocumentCount())
}

func TestFrequenciesUnaffectedBySearches(t *testing.T) {
	s := newTestServer(t, "")
	require.NoError(t, s.AddDocument(0, "curly cat curly tail", StatusActual, nil))
	require.NoError(t, s.AddDocument(1, "curly dog", StatusActual, nil))
	before := s.GetWordFrequencies(0)
	for _, mode := range modes {
		for range 5 {
			_, err := s.FindTopDocuments(mode, "curly -dog tail", nil)
			require.NoError(t, err)
		}
	}
	assert.Equal(t, before, s.GetWordFrequencies(0))
}

func TestRemoveRoundTrip(t *testing.T) {
	for _, mode := range modes {
		t.Run(mode.String(), func(t *testing.T) {
			s := newTestServer(t, "")
			require.NoError(t, s.AddDocument(0, "white cat", StatusActual, nil))
			require.NoError(t, s.AddDocument(1, "white dog", StatusActual, nil))

			require.NoError(t, s.RemoveDocument(mode, 0))
			assert.Empty(t, s.GetWordFrequencies(0))
			assert.Equal(t, []int{1}, slices.Collect(s.IDs()))
			assert.Equal(t, 1, s.GetDocumentCount())

			docs, err := s.FindTopDocuments(mode, "white cat", nil)
			require.NoError(t, err)
			assert.Equal(t, []int{1}, ids(docs))
			docs, err = s.FindTopDocuments(mode, "cat", nil)
			require.NoError(t, err)
			assert.Empty(t, docs)

			err = s.RemoveDocument(mode, 0)
			assert.True(t, errors.Is(err, apperrors.ErrNotFound))

			require.NoError(t, s.AddDocument(0, "black cat", StatusActual, nil))
			assert.Equal(t, []int{0, 1}, slices.Collect(s.IDs()))
		})
	}
}

func TestResultBoundAndMinusExclusion(t *testing.T) {
	s := newTestServer(t, "")
	for i := range 30 {
		text := "common word"
		if i%4 == 0 {
			text += " excluded"
		}
		if i%3 == 0 {
			text += " common common"
		}
		require.NoError(t, s.AddDocument(i, text, StatusActual, []int{i}))
	}
	for _, mode := range modes {
		docs, err := s.FindTopDocuments(mode, "common word", nil)
		require.NoError(t, err)
		assert.Len(t, docs, MaxResultDocumentCount)

		docs, err = s.FindTopDocuments(mode, "common -excluded", nil)
		require.NoError(t, err)
		assert.LessOrEqual(t, len(docs), MaxResultDocumentCount)
		for _, d := range docs {
			assert.NotZero(t, d.ID%4, "document %d contains a minus-word", d.ID)
		}
	}
}

func TestParallelMatchesSequential(t *testing.T) {
	s := newTestServer(t, "and in with")
	words := strings.Fields("alpha bravo charlie delta echo foxtrot golf hotel india juliet kilo lima")
	for i := range 200 {
		var b strings.Builder
		for j := range 6 {
			b.WriteString(words[(i*7+j*5+i*j)%len(words)])
			b.WriteByte(' ')
		}
		status := StatusActual
		if i%9 == 0 {
			status = StatusBanned
		}
		require.NoError(t, s.AddDocument(i, b.String(), status, []int{i % 11, i % 5}))
	}
	queries := []string{
		"alpha bravo",
		"charlie -delta",
		"echo foxtrot golf -hotel -india",
		"juliet kilo lima alpha",
		"-alpha bravo bravo",
	}
	for _, q := range queries {
		seq, err := s.FindTopDocuments(ModeSequential, q, nil)
		require.NoError(t, err)
		par, err := s.FindTopDocuments(ModeParallel, q, nil)
		require.NoError(t, err)
		assert.Equal(t, ids(seq), ids(par), q)

		banned, err := s.FindTopDocumentsByStatus(ModeParallel, q, StatusBanned)
		require.NoError(t, err)
		for _, d := range banned {
			assert.Zero(t, d.ID%9)
		}
	}
}

func TestCustomPredicate(t *testing.T) {
	s := newTestServer(t, "")
	for i := range 6 {
		require.NoError(t, s.AddDocument(i, "cat", StatusActual, []int{i}))
	}
	docs, err := s.FindTopDocuments(ModeParallel, "cat", func(id int, _ Status, rating int) bool {
		return id%2 == 0 && rating > 0
	})
	require.NoError(t, err)
	assert.Equal(t, []int{4, 2}, ids(docs))
}

func TestMatchDocument(t *testing.T) {
	s := newTestServer(t, "and")
	require.NoError(t, s.AddDocument(2, "fluffy cat and fluffy tail", StatusBanned, nil))
	for _, mode := range modes {
		words, status, err := s.MatchDocument(mode, "tail fluffy dog", 2)
		require.NoError(t, err)
		assert.Equal(t, []string{"fluffy", "tail"}, words)
		assert.Equal(t, StatusBanned, status)

		words, _, err = s.MatchDocument(mode, "tail -cat", 2)
		require.NoError(t, err)
		assert.Empty(t, words)

		_, _, err = s.MatchDocument(mode, "tail", 3)
		assert.True(t, errors.Is(err, apperrors.ErrNotFound))
	}
}

func TestInvalidQueries(t *testing.T) {
	s := newTestServer(t, "")
	require.NoError(t, s.AddDocument(0, "cat", StatusActual, nil))
	for _, q := range []string{"cat -", "cat --dog", "c\x05at"} {
		for _, mode := range modes {
			_, err := s.FindTopDocuments(mode, q, nil)
			assert.True(t, errors.Is(err, apperrors.ErrInvalidArgument), q)
		}
	}
	docs, err := s.FindTopDocuments(ModeSequential, "", nil)
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestConcurrentReaders(t *testing.T) {
	s, err := New(config.EngineConfig{StopWords: "in", AccumulatorShards: 8, MaxWorkers: 4})
	require.NoError(t, err)
	for i := range 50 {
		require.NoError(t, s.AddDocument(i, fmt.Sprintf("doc%d shared in word%d", i, i%5), StatusActual, []int{i}))
	}
	var wg sync.WaitGroup
	for w := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 20 {
				docs, err := s.FindTopDocuments(modes[w%2], "shared word1", nil)
				assert.NoError(t, err)
				assert.Len(t, docs, MaxResultDocumentCount)
			}
		}()
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 50; i < 60; i++ {
			assert.NoError(t, s.AddDocument(i, "late shared", StatusActual, nil))
		}
	}()
	wg.Wait()
	assert.Equal(t, 60, s.GetDocumentCount())
}

func TestIDsIsASnapshot(t *testing.T) {
	s := newTestServer(t, "")
	for i := range 5 {
		require.NoError(t, s.AddDocument(i*2, "cat", StatusActual, nil))
	}
	var seen []int
	for id := range s.IDs() {
		seen = append(seen, id)
		require.NoError(t, s.RemoveDocument(ModeSequential, id))
	}
	assert.Equal(t, []int{0, 2, 4, 6, 8}, seen)
	assert.Zero(t, s.GetDocumentCount())
}

func TestMetricsRecorded(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	s := newTestServer(t, "", WithMetrics(m))
	require.NoError(t, s.AddDocument(0, "cat", StatusActual, nil))
	require.Error(t, s.AddDocument(0, "cat", StatusActual, nil))
	_, err := s.FindTopDocuments(ModeParallel, "dog", nil)
	require.NoError(t, err)
	_, err = s.FindTopDocuments(ModeParallel, "cat", nil)
	require.NoError(t, err)
	require.NoError(t, s.RemoveDocument(ModeSequential, 0))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.DocumentsAddedTotal))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.DocumentsLive))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.DocumentsRemovedTotal.WithLabelValues("sequential")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.QueryErrorsTotal.WithLabelValues("invalid_argument")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SearchQueriesTotal.WithLabelValues("parallel", metrics.ResultZero)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SearchQueriesTotal.WithLabelValues("parallel", metrics.ResultHit)))
}

type mapBackend struct {
	mu   sync.Mutex
	data map[string][]byte
}

func (b *mapBackend) Fetch(_ context.Context, key string) ([]byte, bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	v, ok := b.data[key]
	return v, ok, nil
}

func (b *mapBackend) Store(_ context.Context, key string, value []byte, _ time.Duration) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.data[key] = value
	return nil
}

func (b *mapBackend) FlushByPattern(context.Context, string) (int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := int64(len(b.data))
	clear(b.data)
	return n, nil
}

func TestResultCacheFollowsRevision(t *testing.T) {
	m := metrics.New(nil)
	s := newTestServer(t, "", WithResultCache(&mapBackend{data: map[string][]byte{}}, time.Minute), WithMetrics(m))
	require.NoError(t, s.AddDocument(0, "white cat", StatusActual, []int{3}))

	first, err := s.FindTopDocuments(ModeSequential, "cat white", nil)
	require.NoError(t, err)
	second, err := s.FindTopDocuments(ModeParallel, "white cat", nil)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheHitsTotal))

	require.NoError(t, s.AddDocument(1, "white cat", StatusActual, []int{9}))
	third, err := s.FindTopDocuments(ModeSequential, "white cat", nil)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 0}, ids(third))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.CacheMissesTotal))
}

func TestDocumentString(t *testing.T) {
	d := Document{ID: 1, Relevance: 0.5, Rating: 4}
	assert.Equal(t, "{ document_id = 1, relevance = 0.5, rating = 4 }", d.String())
	d = Document{ID: 2, Relevance: 0.0810930216, Rating: -1}
	assert.Equal(t, "{ document_id = 2, relevance = 0.081093, rating = -1 }", d.String())
}

func TestResultCacheKeepsDelimiterWordsApart(t *testing.T) {
	s := newTestServer(t, "", WithResultCache(&mapBackend{data: map[string][]byte{}}, time.Minute))
	require.NoError(t, s.AddDocument(0, "a b", StatusActual, nil))
	require.NoError(t, s.AddDocument(1, "x", StatusActual, nil))

	docs, err := s.FindTopDocuments(ModeSequential, "a,b", nil)
	require.NoError(t, err)
	assert.Empty(t, docs)

	docs, err = s.FindTopDocuments(ModeSequential, "a b", nil)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, 0, docs[0].ID)
	assert.InDelta(t, math.Log(2), docs[0].Relevance, 1e-9)

	docs, err = s.FindTopDocuments(ModeSequential, "x|NOT:a", nil)
	require.NoError(t, err)
	assert.Empty(t, docs)
	docs, err = s.FindTopDocuments(ModeSequential, "x -a", nil)
	require.NoError(t, err)
	assert.Equal(t, []int{1}, ids(docs))
}

func TestResultCacheSharedBetweenServers(t *testing.T) {
	backend := &mapBackend{data: map[string][]byte{}}
	first := newTestServer(t, "", WithResultCache(backend, time.Minute))
	require.NoError(t, first.AddDocument(0, "white cat", StatusActual, nil))
	require.NoError(t, first.AddDocument(1, "black dog", StatusActual, nil))

	second := newTestServer(t, "", WithResultCache(backend, time.Minute))
	require.NoError(t, second.AddDocument(5, "grey cat", StatusActual, nil))
	require.NoError(t, second.AddDocument(6, "red fox", StatusActual, nil))
	require.Equal(t, first.Revision(), second.Revision())

	docs, err := first.FindTopDocuments(ModeSequential, "cat", nil)
	require.NoError(t, err)
	assert.Equal(t, []int{0}, ids(docs))

	docs, err = second.FindTopDocuments(ModeSequential, "cat", nil)
	require.NoError(t, err)
	assert.Equal(t, []int{5}, ids(docs))
}

func TestResultCacheRejectsMalformedQuery(t *testing.T) {
	s := newTestServer(t, "", WithResultCache(&mapBackend{data: map[string][]byte{}}, time.Minute))
	require.NoError(t, s.AddDocument(0, "cat", StatusActual, nil))
	_, err := s.FindTopDocuments(ModeSequential, "cat --dog", nil)
	assert.True(t, errors.Is(err, apperrors.ErrInvalidArgument))
}
