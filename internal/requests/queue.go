// Package requests tracks search requests over a sliding window and runs
// batches of queries concurrently.
package requests

import (
	"sync"

	"github.com/Adithya-Monish-Kumar-K/search-server/pkg/searchserver"
	"github.com/prometheus/client_golang/prometheus"
)

// DefaultWindow is one request per minute for a day.
const DefaultWindow = 1440

// Searcher is the read side of a search server.
type Searcher interface {
	FindTopDocuments(mode searchserver.Mode, rawQuery string, predicate searchserver.Predicate) ([]searchserver.Document, error)
}

// Queue remembers whether each of the last window requests returned any
// document. Every AddFindRequest variant records through the same path, so
// the empty-result count always equals the empty entries inside the window.
type Queue struct {
	mu       sync.Mutex
	searcher Searcher
	empty    []bool
	next     int
	size     int
	noResult int
	gauge    prometheus.Gauge
}

type QueueOption func(*Queue)

// WithGauge mirrors NoResultRequests into g.
func WithGauge(g prometheus.Gauge) QueueOption {
	return func(q *Queue) {
		q.gauge = g
	}
}

// NewQueue creates a queue over window requests (DefaultWindow if not
// positive).
func NewQueue(searcher Searcher, window int, opts ...QueueOption) *Queue {
	if window <= 0 {
		window = DefaultWindow
	}
	q := &Queue{
		searcher: searcher,
		empty:    make([]bool, window),
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// AddFindRequest runs the search and records its outcome. Rejected queries
// are not recorded.
func (q *Queue) AddFindRequest(mode searchserver.Mode, rawQuery string, predicate searchserver.Predicate) ([]searchserver.Document, error) {
	docs, err := q.searcher.FindTopDocuments(mode, rawQuery, predicate)
	if err != nil {
		return nil, err
	}
	q.record(len(docs) == 0)
	return docs, nil
}

func (q *Queue) AddFindRequestByStatus(mode searchserver.Mode, rawQuery string, status searchserver.Status) ([]searchserver.Document, error) {
	return q.AddFindRequest(mode, rawQuery, searchserver.ByStatus(status))
}

func (q *Queue) record(empty bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.size == len(q.empty) {
		if q.empty[q.next] {
			q.noResult--
		}
	} else {
		q.size++
	}
	q.empty[q.next] = empty
	if empty {
		q.noResult++
	}
	q.next = (q.next + 1) % len(q.empty)
	if q.gauge != nil {
		q.gauge.Set(float64(q.noResult))
	}
}

// NoResultRequests counts the requests inside the window that found nothing.
func (q *Queue) NoResultRequests() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.noResult
}

// Len is the number of requests currently inside the window.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.size
}
