// Package metrics defines the Prometheus collectors of the search engine and
// exposes an HTTP handler for scraping.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Result types recorded under search_queries_total.
const (
	ResultHit   = "hit"
	ResultZero  = "zero_result"
	ResultError = "error"
)

// Metrics holds all collectors for one engine instance.
type Metrics struct {
	DocumentsAddedTotal    prometheus.Counter
	DocumentsRemovedTotal  *prometheus.CounterVec
	DocumentsLive          prometheus.Gauge
	SearchQueriesTotal     *prometheus.CounterVec
	SearchLatency          *prometheus.HistogramVec
	SearchResultsCount     prometheus.Histogram
	QueryErrorsTotal       *prometheus.CounterVec
	CacheHitsTotal         prometheus.Counter
	CacheMissesTotal       prometheus.Counter
	DuplicatesRemovedTotal prometheus.Counter
	EmptyResultRequests    prometheus.Gauge
}

// New creates the collectors and registers them on reg. A nil reg registers
// nothing, which lets tests and embedded callers build many engines without
// duplicate-registration panics.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		DocumentsAddedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "documents_added_total",
				Help: "Total documents accepted by AddDocument.",
			},
		),
		DocumentsRemovedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "documents_removed_total",
				Help: "Total documents removed by execution mode.",
			},
			[]string{"mode"},
		),
		DocumentsLive: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "documents_live",
				Help: "Number of documents currently indexed.",
			},
		),
		SearchQueriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "search_queries_total",
				Help: "Total search queries by mode and result type (hit, zero_result, error).",
			},
			[]string{"mode", "result_type"},
		),
		SearchLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "search_latency_seconds",
				Help:    "Search query latency in seconds.",
				Buckets: []float64{0.00001, 0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
			},
			[]string{"mode"},
		),
		SearchResultsCount: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "search_results_count",
				Help:    "Number of results returned per search query.",
				Buckets: []float64{0, 1, 2, 3, 4, 5},
			},
		),
		QueryErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "query_errors_total",
				Help: "Rejected operations by error kind.",
			},
			[]string{"kind"},
		),
		CacheHitsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "cache_hits_total",
				Help: "Total number of result cache hits.",
			},
		),
		CacheMissesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "cache_misses_total",
				Help: "Total number of result cache misses.",
			},
		),
		DuplicatesRemovedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "duplicates_removed_total",
				Help: "Documents removed as vocabulary duplicates.",
			},
		),
		EmptyResultRequests: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "empty_result_requests",
				Help: "Requests inside the tracking window that returned no documents.",
			},
		),
	}

	if reg != nil {
		reg.MustRegister(
			m.DocumentsAddedTotal,
			m.DocumentsRemovedTotal,
			m.DocumentsLive,
			m.SearchQueriesTotal,
			m.SearchLatency,
			m.SearchResultsCount,
			m.QueryErrorsTotal,
			m.CacheHitsTotal,
			m.CacheMissesTotal,
			m.DuplicatesRemovedTotal,
			m.EmptyResultRequests,
		)
	}
	return m
}

// Handler returns the scrape handler for the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

// HandlerFor returns the scrape handler for a specific gatherer.
func HandlerFor(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
