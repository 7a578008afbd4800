// Package metrics exposes Prometheus collectors for the searchive service.
package metrics

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	searchesTotal           *prometheus.CounterVec
	searchResultsTotal      *prometheus.CounterVec
	extractionOutcomesTotal *prometheus.CounterVec
	extractedBytesTotal     prometheus.Counter
	archiveWritesTotal      *prometheus.CounterVec
	fetchDurationSeconds    prometheus.Histogram
	rateLimitDelaySeconds   prometheus.Histogram
	httpRequestsTotal       *prometheus.CounterVec
	httpRequestDuration     *prometheus.HistogramVec

	once sync.Once
)

// Init registers the Prometheus collectors. Safe to call multiple times.
func Init() {
	once.Do(func() {
		searchesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "searchive_searches_total",
				Help: "Total number of search queries issued, labeled by type and status.",
			},
			[]string{"type", "status"},
		)

		searchResultsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "searchive_search_results_total",
				Help: "Total number of result descriptors returned, labeled by type.",
			},
			[]string{"type"},
		)

		extractionOutcomesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "searchive_extraction_outcomes_total",
				Help: "Total number of extraction outcomes, labeled by status.",
			},
			[]string{"status"},
		)

		extractedBytesTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "searchive_extracted_chars_total",
				Help: "Total characters of extracted text after capping.",
			},
		)

		archiveWritesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "searchive_archive_writes_total",
				Help: "Total archive write operations, labeled by kind and status.",
			},
			[]string{"kind", "status"},
		)

		fetchDurationSeconds = promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "searchive_fetch_duration_seconds",
				Help:    "Duration of document fetches.",
				Buckets: prometheus.DefBuckets,
			},
		)

		rateLimitDelaySeconds = promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "searchive_rate_limit_delay_seconds",
				Help:    "Delay introduced by the query rate limiter.",
				Buckets: []float64{.005, .025, .1, .25, .5, 1, 2.5, 5, 10},
			},
		)

		httpRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "searchive_http_requests_total",
				Help: "Total HTTP requests served, labeled by method, route and status code.",
			},
			[]string{"method", "route", "code"},
		)

		httpRequestDuration = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "searchive_http_request_duration_seconds",
				Help:    "Duration of HTTP requests, labeled by method and route.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		)
	})
}

// RecordSearch counts one query call.
func RecordSearch(searchType, status string) {
	Init()
	searchesTotal.WithLabelValues(searchType, status).Inc()
}

// RecordSearchResults counts descriptors returned by a query.
func RecordSearchResults(searchType string, count int) {
	Init()
	searchResultsTotal.WithLabelValues(searchType).Add(float64(count))
}

// RecordExtraction counts one extraction outcome.
func RecordExtraction(success bool, textLen int) {
	Init()
	status := "success"
	if !success {
		status = "failure"
	}
	extractionOutcomesTotal.WithLabelValues(status).Inc()
	if textLen > 0 {
		extractedBytesTotal.Add(float64(textLen))
	}
}

// RecordArchiveWrite counts one archive mutation.
func RecordArchiveWrite(kind string, err error) {
	Init()
	status := "ok"
	if err != nil {
		status = "error"
	}
	archiveWritesTotal.WithLabelValues(kind, status).Inc()
}

// ObserveFetchDuration records one document fetch round trip.
func ObserveFetchDuration(d time.Duration) {
	Init()
	fetchDurationSeconds.Observe(d.Seconds())
}

// ObserveRateLimitDelay records time spent waiting on the query gate.
func ObserveRateLimitDelay(d time.Duration) {
	Init()
	rateLimitDelaySeconds.Observe(d.Seconds())
}

// ObserveHTTPRequest records one served HTTP request.
func ObserveHTTPRequest(method, route string, status int, d time.Duration) {
	Init()
	httpRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	httpRequestDuration.WithLabelValues(method, route).Observe(d.Seconds())
}
