// Package metrics defines the Prometheus collectors shared by the crawler and worker.
//
// Crawler:
//   - hn_pages_fetched_total{kind} (Counter): probe and listing page fetches
//   - hn_fetch_duration_seconds{kind} (Histogram): fetch latency
//   - hn_candidates_total (Counter): candidate rows evaluated
//   - hn_posts_accepted_total (Counter): candidates that became posts
//   - hn_posts_rejected_total{field} (Counter): candidates dropped, by first failing field
//   - hn_runs_total{outcome} (Counter): finished runs, outcome is "ok", an error kind or "aborted"
//
// Delivery:
//   - hn_posts_published_total{status} (Counter): posts pushed to the queue by dedup status
//   - hn_posts_indexed_total{backend} (Counter): posts written by the worker
//   - hn_index_errors_total{backend} (Counter): failed bulk writes
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	PagesFetched = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hn_pages_fetched_total",
			Help: "Pages fetched from the listing source",
		},
		[]string{"kind"},
	)

	FetchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "hn_fetch_duration_seconds",
			Help:    "Duration of page fetches",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"kind"},
	)

	Candidates = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "hn_candidates_total",
			Help: "Candidate rows evaluated by the extractor",
		},
	)

	PostsAccepted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "hn_posts_accepted_total",
			Help: "Candidates accepted as valid posts",
		},
	)

	PostsRejected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hn_posts_rejected_total",
			Help: "Candidates dropped by validation",
		},
		[]string{"field"},
	)

	Runs = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hn_runs_total",
			Help: "Finished collection runs by outcome",
		},
		[]string{"outcome"},
	)

	PostsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hn_posts_published_total",
			Help: "Posts published to the delivery queue",
		},
		[]string{"status"},
	)

	PostsIndexed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hn_posts_indexed_total",
			Help: "Posts written to the storage backend",
		},
		[]string{"backend"},
	)

	IndexErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hn_index_errors_total",
			Help: "Failed bulk writes to the storage backend",
		},
		[]string{"backend"},
	)
)

// Handler exposes the default registry
func Handler() http.Handler {
	return promhttp.Handler()
}
