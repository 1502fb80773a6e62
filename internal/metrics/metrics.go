// Package metrics registers the service's Prometheus collectors.
//
// Collectors live on the default registry and are exposed by Handler.
// Label values are kept to small closed sets to bound cardinality.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "foldertalk"

// Outcome labels.
const (
	OutcomeOK       = "ok"
	OutcomeFailed   = "failed"
	OutcomeDegraded = "degraded"
	OutcomeSkipped  = "skipped"
)

var (
	indexJobsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "index_jobs_total",
		Help:      "Indexing jobs that reached a terminal status.",
	}, []string{"status"})

	indexFilesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "index_files_total",
		Help:      "Files processed by indexing jobs, by outcome.",
	}, []string{"outcome"})

	embeddingsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "embeddings_total",
		Help:      "Chunk embeddings attempted, by outcome.",
	}, []string{"outcome"})

	chatAnswersTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "chat_answers_total",
		Help:      "Chat answers produced, by outcome.",
	}, []string{"outcome"})

	cacheLookupsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "cache_lookups_total",
		Help:      "Cache lookups by cache name and result.",
	}, []string{"cache", "result"})

	evictedJobsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "retention_evicted_jobs_total",
		Help:      "Terminal jobs removed by retention.",
	})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request duration in seconds.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route", "status"})
)

// JobFinished counts a job reaching a terminal status.
func JobFinished(status string) {
	indexJobsTotal.WithLabelValues(status).Inc()
}

// FileProcessed counts one file by outcome.
func FileProcessed(outcome string) {
	indexFilesTotal.WithLabelValues(outcome).Inc()
}

// ChunkEmbedded counts one embedding attempt.
func ChunkEmbedded(ok bool) {
	embeddingsTotal.WithLabelValues(okOutcome(ok)).Inc()
}

// ChatAnswered counts a chat answer.
func ChatAnswered(degraded bool) {
	outcome := OutcomeOK
	if degraded {
		outcome = OutcomeDegraded
	}
	chatAnswersTotal.WithLabelValues(outcome).Inc()
}

// CacheLookup counts a hit or miss on a named cache.
func CacheLookup(cache string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	cacheLookupsTotal.WithLabelValues(cache, result).Inc()
}

// JobsEvicted counts jobs removed by retention.
func JobsEvicted(n int) {
	evictedJobsTotal.Add(float64(n))
}

// ObserveHTTP records one request. route is the matched route pattern,
// never the raw path.
func ObserveHTTP(method, route string, status int, elapsed time.Duration) {
	httpRequestDuration.WithLabelValues(method, route, strconv.Itoa(status)).Observe(elapsed.Seconds())
}

// Handler serves the default registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.Handler()
}

func okOutcome(ok bool) string {
	if ok {
		return OutcomeOK
	}
	return OutcomeFailed
}
