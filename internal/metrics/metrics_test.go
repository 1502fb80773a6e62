package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestCounters(t *testing.T) {
	before := testutil.ToFloat64(indexJobsTotal.WithLabelValues("completed"))
	JobFinished("completed")
	assert.Equal(t, before+1, testutil.ToFloat64(indexJobsTotal.WithLabelValues("completed")))

	before = testutil.ToFloat64(embeddingsTotal.WithLabelValues(OutcomeFailed))
	ChunkEmbedded(false)
	assert.Equal(t, before+1, testutil.ToFloat64(embeddingsTotal.WithLabelValues(OutcomeFailed)))

	before = testutil.ToFloat64(chatAnswersTotal.WithLabelValues(OutcomeDegraded))
	ChatAnswered(true)
	assert.Equal(t, before+1, testutil.ToFloat64(chatAnswersTotal.WithLabelValues(OutcomeDegraded)))

	before = testutil.ToFloat64(cacheLookupsTotal.WithLabelValues("embedding", "hit"))
	CacheLookup("embedding", true)
	assert.Equal(t, before+1, testutil.ToFloat64(cacheLookupsTotal.WithLabelValues("embedding", "hit")))

	before = testutil.ToFloat64(evictedJobsTotal)
	JobsEvicted(3)
	assert.Equal(t, before+3, testutil.ToFloat64(evictedJobsTotal))
}

func TestHandler(t *testing.T) {
	FileProcessed(OutcomeOK)
	ObserveHTTP(http.MethodGet, "/health", http.StatusOK, 5*time.Millisecond)

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "foldertalk_index_files_total")
	assert.Contains(t, rec.Body.String(), "foldertalk_http_request_duration_seconds")
}
