package metrics

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestMetricsInterface_AllMethodsExist verifies the Metrics interface contract
func TestMetricsInterface_AllMethodsExist(t *testing.T) {
	tests := []struct {
		name   string
		metric Metrics
	}{
		{
			name:   "PrometheusMetrics implements all methods",
			metric: NewPrometheusMetrics("matchcore_test"),
		},
		{
			name:   "NoOpMetrics implements all methods",
			metric: &NoOpMetrics{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Orchestrator metrics
			tt.metric.RecordMatch("HIGH", 100*time.Millisecond)
			tt.metric.RecordCacheHit()
			tt.metric.RecordCacheMiss()
			tt.metric.RecordMatchError("upstream_unavailable")
			tt.metric.IncActiveMatches()
			tt.metric.DecActiveMatches()

			// Batch pipeline metrics
			tt.metric.RecordBatchItem("succeeded")
			tt.metric.UpdateJobsActive(1)
			tt.metric.UpdateInFlight("job-1", 5)

			// Embedding metrics
			tt.metric.RecordEmbeddingJob("success", 50*time.Millisecond)
			tt.metric.RecordCacheOperation("hit")
			tt.metric.UpdateQueueDepth(10)
			tt.metric.UpdateActiveWorkers(5)
			tt.metric.UpdateCacheEntries(100)

			// Vector store metrics
			tt.metric.RecordVectorOp("search", 25*time.Millisecond)
			tt.metric.RecordVectorError("timeout")
			tt.metric.UpdateVectorStoreSize(1000)
			tt.metric.UpdateIndexSize(1024 * 1024)

			// HTTP handler
			handler := tt.metric.HTTPHandler()
			require.NotNil(t, handler)
		})
	}
}

// TestNoOpMetrics_NoPanics ensures NoOp metrics never crash
func TestNoOpMetrics_NoPanics(t *testing.T) {
	m := &NoOpMetrics{}

	var wg sync.WaitGroup
	iterations := 100

	for i := 0; i < iterations; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.RecordMatch("MEDIUM", 1*time.Millisecond)
			m.RecordCacheHit()
			m.RecordCacheMiss()
			m.RecordMatchError("test")
			m.IncActiveMatches()
			m.DecActiveMatches()
			m.RecordBatchItem("failed")
			m.UpdateJobsActive(0)
			m.UpdateInFlight("job-1", 0)
			m.RecordEmbeddingJob("success", 1*time.Millisecond)
			m.RecordCacheOperation("hit")
			m.UpdateQueueDepth(0)
			m.UpdateActiveWorkers(0)
			m.UpdateCacheEntries(0)
			m.RecordVectorOp("search", 1*time.Millisecond)
			m.RecordVectorError("test")
			m.UpdateVectorStoreSize(0)
			m.UpdateIndexSize(0)
			_ = m.HTTPHandler()
		}()
	}

	wg.Wait()
}

// TestNoOpMetrics_HTTPHandler verifies NoOp handler returns valid response
func TestNoOpMetrics_HTTPHandler(t *testing.T) {
	m := &NoOpMetrics{}
	handler := m.HTTPHandler()

	req := httptest.NewRequest("GET", "/metrics", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

// TestPrometheusMetrics_RecordMatch verifies match outcome metrics
func TestPrometheusMetrics_RecordMatch(t *testing.T) {
	tests := []struct {
		name     string
		matches  []struct {
			level    string
			duration time.Duration
		}
		expected map[string]int
	}{
		{
			name: "Single HIGH match",
			matches: []struct {
				level    string
				duration time.Duration
			}{
				{level: "HIGH", duration: 5 * time.Millisecond},
			},
			expected: map[string]int{"HIGH": 1, "MEDIUM": 0},
		},
		{
			name: "Multiple mixed confidence levels",
			matches: []struct {
				level    string
				duration time.Duration
			}{
				{level: "HIGH", duration: 5 * time.Millisecond},
				{level: "HIGH", duration: 10 * time.Millisecond},
				{level: "MEDIUM", duration: 3 * time.Millisecond},
				{level: "LOW", duration: 7 * time.Millisecond},
			},
			expected: map[string]int{"HIGH": 2, "MEDIUM": 1, "LOW": 1},
		},
		{
			name: "100 HIGH matches",
			matches: func() []struct {
				level    string
				duration time.Duration
			} {
				matches := make([]struct {
					level    string
					duration time.Duration
				}, 100)
				for i := 0; i < 100; i++ {
					matches[i] = struct {
						level    string
						duration time.Duration
					}{level: "HIGH", duration: 5 * time.Millisecond}
				}
				return matches
			}(),
			expected: map[string]int{"HIGH": 100},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewPrometheusMetrics("matchcore_test")

			for _, match := range tt.matches {
				m.RecordMatch(match.level, match.duration)
			}

			handler := m.HTTPHandler()
			req := httptest.NewRequest("GET", "/metrics", nil)
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			body := w.Body.String()

			for level, count := range tt.expected {
				if count > 0 {
					expectedLine := "matchcore_test_matches_total{confidence_level=\"" + level + "\"} " + itoa(count)
					assert.Contains(t, body, expectedLine,
						"Expected metric line: %s", expectedLine)
				}
			}

			assert.Contains(t, body, "matchcore_test_match_duration_milliseconds")
			assert.Contains(t, body, "_bucket{")
			assert.Contains(t, body, "_sum")
			assert.Contains(t, body, "_count")
		})
	}
}

// TestPrometheusMetrics_CacheMetrics verifies cache hit/miss tracking
func TestPrometheusMetrics_CacheMetrics(t *testing.T) {
	tests := []struct {
		name   string
		hits   int
		misses int
	}{
		{name: "Only hits", hits: 10, misses: 0},
		{name: "Only misses", hits: 0, misses: 10},
		{name: "Mixed hits and misses", hits: 75, misses: 25},
		{name: "High cache hit rate", hits: 950, misses: 50},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewPrometheusMetrics("matchcore_test")

			for i := 0; i < tt.hits; i++ {
				m.RecordCacheHit()
			}
			for i := 0; i < tt.misses; i++ {
				m.RecordCacheMiss()
			}

			handler := m.HTTPHandler()
			req := httptest.NewRequest("GET", "/metrics", nil)
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			body := w.Body.String()

			if tt.hits > 0 {
				assert.Contains(t, body, "matchcore_test_cache_hits_total "+itoa(tt.hits))
			}
			if tt.misses > 0 {
				assert.Contains(t, body, "matchcore_test_cache_misses_total "+itoa(tt.misses))
			}
		})
	}
}

// TestPrometheusMetrics_MatchErrors verifies error tracking by type
func TestPrometheusMetrics_MatchErrors(t *testing.T) {
	m := NewPrometheusMetrics("matchcore_test")

	m.RecordMatchError("upstream_unavailable")
	m.RecordMatchError("upstream_unavailable")
	m.RecordMatchError("invalid_input")
	m.RecordMatchError("scorer_timeout")
	m.RecordMatchError("upstream_unavailable")

	handler := m.HTTPHandler()
	req := httptest.NewRequest("GET", "/metrics", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	body := w.Body.String()

	assert.Contains(t, body, "matchcore_test_errors_total{type=\"upstream_unavailable\"} 3")
	assert.Contains(t, body, "matchcore_test_errors_total{type=\"invalid_input\"} 1")
	assert.Contains(t, body, "matchcore_test_errors_total{type=\"scorer_timeout\"} 1")
}

// TestPrometheusMetrics_ActiveMatches verifies gauge increments/decrements
func TestPrometheusMetrics_ActiveMatches(t *testing.T) {
	m := NewPrometheusMetrics("matchcore_test")

	m.IncActiveMatches()
	m.IncActiveMatches()
	m.IncActiveMatches()
	m.DecActiveMatches()

	// Current active: 2

	handler := m.HTTPHandler()
	req := httptest.NewRequest("GET", "/metrics", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	body := w.Body.String()
	assert.Contains(t, body, "matchcore_test_active_matches 2")
}

// TestPrometheusMetrics_BatchItems verifies terminal-status item tracking
func TestPrometheusMetrics_BatchItems(t *testing.T) {
	m := NewPrometheusMetrics("matchcore_test")

	m.RecordBatchItem("succeeded")
	m.RecordBatchItem("succeeded")
	m.RecordBatchItem("failed")
	m.RecordBatchItem("skipped")
	m.RecordBatchItem("succeeded")

	handler := m.HTTPHandler()
	req := httptest.NewRequest("GET", "/metrics", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	body := w.Body.String()

	assert.Contains(t, body, "matchcore_test_batch_items_total{status=\"succeeded\"} 3")
	assert.Contains(t, body, "matchcore_test_batch_items_total{status=\"failed\"} 1")
	assert.Contains(t, body, "matchcore_test_batch_items_total{status=\"skipped\"} 1")
}

// TestPrometheusMetrics_BatchGauges verifies job/in-flight gauges
func TestPrometheusMetrics_BatchGauges(t *testing.T) {
	m := NewPrometheusMetrics("matchcore_test")

	m.UpdateJobsActive(3)
	m.UpdateInFlight("job-abc", 12)

	handler := m.HTTPHandler()
	req := httptest.NewRequest("GET", "/metrics", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	body := w.Body.String()

	assert.Contains(t, body, "matchcore_test_batch_jobs_active 3")
	assert.Contains(t, body, "matchcore_test_batch_in_flight{job_id=\"job-abc\"} 12")
}

// TestPrometheusMetrics_EmbeddingJobs verifies job status tracking
func TestPrometheusMetrics_EmbeddingJobs(t *testing.T) {
	m := NewPrometheusMetrics("matchcore_test")

	m.RecordEmbeddingJob("success", 50*time.Millisecond)
	m.RecordEmbeddingJob("success", 75*time.Millisecond)
	m.RecordEmbeddingJob("failed", 10*time.Millisecond)
	m.RecordEmbeddingJob("timeout", 1000*time.Millisecond)
	m.RecordEmbeddingJob("success", 60*time.Millisecond)

	handler := m.HTTPHandler()
	req := httptest.NewRequest("GET", "/metrics", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	body := w.Body.String()

	assert.Contains(t, body, "matchcore_test_embedding_jobs_total{status=\"success\"} 3")
	assert.Contains(t, body, "matchcore_test_embedding_jobs_total{status=\"failed\"} 1")
	assert.Contains(t, body, "matchcore_test_embedding_jobs_total{status=\"timeout\"} 1")
	assert.Contains(t, body, "matchcore_test_embedding_job_duration_milliseconds")
}

// TestPrometheusMetrics_EmbeddingCacheOperations verifies cache operation tracking
func TestPrometheusMetrics_EmbeddingCacheOperations(t *testing.T) {
	m := NewPrometheusMetrics("matchcore_test")

	for i := 0; i < 80; i++ {
		m.RecordCacheOperation("hit")
	}
	for i := 0; i < 15; i++ {
		m.RecordCacheOperation("miss")
	}
	for i := 0; i < 5; i++ {
		m.RecordCacheOperation("eviction")
	}

	handler := m.HTTPHandler()
	req := httptest.NewRequest("GET", "/metrics", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	body := w.Body.String()

	assert.Contains(t, body, "matchcore_test_embedding_cache_hits_total 80")
	assert.Contains(t, body, "matchcore_test_embedding_cache_misses_total 15")
	assert.Contains(t, body, "matchcore_test_embedding_cache_evictions_total 5")
}

// TestPrometheusMetrics_EmbeddingGauges verifies queue and worker gauges
func TestPrometheusMetrics_EmbeddingGauges(t *testing.T) {
	m := NewPrometheusMetrics("matchcore_test")

	m.UpdateQueueDepth(42)
	m.UpdateActiveWorkers(8)
	m.UpdateCacheEntries(256)

	handler := m.HTTPHandler()
	req := httptest.NewRequest("GET", "/metrics", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	body := w.Body.String()

	assert.Contains(t, body, "matchcore_test_embedding_queue_depth 42")
	assert.Contains(t, body, "matchcore_test_embedding_workers_active 8")
	assert.Contains(t, body, "matchcore_test_embedding_cache_entries 256")
}

// TestPrometheusMetrics_VectorOperations verifies vector operation tracking
func TestPrometheusMetrics_VectorOperations(t *testing.T) {
	m := NewPrometheusMetrics("matchcore_test")

	m.RecordVectorOp("insert", 15*time.Millisecond)
	m.RecordVectorOp("insert", 20*time.Millisecond)
	m.RecordVectorOp("search", 5*time.Millisecond)
	m.RecordVectorOp("search", 8*time.Millisecond)
	m.RecordVectorOp("search", 6*time.Millisecond)
	m.RecordVectorOp("delete", 3*time.Millisecond)

	handler := m.HTTPHandler()
	req := httptest.NewRequest("GET", "/metrics", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	body := w.Body.String()

	assert.Contains(t, body, "matchcore_test_vector_operations_total{op=\"insert\"} 2")
	assert.Contains(t, body, "matchcore_test_vector_operations_total{op=\"search\"} 3")
	assert.Contains(t, body, "matchcore_test_vector_operations_total{op=\"delete\"} 1")
	assert.Contains(t, body, "matchcore_test_vector_search_duration_milliseconds")
	assert.Contains(t, body, "matchcore_test_vector_insert_duration_milliseconds")
}

// TestPrometheusMetrics_VectorErrors verifies error tracking
func TestPrometheusMetrics_VectorErrors(t *testing.T) {
	m := NewPrometheusMetrics("matchcore_test")

	m.RecordVectorError("timeout")
	m.RecordVectorError("invalid_query")
	m.RecordVectorError("timeout")
	m.RecordVectorError("not_found")
	m.RecordVectorError("timeout")

	handler := m.HTTPHandler()
	req := httptest.NewRequest("GET", "/metrics", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	body := w.Body.String()

	assert.Contains(t, body, "matchcore_test_vector_search_errors_total{type=\"timeout\"} 3")
	assert.Contains(t, body, "matchcore_test_vector_search_errors_total{type=\"invalid_query\"} 1")
	assert.Contains(t, body, "matchcore_test_vector_search_errors_total{type=\"not_found\"} 1")
}

// TestPrometheusMetrics_VectorStoreMetrics verifies store size tracking
func TestPrometheusMetrics_VectorStoreMetrics(t *testing.T) {
	m := NewPrometheusMetrics("matchcore_test")

	m.UpdateVectorStoreSize(5000)
	m.UpdateIndexSize(10 * 1024 * 1024) // 10MB

	handler := m.HTTPHandler()
	req := httptest.NewRequest("GET", "/metrics", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	body := w.Body.String()

	assert.Contains(t, body, "matchcore_test_vector_store_size 5000")
	assert.Contains(t, body, "matchcore_test_vector_index_size_bytes 1.048576e+07")
}

// TestPrometheusMetrics_HTTPHandler_ValidFormat verifies Prometheus format
func TestPrometheusMetrics_HTTPHandler_ValidFormat(t *testing.T) {
	m := NewPrometheusMetrics("matchcore_test")

	m.RecordMatch("HIGH", 5*time.Millisecond)
	m.RecordCacheHit()

	handler := m.HTTPHandler()
	req := httptest.NewRequest("GET", "/metrics", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	body := w.Body.String()

	assert.Contains(t, body, "# HELP")
	assert.Contains(t, body, "# TYPE")

	lines := strings.Split(body, "\n")
	for _, line := range lines {
		if strings.HasPrefix(line, "matchcore_test_") && !strings.HasPrefix(line, "# ") {
			assert.NotContains(t, line, "camelCase")
			assert.NotRegexp(t, `[A-Z]`, strings.Split(line, "{")[0],
				"Metric names should be lowercase snake_case: %s", line)
		}
	}

	assert.Contains(t, body, "go_goroutines")
	assert.Contains(t, body, "go_memstats")
}

// TestPrometheusMetrics_ConcurrentAccess verifies thread safety
func TestPrometheusMetrics_ConcurrentAccess(t *testing.T) {
	m := NewPrometheusMetrics("matchcore_test")

	var wg sync.WaitGroup
	iterations := 100

	for i := 0; i < iterations; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.RecordMatch("HIGH", 5*time.Millisecond)
			m.RecordCacheHit()
			m.IncActiveMatches()
			m.DecActiveMatches()
		}()
	}

	for i := 0; i < iterations; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			m.RecordEmbeddingJob("success", 50*time.Millisecond)
			m.UpdateQueueDepth(i)
			m.UpdateActiveWorkers(i % 10)
		}(i)
	}

	for i := 0; i < iterations; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			m.RecordVectorOp("search", 10*time.Millisecond)
			m.UpdateVectorStoreSize(i * 100)
		}(i)
	}

	wg.Wait()

	handler := m.HTTPHandler()
	req := httptest.NewRequest("GET", "/metrics", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, "matchcore_test_matches_total")
}

// TestPrometheusMetrics_HistogramBuckets verifies correct bucket configuration
func TestPrometheusMetrics_HistogramBuckets(t *testing.T) {
	m := NewPrometheusMetrics("matchcore_test")

	m.RecordMatch("HIGH", 1*time.Millisecond)
	m.RecordMatch("HIGH", 10*time.Millisecond)
	m.RecordMatch("HIGH", 100*time.Millisecond)
	m.RecordMatch("HIGH", 1000*time.Millisecond)

	handler := m.HTTPHandler()
	req := httptest.NewRequest("GET", "/metrics", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	body := w.Body.String()

	expectedBuckets := []string{"1", "5", "10", "25", "50", "100", "250", "500", "1000", "5000", "10000"}
	for _, bucket := range expectedBuckets {
		assert.Contains(t, body, "le=\""+bucket+"\"",
			"Expected histogram bucket: le=\"%s\"", bucket)
	}

	assert.Contains(t, body, "le=\"+Inf\"")
}

// TestPrometheusMetrics_MultipleNamespaces verifies namespace isolation
func TestPrometheusMetrics_MultipleNamespaces(t *testing.T) {
	m1 := NewPrometheusMetrics("matchcore_prod")
	m2 := NewPrometheusMetrics("matchcore_test")

	m1.RecordMatch("HIGH", 5*time.Millisecond)
	m2.RecordMatch("LOW", 3*time.Millisecond)

	handler1 := m1.HTTPHandler()
	req1 := httptest.NewRequest("GET", "/metrics", nil)
	w1 := httptest.NewRecorder()
	handler1.ServeHTTP(w1, req1)
	body1 := w1.Body.String()

	assert.Contains(t, body1, "matchcore_prod_matches_total")
	assert.NotContains(t, body1, "matchcore_test_matches_total")

	handler2 := m2.HTTPHandler()
	req2 := httptest.NewRequest("GET", "/metrics", nil)
	w2 := httptest.NewRecorder()
	handler2.ServeHTTP(w2, req2)
	body2 := w2.Body.String()

	assert.Contains(t, body2, "matchcore_test_matches_total")
	assert.NotContains(t, body2, "matchcore_prod_matches_total")
}

// Helper function to convert int to string
func itoa(i int) string {
	return fmt.Sprintf("%d", i)
}
