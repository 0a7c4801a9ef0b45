// Package metrics provides observability for the match engine: the
// orchestrator's per-match outcomes, the fingerprint cache, the
// embedding worker, the vector store, and the batch pipeline.
package metrics

import (
	"net/http"
	"time"
)

// Metrics provides observability for the match engine.
type Metrics interface {
	// Orchestrator metrics
	RecordMatch(confidenceLevel string, duration time.Duration)
	RecordCacheHit()
	RecordCacheMiss()
	RecordMatchError(errorType string)
	IncActiveMatches()
	DecActiveMatches()

	// Batch pipeline metrics
	RecordBatchItem(status string) // succeeded, failed, skipped
	UpdateJobsActive(count int)
	UpdateInFlight(jobID string, count int)

	// Embedding metrics
	RecordEmbeddingJob(status string, duration time.Duration)
	RecordCacheOperation(operation string) // hit, miss, eviction
	UpdateQueueDepth(depth int)
	UpdateActiveWorkers(count int)
	UpdateCacheEntries(count int)

	// Vector store metrics
	RecordVectorOp(operation string, duration time.Duration) // insert, search, delete
	RecordVectorError(errorType string)
	UpdateVectorStoreSize(count int)
	UpdateIndexSize(bytes int64)

	// HTTP handler for Prometheus scraping
	HTTPHandler() http.Handler
}

// NoOpMetrics provides a no-op implementation for testing/disabled monitoring
type NoOpMetrics struct{}

// NewNoOpMetrics creates a new no-op metrics instance
func NewNoOpMetrics() *NoOpMetrics {
	return &NoOpMetrics{}
}

// Orchestrator metrics
func (n *NoOpMetrics) RecordMatch(confidenceLevel string, duration time.Duration) {}
func (n *NoOpMetrics) RecordCacheHit()                                            {}
func (n *NoOpMetrics) RecordCacheMiss()                                           {}
func (n *NoOpMetrics) RecordMatchError(errorType string)                         {}
func (n *NoOpMetrics) IncActiveMatches()                                         {}
func (n *NoOpMetrics) DecActiveMatches()                                         {}

// Batch pipeline metrics
func (n *NoOpMetrics) RecordBatchItem(status string)              {}
func (n *NoOpMetrics) UpdateJobsActive(count int)                  {}
func (n *NoOpMetrics) UpdateInFlight(jobID string, count int)      {}

// Embedding metrics
func (n *NoOpMetrics) RecordEmbeddingJob(status string, duration time.Duration) {}
func (n *NoOpMetrics) RecordCacheOperation(operation string)                     {}
func (n *NoOpMetrics) UpdateQueueDepth(depth int)                                {}
func (n *NoOpMetrics) UpdateActiveWorkers(count int)                             {}
func (n *NoOpMetrics) UpdateCacheEntries(count int)                              {}

// Vector store metrics
func (n *NoOpMetrics) RecordVectorOp(operation string, duration time.Duration) {}
func (n *NoOpMetrics) RecordVectorError(errorType string)                       {}
func (n *NoOpMetrics) UpdateVectorStoreSize(count int)                          {}
func (n *NoOpMetrics) UpdateIndexSize(bytes int64)                              {}

// HTTPHandler returns a no-op handler
func (n *NoOpMetrics) HTTPHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("# NoOp metrics - monitoring disabled\n"))
	})
}
