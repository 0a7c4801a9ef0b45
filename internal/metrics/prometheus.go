package metrics

import (
	"net/http"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// PrometheusMetrics implements Metrics using Prometheus with zero-allocation hot path
type PrometheusMetrics struct {
	// Orchestrator counters (using atomic for zero-allocation)
	matchesHigh  atomic.Uint64
	matchesOther atomic.Uint64
	cacheHits    atomic.Uint64
	cacheMisses  atomic.Uint64

	// Prometheus metrics (for HTTP export)
	matchesTotal      *prometheus.CounterVec
	cacheHitsTotal    prometheus.Counter
	cacheMissesTotal  prometheus.Counter
	matchErrors       *prometheus.CounterVec
	activeMatches     prometheus.Gauge
	matchDuration     prometheus.Histogram

	// Batch pipeline metrics
	batchItems  *prometheus.CounterVec
	jobsActive  prometheus.Gauge
	inFlight    *prometheus.GaugeVec

	// Embedding metrics
	embeddingJobs          *prometheus.CounterVec
	embeddingCacheOps      *prometheus.CounterVec
	embeddingCacheHits     prometheus.Counter
	embeddingCacheMisses   prometheus.Counter
	embeddingCacheEvictions prometheus.Counter
	queueDepth             prometheus.Gauge
	activeWorkers          prometheus.Gauge
	cacheEntries           prometheus.Gauge
	jobDuration            prometheus.Histogram

	// Vector store metrics
	vectorOps              *prometheus.CounterVec
	vectorErrors           *prometheus.CounterVec
	vectorStoreSize        prometheus.Gauge
	indexSize              prometheus.Gauge
	vectorSearchDuration   prometheus.Histogram
	vectorInsertDuration   prometheus.Histogram

	registry *prometheus.Registry
}

// NewPrometheusMetrics creates a new Prometheus metrics instance
func NewPrometheusMetrics(namespace string) *PrometheusMetrics {
	registry := prometheus.NewRegistry()

	// Register standard Go metrics
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	// Orchestrator metrics
	matchesTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "matches_total",
			Help:      "Total number of match results by confidence level",
		},
		[]string{"confidence_level"},
	)

	cacheHitsTotal := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "hits_total",
			Help:      "Total number of cache hits",
		},
	)

	cacheMissesTotal := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "misses_total",
			Help:      "Total number of cache misses",
		},
	)

	matchErrors := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "errors_total",
			Help:      "Total number of orchestrator errors by type",
		},
		[]string{"type"},
	)

	activeMatches := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_matches",
			Help:      "Number of in-flight match requests",
		},
	)

	// Match latency: 1ms to 10s (bounded by the orchestrator budget)
	matchDuration := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "match_duration_milliseconds",
			Help:      "Match orchestrator latency in milliseconds",
			Buckets:   []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 5000, 10000},
		},
	)

	batchItems := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "batch",
			Name:      "items_total",
			Help:      "Total number of batch items by terminal status",
		},
		[]string{"status"},
	)

	jobsActive := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "batch",
			Name:      "jobs_active",
			Help:      "Number of batch jobs currently RUNNING",
		},
	)

	inFlight := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "batch",
			Name:      "in_flight",
			Help:      "Number of in-flight items per job",
		},
		[]string{"job_id"},
	)

	// Embedding metrics
	embeddingJobs := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "embedding",
			Name:      "jobs_total",
			Help:      "Total number of embedding jobs by status",
		},
		[]string{"status"},
	)

	embeddingCacheOps := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "embedding",
			Name:      "cache_operations_total",
			Help:      "Total number of embedding cache operations",
		},
		[]string{"operation"},
	)

	embeddingCacheHits := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "embedding",
			Name:      "cache_hits_total",
			Help:      "Total number of embedding cache hits",
		},
	)

	embeddingCacheMisses := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "embedding",
			Name:      "cache_misses_total",
			Help:      "Total number of embedding cache misses",
		},
	)

	embeddingCacheEvictions := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "embedding",
			Name:      "cache_evictions_total",
			Help:      "Total number of embedding cache evictions",
		},
	)

	queueDepth := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "embedding",
			Name:      "queue_depth",
			Help:      "Current depth of embedding job queue",
		},
	)

	activeWorkers := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "embedding",
			Name:      "workers_active",
			Help:      "Number of active embedding workers",
		},
	)

	cacheEntries := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "embedding",
			Name:      "cache_entries",
			Help:      "Number of entries in embedding cache",
		},
	)

	// Embedding jobs: 10ms to 1 second (model inference time)
	jobDuration := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "embedding",
			Name:      "job_duration_milliseconds",
			Help:      "Embedding job processing duration in milliseconds",
			Buckets:   []float64{10, 25, 50, 100, 250, 500, 1000},
		},
	)

	// Vector store metrics
	vectorOps := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "vector",
			Name:      "operations_total",
			Help:      "Total number of vector operations by type",
		},
		[]string{"op"},
	)

	vectorErrors := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "vector",
			Name:      "search_errors_total",
			Help:      "Total number of vector search errors by type",
		},
		[]string{"type"},
	)

	vectorStoreSize := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "vector",
			Name:      "store_size",
			Help:      "Total number of vectors in store",
		},
	)

	indexSize := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "vector",
			Name:      "index_size_bytes",
			Help:      "Size of vector index in bytes",
		},
	)

	// Vector search: 1ms to 500ms (HNSW search time)
	vectorSearchDuration := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "vector",
			Name:      "search_duration_milliseconds",
			Help:      "Vector similarity search latency in milliseconds",
			Buckets:   []float64{1, 5, 10, 25, 50, 100, 250, 500},
		},
	)

	vectorInsertDuration := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "vector",
			Name:      "insert_duration_milliseconds",
			Help:      "Vector insert latency in milliseconds",
			Buckets:   []float64{1, 5, 10, 25, 50, 100, 250, 500},
		},
	)

	// Register all metrics
	registry.MustRegister(
		matchesTotal,
		cacheHitsTotal,
		cacheMissesTotal,
		matchErrors,
		activeMatches,
		matchDuration,
		batchItems,
		jobsActive,
		inFlight,
		embeddingJobs,
		embeddingCacheOps,
		embeddingCacheHits,
		embeddingCacheMisses,
		embeddingCacheEvictions,
		queueDepth,
		activeWorkers,
		cacheEntries,
		jobDuration,
		vectorOps,
		vectorErrors,
		vectorStoreSize,
		indexSize,
		vectorSearchDuration,
		vectorInsertDuration,
	)

	pm := &PrometheusMetrics{
		matchesTotal:            matchesTotal,
		cacheHitsTotal:          cacheHitsTotal,
		cacheMissesTotal:        cacheMissesTotal,
		matchErrors:             matchErrors,
		activeMatches:           activeMatches,
		matchDuration:           matchDuration,
		batchItems:              batchItems,
		jobsActive:              jobsActive,
		inFlight:                inFlight,
		embeddingJobs:           embeddingJobs,
		embeddingCacheOps:       embeddingCacheOps,
		embeddingCacheHits:      embeddingCacheHits,
		embeddingCacheMisses:    embeddingCacheMisses,
		embeddingCacheEvictions: embeddingCacheEvictions,
		queueDepth:              queueDepth,
		activeWorkers:           activeWorkers,
		cacheEntries:            cacheEntries,
		jobDuration:             jobDuration,
		vectorOps:               vectorOps,
		vectorErrors:            vectorErrors,
		vectorStoreSize:         vectorStoreSize,
		indexSize:               indexSize,
		vectorSearchDuration:    vectorSearchDuration,
		vectorInsertDuration:    vectorInsertDuration,
		registry:                registry,
	}

	// Initialize atomic counters to sync with Prometheus
	pm.matchesHigh.Store(0)
	pm.matchesOther.Store(0)
	pm.cacheHits.Store(0)
	pm.cacheMisses.Store(0)

	return pm
}

// RecordMatch records a match result (zero-allocation hot path)
func (p *PrometheusMetrics) RecordMatch(confidenceLevel string, duration time.Duration) {
	// Fast path: atomic increment (no allocations)
	if confidenceLevel == "HIGH" {
		p.matchesHigh.Add(1)
	} else {
		p.matchesOther.Add(1)
	}

	// Update Prometheus metrics synchronously
	// Note: Prometheus client is thread-safe and these operations are fast
	p.matchesTotal.WithLabelValues(confidenceLevel).Inc()
	p.matchDuration.Observe(float64(duration.Milliseconds()))
}

// RecordCacheHit records a cache hit (zero-allocation)
func (p *PrometheusMetrics) RecordCacheHit() {
	p.cacheHits.Add(1)
	p.cacheHitsTotal.Inc()
}

// RecordCacheMiss records a cache miss (zero-allocation)
func (p *PrometheusMetrics) RecordCacheMiss() {
	p.cacheMisses.Add(1)
	p.cacheMissesTotal.Inc()
}

// RecordMatchError records an orchestrator error
func (p *PrometheusMetrics) RecordMatchError(errorType string) {
	p.matchErrors.WithLabelValues(errorType).Inc()
}

// IncActiveMatches increments in-flight match requests
func (p *PrometheusMetrics) IncActiveMatches() {
	p.activeMatches.Inc()
}

// DecActiveMatches decrements in-flight match requests
func (p *PrometheusMetrics) DecActiveMatches() {
	p.activeMatches.Dec()
}

// RecordBatchItem records a batch item reaching a terminal status.
func (p *PrometheusMetrics) RecordBatchItem(status string) {
	p.batchItems.WithLabelValues(status).Inc()
}

// UpdateJobsActive updates the number of RUNNING batch jobs.
func (p *PrometheusMetrics) UpdateJobsActive(count int) {
	p.jobsActive.Set(float64(count))
}

// UpdateInFlight updates the in-flight item count for one job.
func (p *PrometheusMetrics) UpdateInFlight(jobID string, count int) {
	p.inFlight.WithLabelValues(jobID).Set(float64(count))
}

// RecordEmbeddingJob records an embedding job
func (p *PrometheusMetrics) RecordEmbeddingJob(status string, duration time.Duration) {
	p.embeddingJobs.WithLabelValues(status).Inc()
	p.jobDuration.Observe(float64(duration.Milliseconds()))
}

// RecordCacheOperation records a cache operation
func (p *PrometheusMetrics) RecordCacheOperation(operation string) {
	p.embeddingCacheOps.WithLabelValues(operation).Inc()

	// Also update specific counters for backward compatibility
	switch operation {
	case "hit":
		p.embeddingCacheHits.Inc()
	case "miss":
		p.embeddingCacheMisses.Inc()
	case "eviction":
		p.embeddingCacheEvictions.Inc()
	}
}

// UpdateQueueDepth updates the embedding queue depth
func (p *PrometheusMetrics) UpdateQueueDepth(depth int) {
	p.queueDepth.Set(float64(depth))
}

// UpdateActiveWorkers updates the number of active workers
func (p *PrometheusMetrics) UpdateActiveWorkers(count int) {
	p.activeWorkers.Set(float64(count))
}

// UpdateCacheEntries updates the number of cache entries
func (p *PrometheusMetrics) UpdateCacheEntries(count int) {
	p.cacheEntries.Set(float64(count))
}

// RecordVectorOp records a vector operation
func (p *PrometheusMetrics) RecordVectorOp(operation string, duration time.Duration) {
	p.vectorOps.WithLabelValues(operation).Inc()

	ms := float64(duration.Milliseconds())
	switch operation {
	case "search":
		p.vectorSearchDuration.Observe(ms)
	case "insert":
		p.vectorInsertDuration.Observe(ms)
	}
}

// RecordVectorError records a vector operation error
func (p *PrometheusMetrics) RecordVectorError(errorType string) {
	p.vectorErrors.WithLabelValues(errorType).Inc()
}

// UpdateVectorStoreSize updates the vector store size
func (p *PrometheusMetrics) UpdateVectorStoreSize(count int) {
	p.vectorStoreSize.Set(float64(count))
}

// UpdateIndexSize updates the index size in bytes
func (p *PrometheusMetrics) UpdateIndexSize(bytes int64) {
	p.indexSize.Set(float64(bytes))
}

// HTTPHandler returns the Prometheus HTTP handler for /metrics endpoint
func (p *PrometheusMetrics) HTTPHandler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{})
}
