package embedding

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/govbizai/matchcore/internal/metrics"
	"github.com/govbizai/matchcore/pkg/types"
	"github.com/govbizai/matchcore/pkg/vector"
	"github.com/sony/gobreaker/v2"
)

// ErrorClass is the external-embedding-service failure taxonomy
// (spec.md §4.10): RATE_LIMIT and TRANSIENT are retryable, FATAL is not.
type ErrorClass string

const (
	ErrRateLimit ErrorClass = "RATE_LIMIT"
	ErrTransient ErrorClass = "TRANSIENT"
	ErrFatal     ErrorClass = "FATAL"
)

// ServiceError wraps an embedding-service failure with its class.
type ServiceError struct {
	Class ErrorClass
	Err   error
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("embedding service error [%s]: %v", e.Class, e.Err)
}

func (e *ServiceError) Unwrap() error { return e.Err }

// ClassOf extracts the ErrorClass from err, defaulting to FATAL for
// errors that don't carry one (an unclassified failure is treated as
// non-retryable).
func ClassOf(err error) ErrorClass {
	var svcErr *ServiceError
	if errors.As(err, &svcErr) {
		return svcErr.Class
	}
	return ErrFatal
}

// Retryable reports whether err's class permits a retry.
func Retryable(err error) bool {
	switch ClassOf(err) {
	case ErrRateLimit, ErrTransient:
		return true
	default:
		return false
	}
}

// EmbeddingService is the external adapter for text-to-vector
// embedding (spec.md §4.10: embed(text) -> vector).
type EmbeddingService interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// EmbeddingFunction is the low-level call a service implementation
// ultimately invokes. Kept distinct from EmbeddingService so tests and
// the circuit-breaker wrapper can plug in bare functions.
type EmbeddingFunction func(text string) ([]float32, error)

// funcService adapts a context-less EmbeddingFunction to
// EmbeddingService.
type funcService struct {
	fn EmbeddingFunction
}

func (f funcService) Embed(ctx context.Context, text string) ([]float32, error) {
	select {
	case <-ctx.Done():
		return nil, &ServiceError{Class: ErrTransient, Err: ctx.Err()}
	default:
	}
	return f.fn(text)
}

// CircuitBreakerService wraps an EmbeddingService with a circuit
// breaker so a struggling upstream doesn't pile up latency on every
// caller (spec.md §5: embedding calls budget 30s total including
// retries; tripping the breaker short-circuits that budget instead of
// spending it on calls likely to fail).
type CircuitBreakerService struct {
	inner   EmbeddingService
	breaker *gobreaker.CircuitBreaker[[]float32]
}

// NewCircuitBreakerService wraps inner. The breaker trips after 5
// consecutive failures within a request and stays open for 30s before
// allowing a single trial request through.
func NewCircuitBreakerService(inner EmbeddingService) *CircuitBreakerService {
	cb := gobreaker.NewCircuitBreaker[[]float32](gobreaker.Settings{
		Name:        "embedding-service",
		MaxRequests: 1,
		Interval:    0,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	})
	return &CircuitBreakerService{inner: inner, breaker: cb}
}

func (s *CircuitBreakerService) Embed(ctx context.Context, text string) ([]float32, error) {
	return s.breaker.Execute(func() ([]float32, error) {
		return s.inner.Embed(ctx, text)
	})
}

// EmbeddingWorker generates embeddings for opportunities and company
// profiles in the background, fanning out across a fixed worker pool
// backed by a buffered job queue (spec.md §4.10, §5).
type EmbeddingWorker struct {
	service     EmbeddingService
	vectorStore vector.VectorStore
	cache       *EmbeddingCache // optional caching layer
	ModelVersion string
	metrics     metrics.Metrics

	jobs    chan EmbeddingJob
	workers []*worker

	shutdown chan struct{}
	wg       sync.WaitGroup

	stats Stats
	mu    sync.RWMutex
}

// EmbeddingJob is a queued embedding task for either an opportunity or
// a company profile.
type EmbeddingJob struct {
	RecordID  string
	Text      string
	Priority  int // 0=low, 1=normal, 2=high
	Timestamp time.Time
}

type worker struct {
	id     int
	jobs   <-chan EmbeddingJob
	worker *EmbeddingWorker
	ctx    context.Context
	cancel context.CancelFunc
}

// Stats tracks embedding worker statistics.
type Stats struct {
	JobsProcessed     int64
	JobsFailed        int64
	TotalDurationMs   int64
	AverageDurationMs float64
	QueueDepth        int
	WorkersActive     int
	CacheHits         int64
	CacheMisses       int64
	CacheHitRate      float64
}

// Config configures the embedding worker.
type Config struct {
	NumWorkers   int
	QueueSize    int
	Dimension    int
	ModelVersion string
	Service      EmbeddingService
	CacheConfig  *CacheConfig
	Metrics      metrics.Metrics
}

// DefaultConfig returns a default worker configuration.
func DefaultConfig() Config {
	return Config{
		NumWorkers:   4,
		QueueSize:    1000,
		Dimension:    vector.DefaultDimension,
		ModelVersion: "v1",
	}
}

// NewEmbeddingWorker creates a new background embedding worker.
func NewEmbeddingWorker(cfg Config, vectorStore vector.VectorStore) (*EmbeddingWorker, error) {
	if vectorStore == nil {
		return nil, fmt.Errorf("vector store cannot be nil")
	}
	if cfg.Service == nil {
		return nil, fmt.Errorf("embedding service cannot be nil")
	}

	if cfg.NumWorkers <= 0 {
		cfg.NumWorkers = 4
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 1000
	}
	if cfg.ModelVersion == "" {
		cfg.ModelVersion = "v1"
	}
	if len(cfg.ModelVersion) > 200 {
		return nil, fmt.Errorf("version too long (max 200 characters)")
	}
	for _, ch := range cfg.ModelVersion {
		if !((ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') ||
			(ch >= '0' && ch <= '9') || ch == '.' || ch == '-' || ch == '_') {
			return nil, fmt.Errorf("invalid version format: only alphanumeric, dots, dashes, and underscores allowed")
		}
	}

	m := cfg.Metrics
	if m == nil {
		m = metrics.NewNoOpMetrics()
	}

	w := &EmbeddingWorker{
		service:      cfg.Service,
		vectorStore:  vectorStore,
		ModelVersion: cfg.ModelVersion,
		metrics:      m,
		jobs:         make(chan EmbeddingJob, cfg.QueueSize),
		workers:      make([]*worker, 0, cfg.NumWorkers),
		shutdown:     make(chan struct{}),
		stats:        Stats{WorkersActive: cfg.NumWorkers},
	}

	if cfg.CacheConfig != nil {
		w.cache = NewEmbeddingCache(*cfg.CacheConfig)
	}

	m.UpdateActiveWorkers(cfg.NumWorkers)

	for i := 0; i < cfg.NumWorkers; i++ {
		w.workers = append(w.workers, w.startWorker(i))
	}

	return w, nil
}

func (w *EmbeddingWorker) startWorker(id int) *worker {
	ctx, cancel := context.WithCancel(context.Background())
	wk := &worker{id: id, jobs: w.jobs, worker: w, ctx: ctx, cancel: cancel}
	w.wg.Add(1)
	go wk.run()
	return wk
}

func (wk *worker) run() {
	defer wk.worker.wg.Done()

	for {
		select {
		case <-wk.ctx.Done():
			return
		case <-wk.worker.shutdown:
			return
		case job := <-wk.jobs:
			start := time.Now()
			err := wk.processJob(job)
			duration := time.Since(start)

			if err != nil {
				log.Printf("[EmbeddingWorker-%d] failed job for %s: %v", wk.id, job.RecordID, err)
				wk.worker.incrementFailed()
				wk.worker.metrics.RecordEmbeddingJob("failed", duration)
			} else {
				wk.worker.incrementProcessed(duration)
				wk.worker.metrics.RecordEmbeddingJob("success", duration)
			}
		}
	}
}

func (wk *worker) processJob(job EmbeddingJob) error {
	ctx, cancel := context.WithTimeout(wk.ctx, 30*time.Second)
	defer cancel()

	contentHash := ComputeContentHash(job.Text)

	var embedding []float32
	if wk.worker.cache != nil {
		if _, ok := wk.worker.cache.Get(job.RecordID, contentHash, wk.worker.ModelVersion); ok {
			wk.worker.incrementCacheHit()
			wk.worker.metrics.RecordCacheOperation("hit")
			return nil
		}
		wk.worker.incrementCacheMiss()
		wk.worker.metrics.RecordCacheOperation("miss")
	}

	var err error
	embedding, err = wk.embedWithRetry(ctx, job.Text)
	if err != nil {
		return fmt.Errorf("embedding generation failed: %w", err)
	}

	if wk.worker.cache != nil {
		if err := wk.worker.cache.Put(job.RecordID, contentHash, wk.worker.ModelVersion, embedding); err != nil {
			log.Printf("[EmbeddingWorker-%d] cache put failed for %s: %v", wk.id, job.RecordID, err)
		}
	}

	metadata := map[string]interface{}{
		"record_id":     job.RecordID,
		"embedded_at":   time.Now().Unix(),
		"text_length":   len(job.Text),
		"content_hash":  contentHash,
		"model_version": wk.worker.ModelVersion,
	}

	if err := wk.worker.vectorStore.Insert(ctx, job.RecordID, embedding, metadata); err != nil {
		return fmt.Errorf("vector store insert failed: %w", err)
	}

	return nil
}

// embedWithRetry retries RATE_LIMIT/TRANSIENT failures with
// exponential backoff (base 1s, cap 30s), per spec.md §5's embedding
// budget and §7's retry policy for upstream errors.
func (wk *worker) embedWithRetry(ctx context.Context, text string) ([]float32, error) {
	const maxAttempts = 4
	backoff := time.Second

	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		embedding, err := wk.worker.service.Embed(ctx, text)
		if err == nil {
			return embedding, nil
		}
		lastErr = err

		if !Retryable(err) {
			return nil, err
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}

		backoff *= 2
		if backoff > 30*time.Second {
			backoff = 30 * time.Second
		}
	}
	return nil, lastErr
}

// Submit queues text for embedding (non-blocking; dropped if the
// queue is full).
func (w *EmbeddingWorker) Submit(recordID string, text string, priority int) bool {
	job := EmbeddingJob{RecordID: recordID, Text: text, Priority: priority, Timestamp: time.Now()}

	select {
	case w.jobs <- job:
		w.metrics.UpdateQueueDepth(len(w.jobs))
		return true
	default:
		return false
	}
}

// SubmitOpportunity queues an opportunity for embedding with automatic
// text serialization.
func (w *EmbeddingWorker) SubmitOpportunity(opp *types.Opportunity, priority int) bool {
	return w.Submit(opp.NoticeID, SerializeOpportunityToText(opp), priority)
}

// SubmitCompany queues a company profile for embedding with automatic
// text serialization.
func (w *EmbeddingWorker) SubmitCompany(company *types.CompanyProfile, priority int) bool {
	return w.Submit(company.CompanyID, SerializeCompanyToText(company), priority)
}

// Embed generates an embedding synchronously (for ad hoc query text
// that has no record to attach to a job).
func (w *EmbeddingWorker) Embed(ctx context.Context, text string) ([]float32, error) {
	return w.service.Embed(ctx, text)
}

// Stats returns current worker statistics.
func (w *EmbeddingWorker) Stats() Stats {
	w.mu.RLock()
	defer w.mu.RUnlock()

	stats := w.stats
	stats.QueueDepth = len(w.jobs)
	return stats
}

// Shutdown gracefully stops all workers.
func (w *EmbeddingWorker) Shutdown(ctx context.Context) error {
	close(w.shutdown)

	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		for _, worker := range w.workers {
			worker.cancel()
		}
		return fmt.Errorf("shutdown timeout: %w", ctx.Err())
	}
}

func (w *EmbeddingWorker) incrementProcessed(duration time.Duration) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.stats.JobsProcessed++
	w.stats.TotalDurationMs += duration.Milliseconds()
	if w.stats.JobsProcessed > 0 {
		w.stats.AverageDurationMs = float64(w.stats.TotalDurationMs) / float64(w.stats.JobsProcessed)
	}
}

func (w *EmbeddingWorker) incrementFailed() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.stats.JobsFailed++
}

func (w *EmbeddingWorker) incrementCacheHit() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.stats.CacheHits++
	w.refreshHitRateLocked()
}

func (w *EmbeddingWorker) incrementCacheMiss() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.stats.CacheMisses++
	w.refreshHitRateLocked()
}

func (w *EmbeddingWorker) refreshHitRateLocked() {
	total := w.stats.CacheHits + w.stats.CacheMisses
	if total > 0 {
		w.stats.CacheHitRate = float64(w.stats.CacheHits) / float64(total)
	}
}

// SerializeOpportunityToText converts an opportunity into
// embedding-friendly text (spec.md §4.10).
func SerializeOpportunityToText(opp *types.Opportunity) string {
	var parts []string

	if opp.Title != "" {
		parts = append(parts, fmt.Sprintf("Title: %s", opp.Title))
	}
	if opp.Description != "" {
		parts = append(parts, fmt.Sprintf("Description: %s", opp.Description))
	}
	if opp.NAICSCode != "" {
		parts = append(parts, fmt.Sprintf("NAICS: %s", opp.NAICSCode))
	}
	if opp.SetAside != "" {
		parts = append(parts, fmt.Sprintf("Set-aside: %s", opp.SetAside))
	}
	if opp.Department != "" {
		parts = append(parts, fmt.Sprintf("Department: %s", opp.Department))
	}
	if opp.Office != "" {
		parts = append(parts, fmt.Sprintf("Office: %s", opp.Office))
	}
	if opp.PlaceOfPerformance.State != "" {
		parts = append(parts, fmt.Sprintf("Place of performance: %s", formatLocation(opp.PlaceOfPerformance)))
	}

	return strings.Join(parts, ". ")
}

// SerializeCompanyToText converts a company profile into
// embedding-friendly text (spec.md §4.10).
func SerializeCompanyToText(company *types.CompanyProfile) string {
	var parts []string

	if company.Name != "" {
		parts = append(parts, fmt.Sprintf("Company: %s", company.Name))
	}
	if company.CapabilityStatement != "" {
		parts = append(parts, fmt.Sprintf("Capabilities: %s", company.CapabilityStatement))
	}
	if len(company.NAICSCodes) > 0 {
		parts = append(parts, fmt.Sprintf("NAICS codes: %s", strings.Join(company.NAICSCodes, ", ")))
	}
	if len(company.Certifications) > 0 {
		parts = append(parts, fmt.Sprintf("Certifications: %s", strings.Join(company.Certifications, ", ")))
	}
	if len(company.PastPerformance) > 0 {
		var records []string
		for _, pp := range company.PastPerformance {
			records = append(records, fmt.Sprintf("%s (%d) for %s", pp.Description, pp.Year, pp.Agency))
		}
		parts = append(parts, fmt.Sprintf("Past performance: %s", strings.Join(records, "; ")))
	}
	if len(company.Locations) > 0 {
		var locs []string
		for _, loc := range company.Locations {
			locs = append(locs, formatLocation(loc))
		}
		parts = append(parts, fmt.Sprintf("Locations: %s", strings.Join(locs, ", ")))
	}

	return strings.Join(parts, ". ")
}

func formatLocation(loc types.Location) string {
	if loc.City != "" {
		return fmt.Sprintf("%s, %s", loc.City, loc.State)
	}
	return loc.State
}

// NewDefaultService adapts a bare EmbeddingFunction (e.g. a test
// double or a thin HTTP client closure) to EmbeddingService.
func NewDefaultService(fn EmbeddingFunction) EmbeddingService {
	if fn == nil {
		fn = DefaultEmbeddingFunction
	}
	return funcService{fn: fn}
}

// DefaultEmbeddingFunction is a placeholder that generates a
// deterministic pseudo-embedding from a text hash. Production
// deployments inject a real EmbeddingService over HTTP/gRPC to the
// embedding model instead.
func DefaultEmbeddingFunction(text string) ([]float32, error) {
	dimension := vector.DefaultDimension

	embedding := make([]float32, dimension)
	hash := simpleHash(text)

	for i := 0; i < dimension; i++ {
		embedding[i] = float32((hash*31+i)%200-100) / 100.0
	}

	normalizeInPlace(embedding)

	return embedding, nil
}

func simpleHash(s string) int {
	hash := 0
	for _, ch := range s {
		hash = hash*31 + int(ch)
	}
	return hash
}

// normalizeInPlace scales vec to unit L2 length.
func normalizeInPlace(vec []float32) {
	var sumSq float64
	for _, v := range vec {
		sumSq += float64(v) * float64(v)
	}
	if sumSq == 0 {
		return
	}
	norm := 1.0 / math.Sqrt(sumSq)
	for i := range vec {
		vec[i] = float32(float64(vec[i]) * norm)
	}
}

// DetectVersionMismatch checks if a vector's model_version differs
// from the worker's configured version.
func (w *EmbeddingWorker) DetectVersionMismatch(vec interface{}) bool {
	if v, ok := vec.(*vector.Vector); ok {
		if storedVersion, exists := v.Metadata["model_version"]; exists {
			if versionStr, ok := storedVersion.(string); ok {
				return versionStr != w.ModelVersion
			}
		}
	}
	return false
}
