// Package tracker implements the Progress Tracker (spec.md §4.7): a
// per-job set of atomic counters plus a trailing window used to derive
// throughput, an ETA, and a health verdict for the Batch Coordinator
// and its callers to poll.
//
// The counters/mutex shape is adapted from the teacher's
// internal/embedding.EmbeddingWorker.Stats (RWMutex-guarded struct,
// incremented from worker goroutines, read back through a snapshot
// method) renamed from embedding-job vocabulary to batch-item
// vocabulary.
package tracker

import (
	"sync"
	"time"

	"github.com/govbizai/matchcore/pkg/types"
)

// throughputWindow and failureRateWindow bound the trailing samples
// used for throughput/ETA and
// for the rolling failure-rate health check (spec.md §4.7: "trailing
// 60s window" for throughput, "trailing 100 items" for failure rate).
const (
	throughputWindow  = 60 * time.Second
	failureRateWindow = 100
)

// sample is one terminal outcome recorded for the trailing windows.
type sample struct {
	at      time.Time
	outcome string // succeeded, failed, skipped
}

// Tracker tracks one BatchJob's live progress.
type Tracker struct {
	mu sync.RWMutex

	jobID     string
	counters  types.BatchCounters
	startedAt time.Time
	lastProgress time.Time

	samples []sample // ring-like trailing buffer, trimmed on write

	notifyCh chan struct{} // closed and replaced on every completion; see Notify
}

// New creates a Tracker for jobID with total items known up front
// (spec.md §4.7: total is fixed at job creation from candidate-set
// resolution).
func New(jobID string, total int64) *Tracker {
	now := time.Now()
	return &Tracker{
		jobID:        jobID,
		counters:     types.BatchCounters{Total: total},
		startedAt:    now,
		lastProgress: now,
		notifyCh:     make(chan struct{}),
	}
}

// Submit records n items entering in-flight state.
func (t *Tracker) Submit(n int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.counters.Submitted += n
	t.counters.InFlight += n
}

// Succeed records one item completing successfully.
func (t *Tracker) Succeed() { t.complete("succeeded") }

// Fail records one item failing terminally (retries exhausted).
func (t *Tracker) Fail() { t.complete("failed") }

// Skip records one item skipped (e.g. cancelled job, dequeued but not
// processed).
func (t *Tracker) Skip() { t.complete("skipped") }

func (t *Tracker) complete(outcome string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.counters.InFlight--
	if t.counters.InFlight < 0 {
		t.counters.InFlight = 0
	}
	switch outcome {
	case "succeeded":
		t.counters.Succeeded++
	case "failed":
		t.counters.Failed++
	case "skipped":
		t.counters.Skipped++
	}

	now := time.Now()
	t.lastProgress = now
	t.samples = append(t.samples, sample{at: now, outcome: outcome})
	t.trimLocked(now)

	closed := t.notifyCh
	t.notifyCh = make(chan struct{})
	close(closed)
}

// Notify returns a channel that is closed the next time an item
// completes (succeeds, fails, or is skipped). Callers that need to
// block until in-flight capacity frees up (spec.md §4.6 step 8: "it
// waits on a signal from the Tracker") should re-check their
// condition and re-call Notify after each close, since a completion
// may not free enough capacity on its own.
func (t *Tracker) Notify() <-chan struct{} {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.notifyCh
}

// trimLocked drops samples older than throughputWindow, but always
// keeps the most recent failureRateWindow samples; caller must hold t.mu.
func (t *Tracker) trimLocked(now time.Time) {
	cutoff := now.Add(-throughputWindow)
	i := 0
	for i < len(t.samples)-failureRateWindow && t.samples[i].at.Before(cutoff) {
		i++
	}
	if i > 0 {
		t.samples = t.samples[i:]
	}
	if len(t.samples) > failureRateWindow*4 {
		// Hard cap so a long-lived, high-throughput job's sample slice
		// doesn't grow unbounded between trims.
		t.samples = t.samples[len(t.samples)-failureRateWindow*4:]
	}
}

// Counters returns a snapshot of the current counters.
func (t *Tracker) Counters() types.BatchCounters {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.counters
}

// Status is the polled progress summary (spec.md §4.7, §6.2 GET status).
type Status struct {
	Counters        types.BatchCounters `json:"counters"`
	ThroughputPerSec float64            `json:"throughput_per_sec"`
	ETA              *time.Duration     `json:"eta,omitempty"`
	ElapsedSeconds   float64            `json:"elapsed_seconds"`
}

// Status computes the current throughput and ETA from the trailing
// 60s window (spec.md §4.7).
func (t *Tracker) Status() Status {
	t.mu.RLock()
	defer t.mu.RUnlock()

	now := time.Now()
	recent := t.recentLocked(now, throughputWindow)
	throughput := float64(len(recent)) / throughputWindow.Seconds()

	completed := t.counters.Succeeded + t.counters.Failed + t.counters.Skipped
	remaining := t.counters.Total - completed
	status := Status{
		Counters:         t.counters,
		ThroughputPerSec: throughput,
		ElapsedSeconds:   now.Sub(t.startedAt).Seconds(),
	}
	if throughput > 0 && remaining > 0 {
		eta := time.Duration(float64(remaining)/throughput) * time.Second
		status.ETA = &eta
	}
	return status
}

func (t *Tracker) recentLocked(now time.Time, window time.Duration) []sample {
	cutoff := now.Add(-window)
	var out []sample
	for _, s := range t.samples {
		if !s.at.Before(cutoff) {
			out = append(out, s)
		}
	}
	return out
}

// Health reports whether the job should be considered stuck or
// unhealthy (spec.md §4.7: "unhealthy if no progress for >2 minutes
// while RUNNING, or failure rate >0.25 over the trailing 100 items").
type Health struct {
	Healthy     bool    `json:"healthy"`
	Reason      string  `json:"reason,omitempty"`
	FailureRate float64 `json:"failure_rate"`
	Idle        time.Duration `json:"idle"`
}

// NoProgressThreshold is the stall detector's idle cutoff.
const NoProgressThreshold = 2 * time.Minute

// MaxFailureRate is the rolling failure-rate cutoff over the trailing
// window.
const MaxFailureRate = 0.25

// CheckHealth evaluates health assuming the job is currently RUNNING;
// callers in other states should not call this (a PENDING job has no
// progress yet by definition, and a terminal job's health is moot).
func (t *Tracker) CheckHealth() Health {
	t.mu.RLock()
	defer t.mu.RUnlock()

	idle := time.Since(t.lastProgress)
	failureRate := t.failureRateLocked()

	if idle > NoProgressThreshold {
		return Health{Healthy: false, Reason: "no progress for over 2 minutes", FailureRate: failureRate, Idle: idle}
	}
	if failureRate > MaxFailureRate {
		return Health{Healthy: false, Reason: "failure rate exceeds 25% over trailing items", FailureRate: failureRate, Idle: idle}
	}
	return Health{Healthy: true, FailureRate: failureRate, Idle: idle}
}

func (t *Tracker) failureRateLocked() float64 {
	n := len(t.samples)
	if n == 0 {
		return 0
	}
	start := 0
	if n > failureRateWindow {
		start = n - failureRateWindow
	}
	window := t.samples[start:]
	var failed int
	for _, s := range window {
		if s.outcome == "failed" {
			failed++
		}
	}
	return float64(failed) / float64(len(window))
}

// Registry tracks Trackers by job id, used by the batch coordinator to
// publish per-job status without threading a Tracker reference through
// every component (spec.md §4.7: tracker is queried by job id).
type Registry struct {
	mu       sync.RWMutex
	trackers map[string]*Tracker
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{trackers: make(map[string]*Tracker)}
}

// Start registers a new Tracker for jobID and returns it.
func (r *Registry) Start(jobID string, total int64) *Tracker {
	t := New(jobID, total)
	r.mu.Lock()
	r.trackers[jobID] = t
	r.mu.Unlock()
	return t
}

// Get returns the Tracker for jobID, if any.
func (r *Registry) Get(jobID string) (*Tracker, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.trackers[jobID]
	return t, ok
}

// Remove drops jobID's tracker once the job reaches a terminal state.
func (r *Registry) Remove(jobID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.trackers, jobID)
}
