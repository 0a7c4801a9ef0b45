// Package batch implements the Batch Coordinator (spec.md §4.6): it
// resolves a candidate opportunity set from the catalog, creates a
// BatchJob, partitions the candidate set into bounded work units,
// enqueues them, and runs a worker pool that scores each item through
// the Match Orchestrator, persists results, and drives the Progress
// Tracker and Batch Optimizer.
//
// The queue-consumer/worker-pool shape is grounded on teacher
// internal/embedding/worker.go (buffered job channel, fixed worker
// goroutines, Stats snapshot); retry/backoff and circuit breaking are
// new here (retry.go) but reuse the teacher's gobreaker wiring style.
package batch

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/govbizai/matchcore/internal/metrics"
	"github.com/govbizai/matchcore/internal/optimizer"
	"github.com/govbizai/matchcore/internal/orchestrator"
	"github.com/govbizai/matchcore/internal/queue"
	"github.com/govbizai/matchcore/internal/store"
	"github.com/govbizai/matchcore/internal/tracker"
	"github.com/govbizai/matchcore/internal/weights"
	"github.com/govbizai/matchcore/pkg/types"
	"go.uber.org/zap"
)

// Dependencies wires the Batch Coordinator to the rest of the system.
type Dependencies struct {
	Catalog      store.OpportunityCatalog
	Companies    store.CompanyStore
	Matches      store.MatchesStore
	Jobs         store.JobStore
	Queue        queue.Queue
	Orchestrator *orchestrator.Orchestrator
	Weights      *weights.Resolver
	Tracker      *tracker.Registry
	Optimizer    *optimizer.Optimizer
	Metrics      metrics.Metrics
	Logger       *zap.Logger
	Config       types.Config
}

// Coordinator is the Batch Coordinator (C6).
type Coordinator struct {
	deps Dependencies
}

// New builds a Coordinator, defaulting any unset optional dependency.
func New(deps Dependencies) *Coordinator {
	if deps.Tracker == nil {
		deps.Tracker = tracker.NewRegistry()
	}
	if deps.Optimizer == nil {
		deps.Optimizer = optimizer.New(deps.Config)
	}
	if deps.Metrics == nil {
		deps.Metrics = metrics.NewNoOpMetrics()
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	return &Coordinator{deps: deps}
}

// Submit resolves req's candidate set, creates a BatchJob, and
// enqueues its partitions (spec.md §4.6 steps 1-4), pacing the
// enqueue loop against the in-flight ceiling of step 8.
func (c *Coordinator) Submit(ctx context.Context, req types.BatchRequest) (*types.BatchJob, error) {
	if req.ForceRefresh {
		if err := c.deps.Matches.Delete(ctx, req.CompanyID); err != nil {
			c.deps.Logger.Warn("batch: force_refresh delete failed, continuing", zap.Error(err))
		}
	}

	ids, err := c.resolveCandidates(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("batch: resolve candidate set: %w", err)
	}

	batchSize := clampBatchSize(req.BatchSize, c.deps.Config)
	concurrency := c.deps.Config.BatchConcurrencyDefault
	if concurrency <= 0 {
		concurrency = 8
	}

	job := &types.BatchJob{
		JobID: uuid.NewString(),
		Owner: req.CompanyID,
		State: types.BatchPending,
		Counters: types.BatchCounters{
			Total: int64(len(ids)),
		},
		Config: types.BatchConfig{
			BatchSize:    batchSize,
			Concurrency:  concurrency,
			Filters:      req.OpportunityFilters,
			ForceRefresh: req.ForceRefresh,
		},
	}
	if err := c.deps.Jobs.Upsert(ctx, job); err != nil {
		return nil, fmt.Errorf("batch: create job: %w", err)
	}
	t := c.deps.Tracker.Start(job.JobID, job.Counters.Total)

	if len(ids) == 0 {
		if _, err := c.deps.Jobs.CompareAndTransition(ctx, job.JobID, types.BatchPending, func(j *types.BatchJob) {
			j.State = types.BatchCompleted
			j.StartedAt = time.Now()
			j.EndedAt = time.Now()
		}); err != nil {
			return nil, err
		}
		return job, nil
	}

	ceiling := int64(concurrency * backpressureMultiplier)
	for _, partition := range partitionIDs(ids, batchSize) {
		if err := c.awaitCapacity(ctx, t, ceiling); err != nil {
			return nil, fmt.Errorf("batch: await enqueue capacity: %w", err)
		}
		t.Submit(int64(len(partition)))
		if err := c.deps.Queue.Enqueue(ctx, queue.Message{JobID: job.JobID, OpportunityIDs: partition}); err != nil {
			return nil, fmt.Errorf("batch: enqueue partition: %w", err)
		}
	}

	if _, err := c.deps.Jobs.CompareAndTransition(ctx, job.JobID, types.BatchPending, func(j *types.BatchJob) {
		j.State = types.BatchRunning
		j.StartedAt = time.Now()
	}); err != nil {
		return nil, err
	}
	return job, nil
}

// Cancel marks jobID CANCELLED. In-flight items finish; queued items
// are skipped when dequeued (spec.md §5: "cancellation: in-flight
// items complete, queued items are skipped").
func (c *Coordinator) Cancel(ctx context.Context, jobID string) error {
	_, err := c.deps.Jobs.CompareAndTransition(ctx, jobID, types.BatchRunning, func(j *types.BatchJob) {
		j.State = types.BatchCancelled
		j.EndedAt = time.Now()
	})
	return err
}

// Status returns jobID's current counters/throughput/ETA from its
// Tracker (spec.md §6.2 GET status), falling back to the persisted job
// record's last-known counters if no live Tracker remains (e.g. after
// a process restart).
func (c *Coordinator) Status(ctx context.Context, jobID string) (tracker.Status, error) {
	if t, ok := c.deps.Tracker.Get(jobID); ok {
		return t.Status(), nil
	}
	job, err := c.deps.Jobs.Get(ctx, jobID)
	if err != nil {
		return tracker.Status{}, err
	}
	return tracker.Status{Counters: job.Counters}, nil
}

func (c *Coordinator) resolveCandidates(ctx context.Context, req types.BatchRequest) ([]string, error) {
	filter := store.ScanFilter{
		NAICSPrefix:     req.OpportunityFilters.NAICSPrefix,
		PostedAfter:     req.OpportunityFilters.PostedAfter,
		SetAsideIn:      req.OpportunityFilters.SetAsideIn,
		States:          req.OpportunityFilters.States,
		ExcludeArchived: true,
		ArchivedAsOf:    time.Now(),
	}

	var ids []string
	err := c.deps.Catalog.ScanFunc(ctx, filter, 500, func(opp *types.Opportunity) error {
		ids = append(ids, opp.NoticeID)
		return nil
	})
	return ids, err
}

// awaitCapacity blocks until t's in-flight count is below ceiling,
// re-checking on every Tracker completion signal (spec.md §4.6 step 8:
// "the coordinator never enqueues beyond a configured in-flight
// ceiling ... it waits on a signal from the Tracker").
func (c *Coordinator) awaitCapacity(ctx context.Context, t *tracker.Tracker, ceiling int64) error {
	for {
		if t.Counters().InFlight < ceiling {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.Notify():
		}
	}
}

func clampBatchSize(requested int, cfg types.Config) int {
	size := requested
	if size <= 0 {
		size = cfg.BatchSizeDefault
	}
	if size < cfg.BatchSizeMin {
		size = cfg.BatchSizeMin
	}
	if size > cfg.BatchSizeMax {
		size = cfg.BatchSizeMax
	}
	return size
}

func partitionIDs(ids []string, size int) [][]string {
	if size <= 0 {
		size = len(ids)
	}
	var out [][]string
	for i := 0; i < len(ids); i += size {
		end := i + size
		if end > len(ids) {
			end = len(ids)
		}
		out = append(out, ids[i:end])
	}
	return out
}
