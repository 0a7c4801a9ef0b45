package batch

import (
	"context"
	"sync"
	"time"

	"github.com/govbizai/matchcore/internal/optimizer"
	"github.com/govbizai/matchcore/internal/queue"
	"github.com/govbizai/matchcore/internal/tracker"
	"github.com/govbizai/matchcore/pkg/types"
	"go.uber.org/zap"
)

// visibilityTimeout is how long a dequeued partition stays invisible
// to other consumers while being processed.
const visibilityTimeout = 5 * time.Minute

// backpressureMultiplier is the "4x concurrency" ceiling from spec.md
// §4.6 step 8. It sizes both the Worker's local dequeue semaphore
// below (bounding concurrent goroutines per Run call) and, via
// Coordinator.awaitCapacity, the in-flight ceiling the Coordinator
// enqueues against -- the same multiplier, two enforcement points.
const backpressureMultiplier = 4

// Worker drains the work queue and scores each partition's
// opportunities through the Match Orchestrator (spec.md §4.6 step 5).
type Worker struct {
	deps Dependencies

	retryer *Retryer
}

// NewWorker builds a Worker over the same Dependencies as its
// Coordinator.
func NewWorker(deps Dependencies) *Worker {
	return &Worker{
		deps:    deps,
		retryer: NewRetryer("batch-worker"),
	}
}

// Run drains the queue until ctx is cancelled, processing up to
// concurrency partitions at once.
func (w *Worker) Run(ctx context.Context, concurrency int) {
	if concurrency <= 0 {
		concurrency = 4
	}
	sem := make(chan struct{}, concurrency*backpressureMultiplier)

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		msgs, err := w.deps.Queue.Dequeue(ctx, concurrency, visibilityTimeout)
		if err != nil {
			w.deps.Logger.Warn("batch: dequeue failed", zap.Error(err))
			time.Sleep(time.Second)
			continue
		}
		if len(msgs) == 0 {
			select {
			case <-ctx.Done():
				return
			case <-time.After(200 * time.Millisecond):
			}
			continue
		}

		var wg sync.WaitGroup
		for _, msg := range msgs {
			msg := msg
			sem <- struct{}{}
			wg.Add(1)
			go func() {
				defer wg.Done()
				defer func() { <-sem }()
				w.processMessage(ctx, msg)
			}()
		}
		wg.Wait()
	}
}

func (w *Worker) processMessage(ctx context.Context, msg queue.Message) {
	job, err := w.deps.Jobs.Get(ctx, msg.JobID)
	if err != nil {
		w.deps.Logger.Error("batch: job lookup failed, dropping partition", zap.String("job_id", msg.JobID), zap.Error(err))
		return
	}

	if job.State == types.BatchCancelled {
		w.skipAll(ctx, job, msg)
		_ = w.deps.Queue.Delete(ctx, msg)
		return
	}

	t, ok := w.deps.Tracker.Get(msg.JobID)
	if !ok {
		// No live Tracker for this job (e.g. a process restart): the
		// Coordinator's enqueue-time Submit is lost, so recover the
		// count here rather than under-reporting submitted items.
		t = w.deps.Tracker.Start(msg.JobID, job.Counters.Total)
		t.Submit(int64(len(msg.OpportunityIDs)))
	}

	var failures int
	start := time.Now()
	for _, oppID := range msg.OpportunityIDs {
		if err := w.scoreOne(ctx, job, oppID); err != nil {
			failures++
			t.Fail()
			w.deps.Metrics.RecordBatchItem("failed")
		} else {
			t.Succeed()
			w.deps.Metrics.RecordBatchItem("succeeded")
		}
	}

	w.reportWave(job, len(msg.OpportunityIDs), failures, time.Since(start))
	_ = w.deps.Queue.Delete(ctx, msg)

	w.maybeComplete(ctx, job)
}

func (w *Worker) skipAll(ctx context.Context, job *types.BatchJob, msg queue.Message) {
	t, ok := w.deps.Tracker.Get(msg.JobID)
	if !ok {
		t = w.deps.Tracker.Start(msg.JobID, job.Counters.Total)
		t.Submit(int64(len(msg.OpportunityIDs)))
	}
	for range msg.OpportunityIDs {
		t.Skip()
		w.deps.Metrics.RecordBatchItem("skipped")
	}
}

// scoreOne fetches the opportunity/company pair, resolves weights, and
// invokes the orchestrator, retrying the fetch+match on transient
// failures (spec.md §4.6 step 6).
func (w *Worker) scoreOne(ctx context.Context, job *types.BatchJob, opportunityID string) error {
	return w.retryer.Do(ctx, func() error {
		opp, err := w.deps.Catalog.Get(ctx, opportunityID)
		if err != nil {
			return err
		}
		company, err := w.deps.Companies.Get(ctx, job.Owner)
		if err != nil {
			return err
		}

		tenantID := company.TenantID
		weights := w.deps.Weights.Resolve(tenantID)

		req := &types.MatchRequest{
			Opportunity:    *opp,
			CompanyProfile: *company,
			UseCache:       !job.Config.ForceRefresh,
			ForceRefresh:   job.Config.ForceRefresh,
		}
		result, err := w.deps.Orchestrator.Match(ctx, req, weights)
		if err != nil {
			return err
		}
		return w.deps.Matches.Put(ctx, result)
	})
}

func (w *Worker) reportWave(job *types.BatchJob, total, failures int, elapsed time.Duration) {
	if total == 0 {
		return
	}
	throughput := float64(total) / elapsed.Seconds()
	failureRate := float64(failures) / float64(total)

	decision := w.deps.Optimizer.Observe(optimizer.WaveObservation{
		TenantID:    job.Owner,
		Timestamp:   time.Now(),
		BatchSize:   job.Config.BatchSize,
		Concurrency: job.Config.Concurrency,
		Throughput:  throughput,
		FailureRate: failureRate,
	})

	job.Config.BatchSize = decision.BatchSize
	job.Config.Concurrency = decision.Concurrency
	job.OptimizerSnapshot = &decision
}

// maybeComplete transitions job to COMPLETED (or FAILED, if more than
// a quarter of submitted items failed) once its tracked counters
// account for every submitted item (spec.md §3 invariant: submitted =
// succeeded + failed + skipped + in_flight; §4.6 step 7: "transition
// to COMPLETED (or FAILED if failed/submitted > 0.25)").
func (w *Worker) maybeComplete(ctx context.Context, job *types.BatchJob) {
	t, ok := w.deps.Tracker.Get(job.JobID)
	if !ok {
		return
	}
	counters := t.Counters()
	if counters.Total == 0 || counters.InFlight > 0 {
		return
	}
	completed := counters.Succeeded + counters.Failed + counters.Skipped
	if completed < counters.Total {
		return
	}

	finalState := types.BatchCompleted
	if completed > 0 && float64(counters.Failed)/float64(completed) > tracker.MaxFailureRate {
		finalState = types.BatchFailed
	}

	_, err := w.deps.Jobs.CompareAndTransition(ctx, job.JobID, types.BatchRunning, func(j *types.BatchJob) {
		j.State = finalState
		j.EndedAt = time.Now()
		j.Counters = counters
		j.OptimizerSnapshot = job.OptimizerSnapshot
	})
	if err != nil {
		w.deps.Logger.Warn("batch: completion transition failed", zap.String("job_id", job.JobID), zap.Error(err))
		return
	}
	w.deps.Tracker.Remove(job.JobID)
}

