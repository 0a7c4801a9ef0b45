// Package optimizer implements the Batch Optimizer (spec.md §4.8): a
// fixed policy over per-wave throughput/failure-rate observations that
// proposes the next wave's (batch_size, concurrency), plus an
// in-memory decision history for auditability.
package optimizer

import (
	"sync"
	"time"

	"github.com/govbizai/matchcore/pkg/types"
)

// FailureRateHighThreshold triggers a halve-back when exceeded for two
// consecutive waves (spec.md §4.8).
const FailureRateHighThreshold = 0.05

// FailureRateLowThreshold allows scaling up when throughput hasn't
// plateaued (spec.md §4.8).
const FailureRateLowThreshold = 0.01

// PlateauTolerance is the window within which throughput is considered
// unchanged relative to the prior two waves (spec.md §4.8: "within 5%
// of two prior waves").
const PlateauTolerance = 0.05

// WaveObservation is one completed wave's measured outcome.
type WaveObservation struct {
	TenantID    string
	Timestamp   time.Time
	BatchSize   int
	Concurrency int
	Throughput  float64
	FailureRate float64
}

// Optimizer proposes the next wave's (batch_size, concurrency) from a
// rolling history of wave observations, per tenant.
type Optimizer struct {
	cfg types.Config

	mu      sync.Mutex
	history map[string][]WaveObservation // tenantID -> waves, oldest first
	decisions map[string][]types.WaveDecision
}

// New builds an Optimizer bounded by cfg's batch-size/concurrency
// floors and ceilings.
func New(cfg types.Config) *Optimizer {
	return &Optimizer{
		cfg:       cfg,
		history:   make(map[string][]WaveObservation),
		decisions: make(map[string][]types.WaveDecision),
	}
}

// historyDepth bounds how many waves are retained per tenant; only the
// three most recent are ever consulted by the policy (two for the
// failure-rate rule, three for the plateau check), but a few extra are
// kept for operator visibility.
const historyDepth = 20

// Observe records a completed wave and returns the decision for the
// next wave (spec.md §4.8's three-way policy).
func (o *Optimizer) Observe(obs WaveObservation) types.WaveDecision {
	o.mu.Lock()
	defer o.mu.Unlock()

	waves := append(o.history[obs.TenantID], obs)
	if len(waves) > historyDepth {
		waves = waves[len(waves)-historyDepth:]
	}
	o.history[obs.TenantID] = waves

	decision := o.decideLocked(obs.TenantID, waves)
	o.decisions[obs.TenantID] = append(o.decisions[obs.TenantID], decision)
	if len(o.decisions[obs.TenantID]) > historyDepth {
		o.decisions[obs.TenantID] = o.decisions[obs.TenantID][len(o.decisions[obs.TenantID])-historyDepth:]
	}
	return decision
}

func (o *Optimizer) decideLocked(tenantID string, waves []WaveObservation) types.WaveDecision {
	latest := waves[len(waves)-1]
	decision := types.WaveDecision{
		TenantID:    tenantID,
		Timestamp:   latest.Timestamp,
		BatchSize:   latest.BatchSize,
		Concurrency: latest.Concurrency,
		Throughput:  latest.Throughput,
		FailureRate: latest.FailureRate,
	}

	if twoConsecutiveHighFailure(waves) {
		decision.Concurrency = clamp(halveDown(latest.Concurrency), o.cfg.ConcurrencyMin, o.cfg.ConcurrencyMax)
		decision.BatchSize = clamp(reduceByQuarter(latest.BatchSize), o.cfg.BatchSizeMin, o.cfg.BatchSizeMax)
		decision.Reason = "failure rate exceeded 5% for two consecutive waves; scaling down"
		return decision
	}

	if latest.FailureRate < FailureRateLowThreshold && !throughputPlateaued(waves) {
		decision.Concurrency = clamp(increaseByQuarter(latest.Concurrency), o.cfg.ConcurrencyMin, o.cfg.ConcurrencyMax)
		decision.BatchSize = clamp(increaseByQuarter(latest.BatchSize), o.cfg.BatchSizeMin, o.cfg.BatchSizeMax)
		decision.Reason = "failure rate under 1% and throughput still improving; scaling up"
		return decision
	}

	decision.Reason = "holding steady"
	return decision
}

func twoConsecutiveHighFailure(waves []WaveObservation) bool {
	if len(waves) < 2 {
		return false
	}
	last := waves[len(waves)-1]
	prev := waves[len(waves)-2]
	return last.FailureRate > FailureRateHighThreshold && prev.FailureRate > FailureRateHighThreshold
}

// throughputPlateaued reports whether the latest wave's throughput is
// within PlateauTolerance of each of the two prior waves. Fewer than
// three waves of history means there isn't enough signal to call it
// plateaued, so it reports false (allow scaling up).
func throughputPlateaued(waves []WaveObservation) bool {
	if len(waves) < 3 {
		return false
	}
	latest := waves[len(waves)-1].Throughput
	for _, w := range waves[len(waves)-3 : len(waves)-1] {
		if w.Throughput == 0 {
			continue
		}
		delta := (latest - w.Throughput) / w.Throughput
		if delta < 0 {
			delta = -delta
		}
		if delta > PlateauTolerance {
			return false
		}
	}
	return true
}

func halveDown(v int) int {
	return v / 2
}

func reduceByQuarter(v int) int {
	return v - v/4
}

func increaseByQuarter(v int) int {
	increased := v + v/4
	if increased == v {
		increased = v + 1 // guarantee forward progress for small values
	}
	return increased
}

func clamp(v, min, max int) int {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

// History returns tenantID's retained decisions, oldest first
// (spec.md §4.8: "recorded to an optimization history keyed by
// (tenant_id, timestamp) for auditability").
func (o *Optimizer) History(tenantID string) []types.WaveDecision {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]types.WaveDecision, len(o.decisions[tenantID]))
	copy(out, o.decisions[tenantID])
	return out
}
