package optimizer

import (
	"testing"
	"time"

	"github.com/govbizai/matchcore/pkg/types"
	"github.com/stretchr/testify/assert"
)

func baseObs(tenant string, batchSize, concurrency int, throughput, failureRate float64) WaveObservation {
	return WaveObservation{
		TenantID:    tenant,
		Timestamp:   time.Now(),
		BatchSize:   batchSize,
		Concurrency: concurrency,
		Throughput:  throughput,
		FailureRate: failureRate,
	}
}

func TestOptimizer_ScalesDownAfterTwoHighFailureWaves(t *testing.T) {
	o := New(types.DefaultConfig())

	o.Observe(baseObs("t1", 100, 8, 10.0, 0.10))
	decision := o.Observe(baseObs("t1", 100, 8, 9.0, 0.12))

	assert.Equal(t, 4, decision.Concurrency)
	assert.Equal(t, 75, decision.BatchSize)
	assert.Contains(t, decision.Reason, "scaling down")
}

func TestOptimizer_HoldsAfterSingleHighFailureWave(t *testing.T) {
	o := New(types.DefaultConfig())

	decision := o.Observe(baseObs("t1", 100, 8, 10.0, 0.10))
	assert.Equal(t, 8, decision.Concurrency)
	assert.Equal(t, 100, decision.BatchSize)
}

func TestOptimizer_ScalesUpWhenNotPlateaued(t *testing.T) {
	o := New(types.DefaultConfig())

	o.Observe(baseObs("t1", 100, 8, 10.0, 0.001))
	o.Observe(baseObs("t1", 100, 8, 20.0, 0.001))
	decision := o.Observe(baseObs("t1", 100, 8, 40.0, 0.001))

	assert.Equal(t, 10, decision.Concurrency)
	assert.Equal(t, 125, decision.BatchSize)
	assert.Contains(t, decision.Reason, "scaling up")
}

func TestOptimizer_HoldsWhenPlateaued(t *testing.T) {
	o := New(types.DefaultConfig())

	o.Observe(baseObs("t1", 100, 8, 10.0, 0.001))
	o.Observe(baseObs("t1", 100, 8, 10.2, 0.001))
	decision := o.Observe(baseObs("t1", 100, 8, 10.1, 0.001))

	assert.Equal(t, "holding steady", decision.Reason)
	assert.Equal(t, 8, decision.Concurrency)
}

func TestOptimizer_RespectsConcurrencyAndBatchSizeBounds(t *testing.T) {
	cfg := types.DefaultConfig()
	cfg.ConcurrencyMin = 2
	cfg.BatchSizeMin = 10
	o := New(cfg)

	o.Observe(baseObs("t1", 12, 3, 10.0, 0.10))
	decision := o.Observe(baseObs("t1", 12, 3, 9.0, 0.10))

	assert.GreaterOrEqual(t, decision.Concurrency, cfg.ConcurrencyMin)
	assert.GreaterOrEqual(t, decision.BatchSize, cfg.BatchSizeMin)
}

func TestOptimizer_HistoryTracksDecisionsPerTenant(t *testing.T) {
	o := New(types.DefaultConfig())
	o.Observe(baseObs("t1", 100, 8, 10.0, 0.001))
	o.Observe(baseObs("t1", 100, 8, 11.0, 0.001))
	o.Observe(baseObs("t2", 50, 4, 5.0, 0.001))

	assert.Len(t, o.History("t1"), 2)
	assert.Len(t, o.History("t2"), 1)
}
