package types

import "time"

// BatchState is the lifecycle state of a BatchJob (spec.md §3).
type BatchState string

const (
	BatchPending   BatchState = "PENDING"
	BatchRunning   BatchState = "RUNNING"
	BatchCompleted BatchState = "COMPLETED"
	BatchFailed    BatchState = "FAILED"
	BatchCancelled BatchState = "CANCELLED"
)

// BatchCounters tracks per-job progress. Invariant (spec.md §3):
// Submitted = Succeeded + Failed + Skipped + InFlight at all times.
type BatchCounters struct {
	Total     int64 `json:"total"`
	Submitted int64 `json:"submitted"`
	Succeeded int64 `json:"succeeded"`
	Failed    int64 `json:"failed"`
	Skipped   int64 `json:"skipped"`
	InFlight  int64 `json:"in_flight"`
}

// OpportunityFilters narrows the candidate set scanned from the
// catalog (spec.md §6.2).
type OpportunityFilters struct {
	NAICSPrefix []string   `json:"naics_prefix,omitempty"`
	PostedAfter *time.Time `json:"posted_after,omitempty"`
	SetAsideIn  []string   `json:"set_aside_in,omitempty"`
	States      []string   `json:"states,omitempty"`
}

// BatchConfig is the per-job configuration snapshot (spec.md §3, §6.2).
type BatchConfig struct {
	BatchSize    int                `json:"batch_size"`
	Concurrency  int                `json:"concurrency"`
	Filters      OpportunityFilters `json:"filters"`
	ForceRefresh bool               `json:"force_refresh"`
}

// BatchJob is a unit of work scoring a candidate set for one owner
// (spec.md §3).
type BatchJob struct {
	JobID     string        `json:"job_id"`
	Owner     string        `json:"owner"` // company_id or tenant_id
	State     BatchState    `json:"state"`
	Counters  BatchCounters `json:"counters"`
	StartedAt time.Time     `json:"started_at,omitempty"`
	EndedAt   time.Time     `json:"ended_at,omitempty"`
	Config    BatchConfig   `json:"config"`
	LastError string        `json:"last_error,omitempty"`

	// OptimizerSnapshot records the (batch_size, concurrency) the
	// optimizer proposed for this job's next wave, for auditability.
	OptimizerSnapshot *WaveDecision `json:"optimizer_snapshot,omitempty"`
}

// WaveDecision is one Batch Optimizer proposal (spec.md §4.8).
type WaveDecision struct {
	TenantID    string    `json:"tenant_id"`
	Timestamp   time.Time `json:"timestamp"`
	BatchSize   int       `json:"batch_size"`
	Concurrency int       `json:"concurrency"`
	Throughput  float64   `json:"throughput"`
	FailureRate float64   `json:"failure_rate"`
	Reason      string    `json:"reason"`
}

// BatchRequest is the asynchronous batch request (spec.md §6.2).
type BatchRequest struct {
	CompanyID          string             `json:"company_id"`
	OpportunityFilters OpportunityFilters `json:"opportunity_filters"`
	BatchSize          int                `json:"batch_size,omitempty"`
	ForceRefresh       bool               `json:"force_refresh,omitempty"`
}

// Consistent reports whether the batch counters satisfy the spec.md §3
// accounting invariant.
func (c BatchCounters) Consistent() bool {
	return c.Submitted == c.Succeeded+c.Failed+c.Skipped+c.InFlight
}
