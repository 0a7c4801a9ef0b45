// Package store implements the persisted-state external adapters
// (spec.md §4.10, §6.3): the opportunity catalog, the company profile
// store, the matches store, the batch-job key-value store and the
// schedule store. Postgres-backed implementations are grounded on the
// teacher's internal/db schema/migration conventions and
// internal/audit/postgres_store.go's query style; in-memory fakes
// cover the same interfaces for tests and for the batch coordinator's
// default test wiring.
package store

import (
	"context"
	"time"

	"github.com/govbizai/matchcore/pkg/types"
)

// ScanFilter narrows the candidate set read from the opportunity
// catalog (spec.md §6.2 opportunity_filters).
type ScanFilter struct {
	NAICSPrefix       []string
	PostedAfter       *time.Time
	SetAsideIn        []string
	States            []string
	ExcludeArchived   bool
	ArchivedAsOf      time.Time
}

// OpportunityCatalog is the C10 opportunity catalog adapter:
// scan(filter) -> stream<Opportunity>, get(id) -> Opportunity.
type OpportunityCatalog interface {
	// Scan returns opportunities matching filter. Implementations may
	// paginate internally; callers should treat the result as
	// potentially large and avoid holding it all in memory when a
	// streaming variant is available (ScanFunc).
	Scan(ctx context.Context, filter ScanFilter) ([]*types.Opportunity, error)

	// ScanFunc streams matching opportunities to fn, short-circuiting
	// if fn returns an error. This is the paginated form spec.md §4.10
	// describes ("scan(filter) -> stream<Opportunity>, paginated, may
	// be large").
	ScanFunc(ctx context.Context, filter ScanFilter, pageSize int, fn func(*types.Opportunity) error) error

	Get(ctx context.Context, noticeID string) (*types.Opportunity, error)
}

// CompanyStore is the C10 company store adapter: get(company_id).
type CompanyStore interface {
	Get(ctx context.Context, companyID string) (*types.CompanyProfile, error)
}

// MatchOrder selects the sort applied by MatchesStore.Query.
type MatchOrder int

const (
	// OrderByScoreDesc matches the secondary index on
	// (company_id, total_score DESC) from spec.md §6.3.
	OrderByScoreDesc MatchOrder = iota
)

// MatchesStore is the C10 matches store adapter: put, query, delete.
type MatchesStore interface {
	Put(ctx context.Context, result *types.MatchResult) error
	Query(ctx context.Context, companyID string, limit int, order MatchOrder) ([]*types.MatchResult, error)

	// Delete bulk-deletes every MatchResult for companyID, used by the
	// batch coordinator's force_refresh path (spec.md §4.6 step 2),
	// which is distinct from clearing fingerprint cache entries.
	Delete(ctx context.Context, companyID string) error
}

// JobStore is the C10 key-value-for-jobs adapter: upsert, get,
// conditional update for state transitions.
type JobStore interface {
	Upsert(ctx context.Context, job *types.BatchJob) error
	Get(ctx context.Context, jobID string) (*types.BatchJob, error)

	// CompareAndTransition applies update to jobID's record only if its
	// current state equals expected, per spec.md §5: "BatchJob record:
	// state transitions use conditional updates (state == RUNNING ->
	// COMPLETED only if counters consistent)". Returns false (no error)
	// if the CAS did not apply because the stored state had already
	// moved on.
	CompareAndTransition(ctx context.Context, jobID string, expected types.BatchState, update func(*types.BatchJob)) (bool, error)

	// ListByOwner returns jobs for owner ordered by created_at DESC,
	// backing the secondary index in spec.md §6.3.
	ListByOwner(ctx context.Context, owner string, limit int) ([]*types.BatchJob, error)
}

// ScheduleStore is the C10/C9 schedule persistence adapter, primary
// key schedule_name (spec.md §6.3).
type ScheduleStore interface {
	Upsert(ctx context.Context, entry *types.ScheduleEntry) error
	Get(ctx context.Context, name string) (*types.ScheduleEntry, error)
	Delete(ctx context.Context, name string) error
	List(ctx context.Context) ([]*types.ScheduleEntry, error)
}
