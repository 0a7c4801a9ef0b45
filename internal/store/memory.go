package store

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/govbizai/matchcore/pkg/types"
)

// MemoryCatalog is an in-memory OpportunityCatalog fake for tests.
type MemoryCatalog struct {
	mu   sync.RWMutex
	byID map[string]*types.Opportunity
}

// NewMemoryCatalog returns an empty in-memory catalog.
func NewMemoryCatalog() *MemoryCatalog {
	return &MemoryCatalog{byID: make(map[string]*types.Opportunity)}
}

// Put installs or replaces an opportunity (test setup helper).
func (c *MemoryCatalog) Put(o *types.Opportunity) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.byID[o.NoticeID] = o
}

func (c *MemoryCatalog) matches(o *types.Opportunity, filter ScanFilter) bool {
	if len(filter.NAICSPrefix) > 0 {
		ok := false
		for _, p := range filter.NAICSPrefix {
			if strings.HasPrefix(o.NAICSCode, p) {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}
	if filter.PostedAfter != nil && !o.PostedDate.After(*filter.PostedAfter) {
		return false
	}
	if len(filter.SetAsideIn) > 0 {
		ok := false
		for _, sa := range filter.SetAsideIn {
			if strings.EqualFold(sa, o.SetAside) {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}
	if len(filter.States) > 0 {
		ok := false
		for _, st := range filter.States {
			if strings.EqualFold(st, o.PlaceOfPerformance.State) {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}
	if filter.ExcludeArchived {
		asOf := filter.ArchivedAsOf
		if asOf.IsZero() {
			asOf = time.Now().UTC()
		}
		if o.IsArchived(asOf) {
			return false
		}
	}
	return true
}

// Scan implements OpportunityCatalog.
func (c *MemoryCatalog) Scan(ctx context.Context, filter ScanFilter) ([]*types.Opportunity, error) {
	var out []*types.Opportunity
	err := c.ScanFunc(ctx, filter, 0, func(o *types.Opportunity) error {
		out = append(out, o)
		return nil
	})
	return out, err
}

// ScanFunc implements OpportunityCatalog's streaming form; pageSize is
// accepted for interface parity but the whole in-memory set is small
// enough to iterate in one pass.
func (c *MemoryCatalog) ScanFunc(ctx context.Context, filter ScanFilter, pageSize int, fn func(*types.Opportunity) error) error {
	c.mu.RLock()
	ids := make([]string, 0, len(c.byID))
	for id := range c.byID {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	snapshot := make([]*types.Opportunity, 0, len(ids))
	for _, id := range ids {
		snapshot = append(snapshot, c.byID[id])
	}
	c.mu.RUnlock()

	for _, o := range snapshot {
		if !c.matches(o, filter) {
			continue
		}
		if err := fn(o); err != nil {
			return err
		}
	}
	return nil
}

// Get implements OpportunityCatalog.
func (c *MemoryCatalog) Get(ctx context.Context, noticeID string) (*types.Opportunity, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	o, ok := c.byID[noticeID]
	if !ok {
		return nil, fmt.Errorf("store: opportunity %q not found", noticeID)
	}
	return o, nil
}

// MemoryCompanyStore is an in-memory CompanyStore fake.
type MemoryCompanyStore struct {
	mu   sync.RWMutex
	byID map[string]*types.CompanyProfile
}

// NewMemoryCompanyStore returns an empty in-memory company store.
func NewMemoryCompanyStore() *MemoryCompanyStore {
	return &MemoryCompanyStore{byID: make(map[string]*types.CompanyProfile)}
}

// Put installs or replaces a company profile.
func (s *MemoryCompanyStore) Put(c *types.CompanyProfile) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byID[c.CompanyID] = c
}

// Get implements CompanyStore.
func (s *MemoryCompanyStore) Get(ctx context.Context, companyID string) (*types.CompanyProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.byID[companyID]
	if !ok {
		return nil, fmt.Errorf("store: company %q not found", companyID)
	}
	return c, nil
}

// MemoryMatchesStore is an in-memory MatchesStore fake.
type MemoryMatchesStore struct {
	mu      sync.RWMutex
	results map[string]*types.MatchResult // "companyID|opportunityID" -> result
}

// NewMemoryMatchesStore returns an empty in-memory matches store.
func NewMemoryMatchesStore() *MemoryMatchesStore {
	return &MemoryMatchesStore{results: make(map[string]*types.MatchResult)}
}

func matchKey(companyID, opportunityID string) string {
	return companyID + "|" + opportunityID
}

// Put implements MatchesStore.
func (s *MemoryMatchesStore) Put(ctx context.Context, r *types.MatchResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *r
	s.results[matchKey(r.CompanyID, r.OpportunityID)] = &cp
	return nil
}

// Query implements MatchesStore.
func (s *MemoryMatchesStore) Query(ctx context.Context, companyID string, limit int, order MatchOrder) ([]*types.MatchResult, error) {
	s.mu.RLock()
	var matches []*types.MatchResult
	for _, r := range s.results {
		if r.CompanyID == companyID {
			matches = append(matches, r)
		}
	}
	s.mu.RUnlock()

	sort.Slice(matches, func(i, j int) bool { return matches[i].TotalScore > matches[j].TotalScore })
	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}
	return matches, nil
}

// Delete implements MatchesStore.
func (s *MemoryMatchesStore) Delete(ctx context.Context, companyID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, r := range s.results {
		if r.CompanyID == companyID {
			delete(s.results, k)
		}
	}
	return nil
}

// Count reports how many results are stored for companyID (test helper).
func (s *MemoryMatchesStore) Count(companyID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, r := range s.results {
		if r.CompanyID == companyID {
			n++
		}
	}
	return n
}

// MemoryJobStore is an in-memory JobStore fake.
type MemoryJobStore struct {
	mu   sync.Mutex
	jobs map[string]*types.BatchJob
}

// NewMemoryJobStore returns an empty in-memory job store.
func NewMemoryJobStore() *MemoryJobStore {
	return &MemoryJobStore{jobs: make(map[string]*types.BatchJob)}
}

// Upsert implements JobStore.
func (s *MemoryJobStore) Upsert(ctx context.Context, job *types.BatchJob) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *job
	s.jobs[job.JobID] = &cp
	return nil
}

// Get implements JobStore.
func (s *MemoryJobStore) Get(ctx context.Context, jobID string) (*types.BatchJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[jobID]
	if !ok {
		return nil, fmt.Errorf("store: job %q not found", jobID)
	}
	cp := *job
	return &cp, nil
}

// CompareAndTransition implements JobStore's conditional update,
// serialized by a single mutex (the in-memory equivalent of the
// Postgres adapter's row-level SELECT ... FOR UPDATE).
func (s *MemoryJobStore) CompareAndTransition(ctx context.Context, jobID string, expected types.BatchState, update func(*types.BatchJob)) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[jobID]
	if !ok || job.State != expected {
		return false, nil
	}
	update(job)
	return true, nil
}

// ListByOwner implements JobStore. types.BatchJob carries no creation
// time, so the fake orders by StartedAt DESC instead of created_at.
func (s *MemoryJobStore) ListByOwner(ctx context.Context, owner string, limit int) ([]*types.BatchJob, error) {
	s.mu.Lock()
	var jobs []*types.BatchJob
	for _, j := range s.jobs {
		if j.Owner == owner {
			cp := *j
			jobs = append(jobs, &cp)
		}
	}
	s.mu.Unlock()

	sort.Slice(jobs, func(i, j int) bool { return jobs[i].StartedAt.After(jobs[j].StartedAt) })
	if limit > 0 && len(jobs) > limit {
		jobs = jobs[:limit]
	}
	return jobs, nil
}

// MemoryScheduleStore is an in-memory ScheduleStore fake.
type MemoryScheduleStore struct {
	mu      sync.RWMutex
	entries map[string]*types.ScheduleEntry
}

// NewMemoryScheduleStore returns an empty in-memory schedule store.
func NewMemoryScheduleStore() *MemoryScheduleStore {
	return &MemoryScheduleStore{entries: make(map[string]*types.ScheduleEntry)}
}

// Upsert implements ScheduleStore.
func (s *MemoryScheduleStore) Upsert(ctx context.Context, e *types.ScheduleEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *e
	s.entries[e.Name] = &cp
	return nil
}

// Get implements ScheduleStore.
func (s *MemoryScheduleStore) Get(ctx context.Context, name string) (*types.ScheduleEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[name]
	if !ok {
		return nil, fmt.Errorf("store: schedule %q not found", name)
	}
	cp := *e
	return &cp, nil
}

// Delete implements ScheduleStore.
func (s *MemoryScheduleStore) Delete(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, name)
	return nil
}

// List implements ScheduleStore.
func (s *MemoryScheduleStore) List(ctx context.Context) ([]*types.ScheduleEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.entries))
	for n := range s.entries {
		names = append(names, n)
	}
	sort.Strings(names)

	out := make([]*types.ScheduleEntry, 0, len(names))
	for _, n := range names {
		cp := *s.entries[n]
		out = append(out, &cp)
	}
	return out, nil
}
