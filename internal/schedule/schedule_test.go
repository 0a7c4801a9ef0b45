package schedule

import (
	"context"
	"testing"
	"time"

	"github.com/govbizai/matchcore/internal/batch"
	"github.com/govbizai/matchcore/internal/cache"
	"github.com/govbizai/matchcore/internal/matchcache"
	"github.com/govbizai/matchcore/internal/optimizer"
	"github.com/govbizai/matchcore/internal/orchestrator"
	"github.com/govbizai/matchcore/internal/queue"
	"github.com/govbizai/matchcore/internal/store"
	"github.com/govbizai/matchcore/internal/tracker"
	"github.com/govbizai/matchcore/internal/weights"
	"github.com/govbizai/matchcore/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager(t *testing.T) (*Manager, store.ScheduleStore, *store.MemoryCatalog, *store.MemoryCompanyStore) {
	cfg := types.DefaultConfig()
	catalog := store.NewMemoryCatalog()
	companies := store.NewMemoryCompanyStore()
	matches := store.NewMemoryMatchesStore()
	jobs := store.NewMemoryJobStore()
	schedules := store.NewMemoryScheduleStore()
	q := queue.NewMemoryQueue()
	mc := matchcache.New(cache.NewLRU(1000, time.Hour), nil)
	orch := orchestrator.New(mc, cfg)
	resolver := weights.New(nil)

	coord := batch.New(batch.Dependencies{
		Catalog:      catalog,
		Companies:    companies,
		Matches:      matches,
		Jobs:         jobs,
		Queue:        q,
		Orchestrator: orch,
		Weights:      resolver,
		Tracker:      tracker.NewRegistry(),
		Optimizer:    optimizer.New(cfg),
		Config:       cfg,
	})

	mgr := New(schedules, coord, NewInMemoryLocker(), nil)
	return mgr, schedules, catalog, companies
}

func TestValidate_RejectsBothOrNeitherTrigger(t *testing.T) {
	err := Validate(&types.ScheduleEntry{Name: "s1"})
	assert.Error(t, err)

	runAt := time.Now().Add(time.Hour)
	err = Validate(&types.ScheduleEntry{Name: "s1", CronExpr: "0 0 * * *", RunAt: &runAt})
	assert.Error(t, err)
}

func TestValidate_RejectsBadCronExpression(t *testing.T) {
	err := Validate(&types.ScheduleEntry{Name: "s1", CronExpr: "not a cron expr"})
	assert.Error(t, err)
}

func TestValidate_AcceptsValidCronOrRunAt(t *testing.T) {
	assert.NoError(t, Validate(&types.ScheduleEntry{Name: "s1", CronExpr: "0 2 * * *"}))

	runAt := time.Now().Add(time.Hour)
	assert.NoError(t, Validate(&types.ScheduleEntry{Name: "s2", RunAt: &runAt}))
}

func TestManager_CreateGetListDelete(t *testing.T) {
	mgr, _, _, _ := newTestManager(t)
	ctx := context.Background()

	entry := &types.ScheduleEntry{Name: "nightly", CronExpr: "0 2 * * *", Enabled: true}
	require.NoError(t, mgr.Create(ctx, entry))

	got, err := mgr.Get(ctx, "nightly")
	require.NoError(t, err)
	assert.Equal(t, "nightly", got.Name)
	assert.False(t, got.CreatedAt.IsZero())

	all, err := mgr.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	require.NoError(t, mgr.Delete(ctx, "nightly"))
	_, err = mgr.Get(ctx, "nightly")
	assert.Error(t, err)
}

func TestNextFire_OneShotInFutureReturnsItself(t *testing.T) {
	runAt := time.Now().Add(2 * time.Hour)
	entry := &types.ScheduleEntry{Name: "s1", RunAt: &runAt, Enabled: true}
	next := NextFire(entry, time.Now())
	assert.WithinDuration(t, runAt, next, time.Second)
}

func TestNextFire_PastOneShotNeverFiresAgain(t *testing.T) {
	runAt := time.Now().Add(-time.Hour)
	entry := &types.ScheduleEntry{Name: "s1", RunAt: &runAt, Enabled: true}
	next := NextFire(entry, time.Now())
	assert.True(t, next.IsZero())
}

func TestNextFire_DisabledNeverFires(t *testing.T) {
	entry := &types.ScheduleEntry{Name: "s1", CronExpr: "* * * * *", Enabled: false}
	next := NextFire(entry, time.Now())
	assert.True(t, next.IsZero())
}

func TestManager_TriggerSubmitsBatchJobAndRecordsRun(t *testing.T) {
	mgr, _, catalog, companies := newTestManager(t)
	ctx := context.Background()

	catalog.Put(&types.Opportunity{NoticeID: "OPP-1", Title: "IT Support", NAICSCode: "541512", PostedDate: time.Now().Add(-time.Hour)})
	companies.Put(&types.CompanyProfile{CompanyID: "COMPANY-1", TenantID: "TENANT-1", Active: true, NAICSCodes: []string{"541512"}})

	entry := &types.ScheduleEntry{
		Name:        "nightly",
		CronExpr:    "0 2 * * *",
		Enabled:     true,
		JobTemplate: types.BatchRequest{CompanyID: "COMPANY-1", BatchSize: 10},
	}
	require.NoError(t, mgr.Create(ctx, entry))

	job, err := mgr.Trigger(ctx, "nightly")
	require.NoError(t, err)
	require.NotNil(t, job)
	assert.Equal(t, "COMPANY-1", job.Owner)

	updated, err := mgr.Get(ctx, "nightly")
	require.NoError(t, err)
	assert.Equal(t, job.JobID, updated.LastJobID)
	assert.False(t, updated.LastRunAt.IsZero())
}

func TestManager_TriggerSkipsWhenLockHeld(t *testing.T) {
	mgr, schedules, catalog, companies := newTestManager(t)
	ctx := context.Background()

	catalog.Put(&types.Opportunity{NoticeID: "OPP-1", Title: "IT Support", NAICSCode: "541512", PostedDate: time.Now().Add(-time.Hour)})
	companies.Put(&types.CompanyProfile{CompanyID: "COMPANY-1", TenantID: "TENANT-1", Active: true})

	entry := &types.ScheduleEntry{
		Name:        "nightly",
		CronExpr:    "0 2 * * *",
		Enabled:     true,
		JobTemplate: types.BatchRequest{CompanyID: "COMPANY-1"},
	}
	require.NoError(t, schedules.Upsert(ctx, entry))

	locker := NewInMemoryLocker()
	ok, err := locker.TryLock(ctx, lockKey("nightly"), time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	mgr2 := New(schedules, mgr.coordinator, locker, nil)
	job, err := mgr2.Trigger(ctx, "nightly")
	require.NoError(t, err)
	assert.Nil(t, job, "trigger should skip while another holder has the lock")
}

func TestManager_TriggerSkipsDisabledSchedule(t *testing.T) {
	mgr, schedules, _, _ := newTestManager(t)
	ctx := context.Background()

	entry := &types.ScheduleEntry{Name: "off", CronExpr: "0 2 * * *", Enabled: false}
	require.NoError(t, schedules.Upsert(ctx, entry))

	job, err := mgr.Trigger(ctx, "off")
	require.NoError(t, err)
	assert.Nil(t, job)
}

func TestInMemoryLocker_MutualExclusionPerKey(t *testing.T) {
	locker := NewInMemoryLocker()
	ctx := context.Background()

	ok1, err := locker.TryLock(ctx, "a", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok1)

	ok2, err := locker.TryLock(ctx, "a", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok2, "second lock on same key should fail while held")

	ok3, err := locker.TryLock(ctx, "b", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok3, "distinct key should not be blocked")

	require.NoError(t, locker.Unlock(ctx, "a"))
	ok4, err := locker.TryLock(ctx, "a", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok4, "lock should be available again after unlock")
}
