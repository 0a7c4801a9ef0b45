// Package schedule implements the Schedule Manager (spec.md §4.9): CRUD
// over ScheduleEntry, cron-style recurring and one-shot triggers, and
// an advisory lock so the same schedule never fires concurrently from
// two processes.
//
// Cron parsing/next-fire computation uses github.com/robfig/cron/v3,
// the ecosystem-standard choice named across the retrieved example
// repos' go.mod files. The advisory lock is a Redis SET-NX-PX lock in
// the style of internal/cache/redis.go's redis.UniversalClient usage,
// even though the teacher repo has no analogous locking need itself.
package schedule

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/govbizai/matchcore/internal/batch"
	"github.com/govbizai/matchcore/internal/store"
	"github.com/govbizai/matchcore/pkg/types"
	"go.uber.org/zap"
)

// Locker provides the advisory lock a Manager uses to prevent the same
// ScheduleEntry from firing concurrently across processes (spec.md
// §4.9: "executing the same ScheduleEntry concurrently is prevented by
// an advisory lock keyed by schedule name").
type Locker interface {
	// TryLock attempts to acquire a lock named key for ttl, returning
	// false (no error) if another holder already has it.
	TryLock(ctx context.Context, key string, ttl time.Duration) (bool, error)
	// Unlock releases a lock previously acquired by TryLock.
	Unlock(ctx context.Context, key string) error
}

// LockTTL bounds how long a schedule's advisory lock is held, safely
// longer than a single batch Submit call should ever take.
const LockTTL = 2 * time.Minute

// cronParser accepts the standard 5-field expression (minute, hour,
// day of month, month, day of week); there is no seconds field.
var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// Manager is the Schedule Manager (C9).
type Manager struct {
	store      store.ScheduleStore
	coordinator *batch.Coordinator
	locker     Locker
	logger     *zap.Logger
}

// New builds a Manager. locker may be nil, in which case schedules run
// without cross-process exclusion (acceptable for a single-instance
// deployment or tests).
func New(s store.ScheduleStore, coordinator *batch.Coordinator, locker Locker, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{store: s, coordinator: coordinator, locker: locker, logger: logger}
}

// Create validates entry and persists it (spec.md §4.9 CRUD).
func (m *Manager) Create(ctx context.Context, entry *types.ScheduleEntry) error {
	if err := Validate(entry); err != nil {
		return err
	}
	now := time.Now()
	entry.CreatedAt = now
	entry.UpdatedAt = now
	return m.store.Upsert(ctx, entry)
}

// Update validates and overwrites an existing entry.
func (m *Manager) Update(ctx context.Context, entry *types.ScheduleEntry) error {
	if err := Validate(entry); err != nil {
		return err
	}
	entry.UpdatedAt = time.Now()
	return m.store.Upsert(ctx, entry)
}

// Delete removes a schedule by name.
func (m *Manager) Delete(ctx context.Context, name string) error {
	return m.store.Delete(ctx, name)
}

// Get returns a schedule by name.
func (m *Manager) Get(ctx context.Context, name string) (*types.ScheduleEntry, error) {
	return m.store.Get(ctx, name)
}

// List returns every schedule.
func (m *Manager) List(ctx context.Context) ([]*types.ScheduleEntry, error) {
	return m.store.List(ctx)
}

// Validate checks that entry carries exactly one of CronExpr or RunAt
// (spec.md §3: "one-shot, mutually exclusive with CronExpr") and that
// a cron expression, if present, parses.
func Validate(entry *types.ScheduleEntry) error {
	if entry.Name == "" {
		return fmt.Errorf("schedule: name is required")
	}
	hasCron := entry.CronExpr != ""
	hasRunAt := entry.RunAt != nil
	if hasCron == hasRunAt {
		return fmt.Errorf("schedule: exactly one of cron_expr or run_at must be set")
	}
	if hasCron {
		if _, err := cronParser.Parse(entry.CronExpr); err != nil {
			return fmt.Errorf("schedule: invalid cron expression %q: %w", entry.CronExpr, err)
		}
	}
	return nil
}

// NextFire returns entry's next trigger time strictly after after, or
// the zero time if the entry will never fire again (a past one-shot,
// or a disabled entry).
func NextFire(entry *types.ScheduleEntry, after time.Time) time.Time {
	if !entry.Enabled {
		return time.Time{}
	}
	if entry.IsOneShot() {
		if entry.RunAt.After(after) {
			return *entry.RunAt
		}
		return time.Time{}
	}
	sched, err := cronParser.Parse(entry.CronExpr)
	if err != nil {
		return time.Time{}
	}
	return sched.Next(after)
}

// Trigger fires entry: it acquires the advisory lock, submits a
// BatchJob built from entry.JobTemplate through the Coordinator, and
// records the run (spec.md §4.9: "on trigger, it constructs a BatchJob
// specification and calls the Coordinator"). A failed lock acquisition
// is not an error -- it means another process is already running this
// schedule.
func (m *Manager) Trigger(ctx context.Context, name string) (*types.BatchJob, error) {
	entry, err := m.store.Get(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("schedule: lookup %q: %w", name, err)
	}
	if !entry.Enabled {
		return nil, nil
	}

	if m.locker != nil {
		acquired, err := m.locker.TryLock(ctx, lockKey(name), LockTTL)
		if err != nil {
			return nil, fmt.Errorf("schedule: acquire lock for %q: %w", name, err)
		}
		if !acquired {
			m.logger.Debug("schedule: skipping trigger, already running elsewhere", zap.String("schedule", name))
			return nil, nil
		}
		defer func() {
			if err := m.locker.Unlock(ctx, lockKey(name)); err != nil {
				m.logger.Warn("schedule: unlock failed", zap.String("schedule", name), zap.Error(err))
			}
		}()
	}

	job, err := m.coordinator.Submit(ctx, entry.JobTemplate)
	if err != nil {
		return nil, fmt.Errorf("schedule: submit job for %q: %w", name, err)
	}

	entry.LastRunAt = time.Now()
	entry.LastJobID = job.JobID
	if err := m.store.Upsert(ctx, entry); err != nil {
		m.logger.Warn("schedule: recording last run failed", zap.String("schedule", name), zap.Error(err))
	}
	return job, nil
}

func lockKey(name string) string {
	return "schedule-lock:" + name
}

// PollInterval is how often Run checks for due schedules.
const PollInterval = 15 * time.Second

// Run polls for due schedules every PollInterval and triggers each one,
// until ctx is cancelled. A schedule is due when its next fire time
// (computed from LastRunAt, or CreatedAt for one never run) is at or
// before now.
func (m *Manager) Run(ctx context.Context) {
	ticker := time.NewTicker(PollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.tick(ctx)
		}
	}
}

func (m *Manager) tick(ctx context.Context) {
	entries, err := m.store.List(ctx)
	if err != nil {
		m.logger.Warn("schedule: list failed", zap.Error(err))
		return
	}
	now := time.Now()
	for _, entry := range entries {
		if !entry.Enabled {
			continue
		}
		from := entry.LastRunAt
		if from.IsZero() {
			from = entry.CreatedAt
		}
		next := NextFire(entry, from)
		if next.IsZero() || next.After(now) {
			continue
		}
		if _, err := m.Trigger(ctx, entry.Name); err != nil {
			m.logger.Error("schedule: trigger failed", zap.String("schedule", entry.Name), zap.Error(err))
		}
	}
}
