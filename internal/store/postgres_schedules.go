package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/govbizai/matchcore/pkg/types"
)

// PostgresScheduleStore implements ScheduleStore over
// schedule_entries, primary key schedule_name (spec.md §6.3).
type PostgresScheduleStore struct {
	db *sql.DB
}

// NewPostgresScheduleStore wraps db as a ScheduleStore.
func NewPostgresScheduleStore(db *sql.DB) *PostgresScheduleStore {
	return &PostgresScheduleStore{db: db}
}

// Upsert implements ScheduleStore.
func (s *PostgresScheduleStore) Upsert(ctx context.Context, e *types.ScheduleEntry) error {
	template, err := json.Marshal(e.JobTemplate)
	if err != nil {
		return fmt.Errorf("store: encode job template: %w", err)
	}

	var runAt interface{}
	if e.RunAt != nil {
		runAt = *e.RunAt
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO schedule_entries (schedule_name, cron_expr, run_at, job_template, enabled,
			last_run_at, last_job_id, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7, now())
		ON CONFLICT (schedule_name) DO UPDATE SET
			cron_expr = EXCLUDED.cron_expr, run_at = EXCLUDED.run_at, job_template = EXCLUDED.job_template,
			enabled = EXCLUDED.enabled, last_run_at = EXCLUDED.last_run_at, last_job_id = EXCLUDED.last_job_id,
			updated_at = now()
	`, e.Name, e.CronExpr, runAt, template, e.Enabled, nullTime(e.LastRunAt), e.LastJobID)
	if err != nil {
		return fmt.Errorf("store: upsert schedule %q: %w", e.Name, err)
	}
	return nil
}

// Get implements ScheduleStore.
func (s *PostgresScheduleStore) Get(ctx context.Context, name string) (*types.ScheduleEntry, error) {
	return s.scan(s.db.QueryRowContext(ctx, `
		SELECT schedule_name, cron_expr, run_at, job_template, enabled, last_run_at, last_job_id, created_at, updated_at
		FROM schedule_entries WHERE schedule_name = $1`, name))
}

func (s *PostgresScheduleStore) scan(row *sql.Row) (*types.ScheduleEntry, error) {
	var e types.ScheduleEntry
	var runAt, lastRunAt sql.NullTime
	var template []byte

	err := row.Scan(&e.Name, &e.CronExpr, &runAt, &template, &e.Enabled, &lastRunAt, &e.LastJobID, &e.CreatedAt, &e.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("store: schedule %q not found: %w", e.Name, err)
	}
	if err != nil {
		return nil, fmt.Errorf("store: scan schedule row: %w", err)
	}
	if runAt.Valid {
		e.RunAt = &runAt.Time
	}
	if lastRunAt.Valid {
		e.LastRunAt = lastRunAt.Time
	}
	if err := json.Unmarshal(template, &e.JobTemplate); err != nil {
		return nil, fmt.Errorf("store: decode job template: %w", err)
	}
	return &e, nil
}

// Delete implements ScheduleStore.
func (s *PostgresScheduleStore) Delete(ctx context.Context, name string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM schedule_entries WHERE schedule_name = $1`, name)
	if err != nil {
		return fmt.Errorf("store: delete schedule %q: %w", name, err)
	}
	return nil
}

// List implements ScheduleStore.
func (s *PostgresScheduleStore) List(ctx context.Context) ([]*types.ScheduleEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT schedule_name, cron_expr, run_at, job_template, enabled, last_run_at, last_job_id, created_at, updated_at
		FROM schedule_entries ORDER BY schedule_name`)
	if err != nil {
		return nil, fmt.Errorf("store: list schedules: %w", err)
	}
	defer rows.Close()

	var out []*types.ScheduleEntry
	for rows.Next() {
		var e types.ScheduleEntry
		var runAt, lastRunAt sql.NullTime
		var template []byte

		if err := rows.Scan(&e.Name, &e.CronExpr, &runAt, &template, &e.Enabled, &lastRunAt, &e.LastJobID, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, fmt.Errorf("store: scan schedule row: %w", err)
		}
		if runAt.Valid {
			e.RunAt = &runAt.Time
		}
		if lastRunAt.Valid {
			e.LastRunAt = lastRunAt.Time
		}
		if err := json.Unmarshal(template, &e.JobTemplate); err != nil {
			return nil, fmt.Errorf("store: decode job template: %w", err)
		}
		out = append(out, &e)
	}
	return out, rows.Err()
}
