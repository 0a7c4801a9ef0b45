package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/govbizai/matchcore/pkg/types"
)

// PostgresJobStore implements JobStore over batch_jobs, primary key
// job_id, secondary index on (owner, created_at DESC) per spec.md §6.3.
type PostgresJobStore struct {
	db *sql.DB
}

// NewPostgresJobStore wraps db as a JobStore.
func NewPostgresJobStore(db *sql.DB) *PostgresJobStore {
	return &PostgresJobStore{db: db}
}

// Upsert implements JobStore.
func (s *PostgresJobStore) Upsert(ctx context.Context, job *types.BatchJob) error {
	counters, err := json.Marshal(job.Counters)
	if err != nil {
		return fmt.Errorf("store: encode counters: %w", err)
	}
	cfg, err := json.Marshal(job.Config)
	if err != nil {
		return fmt.Errorf("store: encode batch config: %w", err)
	}
	var snapshot []byte
	if job.OptimizerSnapshot != nil {
		snapshot, err = json.Marshal(job.OptimizerSnapshot)
		if err != nil {
			return fmt.Errorf("store: encode optimizer snapshot: %w", err)
		}
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO batch_jobs (job_id, owner, state, counters, started_at, ended_at, config,
			last_error, optimizer_snapshot, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9, now())
		ON CONFLICT (job_id) DO UPDATE SET
			owner = EXCLUDED.owner, state = EXCLUDED.state, counters = EXCLUDED.counters,
			started_at = EXCLUDED.started_at, ended_at = EXCLUDED.ended_at, config = EXCLUDED.config,
			last_error = EXCLUDED.last_error, optimizer_snapshot = EXCLUDED.optimizer_snapshot,
			updated_at = now()
	`, job.JobID, job.Owner, string(job.State), counters, nullTime(job.StartedAt),
		nullTime(job.EndedAt), cfg, job.LastError, snapshot)
	if err != nil {
		return fmt.Errorf("store: upsert job %q: %w", job.JobID, err)
	}
	return nil
}

// Get implements JobStore.
func (s *PostgresJobStore) Get(ctx context.Context, jobID string) (*types.BatchJob, error) {
	return s.scanOne(s.db.QueryRowContext(ctx, `
		SELECT job_id, owner, state, counters, started_at, ended_at, config, last_error, optimizer_snapshot
		FROM batch_jobs WHERE job_id = $1`, jobID))
}

func (s *PostgresJobStore) scanOne(row *sql.Row) (*types.BatchJob, error) {
	var job types.BatchJob
	var state string
	var counters, cfg, snapshot []byte
	var startedAt, endedAt sql.NullTime

	err := row.Scan(&job.JobID, &job.Owner, &state, &counters, &startedAt, &endedAt, &cfg, &job.LastError, &snapshot)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("store: job %q not found: %w", job.JobID, err)
	}
	if err != nil {
		return nil, fmt.Errorf("store: scan job row: %w", err)
	}

	job.State = types.BatchState(state)
	if startedAt.Valid {
		job.StartedAt = startedAt.Time
	}
	if endedAt.Valid {
		job.EndedAt = endedAt.Time
	}
	if err := unmarshalAll(jsonField{counters, &job.Counters}, jsonField{cfg, &job.Config}); err != nil {
		return nil, fmt.Errorf("store: decode job row: %w", err)
	}
	if len(snapshot) > 0 {
		var wd types.WaveDecision
		if err := json.Unmarshal(snapshot, &wd); err != nil {
			return nil, fmt.Errorf("store: decode optimizer snapshot: %w", err)
		}
		job.OptimizerSnapshot = &wd
	}
	return &job, nil
}

// CompareAndTransition implements JobStore's conditional state update
// (spec.md §5: "state transitions use conditional updates").
func (s *PostgresJobStore) CompareAndTransition(ctx context.Context, jobID string, expected types.BatchState, update func(*types.BatchJob)) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("store: begin transition tx: %w", err)
	}
	defer tx.Rollback()

	var current string
	if err := tx.QueryRowContext(ctx, `SELECT state FROM batch_jobs WHERE job_id = $1 FOR UPDATE`, jobID).Scan(&current); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("store: read job state for transition: %w", err)
	}
	if types.BatchState(current) != expected {
		return false, nil
	}

	job, err := s.scanOne(tx.QueryRowContext(ctx, `
		SELECT job_id, owner, state, counters, started_at, ended_at, config, last_error, optimizer_snapshot
		FROM batch_jobs WHERE job_id = $1`, jobID))
	if err != nil {
		return false, err
	}
	update(job)

	counters, err := json.Marshal(job.Counters)
	if err != nil {
		return false, fmt.Errorf("store: encode counters: %w", err)
	}
	var snapshot []byte
	if job.OptimizerSnapshot != nil {
		snapshot, err = json.Marshal(job.OptimizerSnapshot)
		if err != nil {
			return false, fmt.Errorf("store: encode optimizer snapshot: %w", err)
		}
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE batch_jobs SET state = $2, counters = $3, started_at = $4, ended_at = $5, last_error = $6,
			optimizer_snapshot = $7, updated_at = now()
		WHERE job_id = $1 AND state = $8
	`, jobID, string(job.State), counters, nullTime(job.StartedAt), nullTime(job.EndedAt), job.LastError, snapshot, expected)
	if err != nil {
		return false, fmt.Errorf("store: apply job transition: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("store: commit job transition: %w", err)
	}
	return true, nil
}

// ListByOwner implements JobStore.
func (s *PostgresJobStore) ListByOwner(ctx context.Context, owner string, limit int) ([]*types.BatchJob, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT job_id, owner, state, counters, started_at, ended_at, config, last_error, optimizer_snapshot
		FROM batch_jobs WHERE owner = $1 ORDER BY created_at DESC LIMIT $2`, owner, limit)
	if err != nil {
		return nil, fmt.Errorf("store: list jobs for owner %q: %w", owner, err)
	}
	defer rows.Close()

	var out []*types.BatchJob
	for rows.Next() {
		var job types.BatchJob
		var state string
		var counters, cfg, snapshot []byte
		var startedAt, endedAt sql.NullTime

		if err := rows.Scan(&job.JobID, &job.Owner, &state, &counters, &startedAt, &endedAt, &cfg, &job.LastError, &snapshot); err != nil {
			return nil, fmt.Errorf("store: scan job row: %w", err)
		}
		job.State = types.BatchState(state)
		if startedAt.Valid {
			job.StartedAt = startedAt.Time
		}
		if endedAt.Valid {
			job.EndedAt = endedAt.Time
		}
		if err := unmarshalAll(jsonField{counters, &job.Counters}, jsonField{cfg, &job.Config}); err != nil {
			return nil, fmt.Errorf("store: decode job row: %w", err)
		}
		out = append(out, &job)
	}
	return out, rows.Err()
}

func nullTime(t time.Time) interface{} {
	if t.IsZero() {
		return nil
	}
	return t
}
