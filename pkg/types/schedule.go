package types

import "time"

// ScheduleEntry is a named recurring or one-shot trigger for a batch
// job template (spec.md §3, C9).
type ScheduleEntry struct {
	Name         string       `json:"schedule_name"`
	CronExpr     string       `json:"cron_expr,omitempty"`     // recurring, robfig/cron syntax
	RunAt        *time.Time   `json:"run_at,omitempty"`        // one-shot, mutually exclusive with CronExpr
	JobTemplate  BatchRequest `json:"job_template"`
	Enabled      bool         `json:"enabled"`
	LastRunAt    time.Time    `json:"last_run_at,omitempty"`
	LastJobID    string       `json:"last_job_id,omitempty"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
}

// IsOneShot reports whether the entry fires exactly once at RunAt.
func (s *ScheduleEntry) IsOneShot() bool {
	return s.RunAt != nil
}
