// internal/model/job.go
package model

import "time"

// Schedule kinds.
const (
    ScheduleOneTime   = "one_time"
    ScheduleRecurring = "recurring"
)

// Job claim states. A job is claimed idle -> running before dispatch and
// returned to idle when its result is saved.
const (
    JobStateIdle    = "idle"
    JobStateRunning = "running"
)

// Aggregate results recorded in last_status after a run.
const (
    JobStatusSent          = "sent"
    JobStatusPartial       = "partial_failure"
    JobStatusFailed        = "failed"
    JobStatusScheduleError = "schedule_error"
)

type Job struct {
    ID                 int        `db:"id" json:"id"`
    TenantID           int        `db:"tenant_id" json:"tenant_id"`
    Name               string     `db:"name" json:"name"`
    TemplateID         int        `db:"template_id" json:"template_id"`
    RecipientAddresses []string   `db:"recipient_addresses" json:"recipient_addresses"`
    ScheduleKind       string     `db:"schedule_kind" json:"schedule_kind"` // one_time, recurring
    RunAt              *time.Time `db:"run_at" json:"run_at,omitempty"`
    CronExpr           string     `db:"cron_expr" json:"cron_expr,omitempty"`
    State              string     `db:"state" json:"state"`
    Enabled            bool       `db:"enabled" json:"enabled"`
    NextRunAt          *time.Time `db:"next_run_at" json:"next_run_at,omitempty"`
    LastRunAt          *time.Time `db:"last_run_at" json:"last_run_at,omitempty"`
    LastStatus         string     `db:"last_status" json:"last_status,omitempty"`
    LastError          string     `db:"last_error" json:"last_error,omitempty"`
    CreatedAt          time.Time  `db:"created_at" json:"created_at"`
}
