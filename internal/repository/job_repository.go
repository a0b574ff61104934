package repository

import (
    "database/sql"
    "encoding/json"
    "fmt"
    "time"

    appErrors "github.com/driftmailhq/driftmail-backend/internal/errors"
    "github.com/driftmailhq/driftmail-backend/internal/model"
)

type JobRepositoryInterface interface {
    // Job CRUD
    Create(j *model.Job) error
    GetByID(id, tenantID int) (*model.Job, error)
    ListByTenant(tenantID, offset, limit int) ([]*model.Job, int, error)
    Disable(id, tenantID int) error

    // Scheduler operations
    ListDue(now time.Time) ([]model.Job, error)
    Claim(id int) (bool, error)
    Release(id int) error
    SaveResult(id int, nextRunAt *time.Time, lastRunAt time.Time, lastStatus, lastError string, enabled bool) error
    MarkScheduleError(id int, reason string) error
}

type JobRepository struct {
    DB *sql.DB
}

const jobColumns = `id, tenant_id, name, template_id, recipient_addresses, schedule_kind, run_at, cron_expr,
        state, enabled, next_run_at, last_run_at, last_status, last_error, created_at`

// ====================== Job CRUD ======================

func (r *JobRepository) Create(j *model.Job) error {
    j.CreatedAt = time.Now().UTC()
    if j.State == "" {
        j.State = model.JobStateIdle
    }
    addrs, err := json.Marshal(j.RecipientAddresses)
    if err != nil {
        return fmt.Errorf("encode recipient addresses: %w", err)
    }

    query := `
        INSERT INTO jobs (tenant_id, name, template_id, recipient_addresses, schedule_kind, run_at, cron_expr, state, enabled, next_run_at, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
        RETURNING id
    `
    return r.DB.QueryRow(query,
        j.TenantID,
        j.Name,
        j.TemplateID,
        addrs,
        j.ScheduleKind,
        j.RunAt,
        j.CronExpr,
        j.State,
        j.Enabled,
        j.NextRunAt,
        j.CreatedAt,
    ).Scan(&j.ID)
}

func (r *JobRepository) GetByID(id, tenantID int) (*model.Job, error) {
    query := fmt.Sprintf(`SELECT %s FROM jobs WHERE id=$1 AND tenant_id=$2`, jobColumns)
    j, err := scanJob(r.DB.QueryRow(query, id, tenantID))
    if err != nil {
        if err == sql.ErrNoRows {
            return nil, appErrors.NewJobNotFound(id)
        }
        return nil, err
    }
    return j, nil
}

func (r *JobRepository) ListByTenant(tenantID, offset, limit int) ([]*model.Job, int, error) {
    jobs := []*model.Job{}
    query := fmt.Sprintf(`SELECT %s FROM jobs WHERE tenant_id=$1 ORDER BY id DESC LIMIT $2 OFFSET $3`, jobColumns)

    rows, err := r.DB.Query(query, tenantID, limit, offset)
    if err != nil {
        return nil, 0, err
    }
    defer rows.Close()

    for rows.Next() {
        j, err := scanJob(rows)
        if err != nil {
            return nil, 0, err
        }
        jobs = append(jobs, j)
    }
    if err := rows.Err(); err != nil {
        return nil, 0, err
    }

    var total int
    if err := r.DB.QueryRow(`SELECT COUNT(*) FROM jobs WHERE tenant_id=$1`, tenantID).Scan(&total); err != nil {
        return nil, 0, err
    }

    return jobs, total, nil
}

// Disable turns a job off on behalf of its owner. Jobs are never hard-deleted.
func (r *JobRepository) Disable(id, tenantID int) error {
    res, err := r.DB.Exec(`UPDATE jobs SET enabled=FALSE, next_run_at=NULL WHERE id=$1 AND tenant_id=$2`, id, tenantID)
    if err != nil {
        return err
    }
    n, err := res.RowsAffected()
    if err != nil {
        return err
    }
    if n == 0 {
        return appErrors.NewJobNotFound(id)
    }
    return nil
}

// ====================== Scheduler operations ======================

func (r *JobRepository) ListDue(now time.Time) ([]model.Job, error) {
    query := fmt.Sprintf(`
        SELECT %s FROM jobs
        WHERE enabled=TRUE AND state=$1 AND next_run_at IS NOT NULL AND next_run_at <= $2
        ORDER BY next_run_at ASC
    `, jobColumns)

    rows, err := r.DB.Query(query, model.JobStateIdle, now)
    if err != nil {
        return nil, err
    }
    defer rows.Close()

    jobs := []model.Job{}
    for rows.Next() {
        j, err := scanJob(rows)
        if err != nil {
            return nil, err
        }
        jobs = append(jobs, *j)
    }
    return jobs, rows.Err()
}

// Claim atomically transitions a job from idle to running. It reports false
// when another worker holds the job or the job was disabled in the meantime.
func (r *JobRepository) Claim(id int) (bool, error) {
    res, err := r.DB.Exec(
        `UPDATE jobs SET state=$1 WHERE id=$2 AND state=$3 AND enabled=TRUE`,
        model.JobStateRunning, id, model.JobStateIdle,
    )
    if err != nil {
        return false, err
    }
    n, err := res.RowsAffected()
    if err != nil {
        return false, err
    }
    return n == 1, nil
}

// Release returns a claimed job to idle without recording a run, used when
// loading the job's template or recipients fails transiently.
func (r *JobRepository) Release(id int) error {
    _, err := r.DB.Exec(`UPDATE jobs SET state=$1 WHERE id=$2 AND state=$3`,
        model.JobStateIdle, id, model.JobStateRunning)
    return err
}

func (r *JobRepository) SaveResult(id int, nextRunAt *time.Time, lastRunAt time.Time, lastStatus, lastError string, enabled bool) error {
    query := `
        UPDATE jobs
        SET state=$2, enabled=$3, next_run_at=$4, last_run_at=$5, last_status=$6, last_error=$7
        WHERE id=$1
    `
    _, err := r.DB.Exec(query, id, model.JobStateIdle, enabled, nextRunAt, lastRunAt, lastStatus, lastError)
    return err
}

// MarkScheduleError disables a broken job (bad cron, missing template) so it
// is never selected as due again. The reason lands in last_error.
func (r *JobRepository) MarkScheduleError(id int, reason string) error {
    query := `
        UPDATE jobs
        SET state=$2, enabled=FALSE, next_run_at=NULL, last_status=$3, last_error=$4
        WHERE id=$1
    `
    _, err := r.DB.Exec(query, id, model.JobStateIdle, model.JobStatusScheduleError, reason)
    return err
}

type rowScanner interface {
    Scan(dest ...interface{}) error
}

func scanJob(row rowScanner) (*model.Job, error) {
    var j model.Job
    var addrs []byte
    err := row.Scan(
        &j.ID, &j.TenantID, &j.Name, &j.TemplateID, &addrs, &j.ScheduleKind, &j.RunAt, &j.CronExpr,
        &j.State, &j.Enabled, &j.NextRunAt, &j.LastRunAt, &j.LastStatus, &j.LastError, &j.CreatedAt,
    )
    if err != nil {
        return nil, err
    }
    if err := json.Unmarshal(addrs, &j.RecipientAddresses); err != nil {
        return nil, fmt.Errorf("decode recipient addresses for job %d: %w", j.ID, err)
    }
    return &j, nil
}

var _ JobRepositoryInterface = (*JobRepository)(nil)
