package repository

import (
    "database/sql"
    "fmt"
    "time"

    "github.com/driftmailhq/driftmail-backend/internal/model"
)

type SendLogRepositoryInterface interface {
    Append(entry *model.SendLog) error
    List(tenantID int, filter SendLogFilter, offset, limit int) ([]model.SendLog, int, error)
    PruneOlderThan(cutoff time.Time) (int64, error)
}

// SendLogFilter narrows the log listing. Zero values mean "no filter".
type SendLogFilter struct {
    JobID   int
    BatchID string
    Status  string
}

type SendLogRepository struct {
    DB *sql.DB
}

// Append inserts one immutable send outcome row.
func (r *SendLogRepository) Append(entry *model.SendLog) error {
    if entry.SentAt.IsZero() {
        entry.SentAt = time.Now().UTC()
    }
    query := `
        INSERT INTO send_logs (tenant_id, job_id, batch_id, recipient_address, subject, status, provider_error, credential_id, sent_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
        RETURNING id
    `
    return r.DB.QueryRow(query,
        entry.TenantID,
        entry.JobID,
        entry.BatchID,
        entry.RecipientAddress,
        entry.Subject,
        entry.Status,
        entry.ProviderError,
        entry.CredentialID,
        entry.SentAt,
    ).Scan(&entry.ID)
}

func (r *SendLogRepository) List(tenantID int, filter SendLogFilter, offset, limit int) ([]model.SendLog, int, error) {
    where := `WHERE tenant_id=$1`
    args := []interface{}{tenantID}
    argPos := 2

    if filter.JobID != 0 {
        where += fmt.Sprintf(" AND job_id=$%d", argPos)
        args = append(args, filter.JobID)
        argPos++
    }
    if filter.BatchID != "" {
        where += fmt.Sprintf(" AND batch_id=$%d", argPos)
        args = append(args, filter.BatchID)
        argPos++
    }
    if filter.Status != "" {
        where += fmt.Sprintf(" AND status=$%d", argPos)
        args = append(args, filter.Status)
        argPos++
    }

    query := fmt.Sprintf(`
        SELECT id, tenant_id, job_id, batch_id, recipient_address, subject, status, provider_error, credential_id, sent_at
        FROM send_logs %s
        ORDER BY id DESC
        LIMIT $%d OFFSET $%d
    `, where, argPos, argPos+1)
    queryArgs := append(append([]interface{}{}, args...), limit, offset)

    rows, err := r.DB.Query(query, queryArgs...)
    if err != nil {
        return nil, 0, err
    }
    defer rows.Close()

    logs := []model.SendLog{}
    for rows.Next() {
        var l model.SendLog
        if err := rows.Scan(&l.ID, &l.TenantID, &l.JobID, &l.BatchID, &l.RecipientAddress, &l.Subject, &l.Status, &l.ProviderError, &l.CredentialID, &l.SentAt); err != nil {
            return nil, 0, err
        }
        logs = append(logs, l)
    }
    if err := rows.Err(); err != nil {
        return nil, 0, err
    }

    var total int
    countQuery := fmt.Sprintf(`SELECT COUNT(*) FROM send_logs %s`, where)
    if err := r.DB.QueryRow(countQuery, args...).Scan(&total); err != nil {
        return nil, 0, err
    }

    return logs, total, nil
}

// PruneOlderThan deletes log rows older than the cutoff and reports how many
// went away. Used by the retention task in the worker.
func (r *SendLogRepository) PruneOlderThan(cutoff time.Time) (int64, error) {
    res, err := r.DB.Exec(`DELETE FROM send_logs WHERE sent_at < $1`, cutoff)
    if err != nil {
        return 0, err
    }
    return res.RowsAffected()
}

var _ SendLogRepositoryInterface = (*SendLogRepository)(nil)
