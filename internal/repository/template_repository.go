package repository

import (
    "database/sql"
    "time"

    appErrors "github.com/driftmailhq/driftmail-backend/internal/errors"
    "github.com/driftmailhq/driftmail-backend/internal/model"
)

type TemplateRepositoryInterface interface {
    Create(t *model.MessageTemplate) error
    GetByID(id, tenantID int) (*model.MessageTemplate, error)
    ListByTenant(tenantID, offset, limit int) ([]model.MessageTemplate, int, error)
    Update(t *model.MessageTemplate) error
    Delete(id, tenantID int) error
}

type TemplateRepository struct {
    DB *sql.DB
}

func (r *TemplateRepository) Create(t *model.MessageTemplate) error {
    t.CreatedAt = time.Now().UTC()
    query := `
        INSERT INTO message_templates (tenant_id, name, subject_pattern, body_pattern, created_at)
        VALUES ($1, $2, $3, $4, $5)
        RETURNING id
    `
    return r.DB.QueryRow(query, t.TenantID, t.Name, t.SubjectPattern, t.BodyPattern, t.CreatedAt).Scan(&t.ID)
}

func (r *TemplateRepository) GetByID(id, tenantID int) (*model.MessageTemplate, error) {
    query := `
        SELECT id, tenant_id, name, subject_pattern, body_pattern, created_at, updated_at
        FROM message_templates
        WHERE id=$1 AND tenant_id=$2
    `
    var t model.MessageTemplate
    err := r.DB.QueryRow(query, id, tenantID).Scan(&t.ID, &t.TenantID, &t.Name, &t.SubjectPattern, &t.BodyPattern, &t.CreatedAt, &t.UpdatedAt)
    if err != nil {
        if err == sql.ErrNoRows {
            return nil, appErrors.NewTemplateNotFound(id, tenantID)
        }
        return nil, err
    }
    return &t, nil
}

func (r *TemplateRepository) ListByTenant(tenantID, offset, limit int) ([]model.MessageTemplate, int, error) {
    templates := []model.MessageTemplate{}
    query := `
        SELECT id, tenant_id, name, subject_pattern, body_pattern, created_at, updated_at
        FROM message_templates
        WHERE tenant_id=$1
        ORDER BY id DESC
        LIMIT $2 OFFSET $3
    `
    rows, err := r.DB.Query(query, tenantID, limit, offset)
    if err != nil {
        return nil, 0, err
    }
    defer rows.Close()

    for rows.Next() {
        var t model.MessageTemplate
        if err := rows.Scan(&t.ID, &t.TenantID, &t.Name, &t.SubjectPattern, &t.BodyPattern, &t.CreatedAt, &t.UpdatedAt); err != nil {
            return nil, 0, err
        }
        templates = append(templates, t)
    }
    if err := rows.Err(); err != nil {
        return nil, 0, err
    }

    var total int
    if err := r.DB.QueryRow(`SELECT COUNT(*) FROM message_templates WHERE tenant_id=$1`, tenantID).Scan(&total); err != nil {
        return nil, 0, err
    }
    return templates, total, nil
}

func (r *TemplateRepository) Update(t *model.MessageTemplate) error {
    query := `
        UPDATE message_templates
        SET name=$3, subject_pattern=$4, body_pattern=$5, updated_at=NOW()
        WHERE id=$1 AND tenant_id=$2
    `
    res, err := r.DB.Exec(query, t.ID, t.TenantID, t.Name, t.SubjectPattern, t.BodyPattern)
    if err != nil {
        return err
    }
    n, err := res.RowsAffected()
    if err != nil {
        return err
    }
    if n == 0 {
        return appErrors.NewTemplateNotFound(t.ID, t.TenantID)
    }
    return nil
}

func (r *TemplateRepository) Delete(id, tenantID int) error {
    res, err := r.DB.Exec(`DELETE FROM message_templates WHERE id=$1 AND tenant_id=$2`, id, tenantID)
    if err != nil {
        return err
    }
    n, err := res.RowsAffected()
    if err != nil {
        return err
    }
    if n == 0 {
        return appErrors.NewTemplateNotFound(id, tenantID)
    }
    return nil
}

var _ TemplateRepositoryInterface = (*TemplateRepository)(nil)
