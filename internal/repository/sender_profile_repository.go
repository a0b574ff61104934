package repository

import (
	"database/sql"
	"time"

	"github.com/driftmailhq/driftmail-backend/internal/model"
)

type SenderProfileRepositoryInterface interface {
	Create(p *model.SenderProfile) error
	DefaultForTenant(tenantID int) (*model.SenderProfile, error)
	ListByTenant(tenantID int) ([]model.SenderProfile, error)
	Delete(id, tenantID int) error
}

type SenderProfileRepository struct {
	DB *sql.DB
}

func (r *SenderProfileRepository) Create(p *model.SenderProfile) error {
	p.CreatedAt = time.Now().UTC()
	query := `
        INSERT INTO sender_profiles (tenant_id, name, from_address, from_name, is_default, created_at)
        VALUES ($1, $2, $3, $4, $5, $6)
        RETURNING id
    `
	return r.DB.QueryRow(query, p.TenantID, p.Name, p.FromAddress, p.FromName, p.IsDefault, p.CreatedAt).Scan(&p.ID)
}

// DefaultForTenant returns the tenant's default sender profile, or nil when
// the tenant has none configured.
func (r *SenderProfileRepository) DefaultForTenant(tenantID int) (*model.SenderProfile, error) {
	query := `
        SELECT id, tenant_id, name, from_address, from_name, is_default, created_at
        FROM sender_profiles
        WHERE tenant_id=$1 AND is_default=TRUE
        ORDER BY id ASC
        LIMIT 1
    `
	var p model.SenderProfile
	err := r.DB.QueryRow(query, tenantID).Scan(&p.ID, &p.TenantID, &p.Name, &p.FromAddress, &p.FromName, &p.IsDefault, &p.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil // not found
		}
		return nil, err
	}
	return &p, nil
}

func (r *SenderProfileRepository) ListByTenant(tenantID int) ([]model.SenderProfile, error) {
	query := `
        SELECT id, tenant_id, name, from_address, from_name, is_default, created_at
        FROM sender_profiles
        WHERE tenant_id=$1
        ORDER BY id ASC
    `
	rows, err := r.DB.Query(query, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	profiles := []model.SenderProfile{}
	for rows.Next() {
		var p model.SenderProfile
		if err := rows.Scan(&p.ID, &p.TenantID, &p.Name, &p.FromAddress, &p.FromName, &p.IsDefault, &p.CreatedAt); err != nil {
			return nil, err
		}
		profiles = append(profiles, p)
	}
	return profiles, rows.Err()
}

func (r *SenderProfileRepository) Delete(id, tenantID int) error {
	res, err := r.DB.Exec(`DELETE FROM sender_profiles WHERE id=$1 AND tenant_id=$2`, id, tenantID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

var _ SenderProfileRepositoryInterface = (*SenderProfileRepository)(nil)
