package repository

import (
	"database/sql"
	"time"

	"github.com/driftmailhq/driftmail-backend/internal/model"
)

// TenantRepositoryInterface covers the minimal tenant surface the service
// needs; tenant provisioning itself belongs to an external system.
type TenantRepositoryInterface interface {
	Create(t *model.Tenant) error
	GetByID(id int) (*model.Tenant, error)
	List() ([]model.Tenant, error)
}

type TenantRepository struct {
	DB *sql.DB
}

func (r *TenantRepository) Create(t *model.Tenant) error {
	t.CreatedAt = time.Now().UTC()
	query := `
        INSERT INTO tenants (name, active, created_at)
        VALUES ($1, TRUE, $2)
        RETURNING id
    `
	if err := r.DB.QueryRow(query, t.Name, t.CreatedAt).Scan(&t.ID); err != nil {
		return err
	}
	t.Active = true
	return nil
}

func (r *TenantRepository) GetByID(id int) (*model.Tenant, error) {
	query := `SELECT id, name, active, created_at FROM tenants WHERE id=$1`
	var t model.Tenant
	err := r.DB.QueryRow(query, id).Scan(&t.ID, &t.Name, &t.Active, &t.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil // not found
		}
		return nil, err
	}
	return &t, nil
}

func (r *TenantRepository) List() ([]model.Tenant, error) {
	rows, err := r.DB.Query(`SELECT id, name, active, created_at FROM tenants ORDER BY id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tenants := []model.Tenant{}
	for rows.Next() {
		var t model.Tenant
		if err := rows.Scan(&t.ID, &t.Name, &t.Active, &t.CreatedAt); err != nil {
			return nil, err
		}
		tenants = append(tenants, t)
	}
	return tenants, rows.Err()
}

var _ TenantRepositoryInterface = (*TenantRepository)(nil)
