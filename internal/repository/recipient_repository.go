package repository

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/driftmailhq/driftmail-backend/internal/model"
)

// RecipientRepositoryInterface defines methods used by the dispatch path and the API.
type RecipientRepositoryInterface interface {
	Create(rc *model.Recipient) error
	GetByID(id, tenantID int) (*model.Recipient, error)
	ListByTenant(tenantID, offset, limit int) ([]model.Recipient, int, error)
	ListByAddresses(tenantID int, addresses []string) ([]model.Recipient, error)
	Delete(id, tenantID int) error
}

// RecipientRepository is the concrete implementation
type RecipientRepository struct {
	DB *sql.DB
}

func (r *RecipientRepository) Create(rc *model.Recipient) error {
	rc.CreatedAt = time.Now().UTC()
	if rc.Attributes == nil {
		rc.Attributes = map[string]string{}
	}
	attrs, err := json.Marshal(rc.Attributes)
	if err != nil {
		return fmt.Errorf("encode attributes: %w", err)
	}

	query := `
        INSERT INTO recipients (tenant_id, address, display_name, attributes, active, created_at)
        VALUES ($1, $2, $3, $4, TRUE, $5)
        RETURNING id
    `
	if err := r.DB.QueryRow(query, rc.TenantID, rc.Address, rc.DisplayName, attrs, rc.CreatedAt).Scan(&rc.ID); err != nil {
		return err
	}
	rc.Active = true
	return nil
}

// GetByID fetches a recipient within the tenant boundary
func (r *RecipientRepository) GetByID(id, tenantID int) (*model.Recipient, error) {
	query := `
        SELECT id, tenant_id, address, display_name, attributes, active, created_at
        FROM recipients
        WHERE id = $1 AND tenant_id = $2
    `
	rc, err := scanRecipient(r.DB.QueryRow(query, id, tenantID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil // not found
		}
		return nil, err
	}
	return rc, nil
}

func (r *RecipientRepository) ListByTenant(tenantID, offset, limit int) ([]model.Recipient, int, error) {
	query := `
        SELECT id, tenant_id, address, display_name, attributes, active, created_at
        FROM recipients
        WHERE tenant_id = $1
        ORDER BY id ASC
        LIMIT $2 OFFSET $3
    `
	rows, err := r.DB.Query(query, tenantID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	recipients := []model.Recipient{}
	for rows.Next() {
		rc, err := scanRecipient(rows)
		if err != nil {
			return nil, 0, err
		}
		recipients = append(recipients, *rc)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	var total int
	if err := r.DB.QueryRow(`SELECT COUNT(*) FROM recipients WHERE tenant_id=$1`, tenantID).Scan(&total); err != nil {
		return nil, 0, err
	}
	return recipients, total, nil
}

// ListByAddresses resolves recipient records for the given addresses within
// one tenant. Addresses belonging to other tenants or to no recipient at all
// simply produce no row.
func (r *RecipientRepository) ListByAddresses(tenantID int, addresses []string) ([]model.Recipient, error) {
	if len(addresses) == 0 {
		return []model.Recipient{}, nil
	}

	query := `
        SELECT id, tenant_id, address, display_name, attributes, active, created_at
        FROM recipients
        WHERE tenant_id = $1 AND active = TRUE AND address = ANY($2)
    `
	rows, err := r.DB.Query(query, tenantID, pq.Array(addresses))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	recipients := []model.Recipient{}
	for rows.Next() {
		rc, err := scanRecipient(rows)
		if err != nil {
			return nil, err
		}
		recipients = append(recipients, *rc)
	}
	return recipients, rows.Err()
}

func (r *RecipientRepository) Delete(id, tenantID int) error {
	res, err := r.DB.Exec(`DELETE FROM recipients WHERE id=$1 AND tenant_id=$2`, id, tenantID)
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

func scanRecipient(row rowScanner) (*model.Recipient, error) {
	var rc model.Recipient
	var attrs []byte
	err := row.Scan(&rc.ID, &rc.TenantID, &rc.Address, &rc.DisplayName, &attrs, &rc.Active, &rc.CreatedAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(attrs, &rc.Attributes); err != nil {
		return nil, fmt.Errorf("decode attributes for recipient %d: %w", rc.ID, err)
	}
	return &rc, nil
}

var _ RecipientRepositoryInterface = (*RecipientRepository)(nil)
