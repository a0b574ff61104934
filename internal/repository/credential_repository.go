package repository

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"database/sql"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/driftmailhq/driftmail-backend/internal/model"
)

// CredentialRepositoryInterface defines the methods the rotator and the API need.
type CredentialRepositoryInterface interface {
	Create(c *model.Credential) error
	ListByTenant(tenantID int) ([]model.Credential, error)
	ListActive(tenantID int) ([]model.Credential, error)
	MarkUsed(id int, usedAt time.Time) error
	Deactivate(id int) error
	DeactivateForTenant(id, tenantID int) error
	IncrementFailure(id int) error
}

// CredentialRepository stores provider secrets. Secrets are sealed with
// AES-256-GCM before write when an encryption key is configured; with an
// empty key they are stored as-is, which is only acceptable for local dev.
type CredentialRepository struct {
	DB  *sql.DB
	key []byte // 32-byte AES-256 key; nil when encryption is disabled
}

// NewCredentialRepository derives the AES key from the configured passphrase.
// An empty passphrase disables encryption.
func NewCredentialRepository(conn *sql.DB, passphrase string) *CredentialRepository {
	r := &CredentialRepository{DB: conn}
	if passphrase != "" {
		sum := sha256.Sum256([]byte(passphrase))
		r.key = sum[:]
	}
	return r
}

func (r *CredentialRepository) Create(c *model.Credential) error {
	c.CreatedAt = time.Now().UTC()
	sealed, err := sealSecret(r.key, c.Secret)
	if err != nil {
		return fmt.Errorf("seal credential secret: %w", err)
	}

	query := `
        INSERT INTO credentials (tenant_id, name, secret, active, use_count, failure_count, created_at)
        VALUES ($1, $2, $3, TRUE, 0, 0, $4)
        RETURNING id
    `
	if err := r.DB.QueryRow(query, c.TenantID, c.Name, sealed, c.CreatedAt).Scan(&c.ID); err != nil {
		return err
	}
	c.Active = true
	return nil
}

func (r *CredentialRepository) ListByTenant(tenantID int) ([]model.Credential, error) {
	query := `
        SELECT id, tenant_id, name, secret, active, use_count, failure_count, last_used_at, created_at
        FROM credentials
        WHERE tenant_id=$1
        ORDER BY id ASC
    `
	return r.queryCredentials(query, tenantID)
}

// ListActive returns the tenant's active credentials ordered for rotation:
// never-used first, then oldest last_used_at, ties by lowest id.
func (r *CredentialRepository) ListActive(tenantID int) ([]model.Credential, error) {
	query := `
        SELECT id, tenant_id, name, secret, active, use_count, failure_count, last_used_at, created_at
        FROM credentials
        WHERE tenant_id=$1 AND active=TRUE
        ORDER BY last_used_at ASC NULLS FIRST, id ASC
    `
	return r.queryCredentials(query, tenantID)
}

func (r *CredentialRepository) queryCredentials(query string, args ...interface{}) ([]model.Credential, error) {
	rows, err := r.DB.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	creds := []model.Credential{}
	for rows.Next() {
		var c model.Credential
		var sealed string
		if err := rows.Scan(&c.ID, &c.TenantID, &c.Name, &sealed, &c.Active, &c.UseCount, &c.FailureCount, &c.LastUsedAt, &c.CreatedAt); err != nil {
			return nil, err
		}
		c.Secret, err = openSecret(r.key, sealed)
		if err != nil {
			return nil, fmt.Errorf("open secret for credential %d: %w", c.ID, err)
		}
		creds = append(creds, c)
	}
	return creds, rows.Err()
}

func (r *CredentialRepository) MarkUsed(id int, usedAt time.Time) error {
	_, err := r.DB.Exec(`UPDATE credentials SET use_count=use_count+1, last_used_at=$2 WHERE id=$1`, id, usedAt)
	return err
}

func (r *CredentialRepository) Deactivate(id int) error {
	_, err := r.DB.Exec(`UPDATE credentials SET active=FALSE WHERE id=$1`, id)
	return err
}

// DeactivateForTenant is the owner-facing variant used by the API delete
// endpoint; it refuses to touch another tenant's rows.
func (r *CredentialRepository) DeactivateForTenant(id, tenantID int) error {
	res, err := r.DB.Exec(`UPDATE credentials SET active=FALSE WHERE id=$1 AND tenant_id=$2`, id, tenantID)
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

func (r *CredentialRepository) IncrementFailure(id int) error {
	_, err := r.DB.Exec(`UPDATE credentials SET failure_count=failure_count+1 WHERE id=$1`, id)
	return err
}

// sealSecret encrypts plaintext with AES-256-GCM and returns base64 of
// nonce || ciphertext || tag. A nil key passes the plaintext through.
func sealSecret(key []byte, plaintext string) (string, error) {
	if key == nil {
		return plaintext, nil
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return "", fmt.Errorf("aes.NewCipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", fmt.Errorf("cipher.NewGCM: %w", err)
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("rand nonce: %w", err)
	}

	ciphertext := gcm.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(ciphertext), nil
}

// openSecret reverses sealSecret.
func openSecret(key []byte, encoded string) (string, error) {
	if key == nil {
		return encoded, nil
	}

	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("base64 decode: %w", err)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return "", fmt.Errorf("aes.NewCipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", fmt.Errorf("cipher.NewGCM: %w", err)
	}

	nonceSize := gcm.NonceSize()
	if len(data) < nonceSize {
		return "", errors.New("ciphertext too short")
	}

	plaintext, err := gcm.Open(nil, data[:nonceSize], data[nonceSize:], nil)
	if err != nil {
		return "", fmt.Errorf("gcm open: %w", err)
	}
	return string(plaintext), nil
}

var _ CredentialRepositoryInterface = (*CredentialRepository)(nil)
