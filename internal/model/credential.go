// internal/model/credential.go
package model

import "time"

// Credential is a delivery-provider secret. The core never deletes
// credentials, it only flips Active off when the provider rejects one.
type Credential struct {
    ID           int        `db:"id" json:"id"`
    TenantID     int        `db:"tenant_id" json:"tenant_id"`
    Name         string     `db:"name" json:"name"`
    Secret       string     `db:"secret" json:"-"`
    Active       bool       `db:"active" json:"active"`
    UseCount     int        `db:"use_count" json:"use_count"`
    FailureCount int        `db:"failure_count" json:"failure_count"`
    LastUsedAt   *time.Time `db:"last_used_at" json:"last_used_at,omitempty"`
    CreatedAt    time.Time  `db:"created_at" json:"created_at"`
}
