// internal/model/sender_profile.go
package model

import "time"

type SenderProfile struct {
    ID          int       `db:"id" json:"id"`
    TenantID    int       `db:"tenant_id" json:"tenant_id"`
    Name        string    `db:"name" json:"name"`
    FromAddress string    `db:"from_address" json:"from_address"`
    FromName    string    `db:"from_name" json:"from_name"`
    IsDefault   bool      `db:"is_default" json:"is_default"`
    CreatedAt   time.Time `db:"created_at" json:"created_at"`
}
