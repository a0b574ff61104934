// internal/model/recipient.go
package model

import "time"

type Recipient struct {
    ID          int               `db:"id" json:"id"`
    TenantID    int               `db:"tenant_id" json:"tenant_id"`
    Address     string            `db:"address" json:"address"`
    DisplayName string            `db:"display_name" json:"display_name"`
    Attributes  map[string]string `db:"attributes" json:"attributes"`
    Active      bool              `db:"active" json:"active"`
    CreatedAt   time.Time         `db:"created_at" json:"created_at"`
}
