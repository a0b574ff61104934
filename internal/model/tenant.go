// internal/model/tenant.go
package model

import "time"

type Tenant struct {
    ID        int       `db:"id" json:"id"`
    Name      string    `db:"name" json:"name"`
    Active    bool      `db:"active" json:"active"`
    CreatedAt time.Time `db:"created_at" json:"created_at"`
}
