// internal/model/template.go
package model

import "time"

// MessageTemplate holds the subject/body patterns for a bulk send.
// Patterns may contain {{placeholder}} tokens resolved per recipient.
type MessageTemplate struct {
    ID             int        `db:"id" json:"id"`
    TenantID       int        `db:"tenant_id" json:"tenant_id"`
    Name           string     `db:"name" json:"name"`
    SubjectPattern string     `db:"subject_pattern" json:"subject_pattern"`
    BodyPattern    string     `db:"body_pattern" json:"body_pattern"`
    CreatedAt      time.Time  `db:"created_at" json:"created_at"`
    UpdatedAt      *time.Time `db:"updated_at" json:"updated_at,omitempty"`
}
