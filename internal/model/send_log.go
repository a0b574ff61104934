// internal/model/send_log.go
package model

import "time"

// Send outcomes.
const (
    SendStatusSent   = "sent"
    SendStatusFailed = "failed"
)

// SendLog is one per-recipient send outcome. Rows are append-only and are
// never mutated after creation.
type SendLog struct {
    ID               int       `db:"id" json:"id"`
    TenantID         int       `db:"tenant_id" json:"tenant_id"`
    JobID            *int      `db:"job_id" json:"job_id,omitempty"` // nil for ad-hoc sends
    BatchID          string    `db:"batch_id" json:"batch_id"`
    RecipientAddress string    `db:"recipient_address" json:"recipient_address"`
    Subject          string    `db:"subject" json:"subject"`
    Status           string    `db:"status" json:"status"` // sent, failed
    ProviderError    string    `db:"provider_error" json:"provider_error,omitempty"`
    CredentialID     *int      `db:"credential_id" json:"credential_id,omitempty"`
    SentAt           time.Time `db:"sent_at" json:"sent_at"`
}
