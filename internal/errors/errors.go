// internal/errors/errors.go
package appErrors

import (
    "errors"
    "fmt"
)

// ErrNoCredentialAvailable is returned by the credential rotator when a
// tenant has no active credentials left. Callers record it as a per-send
// failure, it is never fatal.
var ErrNoCredentialAvailable = errors.New("no active credential available")

// ErrTemplateNotFound is a sentinel error
type ErrTemplateNotFound struct {
    TemplateID int
    TenantID   int
}

func (e *ErrTemplateNotFound) Error() string {
    return fmt.Sprintf("template with ID %d not found for tenant %d", e.TemplateID, e.TenantID)
}

// Helper constructor
func NewTemplateNotFound(templateID, tenantID int) error {
    return &ErrTemplateNotFound{TemplateID: templateID, TenantID: tenantID}
}

// ErrJobNotFound is a sentinel error
type ErrJobNotFound struct {
    JobID int
}

func (e *ErrJobNotFound) Error() string {
    return fmt.Sprintf("job with ID %d not found", e.JobID)
}

func NewJobNotFound(id int) error {
    return &ErrJobNotFound{JobID: id}
}

// IsTemplateNotFound reports whether err is an ErrTemplateNotFound.
func IsTemplateNotFound(err error) bool {
    var target *ErrTemplateNotFound
    return errors.As(err, &target)
}

// IsJobNotFound reports whether err is an ErrJobNotFound.
func IsJobNotFound(err error) bool {
    var target *ErrJobNotFound
    return errors.As(err, &target)
}
