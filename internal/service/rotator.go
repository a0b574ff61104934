package service

import (
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	appErrors "github.com/driftmailhq/driftmail-backend/internal/errors"
	"github.com/driftmailhq/driftmail-backend/internal/metrics"
	"github.com/driftmailhq/driftmail-backend/internal/model"
	"github.com/driftmailhq/driftmail-backend/internal/repository"
)

// CredentialOutcome is what a caller reports back after using a credential.
type CredentialOutcome string

const (
	OutcomeSuccess            CredentialOutcome = "success"
	OutcomeRejectedByProvider CredentialOutcome = "rejected_by_provider"
	OutcomeTransientFailure   CredentialOutcome = "transient_failure"
)

// CredentialRotator owns credential selection for all tenants. Selection is
// round-robin-by-recency: the active credential with the oldest last_used_at
// wins, ties broken by lowest id, so idle credentials never starve.
type CredentialRotator struct {
	Credentials repository.CredentialRepositoryInterface
	Logger      zerolog.Logger

	mu    sync.Mutex
	locks map[int]*sync.Mutex
}

func NewCredentialRotator(creds repository.CredentialRepositoryInterface, logger zerolog.Logger) *CredentialRotator {
	return &CredentialRotator{
		Credentials: creds,
		Logger:      logger,
		locks:       make(map[int]*sync.Mutex),
	}
}

// tenantLock returns the per-tenant mutex, creating it on first use.
// Unrelated tenants never contend on credential selection.
func (r *CredentialRotator) tenantLock(tenantID int) *sync.Mutex {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.locks[tenantID]
	if !ok {
		l = &sync.Mutex{}
		r.locks[tenantID] = l
	}
	return l
}

// Acquire selects the least-recently-used active credential for the tenant
// and marks it used in the same critical section, so two concurrent callers
// never pick the same credential before either reports back. Credentials in
// skip are ignored and their usage left untouched; failover passes the ids
// it already tried so a small pool is never re-acquired. Returns
// appErrors.ErrNoCredentialAvailable when no eligible credential remains.
func (r *CredentialRotator) Acquire(tenantID int, skip ...int) (*model.Credential, error) {
	lock := r.tenantLock(tenantID)
	lock.Lock()
	defer lock.Unlock()

	creds, err := r.Credentials.ListActive(tenantID)
	if err != nil {
		return nil, err
	}
	if len(skip) > 0 {
		skipped := make(map[int]bool, len(skip))
		for _, id := range skip {
			skipped[id] = true
		}
		kept := creds[:0]
		for _, c := range creds {
			if !skipped[c.ID] {
				kept = append(kept, c)
			}
		}
		creds = kept
	}
	if len(creds) == 0 {
		return nil, appErrors.ErrNoCredentialAvailable
	}

	// The repository orders for rotation already, but the policy belongs
	// here: never-used first, then oldest use, ties by lowest id.
	sort.SliceStable(creds, func(i, j int) bool {
		a, b := creds[i], creds[j]
		switch {
		case a.LastUsedAt == nil && b.LastUsedAt != nil:
			return true
		case a.LastUsedAt != nil && b.LastUsedAt == nil:
			return false
		case a.LastUsedAt != nil && b.LastUsedAt != nil && !a.LastUsedAt.Equal(*b.LastUsedAt):
			return a.LastUsedAt.Before(*b.LastUsedAt)
		}
		return a.ID < b.ID
	})

	chosen := creds[0]
	now := time.Now().UTC()
	if err := r.Credentials.MarkUsed(chosen.ID, now); err != nil {
		return nil, err
	}
	chosen.UseCount++
	chosen.LastUsedAt = &now

	return &chosen, nil
}

// Report records the outcome of a send made with the credential. A provider
// rejection deactivates the credential permanently; a transient failure only
// bumps its failure count and keeps it eligible.
func (r *CredentialRotator) Report(credentialID int, outcome CredentialOutcome) error {
	switch outcome {
	case OutcomeRejectedByProvider:
		r.Logger.Warn().Int("credential_id", credentialID).Msg("credential rejected by provider, deactivating")
		metrics.IncCredentialDeactivated()
		return r.Credentials.Deactivate(credentialID)
	case OutcomeTransientFailure:
		return r.Credentials.IncrementFailure(credentialID)
	}
	return nil
}
