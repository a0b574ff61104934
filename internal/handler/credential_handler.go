// internal/handler/credential_handler.go
package handler

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/driftmailhq/driftmail-backend/internal/model"
	"github.com/driftmailhq/driftmail-backend/internal/repository"
)

// CredentialHandler holds the dependencies for credential-related HTTP handlers
type CredentialHandler struct {
	Repo repository.CredentialRepositoryInterface
}

func NewCredentialHandler(repo repository.CredentialRepositoryInterface) *CredentialHandler {
	return &CredentialHandler{Repo: repo}
}

// CreateCredentialHandler registers a provider credential for the tenant.
// The secret is never echoed back.
func (h *CredentialHandler) CreateCredentialHandler(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Name   string `json:"name"`
		Secret string `json:"secret"`
	}

	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if payload.Secret == "" {
		http.Error(w, "secret is required", http.StatusBadRequest)
		return
	}

	cred := &model.Credential{
		TenantID: tenantID(r),
		Name:     payload.Name,
		Secret:   payload.Secret,
	}

	if err := h.Repo.Create(cred); err != nil {
		http.Error(w, "failed to create credential: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(cred)
}

// ListCredentialsHandler lists the tenant's credentials, secrets excluded
func (h *CredentialHandler) ListCredentialsHandler(w http.ResponseWriter, r *http.Request) {
	creds, err := h.Repo.ListByTenant(tenantID(r))
	if err != nil {
		http.Error(w, "failed to fetch credentials: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{"data": creds})
}

// DeleteCredentialHandler deactivates a credential. Rows stay behind for
// send log references, the rotator just stops handing the credential out.
func (h *CredentialHandler) DeleteCredentialHandler(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid credential id", http.StatusBadRequest)
		return
	}

	if err := h.Repo.DeactivateForTenant(id, tenantID(r)); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			http.Error(w, "credential not found", http.StatusNotFound)
			return
		}
		http.Error(w, "failed to deactivate credential: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
