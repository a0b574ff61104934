// internal/handler/profile_handler.go
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

// ProfileHandler holds the dependencies for sender-profile HTTP handlers
type ProfileHandler struct {
	Repo repository.SenderProfileRepositoryInterface
}

func NewProfileHandler(repo repository.SenderProfileRepositoryInterface) *ProfileHandler {
	return &ProfileHandler{Repo: repo}
}

// CreateProfileHandler registers a sender profile for the tenant. Dispatch
// uses the tenant's default profile for the provider from header; with
// several defaults the lowest id wins.
func (h *ProfileHandler) CreateProfileHandler(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Name        string `json:"name"`
		FromAddress string `json:"from_address"`
		FromName    string `json:"from_name"`
		IsDefault   bool   `json:"is_default"`
	}

	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if payload.FromAddress == "" {
		http.Error(w, "from_address is required", http.StatusBadRequest)
		return
	}
	if payload.Name == "" {
		payload.Name = "default"
	}

	profile := &model.SenderProfile{
		TenantID:    tenantID(r),
		Name:        payload.Name,
		FromAddress: payload.FromAddress,
		FromName:    payload.FromName,
		IsDefault:   payload.IsDefault,
	}

	if err := h.Repo.Create(profile); err != nil {
		http.Error(w, "failed to create sender profile: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(profile)
}

// ListProfilesHandler lists the tenant's sender profiles
func (h *ProfileHandler) ListProfilesHandler(w http.ResponseWriter, r *http.Request) {
	profiles, err := h.Repo.ListByTenant(tenantID(r))
	if err != nil {
		http.Error(w, "failed to fetch sender profiles: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{"data": profiles})
}

// DeleteProfileHandler removes a sender profile. Dispatch falls back to the
// configured default from address when a tenant has no profile left.
func (h *ProfileHandler) DeleteProfileHandler(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid sender profile id", http.StatusBadRequest)
		return
	}

	if err := h.Repo.Delete(id, tenantID(r)); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			http.Error(w, "sender profile not found", http.StatusNotFound)
			return
		}
		http.Error(w, "failed to delete sender profile: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
