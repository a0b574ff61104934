// internal/handler/recipient_handler.go
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

// RecipientHandler holds the dependencies for recipient-related HTTP handlers
type RecipientHandler struct {
	Repo repository.RecipientRepositoryInterface
}

func NewRecipientHandler(repo repository.RecipientRepositoryInterface) *RecipientHandler {
	return &RecipientHandler{Repo: repo}
}

// CreateRecipientHandler handles adding a recipient to the calling tenant
func (h *RecipientHandler) CreateRecipientHandler(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Address     string            `json:"address"`
		DisplayName string            `json:"display_name"`
		Attributes  map[string]string `json:"attributes"`
	}

	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if payload.Address == "" {
		http.Error(w, "address is required", http.StatusBadRequest)
		return
	}

	recipient := &model.Recipient{
		TenantID:    tenantID(r),
		Address:     payload.Address,
		DisplayName: payload.DisplayName,
		Attributes:  payload.Attributes,
	}

	if err := h.Repo.Create(recipient); err != nil {
		http.Error(w, "failed to create recipient: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(recipient)
}

// ListRecipientsHandler returns a paginated list of the tenant's recipients
func (h *RecipientHandler) ListRecipientsHandler(w http.ResponseWriter, r *http.Request) {
	page, pageSize := pageParams(r)

	recipients, total, err := h.Repo.ListByTenant(tenantID(r), (page-1)*pageSize, pageSize)
	if err != nil {
		http.Error(w, "failed to fetch recipients: "+err.Error(), http.StatusInternalServerError)
		return
	}

	response := map[string]interface{}{
		"data":       recipients,
		"pagination": paginate(page, pageSize, total),
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

// GetRecipientHandler returns a single recipient by ID
func (h *RecipientHandler) GetRecipientHandler(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid recipient id", http.StatusBadRequest)
		return
	}

	recipient, err := h.Repo.GetByID(id, tenantID(r))
	if err != nil {
		http.Error(w, "failed to fetch recipient: "+err.Error(), http.StatusInternalServerError)
		return
	}
	if recipient == nil {
		http.Error(w, "recipient not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(recipient)
}

// DeleteRecipientHandler removes a recipient from the tenant's list
func (h *RecipientHandler) DeleteRecipientHandler(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid recipient id", http.StatusBadRequest)
		return
	}

	if err := h.Repo.Delete(id, tenantID(r)); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			http.Error(w, "recipient not found", http.StatusNotFound)
			return
		}
		http.Error(w, "failed to delete recipient: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
