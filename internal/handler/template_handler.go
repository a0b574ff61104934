// internal/handler/template_handler.go
package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	appErrors "github.com/driftmailhq/driftmail-backend/internal/errors"
	"github.com/driftmailhq/driftmail-backend/internal/model"
	"github.com/driftmailhq/driftmail-backend/internal/repository"
	"github.com/driftmailhq/driftmail-backend/internal/service"
)

// TemplateHandler holds the dependencies for template-related HTTP handlers
type TemplateHandler struct {
	Repo       repository.TemplateRepositoryInterface
	Recipients repository.RecipientRepositoryInterface
}

func NewTemplateHandler(repo repository.TemplateRepositoryInterface, recipients repository.RecipientRepositoryInterface) *TemplateHandler {
	return &TemplateHandler{Repo: repo, Recipients: recipients}
}

// CreateTemplateHandler handles creating a new message template
func (h *TemplateHandler) CreateTemplateHandler(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Name           string `json:"name"`
		SubjectPattern string `json:"subject_pattern"`
		BodyPattern    string `json:"body_pattern"`
	}

	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if payload.Name == "" || payload.BodyPattern == "" {
		http.Error(w, "name and body_pattern are required", http.StatusBadRequest)
		return
	}

	tmpl := &model.MessageTemplate{
		TenantID:       tenantID(r),
		Name:           payload.Name,
		SubjectPattern: payload.SubjectPattern,
		BodyPattern:    payload.BodyPattern,
	}

	if err := h.Repo.Create(tmpl); err != nil {
		http.Error(w, "failed to create template: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(tmpl)
}

// ListTemplatesHandler returns a paginated list of the tenant's templates
func (h *TemplateHandler) ListTemplatesHandler(w http.ResponseWriter, r *http.Request) {
	page, pageSize := pageParams(r)

	templates, total, err := h.Repo.ListByTenant(tenantID(r), (page-1)*pageSize, pageSize)
	if err != nil {
		http.Error(w, "failed to fetch templates: "+err.Error(), http.StatusInternalServerError)
		return
	}

	response := map[string]interface{}{
		"data":       templates,
		"pagination": paginate(page, pageSize, total),
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

// GetTemplateHandler returns a single template by ID
func (h *TemplateHandler) GetTemplateHandler(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid template id", http.StatusBadRequest)
		return
	}

	tmpl, err := h.Repo.GetByID(id, tenantID(r))
	if err != nil {
		if appErrors.IsTemplateNotFound(err) {
			http.Error(w, "template not found", http.StatusNotFound)
			return
		}
		http.Error(w, "failed to fetch template: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(tmpl)
}

// UpdateTemplateHandler replaces a template's name and patterns
func (h *TemplateHandler) UpdateTemplateHandler(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid template id", http.StatusBadRequest)
		return
	}

	var payload struct {
		Name           string `json:"name"`
		SubjectPattern string `json:"subject_pattern"`
		BodyPattern    string `json:"body_pattern"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if payload.Name == "" || payload.BodyPattern == "" {
		http.Error(w, "name and body_pattern are required", http.StatusBadRequest)
		return
	}

	tmpl := &model.MessageTemplate{
		ID:             id,
		TenantID:       tenantID(r),
		Name:           payload.Name,
		SubjectPattern: payload.SubjectPattern,
		BodyPattern:    payload.BodyPattern,
	}
	if err := h.Repo.Update(tmpl); err != nil {
		if appErrors.IsTemplateNotFound(err) {
			http.Error(w, "template not found", http.StatusNotFound)
			return
		}
		http.Error(w, "failed to update template: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(tmpl)
}

// DeleteTemplateHandler removes a template
func (h *TemplateHandler) DeleteTemplateHandler(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid template id", http.StatusBadRequest)
		return
	}

	if err := h.Repo.Delete(id, tenantID(r)); err != nil {
		if appErrors.IsTemplateNotFound(err) {
			http.Error(w, "template not found", http.StatusNotFound)
			return
		}
		http.Error(w, "failed to delete template: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// PreviewTemplateHandler renders a template against a stored recipient or an
// inline sample, without sending anything
func (h *TemplateHandler) PreviewTemplateHandler(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid template id", http.StatusBadRequest)
		return
	}

	var body struct {
		RecipientID int               `json:"recipient_id"`
		Address     string            `json:"address"`
		DisplayName string            `json:"display_name"`
		Attributes  map[string]string `json:"attributes"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}

	tmpl, err := h.Repo.GetByID(id, tenantID(r))
	if err != nil {
		if appErrors.IsTemplateNotFound(err) {
			http.Error(w, "template not found", http.StatusNotFound)
			return
		}
		http.Error(w, "failed to fetch template: "+err.Error(), http.StatusInternalServerError)
		return
	}

	rcpt := model.Recipient{
		TenantID:    tenantID(r),
		Address:     body.Address,
		DisplayName: body.DisplayName,
		Attributes:  body.Attributes,
	}
	if body.RecipientID != 0 {
		stored, err := h.Recipients.GetByID(body.RecipientID, tenantID(r))
		if err != nil {
			http.Error(w, "failed to fetch recipient: "+err.Error(), http.StatusInternalServerError)
			return
		}
		if stored == nil {
			http.Error(w, "recipient not found", http.StatusNotFound)
			return
		}
		rcpt = *stored
	}

	json.NewEncoder(w).Encode(map[string]interface{}{
		"subject":           service.RenderTemplate(tmpl.SubjectPattern, rcpt),
		"body":              service.RenderTemplate(tmpl.BodyPattern, rcpt),
		"recipient_address": rcpt.Address,
	})
}
