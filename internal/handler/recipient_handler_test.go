package handler_test

import (
	"database/sql"
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/driftmailhq/driftmail-backend/internal/handler"
	"github.com/driftmailhq/driftmail-backend/internal/model"
)

// --- Mock recipient repository ---

type MockRecipientRepo struct {
	recipients map[int]*model.Recipient
	nextID     int
}

func (m *MockRecipientRepo) Create(rc *model.Recipient) error {
	if m.recipients == nil {
		m.recipients = map[int]*model.Recipient{}
	}
	m.nextID++
	rc.ID = m.nextID
	rc.Active = true
	m.recipients[rc.ID] = rc
	return nil
}

func (m *MockRecipientRepo) GetByID(id, tenantID int) (*model.Recipient, error) {
	if rc, ok := m.recipients[id]; ok && rc.TenantID == tenantID {
		return rc, nil
	}
	return nil, nil
}

func (m *MockRecipientRepo) ListByTenant(tenantID, offset, limit int) ([]model.Recipient, int, error) {
	out := []model.Recipient{}
	for _, rc := range m.recipients {
		if rc.TenantID == tenantID {
			out = append(out, *rc)
		}
	}
	return out, len(out), nil
}

func (m *MockRecipientRepo) ListByAddresses(tenantID int, addresses []string) ([]model.Recipient, error) {
	return nil, nil
}

func (m *MockRecipientRepo) Delete(id, tenantID int) error {
	if rc, ok := m.recipients[id]; ok && rc.TenantID == tenantID {
		delete(m.recipients, id)
		return nil
	}
	return sql.ErrNoRows
}

func newRecipientRouter(h *handler.RecipientHandler) http.Handler {
	r := chi.NewRouter()
	r.Use(handler.TenantFromHeader)
	r.Post("/recipients", h.CreateRecipientHandler)
	r.Get("/recipients", h.ListRecipientsHandler)
	r.Get("/recipients/{id}", h.GetRecipientHandler)
	r.Delete("/recipients/{id}", h.DeleteRecipientHandler)
	return r
}

// --- Tests ---

func TestCreateRecipient(t *testing.T) {
	repo := &MockRecipientRepo{}
	router := newRecipientRouter(handler.NewRecipientHandler(repo))

	w := doRequest(t, router, "POST", "/recipients", map[string]interface{}{
		"address":      "ana@example.com",
		"display_name": "Ana",
		"attributes":   map[string]string{"plan": "pro", "city": "Lisbon"},
	})

	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var rc model.Recipient
	decodeBody(t, w, &rc)
	assert.NotZero(t, rc.ID)
	assert.Equal(t, 7, rc.TenantID)
	assert.Equal(t, "ana@example.com", rc.Address)
	assert.Equal(t, "pro", rc.Attributes["plan"])
	assert.True(t, rc.Active)
}

func TestCreateRecipientRequiresAddress(t *testing.T) {
	repo := &MockRecipientRepo{}
	router := newRecipientRouter(handler.NewRecipientHandler(repo))

	w := doRequest(t, router, "POST", "/recipients", map[string]interface{}{
		"display_name": "No Address",
	})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, repo.recipients)
}

func TestGetRecipient(t *testing.T) {
	repo := &MockRecipientRepo{recipients: map[int]*model.Recipient{
		1: {ID: 1, TenantID: 7, Address: "ana@example.com", DisplayName: "Ana", Active: true},
		2: {ID: 2, TenantID: 8, Address: "other@example.com", Active: true},
	}}
	router := newRecipientRouter(handler.NewRecipientHandler(repo))

	w := doRequest(t, router, "GET", "/recipients/1", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var rc model.Recipient
	decodeBody(t, w, &rc)
	assert.Equal(t, "ana@example.com", rc.Address)

	// another tenant's recipient reads as missing
	w = doRequest(t, router, "GET", "/recipients/2", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDeleteRecipient(t *testing.T) {
	repo := &MockRecipientRepo{recipients: map[int]*model.Recipient{
		1: {ID: 1, TenantID: 7, Address: "ana@example.com", Active: true},
	}}
	router := newRecipientRouter(handler.NewRecipientHandler(repo))

	w := doRequest(t, router, "DELETE", "/recipients/1", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Empty(t, repo.recipients)

	w = doRequest(t, router, "DELETE", "/recipients/1", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestListRecipients(t *testing.T) {
	repo := &MockRecipientRepo{recipients: map[int]*model.Recipient{
		1: {ID: 1, TenantID: 7, Address: "ana@example.com", Active: true},
		2: {ID: 2, TenantID: 7, Address: "bruno@example.com", Active: true},
		3: {ID: 3, TenantID: 8, Address: "other@example.com", Active: true},
	}}
	router := newRecipientRouter(handler.NewRecipientHandler(repo))

	w := doRequest(t, router, "GET", "/recipients", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var res struct {
		Data []model.Recipient `json:"data"`
	}
	decodeBody(t, w, &res)
	assert.Len(t, res.Data, 2)
}
