package handler_test

import (
	"database/sql"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/driftmailhq/driftmail-backend/internal/handler"
	"github.com/driftmailhq/driftmail-backend/internal/model"
)

// --- Mock credential repository ---

type MockCredentialRepo struct {
	creds  map[int]*model.Credential
	nextID int
}

func (m *MockCredentialRepo) Create(c *model.Credential) error {
	if m.creds == nil {
		m.creds = map[int]*model.Credential{}
	}
	m.nextID++
	c.ID = m.nextID
	c.Active = true
	m.creds[c.ID] = c
	return nil
}

func (m *MockCredentialRepo) ListByTenant(tenantID int) ([]model.Credential, error) {
	out := []model.Credential{}
	for _, c := range m.creds {
		if c.TenantID == tenantID {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (m *MockCredentialRepo) ListActive(tenantID int) ([]model.Credential, error) {
	out := []model.Credential{}
	for _, c := range m.creds {
		if c.TenantID == tenantID && c.Active {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (m *MockCredentialRepo) MarkUsed(id int, usedAt time.Time) error { return nil }

func (m *MockCredentialRepo) Deactivate(id int) error { return nil }

func (m *MockCredentialRepo) DeactivateForTenant(id, tenantID int) error {
	if c, ok := m.creds[id]; ok && c.TenantID == tenantID {
		c.Active = false
		return nil
	}
	return sql.ErrNoRows
}

func (m *MockCredentialRepo) IncrementFailure(id int) error { return nil }

func newCredentialRouter(h *handler.CredentialHandler) http.Handler {
	r := chi.NewRouter()
	r.Use(handler.TenantFromHeader)
	r.Post("/credentials", h.CreateCredentialHandler)
	r.Get("/credentials", h.ListCredentialsHandler)
	r.Delete("/credentials/{id}", h.DeleteCredentialHandler)
	return r
}

// --- Tests ---

func TestCreateCredentialNeverEchoesSecret(t *testing.T) {
	repo := &MockCredentialRepo{}
	router := newCredentialRouter(handler.NewCredentialHandler(repo))

	w := doRequest(t, router, "POST", "/credentials", map[string]interface{}{
		"name":   "primary-key",
		"secret": "sk-live-verysecret",
	})

	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.NotContains(t, w.Body.String(), "sk-live-verysecret")

	var cred model.Credential
	decodeBody(t, w, &cred)
	assert.NotZero(t, cred.ID)
	assert.Equal(t, "primary-key", cred.Name)

	// the repository still received the secret to store
	assert.Equal(t, "sk-live-verysecret", repo.creds[cred.ID].Secret)
}

func TestCreateCredentialRequiresSecret(t *testing.T) {
	repo := &MockCredentialRepo{}
	router := newCredentialRouter(handler.NewCredentialHandler(repo))

	w := doRequest(t, router, "POST", "/credentials", map[string]interface{}{
		"name": "keyless",
	})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, repo.creds)
}

func TestListCredentialsHidesSecrets(t *testing.T) {
	repo := &MockCredentialRepo{creds: map[int]*model.Credential{
		1: {ID: 1, TenantID: 7, Name: "primary", Secret: "sk-live-verysecret", Active: true},
		2: {ID: 2, TenantID: 8, Name: "other-tenant", Secret: "sk-other", Active: true},
	}}
	router := newCredentialRouter(handler.NewCredentialHandler(repo))

	w := doRequest(t, router, "GET", "/credentials", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), "sk-live-verysecret")

	var res struct {
		Data []model.Credential `json:"data"`
	}
	decodeBody(t, w, &res)
	require.Len(t, res.Data, 1)
	assert.Equal(t, "primary", res.Data[0].Name)
}

func TestDeleteCredentialDeactivates(t *testing.T) {
	repo := &MockCredentialRepo{creds: map[int]*model.Credential{
		1: {ID: 1, TenantID: 7, Name: "primary", Active: true},
	}}
	router := newCredentialRouter(handler.NewCredentialHandler(repo))

	w := doRequest(t, router, "DELETE", "/credentials/1", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	// the row survives for send log references, it just leaves rotation
	assert.False(t, repo.creds[1].Active)

	w = doRequest(t, router, "DELETE", "/credentials/99", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
