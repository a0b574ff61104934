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

// --- Mock sender profile repository ---

type MockProfileRepo struct {
	profiles map[int]*model.SenderProfile
	nextID   int
}

func (m *MockProfileRepo) Create(p *model.SenderProfile) error {
	if m.profiles == nil {
		m.profiles = map[int]*model.SenderProfile{}
	}
	m.nextID++
	p.ID = m.nextID
	m.profiles[p.ID] = p
	return nil
}

func (m *MockProfileRepo) DefaultForTenant(tenantID int) (*model.SenderProfile, error) {
	var best *model.SenderProfile
	for _, p := range m.profiles {
		if p.TenantID == tenantID && p.IsDefault && (best == nil || p.ID < best.ID) {
			best = p
		}
	}
	return best, nil
}

func (m *MockProfileRepo) ListByTenant(tenantID int) ([]model.SenderProfile, error) {
	out := []model.SenderProfile{}
	for _, p := range m.profiles {
		if p.TenantID == tenantID {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (m *MockProfileRepo) Delete(id, tenantID int) error {
	if p, ok := m.profiles[id]; ok && p.TenantID == tenantID {
		delete(m.profiles, id)
		return nil
	}
	return sql.ErrNoRows
}

func newProfileRouter(h *handler.ProfileHandler) http.Handler {
	r := chi.NewRouter()
	r.Use(handler.TenantFromHeader)
	r.Post("/profiles", h.CreateProfileHandler)
	r.Get("/profiles", h.ListProfilesHandler)
	r.Delete("/profiles/{id}", h.DeleteProfileHandler)
	return r
}

// --- Tests ---

func TestCreateProfile(t *testing.T) {
	repo := &MockProfileRepo{}
	router := newProfileRouter(handler.NewProfileHandler(repo))

	w := doRequest(t, router, "POST", "/profiles", map[string]interface{}{
		"name":         "newsletter",
		"from_address": "news@driftmail.dev",
		"from_name":    "Driftmail News",
		"is_default":   true,
	})

	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var profile model.SenderProfile
	decodeBody(t, w, &profile)
	assert.NotZero(t, profile.ID)
	assert.Equal(t, 7, profile.TenantID)
	assert.Equal(t, "news@driftmail.dev", profile.FromAddress)
	assert.True(t, profile.IsDefault)
}

func TestCreateProfileNameDefaults(t *testing.T) {
	repo := &MockProfileRepo{}
	router := newProfileRouter(handler.NewProfileHandler(repo))

	w := doRequest(t, router, "POST", "/profiles", map[string]interface{}{
		"from_address": "hello@driftmail.dev",
	})

	require.Equal(t, http.StatusCreated, w.Code)

	var profile model.SenderProfile
	decodeBody(t, w, &profile)
	assert.Equal(t, "default", profile.Name)
}

func TestCreateProfileRequiresFromAddress(t *testing.T) {
	repo := &MockProfileRepo{}
	router := newProfileRouter(handler.NewProfileHandler(repo))

	w := doRequest(t, router, "POST", "/profiles", map[string]interface{}{
		"name": "incomplete",
	})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, repo.profiles)
}

func TestListProfiles(t *testing.T) {
	repo := &MockProfileRepo{profiles: map[int]*model.SenderProfile{
		1: {ID: 1, TenantID: 7, Name: "default", FromAddress: "hello@driftmail.dev", IsDefault: true},
		2: {ID: 2, TenantID: 8, Name: "other-tenant", FromAddress: "noreply@acme.test"},
	}}
	router := newProfileRouter(handler.NewProfileHandler(repo))

	w := doRequest(t, router, "GET", "/profiles", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var res struct {
		Data []model.SenderProfile `json:"data"`
	}
	decodeBody(t, w, &res)
	require.Len(t, res.Data, 1)
	assert.Equal(t, "hello@driftmail.dev", res.Data[0].FromAddress)
}

func TestDeleteProfile(t *testing.T) {
	repo := &MockProfileRepo{profiles: map[int]*model.SenderProfile{
		1: {ID: 1, TenantID: 7, Name: "default", FromAddress: "hello@driftmail.dev"},
	}}
	router := newProfileRouter(handler.NewProfileHandler(repo))

	w := doRequest(t, router, "DELETE", "/profiles/1", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Empty(t, repo.profiles)

	w = doRequest(t, router, "DELETE", "/profiles/99", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
