package provider_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/driftmailhq/driftmail-backend/internal/provider"
)

type apiPayload struct {
	To          []map[string]string `json:"to"`
	Sender      map[string]string   `json:"sender"`
	Subject     string              `json:"subject"`
	TextContent string              `json:"textContent"`
}

func TestHTTPSenderSendsWellFormedRequest(t *testing.T) {
	var gotPath, gotKey string
	var gotPayload apiPayload

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get("api-key")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotPayload))
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	s := provider.NewHTTPSender(srv.URL, 5*time.Second)
	msg := provider.Message{
		To:       "ana@example.com",
		ToName:   "Ana",
		From:     "no-reply@driftmail.dev",
		FromName: "Driftmail",
		Subject:  "Hi Ana",
		Body:     "Welcome aboard",
	}
	require.NoError(t, s.Send(context.Background(), "key-123", msg))

	assert.Equal(t, "/v3/smtp/email", gotPath)
	assert.Equal(t, "key-123", gotKey)
	require.Len(t, gotPayload.To, 1)
	assert.Equal(t, "ana@example.com", gotPayload.To[0]["email"])
	assert.Equal(t, "Ana", gotPayload.To[0]["name"])
	assert.Equal(t, "no-reply@driftmail.dev", gotPayload.Sender["email"])
	assert.Equal(t, "Driftmail", gotPayload.Sender["name"])
	assert.Equal(t, "Hi Ana", gotPayload.Subject)
	assert.Equal(t, "Welcome aboard", gotPayload.TextContent)
}

func TestHTTPSenderOmitsEmptyNames(t *testing.T) {
	var gotPayload apiPayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotPayload))
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	s := provider.NewHTTPSender(srv.URL, 5*time.Second)
	msg := provider.Message{To: "ana@example.com", From: "no-reply@driftmail.dev", Subject: "s", Body: "b"}
	require.NoError(t, s.Send(context.Background(), "key", msg))

	require.Len(t, gotPayload.To, 1)
	_, hasName := gotPayload.To[0]["name"]
	assert.False(t, hasName)
	_, hasSenderName := gotPayload.Sender["name"]
	assert.False(t, hasSenderName)
}

func TestHTTPSenderClassifiesStatusCodes(t *testing.T) {
	cases := []struct {
		status int
		want   provider.ErrorClass
	}{
		{http.StatusUnauthorized, provider.ClassCredentialRejected},
		{http.StatusForbidden, provider.ClassCredentialRejected},
		{http.StatusBadRequest, provider.ClassRecipientRejected},
		{http.StatusNotFound, provider.ClassRecipientRejected},
		{http.StatusUnprocessableEntity, provider.ClassRecipientRejected},
		{http.StatusRequestTimeout, provider.ClassTransient},
		{http.StatusTooManyRequests, provider.ClassTransient},
		{http.StatusInternalServerError, provider.ClassTransient},
		{http.StatusServiceUnavailable, provider.ClassTransient},
	}

	for _, tc := range cases {
		status := tc.status
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(status)
			_, _ = w.Write([]byte(`{"message":"nope"}`))
		}))

		s := provider.NewHTTPSender(srv.URL, 5*time.Second)
		err := s.Send(context.Background(), "key", provider.Message{To: "a@example.com", From: "b@example.com"})
		srv.Close()

		require.Errorf(t, err, "status %d", status)
		var sendErr *provider.SendError
		require.ErrorAsf(t, err, &sendErr, "status %d", status)
		assert.Equalf(t, tc.want, sendErr.Class, "status %d", status)
		assert.Equal(t, status, sendErr.StatusCode)
		assert.Contains(t, sendErr.Reason, "nope")
	}
}

func TestHTTPSenderTimeoutIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	s := provider.NewHTTPSender(srv.URL, 5*time.Second)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := s.Send(ctx, "key", provider.Message{To: "a@example.com", From: "b@example.com"})
	require.Error(t, err)
	assert.Equal(t, provider.ClassTransient, provider.Classify(err))
}

func TestHTTPSenderRequiresBaseURL(t *testing.T) {
	s := provider.NewHTTPSender("", time.Second)
	err := s.Send(context.Background(), "key", provider.Message{To: "a@example.com"})
	assert.Error(t, err)
}
