package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Ensure HTTPSender implements Sender
var _ Sender = (*HTTPSender)(nil)

// HTTPSender posts messages to a JSON mail API. The credential secret rides
// in the api-key header, so rotating credentials needs no client state.
type HTTPSender struct {
	baseURL string
	http    *http.Client
}

func NewHTTPSender(baseURL string, timeout time.Duration) *HTTPSender {
	return &HTTPSender{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

type apiEmail struct {
	To          []map[string]string `json:"to"`
	Sender      map[string]string   `json:"sender"`
	Subject     string              `json:"subject"`
	TextContent string              `json:"textContent"`
}

func (s *HTTPSender) Send(ctx context.Context, secret string, msg Message) error {
	if s.baseURL == "" {
		return fmt.Errorf("http sender not configured")
	}

	to := map[string]string{"email": msg.To}
	if msg.ToName != "" {
		to["name"] = msg.ToName
	}
	sender := map[string]string{"email": msg.From}
	if msg.FromName != "" {
		sender["name"] = msg.FromName
	}
	payload := apiEmail{
		To:          []map[string]string{to},
		Sender:      sender,
		Subject:     msg.Subject,
		TextContent: msg.Body,
	}
	buf, _ := json.Marshal(payload)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/v3/smtp/email", bytes.NewReader(buf))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("api-key", secret)

	resp, err := s.http.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 300 {
		return nil
	}

	reason := resp.Status
	if snippet := readSnippet(resp.Body); snippet != "" {
		reason = fmt.Sprintf("%s: %s", resp.Status, snippet)
	}

	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return &SendError{Class: ClassCredentialRejected, Reason: reason, StatusCode: resp.StatusCode}
	case http.StatusBadRequest, http.StatusNotFound, http.StatusUnprocessableEntity:
		return &SendError{Class: ClassRecipientRejected, Reason: reason, StatusCode: resp.StatusCode}
	default:
		// 408, 429, 5xx and anything unexpected
		return &SendError{Class: ClassTransient, Reason: reason, StatusCode: resp.StatusCode}
	}
}

func readSnippet(r io.Reader) string {
	b, err := io.ReadAll(io.LimitReader(r, 512))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(b))
}
