package provider_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/driftmailhq/driftmail-backend/internal/provider"
)

func TestClassifySendError(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want provider.ErrorClass
	}{
		{"credential", &provider.SendError{Class: provider.ClassCredentialRejected, StatusCode: 401}, provider.ClassCredentialRejected},
		{"recipient", &provider.SendError{Class: provider.ClassRecipientRejected, StatusCode: 400}, provider.ClassRecipientRejected},
		{"transient", &provider.SendError{Class: provider.ClassTransient, StatusCode: 429}, provider.ClassTransient},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, provider.Classify(tc.err))
		})
	}
}

func TestClassifyWrappedSendError(t *testing.T) {
	inner := &provider.SendError{Class: provider.ClassCredentialRejected, Reason: "revoked"}
	wrapped := fmt.Errorf("send attempt 2: %w", inner)

	assert.Equal(t, provider.ClassCredentialRejected, provider.Classify(wrapped))
}

func TestClassifyTimeoutsAreTransient(t *testing.T) {
	assert.Equal(t, provider.ClassTransient, provider.Classify(context.DeadlineExceeded))
	assert.Equal(t, provider.ClassTransient, provider.Classify(fmt.Errorf("do request: %w", context.DeadlineExceeded)))
	assert.Equal(t, provider.ClassTransient, provider.Classify(timeoutErr{}))
}

func TestClassifyUnknownErrorIsTransient(t *testing.T) {
	assert.Equal(t, provider.ClassTransient, provider.Classify(errors.New("connection reset by peer")))
}

// timeoutErr satisfies net.Error the way a dial timeout does.
type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func TestSendErrorMessage(t *testing.T) {
	withStatus := &provider.SendError{Class: provider.ClassTransient, Reason: "too many requests", StatusCode: 429}
	assert.Equal(t, "provider send failed (transient, status 429): too many requests", withStatus.Error())

	withoutStatus := &provider.SendError{Class: provider.ClassTransient, Reason: "mock sending failed"}
	assert.Equal(t, "provider send failed (transient): mock sending failed", withoutStatus.Error())
}

func TestMockSenderAlwaysSucceedsAtZeroFailRate(t *testing.T) {
	s := &provider.MockSender{}
	for i := 0; i < 50; i++ {
		require.NoError(t, s.Send(context.Background(), "secret", provider.Message{To: "a@example.com"}))
	}
}

func TestMockSenderAlwaysFailsAtFullFailRate(t *testing.T) {
	s := &provider.MockSender{FailRate: 1}

	err := s.Send(context.Background(), "secret", provider.Message{To: "a@example.com"})
	require.Error(t, err)
	assert.Equal(t, provider.ClassTransient, provider.Classify(err))
}

func TestMockSenderHonorsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := &provider.MockSender{}
	err := s.Send(ctx, "secret", provider.Message{To: "a@example.com"})
	assert.ErrorIs(t, err, context.Canceled)
}
