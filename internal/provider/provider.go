// Package provider is the outbound delivery boundary. The contract is a
// synchronous Send with an explicit timeout carried by ctx; concurrency
// lives in the dispatch engine's worker pool, never inside a sender.
package provider

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// ErrorClass buckets a failed send for the dispatch engine's retry decision.
type ErrorClass string

const (
	// ClassCredentialRejected: the provider rejected the credential itself
	// (revoked, invalid). The credential is permanently deactivated and the
	// send fails over to a different one.
	ClassCredentialRejected ErrorClass = "credential_rejected"
	// ClassTransient: throttling, provider outage, timeout. The credential
	// stays eligible; the send fails over to a different one.
	ClassTransient ErrorClass = "transient"
	// ClassRecipientRejected: the recipient address or content is the
	// problem. Retrying cannot change the outcome, so there is no failover.
	ClassRecipientRejected ErrorClass = "recipient_rejected"
)

// Message is one rendered outbound message.
type Message struct {
	To       string
	ToName   string
	From     string
	FromName string
	Subject  string
	Body     string
}

// Sender delivers one message using the given credential secret.
type Sender interface {
	Send(ctx context.Context, secret string, msg Message) error
}

// SendError is a classified provider failure.
type SendError struct {
	Class      ErrorClass
	Reason     string
	StatusCode int
}

func (e *SendError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("provider send failed (%s, status %d): %s", e.Class, e.StatusCode, e.Reason)
	}
	return fmt.Sprintf("provider send failed (%s): %s", e.Class, e.Reason)
}

// Classify maps an error returned by a Sender to its class. Timeouts and
// anything unclassified count as transient so the failover path applies.
func Classify(err error) ErrorClass {
	var sendErr *SendError
	if errors.As(err, &sendErr) {
		return sendErr.Class
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ClassTransient
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ClassTransient
	}
	return ClassTransient
}
