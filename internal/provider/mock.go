package provider

import (
	"context"
	"math/rand"
)

var _ Sender = (*MockSender)(nil)

// MockSender simulates a provider for local development. FailRate is the
// probability of a transient failure per send.
type MockSender struct {
	FailRate float64
}

func (s *MockSender) Send(ctx context.Context, secret string, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.FailRate > 0 && rand.Float64() < s.FailRate {
		return &SendError{Class: ClassTransient, Reason: "mock sending failed"}
	}
	return nil
}
