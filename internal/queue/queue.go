package queue

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	appErrors "github.com/driftmailhq/driftmail-backend/internal/errors"
	"github.com/driftmailhq/driftmail-backend/internal/service"
)

// Request kinds.
const (
	KindJob   = "job"
	KindAdhoc = "adhoc"
)

// DispatchRequest is the unit of work handed from the API to the worker.
// Kind selects the path: "job" runs a stored job by ID, "adhoc" sends a
// template to explicit addresses.
type DispatchRequest struct {
	Kind       string   `json:"kind"`
	TenantID   int      `json:"tenant_id"`
	JobID      int      `json:"job_id,omitempty"`
	TemplateID int      `json:"template_id,omitempty"`
	Addresses  []string `json:"addresses,omitempty"`
	BatchID    string   `json:"batch_id,omitempty"`
}

// Queue interface
type Queue interface {
	Publish(topic string, req DispatchRequest) error
	Subscribe(topic string, handler func(req DispatchRequest) error) error
}

// InMemoryQueue runs handlers in-process with retry, used in development
// and tests where no broker is available.
type InMemoryQueue struct {
	mu       sync.Mutex
	logger   zerolog.Logger
	handlers map[string][]func(req DispatchRequest) error
}

func NewInMemoryQueue(logger zerolog.Logger) *InMemoryQueue {
	return &InMemoryQueue{
		logger:   logger,
		handlers: make(map[string][]func(req DispatchRequest) error),
	}
}

// delivery wraps a request with retry info
type delivery struct {
	Request    DispatchRequest
	RetryCount int
	MaxRetries int
}

// Publish hands the request to all subscribers of the topic.
func (q *InMemoryQueue) Publish(topic string, req DispatchRequest) error {
	q.mu.Lock()
	handlers := q.handlers[topic]
	q.mu.Unlock()

	if len(handlers) == 0 {
		return fmt.Errorf("no subscribers for topic %s", topic)
	}

	d := delivery{
		Request:    req,
		RetryCount: 0,
		MaxRetries: 3,
	}

	for _, handler := range handlers {
		go q.process(topic, handler, d)
	}

	return nil
}

// process handles retries and errors
func (q *InMemoryQueue) process(topic string, handler func(req DispatchRequest) error, d delivery) {
	for d.RetryCount <= d.MaxRetries {
		err := handler(d.Request)
		if err == nil {
			return
		}

		d.RetryCount++
		q.logger.Warn().
			Err(err).
			Str("topic", topic).
			Int("attempt", d.RetryCount).
			Int("max_retries", d.MaxRetries).
			Msg("queue handler failed")

		if d.RetryCount > d.MaxRetries {
			q.logger.Error().
				Str("topic", topic).
				Str("kind", d.Request.Kind).
				Int("tenant_id", d.Request.TenantID).
				Msg("dropping request after max retries")
			return
		}

		time.Sleep(time.Duration(d.RetryCount*500) * time.Millisecond)
	}
}

// Subscribe adds a handler for a topic
func (q *InMemoryQueue) Subscribe(topic string, handler func(req DispatchRequest) error) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.handlers[topic] = append(q.handlers[topic], handler)
	return nil
}

var _ Queue = (*InMemoryQueue)(nil)

// StartDispatchSubscriber wires the dispatch topic to the scheduler and
// engine: job requests run a stored job, adhoc requests send a template to
// explicit addresses. Missing jobs and templates are dropped rather than
// retried, they will not appear by retrying.
func StartDispatchSubscriber(q Queue, topic string, sched *service.JobScheduler, engine *service.DispatchEngine, logger zerolog.Logger) {
	go func() {
		err := q.Subscribe(topic, func(req DispatchRequest) error {
			ctx := context.Background()

			switch req.Kind {
			case KindJob:
				err := sched.RunJobNow(ctx, req.JobID, req.TenantID)
				if appErrors.IsJobNotFound(err) {
					logger.Warn().Int("job_id", req.JobID).Msg("queued job no longer exists, dropping")
					return nil
				}
				return err

			case KindAdhoc:
				_, err := engine.DispatchNow(ctx, req.TenantID, req.TemplateID, req.Addresses, req.BatchID)
				if appErrors.IsTemplateNotFound(err) {
					logger.Warn().Int("template_id", req.TemplateID).Msg("queued send references a missing template, dropping")
					return nil
				}
				return err
			}

			logger.Warn().Str("kind", req.Kind).Msg("unknown dispatch request kind, dropping")
			return nil
		})

		if err != nil {
			logger.Error().Err(err).Str("topic", topic).Msg("failed to start dispatch subscriber")
		}
	}()
}
