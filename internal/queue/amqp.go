package queue

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/streadway/amqp"
)

const maxDeliveryRetries = 3

// AMQPQueue is the broker-backed Queue used in production. Queues are
// declared durable and messages persistent, consumers ack manually.
type AMQPQueue struct {
	conn   *amqp.Connection
	ch     *amqp.Channel
	logger zerolog.Logger

	mu       sync.Mutex
	declared map[string]bool
}

func DialAMQP(url string, logger zerolog.Logger) (*AMQPQueue, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("amqp dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("amqp channel: %w", err)
	}
	return &AMQPQueue{
		conn:     conn,
		ch:       ch,
		logger:   logger,
		declared: make(map[string]bool),
	}, nil
}

func (q *AMQPQueue) ensureQueue(topic string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.declared[topic] {
		return nil
	}
	_, err := q.ch.QueueDeclare(
		topic, // name
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		return fmt.Errorf("declare queue %s: %w", topic, err)
	}
	q.declared[topic] = true
	return nil
}

func (q *AMQPQueue) Publish(topic string, req DispatchRequest) error {
	if err := q.ensureQueue(topic); err != nil {
		return err
	}
	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("encode dispatch request: %w", err)
	}
	return q.ch.Publish("", topic, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    uuid.NewString(),
		Body:         body,
	})
}

func (q *AMQPQueue) Subscribe(topic string, handler func(req DispatchRequest) error) error {
	if err := q.ensureQueue(topic); err != nil {
		return err
	}
	msgs, err := q.ch.Consume(
		topic,
		"",
		false, // autoAck = false for reliability
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("register consumer for %s: %w", topic, err)
	}

	go func() {
		for d := range msgs {
			var req DispatchRequest
			if err := json.Unmarshal(d.Body, &req); err != nil {
				q.logger.Error().Err(err).Str("topic", topic).Msg("dropping malformed queue message")
				_ = d.Ack(false)
				continue
			}

			if err := handler(req); err != nil {
				q.retry(topic, d, err)
				continue
			}
			_ = d.Ack(false)
		}
		q.logger.Warn().Str("topic", topic).Msg("queue consumer closed")
	}()

	return nil
}

// retry republishes the delivery with an incremented x-retry-count header
// and acks the original. A plain nack-requeue would redeliver immediately
// with the same headers and spin forever.
func (q *AMQPQueue) retry(topic string, d amqp.Delivery, cause error) {
	count := retryCount(d.Headers)
	if count >= maxDeliveryRetries {
		q.logger.Error().
			Err(cause).
			Str("topic", topic).
			Int("retries", count).
			Msg("dropping message after max retries")
		_ = d.Ack(false)
		return
	}

	err := q.ch.Publish("", topic, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    d.MessageId,
		Headers:      amqp.Table{"x-retry-count": int32(count + 1)},
		Body:         d.Body,
	})
	if err != nil {
		q.logger.Error().Err(err).Str("topic", topic).Msg("failed to requeue message, returning it unacked")
		_ = d.Nack(false, true)
		return
	}
	_ = d.Ack(false)

	q.logger.Warn().
		Err(cause).
		Str("topic", topic).
		Int("attempt", count+1).
		Msg("queue handler failed, message requeued")
}

// retryCount reads the x-retry-count header. Brokers hand integers back in
// several widths depending on the client that wrote them.
func retryCount(h amqp.Table) int {
	v, ok := h["x-retry-count"]
	if !ok {
		return 0
	}
	switch n := v.(type) {
	case int:
		return n
	case int32:
		return int(n)
	case int64:
		return int(n)
	}
	return 0
}

func (q *AMQPQueue) Close() error {
	if err := q.ch.Close(); err != nil {
		q.conn.Close()
		return err
	}
	return q.conn.Close()
}

var _ Queue = (*AMQPQueue)(nil)
