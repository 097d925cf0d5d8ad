package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Processor applies a booking job against the database. Implemented by
// the booking service; the worker never touches the database directly.
type Processor interface {
	ProcessBooking(ctx context.Context, job BookingJob) error
}

// Consumer drains the booking_jobs queue one message at a time. Qos is
// set to a prefetch of 1 so at most one job is in flight per consumer,
// which rate-limits database writes and serializes jobs FIFO per
// instance. Successful jobs are acked; any failure — malformed payload,
// business-rule rejection or an infrastructure error — is nacked without
// requeue. Retrying a failed inventory check would not change the
// outcome, so delivery is at-most-once and a transient failure drops the
// job permanently.
type Consumer struct {
	url       string
	processor Processor
}

// NewConsumer returns a Consumer that dials the given AMQP URL and hands
// each job to the processor.
func NewConsumer(url string, p Processor) *Consumer {
	return &Consumer{url: url, processor: p}
}

// Start connects to the broker, declares the durable queue and consumes
// until the context is cancelled. It runs a reconnect loop with capped
// exponential backoff so a broker restart does not kill the worker.
func (c *Consumer) Start(ctx context.Context) error {
	backoff := time.Second
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		conn, err := amqp.Dial(c.url)
		if err != nil {
			log.Printf("booking-worker: failed to dial broker: %v; retrying in %s", err, backoff)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second // reset after successful connect

		if err := c.consumeLoop(ctx, conn); err != nil {
			_ = conn.Close()
			if ctx.Err() != nil {
				return ctx.Err()
			}
			log.Printf("booking-worker: consume loop ended: %v; reconnecting", err)
			time.Sleep(2 * time.Second)
		}
	}
}

func (c *Consumer) consumeLoop(ctx context.Context, conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	// One unacked message at a time: the whole point of the worker is to
	// pace database writes.
	if err := ch.Qos(1, 0, false); err != nil {
		return fmt.Errorf("set qos: %w", err)
	}

	if _, err := ch.QueueDeclare(BookingJobQueue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}

	msgs, err := ch.Consume(BookingJobQueue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	log.Printf("booking-worker: waiting for jobs in %s", BookingJobQueue)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			if err := c.handle(ctx, d.Body); err != nil {
				log.Printf("booking-worker: job failed: %v", err)
				_ = d.Nack(false, false) // drop, do not requeue
				continue
			}
			_ = d.Ack(false)
		}
	}
}

// handle decodes, validates and applies a single job. Any returned error
// makes the caller nack the message without requeue.
func (c *Consumer) handle(ctx context.Context, body []byte) error {
	var job BookingJob
	if err := json.Unmarshal(body, &job); err != nil {
		return fmt.Errorf("unmarshal job: %w", err)
	}
	if err := job.Validate(); err != nil {
		return fmt.Errorf("invalid job: %w", err)
	}
	if err := c.processor.ProcessBooking(ctx, job); err != nil {
		return fmt.Errorf("process booking (event %d, user %d): %w", job.EventID, job.UserID, err)
	}
	return nil
}
