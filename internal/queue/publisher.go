package queue

import (
	"context"
	"encoding/json"
	"log"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Publisher writes booking jobs to the durable work queue. Each publish
// dials a fresh connection; the admission path treats any returned error
// as "queue unavailable" and falls back to the synchronous booking
// transaction, so publish failures must never panic.
type Publisher struct {
	url string
}

// NewPublisher returns a Publisher that dials the given AMQP URL.
func NewPublisher(url string) *Publisher { return &Publisher{url: url} }

// Publish serializes the job and sends it to the booking_jobs queue with
// the persistent delivery mode so it survives a broker restart. The queue
// is declared durable on every publish (idempotent).
func (p *Publisher) Publish(ctx context.Context, job BookingJob) error {
	conn, err := amqp.Dial(p.url)
	if err != nil {
		log.Printf("queue-publisher: dial failed: %v", err)
		return err
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		log.Printf("queue-publisher: channel open failed: %v", err)
		return err
	}
	defer func() { _ = ch.Close() }()

	if _, err := ch.QueueDeclare(
		BookingJobQueue, // name
		true,            // durable
		false,           // autoDelete
		false,           // exclusive
		false,           // noWait
		nil,             // args
	); err != nil {
		log.Printf("queue-publisher: queue declare failed: %v", err)
		return err
	}

	body, err := json.Marshal(job)
	if err != nil {
		return err
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent, // store on disk
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}

	if err := ch.PublishWithContext(ctx,
		"",              // default exchange
		BookingJobQueue, // routing key = queue name
		false,           // mandatory
		false,           // immediate
		pub,
	); err != nil {
		log.Printf("queue-publisher: publish failed: %v", err)
		return err
	}
	return nil
}
