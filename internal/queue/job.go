// Package queue contains the durable booking work queue: the typed job
// payload, the publisher used by the admission path and the single-consumer
// worker loop. Messages are persistent and the queue is durable, so
// accepted jobs survive a broker restart.
package queue

import (
	"errors"
	"fmt"
)

// BookingJobQueue is the durable queue booking requests are published to.
const BookingJobQueue = "booking_jobs"

// BookingJob is the message payload for an accepted booking request. It
// is validated at deserialization time; invalid messages are dropped with
// a logged reason instead of crashing the worker.
type BookingJob struct {
	EventID     uint64 `json:"event_id"`
	UserID      uint64 `json:"user_id"`
	TicketCount int    `json:"ticket_count"`
}

// Validate reports whether the job references an event and user and
// requests a positive ticket count.
func (j BookingJob) Validate() error {
	if j.EventID == 0 {
		return errors.New("event_id is required")
	}
	if j.UserID == 0 {
		return errors.New("user_id is required")
	}
	if j.TicketCount <= 0 {
		return fmt.Errorf("ticket_count must be positive, got %d", j.TicketCount)
	}
	return nil
}
