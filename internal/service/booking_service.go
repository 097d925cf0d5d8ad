// Package service implements the booking, payment and cancellation
// business logic. Every operation that touches inventory counters runs
// inside a single transaction that holds the event row lock for the
// duration of read, decision and write, so concurrent attempts against
// the same event are strictly serialized while different events proceed
// independently.
package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"

	"github.com/palakgarg19/Happening/internal/model"
	"github.com/palakgarg19/Happening/internal/queue"
	"github.com/palakgarg19/Happening/internal/repository"
)

// Validation errors returned before any side effect.
var (
	ErrInvalidEventID     = errors.New("event id is required")
	ErrInvalidTicketCount = errors.New("ticket count must be a positive integer")
)

// BookingService is the admission gateway and the shared booking
// transaction. When a queue publisher is configured, submissions are
// enqueued and processed asynchronously by the worker; otherwise (or
// when the broker is unreachable) the booking transaction runs in-line.
type BookingService struct {
	db        *sql.DB
	events    *repository.EventRepo
	bookings  *repository.BookingRepo
	publisher *queue.Publisher // nil disables the async path
}

// NewBookingService constructs a BookingService. publisher may be nil,
// which forces every submission down the synchronous path.
func NewBookingService(db *sql.DB, events *repository.EventRepo, bookings *repository.BookingRepo, publisher *queue.Publisher) *BookingService {
	if db == nil || events == nil || bookings == nil {
		panic("nil dependency passed to NewBookingService")
	}
	return &BookingService{db: db, events: events, bookings: bookings, publisher: publisher}
}

// SubmitResult is the outcome of a booking submission. Queued means the
// request was accepted for asynchronous processing and no booking exists
// yet; otherwise Booking holds the synchronously created record.
type SubmitResult struct {
	Queued  bool
	Booking *model.Booking
}

// Submit validates the request and either enqueues it on the durable
// work queue or executes the booking transaction in-line. A publish
// failure is logged and falls through to the synchronous path, so the
// caller always gets a definite answer when the broker is down.
func (s *BookingService) Submit(ctx context.Context, eventID, userID uint64, ticketCount int) (*SubmitResult, error) {
	if eventID == 0 {
		return nil, ErrInvalidEventID
	}
	if ticketCount <= 0 {
		return nil, ErrInvalidTicketCount
	}

	if s.publisher != nil {
		job := queue.BookingJob{EventID: eventID, UserID: userID, TicketCount: ticketCount}
		if err := s.publisher.Publish(ctx, job); err == nil {
			return &SubmitResult{Queued: true}, nil
		}
		log.Printf("booking-service: queue unavailable, falling back to synchronous booking (event %d)", eventID)
	}

	booking, err := s.Apply(ctx, eventID, userID, ticketCount)
	if err != nil {
		return nil, err
	}
	return &SubmitResult{Booking: booking}, nil
}

// Apply runs the booking transaction shared by the worker and the
// fallback path: lock the event row, check inventory, decrement, insert
// a pending booking, commit. Any failure rolls the whole thing back —
// no partial decrement, no orphan booking.
func (s *BookingService) Apply(ctx context.Context, eventID, userID uint64, ticketCount int) (*model.Booking, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin booking tx: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	ev, err := s.events.LockForUpdateTx(ctx, tx, eventID)
	if err != nil {
		return nil, err
	}
	if ev.IsCancelled {
		return nil, repository.ErrEventCancelled
	}
	if ev.AvailableTickets < ticketCount {
		return nil, repository.ErrInsufficientTickets
	}

	if err := s.events.SetAvailableTx(ctx, tx, eventID, ev.AvailableTickets-ticketCount); err != nil {
		return nil, fmt.Errorf("decrement inventory: %w", err)
	}

	booking := &model.Booking{
		UserID:           userID,
		EventID:          eventID,
		TicketCount:      ticketCount,
		TotalAmountCents: ev.PriceCents * int64(ticketCount),
		Status:           model.BookingPending,
	}
	if err := s.bookings.CreateTx(ctx, tx, booking); err != nil {
		return nil, fmt.Errorf("create booking: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit booking tx: %w", err)
	}
	committed = true
	return booking, nil
}

// ProcessBooking is the queue.Processor implementation used by the
// worker binary. A business rejection and an infrastructure failure look
// the same to the worker: the job is dropped either way.
func (s *BookingService) ProcessBooking(ctx context.Context, job queue.BookingJob) error {
	booking, err := s.Apply(ctx, job.EventID, job.UserID, job.TicketCount)
	if err != nil {
		return err
	}
	log.Printf("booking-worker: created booking %d (event %d, user %d, tickets %d)",
		booking.ID, job.EventID, job.UserID, job.TicketCount)
	return nil
}
