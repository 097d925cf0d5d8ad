package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/palakgarg19/Happening/internal/cache"
	"github.com/palakgarg19/Happening/internal/model"
	"github.com/palakgarg19/Happening/internal/payment"
	"github.com/palakgarg19/Happening/internal/repository"
)

// CancellationWindow is how far before the event start a confirmed
// booking can still be cancelled. Requests inside the window are
// rejected: strictly less than 24h to go means no cancellation.
const CancellationWindow = 24 * time.Hour

// ErrCancellationWindow is returned when a confirmed booking is
// cancelled too close to the event start.
var ErrCancellationWindow = errors.New("cannot cancel within 24 hours of the event")

// RefundOutcome describes what the refund orchestrator did for one
// booking.
type RefundOutcome string

const (
	// RefundNoPayment – the booking has no successful payment, nothing to
	// refund. Treated as success.
	RefundNoPayment RefundOutcome = "no_payment"
	// RefundAlreadyRefunded – the payment was already refunded, locally or
	// at the gateway. No second refund is issued.
	RefundAlreadyRefunded RefundOutcome = "already_refunded"
	// RefundProcessed – a refund was issued in this call.
	RefundProcessed RefundOutcome = "processed"
	// RefundNotCaptured – the gateway never captured the funds, so there
	// is nothing to return.
	RefundNotCaptured RefundOutcome = "not_captured"
)

// CancellationService drives booking cancellations and the event-wide
// cancellation cascade. The refund orchestrator runs on the caller's
// transaction so a gateway failure aborts everything: a booking is never
// committed as cancelled while its refund is unaccounted for.
type CancellationService struct {
	db       *sql.DB
	events   *repository.EventRepo
	bookings *repository.BookingRepo
	payments *repository.PaymentRepo
	gateway  payment.Gateway
	cache    cache.Cache // may be nil
}

// NewCancellationService constructs a CancellationService. evCache may
// be nil when no cache is configured.
func NewCancellationService(db *sql.DB, events *repository.EventRepo, bookings *repository.BookingRepo, payments *repository.PaymentRepo, gw payment.Gateway, evCache cache.Cache) *CancellationService {
	if db == nil || events == nil || bookings == nil || payments == nil || gw == nil {
		panic("nil dependency passed to NewCancellationService")
	}
	return &CancellationService{
		db: db, events: events, bookings: bookings, payments: payments,
		gateway: gw, cache: evCache,
	}
}

// processRefund reconciles a booking's payment with the gateway and
// issues a refund exactly once. It runs inside the caller's transaction:
// its row updates commit or roll back with the caller's booking and
// inventory mutations. A gateway refund error is returned as an error so
// the enclosing transaction aborts.
func (s *CancellationService) processRefund(ctx context.Context, tx *sql.Tx, bookingID uint64) (RefundOutcome, *string, error) {
	p, err := s.payments.LockRefundableTx(ctx, tx, bookingID)
	if err != nil {
		if errors.Is(err, repository.ErrPaymentNotFound) {
			return RefundNoPayment, nil, nil
		}
		return "", nil, err
	}

	// Idempotent short-circuit: a second invocation for the same booking
	// sees the refunded row and never reaches the gateway again.
	if p.Status == model.PaymentRefunded {
		return RefundAlreadyRefunded, p.RefundID, nil
	}

	details, err := s.gateway.FetchPayment(ctx, p.PaymentIntentID)
	if err != nil {
		return "", nil, fmt.Errorf("fetch payment %s: %w", p.PaymentIntentID, err)
	}

	switch {
	case details.Status == model.PaymentRefunded || details.AmountRefundedCents > 0:
		// The gateway already refunded this payment; catch the local
		// record up.
		if err := s.payments.MarkRefundedTx(ctx, tx, p.PaymentIntentID, nil); err != nil {
			return "", nil, err
		}
		return RefundAlreadyRefunded, nil, nil
	case details.Captured:
		refund, err := s.gateway.Refund(ctx, p.PaymentIntentID, p.AmountCents, map[string]string{
			"booking_id": strconv.FormatUint(bookingID, 10),
			"reason":     "cancellation",
		})
		if err != nil {
			// Must abort the enclosing transaction: committing a cancelled
			// booking without a confirmed refund would lose track of money.
			return "", nil, fmt.Errorf("refund payment %s: %w", p.PaymentIntentID, err)
		}
		if err := s.payments.MarkRefundedTx(ctx, tx, p.PaymentIntentID, &refund.ID); err != nil {
			return "", nil, err
		}
		return RefundProcessed, &refund.ID, nil
	default:
		return RefundNotCaptured, nil, nil
	}
}

// CancelPending cancels a booking that is still exactly pending. No
// refund is attempted — a pending booking has no successful payment —
// and the reserved tickets go back to the event, atomically.
func (s *CancellationService) CancelPending(ctx context.Context, bookingID, userID uint64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin cancel tx: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	booking, err := s.bookings.LockPendingForUserTx(ctx, tx, bookingID, userID)
	if err != nil {
		return err
	}
	if err := s.bookings.UpdateStatusTx(ctx, tx, booking.ID, model.BookingCancelled); err != nil {
		return err
	}
	if err := s.events.RestoreTicketsTx(ctx, tx, booking.EventID, booking.TicketCount); err != nil {
		return fmt.Errorf("restore tickets: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit cancel tx: %w", err)
	}
	committed = true
	return nil
}

// CancelConfirmed cancels a confirmed booking: refund first, then the
// status flip, then ticket restoration, all in one transaction. Rejected
// when the event starts in less than CancellationWindow.
func (s *CancellationService) CancelConfirmed(ctx context.Context, bookingID, userID uint64) (RefundOutcome, *string, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", nil, fmt.Errorf("begin cancel tx: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	booking, startsAt, err := s.bookings.LockConfirmedWithEventTx(ctx, tx, bookingID, userID)
	if err != nil {
		return "", nil, err
	}
	if time.Until(startsAt) < CancellationWindow {
		return "", nil, ErrCancellationWindow
	}

	outcome, refundID, err := s.processRefund(ctx, tx, booking.ID)
	if err != nil {
		return "", nil, err
	}
	if err := s.bookings.UpdateStatusTx(ctx, tx, booking.ID, model.BookingCancelled); err != nil {
		return "", nil, err
	}
	if err := s.events.RestoreTicketsTx(ctx, tx, booking.EventID, booking.TicketCount); err != nil {
		return "", nil, fmt.Errorf("restore tickets: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return "", nil, fmt.Errorf("commit cancel tx: %w", err)
	}
	committed = true
	return outcome, refundID, nil
}

// CancelEvent cancels an entire event: it locks the event and all its
// confirmed bookings, refunds and cancels each, flags the event
// cancelled and restores the full inventory (available = total). Only
// the event's host or an admin may cancel, and only once — an already
// cancelled event is rejected. Pending bookings are left untouched: they
// hold no payment to refund, and the full inventory reset supersedes
// their reservations.
func (s *CancellationService) CancelEvent(ctx context.Context, eventID, userID uint64, role string) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin cancel tx: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	ev, err := s.events.LockForUpdateTx(ctx, tx, eventID)
	if err != nil {
		return 0, err
	}
	if ev.CreatedBy != userID && role != model.RoleAdmin {
		return 0, repository.ErrForbidden
	}
	if ev.IsCancelled {
		return 0, repository.ErrEventCancelled
	}

	confirmed, err := s.bookings.LockConfirmedByEventTx(ctx, tx, eventID)
	if err != nil {
		return 0, err
	}

	refunded := 0
	for _, booking := range confirmed {
		if _, _, err := s.processRefund(ctx, tx, booking.ID); err != nil {
			return 0, fmt.Errorf("refund booking %d: %w", booking.ID, err)
		}
		if err := s.bookings.UpdateStatusTx(ctx, tx, booking.ID, model.BookingCancelled); err != nil {
			return 0, err
		}
		refunded++
	}

	if err := s.events.MarkCancelledTx(ctx, tx, eventID); err != nil {
		return 0, fmt.Errorf("mark event cancelled: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit cancel tx: %w", err)
	}
	committed = true

	if s.cache != nil {
		s.cache.Delete(ctx, cache.EventKey(eventID), cache.KeyUpcomingEvents)
	}
	log.Printf("cancellation: event %d cancelled, %d bookings refunded", eventID, refunded)
	return refunded, nil
}
