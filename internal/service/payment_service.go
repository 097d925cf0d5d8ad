package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/palakgarg19/Happening/internal/model"
	"github.com/palakgarg19/Happening/internal/payment"
	"github.com/palakgarg19/Happening/internal/repository"
)

// ErrSignatureMismatch is returned when a payment verification signature
// does not match. No state changes on a mismatch; the caller must not
// treat the booking as paid.
var ErrSignatureMismatch = errors.New("payment verification failed")

// PaymentService creates gateway orders for pending bookings and turns a
// verified checkout into a confirmed booking. Confirmation is a
// synchronous state transition inside one transaction, not a callback,
// so payment and booking status always move together.
type PaymentService struct {
	db        *sql.DB
	bookings  *repository.BookingRepo
	payments  *repository.PaymentRepo
	gateway   payment.Gateway
	keyID     string
	keySecret string
	currency  string
}

// NewPaymentService constructs a PaymentService. keyID is echoed back to
// clients so they can open the gateway checkout; keySecret signs and
// verifies checkout signatures.
func NewPaymentService(db *sql.DB, bookings *repository.BookingRepo, payments *repository.PaymentRepo, gw payment.Gateway, keyID, keySecret, currency string) *PaymentService {
	if db == nil || bookings == nil || payments == nil || gw == nil {
		panic("nil dependency passed to NewPaymentService")
	}
	return &PaymentService{
		db: db, bookings: bookings, payments: payments, gateway: gw,
		keyID: keyID, keySecret: keySecret, currency: currency,
	}
}

// OrderResponse is what a client needs to open the gateway checkout.
type OrderResponse struct {
	OrderID     string `json:"order_id"`
	AmountCents int64  `json:"amount_cents"`
	Currency    string `json:"currency"`
	KeyID       string `json:"key_id"`
}

// CreateOrder registers a gateway order for a pending booking owned by
// the caller and records a pending payment row carrying the order id.
func (s *PaymentService) CreateOrder(ctx context.Context, bookingID, userID uint64) (*OrderResponse, error) {
	booking, err := s.bookings.GetPendingForUser(ctx, bookingID, userID)
	if err != nil {
		return nil, err
	}

	receipt := fmt.Sprintf("happening_%d", time.Now().UnixMilli())
	order, err := s.gateway.CreateOrder(ctx, booking.TotalAmountCents, s.currency, receipt, map[string]string{
		"booking_id": strconv.FormatUint(booking.ID, 10),
		"user_id":    strconv.FormatUint(userID, 10),
	})
	if err != nil {
		return nil, fmt.Errorf("create gateway order: %w", err)
	}

	p := &model.Payment{
		BookingID:       booking.ID,
		PaymentIntentID: order.ID,
		AmountCents:     booking.TotalAmountCents,
		Currency:        s.currency,
		Status:          model.PaymentPending,
	}
	if err := s.payments.Create(ctx, p); err != nil {
		return nil, fmt.Errorf("record payment: %w", err)
	}

	return &OrderResponse{
		OrderID:     order.ID,
		AmountCents: booking.TotalAmountCents,
		Currency:    s.currency,
		KeyID:       s.keyID,
	}, nil
}

// ResumeOrder creates a fresh gateway order for a booking whose previous
// checkout was abandoned. Allowed only while the booking is still
// pending; the payment row is pointed at the new order and reset to
// pending, so the retry cannot double-book inventory.
func (s *PaymentService) ResumeOrder(ctx context.Context, bookingID, userID uint64) (*OrderResponse, error) {
	booking, err := s.bookings.GetPendingForUser(ctx, bookingID, userID)
	if err != nil {
		return nil, err
	}

	receipt := fmt.Sprintf("resume_%d", time.Now().UnixMilli())
	order, err := s.gateway.CreateOrder(ctx, booking.TotalAmountCents, s.currency, receipt, map[string]string{
		"booking_id": strconv.FormatUint(booking.ID, 10),
		"user_id":    strconv.FormatUint(userID, 10),
	})
	if err != nil {
		return nil, fmt.Errorf("create gateway order: %w", err)
	}

	if err := s.payments.UpsertForBooking(ctx, booking.ID, order.ID, booking.TotalAmountCents, s.currency); err != nil {
		return nil, fmt.Errorf("record payment: %w", err)
	}

	return &OrderResponse{
		OrderID:     order.ID,
		AmountCents: booking.TotalAmountCents,
		Currency:    s.currency,
		KeyID:       s.keyID,
	}, nil
}

// Verify checks the checkout signature and, on match, marks the payment
// succeeded and the booking confirmed in one transaction. A tampered
// signature returns ErrSignatureMismatch with no state change at all.
func (s *PaymentService) Verify(ctx context.Context, orderID, paymentID, signature string) error {
	if !payment.SignatureValid(s.keySecret, orderID, paymentID, signature) {
		return ErrSignatureMismatch
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin verify tx: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	bookingID, err := s.payments.MarkSucceededByOrderTx(ctx, tx, orderID, paymentID)
	if err != nil {
		return err
	}
	if err := s.bookings.UpdateStatusTx(ctx, tx, bookingID, model.BookingConfirmed); err != nil {
		return fmt.Errorf("confirm booking: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit verify tx: %w", err)
	}
	committed = true
	return nil
}

// PaymentStatus is the payment of a booking together with the booking's
// own status.
type PaymentStatus struct {
	Payment       *model.Payment `json:"payment"`
	BookingStatus string         `json:"booking_status"`
}

// Status returns the payment state of a booking owned by the caller.
func (s *PaymentService) Status(ctx context.Context, bookingID, userID uint64) (*PaymentStatus, error) {
	p, bookingStatus, err := s.payments.GetByBookingForUser(ctx, bookingID, userID)
	if err != nil {
		return nil, err
	}
	return &PaymentStatus{Payment: p, BookingStatus: bookingStatus}, nil
}

// RefundStatus polls the gateway for a refund's current state,
// reconciling the local record opportunistically: the gateway's
// "processed" maps to the local refunded status. Authorization is by
// owning user.
func (s *PaymentService) RefundStatus(ctx context.Context, refundID string, userID uint64) (*payment.RefundDetails, error) {
	local, err := s.payments.GetByRefundForUser(ctx, refundID, userID)
	if err != nil {
		return nil, err
	}

	details, err := s.gateway.FetchRefund(ctx, refundID)
	if err != nil {
		return nil, fmt.Errorf("fetch refund: %w", err)
	}

	mapped := details.Status
	if mapped == payment.RefundStatusProcessed {
		mapped = model.PaymentRefunded
	}
	if local.Status != mapped {
		if err := s.payments.UpdateStatusByRefund(ctx, refundID, mapped); err != nil {
			return nil, fmt.Errorf("reconcile refund status: %w", err)
		}
	}
	return details, nil
}
