package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/palakgarg19/Happening/internal/model"
)

// PaymentRepo provides access to the payments table. booking_id carries a
// unique constraint so at most one active payment row exists per booking;
// resuming a checkout rewrites the order reference on the existing row.
type PaymentRepo struct {
	db *sql.DB
}

// NewPaymentRepo returns a new PaymentRepo bound to the given database.
func NewPaymentRepo(db *sql.DB) *PaymentRepo { return &PaymentRepo{db: db} }

// Create inserts a pending payment row for a booking, recording the
// gateway order id as payment_intent_id.
func (r *PaymentRepo) Create(ctx context.Context, p *model.Payment) error {
	const q = `INSERT INTO payments (booking_id, payment_intent_id, amount_cents, currency, status)
		VALUES (?, ?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, q, p.BookingID, p.PaymentIntentID, p.AmountCents, p.Currency, p.Status)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	p.ID = uint64(id)
	return nil
}

// UpsertForBooking points the booking's payment row at a new gateway
// order and resets it to pending, creating the row if it does not exist.
// Used when a previously abandoned payment attempt is resumed.
func (r *PaymentRepo) UpsertForBooking(ctx context.Context, bookingID uint64, orderID string, amountCents int64, currency string) error {
	const q = `INSERT INTO payments (booking_id, payment_intent_id, amount_cents, currency, status)
		VALUES (?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE payment_intent_id = VALUES(payment_intent_id), status = VALUES(status)`
	_, err := r.db.ExecContext(ctx, q, bookingID, orderID, amountCents, currency, model.PaymentPending)
	return err
}

// MarkSucceededByOrderTx flips the payment identified by the gateway
// order id from pending to succeeded and replaces the intent id with the
// final payment id, returning the owning booking id. ErrPaymentNotFound
// when no pending payment carries that order id.
func (r *PaymentRepo) MarkSucceededByOrderTx(ctx context.Context, tx *sql.Tx, orderID, paymentID string) (uint64, error) {
	const q = `UPDATE payments SET status = ?, payment_intent_id = ?
		WHERE payment_intent_id = ? AND status = ?`
	res, err := tx.ExecContext(ctx, q, model.PaymentSucceeded, paymentID, orderID, model.PaymentPending)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	if n == 0 {
		return 0, ErrPaymentNotFound
	}
	var bookingID uint64
	err = tx.QueryRowContext(ctx,
		`SELECT booking_id FROM payments WHERE payment_intent_id = ?`, paymentID).Scan(&bookingID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrPaymentNotFound
		}
		return 0, err
	}
	return bookingID, nil
}

// LockRefundableTx locks the booking's payment row when its status is
// succeeded or refunded. ErrPaymentNotFound when no such row exists,
// which the refund orchestrator treats as "nothing to refund".
func (r *PaymentRepo) LockRefundableTx(ctx context.Context, tx *sql.Tx, bookingID uint64) (*model.Payment, error) {
	const q = `SELECT id, booking_id, payment_intent_id, amount_cents, currency, status, refund_id, created_at, updated_at
		FROM payments
		WHERE booking_id = ? AND status IN (?, ?)
		FOR UPDATE`
	return scanPayment(tx.QueryRowContext(ctx, q, bookingID, model.PaymentSucceeded, model.PaymentRefunded))
}

// MarkRefundedTx moves the payment identified by its gateway reference
// to refunded, recording the refund id when one was issued.
func (r *PaymentRepo) MarkRefundedTx(ctx context.Context, tx *sql.Tx, intentID string, refundID *string) error {
	if refundID != nil {
		_, err := tx.ExecContext(ctx,
			`UPDATE payments SET status = ?, refund_id = ? WHERE payment_intent_id = ?`,
			model.PaymentRefunded, *refundID, intentID)
		return err
	}
	_, err := tx.ExecContext(ctx,
		`UPDATE payments SET status = ? WHERE payment_intent_id = ?`,
		model.PaymentRefunded, intentID)
	return err
}

// GetByBookingForUser returns the payment of a booking together with the
// booking's status, enforcing that the booking belongs to the caller.
// ErrPaymentNotFound covers both "no payment" and "not yours".
func (r *PaymentRepo) GetByBookingForUser(ctx context.Context, bookingID, userID uint64) (*model.Payment, string, error) {
	const q = `SELECT p.id, p.booking_id, p.payment_intent_id, p.amount_cents, p.currency, p.status, p.refund_id,
			p.created_at, p.updated_at, b.status
		FROM payments p
		JOIN bookings b ON b.id = p.booking_id
		WHERE p.booking_id = ? AND b.user_id = ?`
	var p model.Payment
	var refundID sql.NullString
	var bookingStatus string
	err := r.db.QueryRowContext(ctx, q, bookingID, userID).Scan(
		&p.ID, &p.BookingID, &p.PaymentIntentID, &p.AmountCents, &p.Currency, &p.Status, &refundID,
		&p.CreatedAt, &p.UpdatedAt, &bookingStatus,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, "", ErrPaymentNotFound
		}
		return nil, "", err
	}
	if refundID.Valid {
		rid := refundID.String
		p.RefundID = &rid
	}
	return &p, bookingStatus, nil
}

// GetByRefundForUser returns the payment carrying the given refund id
// when the underlying booking belongs to the caller.
func (r *PaymentRepo) GetByRefundForUser(ctx context.Context, refundID string, userID uint64) (*model.Payment, error) {
	const q = `SELECT p.id, p.booking_id, p.payment_intent_id, p.amount_cents, p.currency, p.status, p.refund_id,
			p.created_at, p.updated_at
		FROM payments p
		JOIN bookings b ON b.id = p.booking_id
		WHERE p.refund_id = ? AND b.user_id = ?`
	return scanPayment(r.db.QueryRowContext(ctx, q, refundID, userID))
}

// UpdateStatusByRefund reconciles the local status for the payment
// carrying the given refund reference.
func (r *PaymentRepo) UpdateStatusByRefund(ctx context.Context, refundID, status string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE payments SET status = ? WHERE refund_id = ?`, status, refundID)
	return err
}

func scanPayment(row *sql.Row) (*model.Payment, error) {
	var p model.Payment
	var refundID sql.NullString
	err := row.Scan(
		&p.ID, &p.BookingID, &p.PaymentIntentID, &p.AmountCents, &p.Currency, &p.Status, &refundID,
		&p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPaymentNotFound
		}
		return nil, err
	}
	if refundID.Valid {
		rid := refundID.String
		p.RefundID = &rid
	}
	return &p, nil
}
