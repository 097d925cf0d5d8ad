package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/palakgarg19/Happening/internal/model"
)

// BookingRepo provides CRUD operations for bookings. Bookings are never
// deleted: cancelled rows are kept for audit and refund lookup. Status
// transitions and the corresponding inventory mutations always happen in
// the same transaction, so most methods here are *Tx variants operating
// on a caller-supplied *sql.Tx.
type BookingRepo struct {
	db *sql.DB
}

// NewBookingRepo returns a new BookingRepo bound to the given database.
func NewBookingRepo(db *sql.DB) *BookingRepo { return &BookingRepo{db: db} }

// DB exposes the underlying handle so services can open transactions.
func (r *BookingRepo) DB() *sql.DB { return r.db }

// CreateTx inserts a new booking within the scope of an existing
// transaction and populates the generated ID on the provided record.
// The caller must commit or rollback the transaction.
func (r *BookingRepo) CreateTx(ctx context.Context, tx *sql.Tx, b *model.Booking) error {
	const q = `INSERT INTO bookings (user_id, event_id, ticket_count, total_amount_cents, status)
		VALUES (?, ?, ?, ?, ?)`
	res, err := tx.ExecContext(ctx, q, b.UserID, b.EventID, b.TicketCount, b.TotalAmountCents, b.Status)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	b.ID = uint64(id)
	return nil
}

// GetPendingForUser returns the booking only when it exists, belongs to
// the user and is still pending. ErrBookingNotFound otherwise; callers
// that need to distinguish "exists but wrong state" treat both the same,
// matching the API contract.
func (r *BookingRepo) GetPendingForUser(ctx context.Context, bookingID, userID uint64) (*model.Booking, error) {
	const q = `SELECT id, user_id, event_id, ticket_count, total_amount_cents, status, created_at, updated_at
		FROM bookings WHERE id = ? AND user_id = ? AND status = ?`
	return r.scanOne(r.db.QueryRowContext(ctx, q, bookingID, userID, model.BookingPending))
}

// LockPendingForUserTx locks the booking row when it belongs to the user
// and is exactly pending. ErrBookingNotFound when no such row exists.
func (r *BookingRepo) LockPendingForUserTx(ctx context.Context, tx *sql.Tx, bookingID, userID uint64) (*model.Booking, error) {
	const q = `SELECT id, user_id, event_id, ticket_count, total_amount_cents, status, created_at, updated_at
		FROM bookings WHERE id = ? AND user_id = ? AND status = ? FOR UPDATE`
	return r.scanOne(tx.QueryRowContext(ctx, q, bookingID, userID, model.BookingPending))
}

// LockConfirmedWithEventTx locks a confirmed booking owned by the user
// and returns it together with the event start time, which the caller
// needs for the cancellation-window check. ErrBookingNotFound when the
// booking is absent, not owned, or not confirmed.
func (r *BookingRepo) LockConfirmedWithEventTx(ctx context.Context, tx *sql.Tx, bookingID, userID uint64) (*model.Booking, time.Time, error) {
	const q = `SELECT b.id, b.user_id, b.event_id, b.ticket_count, b.total_amount_cents, b.status,
			b.created_at, b.updated_at, e.date_time
		FROM bookings b
		JOIN events e ON e.id = b.event_id
		WHERE b.id = ? AND b.user_id = ? AND b.status = ?
		FOR UPDATE`
	var b model.Booking
	var startsAt time.Time
	err := tx.QueryRowContext(ctx, q, bookingID, userID, model.BookingConfirmed).Scan(
		&b.ID, &b.UserID, &b.EventID, &b.TicketCount, &b.TotalAmountCents, &b.Status,
		&b.CreatedAt, &b.UpdatedAt, &startsAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, time.Time{}, ErrBookingNotFound
		}
		return nil, time.Time{}, err
	}
	return &b, startsAt.UTC(), nil
}

// LockConfirmedByEventTx locks and returns all confirmed bookings of an
// event, ordered by id. Used by the event cancellation cascade so no
// booking can be concurrently cancelled or confirmed while it runs.
func (r *BookingRepo) LockConfirmedByEventTx(ctx context.Context, tx *sql.Tx, eventID uint64) ([]model.Booking, error) {
	const q = `SELECT id, user_id, event_id, ticket_count, total_amount_cents, status, created_at, updated_at
		FROM bookings WHERE event_id = ? AND status = ? ORDER BY id FOR UPDATE`
	rows, err := tx.QueryContext(ctx, q, eventID, model.BookingConfirmed)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	bookings := make([]model.Booking, 0)
	for rows.Next() {
		var b model.Booking
		if err := rows.Scan(
			&b.ID, &b.UserID, &b.EventID, &b.TicketCount, &b.TotalAmountCents, &b.Status,
			&b.CreatedAt, &b.UpdatedAt,
		); err != nil {
			return nil, err
		}
		bookings = append(bookings, b)
	}
	return bookings, rows.Err()
}

// UpdateStatusTx moves a booking to the given status within the caller's
// transaction.
func (r *BookingRepo) UpdateStatusTx(ctx context.Context, tx *sql.Tx, bookingID uint64, status string) error {
	_, err := tx.ExecContext(ctx, `UPDATE bookings SET status = ? WHERE id = ?`, status, bookingID)
	return err
}

// BookingDetail is a booking joined with its event and, when present,
// the payment status. Returned by ListByUser for display to customers.
type BookingDetail struct {
	ID               uint64    `json:"id"`
	EventID          uint64    `json:"event_id"`
	EventTitle       string    `json:"event_title"`
	EventDate        time.Time `json:"event_date"`
	TicketCount      int       `json:"ticket_count"`
	TotalAmountCents int64     `json:"total_amount_cents"`
	Status           string    `json:"status"`
	PaymentStatus    *string   `json:"payment_status,omitempty"`
}

// ListByUser returns all bookings of the given user, newest event first.
func (r *BookingRepo) ListByUser(ctx context.Context, userID uint64) ([]BookingDetail, error) {
	const q = `SELECT b.id, b.event_id, e.title, e.date_time,
			b.ticket_count, b.total_amount_cents, b.status, p.status
		FROM bookings b
		JOIN events e ON e.id = b.event_id
		LEFT JOIN payments p ON p.booking_id = b.id
		WHERE b.user_id = ?
		ORDER BY e.date_time DESC`
	rows, err := r.db.QueryContext(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	details := make([]BookingDetail, 0)
	for rows.Next() {
		var d BookingDetail
		var payStatus sql.NullString
		if err := rows.Scan(
			&d.ID, &d.EventID, &d.EventTitle, &d.EventDate,
			&d.TicketCount, &d.TotalAmountCents, &d.Status, &payStatus,
		); err != nil {
			return nil, err
		}
		if payStatus.Valid {
			ps := payStatus.String
			d.PaymentStatus = &ps
		}
		details = append(details, d)
	}
	return details, rows.Err()
}

// ListCancellable returns the user's confirmed bookings whose event
// starts more than window from now, i.e. the ones a cancellation request
// would still be accepted for.
func (r *BookingRepo) ListCancellable(ctx context.Context, userID uint64, window time.Duration) ([]BookingDetail, error) {
	const q = `SELECT b.id, b.event_id, e.title, e.date_time,
			b.ticket_count, b.total_amount_cents, b.status, p.status
		FROM bookings b
		JOIN events e ON e.id = b.event_id
		LEFT JOIN payments p ON p.booking_id = b.id
		WHERE b.user_id = ? AND b.status = ?
			AND e.date_time > DATE_ADD(UTC_TIMESTAMP(), INTERVAL ? SECOND)
		ORDER BY e.date_time ASC`
	rows, err := r.db.QueryContext(ctx, q, userID, model.BookingConfirmed, int64(window/time.Second))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	details := make([]BookingDetail, 0)
	for rows.Next() {
		var d BookingDetail
		var payStatus sql.NullString
		if err := rows.Scan(
			&d.ID, &d.EventID, &d.EventTitle, &d.EventDate,
			&d.TicketCount, &d.TotalAmountCents, &d.Status, &payStatus,
		); err != nil {
			return nil, err
		}
		if payStatus.Valid {
			ps := payStatus.String
			d.PaymentStatus = &ps
		}
		details = append(details, d)
	}
	return details, rows.Err()
}

// EventBookingDetail is a booking of a specific event enriched with the
// booking user and payment info, as shown to the event's host.
type EventBookingDetail struct {
	ID               uint64  `json:"id"`
	Status           string  `json:"status"`
	TicketCount      int     `json:"ticket_count"`
	TotalAmountCents int64   `json:"total_amount_cents"`
	UserName         string  `json:"user_name"`
	UserEmail        string  `json:"user_email"`
	PaymentStatus    *string `json:"payment_status,omitempty"`
	RefundID         *string `json:"refund_id,omitempty"`
}

// ListByEvent returns the confirmed and cancelled bookings of an event
// for its host, ordered by customer name. Pending bookings are excluded;
// they carry no payment yet and are of no interest to the host view.
func (r *BookingRepo) ListByEvent(ctx context.Context, eventID uint64) ([]EventBookingDetail, error) {
	const q = `SELECT b.id, b.status, b.ticket_count, b.total_amount_cents,
			u.name, u.email, p.status, p.refund_id
		FROM bookings b
		JOIN users u ON u.id = b.user_id
		LEFT JOIN payments p ON p.booking_id = b.id
		WHERE b.event_id = ? AND b.status IN (?, ?)
		ORDER BY u.name ASC`
	rows, err := r.db.QueryContext(ctx, q, eventID, model.BookingConfirmed, model.BookingCancelled)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	details := make([]EventBookingDetail, 0)
	for rows.Next() {
		var d EventBookingDetail
		var payStatus, refundID sql.NullString
		if err := rows.Scan(
			&d.ID, &d.Status, &d.TicketCount, &d.TotalAmountCents,
			&d.UserName, &d.UserEmail, &payStatus, &refundID,
		); err != nil {
			return nil, err
		}
		if payStatus.Valid {
			ps := payStatus.String
			d.PaymentStatus = &ps
		}
		if refundID.Valid {
			rid := refundID.String
			d.RefundID = &rid
		}
		details = append(details, d)
	}
	return details, rows.Err()
}

func (r *BookingRepo) scanOne(row *sql.Row) (*model.Booking, error) {
	var b model.Booking
	err := row.Scan(
		&b.ID, &b.UserID, &b.EventID, &b.TicketCount, &b.TotalAmountCents, &b.Status,
		&b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrBookingNotFound
		}
		return nil, err
	}
	return &b, nil
}
