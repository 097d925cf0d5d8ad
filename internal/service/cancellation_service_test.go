package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/palakgarg19/Happening/internal/model"
	"github.com/palakgarg19/Happening/internal/payment"
	"github.com/palakgarg19/Happening/internal/repository"
)

func newCancellationService(t *testing.T) (*CancellationService, sqlmock.Sqlmock, *mockGateway) {
	t.Helper()
	db, dbmock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	gw := &mockGateway{}
	svc := NewCancellationService(db,
		repository.NewEventRepo(db), repository.NewBookingRepo(db), repository.NewPaymentRepo(db),
		gw, nil)
	return svc, dbmock, gw
}

var paymentCols = []string{
	"id", "booking_id", "payment_intent_id", "amount_cents", "currency",
	"status", "refund_id", "created_at", "updated_at",
}

var confirmedWithEventCols = []string{
	"id", "user_id", "event_id", "ticket_count", "total_amount_cents", "status",
	"created_at", "updated_at", "date_time",
}

func confirmedBookingRow(startsAt time.Time) *sqlmock.Rows {
	now := time.Now().UTC()
	return sqlmock.NewRows(confirmedWithEventCols).AddRow(
		11, 42, 1, 2, int64(5000), model.BookingConfirmed, now, now, startsAt,
	)
}

func succeededPaymentRow() *sqlmock.Rows {
	now := time.Now().UTC()
	return sqlmock.NewRows(paymentCols).AddRow(
		1, 11, "pay_xyz", int64(5000), "INR", model.PaymentSucceeded, nil, now, now,
	)
}

func TestCancelConfirmed(t *testing.T) {
	ctx := context.Background()

	t.Run("refunds, cancels and restores tickets in one transaction", func(t *testing.T) {
		svc, dbmock, gw := newCancellationService(t)

		dbmock.ExpectBegin()
		dbmock.ExpectQuery(`(?s)SELECT (.+) FROM bookings b`).
			WithArgs(11, 42, model.BookingConfirmed).
			WillReturnRows(confirmedBookingRow(time.Now().UTC().Add(72 * time.Hour)))
		dbmock.ExpectQuery(`(?s)SELECT (.+) FROM payments`).
			WithArgs(11, model.PaymentSucceeded, model.PaymentRefunded).
			WillReturnRows(succeededPaymentRow())
		gw.On("FetchPayment", ctx, "pay_xyz").
			Return(&payment.PaymentDetails{ID: "pay_xyz", Status: "captured", Captured: true}, nil)
		gw.On("Refund", ctx, "pay_xyz", int64(5000),
			map[string]string{"booking_id": "11", "reason": "cancellation"}).
			Return(&payment.RefundDetails{ID: "rfnd_9", Status: "pending"}, nil)
		dbmock.ExpectExec(`UPDATE payments SET status = \?, refund_id = \?`).
			WithArgs(model.PaymentRefunded, "rfnd_9", "pay_xyz").
			WillReturnResult(sqlmock.NewResult(0, 1))
		dbmock.ExpectExec(`UPDATE bookings SET status = \? WHERE id = \?`).
			WithArgs(model.BookingCancelled, 11).
			WillReturnResult(sqlmock.NewResult(0, 1))
		dbmock.ExpectExec(`UPDATE events SET available_tickets = available_tickets \+ \?`).
			WithArgs(2, 1).
			WillReturnResult(sqlmock.NewResult(0, 1))
		dbmock.ExpectCommit()

		outcome, refundID, err := svc.CancelConfirmed(ctx, 11, 42)
		require.NoError(t, err)
		assert.Equal(t, RefundProcessed, outcome)
		require.NotNil(t, refundID)
		assert.Equal(t, "rfnd_9", *refundID)
		gw.AssertExpectations(t)
		assert.NoError(t, dbmock.ExpectationsWereMet())
	})

	t.Run("inside the cancellation window is rejected", func(t *testing.T) {
		svc, dbmock, gw := newCancellationService(t)

		dbmock.ExpectBegin()
		dbmock.ExpectQuery(`(?s)SELECT (.+) FROM bookings b`).
			WithArgs(11, 42, model.BookingConfirmed).
			WillReturnRows(confirmedBookingRow(time.Now().UTC().Add(23 * time.Hour)))
		dbmock.ExpectRollback()

		_, _, err := svc.CancelConfirmed(ctx, 11, 42)
		assert.ErrorIs(t, err, ErrCancellationWindow)
		gw.AssertNotCalled(t, "FetchPayment")
		gw.AssertNotCalled(t, "Refund")
		assert.NoError(t, dbmock.ExpectationsWereMet())
	})

	t.Run("window boundary", func(t *testing.T) {
		// Just inside 24h is rejected, just outside is accepted.
		svc, dbmock, _ := newCancellationService(t)

		dbmock.ExpectBegin()
		dbmock.ExpectQuery(`(?s)SELECT (.+) FROM bookings b`).
			WithArgs(11, 42, model.BookingConfirmed).
			WillReturnRows(confirmedBookingRow(time.Now().UTC().Add(24*time.Hour - time.Minute)))
		dbmock.ExpectRollback()

		_, _, err := svc.CancelConfirmed(ctx, 11, 42)
		assert.ErrorIs(t, err, ErrCancellationWindow)
		assert.NoError(t, dbmock.ExpectationsWereMet())

		svc, dbmock, _ = newCancellationService(t)
		dbmock.ExpectBegin()
		dbmock.ExpectQuery(`(?s)SELECT (.+) FROM bookings b`).
			WithArgs(11, 42, model.BookingConfirmed).
			WillReturnRows(confirmedBookingRow(time.Now().UTC().Add(24*time.Hour + time.Minute)))
		dbmock.ExpectQuery(`(?s)SELECT (.+) FROM payments`).
			WithArgs(11, model.PaymentSucceeded, model.PaymentRefunded).
			WillReturnRows(sqlmock.NewRows(paymentCols))
		dbmock.ExpectExec(`UPDATE bookings SET status = \? WHERE id = \?`).
			WithArgs(model.BookingCancelled, 11).
			WillReturnResult(sqlmock.NewResult(0, 1))
		dbmock.ExpectExec(`UPDATE events SET available_tickets = available_tickets \+ \?`).
			WithArgs(2, 1).
			WillReturnResult(sqlmock.NewResult(0, 1))
		dbmock.ExpectCommit()

		outcome, _, err := svc.CancelConfirmed(ctx, 11, 42)
		require.NoError(t, err)
		assert.Equal(t, RefundNoPayment, outcome)
		assert.NoError(t, dbmock.ExpectationsWereMet())
	})

	t.Run("already refunded payment never reaches the gateway again", func(t *testing.T) {
		svc, dbmock, gw := newCancellationService(t)

		now := time.Now().UTC()
		dbmock.ExpectBegin()
		dbmock.ExpectQuery(`(?s)SELECT (.+) FROM bookings b`).
			WithArgs(11, 42, model.BookingConfirmed).
			WillReturnRows(confirmedBookingRow(now.Add(72 * time.Hour)))
		dbmock.ExpectQuery(`(?s)SELECT (.+) FROM payments`).
			WithArgs(11, model.PaymentSucceeded, model.PaymentRefunded).
			WillReturnRows(sqlmock.NewRows(paymentCols).AddRow(
				1, 11, "pay_xyz", int64(5000), "INR", model.PaymentRefunded, "rfnd_9", now, now,
			))
		dbmock.ExpectExec(`UPDATE bookings SET status = \? WHERE id = \?`).
			WithArgs(model.BookingCancelled, 11).
			WillReturnResult(sqlmock.NewResult(0, 1))
		dbmock.ExpectExec(`UPDATE events SET available_tickets = available_tickets \+ \?`).
			WithArgs(2, 1).
			WillReturnResult(sqlmock.NewResult(0, 1))
		dbmock.ExpectCommit()

		outcome, refundID, err := svc.CancelConfirmed(ctx, 11, 42)
		require.NoError(t, err)
		assert.Equal(t, RefundAlreadyRefunded, outcome)
		require.NotNil(t, refundID)
		assert.Equal(t, "rfnd_9", *refundID)
		gw.AssertNotCalled(t, "FetchPayment")
		gw.AssertNotCalled(t, "Refund")
		assert.NoError(t, dbmock.ExpectationsWereMet())
	})

	t.Run("gateway refund failure aborts the whole transaction", func(t *testing.T) {
		svc, dbmock, gw := newCancellationService(t)

		dbmock.ExpectBegin()
		dbmock.ExpectQuery(`(?s)SELECT (.+) FROM bookings b`).
			WithArgs(11, 42, model.BookingConfirmed).
			WillReturnRows(confirmedBookingRow(time.Now().UTC().Add(72 * time.Hour)))
		dbmock.ExpectQuery(`(?s)SELECT (.+) FROM payments`).
			WithArgs(11, model.PaymentSucceeded, model.PaymentRefunded).
			WillReturnRows(succeededPaymentRow())
		gw.On("FetchPayment", ctx, "pay_xyz").
			Return(&payment.PaymentDetails{ID: "pay_xyz", Status: "captured", Captured: true}, nil)
		gw.On("Refund", ctx, "pay_xyz", int64(5000),
			map[string]string{"booking_id": "11", "reason": "cancellation"}).
			Return(nil, errors.New("gateway down"))
		dbmock.ExpectRollback()

		_, _, err := svc.CancelConfirmed(ctx, 11, 42)
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrCancellationWindow)
		// The booking stays confirmed and no ticket restoration happened.
		assert.NoError(t, dbmock.ExpectationsWereMet())
	})
}

func TestCancelPending(t *testing.T) {
	svc, dbmock, gw := newCancellationService(t)
	now := time.Now().UTC()

	dbmock.ExpectBegin()
	dbmock.ExpectQuery(`(?s)SELECT (.+) FROM bookings WHERE id = \? AND user_id = \? AND status = \? FOR UPDATE`).
		WithArgs(11, 42, model.BookingPending).
		WillReturnRows(sqlmock.NewRows(bookingCols).AddRow(
			11, 42, 1, 3, int64(7500), model.BookingPending, now, now,
		))
	dbmock.ExpectExec(`UPDATE bookings SET status = \? WHERE id = \?`).
		WithArgs(model.BookingCancelled, 11).
		WillReturnResult(sqlmock.NewResult(0, 1))
	dbmock.ExpectExec(`UPDATE events SET available_tickets = available_tickets \+ \?`).
		WithArgs(3, 1).
		WillReturnResult(sqlmock.NewResult(0, 1))
	dbmock.ExpectCommit()

	require.NoError(t, svc.CancelPending(context.Background(), 11, 42))
	// Pending bookings carry no payment, so the gateway is never involved.
	gw.AssertNotCalled(t, "FetchPayment")
	gw.AssertNotCalled(t, "Refund")
	assert.NoError(t, dbmock.ExpectationsWereMet())
}

func TestCancelEvent(t *testing.T) {
	ctx := context.Background()

	t.Run("cascades over confirmed bookings and resets inventory", func(t *testing.T) {
		svc, dbmock, gw := newCancellationService(t)
		now := time.Now().UTC()

		dbmock.ExpectBegin()
		dbmock.ExpectQuery(`(?s)SELECT (.+) FROM events WHERE id = \? FOR UPDATE`).
			WithArgs(1).
			WillReturnRows(eventRow(1, 2500, 100, 40, false))
		dbmock.ExpectQuery(`(?s)SELECT (.+) FROM bookings WHERE event_id = \? AND status = \?`).
			WithArgs(1, model.BookingConfirmed).
			WillReturnRows(sqlmock.NewRows(bookingCols).
				AddRow(21, 40, 1, 2, int64(5000), model.BookingConfirmed, now, now).
				AddRow(22, 41, 1, 1, int64(2500), model.BookingConfirmed, now, now).
				AddRow(23, 43, 1, 4, int64(10000), model.BookingConfirmed, now, now))

		// None of the bookings carries a payment, so every refund is a no-op.
		for _, bookingID := range []uint64{21, 22, 23} {
			dbmock.ExpectQuery(`(?s)SELECT (.+) FROM payments`).
				WithArgs(bookingID, model.PaymentSucceeded, model.PaymentRefunded).
				WillReturnRows(sqlmock.NewRows(paymentCols))
			dbmock.ExpectExec(`UPDATE bookings SET status = \? WHERE id = \?`).
				WithArgs(model.BookingCancelled, bookingID).
				WillReturnResult(sqlmock.NewResult(0, 1))
		}
		dbmock.ExpectExec(`UPDATE events SET is_cancelled = TRUE, available_tickets = total_tickets`).
			WithArgs(1).
			WillReturnResult(sqlmock.NewResult(0, 1))
		dbmock.ExpectCommit()

		refunded, err := svc.CancelEvent(ctx, 1, 9, model.RoleHost)
		require.NoError(t, err)
		assert.Equal(t, 3, refunded)
		gw.AssertNotCalled(t, "Refund")
		assert.NoError(t, dbmock.ExpectationsWereMet())
	})

	t.Run("only the host or an admin may cancel", func(t *testing.T) {
		svc, dbmock, _ := newCancellationService(t)

		dbmock.ExpectBegin()
		dbmock.ExpectQuery(`(?s)SELECT (.+) FROM events WHERE id = \? FOR UPDATE`).
			WithArgs(1).
			WillReturnRows(eventRow(1, 2500, 100, 40, false))
		dbmock.ExpectRollback()

		_, err := svc.CancelEvent(ctx, 1, 5, model.RoleUser)
		assert.ErrorIs(t, err, repository.ErrForbidden)
		assert.NoError(t, dbmock.ExpectationsWereMet())
	})

	t.Run("an already cancelled event is rejected", func(t *testing.T) {
		svc, dbmock, _ := newCancellationService(t)

		dbmock.ExpectBegin()
		dbmock.ExpectQuery(`(?s)SELECT (.+) FROM events WHERE id = \? FOR UPDATE`).
			WithArgs(1).
			WillReturnRows(eventRow(1, 2500, 100, 100, true))
		dbmock.ExpectRollback()

		_, err := svc.CancelEvent(ctx, 1, 9, model.RoleHost)
		assert.ErrorIs(t, err, repository.ErrEventCancelled)
		assert.NoError(t, dbmock.ExpectationsWereMet())
	})
}
