package service

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/palakgarg19/Happening/internal/model"
	"github.com/palakgarg19/Happening/internal/repository"
)

var eventCols = []string{
	"id", "title", "description", "date_time", "venue", "price_cents",
	"total_tickets", "available_tickets", "is_cancelled", "created_by",
	"created_at", "updated_at",
}

func eventRow(id uint64, priceCents int64, total, available int, cancelled bool) *sqlmock.Rows {
	now := time.Now().UTC()
	return sqlmock.NewRows(eventCols).AddRow(
		id, "Concert", "A concert", now.Add(72*time.Hour), "Arena", priceCents,
		total, available, cancelled, 9, now, now,
	)
}

func newBookingService(t *testing.T) (*BookingService, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	svc := NewBookingService(db, repository.NewEventRepo(db), repository.NewBookingRepo(db), nil)
	return svc, mock
}

func TestBookingServiceApply(t *testing.T) {
	ctx := context.Background()

	t.Run("decrements inventory and creates a pending booking", func(t *testing.T) {
		svc, mock := newBookingService(t)

		mock.ExpectBegin()
		mock.ExpectQuery(`(?s)SELECT (.+) FROM events WHERE id = \? FOR UPDATE`).
			WithArgs(1).
			WillReturnRows(eventRow(1, 2500, 100, 10, false))
		mock.ExpectExec(`UPDATE events SET available_tickets = \? WHERE id = \?`).
			WithArgs(7, 1).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`INSERT INTO bookings`).
			WithArgs(42, 1, 3, int64(7500), model.BookingPending).
			WillReturnResult(sqlmock.NewResult(11, 1))
		mock.ExpectCommit()

		booking, err := svc.Apply(ctx, 1, 42, 3)
		require.NoError(t, err)
		assert.Equal(t, uint64(11), booking.ID)
		assert.Equal(t, model.BookingPending, booking.Status)
		assert.Equal(t, int64(7500), booking.TotalAmountCents)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("insufficient inventory rolls back without writes", func(t *testing.T) {
		svc, mock := newBookingService(t)

		mock.ExpectBegin()
		mock.ExpectQuery(`(?s)SELECT (.+) FROM events WHERE id = \? FOR UPDATE`).
			WithArgs(1).
			WillReturnRows(eventRow(1, 2500, 100, 2, false))
		mock.ExpectRollback()

		_, err := svc.Apply(ctx, 1, 42, 3)
		assert.ErrorIs(t, err, repository.ErrInsufficientTickets)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("cancelled event is rejected", func(t *testing.T) {
		svc, mock := newBookingService(t)

		mock.ExpectBegin()
		mock.ExpectQuery(`(?s)SELECT (.+) FROM events WHERE id = \? FOR UPDATE`).
			WithArgs(1).
			WillReturnRows(eventRow(1, 2500, 100, 100, true))
		mock.ExpectRollback()

		_, err := svc.Apply(ctx, 1, 42, 1)
		assert.ErrorIs(t, err, repository.ErrEventCancelled)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unknown event is rejected", func(t *testing.T) {
		svc, mock := newBookingService(t)

		mock.ExpectBegin()
		mock.ExpectQuery(`(?s)SELECT (.+) FROM events WHERE id = \? FOR UPDATE`).
			WithArgs(99).
			WillReturnRows(sqlmock.NewRows(eventCols))
		mock.ExpectRollback()

		_, err := svc.Apply(ctx, 99, 42, 1)
		assert.ErrorIs(t, err, repository.ErrEventNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestBookingServiceSubmitValidation(t *testing.T) {
	svc, mock := newBookingService(t)
	ctx := context.Background()

	_, err := svc.Submit(ctx, 0, 42, 1)
	assert.ErrorIs(t, err, ErrInvalidEventID)

	_, err = svc.Submit(ctx, 1, 42, 0)
	assert.ErrorIs(t, err, ErrInvalidTicketCount)

	_, err = svc.Submit(ctx, 1, 42, -5)
	assert.ErrorIs(t, err, ErrInvalidTicketCount)

	// Validation failures never touch the database.
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBookingServiceSubmitSynchronousFallback(t *testing.T) {
	// Without a publisher, Submit runs the booking transaction inline and
	// returns the created booking.
	svc, mock := newBookingService(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`(?s)SELECT (.+) FROM events WHERE id = \? FOR UPDATE`).
		WithArgs(1).
		WillReturnRows(eventRow(1, 1000, 50, 50, false))
	mock.ExpectExec(`UPDATE events SET available_tickets = \? WHERE id = \?`).
		WithArgs(48, 1).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO bookings`).
		WithArgs(42, 1, 2, int64(2000), model.BookingPending).
		WillReturnResult(sqlmock.NewResult(5, 1))
	mock.ExpectCommit()

	res, err := svc.Submit(context.Background(), 1, 42, 2)
	require.NoError(t, err)
	assert.False(t, res.Queued)
	require.NotNil(t, res.Booking)
	assert.Equal(t, uint64(5), res.Booking.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}
