package service

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/palakgarg19/Happening/internal/model"
	"github.com/palakgarg19/Happening/internal/payment"
	"github.com/palakgarg19/Happening/internal/repository"
)

const testKeySecret = "test_key_secret"

func checkoutSignature(orderID, paymentID string) string {
	mac := hmac.New(sha256.New, []byte(testKeySecret))
	mac.Write([]byte(orderID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

func newPaymentService(t *testing.T) (*PaymentService, sqlmock.Sqlmock, *mockGateway) {
	t.Helper()
	db, dbmock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	gw := &mockGateway{}
	svc := NewPaymentService(db, repository.NewBookingRepo(db), repository.NewPaymentRepo(db),
		gw, "test_key_id", testKeySecret, "INR")
	return svc, dbmock, gw
}

var bookingCols = []string{
	"id", "user_id", "event_id", "ticket_count", "total_amount_cents", "status",
	"created_at", "updated_at",
}

func pendingBookingRow(id, userID uint64, amountCents int64) *sqlmock.Rows {
	now := time.Now().UTC()
	return sqlmock.NewRows(bookingCols).AddRow(
		id, userID, 1, 2, amountCents, model.BookingPending, now, now,
	)
}

func TestPaymentServiceCreateOrder(t *testing.T) {
	ctx := context.Background()

	t.Run("registers an order and records a pending payment", func(t *testing.T) {
		svc, dbmock, gw := newPaymentService(t)

		dbmock.ExpectQuery(`(?s)SELECT (.+) FROM bookings WHERE id = \? AND user_id = \? AND status = \?`).
			WithArgs(11, 42, model.BookingPending).
			WillReturnRows(pendingBookingRow(11, 42, 5000))
		gw.On("CreateOrder", ctx, int64(5000), "INR", mock.AnythingOfType("string"),
			map[string]string{"booking_id": "11", "user_id": "42"}).
			Return(&payment.Order{ID: "order_abc", AmountCents: 5000, Currency: "INR", Status: "created"}, nil)
		dbmock.ExpectExec(`INSERT INTO payments`).
			WithArgs(11, "order_abc", int64(5000), "INR", model.PaymentPending).
			WillReturnResult(sqlmock.NewResult(1, 1))

		resp, err := svc.CreateOrder(ctx, 11, 42)
		require.NoError(t, err)
		assert.Equal(t, "order_abc", resp.OrderID)
		assert.Equal(t, int64(5000), resp.AmountCents)
		assert.Equal(t, "test_key_id", resp.KeyID)
		gw.AssertExpectations(t)
		assert.NoError(t, dbmock.ExpectationsWereMet())
	})

	t.Run("no pending booking means no gateway call", func(t *testing.T) {
		svc, dbmock, gw := newPaymentService(t)

		dbmock.ExpectQuery(`(?s)SELECT (.+) FROM bookings WHERE id = \? AND user_id = \? AND status = \?`).
			WithArgs(11, 42, model.BookingPending).
			WillReturnRows(sqlmock.NewRows(bookingCols))

		_, err := svc.CreateOrder(ctx, 11, 42)
		assert.ErrorIs(t, err, repository.ErrBookingNotFound)
		gw.AssertNotCalled(t, "CreateOrder")
		assert.NoError(t, dbmock.ExpectationsWereMet())
	})
}

func TestPaymentServiceVerify(t *testing.T) {
	ctx := context.Background()

	t.Run("tampered signature leaves all state untouched", func(t *testing.T) {
		svc, dbmock, _ := newPaymentService(t)

		err := svc.Verify(ctx, "order_abc", "pay_xyz", checkoutSignature("order_other", "pay_xyz"))
		assert.ErrorIs(t, err, ErrSignatureMismatch)
		// No transaction was even opened.
		assert.NoError(t, dbmock.ExpectationsWereMet())
	})

	t.Run("valid signature confirms booking and payment atomically", func(t *testing.T) {
		svc, dbmock, _ := newPaymentService(t)

		dbmock.ExpectBegin()
		dbmock.ExpectExec(`UPDATE payments SET status = \?, payment_intent_id = \?`).
			WithArgs(model.PaymentSucceeded, "pay_xyz", "order_abc", model.PaymentPending).
			WillReturnResult(sqlmock.NewResult(0, 1))
		dbmock.ExpectQuery(`(?s)SELECT booking_id FROM payments WHERE payment_intent_id = \?`).
			WithArgs("pay_xyz").
			WillReturnRows(sqlmock.NewRows([]string{"booking_id"}).AddRow(11))
		dbmock.ExpectExec(`UPDATE bookings SET status = \? WHERE id = \?`).
			WithArgs(model.BookingConfirmed, 11).
			WillReturnResult(sqlmock.NewResult(0, 1))
		dbmock.ExpectCommit()

		err := svc.Verify(ctx, "order_abc", "pay_xyz", checkoutSignature("order_abc", "pay_xyz"))
		require.NoError(t, err)
		assert.NoError(t, dbmock.ExpectationsWereMet())
	})

	t.Run("unknown order rolls back", func(t *testing.T) {
		svc, dbmock, _ := newPaymentService(t)

		dbmock.ExpectBegin()
		dbmock.ExpectExec(`UPDATE payments SET status = \?, payment_intent_id = \?`).
			WithArgs(model.PaymentSucceeded, "pay_xyz", "order_abc", model.PaymentPending).
			WillReturnResult(sqlmock.NewResult(0, 0))
		dbmock.ExpectRollback()

		err := svc.Verify(ctx, "order_abc", "pay_xyz", checkoutSignature("order_abc", "pay_xyz"))
		assert.ErrorIs(t, err, repository.ErrPaymentNotFound)
		assert.NoError(t, dbmock.ExpectationsWereMet())
	})
}

func TestPaymentServiceRefundStatus(t *testing.T) {
	ctx := context.Background()

	paymentCols := []string{
		"id", "booking_id", "payment_intent_id", "amount_cents", "currency",
		"status", "refund_id", "created_at", "updated_at",
	}

	t.Run("gateway processed reconciles local status to refunded", func(t *testing.T) {
		svc, dbmock, gw := newPaymentService(t)

		now := time.Now().UTC()
		dbmock.ExpectQuery(`(?s)SELECT (.+) FROM payments p`).
			WithArgs("rfnd_1", 42).
			WillReturnRows(sqlmock.NewRows(paymentCols).AddRow(
				1, 11, "pay_xyz", int64(5000), "INR", model.PaymentSucceeded, "rfnd_1", now, now,
			))
		gw.On("FetchRefund", ctx, "rfnd_1").
			Return(&payment.RefundDetails{ID: "rfnd_1", Status: payment.RefundStatusProcessed}, nil)
		dbmock.ExpectExec(`UPDATE payments SET status = \? WHERE refund_id = \?`).
			WithArgs(model.PaymentRefunded, "rfnd_1").
			WillReturnResult(sqlmock.NewResult(0, 1))

		details, err := svc.RefundStatus(ctx, "rfnd_1", 42)
		require.NoError(t, err)
		assert.Equal(t, payment.RefundStatusProcessed, details.Status)
		gw.AssertExpectations(t)
		assert.NoError(t, dbmock.ExpectationsWereMet())
	})

	t.Run("already reconciled means no write", func(t *testing.T) {
		svc, dbmock, gw := newPaymentService(t)

		now := time.Now().UTC()
		dbmock.ExpectQuery(`(?s)SELECT (.+) FROM payments p`).
			WithArgs("rfnd_1", 42).
			WillReturnRows(sqlmock.NewRows(paymentCols).AddRow(
				1, 11, "pay_xyz", int64(5000), "INR", model.PaymentRefunded, "rfnd_1", now, now,
			))
		gw.On("FetchRefund", ctx, "rfnd_1").
			Return(&payment.RefundDetails{ID: "rfnd_1", Status: payment.RefundStatusProcessed}, nil)

		_, err := svc.RefundStatus(ctx, "rfnd_1", 42)
		require.NoError(t, err)
		assert.NoError(t, dbmock.ExpectationsWereMet())
	})
}
