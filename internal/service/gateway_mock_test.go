package service

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/palakgarg19/Happening/internal/payment"
)

// mockGateway is a testify mock of the payment gateway.
type mockGateway struct {
	mock.Mock
}

func (m *mockGateway) CreateOrder(ctx context.Context, amountCents int64, currency, receipt string, notes map[string]string) (*payment.Order, error) {
	args := m.Called(ctx, amountCents, currency, receipt, notes)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payment.Order), args.Error(1)
}

func (m *mockGateway) FetchPayment(ctx context.Context, paymentID string) (*payment.PaymentDetails, error) {
	args := m.Called(ctx, paymentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payment.PaymentDetails), args.Error(1)
}

func (m *mockGateway) Refund(ctx context.Context, paymentID string, amountCents int64, notes map[string]string) (*payment.RefundDetails, error) {
	args := m.Called(ctx, paymentID, amountCents, notes)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payment.RefundDetails), args.Error(1)
}

func (m *mockGateway) FetchRefund(ctx context.Context, refundID string) (*payment.RefundDetails, error) {
	args := m.Called(ctx, refundID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payment.RefundDetails), args.Error(1)
}
