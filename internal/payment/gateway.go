// Package payment is the thin contract to the external payment gateway:
// create an order, inspect a payment, issue a refund and poll a refund.
// The rest of the system depends only on the Gateway interface so tests
// can substitute a mock and never reach the network.
package payment

import "context"

// Order is a gateway order created for a pending booking. The client
// completes checkout against this order id.
type Order struct {
	ID          string `json:"id"`
	AmountCents int64  `json:"amount"`
	Currency    string `json:"currency"`
	Receipt     string `json:"receipt"`
	Status      string `json:"status"`
}

// PaymentDetails is the gateway's view of a payment. Captured reports
// whether the funds are actually held; AmountRefundedCents is non-zero
// once any part has been refunded.
type PaymentDetails struct {
	ID                  string `json:"id"`
	Status              string `json:"status"`
	Captured            bool   `json:"captured"`
	AmountRefundedCents int64  `json:"amount_refunded"`
}

// RefundDetails is the gateway's view of a refund. Status is one of the
// gateway's values (pending, processed, failed); the "processed" value
// maps to the local refunded status.
type RefundDetails struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// RefundStatusProcessed is the gateway status meaning the refund went
// through; locally it is recorded as refunded.
const RefundStatusProcessed = "processed"

// Gateway is the contract this core requires from the external payment
// provider. All calls are bounded network round trips; errors are
// surfaced to the caller, which decides whether they abort an enclosing
// transaction.
type Gateway interface {
	// CreateOrder registers an order for the given amount. Notes are
	// free-form metadata attached to the order for reconciliation.
	CreateOrder(ctx context.Context, amountCents int64, currency, receipt string, notes map[string]string) (*Order, error)
	// FetchPayment returns the current gateway state of a payment.
	FetchPayment(ctx context.Context, paymentID string) (*PaymentDetails, error)
	// Refund issues a refund for the full given amount against a captured
	// payment and returns the refund reference.
	Refund(ctx context.Context, paymentID string, amountCents int64, notes map[string]string) (*RefundDetails, error)
	// FetchRefund returns the current gateway state of a refund.
	FetchRefund(ctx context.Context, refundID string) (*RefundDetails, error)
}
