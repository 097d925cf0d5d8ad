package model

import "time"

// Payment status values. Status only moves forward:
// pending -> succeeded -> refunded, or pending/succeeded -> failed.
// Refunded is terminal.
const (
	PaymentPending   = "pending"
	PaymentSucceeded = "succeeded"
	PaymentRefunded  = "refunded"
	PaymentFailed    = "failed"
)

// Payment links a booking to an external gateway order/payment reference.
// At most one active payment row exists per booking (booking_id is unique);
// resuming an abandoned checkout replaces the order reference on the same
// row rather than adding a second one.
type Payment struct {
	ID              uint64    `json:"id"`                  // payments.id
	BookingID       uint64    `json:"booking_id"`          // payments.booking_id (unique)
	PaymentIntentID string    `json:"payment_intent_id"`   // payments.payment_intent_id (unique)
	AmountCents     int64     `json:"amount_cents"`        // payments.amount_cents
	Currency        string    `json:"currency"`            // payments.currency
	Status          string    `json:"status"`              // payments.status
	RefundID        *string   `json:"refund_id,omitempty"` // payments.refund_id (nullable)
	CreatedAt       time.Time `json:"created_at"`          // payments.created_at
	UpdatedAt       time.Time `json:"updated_at"`          // payments.updated_at
}
