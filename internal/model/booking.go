package model

import "time"

// Booking status values. A booking starts out pending, becomes confirmed
// via a verified payment, and ends up cancelled through user cancellation
// or an event-wide cancellation. Cancelled is terminal; bookings are never
// deleted so they stay available for audit and refund lookup.
const (
	BookingPending   = "pending"
	BookingConfirmed = "confirmed"
	BookingCancelled = "cancelled"
)

// Booking records a user's claim on a number of tickets for an event.
// TicketCount and TotalAmountCents are fixed at creation time; only the
// status changes afterwards.
type Booking struct {
	ID               uint64    `json:"id"`                 // bookings.id
	UserID           uint64    `json:"user_id"`            // bookings.user_id
	EventID          uint64    `json:"event_id"`           // bookings.event_id
	TicketCount      int       `json:"ticket_count"`       // bookings.ticket_count
	TotalAmountCents int64     `json:"total_amount_cents"` // bookings.total_amount_cents
	Status           string    `json:"status"`             // bookings.status
	CreatedAt        time.Time `json:"created_at"`         // bookings.created_at
	UpdatedAt        time.Time `json:"updated_at"`         // bookings.updated_at
}
