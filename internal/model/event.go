package model

import "time"

// Event is the authoritative inventory record for a ticketed event.
// TotalTickets is fixed at creation; AvailableTickets moves between 0 and
// TotalTickets and is only ever mutated inside a transaction that holds a
// row lock on the event. IsCancelled is monotonic: once true it never
// goes back.
//
// Fields:
//  ID               – primary key identifier.
//  Title            – display name of the event.
//  Description      – free-form description.
//  DateTime         – when the event starts (UTC).
//  Venue            – where the event takes place.
//  PriceCents       – ticket price in cents.
//  TotalTickets     – fixed ticket capacity.
//  AvailableTickets – tickets still open for booking.
//  IsCancelled      – whether the event was cancelled by its host.
//  CreatedBy        – user who created (hosts) the event.
type Event struct {
	ID               uint64    `json:"id"`                // events.id
	Title            string    `json:"title"`             // events.title
	Description      string    `json:"description"`       // events.description
	DateTime         time.Time `json:"date_time"`         // events.date_time
	Venue            string    `json:"venue"`             // events.venue
	PriceCents       int64     `json:"price_cents"`       // events.price_cents
	TotalTickets     int       `json:"total_tickets"`     // events.total_tickets
	AvailableTickets int       `json:"available_tickets"` // events.available_tickets
	IsCancelled      bool      `json:"is_cancelled"`      // events.is_cancelled
	CreatedBy        uint64    `json:"created_by"`        // events.created_by
	CreatedAt        time.Time `json:"created_at"`        // events.created_at
	UpdatedAt        time.Time `json:"updated_at"`        // events.updated_at
}
