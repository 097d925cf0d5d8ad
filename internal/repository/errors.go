// Package repository defines sentinel error values that are reused across
// repositories and services. Handlers use errors.Is against these values to
// pick the HTTP status for a failure. For example, ErrForbidden maps to a
// 403 response while ErrInsufficientTickets maps to a 409.
package repository

import "errors"

// ErrEventNotFound is returned when the requested event does not exist.
var ErrEventNotFound = errors.New("event not found")

// ErrBookingNotFound is returned when a booking does not exist, is not
// owned by the caller, or is not in the status an operation requires.
var ErrBookingNotFound = errors.New("booking not found")

// ErrPaymentNotFound is returned when no payment row matches a lookup.
var ErrPaymentNotFound = errors.New("payment not found")

// ErrInsufficientTickets is returned when an event does not have enough
// available tickets to satisfy a booking request. The transaction that
// detected it must roll back without mutating anything.
var ErrInsufficientTickets = errors.New("not enough tickets available")

// ErrEventCancelled is returned when an operation targets an event that
// has already been cancelled.
var ErrEventCancelled = errors.New("event already cancelled")

// ErrForbidden is returned when the caller attempts an operation on a
// resource they do not own.
var ErrForbidden = errors.New("forbidden")

// ErrEmailExists is returned when registering with an email address that
// is already taken.
var ErrEmailExists = errors.New("email already exists")
