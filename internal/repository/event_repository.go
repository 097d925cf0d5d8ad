package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/palakgarg19/Happening/internal/model"
)

// EventRepo provides access to the events table, the authoritative
// inventory ledger. Every mutation of available_tickets goes through a
// *Tx method so the caller controls the transaction boundary; the lock
// variants acquire a row-level exclusive lock via SELECT ... FOR UPDATE
// which serializes all concurrent attempts against the same event.
type EventRepo struct {
	db *sql.DB
}

// NewEventRepo returns a new EventRepo bound to the given database.
func NewEventRepo(db *sql.DB) *EventRepo { return &EventRepo{db: db} }

// DB exposes the underlying handle so services can open transactions.
func (r *EventRepo) DB() *sql.DB { return r.db }

const eventColumns = `id, title, description, date_time, venue, price_cents,
	total_tickets, available_tickets, is_cancelled, created_by, created_at, updated_at`

func scanEvent(row *sql.Row) (*model.Event, error) {
	var ev model.Event
	err := row.Scan(
		&ev.ID, &ev.Title, &ev.Description, &ev.DateTime, &ev.Venue, &ev.PriceCents,
		&ev.TotalTickets, &ev.AvailableTickets, &ev.IsCancelled, &ev.CreatedBy,
		&ev.CreatedAt, &ev.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrEventNotFound
		}
		return nil, err
	}
	return &ev, nil
}

// Create inserts a new event with available_tickets = total_tickets and
// populates the generated ID on the provided struct.
func (r *EventRepo) Create(ctx context.Context, ev *model.Event) error {
	const q = `INSERT INTO events
		(title, description, date_time, venue, price_cents, total_tickets, available_tickets, created_by)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, q,
		ev.Title, ev.Description, ev.DateTime, ev.Venue, ev.PriceCents,
		ev.TotalTickets, ev.TotalTickets, ev.CreatedBy)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	ev.ID = uint64(id)
	ev.AvailableTickets = ev.TotalTickets
	return nil
}

// GetByID returns a single event. ErrEventNotFound when absent.
func (r *EventRepo) GetByID(ctx context.Context, id uint64) (*model.Event, error) {
	return scanEvent(r.db.QueryRowContext(ctx,
		`SELECT `+eventColumns+` FROM events WHERE id = ?`, id))
}

// ListUpcoming returns all non-cancelled events that have not started
// yet, ordered by start time.
func (r *EventRepo) ListUpcoming(ctx context.Context) ([]model.Event, error) {
	const q = `SELECT ` + eventColumns + ` FROM events
		WHERE is_cancelled = FALSE AND date_time > UTC_TIMESTAMP()
		ORDER BY date_time ASC`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	events := make([]model.Event, 0)
	for rows.Next() {
		var ev model.Event
		if err := rows.Scan(
			&ev.ID, &ev.Title, &ev.Description, &ev.DateTime, &ev.Venue, &ev.PriceCents,
			&ev.TotalTickets, &ev.AvailableTickets, &ev.IsCancelled, &ev.CreatedBy,
			&ev.CreatedAt, &ev.UpdatedAt,
		); err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}

// LockForUpdateTx reads the event row under an exclusive lock inside the
// provided transaction. The lock is held until the transaction commits
// or rolls back, serializing every concurrent inventory mutation for the
// same event. ErrEventNotFound when the event does not exist.
func (r *EventRepo) LockForUpdateTx(ctx context.Context, tx *sql.Tx, id uint64) (*model.Event, error) {
	return scanEvent(tx.QueryRowContext(ctx,
		`SELECT `+eventColumns+` FROM events WHERE id = ? FOR UPDATE`, id))
}

// SetAvailableTx writes an absolute available_tickets value. The caller
// must hold the event lock and have validated the new count.
func (r *EventRepo) SetAvailableTx(ctx context.Context, tx *sql.Tx, id uint64, available int) error {
	_, err := tx.ExecContext(ctx,
		`UPDATE events SET available_tickets = ? WHERE id = ?`, available, id)
	return err
}

// RestoreTicketsTx returns count tickets to the pool after a booking is
// cancelled. The caller must hold the event lock so the increment cannot
// race a concurrent decrement.
func (r *EventRepo) RestoreTicketsTx(ctx context.Context, tx *sql.Tx, id uint64, count int) error {
	_, err := tx.ExecContext(ctx,
		`UPDATE events SET available_tickets = available_tickets + ? WHERE id = ?`, count, id)
	return err
}

// MarkCancelledTx flags the event as cancelled and restores the full
// inventory (available = total). Used only by the event cancellation
// cascade, which holds the event lock.
func (r *EventRepo) MarkCancelledTx(ctx context.Context, tx *sql.Tx, id uint64) error {
	_, err := tx.ExecContext(ctx,
		`UPDATE events SET is_cancelled = TRUE, available_tickets = total_tickets WHERE id = ?`, id)
	return err
}
