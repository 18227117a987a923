package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/webexpert/event-ticketing/internal/apperr"
	"github.com/webexpert/event-ticketing/internal/model"
)

// TicketRepo manages ticket lines.  Inventory (available_quantity) is only
// changed by Create, Update and the reservation/cancellation units in
// BookingRepo; every path keeps 0 <= available_quantity <= quantity.
type TicketRepo struct {
	db *sql.DB
}

// NewTicketRepo returns a new TicketRepo bound to the given database.
func NewTicketRepo(db *sql.DB) *TicketRepo { return &TicketRepo{db: db} }

// Create inserts a ticket with its whole quantity available.
func (r *TicketRepo) Create(ctx context.Context, t *model.Ticket) error {
	const q = `INSERT INTO tickets (event_id, type, description, price, quantity, available_quantity,
	                                sale_starts_at, sale_ends_at, status)
	           VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, q, t.EventID, t.Type, t.Description, t.Price, t.Quantity, t.Quantity,
		t.SaleStartsAt, t.SaleEndsAt, model.StatusFor(t.Quantity))
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	created, err := r.GetByIDAndEvent(ctx, t.EventID, uint64(id))
	if err != nil {
		return err
	}
	*t = *created
	return nil
}

// GetByIDAndEvent fetches a ticket only when it belongs to eventID.
func (r *TicketRepo) GetByIDAndEvent(ctx context.Context, eventID, id uint64) (*model.Ticket, error) {
	q := `SELECT ` + ticketColumns + ` FROM tickets t WHERE t.id = ? AND t.event_id = ?`
	t, err := scanTicket(r.db.QueryRowContext(ctx, q, id, eventID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTicketNotFound
		}
		return nil, err
	}
	return t, nil
}

// ListByEvent returns the tickets of an event, cheapest first.
func (r *TicketRepo) ListByEvent(ctx context.Context, eventID uint64) ([]*model.Ticket, error) {
	q := `SELECT ` + ticketColumns + ` FROM tickets t WHERE t.event_id = ? ORDER BY t.price, t.id`
	return r.list(ctx, q, eventID)
}

// ListByEvents loads tickets for several events in one query, grouped by
// event id and ordered by price within each group.
func (r *TicketRepo) ListByEvents(ctx context.Context, eventIDs []uint64) (map[uint64][]*model.Ticket, error) {
	out := make(map[uint64][]*model.Ticket, len(eventIDs))
	if len(eventIDs) == 0 {
		return out, nil
	}
	args := make([]any, len(eventIDs))
	for i, id := range eventIDs {
		args[i] = id
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(eventIDs)), ",")
	q := `SELECT ` + ticketColumns + ` FROM tickets t WHERE t.event_id IN (` + placeholders + `)
	      ORDER BY t.event_id, t.price, t.id`
	tickets, err := r.list(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	for _, t := range tickets {
		out[t.EventID] = append(out[t.EventID], t)
	}
	return out, nil
}

func (r *TicketRepo) list(ctx context.Context, q string, args ...any) ([]*model.Ticket, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]*model.Ticket, 0)
	for rows.Next() {
		t, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// Update applies in to the ticket and resizes its pool to quantity.  Units
// already reserved stay reserved: the new available quantity is quantity
// minus reserved, and a quantity below reserved is rejected.  The row is
// locked for the read-modify-write so concurrent reservations are counted.
func (r *TicketRepo) Update(ctx context.Context, eventID, id uint64, in model.TicketInput) (*model.Ticket, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	q := `SELECT ` + ticketColumns + ` FROM tickets t WHERE t.id = ? AND t.event_id = ? FOR UPDATE`
	current, err := scanTicket(tx.QueryRowContext(ctx, q, id, eventID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTicketNotFound
		}
		return nil, err
	}
	reserved := current.Reserved()
	if in.Quantity < reserved {
		return nil, fmt.Errorf("%d units reserved: %w", reserved, ErrQuantityBelowReserved)
	}
	in.Apply(current)
	current.Quantity = in.Quantity
	current.AvailableQuantity = in.Quantity - reserved
	current.Status = model.StatusFor(current.AvailableQuantity)

	const upd = `UPDATE tickets
	             SET type = ?, description = ?, price = ?, quantity = ?, available_quantity = ?,
	                 sale_starts_at = ?, sale_ends_at = ?, status = ?
	             WHERE id = ?`
	if _, err = tx.ExecContext(ctx, upd, current.Type, current.Description, current.Price, current.Quantity,
		current.AvailableQuantity, current.SaleStartsAt, current.SaleEndsAt, current.Status, id); err != nil {
		return nil, err
	}
	updated, err := scanTicket(tx.QueryRowContext(ctx, `SELECT `+ticketColumns+` FROM tickets t WHERE t.id = ?`, id))
	if err != nil {
		return nil, err
	}
	if err = tx.Commit(); err != nil {
		return nil, err
	}
	committed = true
	return updated, nil
}

// Delete removes a ticket only while none of its units are reserved.  The
// condition is part of the DELETE so it cannot race with a reservation.
// Cancelled bookings do not block deletion; they cascade with the ticket.
func (r *TicketRepo) Delete(ctx context.Context, eventID, id uint64) error {
	const q = `DELETE FROM tickets WHERE id = ? AND event_id = ? AND available_quantity = quantity`
	res, err := r.db.ExecContext(ctx, q, id, eventID)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err != nil {
		return err
	} else if n > 0 {
		return nil
	}
	// Nothing deleted: tell a missing ticket apart from a reserved one.
	if _, err := r.GetByIDAndEvent(ctx, eventID, id); err != nil {
		return err
	}
	return fmt.Errorf("delete ticket %d: %w", id, apperr.ErrHasActiveReservations)
}
