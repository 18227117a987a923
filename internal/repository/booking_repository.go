package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/webexpert/event-ticketing/internal/apperr"
	"github.com/webexpert/event-ticketing/internal/model"
)

// BookingFilter narrows ListByUser by the timing of the booked event.
type BookingFilter int

const (
	BookingsAll BookingFilter = iota
	BookingsUpcoming
	BookingsPast
)

// BookingRepo owns the bookings table and the two units of work that move
// inventory: Reserve and Cancel.  Each runs in a single transaction so the
// ticket row and the booking row change together or not at all.
type BookingRepo struct {
	db *sql.DB
}

// NewBookingRepo returns a new BookingRepo bound to the given database.
func NewBookingRepo(db *sql.DB) *BookingRepo { return &BookingRepo{db: db} }

const bookingDetailFrom = ` FROM bookings b
	JOIN events e ON e.id = b.event_id
	JOIN tickets t ON t.id = b.ticket_id`

// Reserve takes qty units from the ticket and records a confirmed booking
// for userID.  The decrement is conditional on enough units being left, so
// concurrent reservations can never oversell: whichever statement finds the
// row short gets ErrInsufficientInventory and nothing is written.
func (r *BookingRepo) Reserve(ctx context.Context, userID, eventID, ticketID uint64, qty int) (*model.Booking, *model.Ticket, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, nil, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	// MySQL evaluates SET assignments left to right, so status sees the
	// decremented available_quantity.
	const dec = `UPDATE tickets
	             SET available_quantity = available_quantity - ?,
	                 status = IF(available_quantity = 0, 'sold_out', 'available')
	             WHERE id = ? AND event_id = ? AND available_quantity >= ?`
	res, err := tx.ExecContext(ctx, dec, qty, ticketID, eventID, qty)
	if err != nil {
		return nil, nil, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, nil, err
	}
	if n == 0 {
		var id uint64
		err = tx.QueryRowContext(ctx, `SELECT id FROM tickets WHERE id = ? AND event_id = ?`, ticketID, eventID).Scan(&id)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return nil, nil, ErrTicketNotFound
		case err != nil:
			return nil, nil, err
		}
		return nil, nil, fmt.Errorf("reserve %d of ticket %d: %w", qty, ticketID, apperr.ErrInsufficientInventory)
	}

	ticket, err := scanTicket(tx.QueryRowContext(ctx, `SELECT `+ticketColumns+` FROM tickets t WHERE t.id = ?`, ticketID))
	if err != nil {
		return nil, nil, err
	}

	const ins = `INSERT INTO bookings (user_id, event_id, ticket_id, quantity, price_paid, status)
	             VALUES (?, ?, ?, ?, ?, ?)`
	res, err = tx.ExecContext(ctx, ins, userID, eventID, ticketID, qty, ticket.PriceFor(qty), model.BookingConfirmed)
	if err != nil {
		return nil, nil, err
	}
	bookingID, err := res.LastInsertId()
	if err != nil {
		return nil, nil, err
	}
	booking, err := scanBooking(tx.QueryRowContext(ctx, `SELECT `+bookingColumns+` FROM bookings b WHERE b.id = ?`, bookingID))
	if err != nil {
		return nil, nil, err
	}

	if err = tx.Commit(); err != nil {
		return nil, nil, err
	}
	committed = true
	booking.Ticket = ticket
	return booking, ticket, nil
}

// Cancel marks the caller's booking cancelled at the given time and puts
// its units back on the ticket.  The booking row is locked first so two
// cancellations of the same booking serialize and only one restores stock.
func (r *BookingRepo) Cancel(ctx context.Context, userID, bookingID uint64, at time.Time) (*model.Booking, *model.Ticket, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, nil, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	sel := `SELECT ` + bookingColumns + ` FROM bookings b WHERE b.id = ? AND b.user_id = ? FOR UPDATE`
	booking, err := scanBooking(tx.QueryRowContext(ctx, sel, bookingID, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, ErrBookingNotFound
		}
		return nil, nil, err
	}
	if booking.IsCancelled() {
		return nil, nil, fmt.Errorf("booking %d: %w", bookingID, apperr.ErrAlreadyCancelled)
	}

	const upd = `UPDATE bookings SET status = ?, cancelled_at = ? WHERE id = ? AND status = ?`
	res, err := tx.ExecContext(ctx, upd, model.BookingCancelled, at, bookingID, model.BookingConfirmed)
	if err != nil {
		return nil, nil, err
	}
	if n, err := res.RowsAffected(); err != nil {
		return nil, nil, err
	} else if n == 0 {
		return nil, nil, fmt.Errorf("booking %d: %w", bookingID, apperr.ErrAlreadyCancelled)
	}

	const restore = `UPDATE tickets
	                 SET available_quantity = LEAST(quantity, available_quantity + ?),
	                     status = IF(available_quantity = 0, 'sold_out', 'available')
	                 WHERE id = ?`
	if _, err = tx.ExecContext(ctx, restore, booking.Quantity, booking.TicketID); err != nil {
		return nil, nil, err
	}

	ticket, err := scanTicket(tx.QueryRowContext(ctx, `SELECT `+ticketColumns+` FROM tickets t WHERE t.id = ?`, booking.TicketID))
	if err != nil {
		return nil, nil, err
	}
	if err = tx.Commit(); err != nil {
		return nil, nil, err
	}
	committed = true

	cancelledAt := at.UTC()
	booking.Status = model.BookingCancelled
	booking.CancelledAt = &cancelledAt
	booking.Ticket = ticket
	return booking, ticket, nil
}

// ListByUser returns the user's bookings, newest first, each with its event
// and ticket.  Upcoming means the event has not started at now; past means
// it ended before now.  Events in progress are in neither.
func (r *BookingRepo) ListByUser(ctx context.Context, userID uint64, filter BookingFilter, now time.Time) ([]*model.Booking, error) {
	q := `SELECT ` + bookingColumns + `, ` + eventColumns + `, ` + ticketColumns + bookingDetailFrom + `
	      WHERE b.user_id = ?`
	args := []any{userID}
	switch filter {
	case BookingsUpcoming:
		q += ` AND e.start_date >= ?`
		args = append(args, now)
	case BookingsPast:
		q += ` AND e.end_date < ?`
		args = append(args, now)
	}
	q += ` ORDER BY b.created_at DESC, b.id DESC`

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]*model.Booking, 0)
	for rows.Next() {
		b, err := scanBookingDetail(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// GetByIDForUser returns one booking with its event and ticket.  Bookings
// of other users are reported as not found.
func (r *BookingRepo) GetByIDForUser(ctx context.Context, userID, id uint64) (*model.Booking, error) {
	q := `SELECT ` + bookingColumns + `, ` + eventColumns + `, ` + ticketColumns + bookingDetailFrom + `
	      WHERE b.id = ? AND b.user_id = ?`
	b, err := scanBookingDetail(r.db.QueryRowContext(ctx, q, id, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrBookingNotFound
		}
		return nil, err
	}
	return b, nil
}
