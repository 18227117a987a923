package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/webexpert/event-ticketing/internal/apperr"
	"github.com/webexpert/event-ticketing/internal/model"
)

// EventRepo manages persistence for events.  Deleting an event cascades to
// its tickets, favorites and (cancelled) bookings through foreign keys.
type EventRepo struct {
	db *sql.DB
}

// NewEventRepo constructs an EventRepo with the given DB handle.
func NewEventRepo(db *sql.DB) *EventRepo {
	return &EventRepo{db: db}
}

// Create inserts e and reloads it so that defaults (timestamps) are populated.
func (r *EventRepo) Create(ctx context.Context, e *model.Event) error {
	const q = `INSERT INTO events (owner_id, title, description, location, start_date, end_date, image, is_published)
	           VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, q, e.OwnerID, e.Title, e.Description, e.Location,
		e.StartDate, e.EndDate, e.Image, e.IsPublished)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	created, err := r.GetByID(ctx, uint64(id))
	if err != nil {
		return err
	}
	*e = *created
	return nil
}

// GetByID fetches an event regardless of its published flag.  Visibility
// rules are applied by callers.
func (r *EventRepo) GetByID(ctx context.Context, id uint64) (*model.Event, error) {
	q := `SELECT ` + eventColumns + ` FROM events e WHERE e.id = ?`
	e, err := scanEvent(r.db.QueryRowContext(ctx, q, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrEventNotFound
		}
		return nil, err
	}
	return e, nil
}

// List returns events ordered by start date.  Unpublished events are only
// included when includeUnpublished is set.
func (r *EventRepo) List(ctx context.Context, includeUnpublished bool) ([]*model.Event, error) {
	q := `SELECT ` + eventColumns + ` FROM events e`
	if !includeUnpublished {
		q += ` WHERE e.is_published = 1`
	}
	q += ` ORDER BY e.start_date, e.id`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]*model.Event, 0)
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Update writes all mutable columns of e.  Existence must be checked by the
// caller; MySQL reports zero affected rows for an unchanged row.
func (r *EventRepo) Update(ctx context.Context, e *model.Event) error {
	const q = `UPDATE events
	           SET title = ?, description = ?, location = ?, start_date = ?, end_date = ?, image = ?, is_published = ?
	           WHERE id = ?`
	_, err := r.db.ExecContext(ctx, q, e.Title, e.Description, e.Location, e.StartDate, e.EndDate,
		e.Image, e.IsPublished, e.ID)
	return err
}

// Delete removes an event unless one of its tickets still has units held
// by confirmed bookings.  The event row is locked so that no reservation
// can slip in between the check and the delete.
func (r *EventRepo) Delete(ctx context.Context, id uint64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	var locked uint64
	if err = tx.QueryRowContext(ctx, `SELECT id FROM events WHERE id = ? FOR UPDATE`, id).Scan(&locked); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrEventNotFound
		}
		return err
	}
	// Lock the tickets too: a concurrent reservation decrements them.
	rows, err := tx.QueryContext(ctx,
		`SELECT available_quantity < quantity FROM tickets WHERE event_id = ? FOR UPDATE`, id)
	if err != nil {
		return err
	}
	outstanding := false
	for rows.Next() {
		var held bool
		if err = rows.Scan(&held); err != nil {
			rows.Close()
			return err
		}
		outstanding = outstanding || held
	}
	rows.Close()
	if err = rows.Err(); err != nil {
		return err
	}
	if outstanding {
		return fmt.Errorf("delete event %d: %w", id, apperr.ErrHasActiveReservations)
	}
	if _, err = tx.ExecContext(ctx, `DELETE FROM events WHERE id = ?`, id); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}
