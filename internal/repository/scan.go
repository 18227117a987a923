package repository

import (
	"database/sql"

	"github.com/webexpert/event-ticketing/internal/model"
)

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

const eventColumns = `e.id, e.owner_id, e.title, e.description, e.location, e.start_date, e.end_date,
	e.image, e.is_published, e.created_at, e.updated_at`

const ticketColumns = `t.id, t.event_id, t.type, t.description, t.price, t.quantity, t.available_quantity,
	t.sale_starts_at, t.sale_ends_at, t.status, t.created_at, t.updated_at`

const bookingColumns = `b.id, b.user_id, b.event_id, b.ticket_id, b.quantity, b.price_paid, b.status,
	b.cancelled_at, b.created_at, b.updated_at`

// eventDest returns scan destinations for eventColumns and a finisher that
// copies nullable columns onto e once Scan has succeeded.
func eventDest(e *model.Event) ([]any, func()) {
	var owner sql.NullInt64
	var image sql.NullString
	dest := []any{&e.ID, &owner, &e.Title, &e.Description, &e.Location, &e.StartDate, &e.EndDate,
		&image, &e.IsPublished, &e.CreatedAt, &e.UpdatedAt}
	return dest, func() {
		e.OwnerID, e.Image = nil, nil
		if owner.Valid {
			id := uint64(owner.Int64)
			e.OwnerID = &id
		}
		if image.Valid {
			s := image.String
			e.Image = &s
		}
	}
}

func ticketDest(t *model.Ticket) ([]any, func()) {
	var desc sql.NullString
	var starts, ends sql.NullTime
	dest := []any{&t.ID, &t.EventID, &t.Type, &desc, &t.Price, &t.Quantity, &t.AvailableQuantity,
		&starts, &ends, &t.Status, &t.CreatedAt, &t.UpdatedAt}
	return dest, func() {
		t.Description, t.SaleStartsAt, t.SaleEndsAt = nil, nil, nil
		if desc.Valid {
			s := desc.String
			t.Description = &s
		}
		if starts.Valid {
			v := starts.Time.UTC()
			t.SaleStartsAt = &v
		}
		if ends.Valid {
			v := ends.Time.UTC()
			t.SaleEndsAt = &v
		}
	}
}

func bookingDest(b *model.Booking) ([]any, func()) {
	var cancelled sql.NullTime
	dest := []any{&b.ID, &b.UserID, &b.EventID, &b.TicketID, &b.Quantity, &b.PricePaid, &b.Status,
		&cancelled, &b.CreatedAt, &b.UpdatedAt}
	return dest, func() {
		b.CancelledAt = nil
		if cancelled.Valid {
			v := cancelled.Time.UTC()
			b.CancelledAt = &v
		}
	}
}

func scanEvent(row rowScanner) (*model.Event, error) {
	e := new(model.Event)
	dest, finish := eventDest(e)
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	finish()
	return e, nil
}

func scanTicket(row rowScanner) (*model.Ticket, error) {
	t := new(model.Ticket)
	dest, finish := ticketDest(t)
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	finish()
	return t, nil
}

func scanBooking(row rowScanner) (*model.Booking, error) {
	b := new(model.Booking)
	dest, finish := bookingDest(b)
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	finish()
	return b, nil
}

// scanBookingDetail scans bookingColumns, eventColumns and ticketColumns
// from one joined row.
func scanBookingDetail(row rowScanner) (*model.Booking, error) {
	b := &model.Booking{Event: new(model.Event), Ticket: new(model.Ticket)}
	bd, bf := bookingDest(b)
	ed, ef := eventDest(b.Event)
	td, tf := ticketDest(b.Ticket)
	dest := append(append(bd, ed...), td...)
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	bf()
	ef()
	tf()
	return b, nil
}
