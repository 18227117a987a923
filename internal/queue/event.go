// Package queue defines the booking domain events exchanged over RabbitMQ,
// the publisher used after a reservation or cancellation commits, and the
// audit consumer that appends them to a log file.
package queue

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/webexpert/event-ticketing/internal/model"
)

// Queue names double as routing keys on the default exchange.
const (
	QueueBookingConfirmed = "booking.confirmed"
	QueueBookingCancelled = "booking.cancelled"
)

// BookingEvent is published once per committed booking state change.  It
// carries enough information for downstream consumers to log, notify or
// aggregate without querying the primary database.
type BookingEvent struct {
	Kind       string          `json:"kind"` // one of the queue names
	BookingID  uint64          `json:"booking_id"`
	UserID     uint64          `json:"user_id"`
	EventID    uint64          `json:"event_id"`
	TicketID   uint64          `json:"ticket_id"`
	TicketType string          `json:"ticket_type,omitempty"`
	Quantity   int             `json:"quantity"`
	PricePaid  decimal.Decimal `json:"price_paid"`
	Available  int             `json:"available_quantity"` // ticket inventory after the change
	OccurredAt time.Time       `json:"occurred_at"`
}

// NewBookingEvent builds the payload for kind from a booking and the ticket
// state it left behind.
func NewBookingEvent(kind string, b *model.Booking, t *model.Ticket, at time.Time) BookingEvent {
	ev := BookingEvent{
		Kind:       kind,
		BookingID:  b.ID,
		UserID:     b.UserID,
		EventID:    b.EventID,
		TicketID:   b.TicketID,
		Quantity:   b.Quantity,
		PricePaid:  b.PricePaid,
		OccurredAt: at.UTC(),
	}
	if t != nil {
		ev.TicketType = t.Type
		ev.Available = t.AvailableQuantity
	}
	return ev
}
