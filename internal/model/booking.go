package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// BookingStatus moves from confirmed to cancelled and never back.
type BookingStatus string

const (
	BookingConfirmed BookingStatus = "confirmed"
	BookingCancelled BookingStatus = "cancelled"
)

// Booking records a user's purchase of Quantity units of one ticket.
// PricePaid is fixed at purchase time (ticket price × quantity).
//
// Fields:
//
//	ID          – primary key identifier.
//	UserID      – buyer.
//	EventID     – event the ticket belongs to.
//	TicketID    – purchased ticket line.
//	Quantity    – units purchased, at least 1.
//	PricePaid   – total charged.
//	Status      – confirmed or cancelled.
//	CancelledAt – set once when the booking is cancelled.
type Booking struct {
	ID          uint64          `json:"id"`           // bookings.id
	UserID      uint64          `json:"user_id"`      // bookings.user_id
	EventID     uint64          `json:"event_id"`     // bookings.event_id
	TicketID    uint64          `json:"ticket_id"`    // bookings.ticket_id
	Quantity    int             `json:"quantity"`     // bookings.quantity
	PricePaid   decimal.Decimal `json:"price_paid"`   // bookings.price_paid
	Status      BookingStatus   `json:"status"`       // bookings.status
	CancelledAt *time.Time      `json:"cancelled_at"` // bookings.cancelled_at (nullable)
	CreatedAt   time.Time       `json:"created_at"`   // bookings.created_at
	UpdatedAt   time.Time       `json:"updated_at"`   // bookings.updated_at

	Event  *Event  `json:"event,omitempty"`
	Ticket *Ticket `json:"ticket,omitempty"`
}

// IsCancelled reports whether the booking already released its inventory.
func (b *Booking) IsCancelled() bool { return b.Status == BookingCancelled }

// Favorite is a user's bookmark of an event, unique per pair.
type Favorite struct {
	UserID    uint64    `json:"user_id"`    // favorites.user_id
	EventID   uint64    `json:"event_id"`   // favorites.event_id
	CreatedAt time.Time `json:"created_at"` // favorites.created_at
}
