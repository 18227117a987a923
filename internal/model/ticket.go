package model

import (
	"errors"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/shopspring/decimal"
)

// TicketStatus is derived from inventory: a ticket line with nothing left
// is sold out until a cancellation or a quantity increase frees units.
type TicketStatus string

const (
	TicketAvailable TicketStatus = "available"
	TicketSoldOut   TicketStatus = "sold_out"
)

// SaleState places a point in time relative to a ticket's sale window.
type SaleState int

const (
	SaleOpen SaleState = iota
	SaleNotStarted
	SaleEnded
)

// MaxTicketPrice is the largest value the DECIMAL(8,2) price column holds.
var MaxTicketPrice = decimal.RequireFromString("999999.99")

// MaxTicketQuantity caps a ticket line's pool, and therefore any single
// booking, so that MaxTicketPrice × quantity fits MaxBookingTotal.
const MaxTicketQuantity = 1_000_000

// MaxBookingTotal is the largest value the DECIMAL(15,2) price_paid column
// holds.
var MaxBookingTotal = decimal.RequireFromString("9999999999999.99")

// Ticket is a purchasable inventory line of an event.
// Invariant: 0 <= AvailableQuantity <= Quantity.
type Ticket struct {
	ID                uint64          `json:"id"`                 // tickets.id
	EventID           uint64          `json:"event_id"`           // tickets.event_id
	Type              string          `json:"type"`               // tickets.type, e.g. VIP or Early Bird
	Description       *string         `json:"description"`        // tickets.description (nullable)
	Price             decimal.Decimal `json:"price"`              // tickets.price
	Quantity          int             `json:"quantity"`           // tickets.quantity (total pool)
	AvailableQuantity int             `json:"available_quantity"` // tickets.available_quantity
	SaleStartsAt      *time.Time      `json:"sale_starts_at"`     // tickets.sale_starts_at (nullable)
	SaleEndsAt        *time.Time      `json:"sale_ends_at"`       // tickets.sale_ends_at (nullable)
	Status            TicketStatus    `json:"status"`             // tickets.status
	CreatedAt         time.Time       `json:"created_at"`         // tickets.created_at
	UpdatedAt         time.Time       `json:"updated_at"`         // tickets.updated_at
}

// Reserved is the number of units held by confirmed bookings.
func (t *Ticket) Reserved() int { return t.Quantity - t.AvailableQuantity }

// SaleState evaluates the sale window at now.  A ticket without a start
// is on sale immediately; one without an end never closes.
func (t *Ticket) SaleState(now time.Time) SaleState {
	if t.SaleStartsAt != nil && now.Before(*t.SaleStartsAt) {
		return SaleNotStarted
	}
	if t.SaleEndsAt != nil && now.After(*t.SaleEndsAt) {
		return SaleEnded
	}
	return SaleOpen
}

// PriceFor is the amount charged for qty units at the current price.
func (t *Ticket) PriceFor(qty int) decimal.Decimal {
	return t.Price.Mul(decimal.NewFromInt(int64(qty)))
}

// StatusFor derives the status column from an available quantity.
func StatusFor(available int) TicketStatus {
	if available <= 0 {
		return TicketSoldOut
	}
	return TicketAvailable
}

// TicketInput is the validated body of POST/PUT /events/:event/tickets.
type TicketInput struct {
	Type         string           `json:"type"`
	Price        *decimal.Decimal `json:"price"`
	Quantity     int              `json:"quantity"`
	Description  *string          `json:"description"`
	SaleStartsAt *time.Time       `json:"sale_starts_at"`
	SaleEndsAt   *time.Time       `json:"sale_ends_at"`
}

// Normalize trims text and converts the sale window to UTC.
func (in *TicketInput) Normalize() {
	in.Type = strings.TrimSpace(in.Type)
	if in.Description != nil {
		d := strings.TrimSpace(*in.Description)
		if d == "" {
			in.Description = nil
		} else {
			in.Description = &d
		}
	}
	if in.SaleStartsAt != nil {
		s := in.SaleStartsAt.UTC()
		in.SaleStartsAt = &s
	}
	if in.SaleEndsAt != nil {
		e := in.SaleEndsAt.UTC()
		in.SaleEndsAt = &e
	}
}

// Validate returns validation.Errors keyed by JSON field name.
func (in TicketInput) Validate() error {
	saleEnd := []validation.Rule{}
	if in.SaleStartsAt != nil {
		saleEnd = append(saleEnd, validation.Min(*in.SaleStartsAt).Error("must be on or after sale_starts_at"))
	}
	return validation.ValidateStruct(&in,
		validation.Field(&in.Type, validation.Required, validation.Length(1, 255)),
		validation.Field(&in.Price, validation.Required, validation.By(validPrice)),
		validation.Field(&in.Quantity, validation.Required, validation.Min(1), validation.Max(MaxTicketQuantity)),
		validation.Field(&in.SaleEndsAt, saleEnd...),
	)
}

// Apply copies the input onto t without touching inventory.
func (in TicketInput) Apply(t *Ticket) {
	t.Type = in.Type
	if in.Price != nil {
		t.Price = *in.Price
	}
	t.Description = in.Description
	t.SaleStartsAt = in.SaleStartsAt
	t.SaleEndsAt = in.SaleEndsAt
}

func validPrice(value any) error {
	p, ok := value.(*decimal.Decimal)
	if !ok || p == nil {
		return nil
	}
	switch {
	case p.IsNegative():
		return errors.New("must be no less than 0")
	case p.GreaterThan(MaxTicketPrice):
		return errors.New("must be no greater than 999999.99")
	case !p.Equal(p.Round(2)):
		return errors.New("must have at most two decimal places")
	}
	return nil
}
