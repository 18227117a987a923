package model

import (
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Event is a scheduled happening for which tickets are sold.  Non-admin
// callers only ever see published events.
//
// Fields:
//
//	ID          – primary key identifier.
//	OwnerID     – admin who created the event (nil once that user is gone).
//	Title       – display title.
//	Description – free text.
//	Location    – venue or city.
//	StartDate   – when the event begins.
//	EndDate     – when the event ends; never before StartDate.
//	Image       – optional image reference (URL or storage path).
//	IsPublished – whether the event is visible to the public.
type Event struct {
	ID          uint64    `json:"id"`                 // events.id
	OwnerID     *uint64   `json:"owner_id,omitempty"` // events.owner_id (nullable)
	Title       string    `json:"title"`              // events.title
	Description string    `json:"description"`        // events.description
	Location    string    `json:"location"`           // events.location
	StartDate   time.Time `json:"start_date"`         // events.start_date
	EndDate     time.Time `json:"end_date"`           // events.end_date
	Image       *string   `json:"image"`              // events.image (nullable)
	IsPublished bool      `json:"is_published"`       // events.is_published
	CreatedAt   time.Time `json:"created_at"`         // events.created_at
	UpdatedAt   time.Time `json:"updated_at"`         // events.updated_at

	Tickets []*Ticket `json:"tickets,omitempty"`
}

// EventInput is the validated body of POST/PUT /events.
type EventInput struct {
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Location    string    `json:"location"`
	StartDate   time.Time `json:"start_date"`
	EndDate     time.Time `json:"end_date"`
	Image       *string   `json:"image"`
	IsPublished *bool     `json:"is_published"`
}

// Normalize trims free-text fields and converts times to UTC.
func (in *EventInput) Normalize() {
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	in.Location = strings.TrimSpace(in.Location)
	in.StartDate = in.StartDate.UTC()
	in.EndDate = in.EndDate.UTC()
	if in.Image != nil {
		img := strings.TrimSpace(*in.Image)
		if img == "" {
			in.Image = nil
		} else {
			in.Image = &img
		}
	}
}

// Validate returns validation.Errors keyed by JSON field name.
func (in EventInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.Title, validation.Required, validation.Length(1, 255)),
		validation.Field(&in.Description, validation.Required),
		validation.Field(&in.Location, validation.Required, validation.Length(1, 255)),
		validation.Field(&in.StartDate, validation.Required),
		validation.Field(&in.EndDate,
			validation.Required,
			validation.Min(in.StartDate).Error("must be on or after start_date"),
		),
		validation.Field(&in.Image, validation.Length(1, 2048)),
	)
}

// Apply copies the input onto e.  IsPublished defaults to false on create
// and is left untouched on update when omitted.
func (in EventInput) Apply(e *Event) {
	e.Title = in.Title
	e.Description = in.Description
	e.Location = in.Location
	e.StartDate = in.StartDate
	e.EndDate = in.EndDate
	e.Image = in.Image
	if in.IsPublished != nil {
		e.IsPublished = *in.IsPublished
	}
}

// VisibleTo reports whether a caller holding role may read the event.  A
// zero role stands for an anonymous visitor.
func (e *Event) VisibleTo(role Role) bool {
	return e.IsPublished || role.CanViewUnpublished()
}

// TicketsCanBeBought reports whether any of the loaded tickets is on sale
// with inventory left at now.
func (e *Event) TicketsCanBeBought(now time.Time) bool {
	for _, t := range e.Tickets {
		if t.SaleState(now) == SaleOpen && t.AvailableQuantity > 0 {
			return true
		}
	}
	return false
}
