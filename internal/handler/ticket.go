package handler

import (
	"context"
	"net/http"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/webexpert/event-ticketing/internal/model"
	"github.com/webexpert/event-ticketing/internal/repository"
)

// Reserver is the reservation workflow used by the reserve endpoint.
type Reserver interface {
	Reserve(ctx context.Context, userID, eventID, ticketID uint64, qty int) (*model.Booking, *model.Ticket, error)
}

// TicketHandler serves tickets nested under their event.
type TicketHandler struct {
	Events       *repository.EventRepo
	Tickets      *repository.TicketRepo
	Reservations Reserver
}

func NewTicketHandler(events *repository.EventRepo, tickets *repository.TicketRepo, r Reserver) *TicketHandler {
	return &TicketHandler{Events: events, Tickets: tickets, Reservations: r}
}

// ids parses :event and, when withTicket is set, :id.
func ids(c echo.Context, withTicket bool) (eventID, ticketID uint64, err error) {
	if eventID, err = pathID(c, "event"); err != nil {
		return 0, 0, err
	}
	if withTicket {
		if ticketID, err = pathID(c, "id"); err != nil {
			return 0, 0, err
		}
	}
	return eventID, ticketID, nil
}

// List handles GET /api/events/:event/tickets.
func (h *TicketHandler) List(c echo.Context) error {
	eventID, _, err := ids(c, false)
	if err != nil {
		return fail(c, err)
	}
	if _, err := visibleEvent(c, h.Events, eventID); err != nil {
		return fail(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	tickets, err := h.Tickets.ListByEvent(ctx, eventID)
	if err != nil {
		return fail(c, err)
	}
	return ok(c, http.StatusOK, tickets, "")
}

// Show handles GET /api/events/:event/tickets/:id.
func (h *TicketHandler) Show(c echo.Context) error {
	eventID, ticketID, err := ids(c, true)
	if err != nil {
		return fail(c, err)
	}
	if _, err := visibleEvent(c, h.Events, eventID); err != nil {
		return fail(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	t, err := h.Tickets.GetByIDAndEvent(ctx, eventID, ticketID)
	if err != nil {
		return fail(c, err)
	}
	return ok(c, http.StatusOK, t, "")
}

func bindTicket(c echo.Context) (model.TicketInput, error) {
	var in model.TicketInput
	if err := bind(c, &in); err != nil {
		return in, err
	}
	in.Normalize()
	return in, in.Validate()
}

// Create handles POST /api/events/:event/tickets (admin).  The whole
// quantity starts out available.
func (h *TicketHandler) Create(c echo.Context) error {
	eventID, _, err := ids(c, false)
	if err != nil {
		return fail(c, err)
	}
	in, err := bindTicket(c)
	if err != nil {
		return fail(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	if _, err := h.Events.GetByID(ctx, eventID); err != nil {
		return fail(c, err)
	}

	t := &model.Ticket{EventID: eventID, Quantity: in.Quantity}
	in.Apply(t)
	if err := h.Tickets.Create(ctx, t); err != nil {
		return fail(c, err)
	}
	return ok(c, http.StatusCreated, t, "Ticket created successfully.")
}

// Update handles PUT /api/events/:event/tickets/:id (admin).
func (h *TicketHandler) Update(c echo.Context) error {
	eventID, ticketID, err := ids(c, true)
	if err != nil {
		return fail(c, err)
	}
	in, err := bindTicket(c)
	if err != nil {
		return fail(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	t, err := h.Tickets.Update(ctx, eventID, ticketID, in)
	if err != nil {
		return fail(c, err)
	}
	return ok(c, http.StatusOK, t, "Ticket updated successfully.")
}

// Delete handles DELETE /api/events/:event/tickets/:id (admin).
func (h *TicketHandler) Delete(c echo.Context) error {
	eventID, ticketID, err := ids(c, true)
	if err != nil {
		return fail(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.Tickets.Delete(ctx, eventID, ticketID); err != nil {
		return fail(c, err)
	}
	return ok(c, http.StatusOK, nil, "Ticket deleted successfully.")
}

type reserveReq struct {
	Quantity int `json:"quantity"`
}

func (r reserveReq) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Quantity, validation.Required, validation.Min(1), validation.Max(model.MaxTicketQuantity)),
	)
}

type reservation struct {
	Booking    *model.Booking  `json:"booking"`
	Ticket     *model.Ticket   `json:"ticket"`
	Quantity   int             `json:"quantity"`
	TotalPrice decimal.Decimal `json:"total_price"`
}

// Reserve handles POST /api/events/:event/tickets/:id/reserve.
func (h *TicketHandler) Reserve(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return fail(c, err)
	}
	eventID, ticketID, err := ids(c, true)
	if err != nil {
		return fail(c, err)
	}
	var req reserveReq
	if err := bind(c, &req); err != nil {
		return fail(c, err)
	}
	if err := req.Validate(); err != nil {
		return fail(c, err)
	}
	if _, err := visibleEvent(c, h.Events, eventID); err != nil {
		return fail(c, err)
	}

	ctx, cancel := reqCtx(c)
	defer cancel()
	b, t, err := h.Reservations.Reserve(ctx, uid, eventID, ticketID, req.Quantity)
	if err != nil {
		return fail(c, err)
	}
	return ok(c, http.StatusOK, reservation{Booking: b, Ticket: t, Quantity: b.Quantity, TotalPrice: b.PricePaid},
		"Tickets reserved successfully.")
}
