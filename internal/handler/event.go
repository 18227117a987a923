package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/labstack/echo/v4"

	"github.com/webexpert/event-ticketing/internal/middleware"
	"github.com/webexpert/event-ticketing/internal/model"
	"github.com/webexpert/event-ticketing/internal/repository"
)

// EventHandler serves the event catalogue.  Reads are public; unpublished
// events are reported as missing unless the caller may view them.
type EventHandler struct {
	Events  *repository.EventRepo
	Tickets *repository.TicketRepo
	Now     func() time.Time
}

func NewEventHandler(events *repository.EventRepo, tickets *repository.TicketRepo) *EventHandler {
	return &EventHandler{Events: events, Tickets: tickets, Now: func() time.Time { return time.Now().UTC() }}
}

type eventDetail struct {
	Event              *model.Event `json:"event"`
	TicketsCanBeBought bool         `json:"tickets_can_be_bought"`
}

// List handles GET /api/events.  Admins may add include_unpublished=true.
func (h *EventHandler) List(c echo.Context) error {
	include, _ := strconv.ParseBool(c.QueryParam("include_unpublished"))
	include = include && middleware.RoleOf(c).CanViewUnpublished()

	ctx, cancel := reqCtx(c)
	defer cancel()
	events, err := h.Events.List(ctx, include)
	if err != nil {
		return fail(c, err)
	}
	return ok(c, http.StatusOK, events, "")
}

type searchPage struct {
	Items    []*model.Event `json:"items"`
	Total    int64          `json:"total"`
	Page     int            `json:"page"`
	PageSize int            `json:"page_size"`
}

// Search handles GET /api/events/search.
// time: "upcoming" (default), "active" (end_date >= now), "any" (no time filter)
func (h *EventHandler) Search(c echo.Context) error {
	timeFilter := strings.ToLower(strings.TrimSpace(c.QueryParam("time")))
	switch timeFilter {
	case repository.SearchUpcoming, repository.SearchActive, repository.SearchAny:
	case "":
		timeFilter = repository.SearchUpcoming
	default:
		return fail(c, validation.Errors{"time": errors.New("must be one of upcoming, active, any")})
	}

	page, _ := strconv.Atoi(c.QueryParam("page"))
	if page < 1 {
		page = 1
	}
	ps, _ := strconv.Atoi(c.QueryParam("page_size"))
	if ps < 1 {
		ps = 20
	}
	if ps > 100 {
		ps = 100
	}

	q := repository.EventSearchQuery{
		Title:              strings.TrimSpace(c.QueryParam("title")),
		Location:           strings.TrimSpace(c.QueryParam("location")),
		TimeFilter:         timeFilter,
		Page:               page,
		PageSize:           ps,
		IncludeUnpublished: middleware.RoleOf(c).CanViewUnpublished(),
		Now:                h.Now(),
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	items, total, err := h.Events.Search(ctx, q)
	if err != nil {
		return fail(c, err)
	}
	return ok(c, http.StatusOK, searchPage{Items: items, Total: total, Page: page, PageSize: ps}, "")
}

// Show handles GET /api/events/:id with the event's tickets, cheapest
// first, and whether any of them can be bought right now.
func (h *EventHandler) Show(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return fail(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	ev, err := visibleEvent(c, h.Events, id)
	if err != nil {
		return fail(c, err)
	}
	if ev.Tickets, err = h.Tickets.ListByEvent(ctx, ev.ID); err != nil {
		return fail(c, err)
	}
	return ok(c, http.StatusOK, eventDetail{Event: ev, TicketsCanBeBought: ev.TicketsCanBeBought(h.Now())}, "")
}

// visibleEvent loads an event the caller is allowed to read.
func visibleEvent(c echo.Context, events *repository.EventRepo, id uint64) (*model.Event, error) {
	ctx, cancel := reqCtx(c)
	defer cancel()
	ev, err := events.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !ev.VisibleTo(middleware.RoleOf(c)) {
		return nil, repository.ErrEventNotFound
	}
	return ev, nil
}

// Create handles POST /api/events (admin).
func (h *EventHandler) Create(c echo.Context) error {
	var in model.EventInput
	if err := bind(c, &in); err != nil {
		return fail(c, err)
	}
	in.Normalize()
	if err := in.Validate(); err != nil {
		return fail(c, err)
	}
	uid, err := getUserID(c)
	if err != nil {
		return fail(c, err)
	}

	ev := &model.Event{OwnerID: &uid}
	in.Apply(ev)
	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.Events.Create(ctx, ev); err != nil {
		return fail(c, err)
	}
	return ok(c, http.StatusCreated, ev, "Event created successfully.")
}

// Update handles PUT /api/events/:id (admin).
func (h *EventHandler) Update(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return fail(c, err)
	}
	var in model.EventInput
	if err := bind(c, &in); err != nil {
		return fail(c, err)
	}
	in.Normalize()
	if err := in.Validate(); err != nil {
		return fail(c, err)
	}

	ctx, cancel := reqCtx(c)
	defer cancel()
	ev, err := h.Events.GetByID(ctx, id)
	if err != nil {
		return fail(c, err)
	}
	in.Apply(ev)
	if err := h.Events.Update(ctx, ev); err != nil {
		return fail(c, err)
	}
	if ev, err = h.Events.GetByID(ctx, id); err != nil {
		return fail(c, err)
	}
	return ok(c, http.StatusOK, ev, "Event updated successfully.")
}

// Delete handles DELETE /api/events/:id (admin).  Events whose tickets
// still have confirmed reservations cannot be deleted.
func (h *EventHandler) Delete(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return fail(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.Events.Delete(ctx, id); err != nil {
		return fail(c, err)
	}
	return ok(c, http.StatusOK, nil, "Event deleted successfully.")
}
