package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/webexpert/event-ticketing/internal/repository"
)

// FavoriteHandler manages the caller's bookmarked events.
type FavoriteHandler struct {
	Events    *repository.EventRepo
	Tickets   *repository.TicketRepo
	Favorites *repository.FavoriteRepo
}

func NewFavoriteHandler(events *repository.EventRepo, tickets *repository.TicketRepo, favorites *repository.FavoriteRepo) *FavoriteHandler {
	return &FavoriteHandler{Events: events, Tickets: tickets, Favorites: favorites}
}

// List handles GET /api/favorites: bookmarked events with their tickets,
// most recently added first.
func (h *FavoriteHandler) List(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return fail(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	events, err := h.Favorites.ListEvents(ctx, uid)
	if err != nil {
		return fail(c, err)
	}
	ids := make([]uint64, len(events))
	for i, e := range events {
		ids[i] = e.ID
	}
	tickets, err := h.Tickets.ListByEvents(ctx, ids)
	if err != nil {
		return fail(c, err)
	}
	for _, e := range events {
		e.Tickets = tickets[e.ID]
	}
	return ok(c, http.StatusOK, events, "")
}

// Add handles POST /api/favorites/:event.
func (h *FavoriteHandler) Add(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return fail(c, err)
	}
	eventID, err := pathID(c, "event")
	if err != nil {
		return fail(c, err)
	}
	ev, err := visibleEvent(c, h.Events, eventID)
	if err != nil {
		return fail(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.Favorites.Add(ctx, uid, eventID); err != nil {
		return fail(c, err)
	}
	return ok(c, http.StatusOK, ev, "Event added to favorites.")
}

// Remove handles DELETE /api/favorites/:event.
func (h *FavoriteHandler) Remove(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return fail(c, err)
	}
	eventID, err := pathID(c, "event")
	if err != nil {
		return fail(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	if _, err := h.Events.GetByID(ctx, eventID); err != nil {
		return fail(c, err)
	}
	if err := h.Favorites.Remove(ctx, uid, eventID); err != nil {
		return fail(c, err)
	}
	return ok(c, http.StatusOK, nil, "Event removed from favorites.")
}

// Check handles GET /api/favorites/:event/check.
func (h *FavoriteHandler) Check(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return fail(c, err)
	}
	eventID, err := pathID(c, "event")
	if err != nil {
		return fail(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	fav, err := h.Favorites.Exists(ctx, uid, eventID)
	if err != nil {
		return fail(c, err)
	}
	return ok(c, http.StatusOK, echo.Map{"is_favorited": fav}, "")
}
