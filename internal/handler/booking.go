package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/webexpert/event-ticketing/internal/model"
	"github.com/webexpert/event-ticketing/internal/repository"
)

// Canceller is the cancellation half of the reservation workflow.
type Canceller interface {
	Cancel(ctx context.Context, userID, bookingID uint64) (*model.Booking, *model.Ticket, error)
}

// BookingHandler serves the caller's own bookings.
type BookingHandler struct {
	Bookings *repository.BookingRepo
	Cancels  Canceller
	Now      func() time.Time
}

func NewBookingHandler(bookings *repository.BookingRepo, cancels Canceller) *BookingHandler {
	return &BookingHandler{Bookings: bookings, Cancels: cancels, Now: func() time.Time { return time.Now().UTC() }}
}

func (h *BookingHandler) list(c echo.Context, filter repository.BookingFilter) error {
	uid, err := getUserID(c)
	if err != nil {
		return fail(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	bookings, err := h.Bookings.ListByUser(ctx, uid, filter, h.Now())
	if err != nil {
		return fail(c, err)
	}
	return ok(c, http.StatusOK, bookings, "")
}

// List handles GET /api/bookings, newest first.
func (h *BookingHandler) List(c echo.Context) error { return h.list(c, repository.BookingsAll) }

// Upcoming handles GET /api/bookings/upcoming.
func (h *BookingHandler) Upcoming(c echo.Context) error { return h.list(c, repository.BookingsUpcoming) }

// Past handles GET /api/bookings/past.
func (h *BookingHandler) Past(c echo.Context) error { return h.list(c, repository.BookingsPast) }

// Show handles GET /api/bookings/:id.
func (h *BookingHandler) Show(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return fail(c, err)
	}
	id, err := pathID(c, "id")
	if err != nil {
		return fail(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	b, err := h.Bookings.GetByIDForUser(ctx, uid, id)
	if err != nil {
		return fail(c, err)
	}
	return ok(c, http.StatusOK, b, "")
}

// Cancel handles POST /api/bookings/:id/cancel.
func (h *BookingHandler) Cancel(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return fail(c, err)
	}
	id, err := pathID(c, "id")
	if err != nil {
		return fail(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	b, _, err := h.Cancels.Cancel(ctx, uid, id)
	if err != nil {
		return fail(c, err)
	}
	return ok(c, http.StatusOK, b, "Booking cancelled successfully.")
}
