package router

import (
	"github.com/labstack/echo/v4"

	"github.com/webexpert/event-ticketing/internal/handler"
	"github.com/webexpert/event-ticketing/internal/middleware"
)

// RegisterCustomer registers the endpoints acting on the caller's own
// bookings and favorites.  All of them require a valid access token; the
// reserve endpoint additionally passes through the rate limiter.
func RegisterCustomer(api *echo.Group, tk *handler.TicketHandler, b *handler.BookingHandler,
	f *handler.FavoriteHandler, jwtSecret string, limiter echo.MiddlewareFunc) {
	auth := middleware.JWTAuth(jwtSecret)

	api.POST("/events/:event/tickets/:id/reserve", tk.Reserve, auth, limiter)

	api.GET("/bookings", b.List, auth)
	api.GET("/bookings/upcoming", b.Upcoming, auth)
	api.GET("/bookings/past", b.Past, auth)
	api.GET("/bookings/:id", b.Show, auth)
	api.POST("/bookings/:id/cancel", b.Cancel, auth)

	api.GET("/favorites", f.List, auth)
	api.POST("/favorites/:event", f.Add, auth)
	api.DELETE("/favorites/:event", f.Remove, auth)
	api.GET("/favorites/:event/check", f.Check, auth)
}
