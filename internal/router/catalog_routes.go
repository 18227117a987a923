package router

import (
	"github.com/labstack/echo/v4"

	"github.com/webexpert/event-ticketing/internal/handler"
	"github.com/webexpert/event-ticketing/internal/middleware"
	"github.com/webexpert/event-ticketing/internal/model"
)

// RegisterCatalog registers events and their tickets.  Reads run with an
// optional identity so admins can see unpublished events; every mutation
// requires the catalog management capability.
func RegisterCatalog(api *echo.Group, ev *handler.EventHandler, tk *handler.TicketHandler, jwtSecret string) {
	optional := middleware.OptionalJWT(jwtSecret)
	api.GET("/events", ev.List, optional)
	api.GET("/events/search", ev.Search, optional)
	api.GET("/events/:id", ev.Show, optional)
	api.GET("/events/:event/tickets", tk.List, optional)
	api.GET("/events/:event/tickets/:id", tk.Show, optional)

	admin := []echo.MiddlewareFunc{middleware.JWTAuth(jwtSecret), middleware.Require(model.Role.CanManageCatalog)}
	api.POST("/events", ev.Create, admin...)
	api.PUT("/events/:id", ev.Update, admin...)
	api.DELETE("/events/:id", ev.Delete, admin...)
	api.POST("/events/:event/tickets", tk.Create, admin...)
	api.PUT("/events/:event/tickets/:id", tk.Update, admin...)
	api.DELETE("/events/:event/tickets/:id", tk.Delete, admin...)
}
