// Package router registers the HTTP routes of the API on an Echo instance.
package router

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/webexpert/event-ticketing/internal/handler"
	"github.com/webexpert/event-ticketing/internal/middleware"
)

// APIPrefix is the path under which every JSON endpoint is mounted.
const APIPrefix = "/api"

// RegisterRoutes registers the unauthenticated operational endpoints:
// the health check and the Prometheus scrape target.
func RegisterRoutes(e *echo.Echo, h *handler.Health) {
	e.GET("/healthz", h.Check)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
}

// RegisterAuth registers the account endpoints.  Register, login and
// refresh are public; the rest need a valid access token.
func RegisterAuth(api *echo.Group, a *handler.AuthHandler, jwtSecret string) {
	api.POST("/register", a.Register)
	api.POST("/login", a.Login)
	api.POST("/refresh", a.Refresh)

	auth := middleware.JWTAuth(jwtSecret)
	api.POST("/logout", a.Logout, auth)
	api.GET("/user", a.Me, auth)
	api.PUT("/user/password", a.ChangePassword, auth)
}
