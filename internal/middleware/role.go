package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/webexpert/event-ticketing/internal/model"
)

// Require aborts with 403 unless the caller's role has the capability, e.g.
// Require(model.Role.CanManageCatalog).  It must run after JWTAuth; a
// request without identity gets 401.
func Require(capability func(model.Role) bool) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if _, ok := UserID(c); !ok {
				return deny(c, http.StatusUnauthorized, "unauthenticated")
			}
			if !capability(RoleOf(c)) {
				return deny(c, http.StatusForbidden, "unauthorized action")
			}
			return next(c)
		}
	}
}
