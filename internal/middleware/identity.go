package middleware

import (
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/webexpert/event-ticketing/internal/model"
)

// Context keys set by JWTAuth and OptionalJWT.
const (
	ctxUserID = "user_id"
	ctxRole   = "role"
)

func setIdentity(c echo.Context, userID uint64, role model.Role) {
	c.Set(ctxUserID, userID)
	c.Set(ctxRole, role)
}

// UserID returns the authenticated user id, or false for guests.
func UserID(c echo.Context) (uint64, bool) {
	id, ok := c.Get(ctxUserID).(uint64)
	return id, ok && id != 0
}

// RoleOf returns the caller's role.  Guests get the zero Role, which has no
// capabilities.
func RoleOf(c echo.Context) model.Role {
	r, _ := c.Get(ctxRole).(model.Role)
	return r
}

// rateSubject identifies the caller in rate limit keys.
func rateSubject(c echo.Context) string {
	if id, ok := UserID(c); ok {
		return strconv.FormatUint(id, 10)
	}
	return "anon"
}
