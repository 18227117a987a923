// Package middleware contains the Echo middleware shared by the API routes:
// bearer authentication, capability checks and rate limiting.
package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/webexpert/event-ticketing/internal/utils"
)

// JWTAuth validates a Bearer access token and stores its subject and role
// in the request context (see UserID and RoleOf).  Requests without a valid
// token are answered with 401.
func JWTAuth(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw, ok := bearer(c)
			if !ok {
				return deny(c, http.StatusUnauthorized, "unauthenticated")
			}
			userID, role, err := utils.ParseAccessToken(secret, raw)
			if err != nil {
				return deny(c, http.StatusUnauthorized, "invalid or expired token")
			}
			setIdentity(c, userID, role)
			return next(c)
		}
	}
}

// OptionalJWT attaches the identity when a valid Bearer token is present
// and otherwise lets the request through as a guest.  Public reads use it
// to widen what admins can see.
func OptionalJWT(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if raw, ok := bearer(c); ok {
				if userID, role, err := utils.ParseAccessToken(secret, raw); err == nil {
					setIdentity(c, userID, role)
				}
			}
			return next(c)
		}
	}
}

func bearer(c echo.Context) (string, bool) {
	auth := c.Request().Header.Get(echo.HeaderAuthorization)
	if !strings.HasPrefix(auth, "Bearer ") {
		return "", false
	}
	raw := strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
	return raw, raw != ""
}

// deny writes the API error envelope.
func deny(c echo.Context, status int, msg string) error {
	return c.JSON(status, echo.Map{"success": false, "message": msg})
}
