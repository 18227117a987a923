package handler

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/webexpert/event-ticketing/internal/apperr"
	"github.com/webexpert/event-ticketing/internal/middleware"
)

// requestTimeout bounds the storage work of a single request.
const requestTimeout = 5 * time.Second

func reqCtx(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), requestTimeout)
}

// getUserID returns the authenticated caller or ErrUnauthenticated.
func getUserID(c echo.Context) (uint64, error) {
	id, ok := middleware.UserID(c)
	if !ok {
		return 0, apperr.ErrUnauthenticated
	}
	return id, nil
}

// pathID parses a positive numeric path parameter.  Anything else is
// reported as a missing resource, like an id that does not exist.
func pathID(c echo.Context, name string) (uint64, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("%s %q: %w", name, c.Param(name), apperr.ErrNotFound)
	}
	return id, nil
}

// bind decodes the request body into dst.  A malformed body is a 422 like
// any other invalid input.
func bind(c echo.Context, dst any) error {
	if err := c.Bind(dst); err != nil {
		return fmt.Errorf("malformed request body: %w", apperr.ErrInvalidInput)
	}
	return nil
}
