package handler

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
)

// Health reports liveness plus the state of the backing stores.  The
// database is required; Redis only backs rate limiting, so its absence
// degrades rather than fails the check.
type Health struct {
	DB    *sql.DB
	Redis *redis.Client // nil when rate limiting runs without Redis
}

func (h *Health) Check(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
	defer cancel()

	status := echo.Map{"status": "ok", "database": "up", "redis": "disabled"}
	code := http.StatusOK
	if err := h.DB.PingContext(ctx); err != nil {
		status["status"], status["database"] = "unavailable", "down"
		code = http.StatusServiceUnavailable
	}
	if h.Redis != nil {
		status["redis"] = "up"
		if err := h.Redis.Ping(ctx).Err(); err != nil {
			status["redis"] = "down"
		}
	}
	return c.JSON(code, status)
}
