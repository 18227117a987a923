package handler

import (
	"errors"
	"log/slog"
	"net/http"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/labstack/echo/v4"

	"github.com/webexpert/event-ticketing/internal/apperr"
	"github.com/webexpert/event-ticketing/internal/repository"
)

// successEnvelope is the body of every successful response.  data is always
// present, null when the operation returns nothing.
type successEnvelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data"`
	Message string `json:"message,omitempty"`
}

// envelope is the body of every error response.
type envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Errors  any    `json:"errors,omitempty"`
}

func ok(c echo.Context, status int, data any, msg string) error {
	return c.JSON(status, successEnvelope{Success: true, Data: data, Message: msg})
}

// errorRule maps an error kind to a status and the message shown to the
// client.  Rules are tried in order, so specific sentinels come before the
// kinds they wrap.
type errorRule struct {
	kind   error
	status int
	msg    string // empty: use kind.Error()
	field  string // set: report msg under errors[field]
}

var errorRules = []errorRule{
	{kind: repository.ErrQuantityBelowReserved, status: http.StatusUnprocessableEntity,
		msg: "quantity cannot be lower than the number of tickets already reserved", field: "quantity"},
	{kind: repository.ErrEmailExists, status: http.StatusConflict, msg: "email has already been taken"},
	{kind: repository.ErrInvalidRefresh, status: http.StatusUnauthorized, msg: "invalid refresh token"},
	{kind: repository.ErrEventNotFound, status: http.StatusNotFound},
	{kind: repository.ErrTicketNotFound, status: http.StatusNotFound},
	{kind: repository.ErrBookingNotFound, status: http.StatusNotFound},
	{kind: repository.ErrUserNotFound, status: http.StatusNotFound},

	{kind: apperr.ErrUnauthenticated, status: http.StatusUnauthorized},
	{kind: apperr.ErrForbidden, status: http.StatusForbidden},
	{kind: apperr.ErrNotFound, status: http.StatusNotFound},
	{kind: apperr.ErrInvalidInput, status: http.StatusUnprocessableEntity},
	{kind: apperr.ErrConflict, status: http.StatusConflict},

	{kind: apperr.ErrSalesNotStarted, status: http.StatusBadRequest},
	{kind: apperr.ErrSalesEnded, status: http.StatusBadRequest},
	{kind: apperr.ErrInsufficientInventory, status: http.StatusBadRequest},
	{kind: apperr.ErrAlreadyCancelled, status: http.StatusBadRequest},
	{kind: apperr.ErrAlreadyFavorited, status: http.StatusBadRequest},
	{kind: apperr.ErrNotFavorited, status: http.StatusBadRequest},
	{kind: apperr.ErrHasActiveReservations, status: http.StatusBadRequest},
}

// fail writes the error envelope for err.  Unknown errors become a generic
// 500 and are logged with the request id; their text never reaches the
// client.
func fail(c echo.Context, err error) error {
	var verrs validation.Errors
	if errors.As(err, &verrs) {
		return c.JSON(http.StatusUnprocessableEntity, envelope{Message: apperr.ErrInvalidInput.Error(), Errors: verrs})
	}
	var herr *echo.HTTPError
	if errors.As(err, &herr) {
		msg, _ := herr.Message.(string)
		if msg == "" {
			msg = http.StatusText(herr.Code)
		}
		return c.JSON(herr.Code, envelope{Message: msg})
	}
	for _, r := range errorRules {
		if !errors.Is(err, r.kind) {
			continue
		}
		msg := r.msg
		if msg == "" {
			msg = r.kind.Error()
		}
		body := envelope{Message: msg}
		if r.field != "" {
			body.Message = apperr.ErrInvalidInput.Error()
			body.Errors = map[string]string{r.field: msg}
		}
		return c.JSON(r.status, body)
	}

	slog.Error("request failed",
		"method", c.Request().Method,
		"path", c.Path(),
		"request_id", c.Response().Header().Get(echo.HeaderXRequestID),
		"err", err)
	return c.JSON(http.StatusInternalServerError, envelope{Message: "server error"})
}

// ErrorHandler renders errors that escape handlers or originate in Echo
// itself (unknown route, wrong method) in the same envelope.
func ErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	if werr := fail(c, err); werr != nil {
		slog.Error("write error response", "err", werr)
	}
}
