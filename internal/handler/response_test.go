package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/webexpert/event-ticketing/internal/apperr"
	"github.com/webexpert/event-ticketing/internal/repository"
)

type errBody struct {
	Success bool              `json:"success"`
	Message string            `json:"message"`
	Errors  map[string]string `json:"errors"`
}

func render(t *testing.T, err error) (int, errBody) {
	t.Helper()
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
	require.NoError(t, fail(c, err))
	var b errBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &b))
	return rec.Code, b
}

func TestFailStatusMapping(t *testing.T) {
	cases := []struct {
		err    error
		status int
		msg    string
	}{
		{apperr.ErrUnauthenticated, http.StatusUnauthorized, "unauthenticated"},
		{apperr.ErrForbidden, http.StatusForbidden, "unauthorized action"},
		{repository.ErrEventNotFound, http.StatusNotFound, "event not found"},
		{fmt.Errorf("id %q: %w", "x", apperr.ErrNotFound), http.StatusNotFound, "not found"},
		{fmt.Errorf("reserve: %w", apperr.ErrInsufficientInventory), http.StatusBadRequest, "not enough tickets available"},
		{apperr.ErrSalesNotStarted, http.StatusBadRequest, "ticket sales have not started yet"},
		{apperr.ErrSalesEnded, http.StatusBadRequest, "ticket sales have ended"},
		{apperr.ErrAlreadyCancelled, http.StatusBadRequest, "booking is already cancelled"},
		{apperr.ErrAlreadyFavorited, http.StatusBadRequest, "event is already in your favorites"},
		{apperr.ErrNotFavorited, http.StatusBadRequest, "event is not in your favorites"},
		{apperr.ErrHasActiveReservations, http.StatusBadRequest, "tickets have outstanding reservations"},
		{repository.ErrEmailExists, http.StatusConflict, "email has already been taken"},
		{repository.ErrInvalidRefresh, http.StatusUnauthorized, "invalid refresh token"},
		{echo.ErrMethodNotAllowed, http.StatusMethodNotAllowed, "Method Not Allowed"},
		{errors.New("dial tcp: connection refused"), http.StatusInternalServerError, "server error"},
	}
	for _, tc := range cases {
		status, b := render(t, tc.err)
		assert.Equal(t, tc.status, status, tc.err.Error())
		assert.Equal(t, tc.msg, b.Message, tc.err.Error())
		assert.False(t, b.Success)
	}
}

func TestFailValidationErrors(t *testing.T) {
	status, b := render(t, validation.Errors{"end_date": errors.New("must be on or after start_date")})
	assert.Equal(t, http.StatusUnprocessableEntity, status)
	assert.Equal(t, "the given data was invalid", b.Message)
	assert.Equal(t, "must be on or after start_date", b.Errors["end_date"])
}

func TestFailQuantityBelowReserved(t *testing.T) {
	status, b := render(t, fmt.Errorf("6 units reserved: %w", repository.ErrQuantityBelowReserved))
	assert.Equal(t, http.StatusUnprocessableEntity, status)
	assert.Contains(t, b.Errors, "quantity")
}

func TestOKAlwaysCarriesData(t *testing.T) {
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodDelete, "/", nil), rec)
	require.NoError(t, ok(c, http.StatusOK, nil, "event deleted successfully"))

	var raw map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &raw))
	require.Contains(t, raw, "data")
	assert.JSONEq(t, "null", string(raw["data"]))
	assert.JSONEq(t, "true", string(raw["success"]))
	assert.NotContains(t, raw, "errors")
}

func TestFailOmitsData(t *testing.T) {
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
	require.NoError(t, fail(c, apperr.ErrForbidden))

	var raw map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &raw))
	assert.NotContains(t, raw, "data")
	assert.JSONEq(t, "false", string(raw["success"]))
}

func TestPathID(t *testing.T) {
	e := echo.New()
	for _, raw := range []string{"0", "-1", "abc", ""} {
		c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
		c.SetParamNames("id")
		c.SetParamValues(raw)
		_, err := pathID(c, "id")
		assert.ErrorIs(t, err, apperr.ErrNotFound, raw)
	}
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
	c.SetParamNames("id")
	c.SetParamValues("42")
	id, err := pathID(c, "id")
	require.NoError(t, err)
	assert.Equal(t, uint64(42), id)
}
