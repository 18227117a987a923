package handler_test

import (
	"context"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/webexpert/event-ticketing/internal/apperr"
	"github.com/webexpert/event-ticketing/internal/handler"
	"github.com/webexpert/event-ticketing/internal/model"
	"github.com/webexpert/event-ticketing/internal/repository"
	"github.com/webexpert/event-ticketing/internal/router"
	"github.com/webexpert/event-ticketing/internal/utils"
)

const secret = "test-secret"

var (
	stamp     = time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)
	eventCols = []string{"id", "owner_id", "title", "description", "location", "start_date", "end_date", "image", "is_published", "created_at", "updated_at"}
)

func eventRow(id int64, published bool) []driver.Value {
	return []driver.Value{id, int64(1), "Jazz Night", "Live jazz", "Ghent", stamp.Add(48 * time.Hour), stamp.Add(52 * time.Hour), nil, published, stamp, stamp}
}

type fakeReserver struct {
	calls int
	err   error
}

func (f *fakeReserver) Reserve(_ context.Context, userID, eventID, ticketID uint64, qty int) (*model.Booking, *model.Ticket, error) {
	f.calls++
	if f.err != nil {
		return nil, nil, f.err
	}
	t := &model.Ticket{ID: ticketID, EventID: eventID, Type: "General", Price: decimal.RequireFromString("20.00"), Quantity: 5, AvailableQuantity: 5 - qty}
	b := &model.Booking{ID: 1, UserID: userID, EventID: eventID, TicketID: ticketID, Quantity: qty,
		PricePaid: t.PriceFor(qty), Status: model.BookingConfirmed, Ticket: t}
	return b, t, nil
}

type fakeCanceller struct{ err error }

func (f fakeCanceller) Cancel(context.Context, uint64, uint64) (*model.Booking, *model.Ticket, error) {
	return nil, nil, f.err
}

type api struct {
	e        *echo.Echo
	mock     sqlmock.Sqlmock
	reserver *fakeReserver
}

func newAPI(t *testing.T, cancelErr error) *api {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	events := repository.NewEventRepo(db)
	tickets := repository.NewTicketRepo(db)
	res := &fakeReserver{}

	e := echo.New()
	e.HTTPErrorHandler = handler.ErrorHandler
	g := e.Group(router.APIPrefix)
	tk := handler.NewTicketHandler(events, tickets, res)
	router.RegisterCatalog(g, handler.NewEventHandler(events, tickets), tk, secret)
	passthrough := func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	router.RegisterCustomer(g, tk, handler.NewBookingHandler(repository.NewBookingRepo(db), fakeCanceller{cancelErr}),
		handler.NewFavoriteHandler(events, tickets, repository.NewFavoriteRepo(db)), secret, passthrough)
	return &api{e: e, mock: mock, reserver: res}
}

func token(t *testing.T, userID uint64, role model.Role) string {
	t.Helper()
	tok, err := utils.NewAccessToken(secret, userID, role, 15, time.Now())
	require.NoError(t, err)
	return tok.Token
}

type reply struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
	Errors  map[string]any  `json:"errors"`
}

func (a *api) do(t *testing.T, method, path, payload, tok string) (int, reply) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(payload))
	if payload != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if tok != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+tok)
	}
	rec := httptest.NewRecorder()
	a.e.ServeHTTP(rec, req)
	var r reply
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &r), rec.Body.String())
	return rec.Code, r
}

func TestCreateEventEndBeforeStart(t *testing.T) {
	a := newAPI(t, nil)
	body := `{"title":"Jazz","description":"Live","location":"Ghent",
		"start_date":"2026-05-02T20:00:00Z","end_date":"2026-05-01T20:00:00Z"}`

	status, r := a.do(t, http.MethodPost, "/api/events", body, token(t, 1, model.RoleAdmin))
	assert.Equal(t, http.StatusUnprocessableEntity, status)
	assert.False(t, r.Success)
	assert.Contains(t, r.Errors, "end_date")
	assert.NoError(t, a.mock.ExpectationsWereMet(), "nothing may reach the database")
}

func TestCreateEvent(t *testing.T) {
	a := newAPI(t, nil)
	body := `{"title":" Jazz Night ","description":"Live jazz","location":"Ghent",
		"start_date":"2026-04-03T09:00:00Z","end_date":"2026-04-03T13:00:00Z","is_published":true}`

	a.mock.ExpectExec(regexp.QuoteMeta("INSERT INTO events")).
		WithArgs(1, "Jazz Night", "Live jazz", "Ghent", stamp.Add(48*time.Hour), stamp.Add(52*time.Hour), nil, true).
		WillReturnResult(sqlmock.NewResult(3, 1))
	a.mock.ExpectQuery(regexp.QuoteMeta("FROM events e WHERE e.id = ?")).WithArgs(3).
		WillReturnRows(sqlmock.NewRows(eventCols).AddRow(eventRow(3, true)...))

	status, r := a.do(t, http.MethodPost, "/api/events", body, token(t, 1, model.RoleAdmin))
	require.Equal(t, http.StatusCreated, status, r.Message)
	assert.Equal(t, "Event created successfully.", r.Message)
	assert.Contains(t, string(r.Data), `"id":3`)
	assert.NoError(t, a.mock.ExpectationsWereMet())
}

func TestCatalogMutationsNeedAdmin(t *testing.T) {
	a := newAPI(t, nil)

	status, _ := a.do(t, http.MethodDelete, "/api/events/3", "", "")
	assert.Equal(t, http.StatusUnauthorized, status)

	status, r := a.do(t, http.MethodDelete, "/api/events/3", "", token(t, 2, model.RoleUser))
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "unauthorized action", r.Message)

	status, _ = a.do(t, http.MethodPost, "/api/events/3/tickets", `{}`, token(t, 2, model.RoleUser))
	assert.Equal(t, http.StatusForbidden, status)
	assert.NoError(t, a.mock.ExpectationsWereMet())
}

func TestDeleteEventReturnsNullData(t *testing.T) {
	a := newAPI(t, nil)
	a.mock.ExpectBegin()
	a.mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM events WHERE id = ? FOR UPDATE")).WithArgs(3).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(3))
	a.mock.ExpectQuery(regexp.QuoteMeta("FROM tickets WHERE event_id = ? FOR UPDATE")).WithArgs(3).
		WillReturnRows(sqlmock.NewRows([]string{"held"}).AddRow(false))
	a.mock.ExpectExec(regexp.QuoteMeta("DELETE FROM events WHERE id = ?")).WithArgs(3).
		WillReturnResult(sqlmock.NewResult(0, 1))
	a.mock.ExpectCommit()

	status, r := a.do(t, http.MethodDelete, "/api/events/3", "", token(t, 1, model.RoleAdmin))
	require.Equal(t, http.StatusOK, status, r.Message)
	assert.True(t, r.Success)
	assert.Equal(t, "Event deleted successfully.", r.Message)
	assert.Equal(t, "null", string(r.Data))
	assert.NoError(t, a.mock.ExpectationsWereMet())
}

func TestUnpublishedEventIsHiddenFromGuests(t *testing.T) {
	a := newAPI(t, nil)
	sel := regexp.QuoteMeta("FROM events e WHERE e.id = ?")

	a.mock.ExpectQuery(sel).WithArgs(4).WillReturnRows(sqlmock.NewRows(eventCols).AddRow(eventRow(4, false)...))
	status, _ := a.do(t, http.MethodGet, "/api/events/4", "", "")
	assert.Equal(t, http.StatusNotFound, status)

	a.mock.ExpectQuery(sel).WithArgs(4).WillReturnRows(sqlmock.NewRows(eventCols).AddRow(eventRow(4, false)...))
	a.mock.ExpectQuery(regexp.QuoteMeta("FROM tickets t WHERE t.event_id = ?")).WithArgs(4).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	status, r := a.do(t, http.MethodGet, "/api/events/4", "", token(t, 1, model.RoleAdmin))
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(r.Data), `"tickets_can_be_bought":false`)
	assert.NoError(t, a.mock.ExpectationsWereMet())
}

func TestReserve(t *testing.T) {
	a := newAPI(t, nil)
	a.mock.ExpectQuery(regexp.QuoteMeta("FROM events e WHERE e.id = ?")).WithArgs(10).
		WillReturnRows(sqlmock.NewRows(eventCols).AddRow(eventRow(10, true)...))

	status, r := a.do(t, http.MethodPost, "/api/events/10/tickets/1/reserve", `{"quantity":3}`, token(t, 7, model.RoleUser))
	require.Equal(t, http.StatusOK, status, r.Message)
	assert.Equal(t, "Tickets reserved successfully.", r.Message)

	var data struct {
		Quantity   int             `json:"quantity"`
		TotalPrice decimal.Decimal `json:"total_price"`
		Ticket     struct {
			Available int `json:"available_quantity"`
		} `json:"ticket"`
	}
	require.NoError(t, json.Unmarshal(r.Data, &data))
	assert.Equal(t, 3, data.Quantity)
	assert.True(t, decimal.RequireFromString("60").Equal(data.TotalPrice))
	assert.Equal(t, 2, data.Ticket.Available)
	assert.Equal(t, 1, a.reserver.calls)
	assert.NoError(t, a.mock.ExpectationsWereMet())
}

func TestReserveRejectsBeforeTouchingStock(t *testing.T) {
	a := newAPI(t, nil)
	user := token(t, 7, model.RoleUser)

	status, _ := a.do(t, http.MethodPost, "/api/events/10/tickets/1/reserve", `{"quantity":1}`, "")
	assert.Equal(t, http.StatusUnauthorized, status)

	for _, payload := range []string{`{"quantity":0}`, `{"quantity":-2}`, `{}`, `{"quantity":1000001}`} {
		status, r := a.do(t, http.MethodPost, "/api/events/10/tickets/1/reserve", payload, user)
		assert.Equal(t, http.StatusUnprocessableEntity, status, payload)
		assert.Contains(t, r.Errors, "quantity", payload)
	}

	a.mock.ExpectQuery(regexp.QuoteMeta("FROM events e WHERE e.id = ?")).WithArgs(10).
		WillReturnRows(sqlmock.NewRows(eventCols).AddRow(eventRow(10, false)...))
	status, _ = a.do(t, http.MethodPost, "/api/events/10/tickets/1/reserve", `{"quantity":1}`, user)
	assert.Equal(t, http.StatusNotFound, status)

	assert.Zero(t, a.reserver.calls)
	assert.NoError(t, a.mock.ExpectationsWereMet())
}

func TestReserveBusinessRuleRejection(t *testing.T) {
	a := newAPI(t, nil)
	a.reserver.err = fmt.Errorf("reserve 3 of ticket 1: %w", apperr.ErrInsufficientInventory)
	a.mock.ExpectQuery(regexp.QuoteMeta("FROM events e WHERE e.id = ?")).WithArgs(10).
		WillReturnRows(sqlmock.NewRows(eventCols).AddRow(eventRow(10, true)...))

	status, r := a.do(t, http.MethodPost, "/api/events/10/tickets/1/reserve", `{"quantity":3}`, token(t, 7, model.RoleUser))
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "not enough tickets available", r.Message)
	assert.False(t, r.Success)
}

func TestCancelTwice(t *testing.T) {
	a := newAPI(t, fmt.Errorf("booking 5: %w", apperr.ErrAlreadyCancelled))
	status, r := a.do(t, http.MethodPost, "/api/bookings/5/cancel", "", token(t, 7, model.RoleUser))
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "booking is already cancelled", r.Message)
}

func TestSearchRejectsUnknownTimeFilter(t *testing.T) {
	a := newAPI(t, nil)
	status, r := a.do(t, http.MethodGet, "/api/events/search?time=tomorrow", "", "")
	assert.Equal(t, http.StatusUnprocessableEntity, status)
	assert.Contains(t, r.Errors, "time")
}

func TestSearchClampsPaging(t *testing.T) {
	a := newAPI(t, nil)
	a.mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM events e WHERE e.start_date >= ? AND e.is_published = 1")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int64(0)))
	a.mock.ExpectQuery(regexp.QuoteMeta("LIMIT ? OFFSET ?")).
		WithArgs(sqlmock.AnyArg(), 100, 0).
		WillReturnRows(sqlmock.NewRows(eventCols))

	status, r := a.do(t, http.MethodGet, "/api/events/search?page=0&page_size=500", "", "")
	require.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"items":[],"total":0,"page":1,"page_size":100}`, string(r.Data))
	assert.NoError(t, a.mock.ExpectationsWereMet())
}

func TestUnknownRouteUsesEnvelope(t *testing.T) {
	a := newAPI(t, nil)
	status, r := a.do(t, http.MethodGet, "/api/nope", "", "")
	assert.Equal(t, http.StatusNotFound, status)
	assert.False(t, r.Success)
	assert.Equal(t, "Not Found", r.Message)
}
