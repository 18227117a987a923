package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-redis/redismock/v9"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func checkHealth(t *testing.T, h *Health) (int, map[string]string) {
	t.Helper()
	rec := httptest.NewRecorder()
	c := echo.New().NewContext(httptest.NewRequest(http.MethodGet, "/healthz", nil), rec)
	require.NoError(t, h.Check(c))
	var out map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return rec.Code, out
}

func TestHealth(t *testing.T) {
	db, dbMock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer db.Close()
	rdb, redisMock := redismock.NewClientMock()

	dbMock.ExpectPing()
	redisMock.ExpectPing().SetVal("PONG")
	code, out := checkHealth(t, &Health{DB: db, Redis: rdb})
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, map[string]string{"status": "ok", "database": "up", "redis": "up"}, out)

	dbMock.ExpectPing()
	redisMock.ExpectPing().SetErr(errors.New("connection refused"))
	code, out = checkHealth(t, &Health{DB: db, Redis: rdb})
	assert.Equal(t, http.StatusOK, code, "redis only degrades")
	assert.Equal(t, "down", out["redis"])

	dbMock.ExpectPing().WillReturnError(errors.New("gone"))
	code, out = checkHealth(t, &Health{DB: db})
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, map[string]string{"status": "unavailable", "database": "down", "redis": "disabled"}, out)

	assert.NoError(t, dbMock.ExpectationsWereMet())
	assert.NoError(t, redisMock.ExpectationsWereMet())
}
