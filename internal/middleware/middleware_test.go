package middleware

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/webexpert/event-ticketing/internal/config"
	"github.com/webexpert/event-ticketing/internal/model"
	"github.com/webexpert/event-ticketing/internal/utils"
)

const secret = "middleware-secret"

func token(t *testing.T, id uint64, role model.Role) string {
	t.Helper()
	tok, err := utils.NewAccessToken(secret, id, role, 10, time.Now())
	require.NoError(t, err)
	return tok.Token
}

// serve runs one request through mw in front of a handler that echoes the
// identity it sees.
func serve(t *testing.T, authz string, mws ...echo.MiddlewareFunc) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	h := func(c echo.Context) error {
		id, _ := UserID(c)
		return c.JSON(http.StatusOK, echo.Map{"user_id": id, "role": RoleOf(c).String()})
	}
	e.GET("/probe", h, mws...)
	req := httptest.NewRequest(http.MethodGet, "/probe", nil)
	if authz != "" {
		req.Header.Set(echo.HeaderAuthorization, authz)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestJWTAuth(t *testing.T) {
	rec := serve(t, "", JWTAuth(secret))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"success":false,"message":"unauthenticated"}`, rec.Body.String())

	rec = serve(t, "Bearer garbage", JWTAuth(secret))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = serve(t, "Bearer "+token(t, 5, model.RoleUser), JWTAuth(secret))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"user_id":5,"role":"user"}`, rec.Body.String())
}

func TestOptionalJWT(t *testing.T) {
	rec := serve(t, "", OptionalJWT(secret))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"user_id":0,"role":"unknown"}`, rec.Body.String())

	rec = serve(t, "Bearer expired-or-bad", OptionalJWT(secret))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"user_id":0,"role":"unknown"}`, rec.Body.String())

	rec = serve(t, "Bearer "+token(t, 9, model.RoleAdmin), OptionalJWT(secret))
	assert.JSONEq(t, `{"user_id":9,"role":"admin"}`, rec.Body.String())
}

func TestRequireCapability(t *testing.T) {
	admin := Require(model.Role.CanManageCatalog)

	rec := serve(t, "", OptionalJWT(secret), admin)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = serve(t, "Bearer "+token(t, 2, model.RoleUser), JWTAuth(secret), admin)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.JSONEq(t, `{"success":false,"message":"unauthorized action"}`, rec.Body.String())

	rec = serve(t, "Bearer "+token(t, 1, model.RoleAdmin), JWTAuth(secret), admin)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestTokenBucket(t *testing.T) {
	cfg := config.RateLimitConfig{
		Enabled:        true,
		Capacity:       2,
		RefillTokens:   1,
		RefillInterval: 6 * time.Second,
		TTL:            time.Minute,
		KeyStrategy:    "user_route",
		Prefix:         "rl",
	}
	clock := time.UnixMilli(1_700_000_000_000)
	now := func() time.Time { return clock }
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	db, mock := redismock.NewClientMock()
	key := "rl:user:4:route:GET /probe"
	args := []interface{}{clock.UnixMilli(), 2, 1, int64(6000), int64(60)}

	mock.ExpectEvalSha(limiterScript.Hash(), []string{key}, args...).SetVal([]interface{}{int64(1), int64(1), int64(0)})
	mock.ExpectEvalSha(limiterScript.Hash(), []string{key}, args...).SetVal([]interface{}{int64(0), int64(0), int64(4500)})
	mock.ExpectEvalSha(limiterScript.Hash(), []string{key}, args...).SetErr(errors.New("connection refused"))

	limiter := NewTokenBucket(cfg, db, log, now)
	authz := "Bearer " + token(t, 4, model.RoleUser)

	rec := serve(t, authz, JWTAuth(secret), limiter)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "2", rec.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "1", rec.Header().Get("X-RateLimit-Remaining"))

	rec = serve(t, authz, JWTAuth(secret), limiter)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "5", rec.Header().Get("Retry-After"))
	assert.JSONEq(t, `{"success":false,"message":"too many requests","retry_after":5}`, rec.Body.String())

	// Redis failures fail open.
	rec = serve(t, authz, JWTAuth(secret), limiter)
	assert.Equal(t, http.StatusOK, rec.Code)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTokenBucketDisabled(t *testing.T) {
	db, mock := redismock.NewClientMock()
	limiter := NewTokenBucket(config.RateLimitConfig{Enabled: false}, db, nil, nil)
	rec := serve(t, "", limiter)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBuildRateKeyStrategies(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/api/events/1/tickets/2/reserve", nil)
	req.Header.Set(echo.HeaderXRealIP, "10.0.0.1")
	c := e.NewContext(req, httptest.NewRecorder())
	c.SetPath("/api/events/:event/tickets/:id/reserve")
	setIdentity(c, 3, model.RoleUser)

	route := "POST /api/events/:event/tickets/:id/reserve"
	cases := map[string]string{
		"ip":         "rl:ip:10.0.0.1",
		"user":       "rl:user:3",
		"route":      "rl:route:" + route,
		"ip_user":    "rl:ip:10.0.0.1:user:3",
		"ip_route":   "rl:ip:10.0.0.1:route:" + route,
		"user_route": "rl:user:3:route:" + route,
		"":           "rl:ip:10.0.0.1:user:3:route:" + route,
	}
	for strategy, want := range cases {
		got := buildRateKey(config.RateLimitConfig{Prefix: "rl", KeyStrategy: strategy}, c)
		assert.Equal(t, want, got, strategy)
	}
}
