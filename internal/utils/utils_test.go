package utils

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/webexpert/event-ticketing/internal/model"
)

const secret = "test-secret"

func TestAccessTokenRoundTrip(t *testing.T) {
	tok, err := NewAccessToken(secret, 42, model.RoleAdmin, 15, time.Now())
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(15*time.Minute), tok.Exp, 5*time.Second)

	id, role, err := ParseAccessToken(secret, tok.Token)
	require.NoError(t, err)
	assert.Equal(t, uint64(42), id)
	assert.Equal(t, model.RoleAdmin, role)
}

func TestParseAccessTokenRejects(t *testing.T) {
	expired, err := NewAccessToken(secret, 1, model.RoleUser, 1, time.Now().Add(-time.Hour))
	require.NoError(t, err)
	valid, err := NewAccessToken(secret, 1, model.RoleUser, 15, time.Now())
	require.NoError(t, err)

	badRole := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		Role: "superuser",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	badRoleRaw, err := badRole.SignedString([]byte(secret))
	require.NoError(t, err)

	noExpiry := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		Role:             "user",
		RegisteredClaims: jwt.RegisteredClaims{Subject: "1"},
	})
	noExpiryRaw, err := noExpiry.SignedString([]byte(secret))
	require.NoError(t, err)

	cases := map[string]struct {
		secret string
		raw    string
	}{
		"expired":      {secret, expired.Token},
		"wrong secret": {"other", valid.Token},
		"garbage":      {secret, "not.a.jwt"},
		"unknown role": {secret, badRoleRaw},
		"no expiry":    {secret, noExpiryRaw},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, _, err := ParseAccessToken(tc.secret, tc.raw)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}

func TestRefreshToken(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	a, err := NewRefreshToken(7, now)
	require.NoError(t, err)
	b, err := NewRefreshToken(7, now)
	require.NoError(t, err)

	assert.Len(t, a.Raw, 96)
	assert.NotEqual(t, a.Raw, b.Raw)
	assert.Equal(t, now.Add(7*24*time.Hour), a.Exp)

	h := HashRefreshRaw(a.Raw)
	assert.Len(t, h, 64)
	assert.Equal(t, h, HashRefreshRaw(a.Raw))
	assert.NotEqual(t, h, HashRefreshRaw(b.Raw))
}

func TestPassword(t *testing.T) {
	hash, err := HashPassword("s3cret-pass", bcrypt.MinCost)
	require.NoError(t, err)
	assert.True(t, VerifyPassword(hash, "s3cret-pass"))
	assert.False(t, VerifyPassword(hash, "wrong"))
	assert.False(t, VerifyPassword("not-a-hash", "s3cret-pass"))
}
