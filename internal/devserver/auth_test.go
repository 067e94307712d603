package devserver

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWTAuth(t *testing.T) {
	auth := NewJWTAuth("test-secret")

	t.Run("round_trip", func(t *testing.T) {
		token, expiresAt, err := auth.GenerateToken("publisher", false, time.Hour)
		require.NoError(t, err)
		assert.NotEmpty(t, token)
		assert.WithinDuration(t, time.Now().Add(time.Hour), expiresAt, 5*time.Second)

		claims, err := auth.ValidateToken(token)
		require.NoError(t, err)
		assert.Equal(t, "publisher", claims.Subject)
		assert.False(t, claims.IsAdmin)

		claims, err = auth.ValidateToken("Bearer " + token)
		require.NoError(t, err)
		assert.Equal(t, "publisher", claims.Subject)
	})

	t.Run("admin_and_default_ttl", func(t *testing.T) {
		token, expiresAt, err := auth.GenerateToken("ops", true, 0)
		require.NoError(t, err)
		assert.WithinDuration(t, time.Now().Add(DefaultTokenTTL), expiresAt, 5*time.Second)

		claims, err := auth.ValidateToken(token)
		require.NoError(t, err)
		assert.True(t, claims.IsAdmin)
	})

	t.Run("rejects_empty_subject", func(t *testing.T) {
		_, _, err := auth.GenerateToken("", false, time.Hour)
		assert.ErrorIs(t, err, ErrEmptySubject)
	})

	t.Run("rejects_bad_tokens", func(t *testing.T) {
		_, err := auth.ValidateToken("")
		assert.ErrorIs(t, err, ErrEmptyToken)

		_, err = auth.ValidateToken("invalid-token")
		assert.Error(t, err)

		other, _, err := NewJWTAuth("other-secret").GenerateToken("publisher", false, time.Hour)
		require.NoError(t, err)
		_, err = auth.ValidateToken(other)
		assert.ErrorIs(t, err, jwt.ErrTokenSignatureInvalid)
	})

	t.Run("rejects_expired", func(t *testing.T) {
		claims := Claims{RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "late",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		}}
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
		require.NoError(t, err)

		_, err = auth.ValidateToken(token)
		assert.ErrorIs(t, err, jwt.ErrTokenExpired)
	})

	t.Run("rejects_none_algorithm", func(t *testing.T) {
		token, err := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{}).SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)
		_, err = auth.ValidateToken(token)
		assert.Error(t, err)
	})
}
