package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testKey = "test-signing-key"

func signToken(t *testing.T, key string, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(key))
	require.NoError(t, err)
	return signed
}

func TestJWTValidator_ValidateToken(t *testing.T) {
	subject := uuid.NewString()
	validator := NewJWTValidator(testKey, "facelive")

	t.Run("valid token yields subject", func(t *testing.T) {
		token := signToken(t, testKey, jwt.MapClaims{
			"sub": subject,
			"iss": "facelive",
			"exp": time.Now().Add(time.Hour).Unix(),
		})

		claims, err := validator.ValidateToken(token)
		require.NoError(t, err)
		assert.Equal(t, subject, claims.SubjectID.String())
	})

	t.Run("wrong signing key rejected", func(t *testing.T) {
		token := signToken(t, "other-key", jwt.MapClaims{
			"sub": subject,
			"iss": "facelive",
			"exp": time.Now().Add(time.Hour).Unix(),
		})

		_, err := validator.ValidateToken(token)
		assert.Error(t, err)
	})

	t.Run("expired token rejected", func(t *testing.T) {
		token := signToken(t, testKey, jwt.MapClaims{
			"sub": subject,
			"iss": "facelive",
			"exp": time.Now().Add(-time.Minute).Unix(),
		})

		_, err := validator.ValidateToken(token)
		assert.Error(t, err)
	})

	t.Run("missing expiry rejected", func(t *testing.T) {
		token := signToken(t, testKey, jwt.MapClaims{
			"sub": subject,
			"iss": "facelive",
		})

		_, err := validator.ValidateToken(token)
		assert.Error(t, err)
	})

	t.Run("non-uuid subject rejected", func(t *testing.T) {
		token := signToken(t, testKey, jwt.MapClaims{
			"sub": "not-a-uuid",
			"iss": "facelive",
			"exp": time.Now().Add(time.Hour).Unix(),
		})

		_, err := validator.ValidateToken(token)
		assert.Error(t, err)
	})

	t.Run("wrong issuer rejected", func(t *testing.T) {
		token := signToken(t, testKey, jwt.MapClaims{
			"sub": subject,
			"iss": "someone-else",
			"exp": time.Now().Add(time.Hour).Unix(),
		})

		_, err := validator.ValidateToken(token)
		assert.Error(t, err)
	})
}
