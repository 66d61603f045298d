package auth

import (
	"regexp"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sign(t *testing.T, secret string, claims Claims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func TestGenerateTempPassword(t *testing.T) {
	pattern := regexp.MustCompile(`^[A-Z0-9]{8}$`)
	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		pw, err := GenerateTempPassword()
		require.NoError(t, err)
		assert.Regexp(t, pattern, pw)
		seen[pw] = true
	}
	assert.Greater(t, len(seen), 45)
}

func TestNewTempPasswordHashMatches(t *testing.T) {
	plain, hash, err := NewTempPassword()
	require.NoError(t, err)
	assert.True(t, CheckPassword(hash, plain))
	assert.False(t, CheckPassword(hash, plain+"x"))
}

func TestTokenVerifier(t *testing.T) {
	v := NewTokenVerifier("s3cret", "housing.test")
	valid := Claims{
		Role: "MANAGER",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-1",
			Issuer:    "housing.test",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}

	claims, err := v.ValidateToken(sign(t, "s3cret", valid))
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.Subject)

	_, err = v.ValidateToken(sign(t, "other", valid))
	assert.ErrorIs(t, err, ErrInvalidToken)

	expired := valid
	expired.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Minute))
	_, err = v.ValidateToken(sign(t, "s3cret", expired))
	assert.ErrorIs(t, err, ErrExpiredToken)

	wrongIssuer := valid
	wrongIssuer.Issuer = "elsewhere"
	_, err = v.ValidateToken(sign(t, "s3cret", wrongIssuer))
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestExtractBearerToken(t *testing.T) {
	token, err := ExtractBearerToken("Bearer abc.def")
	require.NoError(t, err)
	assert.Equal(t, "abc.def", token)

	_, err = ExtractBearerToken("Basic xyz")
	assert.ErrorIs(t, err, ErrInvalidFormat)
}
