package auth

import (
	"testing"
	"time"

	"vipclub/config"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testJWTConfig() *config.JWTConfig {
	return &config.JWTConfig{Secret: "test-secret", Audience: "authenticated", AccessExpiry: time.Hour}
}

func TestGenerateAndParse(t *testing.T) {
	cfg := testJWTConfig()
	tok, err := GenerateAccessToken(cfg, "2b1f0c7e-1111-4a8e-9d7c-0d3c2f1a0b9e", "a@example.com", "authenticated")
	require.NoError(t, err)

	claims, err := ParseAccessToken(cfg, tok)
	require.NoError(t, err)
	assert.Equal(t, "2b1f0c7e-1111-4a8e-9d7c-0d3c2f1a0b9e", claims.UserID())
	assert.Equal(t, "a@example.com", claims.Email)
}

func TestParseRejects(t *testing.T) {
	cfg := testJWTConfig()

	other := *cfg
	other.Secret = "other"
	forged, err := GenerateAccessToken(&other, "u1", "", "")
	require.NoError(t, err)
	_, err = ParseAccessToken(cfg, forged)
	assert.ErrorIs(t, err, ErrInvalidToken)

	wrongAud := *cfg
	wrongAud.Audience = "service_role"
	tok, err := GenerateAccessToken(&wrongAud, "u1", "", "")
	require.NoError(t, err)
	_, err = ParseAccessToken(cfg, tok)
	assert.ErrorIs(t, err, ErrInvalidToken)

	expired := *cfg
	expired.AccessExpiry = -time.Minute
	tok, err = GenerateAccessToken(&expired, "u1", "", "")
	require.NoError(t, err)
	_, err = ParseAccessToken(cfg, tok)
	assert.ErrorIs(t, err, ErrInvalidToken)

	none := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: "u1"}})
	s, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = ParseAccessToken(cfg, s)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = ParseAccessToken(cfg, "garbage")
	assert.ErrorIs(t, err, ErrInvalidToken)
}
