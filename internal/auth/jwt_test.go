package auth

import (
	"testing"
	"time"

	"messmate/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testJWT() *config.JWTConfig {
	return &config.JWTConfig{
		AccessSecret:  "access",
		RefreshSecret: "refresh",
		AccessExpiry:  time.Minute,
		RefreshExpiry: time.Hour,
		Issuer:        "messmate-test",
	}
}

func TestAccessTokenRoundTrip(t *testing.T) {
	cfg := testJWT()
	tok, err := GenerateAccessToken(cfg, 7, "a@b.c", "MESS_OWNER")
	require.NoError(t, err)

	claims, err := ParseAccessToken(cfg, tok)
	require.NoError(t, err)
	assert.Equal(t, uint(7), claims.UserID)
	assert.Equal(t, "MESS_OWNER", claims.Role)
	assert.Equal(t, "messmate-test", claims.Issuer)
}

func TestAccessTokenRejectsWrongSecretAndExpiry(t *testing.T) {
	cfg := testJWT()
	tok, err := GenerateAccessToken(cfg, 7, "a@b.c", "USER")
	require.NoError(t, err)

	other := testJWT()
	other.AccessSecret = "nope"
	_, err = ParseAccessToken(other, tok)
	assert.ErrorIs(t, err, ErrInvalidToken)

	expired := testJWT()
	expired.AccessExpiry = -time.Minute
	tok, err = GenerateAccessToken(expired, 7, "a@b.c", "USER")
	require.NoError(t, err)
	_, err = ParseAccessToken(cfg, tok)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestRefreshToken(t *testing.T) {
	cfg := testJWT()
	tok, err := GenerateRefreshToken(cfg, 42)
	require.NoError(t, err)

	id, err := ParseRefreshToken(cfg, tok)
	require.NoError(t, err)
	assert.Equal(t, uint(42), id)

	access, err := GenerateAccessToken(cfg, 42, "x@y.z", "USER")
	require.NoError(t, err)
	_, err = ParseRefreshToken(cfg, access)
	assert.ErrorIs(t, err, ErrInvalidToken)
}
