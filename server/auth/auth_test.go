package auth

import (
	"crypto/rand"
	"crypto/rsa"
	"testing"
	"time"

	"github.com/Daskott/safecircle/server/auth/key"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func testKeyPair(t *testing.T) *key.KeyPair {
	privateKey, err := rsa.GenerateKey(rand.Reader, 2048)
	require.Nil(t, err)

	return key.NewKeyPair(privateKey)
}

func TestHashPassword(t *testing.T) {
	PasswordHashCost = bcrypt.MinCost

	hash, err := HashPassword("very-secure")
	assert.Nil(t, err)
	assert.NotEqual(t, "very-secure", hash, "Password should never be stored as plain text")

	assert.True(t, CheckPasswordHash("very-secure", hash))
	assert.False(t, CheckPasswordHash("not-secure", hash))
	assert.False(t, CheckPasswordHash("very-secure", ""), "Empty hash should never match")
}

func TestEncodeAndDecodeJWT(t *testing.T) {
	keyPair := testKeyPair(t)

	token, err := EncodeJWT(NewTokenClaims(42, time.Hour), keyPair)
	require.Nil(t, err)

	claims, err := DecodeJWT(token, keyPair)
	require.Nil(t, err)
	assert.Equal(t, "42", claims.Subject)
	assert.InDelta(t, time.Now().Add(time.Hour).Unix(), claims.ExpiresAt, 5)
}

func TestDecodeJWTRejectsBadTokens(t *testing.T) {
	keyPair := testKeyPair(t)

	expired := NewTokenClaims(1, time.Hour)
	expired.ExpiresAt = time.Now().Add(-time.Minute).Unix()
	expiredToken, err := EncodeJWT(expired, keyPair)
	require.Nil(t, err)

	otherKeyToken, err := EncodeJWT(NewTokenClaims(1, time.Hour), testKeyPair(t))
	require.Nil(t, err)

	cases := []struct {
		description string
		token       string
	}{
		{"Should reject expired token", expiredToken},
		{"Should reject token signed by another key", otherKeyToken},
		{"Should reject garbage", "not.a.token"},
	}

	for _, c := range cases {
		t.Run(c.description, func(t *testing.T) {
			_, err := DecodeJWT(c.token, keyPair)
			assert.NotNil(t, err)
		})
	}
}

func TestNewTokenClaimsDefaultsValidity(t *testing.T) {
	claims := NewTokenClaims(7, 0)
	assert.InDelta(t, time.Now().Add(DefaultTokenValidity).Unix(), claims.ExpiresAt, 5)
}
