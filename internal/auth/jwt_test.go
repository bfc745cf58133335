package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenRoundTrip(t *testing.T) {
	actor, owner := uuid.New(), uuid.New()
	token, err := GenerateToken(actor, owner, "kim@example.com", "secret", time.Hour)
	require.NoError(t, err)

	claims, err := ParseToken(token, "secret")
	require.NoError(t, err)
	assert.Equal(t, actor, claims.ActorID)
	assert.Equal(t, owner, claims.OwnerID)
	assert.Equal(t, "kim@example.com", claims.Email)
	assert.Equal(t, "sitetrack", claims.Issuer)
}

func TestParseTokenRejects(t *testing.T) {
	actor, owner := uuid.New(), uuid.New()

	wrongKey, err := GenerateToken(actor, owner, "a@b.c", "secret", time.Hour)
	require.NoError(t, err)
	_, err = ParseToken(wrongKey, "other")
	assert.Error(t, err)

	expired, err := GenerateToken(actor, owner, "a@b.c", "secret", -time.Minute)
	require.NoError(t, err)
	_, err = ParseToken(expired, "secret")
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)

	foreign := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		ActorID: actor,
		OwnerID: owner,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "someone-else",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	signed, err := foreign.SignedString([]byte("secret"))
	require.NoError(t, err)
	_, err = ParseToken(signed, "secret")
	assert.ErrorIs(t, err, jwt.ErrTokenInvalidIssuer)

	none := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{ActorID: actor, OwnerID: owner})
	unsigned, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = ParseToken(unsigned, "secret")
	assert.Error(t, err)
}
