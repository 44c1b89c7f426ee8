package utils

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brighterbites/backend/models"
)

func TestGenerateAndParseToken(t *testing.T) {
	token, err := GenerateToken(7, models.ActorChild, time.Hour)
	require.NoError(t, err)

	claims, err := ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, models.Actor{ID: 7, Type: models.ActorChild}, claims.Actor())
	require.NotNil(t, claims.ExpiresAt)
	assert.WithinDuration(t, time.Now().Add(time.Hour), claims.ExpiresAt.Time, 5*time.Second)
}

func TestGenerateTokenDefaultTTL(t *testing.T) {
	token, err := GenerateToken(3, models.ActorParent, 0)
	require.NoError(t, err)
	claims, err := ParseToken(token)
	require.NoError(t, err)
	assert.True(t, claims.ExpiresAt.After(time.Now().Add(24*time.Hour)))
}

func TestGenerateTokenRejectsBadIdentity(t *testing.T) {
	_, err := GenerateToken(0, models.ActorParent, time.Hour)
	assert.Error(t, err)
	_, err = GenerateToken(1, "admin", time.Hour)
	assert.Error(t, err)
}

func TestParseTokenRejects(t *testing.T) {
	// GenerateToken treats ttl <= 0 as the default, so build an expired one by hand
	claims := Claims{
		ID:   1,
		Type: models.ActorParent,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		},
	}
	expired, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("utils-test-secret"))
	require.NoError(t, err)

	forged, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{ID: 1, Type: models.ActorParent}).
		SignedString([]byte("someone-else"))
	require.NoError(t, err)

	badType, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{ID: 1, Type: "admin"}).
		SignedString([]byte("utils-test-secret"))
	require.NoError(t, err)

	for name, tok := range map[string]string{
		"expired":  expired,
		"forged":   forged,
		"bad type": badType,
		"garbage":  "not.a.token",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := ParseToken(tok)
			assert.Error(t, err)
		})
	}
}

func TestBlacklistToken(t *testing.T) {
	token, err := GenerateToken(9, models.ActorParent, time.Hour)
	require.NoError(t, err)

	assert.False(t, IsTokenBlacklisted(token))
	BlacklistToken(token, time.Now().Add(time.Hour))
	assert.True(t, IsTokenBlacklisted(token))

	// already expired tokens are not stored
	BlacklistToken("stale", time.Now().Add(-time.Minute))
	assert.False(t, IsTokenBlacklisted("stale"))
}
