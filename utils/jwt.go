package utils

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/brighterbites/backend/config"
	"github.com/brighterbites/backend/models"
)

// Claims identifies the account behind a token and whether it is a parent or a child.
type Claims struct {
	ID   uint   `json:"id"`
	Type string `json:"type"`
	jwt.RegisteredClaims
}

// Actor converts the claims into the identity used by the services.
func (c *Claims) Actor() models.Actor {
	return models.Actor{ID: c.ID, Type: c.Type}
}

// GenerateToken issues a JWT for the account. ttl <= 0 uses the configured TokenTTLHours.
func GenerateToken(id uint, accountType string, ttl time.Duration) (string, error) {
	if id == 0 || (accountType != models.ActorParent && accountType != models.ActorChild) {
		return "", errors.New("account id and type are required to generate a token")
	}
	cfg := config.Get()
	if ttl <= 0 {
		ttl = time.Duration(cfg.TokenTTLHours) * time.Hour
	}

	now := time.Now()
	claims := Claims{
		ID:   id,
		Type: accountType,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(cfg.JWTSecret))
}

// ParseToken validates a JWT and returns its claims.
func ParseToken(tokenStr string) (*Claims, error) {
	cfg := config.Get()
	parsed, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(cfg.JWTSecret), nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid || claims.ID == 0 {
		return nil, errors.New("invalid token claims")
	}
	if claims.Type != models.ActorParent && claims.Type != models.ActorChild {
		return nil, errors.New("unknown account type")
	}
	return claims, nil
}
