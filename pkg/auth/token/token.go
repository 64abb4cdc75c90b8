// Package token issues and checks the HS256 session tokens handed to clients.
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const issuer = "daytrip"

var ErrInvalid = errors.New("invalid session token")

type claims struct {
	SessionID string `json:"sid"`
	jwt.RegisteredClaims
}

type Issuer struct {
	key []byte
	ttl time.Duration
	now func() time.Time
}

func NewIssuer(secret string, ttl time.Duration) *Issuer {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Issuer{key: []byte(secret), ttl: ttl, now: time.Now}
}

// Create signs a token for sessionID and returns it with its expiry.
func (i *Issuer) Create(sessionID string) (string, time.Time, error) {
	now := i.now()
	exp := now.Add(i.ttl)
	c := &claims{
		SessionID: sessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sessionID,
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	ss, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(i.key)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return ss, exp, nil
}

// Validate returns the session id carried by a signed, unexpired token.
func (i *Issuer) Validate(tokenString string) (string, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &claims{}, func(t *jwt.Token) (any, error) {
		return i.key, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	c, ok := parsed.Claims.(*claims)
	if !ok || !parsed.Valid || c.SessionID == "" {
		return "", ErrInvalid
	}
	return c.SessionID, nil
}
