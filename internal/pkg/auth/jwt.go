// Package auth issues and validates the HS256 session tokens that carry a
// farmer's owner id.
package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultLeeway tolerates small clock drift between issuer and API.
const DefaultLeeway = 30 * time.Second

var (
	// ErrInvalidToken is returned when token validation fails.
	ErrInvalidToken = errors.New("invalid token")
	// ErrExpiredToken is returned when the token has expired.
	ErrExpiredToken = errors.New("token has expired")
)

// Claims are the session claims. OwnerID is the users.id of the farmer.
type Claims struct {
	jwt.RegisteredClaims
	OwnerID int64 `json:"owner_id"`
}

// Tokens signs and checks session tokens with a shared secret.
type Tokens struct {
	secret []byte
	leeway time.Duration
}

// NewTokens creates a Tokens for secret.
func NewTokens(secret string) *Tokens {
	return &Tokens{secret: []byte(secret), leeway: DefaultLeeway}
}

// Enabled reports whether a secret is configured.
func (t *Tokens) Enabled() bool { return t != nil && len(t.secret) > 0 }

// Issue returns a token for ownerID valid for ttl.
func (t *Tokens) Issue(ownerID int64, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		OwnerID: ownerID,
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
}

// Validate parses tokenString and returns its claims.
func (t *Tokens) Validate(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, ErrInvalidToken
		}
		return t.secret, nil
	}, jwt.WithLeeway(t.leeway))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.OwnerID <= 0 {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
