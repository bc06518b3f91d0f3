package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestIssueAndValidate(t *testing.T) {
	tokens := NewTokens("secret")
	tok, err := tokens.Issue(42, time.Hour)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	claims, err := tokens.Validate(tok)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if claims.OwnerID != 42 {
		t.Errorf("expected owner 42, got %d", claims.OwnerID)
	}
}

func TestValidate_Rejects(t *testing.T) {
	tokens := NewTokens("secret")

	other, _ := NewTokens("other").Issue(1, time.Hour)
	if _, err := tokens.Validate(other); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("wrong secret: expected ErrInvalidToken, got %v", err)
	}

	expired, _ := tokens.Issue(1, -time.Hour)
	if _, err := tokens.Validate(expired); !errors.Is(err, ErrExpiredToken) {
		t.Errorf("expired: expected ErrExpiredToken, got %v", err)
	}

	noOwner, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{}).SignedString([]byte("secret"))
	if _, err := tokens.Validate(noOwner); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("no owner: expected ErrInvalidToken, got %v", err)
	}

	if _, err := tokens.Validate("garbage"); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("garbage: expected ErrInvalidToken, got %v", err)
	}
}

func TestEnabled(t *testing.T) {
	if NewTokens("").Enabled() {
		t.Error("empty secret must be disabled")
	}
	var nilTokens *Tokens
	if nilTokens.Enabled() {
		t.Error("nil must be disabled")
	}
}
