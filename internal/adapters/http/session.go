package http

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/climatrack/climatrack/internal/core/domain"
	"github.com/climatrack/climatrack/internal/pkg/auth"
)

const sessionKey = "session"

// SessionMiddleware turns a bearer token into a domain.Session. Requests
// without a token get an anonymous session; a bad token is rejected. With
// no secret configured every request is anonymous.
func SessionMiddleware(tokens *auth.Tokens) fiber.Handler {
	return func(c *fiber.Ctx) error {
		session := domain.Session{}
		header := c.Get(fiber.HeaderAuthorization)
		if header != "" && tokens.Enabled() {
			raw, ok := strings.CutPrefix(header, "Bearer ")
			if !ok {
				return errUnauthorized(c, "expected a bearer token")
			}
			claims, err := tokens.Validate(strings.TrimSpace(raw))
			if err != nil {
				if errors.Is(err, auth.ErrExpiredToken) {
					return errUnauthorized(c, "session expired")
				}
				return errUnauthorized(c, "invalid session token")
			}
			owner := claims.OwnerID
			session = domain.Session{OwnerID: &owner, Token: raw}
			scopeLogger(c, "owner_id", owner)
		}
		c.Locals(sessionKey, session)
		return c.Next()
	}
}

func sessionFrom(c *fiber.Ctx) domain.Session {
	s, _ := c.Locals(sessionKey).(domain.Session)
	return s
}
