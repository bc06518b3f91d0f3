package http

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

// CachingMiddleware sets Cache-Control headers on GET responses based on endpoint.
// Handlers that set their own header win.
func CachingMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		err := c.Next()

		if c.Method() != fiber.MethodGet {
			return err
		}
		if len(c.Response().Header.Peek(fiber.HeaderCacheControl)) > 0 {
			return err
		}
		if ttl := cacheControlFor(c.Path()); ttl != "" {
			c.Set(fiber.HeaderCacheControl, ttl)
		}
		return err
	}
}

func cacheControlFor(path string) string {
	switch {
	case path == "/v1/health" || path == "/v1/ready":
		return "no-cache, no-store"

	// Drafts change on every edit and belong to one session.
	case strings.HasPrefix(path, "/v1/drafts"):
		return "private, no-store"

	// Terrain does not move.
	case path == "/v1/altitude":
		return "public, max-age=86400"

	case strings.HasSuffix(path, "/weather"):
		return "private, max-age=600"

	case strings.HasPrefix(path, "/v1/"):
		return "private, no-cache"
	}
	return ""
}
