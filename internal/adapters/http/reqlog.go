package http

import (
	"context"
	"log/slog"

	"github.com/gofiber/fiber/v2"
)

type loggerKey struct{}

// RequestIDLogMiddleware puts a request-scoped logger carrying the request
// id into the user context. Later middleware may add to it with scopeLogger.
func RequestIDLogMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if rid, _ := c.Locals("requestid").(string); rid != "" {
			scopeLogger(c, "request_id", rid)
		}
		return c.Next()
	}
}

// scopeLogger adds attributes to the request logger for the rest of the chain.
func scopeLogger(c *fiber.Ctx, args ...any) {
	ctx := c.UserContext()
	l := LoggerFromCtx(ctx).With(args...)
	c.SetUserContext(context.WithValue(ctx, loggerKey{}, l))
}

// LoggerFromCtx returns the request logger, or the default one outside a request.
func LoggerFromCtx(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok {
		return l
	}
	return slog.Default()
}
