package http

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/climatrack/climatrack/internal/adapters/valkey"
)

// Version is stamped at build time with -ldflags "-X ...http.Version=...".
var Version = "dev"

// HealthHandler is the liveness probe. It also reports the elevation
// provider chain and how many drafts are open, which is what operators ask
// about first when altitudes come back empty.
func HealthHandler(deps *Dependencies) fiber.Handler {
	startedAt := time.Now()

	return func(c *fiber.Ctx) error {
		body := fiber.Map{
			"status":  "healthy",
			"uptime":  time.Since(startedAt).String(),
			"version": Version,
		}
		if p, ok := deps.Altitude.(interface{ Providers() []string }); ok {
			body["altitude_providers"] = p.Providers()
		}
		if deps.Drafts != nil {
			body["open_drafts"] = deps.Drafts.Open()
		}
		return c.JSON(body)
	}
}

// ReadyHandler gates traffic on the database. NATS and the cache only
// degrade the service: drafts still save locally without them.
func ReadyHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), 3*time.Second)
		defer cancel()

		checks := make(map[string]string)
		ready, degraded := true, false

		switch {
		case deps.DB == nil:
			checks["database"] = "not configured"
			ready = false
		default:
			if err := deps.DB.Pool.Ping(ctx); err != nil {
				checks["database"] = "error: " + err.Error()
				ready = false
			} else {
				checks["database"] = "ok"
			}
		}

		switch {
		case deps.NATS == nil:
			checks["nats"] = "not configured"
			degraded = true
		case !deps.NATS.IsConnected():
			checks["nats"] = "disconnected"
			degraded = true
		default:
			checks["nats"] = "ok"
		}

		if deps.Cache == nil {
			checks["cache"] = "not configured"
			degraded = true
		} else if _, err := deps.Cache.Get(ctx, "__health_check__"); err != nil && !valkey.IsMiss(err) {
			checks["cache"] = "error: " + err.Error()
			degraded = true
		} else {
			checks["cache"] = "ok"
		}

		status, code := "ready", fiber.StatusOK
		switch {
		case !ready:
			status, code = "not ready", fiber.StatusServiceUnavailable
		case degraded:
			status = "degraded"
		}
		return c.Status(code).JSON(fiber.Map{"status": status, "checks": checks})
	}
}
