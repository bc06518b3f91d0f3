package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/fiber/v2/middleware/timeout"
	"github.com/gofiber/websocket/v2"

	"github.com/climatrack/climatrack/internal/pkg/metrics"
)

const (
	requestTimeout = 15 * time.Second
	// Submit may wait on the backend and then on a device fix.
	submitTimeout = 30 * time.Second
)

// legacyRoutes are the French-named paths older mobile builds still call.
var legacyRoutes = []DeprecatedRoute{
	{Path: "/v1/parcelles", SunsetDate: time.Date(2027, 6, 30, 0, 0, 0, 0, time.UTC), Alternative: "/v1/parcels"},
	{Path: "/v1/agriculteurs", SunsetDate: time.Date(2027, 6, 30, 0, 0, 0, 0, time.UTC), Alternative: "/v1/farmers"},
	{Path: "/v1/agriculteurs/:id", SunsetDate: time.Date(2027, 6, 30, 0, 0, 0, 0, time.UTC), Alternative: "/v1/farmers/{id}"},
	{Path: "/v1/agriculteurs/:id/parcelles", SunsetDate: time.Date(2027, 6, 30, 0, 0, 0, 0, time.UTC), Alternative: "/v1/farmers/{id}/parcels"},
}

// SetupRoutes registers all REST, GraphQL, and WebSocket routes.
func SetupRoutes(app *fiber.App, deps *Dependencies) {
	// Prometheus metrics
	app.Use(metrics.Middleware())
	app.Get("/metrics", metrics.Handler())

	app.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed,
	}))

	app.Use(requestid.New())
	app.Use(RequestIDLogMiddleware())
	app.Use(AccessLogMiddleware())

	// Rate limiting: 120 requests per minute per IP
	app.Use(limiter.New(limiter.Config{
		Max:        120,
		Expiration: 1 * time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return newError(c, fiber.StatusTooManyRequests, "rate_limited", "too many requests, please try again later")
		},
	}))

	// Security headers + API version
	app.Use(func(c *fiber.Ctx) error {
		c.Set("X-Content-Type-Options", "nosniff")
		c.Set("X-Frame-Options", "DENY")
		c.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Set("X-API-Version", "1.0.0")
		return c.Next()
	})

	app.Use(ETagMiddleware())
	app.Use(CachingMiddleware())
	app.Use(DeprecationMiddleware(legacyRoutes))

	// Health & readiness (no timeout, fast internal checks)
	app.Get("/v1/health", HealthHandler(deps))
	app.Get("/v1/ready", ReadyHandler(deps))

	v1 := app.Group("/v1", SessionMiddleware(deps.Tokens))
	with := func(h fiber.Handler) fiber.Handler { return timeout.NewWithContext(h, requestTimeout) }

	// Parcels
	for _, base := range []string{"/parcels", "/parcelles"} {
		v1.Get(base, with(GetParcelsHandler(deps)))
		v1.Post(base, with(CreateParcelHandler(deps)))
		v1.Put(base, with(UpdateParcelHandler(deps)))
		v1.Delete(base, with(DeleteParcelHandler(deps)))
	}
	v1.Get("/parcels/bounds", with(ParcelBoundsHandler(deps)))
	v1.Get("/parcels/geojson", with(ParcelGeoJSONHandler(deps)))
	v1.Get("/parcels/:id/weather", with(ParcelWeatherHandler(deps)))
	v1.Post("/parcels/:id/altitude", with(FillParcelAltitudeHandler(deps)))

	// Drafts
	v1.Post("/drafts", with(CreateDraftHandler(deps)))
	v1.Get("/drafts/:id", with(GetDraftHandler(deps)))
	v1.Delete("/drafts/:id", with(DiscardDraftHandler(deps)))
	v1.Post("/drafts/:id/points", with(AddDraftPointHandler(deps)))
	v1.Delete("/drafts/:id/points/:index", with(RemoveDraftPointHandler(deps)))
	v1.Put("/drafts/:id/name", with(RenameDraftHandler(deps)))
	v1.Post("/drafts/:id/submit", timeout.NewWithContext(SubmitDraftHandler(deps), submitTimeout))
	v1.Post("/drafts/:id/cancel", with(CancelDraftHandler(deps)))

	// Farmers
	for _, base := range []string{"/farmers", "/agriculteurs"} {
		v1.Get(base, with(ListFarmersHandler(deps)))
		v1.Get(base+"/:id", with(GetFarmerHandler(deps)))
		v1.Delete(base+"/:id", with(DeleteFarmerHandler(deps)))
	}
	v1.Get("/farmers/:id/parcels", with(FarmerParcelsHandler(deps)))
	v1.Get("/agriculteurs/:id/parcelles", with(FarmerParcelsHandler(deps)))

	// Meteo readings
	v1.Get("/meteo", with(MeteoSummaryHandler(deps)))
	v1.Post("/meteo", with(RecordMeteoHandler(deps)))

	// Geo helpers
	v1.Get("/altitude", with(AltitudeHandler(deps)))
	v1.Post("/coordinates/normalize", with(NormalizeHandler()))

	// GraphQL
	app.Post("/graphql", SessionMiddleware(deps.Tokens), GraphQLHandler(deps))

	// API documentation (Swagger UI)
	SetupDocs(app)

	// WebSocket
	app.Use("/ws", SessionMiddleware(deps.Tokens), func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			c.Locals("ws_session", sessionFrom(c))
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws", websocket.New(WebSocketHandler(deps.NATS)))
}
