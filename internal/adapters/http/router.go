package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/fiber/v2/middleware/timeout"
	"github.com/gofiber/websocket/v2"

	"github.com/samirrijal/streetrisk/internal/pkg/metrics"
)

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
		LimitReached: errTooManyRequests,
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

	// Health & readiness, no timeout
	app.Get("/v1/health", HealthHandler(deps))
	app.Get("/v1/ready", ReadyHandler(deps))

	// A cold scoring pass waits on Overpass, so the timeout follows the server write timeout.
	wait := deps.requestTimeout()
	v1 := app.Group("/v1")
	v1.Get("/streets", timeout.NewWithContext(ListStreetsHandler(deps), wait))
	v1.Get("/streets/geojson", timeout.NewWithContext(StreetsGeoJSONHandler(deps), wait))
	v1.Get("/streets/summary", timeout.NewWithContext(StreetsSummaryHandler(deps), wait))
	v1.Post("/streets/rescore", timeout.NewWithContext(RescoreHandler(deps), 15*time.Second))
	v1.Get("/runs/latest", timeout.NewWithContext(LatestRunHandler(deps), 15*time.Second))

	// Original unversioned endpoint, open to any origin.
	sunset := deps.LegacySunset
	if sunset.IsZero() {
		sunset = time.Now().AddDate(0, 6, 0)
	}
	legacy := app.Group("/api",
		cors.New(cors.Config{AllowOrigins: "*", AllowMethods: "GET,OPTIONS"}),
		DeprecationMiddleware([]DeprecatedRoute{
			{Path: "/api/*", SunsetDate: sunset, Alternative: "/v1/streets"},
		}),
	)
	legacy.Get("/streets", timeout.NewWithContext(LegacyStreetsHandler(deps), wait))

	// GraphQL
	app.Post("/graphql", timeout.NewWithContext(GraphQLHandler(deps), wait))

	// API documentation (Swagger UI)
	SetupDocs(app, "api/openapi.yaml")

	// WebSocket
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws", websocket.New(WebSocketHandler(deps.NATS)))
}
