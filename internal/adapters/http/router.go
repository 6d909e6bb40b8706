package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/etag"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/fiber/v2/middleware/timeout"

	"github.com/samirrijal/ebtfinder/internal/pkg/metrics"
)

// SetupRoutes registers all REST and GraphQL routes.
func SetupRoutes(app *fiber.App, deps *Dependencies) {
	app.Use(recover.New())

	// Prometheus metrics
	app.Use(metrics.Middleware())
	app.Get("/metrics", metrics.Handler())

	app.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed,
	}))

	app.Use(requestid.New())

	// Propagate request ID into slog context
	app.Use(RequestIDLogMiddleware())

	app.Use(AccessLogMiddleware())

	if deps.AllowOrigins != "" {
		app.Use(cors.New(cors.Config{
			AllowOrigins: deps.AllowOrigins,
			AllowMethods: "GET,POST,OPTIONS",
		}))
	}

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

	app.Use(etag.New(etag.Config{Weak: true}))
	app.Use(CachingMiddleware())

	// Health & readiness (no timeout, fast internal checks)
	app.Get("/v1/health", HealthHandler(deps))
	app.Get("/v1/ready", ReadyHandler(deps))

	d := deps.requestTimeout()
	v1 := app.Group("/v1")
	v1.Get("/categories", ListCategoriesHandler(deps))
	v1.Get("/locations/search", timeout.NewWithContext(SearchLocationsHandler(deps), d))
	v1.Get("/locations/:id", timeout.NewWithContext(GetLocationHandler(deps), d))
	v1.Post("/locations/:id/clicks", timeout.NewWithContext(RecordClickHandler(deps), d))

	app.Post("/graphql", timeout.NewWithContext(GraphQLHandler(deps), d))

	SetupDocs(app, deps.openAPIPath())
}
