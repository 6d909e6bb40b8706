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
		if existing := c.GetRespHeader(fiber.HeaderCacheControl); existing != "" {
			return err
		}
		// Errors and partial results must not be reused.
		if c.Response().StatusCode() != fiber.StatusOK {
			c.Set(fiber.HeaderCacheControl, "no-store")
			return err
		}

		path := c.Path()
		var ttl string

		switch {
		case path == "/v1/health" || path == "/v1/ready" || path == "/metrics":
			ttl = "no-cache"

		case path == "/v1/categories":
			ttl = "public, max-age=3600" // category table only changes on deploy

		case path == "/v1/locations/search":
			ttl = "public, max-age=60" // trending order drifts with clicks

		case strings.HasPrefix(path, "/v1/locations/"):
			ttl = "public, max-age=600"

		case strings.HasPrefix(path, "/v1/"):
			ttl = "public, max-age=300"
		}

		if ttl != "" {
			c.Set(fiber.HeaderCacheControl, ttl)
		}

		return err
	}
}
