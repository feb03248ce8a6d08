package http

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

// CachingMiddleware sets Cache-Control headers on GET responses based on
// endpoint, unless the handler already set one.
func CachingMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		err := c.Next()

		if c.Method() != fiber.MethodGet || c.GetRespHeader(fiber.HeaderCacheControl) != "" {
			return err
		}

		path := c.Path()
		var ttl string
		switch {
		case path == "/v1/health" || path == "/v1/ready":
			ttl = "public, max-age=10"
		case path == "/metrics" || strings.HasPrefix(path, "/ws"):
			ttl = "no-cache"
		case path == "/graphql":
			ttl = "private, max-age=0"
		case strings.HasPrefix(path, "/v1/streets"), path == "/api/streets":
			// Scores change only when a rescore runs.
			ttl = "public, max-age=120"
		case strings.HasPrefix(path, "/docs"):
			ttl = "public, max-age=3600"
		case strings.HasPrefix(path, "/v1/"):
			ttl = "public, max-age=60"
		}

		if ttl != "" {
			c.Set(fiber.HeaderCacheControl, ttl)
		}
		return err
	}
}
