package http

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

// CachingMiddleware sets Cache-Control headers on GET responses based on endpoint.
// Adds sensible defaults if not already set by the handler.
func CachingMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		err := c.Next()

		if c.Method() != fiber.MethodGet {
			return err
		}
		if existing := c.GetRespHeader(fiber.HeaderCacheControl); existing != "" {
			return err
		}
		if c.Response().StatusCode() != fiber.StatusOK {
			return err
		}

		path := c.Path()
		var ttl string

		switch {
		case path == "/v1/health" || path == "/v1/ready":
			ttl = "public, max-age=10"

		case path == "/metrics":
			ttl = "no-cache"

		case strings.HasPrefix(path, "/v1/preferences") || strings.HasPrefix(path, "/v1/favorites"):
			ttl = "private, no-cache"

		case strings.HasPrefix(path, "/v1/stations"),
			strings.HasPrefix(path, "/v1/counties"),
			strings.HasPrefix(path, "/v1/lines"):
			ttl = "public, max-age=3600" // catalog changes at most daily

		case strings.HasSuffix(path, "/liveboard"):
			ttl = "no-cache"

		case strings.HasPrefix(path, "/v1/trips"),
			strings.HasPrefix(path, "/v1/timetables"),
			strings.HasPrefix(path, "/v1/trains/"):
			ttl = "public, max-age=300"

		case strings.HasPrefix(path, "/v1/"):
			ttl = "public, max-age=60"
		}

		if ttl != "" {
			c.Set(fiber.HeaderCacheControl, ttl)
		}

		return err
	}
}
