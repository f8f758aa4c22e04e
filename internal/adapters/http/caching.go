package http

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

// CachingMiddleware sets Cache-Control headers on GET responses the handler
// left unset. Stored analyses never change, listings do.
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
			ttl = "no-cache"

		case path == "/metrics":
			ttl = "no-store"

		case path == "/v1/analyses":
			ttl = "private, max-age=0" // new uploads appear at any time

		case strings.HasPrefix(path, "/v1/analyses/"):
			if c.Response().StatusCode() == fiber.StatusOK {
				ttl = "public, max-age=86400, immutable"
			} else {
				ttl = "no-cache"
			}

		case strings.HasPrefix(path, "/docs"):
			ttl = "public, max-age=300"
		}

		if ttl != "" {
			c.Set(fiber.HeaderCacheControl, ttl)
		}

		return err
	}
}
