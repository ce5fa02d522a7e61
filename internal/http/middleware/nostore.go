package middleware

import "github.com/gofiber/fiber/v2"

// NoStore marks responses as uncacheable. Pages rendered for a logged-in user must not be
// served back from a browser cache after logout.
func NoStore() fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Set(fiber.HeaderCacheControl, "no-store")
		return c.Next()
	}
}
