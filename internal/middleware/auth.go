package middleware

import (
	"crypto/subtle"

	"github.com/gofiber/fiber/v2"
)

// RequireKey guards an endpoint with the static operator key carried in the
// X-API-Key header. An empty configured key disables the guard, which is
// the development default.
func RequireKey(key string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if key == "" {
			return c.Next()
		}

		provided := c.Get("X-API-Key")
		if subtle.ConstantTimeCompare([]byte(provided), []byte(key)) != 1 {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error":   "invalid_api_key",
				"message": "Set the X-API-Key header to the configured operator key",
			})
		}

		return c.Next()
	}
}
