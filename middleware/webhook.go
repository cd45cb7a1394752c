// middleware/webhook.go
package middleware

import (
	"crypto/subtle"

	"ambassador-program/logging"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// SharedSecretMiddleware checks a static secret sent by a webhook caller in header.
// An empty secret closes the route.
func SharedSecretMiddleware(header, secret string) fiber.Handler {
	if secret == "" {
		logging.Logger.Warn("webhook secret is not set, route disabled", zap.String("header", header))
	}

	return func(c *fiber.Ctx) error {
		got := c.Get(header)
		if secret == "" || subtle.ConstantTimeCompare([]byte(got), []byte(secret)) != 1 {
			logging.Logger.Warn("webhook rejected", zap.String("path", c.Path()), zap.String("ip", c.IP()))
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "invalid webhook secret",
			})
		}
		return c.Next()
	}
}
