// middleware/ws_auth.go
package middleware

import (
	"strings"

	"ambassador-program/auth"
	"ambassador-program/logging"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// WebSocketAuthMiddleware validates `token` from the query string, since
// browsers cannot set headers on a WebSocket handshake.
//
// Usage:
//
//	app.Get("/ws/notifications", middleware.WebSocketAuthMiddleware(tokens), websocket.New(handler))
func WebSocketAuthMiddleware(tokens *auth.Tokens) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !websocket.IsWebSocketUpgrade(c) {
			return fiber.ErrUpgradeRequired
		}

		token := strings.TrimSpace(c.Query("token"))
		if token == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "missing token in query",
			})
		}

		claims, err := tokens.ValidateAccess(token)
		if err != nil {
			logging.Logger.Debug("websocket token rejected", zap.String("ip", c.IP()), zap.Error(err))
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Unauthorized",
			})
		}

		c.Locals(LocalAccountID, claims.AccountID)
		c.Locals(LocalIsStaff, claims.IsStaff)
		return c.Next()
	}
}
