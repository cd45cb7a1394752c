// handlers/notification_routes.go
package handlers

import (
	"time"

	"ambassador-program/auth"
	"ambassador-program/logging"
	"ambassador-program/middleware"
	"ambassador-program/services"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

const wsPingInterval = 30 * time.Second

func SetupNotificationRoutes(app *fiber.App, tokens *auth.Tokens, notifications *services.NotificationService) {
	group := app.Group("/notifications", middleware.JWTAuthMiddleware(tokens))

	group.Get("/", func(c *fiber.Ctx) error {
		list, err := notifications.List(c.UserContext(), middleware.AccountID(c), c.QueryBool("unread"))
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(fiber.Map{"notifications": list})
	})

	group.Put("/read", func(c *fiber.Ctx) error {
		n, err := notifications.MarkAllRead(c.UserContext(), middleware.AccountID(c))
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(fiber.Map{"updated": n})
	})

	group.Patch("/:id/read", func(c *fiber.Ctx) error {
		if err := notifications.MarkRead(c.UserContext(), middleware.AccountID(c), c.Params("id")); err != nil {
			return respondError(c, err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	})

	app.Get("/ws/notifications", middleware.WebSocketAuthMiddleware(tokens), websocket.New(func(conn *websocket.Conn) {
		accountID, _ := conn.Locals(middleware.LocalAccountID).(string)
		sub := notifications.Hub.Subscribe(accountID, conn)
		defer sub.Close()

		logging.Logger.Debug("notification socket opened", zap.String("account_id", accountID))

		done := make(chan struct{})
		go func() {
			ticker := time.NewTicker(wsPingInterval)
			defer ticker.Stop()
			for {
				select {
				case <-done:
					return
				case <-ticker.C:
					if err := sub.Send(fiber.Map{"type": "ping"}); err != nil {
						return
					}
				}
			}
		}()
		defer close(done)

		// Reads only detect the client going away.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				logging.Logger.Debug("notification socket closed", zap.String("account_id", accountID), zap.Error(err))
				return
			}
		}
	}))
}
