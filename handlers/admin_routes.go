// handlers/admin_routes.go
package handlers

import (
	"time"

	"ambassador-program/auth"
	"ambassador-program/middleware"
	"ambassador-program/services"

	"github.com/gofiber/fiber/v2"
)

func SetupAdminRoutes(app *fiber.App, tokens *auth.Tokens, adminKey string, prospects *services.ProspectService, notifications *services.NotificationService, retention time.Duration) {
	admin := app.Group("/admin", middleware.AdminMiddleware(tokens, adminKey), middleware.StaffOnly())

	admin.Patch("/prospects/:id/deal-completed", func(c *fiber.Ctx) error {
		prospect, err := prospects.MarkDealCompleted(c.UserContext(), c.Params("id"))
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(prospect)
	})

	admin.Delete("/notifications/cleanup", func(c *fiber.Ctx) error {
		deleted, err := notifications.Cleanup(c.UserContext(), retention)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(fiber.Map{"deleted": deleted})
	})
}
