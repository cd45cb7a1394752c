// handlers/prospect_routes.go
package handlers

import (
	"ambassador-program/auth"
	"ambassador-program/middleware"
	"ambassador-program/services"

	"github.com/gofiber/fiber/v2"
)

func SetupProspectRoutes(app *fiber.App, tokens *auth.Tokens, prospects *services.ProspectService) {
	group := app.Group("/prospects", middleware.JWTAuthMiddleware(tokens))

	group.Post("/", func(c *fiber.Ctx) error {
		var req services.CreateProspectRequest
		if err := c.BodyParser(&req); err != nil {
			return badBody(c)
		}
		prospect, err := prospects.Create(c.UserContext(), middleware.AccountID(c), req)
		if err != nil {
			return respondError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(prospect)
	})

	group.Get("/", func(c *fiber.Ctx) error {
		list, err := prospects.List(c.UserContext(), middleware.AccountID(c))
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(fiber.Map{"prospects": list})
	})
}

// SetupWebhookRoutes receives CRM events authenticated by a shared secret.
func SetupWebhookRoutes(app *fiber.App, secret string, prospects *services.ProspectService) {
	app.Post("/webhooks/crm", middleware.SharedSecretMiddleware("X-Webhook-Secret", secret), func(c *fiber.Ctx) error {
		var event services.CRMEvent
		if err := c.BodyParser(&event); err != nil {
			return badBody(c)
		}
		if err := prospects.HandleCRMEvent(c.UserContext(), event); err != nil {
			return respondError(c, err)
		}
		return c.JSON(fiber.Map{"status": "ok"})
	})
}
