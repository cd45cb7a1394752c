// handlers/payment_routes.go
package handlers

import (
	"ambassador-program/auth"
	"ambassador-program/middleware"
	"ambassador-program/services"

	"github.com/gofiber/fiber/v2"
)

func SetupPaymentRoutes(app *fiber.App, tokens *auth.Tokens, recipients *services.RecipientService) {
	group := app.Group("/payments", middleware.JWTAuthMiddleware(tokens))

	group.Post("/recipient", func(c *fiber.Ctx) error {
		acc, err := recipients.Ensure(c.UserContext(), middleware.AccountID(c))
		if err != nil {
			return respondError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{
			"payment_account_id": acc.PaymentAccountID,
			"payment_onboarded":  acc.PaymentOnboarded,
		})
	})

	group.Get("/recipient", func(c *fiber.Ctx) error {
		status, err := recipients.Refresh(c.UserContext(), middleware.AccountID(c))
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(status)
	})

	group.Post("/onboarding-link", func(c *fiber.Ctx) error {
		if err := recipients.SendOnboardingLink(c.UserContext(), middleware.AccountID(c)); err != nil {
			return respondError(c, err)
		}
		return c.JSON(fiber.Map{"detail": "Email sent successfully"})
	})
}
