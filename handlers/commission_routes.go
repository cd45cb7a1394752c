// handlers/commission_routes.go
package handlers

import (
	"ambassador-program/auth"
	"ambassador-program/middleware"
	"ambassador-program/services"

	"github.com/gofiber/fiber/v2"
)

func SetupCommissionRoutes(app *fiber.App, tokens *auth.Tokens, claims *services.ClaimService, payouts *services.PayoutService) {
	group := app.Group("/commissions", middleware.JWTAuthMiddleware(tokens))

	group.Post("/claim", func(c *fiber.Ctx) error {
		var req services.ClaimRequest
		if err := c.BodyParser(&req); err != nil {
			return badBody(c)
		}

		result, err := claims.Claim(c.UserContext(), middleware.AccountID(c), req)
		if err != nil {
			return respondError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(result)
	})

	group.Get("/", func(c *fiber.Ctx) error {
		actor := services.Actor{AccountID: middleware.AccountID(c), IsStaff: middleware.IsStaff(c)}
		list, err := payouts.ListCommissions(c.UserContext(), actor, c.Query("account_id"))
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(fiber.Map{"commissions": list})
	})

	group.Post("/:id/payout", func(c *fiber.Ctx) error {
		actor := services.Actor{AccountID: middleware.AccountID(c), IsStaff: middleware.IsStaff(c)}
		commission, err := payouts.Payout(c.UserContext(), actor, c.Params("id"))
		if err != nil {
			return respondError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{
			"commission":         commission,
			"transfer_reference": commission.TransferReference,
		})
	})
}
