// handlers/qr_routes.go
package handlers

import (
	"ambassador-program/auth"
	"ambassador-program/middleware"
	"ambassador-program/services"

	"github.com/gofiber/fiber/v2"
)

func SetupQRRoutes(app *fiber.App, tokens *auth.Tokens, qr *services.QRService) {
	app.Post("/qr", middleware.JWTAuthMiddleware(tokens), func(c *fiber.Ctx) error {
		var req struct {
			BundleType services.QRBundleType `json:"bundle_type"`
		}
		if err := c.BodyParser(&req); err != nil {
			return badBody(c)
		}
		acc, err := qr.Generate(c.UserContext(), middleware.AccountID(c), req.BundleType)
		if err != nil {
			return respondError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{
			"qr_code_id":  acc.QRCodeID,
			"qr_code_url": acc.QRCodeURL,
		})
	})
}
