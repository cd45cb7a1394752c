// handlers/account_routes.go
package handlers

import (
	"ambassador-program/auth"
	"ambassador-program/middleware"
	"ambassador-program/services"

	"github.com/gofiber/fiber/v2"
)

func SetupAccountRoutes(app *fiber.App, tokens *auth.Tokens, accounts *services.AccountService) {
	authGroup := app.Group("/auth")

	authGroup.Post("/register", func(c *fiber.Ctx) error {
		var req services.RegisterRequest
		if err := c.BodyParser(&req); err != nil {
			return badBody(c)
		}
		acc, err := accounts.Register(c.UserContext(), req)
		if err != nil {
			return respondError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(acc)
	})

	authGroup.Post("/login", func(c *fiber.Ctx) error {
		var req struct {
			Email    string `json:"email"`
			Password string `json:"password"`
		}
		if err := c.BodyParser(&req); err != nil {
			return badBody(c)
		}
		pair, err := accounts.Login(c.UserContext(), req.Email, req.Password)
		if err != nil {
			if services.KindOf(err) == services.KindAuthorization {
				return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid email or password"})
			}
			return respondError(c, err)
		}
		return c.JSON(pair)
	})

	authGroup.Post("/refresh", func(c *fiber.Ctx) error {
		var req struct {
			RefreshToken string `json:"refresh_token"`
		}
		if err := c.BodyParser(&req); err != nil || req.RefreshToken == "" {
			return badBody(c)
		}
		pair, err := accounts.Refresh(c.UserContext(), req.RefreshToken)
		if err != nil {
			if services.KindOf(err) == services.KindAuthorization {
				return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid or expired refresh token"})
			}
			return respondError(c, err)
		}
		return c.JSON(pair)
	})

	me := app.Group("/me", middleware.JWTAuthMiddleware(tokens))

	me.Get("/", func(c *fiber.Ctx) error {
		acc, err := accounts.Profile(c.UserContext(), middleware.AccountID(c))
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(acc)
	})

	me.Patch("/password", func(c *fiber.Ctx) error {
		var req struct {
			OldPassword string `json:"old_password"`
			NewPassword string `json:"new_password"`
		}
		if err := c.BodyParser(&req); err != nil {
			return badBody(c)
		}
		if err := accounts.ChangePassword(c.UserContext(), middleware.AccountID(c), req.OldPassword, req.NewPassword); err != nil {
			return respondError(c, err)
		}
		return c.JSON(fiber.Map{"detail": "Password updated successfully"})
	})
}
