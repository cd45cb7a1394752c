// middleware/auth.go
package middleware

import (
	"crypto/subtle"
	"strings"

	"ambassador-program/auth"
	"ambassador-program/logging"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

const (
	LocalAccountID = "account_id"
	LocalIsStaff   = "is_staff"
)

// AccountID returns the authenticated account set by JWTAuthMiddleware.
func AccountID(c *fiber.Ctx) string {
	id, _ := c.Locals(LocalAccountID).(string)
	return id
}

func IsStaff(c *fiber.Ctx) bool {
	staff, _ := c.Locals(LocalIsStaff).(bool)
	return staff
}

func bearerToken(c *fiber.Ctx) string {
	header := c.Get(fiber.HeaderAuthorization)
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// JWTAuthMiddleware validates the Bearer access token and attaches the
// account identity to the request.
func JWTAuthMiddleware(tokens *auth.Tokens) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := bearerToken(c)
		if token == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "authorization header required",
			})
		}

		claims, err := tokens.ValidateAccess(token)
		if err != nil {
			logging.Logger.Debug("access token rejected", zap.String("path", c.Path()), zap.Error(err))
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "invalid or expired access token",
			})
		}

		c.Locals(LocalAccountID, claims.AccountID)
		c.Locals(LocalIsStaff, claims.IsStaff)
		return c.Next()
	}
}

// AdminMiddleware admits staff tokens, or automation presenting X-Admin-Key.
func AdminMiddleware(tokens *auth.Tokens, adminKey string) fiber.Handler {
	jwtAuth := JWTAuthMiddleware(tokens)
	return func(c *fiber.Ctx) error {
		if key := c.Get("X-Admin-Key"); adminKey != "" && key != "" {
			if subtle.ConstantTimeCompare([]byte(key), []byte(adminKey)) != 1 {
				logging.Logger.Warn("invalid admin key", zap.String("path", c.Path()), zap.String("ip", c.IP()))
				return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid admin key"})
			}
			c.Locals(LocalIsStaff, true)
			return c.Next()
		}

		return jwtAuth(c)
	}
}

// StaffOnly must run after an authentication middleware.
func StaffOnly() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !IsStaff(c) {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "staff only"})
		}
		return c.Next()
	}
}
