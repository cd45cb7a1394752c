// handlers/errors.go
package handlers

import (
	"errors"

	"ambassador-program/logging"
	"ambassador-program/services"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

var kindStatus = map[services.ErrorKind]int{
	services.KindValidation:      fiber.StatusBadRequest,
	services.KindAuthorization:   fiber.StatusForbidden,
	services.KindNotFound:        fiber.StatusNotFound,
	services.KindConflict:        fiber.StatusConflict,
	services.KindUnprocessable:   fiber.StatusUnprocessableEntity,
	services.KindExternalGateway: fiber.StatusBadGateway,
	services.KindIntegrity:       fiber.StatusInternalServerError,
}

// respondError maps a service error onto a status code and a JSON body.
// Internal details are logged and never echoed to the client.
func respondError(c *fiber.Ctx, err error) error {
	var svcErr *services.Error
	if !errors.As(err, &svcErr) {
		logging.Logger.Error("unhandled error",
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.Error(err),
		)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "internal server error",
		})
	}

	status, ok := kindStatus[svcErr.Kind]
	if !ok {
		status = fiber.StatusInternalServerError
	}

	switch svcErr.Kind {
	case services.KindIntegrity:
		logging.Logger.Error("data integrity violation", zap.String("path", c.Path()), zap.Error(err))
		return c.Status(status).JSON(fiber.Map{"error": "internal server error"})
	case services.KindExternalGateway:
		logging.Logger.Warn("external gateway failure", zap.String("path", c.Path()), zap.Error(err))
		return c.Status(status).JSON(fiber.Map{
			"error":     svcErr.Message,
			"retryable": svcErr.Retryable,
		})
	default:
		return c.Status(status).JSON(fiber.Map{"error": svcErr.Message})
	}
}

func badBody(c *fiber.Ctx) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
}
