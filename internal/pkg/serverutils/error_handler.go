package serverutils

import (
	"errors"

	"mnp-assistant-be/internal/pkg/logger"
	"mnp-assistant-be/pkg/apperror"

	"github.com/gofiber/fiber/v2"
)

// ErrorHandler maps domain error kinds onto HTTP statuses for fiber.Config.ErrorHandler.
func ErrorHandler(log logger.ILogger) fiber.ErrorHandler {
	return func(ctx *fiber.Ctx, err error) error {
		var fe *fiber.Error
		if errors.As(err, &fe) {
			return ctx.Status(fe.Code).JSON(ErrorResponse(fe.Message, nil))
		}

		var ae *apperror.Error
		if errors.As(err, &ae) {
			status := statusFor(ae.Kind)
			if status >= fiber.StatusInternalServerError {
				log.Error("HTTP", "Request failed", map[string]interface{}{
					"method": ctx.Method(),
					"path":   ctx.Path(),
					"error":  err,
				})
			}
			return ctx.Status(status).JSON(ErrorResponse(ae.Message, ae.Fields))
		}

		log.Error("HTTP", "Unhandled error", map[string]interface{}{
			"method": ctx.Method(),
			"path":   ctx.Path(),
			"error":  err,
		})
		return ctx.Status(fiber.StatusInternalServerError).JSON(ErrorResponse("Internal server error", nil))
	}
}

func statusFor(kind apperror.Kind) int {
	switch kind {
	case apperror.KindValidation:
		return fiber.StatusBadRequest
	case apperror.KindNotFound:
		return fiber.StatusNotFound
	case apperror.KindConflict:
		return fiber.StatusConflict
	case apperror.KindUpstreamUnavailable:
		return fiber.StatusServiceUnavailable
	}
	return fiber.StatusInternalServerError
}
