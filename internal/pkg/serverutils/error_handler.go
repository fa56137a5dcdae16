package serverutils

import (
	"errors"

	"ai-tutor-be/internal/pkg/errx"
	"ai-tutor-be/internal/pkg/logger"

	"github.com/gofiber/fiber/v2"
)

// ErrorHandlerMiddleware turns errors returned by handlers into JSON responses.
// AppErrors keep their status; validation detail is shown, anything else is hidden.
func ErrorHandlerMiddleware(log logger.ILogger) fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		err := ctx.Next()
		if err == nil {
			return nil
		}

		var fiberErr *fiber.Error
		if errors.As(err, &fiberErr) {
			return ctx.Status(fiberErr.Code).JSON(ErrorResponse(fiberErr.Code, fiberErr.Message))
		}

		status, message := fiber.StatusInternalServerError, errx.SystemErrorMessage
		var appErr *errx.AppError
		if errors.As(err, &appErr) {
			status, message = appErr.Status, appErr.Message
			if errors.Is(err, errx.ErrValidation) {
				message = err.Error()
			}
		}

		if status >= fiber.StatusInternalServerError {
			log.Error("HTTP", "Request failed", map[string]interface{}{
				"method": ctx.Method(),
				"path":   ctx.Path(),
				"status": status,
				"error":  err.Error(),
			})
		}
		return ctx.Status(status).JSON(ErrorResponse(status, message))
	}
}
