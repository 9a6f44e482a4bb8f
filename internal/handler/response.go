package handler

import (
	"errors"
	"log/slog"

	"github.com/arturoeanton/twitter-action-broker/internal/middleware"
	"github.com/arturoeanton/twitter-action-broker/internal/port"
	"github.com/gofiber/fiber/v3"
)

// ErrorHandler maps service errors to HTTP responses. Unexpected errors are
// logged and answered with a generic message. A pair refreshed earlier in the
// request is attached so the client does not lose it.
func ErrorHandler(c fiber.Ctx, err error) error {
	status, message := classify(err)
	if status >= fiber.StatusInternalServerError {
		slog.Error("request failed", "method", c.Method(), "path", c.Path(), "error", err)
	}
	return c.Status(status).JSON(withTokens(c, fiber.Map{"error": message}))
}

func classify(err error) (int, string) {
	var fe *fiber.Error
	switch {
	case errors.Is(err, port.ErrAuthenticationRequired):
		return fiber.StatusUnauthorized, port.ErrAuthenticationRequired.Error()
	case errors.Is(err, port.ErrAuthenticationFailed):
		return fiber.StatusUnauthorized, port.ErrAuthenticationFailed.Error()
	case errors.Is(err, port.ErrInvalidState):
		return fiber.StatusBadRequest, port.ErrInvalidState.Error()
	case errors.Is(err, port.ErrValidation):
		return fiber.StatusBadRequest, err.Error()
	case errors.Is(err, port.ErrUserNotFound):
		return fiber.StatusNotFound, port.ErrUserNotFound.Error()
	case errors.As(err, &fe):
		return fe.Code, fe.Message
	default:
		return fiber.StatusInternalServerError, "internal server error"
	}
}

// withTokens adds the refreshed pair of the current session, if any.
func withTokens(c fiber.Ctx, body fiber.Map) fiber.Map {
	if sess := middleware.GetSession(c); sess != nil && sess.Refreshed != nil {
		body["tokens"] = sess.Refreshed
	}
	return body
}
