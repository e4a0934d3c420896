package handlers

import (
	"errors"

	"storefront/internal/middleware"
	"storefront/internal/services"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
)

// errorResponse maps a service error to a status code and JSON body.
func errorResponse(err error) (int, fiber.Map) {
	var validationErr *services.ValidationError
	switch {
	case errors.As(err, &validationErr):
		return fiber.StatusBadRequest, fiber.Map{"message": "Validation failed", "errors": validationErr.Fields}
	case errors.Is(err, services.ErrUnauthenticated):
		return fiber.StatusUnauthorized, fiber.Map{"message": err.Error(), "redirect": middleware.RedirectLogin}
	case errors.Is(err, services.ErrInvalidCredentials):
		return fiber.StatusUnauthorized, fiber.Map{"message": "Authentication failed", "error": err.Error()}
	case errors.Is(err, services.ErrForbidden):
		return fiber.StatusForbidden, fiber.Map{"message": err.Error(), "redirect": middleware.RedirectHome}
	case errors.Is(err, services.ErrNotFound):
		return fiber.StatusNotFound, fiber.Map{"message": "Not found", "error": err.Error()}
	case errors.Is(err, services.ErrAlreadyRegistered),
		errors.Is(err, services.ErrInvalidTransition),
		errors.Is(err, services.ErrCheckoutInProgress),
		errors.Is(err, services.ErrConcurrentUpdate):
		return fiber.StatusConflict, fiber.Map{"message": "Request conflicts with current state", "error": err.Error()}
	default:
		return fiber.StatusInternalServerError, fiber.Map{"message": "Something went wrong, please try again", "error": err.Error()}
	}
}

// respondError writes err as JSON. Server-side failures are logged at error level, the rest at debug.
func respondError(c *fiber.Ctx, log zerolog.Logger, err error) error {
	status, body := errorResponse(err)
	logEvent := log.Debug()
	if status >= fiber.StatusInternalServerError {
		logEvent = log.Error()
	}
	logEvent.Err(err).Str("method", c.Method()).Str("path", c.Path()).Int("status", status).Msg("request failed")
	return c.Status(status).JSON(body)
}

func badBody(c *fiber.Ctx, err error) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"message": "Invalid request body",
		"error":   err.Error(),
	})
}
