package handlers

import (
	"storefront/internal/middleware"
	"storefront/internal/services"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
)

// CheckoutHandler handles order submission.
type CheckoutHandler struct {
	service *services.CheckoutService
	log     zerolog.Logger
}

// NewCheckoutHandler creates a new CheckoutHandler.
func NewCheckoutHandler(service *services.CheckoutService, log zerolog.Logger) *CheckoutHandler {
	return &CheckoutHandler{
		service: service,
		log:     log.With().Str("handler", "checkout").Logger(),
	}
}

// RegisterRoutes registers the checkout route behind authRequired.
func (h *CheckoutHandler) RegisterRoutes(router fiber.Router, authRequired fiber.Handler) {
	router.Post("/checkout", authRequired, h.HandleCheckout)
}

// HandleCheckout places an order from the caller's cart.
//
// A placed order answers 201, an empty cart 200 with state cart_empty. Failures carry the
// attempt's state and where to send the shopper next alongside the usual error body.
func (h *CheckoutHandler) HandleCheckout(c *fiber.Ctx) error {
	var input services.CheckoutInput
	if err := c.BodyParser(&input); err != nil {
		return badBody(c, err)
	}

	result, err := h.service.Submit(c.UserContext(), middleware.Identity(c), input)
	if err != nil {
		status, body := errorResponse(err)
		if result != nil {
			body["state"] = result.State
			if result.Redirect != "" {
				body["redirect"] = result.Redirect
			}
		}
		if status >= fiber.StatusInternalServerError {
			h.log.Error().Err(err).Msg("checkout failed")
		}
		return c.Status(status).JSON(body)
	}

	if result.State == services.CheckoutSucceeded {
		return c.Status(fiber.StatusCreated).JSON(result)
	}
	return c.JSON(result)
}
