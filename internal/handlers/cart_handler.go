package handlers

import (
	"storefront/internal/middleware"
	"storefront/internal/services"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
)

// CartHandler handles HTTP requests for the caller's cart. Every response carries the fresh cart.
type CartHandler struct {
	service *services.CartService
	log     zerolog.Logger
}

// NewCartHandler creates a new CartHandler.
func NewCartHandler(service *services.CartService, log zerolog.Logger) *CartHandler {
	return &CartHandler{
		service: service,
		log:     log.With().Str("handler", "cart").Logger(),
	}
}

// RegisterRoutes registers the cart routes behind authRequired.
func (h *CartHandler) RegisterRoutes(router fiber.Router, authRequired fiber.Handler) {
	cartRoutes := router.Group("/cart", authRequired)
	cartRoutes.Get("/", h.HandleGetCart)
	cartRoutes.Post("/items", h.HandleAddItem)
	cartRoutes.Patch("/items/:id", h.HandleSetQuantity)
	cartRoutes.Delete("/items/:id", h.HandleRemoveItem)
}

// AddItemRequest is the body of POST /cart/items. Quantity defaults to 1.
type AddItemRequest struct {
	ProductID string `json:"product_id"`
	Quantity  *int   `json:"quantity"`
}

// SetQuantityRequest is the body of PATCH /cart/items/:id.
type SetQuantityRequest struct {
	Quantity int `json:"quantity"`
}

// HandleGetCart returns the caller's cart.
func (h *CartHandler) HandleGetCart(c *fiber.Ctx) error {
	view, err := h.service.GetCart(c.UserContext(), middleware.Identity(c))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(view)
}

// HandleAddItem adds a product to the cart.
func (h *CartHandler) HandleAddItem(c *fiber.Ctx) error {
	var req AddItemRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody(c, err)
	}
	if req.ProductID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Validation failed",
			"errors":  fiber.Map{"ProductID": "Field 'ProductID' failed on the 'required' tag"},
		})
	}
	quantity := 1
	if req.Quantity != nil {
		quantity = *req.Quantity
	}

	view, err := h.service.AddItem(c.UserContext(), middleware.Identity(c), req.ProductID, quantity)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(view)
}

// HandleSetQuantity changes the quantity of one line. Quantities below 1 leave the cart unchanged.
func (h *CartHandler) HandleSetQuantity(c *fiber.Ctx) error {
	var req SetQuantityRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody(c, err)
	}
	view, err := h.service.SetQuantity(c.UserContext(), middleware.Identity(c), c.Params("id"), req.Quantity)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(view)
}

// HandleRemoveItem deletes one line from the cart.
func (h *CartHandler) HandleRemoveItem(c *fiber.Ctx) error {
	view, err := h.service.RemoveItem(c.UserContext(), middleware.Identity(c), c.Params("id"))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(view)
}
