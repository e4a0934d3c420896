package handlers

import (
	"storefront/internal/middleware"
	"storefront/internal/services"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
)

// Services bundles what the HTTP layer calls into.
type Services struct {
	Auth     *services.AuthService
	Products *services.ProductService
	Carts    *services.CartService
	Checkout *services.CheckoutService
	Orders   *services.OrderService
}

// RegisterAPI mounts every /api/v1 route on app.
func RegisterAPI(app *fiber.App, svc Services, log zerolog.Logger) {
	authRequired := middleware.AuthRequired(svc.Auth, log)
	adminRequired := middleware.AdminRequired()

	apiV1 := app.Group("/api/v1")
	NewAuthHandler(svc.Auth, log).RegisterRoutes(apiV1, authRequired)
	NewProductHandler(svc.Products, log).RegisterRoutes(apiV1, authRequired, adminRequired)
	NewCartHandler(svc.Carts, log).RegisterRoutes(apiV1, authRequired)
	NewCheckoutHandler(svc.Checkout, log).RegisterRoutes(apiV1, authRequired)
	NewOrderHandler(svc.Orders, log).RegisterRoutes(apiV1, authRequired, adminRequired)
}
