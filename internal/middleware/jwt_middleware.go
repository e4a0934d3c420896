package middleware

import (
	"strings"

	"storefront/internal/models"
	"storefront/internal/services"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
)

const identityKey = "identity"

// Where clients are sent when a request is rejected.
const (
	RedirectLogin = "/auth"
	RedirectHome  = "/"
)

// AuthRequired is a Fiber middleware to check for a valid JWT token.
// The caller's models.Identity is stored in the request locals.
func AuthRequired(authService *services.AuthService, log zerolog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return unauthorized(c, "Authorization header is required")
		}

		// Expected format: "Bearer <token>"
		parts := strings.SplitN(authHeader, " ", 2)
		if !(len(parts) == 2 && parts[0] == "Bearer") {
			return unauthorized(c, "Authorization header format must be 'Bearer <token>'")
		}

		claims, err := authService.ValidateToken(parts[1])
		if err != nil {
			log.Debug().Err(err).Str("path", c.Path()).Msg("JWT validation failed")
			return unauthorized(c, "Invalid or expired token")
		}

		identity := services.IdentityFromClaims(claims)
		if identity.IsAnonymous() {
			return unauthorized(c, "Token does not identify a user")
		}
		c.Locals(identityKey, identity)
		return c.Next()
	}
}

// AdminRequired rejects callers without the admin role. It must run after AuthRequired.
func AdminRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		identity := Identity(c)
		if identity.IsAnonymous() {
			return unauthorized(c, "Authentication required")
		}
		if !identity.IsAdmin() {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"message":  "Administrator role required",
				"redirect": RedirectHome,
			})
		}
		return c.Next()
	}
}

// Identity returns the caller stored by AuthRequired, or the anonymous identity.
func Identity(c *fiber.Ctx) models.Identity {
	identity, _ := c.Locals(identityKey).(models.Identity)
	return identity
}

func unauthorized(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
		"message":  message,
		"redirect": RedirectLogin,
	})
}
