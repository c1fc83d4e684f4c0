package middleware

import (
	"strings"

	"homepage/pkg/services"

	"github.com/gofiber/fiber/v2"
)

const adminLocal = "admin"

func bearerToken(c *fiber.Ctx) string {
	auth := c.Get(fiber.HeaderAuthorization)
	if !strings.HasPrefix(auth, "Bearer ") {
		return ""
	}
	return strings.TrimSpace(auth[7:])
}

// AdminMiddleware rejects requests without a valid admin bearer token.
func AdminMiddleware(auth services.AuthService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := bearerToken(c)
		if token == "" || auth.Validate(token) != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "Unauthorized."})
		}
		c.Locals(adminLocal, true)
		return c.Next()
	}
}

// OptionalAdmin marks the request as admin when a valid token is present and
// lets everything else through untouched.
func OptionalAdmin(auth services.AuthService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if token := bearerToken(c); token != "" && auth.Validate(token) == nil {
			c.Locals(adminLocal, true)
		}
		return c.Next()
	}
}

func IsAdmin(c *fiber.Ctx) bool {
	admin, _ := c.Locals(adminLocal).(bool)
	return admin
}
