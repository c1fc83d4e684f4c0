package middleware

import (
	"github.com/gofiber/fiber/v2"
)

type CORSConfig struct {
	AllowOrigin  string
	AllowMethods string
	AllowHeaders string
}

func DefaultCORSConfig() CORSConfig {
	return CORSConfig{
		AllowOrigin:  "*",
		AllowMethods: "GET, POST, PUT, DELETE, OPTIONS",
		AllowHeaders: "Content-Type, Authorization",
	}
}

// CORS stamps every response, Origin header or not, and answers any OPTIONS
// request itself with an empty 200.
func CORS(cfg CORSConfig) fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Set(fiber.HeaderAccessControlAllowOrigin, cfg.AllowOrigin)
		c.Set(fiber.HeaderAccessControlAllowMethods, cfg.AllowMethods)
		c.Set(fiber.HeaderAccessControlAllowHeaders, cfg.AllowHeaders)

		if c.Method() == fiber.MethodOptions {
			c.Status(fiber.StatusOK)
			return nil
		}
		return c.Next()
	}
}
