package handlers

import (
	"errors"
	"log"

	"homepage/pkg/services"

	"github.com/gofiber/fiber/v2"
)

var statusByKind = []struct {
	kind   error
	status int
}{
	{services.ErrValidation, fiber.StatusBadRequest},
	{services.ErrUnauthorized, fiber.StatusUnauthorized},
	{services.ErrForbidden, fiber.StatusForbidden},
	{services.ErrNotFound, fiber.StatusNotFound},
	{services.ErrNicknameTaken, fiber.StatusConflict},
}

func message(c *fiber.Ctx, status int, msg string) error {
	return c.Status(status).JSON(fiber.Map{"message": msg})
}

// fail maps service errors to the caller-facing status and message.
// Anything unclassified is logged and hidden behind a generic 500.
func fail(c *fiber.Ctx, tag string, err error) error {
	var ce *services.ClientError
	if errors.As(err, &ce) {
		for _, m := range statusByKind {
			if errors.Is(err, m.kind) {
				return message(c, m.status, ce.Message)
			}
		}
	}
	log.Printf("[%s] %s %s: %v", tag, c.Method(), c.Path(), err)
	return message(c, fiber.StatusInternalServerError, "Internal Server Error")
}

// parseBody decodes a JSON body whatever the Content-Type. An empty body
// leaves dst at its zero value.
func parseBody(c *fiber.Ctx, dst interface{}) error {
	body := c.Body()
	if len(body) == 0 {
		return nil
	}
	return c.App().Config().JSONDecoder(body, dst)
}

func invalidJSON(c *fiber.Ctx) error {
	return message(c, fiber.StatusBadRequest, "Invalid JSON.")
}

// MethodNotAllowed answers any verb a route does not implement.
func MethodNotAllowed(c *fiber.Ctx) error {
	return c.Status(fiber.StatusMethodNotAllowed).SendString("Method Not Allowed")
}
