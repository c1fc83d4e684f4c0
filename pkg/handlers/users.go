package handlers

import (
	"homepage/pkg/models"
	"homepage/pkg/services"

	"github.com/gofiber/fiber/v2"
)

type UsersHandler struct {
	service services.PostsService
}

func NewUsers(service services.PostsService) *UsersHandler {
	return &UsersHandler{service: service}
}

// POST /api/users checks a nickname against every existing author.
func (h *UsersHandler) CheckNickname(c *fiber.Ctx) error {
	var req models.NicknameRequest
	if err := parseBody(c, &req); err != nil {
		return invalidJSON(c)
	}

	if err := h.service.CheckNickname(c.UserContext(), req.Nickname); err != nil {
		return fail(c, "USERS", err)
	}
	return message(c, fiber.StatusOK, "Nickname is available.")
}
