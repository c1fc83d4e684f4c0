package handlers

import (
	"errors"

	"homepage/pkg/models"
	"homepage/pkg/services"

	"github.com/gofiber/fiber/v2"
)

type AdminHandler struct {
	posts services.PostsService
	auth  services.AuthService
}

func NewAdmin(posts services.PostsService, auth services.AuthService) *AdminHandler {
	return &AdminHandler{posts: posts, auth: auth}
}

// POST /api/admin
func (h *AdminHandler) Login(c *fiber.Ctx) error {
	var req models.LoginRequest
	if err := parseBody(c, &req); err != nil {
		return invalidJSON(c)
	}

	token, err := h.auth.Login(req.Password)
	if errors.Is(err, services.ErrUnauthorized) {
		return c.Status(fiber.StatusUnauthorized).JSON(models.LoginResponse{
			Success: false,
			Message: "Invalid password.",
		})
	}
	if err != nil {
		return fail(c, "ADMIN", err)
	}

	return c.JSON(models.LoginResponse{
		Success: true,
		Token:   token,
		Message: "Admin authenticated successfully.",
	})
}

// GET /api/admin (admin)
func (h *AdminHandler) Overview(c *fiber.Ctx) error {
	overview, err := h.posts.Overview(c.UserContext())
	if err != nil {
		return fail(c, "ADMIN", err)
	}
	return c.JSON(overview)
}

// PUT /api/admin (admin)
func (h *AdminHandler) Update(c *fiber.Ctx) error {
	var req models.UpdatePostRequest
	if err := parseBody(c, &req); err != nil {
		return invalidJSON(c)
	}

	post, err := h.posts.Update(c.UserContext(), req)
	if err != nil {
		return fail(c, "ADMIN", err)
	}
	return c.JSON(models.UpdatePostResponse{
		Message: "Post updated successfully.",
		Post:    post,
	})
}
