package handlers

import (
	"homepage/pkg/middleware"
	"homepage/pkg/models"
	"homepage/pkg/services"

	"github.com/gofiber/fiber/v2"
)

type PostsHandler struct {
	service services.PostsService
}

func NewPosts(service services.PostsService) *PostsHandler {
	return &PostsHandler{service: service}
}

// GET /api/posts
func (h *PostsHandler) List(c *fiber.Ctx) error {
	posts, err := h.service.List(c.UserContext())
	if err != nil {
		return fail(c, "POSTS", err)
	}
	return c.JSON(posts)
}

// POST /api/posts
func (h *PostsHandler) Create(c *fiber.Ctx) error {
	var req models.CreatePostRequest
	if err := parseBody(c, &req); err != nil {
		return invalidJSON(c)
	}

	post, err := h.service.Create(c.UserContext(), req)
	if err != nil {
		return fail(c, "POSTS", err)
	}
	return c.Status(fiber.StatusCreated).JSON(post)
}

// DELETE /api/posts (isAdmin needs a valid bearer token to count)
func (h *PostsHandler) Delete(c *fiber.Ctx) error {
	var req models.DeletePostRequest
	if err := parseBody(c, &req); err != nil {
		return invalidJSON(c)
	}

	admin := req.IsAdmin && middleware.IsAdmin(c)
	if err := h.service.Delete(c.UserContext(), req, admin); err != nil {
		return fail(c, "POSTS", err)
	}
	return message(c, fiber.StatusOK, "Post deleted successfully.")
}
