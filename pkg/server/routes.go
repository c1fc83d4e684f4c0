package server

import (
	"time"

	"homepage/pkg/handlers"
	"homepage/pkg/hub"
	"homepage/pkg/middleware"
	"homepage/pkg/services"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
)

type Deps struct {
	Posts services.PostsService
	Auth  services.AuthService
	Hub   *hub.Hub
	// LoginLimit caps admin logins per IP per minute. Zero disables it.
	LoginLimit int
	StaticDir  string
}

// Mount registers the board API, the live feed and the optional static site.
func Mount(app *fiber.App, d Deps) {
	posts := handlers.NewPosts(d.Posts)
	users := handlers.NewUsers(d.Posts)
	admin := handlers.NewAdmin(d.Posts, d.Auth)

	api := app.Group("/api")

	api.Get("/posts", posts.List)
	api.Post("/posts", posts.Create)
	api.Delete("/posts", middleware.OptionalAdmin(d.Auth), posts.Delete)
	api.All("/posts", handlers.MethodNotAllowed)

	api.Get("/index", posts.List)
	api.Post("/index", posts.Create)
	api.All("/index", handlers.MethodNotAllowed)

	api.Post("/users", users.CheckNickname)
	api.All("/users", handlers.MethodNotAllowed)

	loginChain := []fiber.Handler{admin.Login}
	if d.LoginLimit > 0 {
		loginChain = append([]fiber.Handler{limiter.New(limiter.Config{
			Max:        d.LoginLimit,
			Expiration: 1 * time.Minute,
			KeyGenerator: func(c *fiber.Ctx) string {
				return c.IP()
			},
			LimitReached: func(c *fiber.Ctx) error {
				return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{"message": "Too many requests."})
			},
		})}, loginChain...)
	}
	api.Post("/admin", loginChain...)
	api.Get("/admin", middleware.AdminMiddleware(d.Auth), admin.Overview)
	api.Put("/admin", middleware.AdminMiddleware(d.Auth), admin.Update)
	api.All("/admin", handlers.MethodNotAllowed)

	if d.Hub != nil {
		wsHub := d.Hub
		app.Get("/hub/status", func(c *fiber.Ctx) error {
			return c.JSON(fiber.Map{"clients": wsHub.ClientCount()})
		})

		app.Use("/ws", func(c *fiber.Ctx) error {
			if !websocket.IsWebSocketUpgrade(c) {
				return fiber.ErrUpgradeRequired
			}
			return c.Next()
		})
		app.Get("/ws", websocket.New(func(c *websocket.Conn) {
			wsHub.Serve(c)
		}))
	}

	if d.StaticDir != "" {
		app.Static("/", d.StaticDir)
	}
}
