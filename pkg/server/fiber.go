package server

import (
	"errors"
	"log"

	"homepage/pkg/metrics"
	"homepage/pkg/middleware"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

type AppOptions struct {
	Name string
	// Quiet disables the per-request log line.
	Quiet bool
}

func NewApp(opts AppOptions) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               opts.Name,
		ReduceMemoryUsage:     true,
		DisableStartupMessage: opts.Quiet,
		ErrorHandler:          errorHandler,
	})

	app.Use(recover.New())
	if !opts.Quiet {
		app.Use(logger.New(logger.Config{
			Format: "[HTTP] ${time} ${status} ${method} ${path} ${latency}\n",
		}))
	}
	app.Use(countRequests)
	app.Use(compress.New(compress.Config{Level: compress.LevelBestSpeed}))
	app.Use(middleware.CORS(middleware.DefaultCORSConfig()))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "service": opts.Name})
	})

	app.Get("/metrics", func(c *fiber.Ctx) error {
		c.Set(fiber.HeaderContentType, "text/plain; version=0.0.4")
		metrics.Write(c)
		return nil
	})

	return app
}

// errorHandler keeps framework errors (404, 426, 429) visible and hides
// everything else behind the generic 500 body.
func errorHandler(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return c.Status(fe.Code).JSON(fiber.Map{"message": fe.Message})
	}
	log.Printf("[PORTAL] unhandled error %s %s: %v", c.Method(), c.Path(), err)
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": "Internal Server Error"})
}

func countRequests(c *fiber.Ctx) error {
	err := c.Next()
	status := c.Response().StatusCode()
	var fe *fiber.Error
	if errors.As(err, &fe) {
		status = fe.Code
	} else if err != nil {
		status = fiber.StatusInternalServerError
	}
	metrics.HTTPRequest(c.Method(), status)
	return err
}
