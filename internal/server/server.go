package server

import (
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/logger"

	"github.com/chatrelay/chatrelay/internal/controllers"
	"github.com/chatrelay/chatrelay/internal/version"
)

type HTTPServerDependencies struct {
	WebhookController *controllers.WebhookController
}

func NewHTTPServer(deps HTTPServerDependencies) *fiber.App {
	router := fiber.New(fiber.Config{
		AppName: "chatrelay",
	})

	router.Use(cors.New())
	router.Use(logger.New())

	// Health check endpoint (no authentication required)
	router.Get("/health", func(c fiber.Ctx) error {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"status":    "healthy",
			"service":   "chatrelay",
			"version":   version.Get().Version,
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
	})

	router.Post("/webhook", deps.WebhookController.HandleEvent)

	return router
}
