package api

import (
	"os"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
)

func SetupRouter(app *fiber.App, handler *ChatHandler) {
	// Middleware
	app.Use(logger.New())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"status":  "healthy",
			"version": os.Getenv("APP_VERSION"),
		})
	})

	v1 := app.Group("/v1")
	v1.Post("/chat", handler.HandleChat)
	v1.Post("/chat/suggested-questions", handler.HandleSuggestedQuestions)
	v1.Post("/sync-products", handler.HandleSyncProducts)
}
