package handlers

import (
	"github.com/gofiber/fiber/v2"
)

// HealthHandler handles health check requests
type HealthHandler struct{}

// NewHealthHandler creates a new health handler
func NewHealthHandler() *HealthHandler {
	return &HealthHandler{}
}

// Handle responds with server health status
func (h *HealthHandler) Handle(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"ok": true})
}

// Root responds with a short service hint for anyone probing the base URL
func (h *HealthHandler) Root(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"service": "diane",
		"endpoints": []string{
			"GET /health",
			"GET /api/items",
			"POST /api/items",
			"PATCH /api/items/:id",
			"POST /api/items/bulk",
			"POST /api/telegram",
			"GET /set-webhook",
			"GET /metrics",
		},
	})
}
