package handlers

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"diane/internal/config"
	"diane/internal/telegram"
)

// SetupHandler registers the Telegram webhook on demand
type SetupHandler struct {
	bot *telegram.Client
	cfg *config.Config
}

// NewSetupHandler creates a new setup handler
func NewSetupHandler(bot *telegram.Client, cfg *config.Config) *SetupHandler {
	return &SetupHandler{bot: bot, cfg: cfg}
}

// HandleSetWebhook handles GET /set-webhook?url=. Without a url parameter
// the configured public base URL is used.
func (h *SetupHandler) HandleSetWebhook(c *fiber.Ctx) error {
	webhookURL := strings.TrimSpace(c.Query("url"))
	if webhookURL == "" {
		if h.cfg.WebhookBaseURL == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "url parameter or WEBHOOK_BASE_URL is required",
			})
		}
		webhookURL = strings.TrimRight(h.cfg.WebhookBaseURL, "/") + h.cfg.WebhookPath()
	}

	ctx, cancel := context.WithTimeout(c.Context(), 15*time.Second)
	defer cancel()

	if err := h.bot.SetWebhook(ctx, webhookURL); err != nil {
		log.Printf("❌ [SETUP] setWebhook failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	return c.JSON(fiber.Map{"ok": true, "url": webhookURL})
}
