package handlers

import (
	"context"
	"encoding/json"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"diane/internal/metrics"
	"diane/internal/models"
	"diane/internal/store"
)

const storeTimeout = 10 * time.Second

// ItemsHandler handles the item REST API
type ItemsHandler struct {
	store store.ItemStore
}

// NewItemsHandler creates a new items handler
func NewItemsHandler(itemStore store.ItemStore) *ItemsHandler {
	return &ItemsHandler{store: itemStore}
}

// List handles GET /api/items
func (h *ItemsHandler) List(c *fiber.Ctx) error {
	query := models.ListItemsQuery{
		Search:          strings.TrimSpace(c.Query("search")),
		IncludeArchived: parseBoolParam(c.Query("include_archived"), false),
		IncludeReviewed: parseBoolParam(c.Query("include_reviewed"), true),
		Limit:           parseIntParam(c.Query("limit"), 0),
		Offset:          parseIntParam(c.Query("offset"), 0),
	}
	for _, kind := range strings.Split(c.Query("kinds"), ",") {
		if kind = strings.TrimSpace(kind); kind != "" {
			query.Kinds = append(query.Kinds, kind)
		}
	}

	ctx, cancel := context.WithTimeout(c.Context(), storeTimeout)
	defer cancel()

	items, err := h.store.List(ctx, query)
	if err != nil {
		log.Printf("❌ [ITEMS] List failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to list items",
		})
	}
	if items == nil {
		items = []models.Item{}
	}
	return c.JSON(models.ListItemsResponse{Items: items})
}

// Create handles POST /api/items
func (h *ItemsHandler) Create(c *fiber.Ctx) error {
	var req models.CreateItemRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid request body",
		})
	}
	if strings.TrimSpace(req.Content) == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "content is required",
		})
	}
	if req.Source == "" {
		req.Source = string(models.SourceAPI)
	}

	ctx, cancel := context.WithTimeout(c.Context(), storeTimeout)
	defer cancel()

	item, err := h.store.Create(ctx, req.Kind, req.Content, req.Source)
	if err != nil {
		log.Printf("❌ [ITEMS] Create failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to create item",
		})
	}

	if m := metrics.Get(); m != nil {
		m.RecordNoteReceived(req.Source)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"item": item})
}

// Patch handles PATCH /api/items/:id. The body is decoded as a generic map
// so boolean fields also accept "true"/"false" strings and 0/1 numbers, the
// way lenient dashboard clients send them. Unknown keys are ignored.
func (h *ItemsHandler) Patch(c *fiber.Ctx) error {
	var body map[string]interface{}
	if err := json.Unmarshal(c.Body(), &body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid request body",
		})
	}

	var patch models.PatchItemRequest
	if v, ok := coerceBool(body["reviewed"]); ok {
		patch.Reviewed = &v
	}
	if v, ok := coerceBool(body["archived"]); ok {
		patch.Archived = &v
	}
	if v, ok := body["title"].(string); ok {
		patch.Title = &v
	}
	if v, ok := body["content"].(string); ok {
		patch.Content = &v
	}
	if v, ok := body["kind"].(string); ok {
		patch.Kind = &v
	}

	ctx, cancel := context.WithTimeout(c.Context(), storeTimeout)
	defer cancel()

	item, found, err := h.store.Patch(ctx, c.Params("id"), patch)
	if err != nil {
		log.Printf("❌ [ITEMS] Patch failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to update item",
		})
	}
	if !found {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "not found",
		})
	}
	return c.JSON(fiber.Map{"item": item})
}

// Bulk handles POST /api/items/bulk
func (h *ItemsHandler) Bulk(c *fiber.Ctx) error {
	var req models.BulkUpdateRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid request body",
		})
	}
	if len(req.IDs) == 0 || req.Action == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "ids and action are required",
		})
	}

	ctx, cancel := context.WithTimeout(c.Context(), storeTimeout)
	defer cancel()

	updated, err := h.store.BulkUpdate(ctx, req.IDs, req.Action)
	if err != nil {
		log.Printf("❌ [ITEMS] Bulk update failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to update items",
		})
	}
	return c.JSON(fiber.Map{"updated": updated})
}

func parseBoolParam(value string, defaultValue bool) bool {
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}
	return parsed
}

func parseIntParam(value string, defaultValue int) int {
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return parsed
}

// coerceBool accepts JSON booleans plus the string and numeric spellings
func coerceBool(value interface{}) (bool, bool) {
	switch v := value.(type) {
	case bool:
		return v, true
	case string:
		parsed, err := strconv.ParseBool(strings.ToLower(strings.TrimSpace(v)))
		if err != nil {
			return false, false
		}
		return parsed, true
	case float64:
		return v != 0, true
	default:
		return false, false
	}
}
