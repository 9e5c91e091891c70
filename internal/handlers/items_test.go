package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"

	"diane/internal/models"
	"diane/internal/store"
)

func setupItemsApp(t *testing.T) (*fiber.App, store.ItemStore) {
	t.Helper()
	itemStore, err := store.NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("Failed to create test store: %v", err)
	}
	t.Cleanup(func() { itemStore.Close(context.Background()) })

	app := fiber.New()
	h := NewItemsHandler(itemStore)
	app.Get("/api/items", h.List)
	app.Post("/api/items", h.Create)
	app.Patch("/api/items/:id", h.Patch)
	app.Post("/api/items/bulk", h.Bulk)
	return app, itemStore
}

func doJSON(t *testing.T, app *fiber.App, method, target string, body interface{}) (int, map[string]json.RawMessage) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("Failed to encode body: %v", err)
		}
		reader = bytes.NewReader(encoded)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("Failed to read response: %v", err)
	}
	var decoded map[string]json.RawMessage
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &decoded); err != nil {
			t.Fatalf("Response is not a JSON object: %v (%s)", err, raw)
		}
	}
	return resp.StatusCode, decoded
}

func TestCreateItem(t *testing.T) {
	app, _ := setupItemsApp(t)

	status, body := doJSON(t, app, "POST", "/api/items", models.CreateItemRequest{
		Kind:    "bug_or_dev_task",
		Content: "Server throws 500 on login",
	})
	if status != fiber.StatusCreated {
		t.Fatalf("Expected 201, got %d", status)
	}

	var item models.Item
	if err := json.Unmarshal(body["item"], &item); err != nil {
		t.Fatalf("Missing item in response: %v", err)
	}
	if item.Kind != "BUG_OR_DEV_TASK" {
		t.Errorf("Kind not normalized: %q", item.Kind)
	}
	if item.Source != "api" {
		t.Errorf("Expected default source api, got %q", item.Source)
	}
	if item.Title != "Server throws 500 on login" {
		t.Errorf("Title not derived: %q", item.Title)
	}
}

func TestCreateItemRequiresContent(t *testing.T) {
	app, _ := setupItemsApp(t)

	status, _ := doJSON(t, app, "POST", "/api/items", models.CreateItemRequest{Kind: "GENERIC_NOTE", Content: "   "})
	if status != fiber.StatusBadRequest {
		t.Errorf("Blank content: expected 400, got %d", status)
	}
}

func TestListItemsEndpoint(t *testing.T) {
	app, itemStore := setupItemsApp(t)
	ctx := context.Background()

	itemStore.Create(ctx, "BUG_OR_DEV_TASK", "login broken", "telegram_text")
	itemStore.Create(ctx, "OPERATIONS_TASK", "send the invoice", "api")

	status, body := doJSON(t, app, "GET", "/api/items?kinds=BUG_OR_DEV_TASK", nil)
	if status != fiber.StatusOK {
		t.Fatalf("Expected 200, got %d", status)
	}
	var items []models.Item
	if err := json.Unmarshal(body["items"], &items); err != nil {
		t.Fatalf("Missing items array: %v", err)
	}
	if len(items) != 1 || items[0].Kind != "BUG_OR_DEV_TASK" {
		t.Errorf("Kind filter not applied: %+v", items)
	}

	status, body = doJSON(t, app, "GET", "/api/items?search=invoice", nil)
	if status != fiber.StatusOK {
		t.Fatalf("Expected 200, got %d", status)
	}
	if err := json.Unmarshal(body["items"], &items); err != nil {
		t.Fatalf("Missing items array: %v", err)
	}
	if len(items) != 1 || items[0].Kind != "OPERATIONS_TASK" {
		t.Errorf("Search not applied: %+v", items)
	}
}

func TestPatchItemEndpoint(t *testing.T) {
	app, itemStore := setupItemsApp(t)
	item, _ := itemStore.Create(context.Background(), "GENERIC_NOTE", "some note", "api")

	// String spelling of a boolean must be accepted
	status, body := doJSON(t, app, "PATCH", "/api/items/"+item.ID, map[string]interface{}{
		"reviewed":    "true",
		"ignored_key": 12,
	})
	if status != fiber.StatusOK {
		t.Fatalf("Expected 200, got %d", status)
	}
	var updated models.Item
	if err := json.Unmarshal(body["item"], &updated); err != nil {
		t.Fatalf("Missing item in response: %v", err)
	}
	if !updated.Reviewed {
		t.Error("String boolean not coerced")
	}

	status, _ = doJSON(t, app, "PATCH", "/api/items/no-such-id", map[string]interface{}{"reviewed": true})
	if status != fiber.StatusNotFound {
		t.Errorf("Unknown id: expected 404, got %d", status)
	}
}

func TestBulkEndpoint(t *testing.T) {
	app, itemStore := setupItemsApp(t)
	item, _ := itemStore.Create(context.Background(), "GENERIC_NOTE", "some note", "api")

	status, body := doJSON(t, app, "POST", "/api/items/bulk", models.BulkUpdateRequest{
		IDs:    []string{item.ID, "no-such-id"},
		Action: "archive",
	})
	if status != fiber.StatusOK {
		t.Fatalf("Expected 200, got %d", status)
	}
	var updated int
	if err := json.Unmarshal(body["updated"], &updated); err != nil {
		t.Fatalf("Missing updated count: %v", err)
	}
	if updated != 1 {
		t.Errorf("Partial hit: expected 1 updated, got %d", updated)
	}

	status, _ = doJSON(t, app, "POST", "/api/items/bulk", models.BulkUpdateRequest{Action: "archive"})
	if status != fiber.StatusBadRequest {
		t.Errorf("Missing ids: expected 400, got %d", status)
	}
}

func TestCoerceBool(t *testing.T) {
	tests := []struct {
		input interface{}
		value bool
		ok    bool
	}{
		{true, true, true},
		{false, false, true},
		{"true", true, true},
		{"FALSE", false, true},
		{"1", true, true},
		{float64(1), true, true},
		{float64(0), false, true},
		{"maybe", false, false},
		{nil, false, false},
		{[]interface{}{}, false, false},
	}
	for _, tt := range tests {
		value, ok := coerceBool(tt.input)
		if value != tt.value || ok != tt.ok {
			t.Errorf("coerceBool(%v) = (%v, %v), want (%v, %v)", tt.input, value, ok, tt.value, tt.ok)
		}
	}
}
