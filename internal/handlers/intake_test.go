package handlers

import (
	"bytes"
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/gofiber/fiber/v2"

	"diane/internal/classifier"
	"diane/internal/confirm"
	"diane/internal/store"
	"diane/internal/telegram"
)

func setupIntakeApp(t *testing.T) *fiber.App {
	t.Helper()
	itemStore, err := store.NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("Failed to create test store: %v", err)
	}
	t.Cleanup(func() { itemStore.Close(context.Background()) })

	registry := confirm.NewRegistry(confirm.NewMemoryStore(time.Hour), itemStore)
	h := NewIntakeHandler(telegram.NewClient("test-token"), classifier.New(nil), registry, nil, nil)

	app := fiber.New()
	app.Post("/api/telegram", h.HandleWebhook)
	return app
}

// The webhook must answer 200 no matter what arrives; any other status makes
// Telegram redeliver the update forever.
func TestWebhookAlwaysAnswers200(t *testing.T) {
	app := setupIntakeApp(t)

	bodies := []string{
		``,
		`this is not json`,
		`{}`,
		`{"update_id": 7}`,
		`{"message": {"message_id": 1, "chat": null}}`,
	}
	for _, body := range bodies {
		req := httptest.NewRequest("POST", "/api/telegram", bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")

		resp, err := app.Test(req, -1)
		if err != nil {
			t.Fatalf("Request with body %q failed: %v", body, err)
		}
		resp.Body.Close()
		if resp.StatusCode != fiber.StatusOK {
			t.Errorf("Body %q: expected 200, got %d", body, resp.StatusCode)
		}
	}
}

func TestRuleFromReason(t *testing.T) {
	tests := []struct {
		reason string
		rule   string
	}{
		{"tag: #dev", "tag"},
		{"heuristic: default", "heuristic"},
		{"heuristic: bug/fix terms | llm_error: timeout", "heuristic"},
		{"empty", "heuristic"},
		{"mentions a defect in production code", "llm"},
	}
	for _, tt := range tests {
		if got := ruleFromReason(tt.reason); got != tt.rule {
			t.Errorf("ruleFromReason(%q) = %q, want %q", tt.reason, got, tt.rule)
		}
	}
}

func TestExcerptRuneSafe(t *testing.T) {
	text := strings.Repeat("ö", 600)
	got := excerpt(text, 500)
	if got != strings.Repeat("ö", 500) {
		t.Errorf("Expected 500-rune excerpt, got %d bytes", len(got))
	}
	if !utf8.ValidString(got) {
		t.Error("Excerpt produced invalid UTF-8")
	}
	if short := excerpt("short", 500); short != "short" {
		t.Errorf("Short text changed: %q", short)
	}
}

func TestAttachmentPreviewBounded(t *testing.T) {
	preview := attachmentPreview(make([]byte, 64*1024))
	if len(preview) != attachmentPreviewLimit {
		t.Errorf("Expected preview capped at %d chars, got %d", attachmentPreviewLimit, len(preview))
	}

	short := attachmentPreview([]byte("tiny"))
	if len(short) == 0 || len(short) > attachmentPreviewLimit {
		t.Errorf("Unexpected preview length %d", len(short))
	}
}
