package store

import (
	"context"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"diane/internal/models"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("Failed to create test store: %v", err)
	}
	t.Cleanup(func() { s.Close(context.Background()) })
	return s
}

func TestCreateDerivesTitle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	item, err := s.Create(ctx, "bug_or_dev_task", "diane Fix the login page\nIt 500s on submit", "telegram_text")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if item.Kind != "BUG_OR_DEV_TASK" {
		t.Errorf("Kind not upper-cased: %q", item.Kind)
	}
	if item.Title != "Fix the login page" {
		t.Errorf("Expected wake word dropped and first line as title, got %q", item.Title)
	}
	if item.Reviewed || item.Archived {
		t.Error("New items must default to unreviewed and unarchived")
	}
	if item.ID == "" {
		t.Error("Item needs an id")
	}

	// Blank kind defaults, whitespace-only content yields placeholder title
	item, err = s.Create(ctx, "", "   \n  ", "api")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if item.Kind != "GENERIC_NOTE" {
		t.Errorf("Blank kind should default to GENERIC_NOTE, got %q", item.Kind)
	}
	if item.Title != "GENERIC_NOTE: Untitled" {
		t.Errorf("Expected placeholder title, got %q", item.Title)
	}
}

func TestListFilters(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	bug, _ := s.Create(ctx, "BUG_OR_DEV_TASK", "login page 500s", "telegram_text")
	time.Sleep(2 * time.Millisecond)
	ops, _ := s.Create(ctx, "OPERATIONS_TASK", "pay the hosting invoice", "api")
	time.Sleep(2 * time.Millisecond)
	note, _ := s.Create(ctx, "GENERIC_NOTE", "random idea about pricing", "telegram_voice")

	// Most recent first
	items, err := s.List(ctx, models.ListItemsQuery{IncludeReviewed: true})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(items) != 3 {
		t.Fatalf("Expected 3 items, got %d", len(items))
	}
	if items[0].ID != note.ID || items[2].ID != bug.ID {
		t.Error("Items not ordered most recent first")
	}

	// Kind filter
	items, err = s.List(ctx, models.ListItemsQuery{Kinds: []string{"bug_or_dev_task", "OPERATIONS_TASK"}, IncludeReviewed: true})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(items) != 2 {
		t.Errorf("Kind filter: expected 2 items, got %d", len(items))
	}

	// Archived excluded by default
	if _, _, err := s.Patch(ctx, ops.ID, models.PatchItemRequest{Archived: boolPtr(true)}); err != nil {
		t.Fatalf("Patch failed: %v", err)
	}
	items, err = s.List(ctx, models.ListItemsQuery{IncludeReviewed: true})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(items) != 2 {
		t.Errorf("Expected archived item excluded, got %d items", len(items))
	}
	items, err = s.List(ctx, models.ListItemsQuery{IncludeArchived: true, IncludeReviewed: true})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(items) != 3 {
		t.Errorf("include_archived: expected 3 items, got %d", len(items))
	}

	// Reviewed excluded on demand
	if _, _, err := s.Patch(ctx, bug.ID, models.PatchItemRequest{Reviewed: boolPtr(true)}); err != nil {
		t.Fatalf("Patch failed: %v", err)
	}
	items, err = s.List(ctx, models.ListItemsQuery{IncludeReviewed: false})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(items) != 1 || items[0].ID != note.ID {
		t.Errorf("Expected only the unreviewed unarchived note, got %+v", items)
	}
}

func TestListSearch(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	s.Create(ctx, "BUG_OR_DEV_TASK", "Login broken\nServer throws 500 on login", "telegram_text")
	s.Create(ctx, "OPERATIONS_TASK", "Follow up with ACME about the contract", "api")

	// Every term must match, across title and content lines
	items, err := s.List(ctx, models.ListItemsQuery{Search: "login 500", IncludeReviewed: true})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("Search 'login 500': expected 1 item, got %d", len(items))
	}

	// Case-insensitive, matches kind and source columns too
	items, err = s.List(ctx, models.ListItemsQuery{Search: "ACME operations", IncludeReviewed: true})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(items) != 1 {
		t.Errorf("Search 'ACME operations': expected 1 item, got %d", len(items))
	}

	// One failing term rules the item out
	items, err = s.List(ctx, models.ListItemsQuery{Search: "login nonexistent", IncludeReviewed: true})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(items) != 0 {
		t.Errorf("Search with failing term: expected 0 items, got %d", len(items))
	}
}

func TestListPagination(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if _, err := s.Create(ctx, "GENERIC_NOTE", "note", "api"); err != nil {
			t.Fatalf("Create failed: %v", err)
		}
	}

	items, err := s.List(ctx, models.ListItemsQuery{Limit: 2, IncludeReviewed: true})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(items) != 2 {
		t.Errorf("Limit 2: got %d items", len(items))
	}

	items, err = s.List(ctx, models.ListItemsQuery{Limit: 2, Offset: 4, IncludeReviewed: true})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(items) != 1 {
		t.Errorf("Offset past most items: expected 1, got %d", len(items))
	}

	items, err = s.List(ctx, models.ListItemsQuery{Offset: 99, IncludeReviewed: true})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(items) != 0 {
		t.Errorf("Offset past end: expected 0, got %d", len(items))
	}
}

func TestPatchSemantics(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	item, _ := s.Create(ctx, "GENERIC_NOTE", "original content", "api")

	// Unknown id
	_, found, err := s.Patch(ctx, "no-such-id", models.PatchItemRequest{Reviewed: boolPtr(true)})
	if err != nil {
		t.Fatalf("Patch failed: %v", err)
	}
	if found {
		t.Error("Patch of unknown id reported found")
	}

	// Partial update leaves other fields alone
	updated, found, err := s.Patch(ctx, item.ID, models.PatchItemRequest{
		Kind:     strPtr("bug_or_dev_task"),
		Reviewed: boolPtr(true),
	})
	if err != nil || !found {
		t.Fatalf("Patch failed: found=%v err=%v", found, err)
	}
	if updated.Kind != "BUG_OR_DEV_TASK" {
		t.Errorf("Kind not normalized: %q", updated.Kind)
	}
	if !updated.Reviewed {
		t.Error("Reviewed flag not applied")
	}
	if updated.Content != "original content" {
		t.Errorf("Content changed unexpectedly: %q", updated.Content)
	}

	// Blanking the title re-derives it from content
	updated, _, err = s.Patch(ctx, item.ID, models.PatchItemRequest{Title: strPtr("  ")})
	if err != nil {
		t.Fatalf("Patch failed: %v", err)
	}
	if updated.Title != "original content" {
		t.Errorf("Blank title should re-derive from content, got %q", updated.Title)
	}
}

func TestBulkUpdate(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	a, _ := s.Create(ctx, "GENERIC_NOTE", "a", "api")
	b, _ := s.Create(ctx, "GENERIC_NOTE", "b", "api")

	// Partial hit: one real id, one unknown
	updated, err := s.BulkUpdate(ctx, []string{a.ID, "no-such-id"}, "review")
	if err != nil {
		t.Fatalf("BulkUpdate failed: %v", err)
	}
	if updated != 1 {
		t.Errorf("Expected 1 updated, got %d", updated)
	}

	updated, err = s.BulkUpdate(ctx, []string{a.ID, b.ID}, "archive")
	if err != nil {
		t.Fatalf("BulkUpdate failed: %v", err)
	}
	if updated != 2 {
		t.Errorf("Expected 2 updated, got %d", updated)
	}

	// Unknown action touches nothing
	updated, err = s.BulkUpdate(ctx, []string{a.ID}, "explode")
	if err != nil {
		t.Fatalf("BulkUpdate failed: %v", err)
	}
	if updated != 0 {
		t.Errorf("Unknown action: expected 0 updated, got %d", updated)
	}
}

func TestDeriveTitleFallbacks(t *testing.T) {
	tests := []struct {
		kind     string
		content  string
		expected string
	}{
		{"GENERIC_NOTE", "plain note", "plain note"},
		{"GENERIC_NOTE", "diane call mom", "call mom"},
		{"GENERIC_NOTE", "Diane\nsecond line", "Diane"},
		{"OPERATIONS_TASK", "", "OPERATIONS_TASK: Untitled"},
		// Truncation must not split a multi-byte rune
		{"GENERIC_NOTE", strings.Repeat("ö", 95), strings.Repeat("ö", 90)},
	}
	for _, tt := range tests {
		got := DeriveTitle(tt.kind, tt.content)
		if got != tt.expected {
			t.Errorf("DeriveTitle(%q, %q) = %q, want %q", tt.kind, tt.content, got, tt.expected)
		}
		if !utf8.ValidString(got) {
			t.Errorf("DeriveTitle(%q, %q) produced invalid UTF-8: %q", tt.kind, tt.content, got)
		}
	}
}

func boolPtr(v bool) *bool    { return &v }
func strPtr(v string) *string { return &v }
