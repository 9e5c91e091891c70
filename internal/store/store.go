package store

import (
	"context"
	"strings"

	"diane/internal/models"
)

// ItemStore is the durable CRUD contract for confirmed notes. Backends:
// SQLite (default, local single-file) and MongoDB (hosted deployments).
type ItemStore interface {
	// Create persists a new item. kind is upper-cased and content trimmed;
	// the title is derived from the content's first line.
	Create(ctx context.Context, kind, content, source string) (*models.Item, error)

	// List returns items matching the query, most recent first
	List(ctx context.Context, q models.ListItemsQuery) ([]models.Item, error)

	// Patch applies a partial update. found is false when the id is unknown.
	Patch(ctx context.Context, id string, patch models.PatchItemRequest) (item *models.Item, found bool, err error)

	// BulkUpdate applies "review" or "archive" to every id that exists and
	// returns the number of items affected. Unknown actions affect nothing.
	BulkUpdate(ctx context.Context, ids []string, action string) (int, error)

	Close(ctx context.Context) error
}

// DeriveTitle builds an item title from the first line of its content,
// dropping the "diane" wake word. Falls back to "<KIND>: Untitled" so a
// title is never blank.
func DeriveTitle(kind, content string) string {
	first := strings.TrimSpace(content)
	if idx := strings.IndexByte(first, '\n'); idx >= 0 {
		first = strings.TrimSpace(first[:idx])
	}
	if runes := []rune(first); len(runes) > 90 {
		first = string(runes[:90])
	}
	if strings.HasPrefix(strings.ToLower(first), "diane ") {
		first = strings.TrimSpace(first[6:])
	}
	if first == "" {
		return kind + ": Untitled"
	}
	return first
}

// matchesSearch implements the free-text search contract: every
// whitespace-separated term must be a case-insensitive substring of the
// concatenated title, content, kind and source.
func matchesSearch(item models.Item, search string) bool {
	q := strings.ToLower(strings.TrimSpace(search))
	if q == "" {
		return true
	}
	hay := strings.ToLower(item.Title + "\n" + item.Content + "\n" + item.Kind + "\n" + item.Source)
	for _, term := range strings.Fields(q) {
		if !strings.Contains(hay, term) {
			return false
		}
	}
	return true
}

// normalizeKind trims, upper-cases and defaults an item kind. The item
// store accepts any upper-cased kind string (the API allows free-form
// kinds); the closed-enum coercion happens in the classifier.
func normalizeKind(kind string) string {
	k := strings.ToUpper(strings.TrimSpace(kind))
	if k == "" {
		return string(models.KindGenericNote)
	}
	return k
}
