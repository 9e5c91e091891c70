package store

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"diane/internal/models"
)

// SQLiteStore persists items in a local SQLite database
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (and initializes) the items database at path.
// Use ":memory:" for an ephemeral store.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite allows one writer; keep the pool small
	db.SetMaxOpenConns(1)
	db.SetConnMaxIdleTime(1 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.initialize(); err != nil {
		return nil, err
	}

	log.Printf("✅ [STORE] SQLite database ready (%s)", path)
	return s, nil
}

func (s *SQLiteStore) initialize() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS items (
			id         TEXT PRIMARY KEY,
			kind       TEXT NOT NULL,
			title      TEXT NOT NULL,
			content    TEXT NOT NULL,
			source     TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL,
			reviewed   INTEGER NOT NULL DEFAULT 0,
			archived   INTEGER NOT NULL DEFAULT 0
		);
		CREATE INDEX IF NOT EXISTS idx_items_created_at ON items(created_at);
		CREATE INDEX IF NOT EXISTS idx_items_kind ON items(kind);
	`)
	if err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}
	return nil
}

// Create persists a new item
func (s *SQLiteStore) Create(ctx context.Context, kind, content, source string) (*models.Item, error) {
	kind = normalizeKind(kind)
	content = strings.TrimSpace(content)
	if source == "" {
		source = string(models.SourceAPI)
	}

	item := &models.Item{
		ID:        uuid.NewString(),
		Kind:      kind,
		Title:     DeriveTitle(kind, content),
		Content:   content,
		Source:    source,
		CreatedAt: time.Now().UTC(),
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO items (id, kind, title, content, source, created_at, reviewed, archived)
		VALUES (?, ?, ?, ?, ?, ?, 0, 0)
	`, item.ID, item.Kind, item.Title, item.Content, item.Source, item.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to insert item: %w", err)
	}

	return item, nil
}

// List returns items most recent first. Archived/reviewed/kind filters run
// in SQL; the per-term substring search runs in Go because it matches
// against the concatenation of several columns.
func (s *SQLiteStore) List(ctx context.Context, q models.ListItemsQuery) ([]models.Item, error) {
	var (
		where []string
		args  []interface{}
	)
	if !q.IncludeArchived {
		where = append(where, "archived = 0")
	}
	if !q.IncludeReviewed {
		where = append(where, "reviewed = 0")
	}
	if len(q.Kinds) > 0 {
		placeholders := strings.TrimSuffix(strings.Repeat("?,", len(q.Kinds)), ",")
		where = append(where, "kind IN ("+placeholders+")")
		for _, k := range q.Kinds {
			args = append(args, strings.ToUpper(strings.TrimSpace(k)))
		}
	}

	query := "SELECT id, kind, title, content, source, created_at, reviewed, archived FROM items"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at DESC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query items: %w", err)
	}
	defer rows.Close()

	items := []models.Item{}
	for rows.Next() {
		var it models.Item
		if err := rows.Scan(&it.ID, &it.Kind, &it.Title, &it.Content, &it.Source, &it.CreatedAt, &it.Reviewed, &it.Archived); err != nil {
			return nil, fmt.Errorf("failed to scan item: %w", err)
		}
		if matchesSearch(it, q.Search) {
			items = append(items, it)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read items: %w", err)
	}

	return paginate(items, q.Offset, q.Limit), nil
}

// Patch applies a partial update and returns the updated item
func (s *SQLiteStore) Patch(ctx context.Context, id string, patch models.PatchItemRequest) (*models.Item, bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var it models.Item
	err = tx.QueryRowContext(ctx, `
		SELECT id, kind, title, content, source, created_at, reviewed, archived
		FROM items WHERE id = ?
	`, id).Scan(&it.ID, &it.Kind, &it.Title, &it.Content, &it.Source, &it.CreatedAt, &it.Reviewed, &it.Archived)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to load item: %w", err)
	}

	if patch.Reviewed != nil {
		it.Reviewed = *patch.Reviewed
	}
	if patch.Archived != nil {
		it.Archived = *patch.Archived
	}
	if patch.Kind != nil {
		it.Kind = normalizeKind(*patch.Kind)
	}
	if patch.Title != nil {
		it.Title = *patch.Title
	}
	if patch.Content != nil {
		it.Content = *patch.Content
	}
	if strings.TrimSpace(it.Title) == "" {
		it.Title = DeriveTitle(it.Kind, it.Content)
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE items SET kind = ?, title = ?, content = ?, reviewed = ?, archived = ? WHERE id = ?
	`, it.Kind, it.Title, it.Content, it.Reviewed, it.Archived, it.ID)
	if err != nil {
		return nil, false, fmt.Errorf("failed to update item: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, false, fmt.Errorf("failed to commit update: %w", err)
	}
	return &it, true, nil
}

// BulkUpdate marks every existing id reviewed or archived
func (s *SQLiteStore) BulkUpdate(ctx context.Context, ids []string, action string) (int, error) {
	var column string
	switch strings.ToLower(strings.TrimSpace(action)) {
	case "review":
		column = "reviewed"
	case "archive":
		column = "archived"
	default:
		return 0, nil
	}
	if len(ids) == 0 {
		return 0, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	res, err := s.db.ExecContext(ctx,
		"UPDATE items SET "+column+" = 1 WHERE id IN ("+placeholders+")", args...)
	if err != nil {
		return 0, fmt.Errorf("failed to bulk update items: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count affected rows: %w", err)
	}
	return int(affected), nil
}

// Close closes the underlying database
func (s *SQLiteStore) Close(ctx context.Context) error {
	return s.db.Close()
}

// paginate slices items by offset/limit with original API defaults
func paginate(items []models.Item, offset, limit int) []models.Item {
	if limit <= 0 {
		limit = 200
	}
	if offset < 0 {
		offset = 0
	}
	if offset >= len(items) {
		return []models.Item{}
	}
	end := offset + limit
	if end > len(items) {
		end = len(items)
	}
	return items[offset:end]
}
