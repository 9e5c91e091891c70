package models

import "time"

// Item is a confirmed, persisted note
type Item struct {
	ID        string    `json:"id" bson:"_id"`
	Kind      string    `json:"kind" bson:"kind"`
	Title     string    `json:"title" bson:"title"`
	Content   string    `json:"content" bson:"content"`
	Source    string    `json:"source" bson:"source"`
	CreatedAt time.Time `json:"created_at" bson:"createdAt"`
	Reviewed  bool      `json:"reviewed" bson:"reviewed"`
	Archived  bool      `json:"archived" bson:"archived"`
}

// CreateItemRequest is the request body for POST /api/items
type CreateItemRequest struct {
	Kind    string `json:"kind"`
	Content string `json:"content"`
	Source  string `json:"source"`
}

// PatchItemRequest is the request body for PATCH /api/items/:id.
// Pointers distinguish "absent" from zero values; unknown JSON keys are
// ignored by the decoder.
type PatchItemRequest struct {
	Reviewed *bool   `json:"reviewed,omitempty"`
	Archived *bool   `json:"archived,omitempty"`
	Title    *string `json:"title,omitempty"`
	Content  *string `json:"content,omitempty"`
	Kind     *string `json:"kind,omitempty"`
}

// BulkUpdateRequest is the request body for POST /api/items/bulk
type BulkUpdateRequest struct {
	IDs    []string `json:"ids"`
	Action string   `json:"action"` // "review" or "archive"
}

// ListItemsQuery carries the parsed filters for GET /api/items
type ListItemsQuery struct {
	Search          string
	Kinds           []string
	IncludeArchived bool
	IncludeReviewed bool
	Limit           int
	Offset          int
}

// ListItemsResponse is the response for GET /api/items
type ListItemsResponse struct {
	Items []Item `json:"items"`
}
