package store

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"diane/internal/models"
)

// CollectionItems is the MongoDB collection name for confirmed notes
const CollectionItems = "items"

// MongoStore persists items in MongoDB for hosted deployments
type MongoStore struct {
	client *mongo.Client
	coll   *mongo.Collection
}

// NewMongoStore connects to MongoDB with connection pooling
func NewMongoStore(uri, dbName string) (*MongoStore, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	clientOptions := options.Client().
		ApplyURI(uri).
		SetMaxPoolSize(20).
		SetMaxConnIdleTime(30 * time.Second).
		SetServerSelectionTimeout(5 * time.Second).
		SetConnectTimeout(10 * time.Second)

	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	log.Printf("✅ [STORE] MongoDB connected (db: %s)", dbName)
	return &MongoStore{
		client: client,
		coll:   client.Database(dbName).Collection(CollectionItems),
	}, nil
}

// Create persists a new item
func (s *MongoStore) Create(ctx context.Context, kind, content, source string) (*models.Item, error) {
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

	if _, err := s.coll.InsertOne(ctx, item); err != nil {
		return nil, fmt.Errorf("failed to insert item: %w", err)
	}
	return item, nil
}

// List returns items most recent first. Flag and kind filters are pushed
// into the Mongo query; the multi-column substring search stays in Go,
// matching the SQLite backend exactly.
func (s *MongoStore) List(ctx context.Context, q models.ListItemsQuery) ([]models.Item, error) {
	filter := bson.M{}
	if !q.IncludeArchived {
		filter["archived"] = false
	}
	if !q.IncludeReviewed {
		filter["reviewed"] = false
	}
	if len(q.Kinds) > 0 {
		kinds := make([]string, len(q.Kinds))
		for i, k := range q.Kinds {
			kinds[i] = strings.ToUpper(strings.TrimSpace(k))
		}
		filter["kind"] = bson.M{"$in": kinds}
	}

	cursor, err := s.coll.Find(ctx, filter, options.Find().SetSort(bson.M{"createdAt": -1}))
	if err != nil {
		return nil, fmt.Errorf("failed to query items: %w", err)
	}
	defer cursor.Close(ctx)

	items := []models.Item{}
	for cursor.Next(ctx) {
		var it models.Item
		if err := cursor.Decode(&it); err != nil {
			return nil, fmt.Errorf("failed to decode item: %w", err)
		}
		if matchesSearch(it, q.Search) {
			items = append(items, it)
		}
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("failed to read items: %w", err)
	}

	return paginate(items, q.Offset, q.Limit), nil
}

// Patch applies a partial update and returns the updated item
func (s *MongoStore) Patch(ctx context.Context, id string, patch models.PatchItemRequest) (*models.Item, bool, error) {
	var it models.Item
	err := s.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&it)
	if err == mongo.ErrNoDocuments {
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

	_, err = s.coll.ReplaceOne(ctx, bson.M{"_id": id}, it)
	if err != nil {
		return nil, false, fmt.Errorf("failed to update item: %w", err)
	}
	return &it, true, nil
}

// BulkUpdate marks every existing id reviewed or archived
func (s *MongoStore) BulkUpdate(ctx context.Context, ids []string, action string) (int, error) {
	var field string
	switch strings.ToLower(strings.TrimSpace(action)) {
	case "review":
		field = "reviewed"
	case "archive":
		field = "archived"
	default:
		return 0, nil
	}
	if len(ids) == 0 {
		return 0, nil
	}

	res, err := s.coll.UpdateMany(ctx,
		bson.M{"_id": bson.M{"$in": ids}},
		bson.M{"$set": bson.M{field: true}})
	if err != nil {
		return 0, fmt.Errorf("failed to bulk update items: %w", err)
	}
	return int(res.MatchedCount), nil
}

// Close disconnects from MongoDB
func (s *MongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}
