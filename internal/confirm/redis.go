package confirm

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "diane:pending:"

// RedisStore holds pending notes in Redis so multiple instances can share
// one registry. GETDEL gives the same atomic take-and-delete guarantee the
// in-process store gets from its mutex.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore connects to Redis using a redis:// URL
func NewRedisStore(url string, ttl time.Duration) (*RedisStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid Redis URL: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to ping Redis: %w", err)
	}

	log.Printf("✅ [CONFIRM] Redis pending store connected (ttl: %v)", ttl)
	return &RedisStore{client: client, ttl: ttl}, nil
}

// Put stores or overwrites a pending note
func (s *RedisStore) Put(ctx context.Context, note *PendingNote) error {
	data, err := json.Marshal(note)
	if err != nil {
		return fmt.Errorf("failed to encode pending note: %w", err)
	}
	if err := s.client.Set(ctx, redisKeyPrefix+note.ID, data, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to store pending note: %w", err)
	}
	return nil
}

// Get returns the pending note for id, if any
func (s *RedisStore) Get(ctx context.Context, id string) (*PendingNote, bool, error) {
	data, err := s.client.Get(ctx, redisKeyPrefix+id).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to load pending note: %w", err)
	}
	return decodeNote(data)
}

// Take atomically removes and returns the pending note for id
func (s *RedisStore) Take(ctx context.Context, id string) (*PendingNote, bool, error) {
	data, err := s.client.GetDel(ctx, redisKeyPrefix+id).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to take pending note: %w", err)
	}
	return decodeNote(data)
}

// Delete removes the pending note for id; missing ids are fine
func (s *RedisStore) Delete(ctx context.Context, id string) error {
	if err := s.client.Del(ctx, redisKeyPrefix+id).Err(); err != nil {
		return fmt.Errorf("failed to delete pending note: %w", err)
	}
	return nil
}

func decodeNote(data []byte) (*PendingNote, bool, error) {
	var note PendingNote
	if err := json.Unmarshal(data, &note); err != nil {
		return nil, false, fmt.Errorf("failed to decode pending note: %w", err)
	}
	return &note, true, nil
}
