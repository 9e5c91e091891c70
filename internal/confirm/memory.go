package confirm

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
)

// MemoryStore holds pending notes in process memory with a TTL. Entries a
// user never acts on are evicted by the janitor and later button presses
// resolve through the normal expired path.
type MemoryStore struct {
	mu    sync.Mutex
	cache *cache.Cache
}

// NewMemoryStore creates an in-process pending-note store. ttl <= 0 means
// entries never expire (the original behavior).
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	expiration := ttl
	if ttl <= 0 {
		expiration = cache.NoExpiration
	}

	c := cache.New(expiration, 10*time.Minute)
	log.Printf("📦 [CONFIRM] In-process pending store ready (ttl: %v)", ttl)
	return &MemoryStore{cache: c}
}

// Put stores or overwrites a pending note. The note is copied so later
// caller mutations cannot reach into the store.
func (s *MemoryStore) Put(ctx context.Context, note *PendingNote) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *note
	s.cache.Set(note.ID, &copied, cache.DefaultExpiration)
	return nil
}

// Get returns the pending note for id, if any
func (s *MemoryStore) Get(ctx context.Context, id string) (*PendingNote, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lookup(id)
}

// Take removes and returns the pending note for id. Lookup and delete run
// under one lock so concurrent takes for the same id resolve exactly once.
func (s *MemoryStore) Take(ctx context.Context, id string) (*PendingNote, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	note, found, err := s.lookup(id)
	if found {
		s.cache.Delete(id)
	}
	return note, found, err
}

// Delete removes the pending note for id; missing ids are fine
func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache.Delete(id)
	return nil
}

// lookup returns a copy of the stored note, matching the Redis backend,
// which always decodes a fresh value. Handing out the stored pointer would
// let callers mutate registry state outside the mutex.
func (s *MemoryStore) lookup(id string) (*PendingNote, bool, error) {
	value, found := s.cache.Get(id)
	if !found {
		return nil, false, nil
	}
	note, ok := value.(*PendingNote)
	if !ok {
		return nil, false, nil
	}
	copied := *note
	return &copied, true, nil
}
