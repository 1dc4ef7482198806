package guard

import (
	"context"
	"sync"
	"time"
)

// Store records idempotency keys. Seen returns true when the key was
// already recorded within its TTL; a first sighting records the key and
// returns false. Best-effort duplicate suppression, not a transactional
// lock.
type Store interface {
	Seen(ctx context.Context, key string) (bool, error)
}

// MemoryStore is the default process-local store. Records are lost on
// restart, so a client retry after a restart can slip through.
type MemoryStore struct {
	mu   sync.Mutex
	ttl  time.Duration
	keys map[string]time.Time
	now  func() time.Time
}

// NewMemoryStore creates a store whose records expire after ttl.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		ttl:  ttl,
		keys: make(map[string]time.Time),
		now:  time.Now,
	}
}

// Seen implements Store. Expired records are pruned on access.
func (s *MemoryStore) Seen(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	cutoff := now.Add(-s.ttl)
	for k, insertedAt := range s.keys {
		if insertedAt.Before(cutoff) {
			delete(s.keys, k)
		}
	}

	if _, ok := s.keys[key]; ok {
		return true, nil
	}
	s.keys[key] = now
	return false, nil
}

// Reset clears all records. Test helper.
func (s *MemoryStore) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.keys = make(map[string]time.Time)
}
