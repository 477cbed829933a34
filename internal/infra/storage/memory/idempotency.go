package memory

import (
	"context"
	"sync"
	"time"

	"hotelres/internal/app/middleware"
)

// IdempotencyStore keeps command results in memory. Records older than TTL are
// treated as missing; a zero TTL keeps them forever.
type IdempotencyStore struct {
	mu    sync.RWMutex
	items map[string]middleware.IdempotencyRecord
	ttl   time.Duration
}

func NewIdempotencyStore(ttl time.Duration) *IdempotencyStore {
	return &IdempotencyStore{items: make(map[string]middleware.IdempotencyRecord), ttl: ttl}
}

func (s *IdempotencyStore) Get(ctx context.Context, key string) (middleware.IdempotencyRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.items[key]
	if ok && s.ttl > 0 && time.Since(rec.OccurredAt) > s.ttl {
		return middleware.IdempotencyRecord{}, false, nil
	}
	return rec, ok, nil
}

func (s *IdempotencyStore) Save(ctx context.Context, rec middleware.IdempotencyRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[rec.Key] = rec
	return nil
}

var _ middleware.IdempotencyStore = (*IdempotencyStore)(nil)
