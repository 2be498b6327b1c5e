package seen

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is a process-local Store. With a zero TTL it grows for the
// life of the process; with a positive TTL ids older than the TTL are
// forgotten.
type MemoryStore struct {
	mu        sync.Mutex
	ttl       time.Duration
	now       func() time.Time
	items     map[string]time.Time // battle id -> first seen
	lastSweep time.Time
}

// MemoryOption configures a MemoryStore.
type MemoryOption func(*MemoryStore)

// WithTTL forgets ids after d. Zero keeps them forever.
func WithTTL(d time.Duration) MemoryOption {
	return func(s *MemoryStore) { s.ttl = d }
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) MemoryOption {
	return func(s *MemoryStore) { s.now = now }
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore(opts ...MemoryOption) *MemoryStore {
	s := &MemoryStore{
		now:   time.Now,
		items: make(map[string]time.Time),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.lastSweep = s.now()
	return s
}

// MarkSeen implements Store. It never returns an error.
func (s *MemoryStore) MarkSeen(_ context.Context, battleID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.sweepLocked(now)

	if first, ok := s.items[battleID]; ok && !s.expired(first, now) {
		return false, nil
	}
	s.items[battleID] = now
	return true, nil
}

// Len returns the number of retained ids.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

func (s *MemoryStore) expired(first, now time.Time) bool {
	return s.ttl > 0 && now.Sub(first) >= s.ttl
}

// sweepLocked drops expired ids at most once per TTL period.
func (s *MemoryStore) sweepLocked(now time.Time) {
	if s.ttl <= 0 || now.Sub(s.lastSweep) < s.ttl {
		return
	}
	for id, first := range s.items {
		if s.expired(first, now) {
			delete(s.items, id)
		}
	}
	s.lastSweep = now
}
