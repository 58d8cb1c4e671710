// Package idempotency remembers which reservation a client request key
// produced so a retried POST replays the first result.
package idempotency

import (
	"context"
	"sync"
	"time"
)

// Store maps request keys to result identifiers for a limited time.
type Store interface {
	// Lookup returns the remembered value for key, if any.
	Lookup(ctx context.Context, key string) (value string, ok bool, err error)
	// Remember stores value under key unless the key already exists.
	Remember(ctx context.Context, key, value string) error
}

// Key scopes a client supplied key to the principal that sent it.
func Key(principalID, requestKey string) string {
	return principalID + "|" + requestKey
}

// MemoryStore is an in-process Store with TTL expiry and a size bound.
type MemoryStore struct {
	mu         sync.Mutex
	now        func() time.Time
	ttl        time.Duration
	maxEntries int
	entries    map[string]entry
}

type entry struct {
	value     string
	expiresAt time.Time
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore returns a MemoryStore. Non-positive ttl and maxEntries fall
// back to 24h and 10000.
func NewMemoryStore(ttl time.Duration, maxEntries int, now func() time.Time) *MemoryStore {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	if maxEntries <= 0 {
		maxEntries = 10000
	}
	if now == nil {
		now = time.Now
	}
	return &MemoryStore{
		now:        now,
		ttl:        ttl,
		maxEntries: maxEntries,
		entries:    make(map[string]entry),
	}
}

// Lookup implements Store.
func (s *MemoryStore) Lookup(_ context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok {
		return "", false, nil
	}
	if !s.now().Before(e.expiresAt) {
		delete(s.entries, key)
		return "", false, nil
	}
	return e.value, true, nil
}

// Remember implements Store.
func (s *MemoryStore) Remember(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if e, ok := s.entries[key]; ok && now.Before(e.expiresAt) {
		return nil
	}

	s.cleanupLocked(now)
	if len(s.entries) >= s.maxEntries {
		s.evictOldestLocked()
	}
	s.entries[key] = entry{value: value, expiresAt: now.Add(s.ttl)}
	return nil
}

func (s *MemoryStore) cleanupLocked(now time.Time) {
	for key, e := range s.entries {
		if !now.Before(e.expiresAt) {
			delete(s.entries, key)
		}
	}
}

func (s *MemoryStore) evictOldestLocked() {
	var (
		oldestKey string
		oldest    time.Time
	)
	for key, e := range s.entries {
		if oldestKey == "" || e.expiresAt.Before(oldest) {
			oldestKey, oldest = key, e.expiresAt
		}
	}
	delete(s.entries, oldestKey)
}
