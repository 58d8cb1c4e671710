// Package lock provides keyed mutual exclusion for check-then-write
// sequences. Keys name the contended resource, e.g. "room:<id>".
package lock

import (
	"context"
	"errors"
	"sync"
)

// ErrEmptyKey is returned when Lock is called without a key.
var ErrEmptyKey = errors.New("lock: key must not be empty")

// Locker acquires an exclusive lock on key. The returned unlock function must
// be called exactly once; calling it again is a no-op.
type Locker interface {
	Lock(ctx context.Context, key string) (unlock func(), err error)
}

// RoomKey returns the lock key guarding a room's bookings.
func RoomKey(roomID string) string {
	return "room:" + roomID
}

// RequestKey returns the lock key serializing retries of one client request.
func RequestKey(idempotencyKey string) string {
	return "request:" + idempotencyKey
}

// KeyedMutex is an in-process Locker. Each key gets its own one-slot
// semaphore that is dropped once no caller holds or waits for it.
type KeyedMutex struct {
	mu    sync.Mutex
	slots map[string]*slot
}

type slot struct {
	ch   chan struct{}
	refs int
}

var _ Locker = (*KeyedMutex)(nil)

// NewKeyedMutex returns an empty KeyedMutex.
func NewKeyedMutex() *KeyedMutex {
	return &KeyedMutex{slots: make(map[string]*slot)}
}

// Lock blocks until key is free or ctx is done.
func (m *KeyedMutex) Lock(ctx context.Context, key string) (func(), error) {
	if key == "" {
		return nil, ErrEmptyKey
	}

	s := m.acquireSlot(key)
	select {
	case s.ch <- struct{}{}:
	case <-ctx.Done():
		m.releaseSlot(key, s)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-s.ch
			m.releaseSlot(key, s)
		})
	}, nil
}

func (m *KeyedMutex) acquireSlot(key string) *slot {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.slots[key]
	if !ok {
		s = &slot{ch: make(chan struct{}, 1)}
		m.slots[key] = s
	}
	s.refs++
	return s
}

func (m *KeyedMutex) releaseSlot(key string, s *slot) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s.refs--
	if s.refs == 0 {
		delete(m.slots, key)
	}
}

// held reports the number of keys currently tracked. Used by tests.
func (m *KeyedMutex) held() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.slots)
}
