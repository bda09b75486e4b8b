// Package ttlstore provides a small thread-safe in-memory key-value store
// whose entries expire after a fixed time-to-live. Expired entries are never
// returned by Get and are physically removed by Sweep, which the owner calls
// periodically.
package ttlstore

import (
	"sync"
	"time"
)

type entry[V any] struct {
	value     V
	expiresAt time.Time
}

// Store holds values of type V keyed by string.
type Store[V any] struct {
	mu      sync.RWMutex
	ttl     time.Duration
	entries map[string]entry[V]
	now     func() time.Time
}

// New returns an empty Store whose entries live for ttl.
func New[V any](ttl time.Duration) *Store[V] {
	return &Store[V]{
		ttl:     ttl,
		entries: make(map[string]entry[V]),
		now:     time.Now,
	}
}

// WithClock replaces the time source. Intended for tests.
func (s *Store[V]) WithClock(now func() time.Time) *Store[V] {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
	return s
}

// Put stores v under key, replacing any previous value and restarting its TTL.
func (s *Store[V]) Put(key string, v V) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = entry[V]{value: v, expiresAt: s.now().Add(s.ttl)}
}

// Get returns the live value for key.
func (s *Store[V]) Get(key string) (V, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[key]
	if !ok || !s.now().Before(e.expiresAt) {
		var zero V
		return zero, false
	}
	return e.value, true
}

// Delete removes key if present.
func (s *Store[V]) Delete(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
}

// Sweep removes entries that expired at or before now and returns how many
// were dropped.
func (s *Store[V]) Sweep(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for k, e := range s.entries {
		if !now.Before(e.expiresAt) {
			delete(s.entries, k)
			removed++
		}
	}
	return removed
}

// Len returns the number of stored entries, including expired entries that
// have not been swept yet.
func (s *Store[V]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}
