// Package history keeps recent evaluations in memory for later retrieval.
package history

import (
	"fmt"
	"sync"
	"time"

	"github.com/newthinker/theta/internal/core"
)

// Store is a bounded, insertion-ordered map of entries keyed by ID.
// The oldest entry is evicted when the store is full; entries older than
// the TTL are invisible to readers and dropped on the next write.
type Store[T any] struct {
	entries map[string]entry[T]
	order   []string // oldest first
	maxSize int
	ttl     time.Duration
	now     func() time.Time
	mu      sync.RWMutex
}

type entry[T any] struct {
	value   T
	addedAt time.Time
}

// NewStore creates a store holding at most maxSize entries. A zero ttl
// keeps entries until they are evicted.
func NewStore[T any](maxSize int, ttl time.Duration) *Store[T] {
	if maxSize < 1 {
		maxSize = 1
	}
	return &Store[T]{
		entries: make(map[string]entry[T]),
		order:   make([]string, 0, maxSize),
		maxSize: maxSize,
		ttl:     ttl,
		now:     time.Now,
	}
}

// Put stores value under id, replacing any previous value.
func (s *Store[T]) Put(id string, value T) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.expire(now)

	if _, ok := s.entries[id]; ok {
		s.remove(id)
	}
	// Evict oldest if at capacity
	for len(s.order) >= s.maxSize {
		delete(s.entries, s.order[0])
		s.order = s.order[1:]
	}

	s.entries[id] = entry[T]{value: value, addedAt: now}
	s.order = append(s.order, id)
}

// Get retrieves the value stored under id.
func (s *Store[T]) Get(id string) (T, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entries[id]
	if !ok || s.expired(e, s.now()) {
		var zero T
		return zero, core.WrapError(core.ErrNotFound, fmt.Errorf("no entry with id %q", id))
	}
	return e.value, nil
}

// List returns live values, newest first.
func (s *Store[T]) List() []T {
	s.mu.RLock()
	defer s.mu.RUnlock()

	now := s.now()
	result := make([]T, 0, len(s.order))
	for i := len(s.order) - 1; i >= 0; i-- {
		e := s.entries[s.order[i]]
		if s.expired(e, now) {
			continue
		}
		result = append(result, e.value)
	}
	return result
}

// Len returns the number of stored entries, including expired ones not yet dropped.
func (s *Store[T]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order)
}

func (s *Store[T]) expired(e entry[T], now time.Time) bool {
	return s.ttl > 0 && now.Sub(e.addedAt) > s.ttl
}

// expire drops expired entries. Entries are ordered by age so it stops at
// the first live one.
func (s *Store[T]) expire(now time.Time) {
	for len(s.order) > 0 {
		e := s.entries[s.order[0]]
		if !s.expired(e, now) {
			return
		}
		delete(s.entries, s.order[0])
		s.order = s.order[1:]
	}
}

func (s *Store[T]) remove(id string) {
	delete(s.entries, id)
	for i, o := range s.order {
		if o == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			return
		}
	}
}
