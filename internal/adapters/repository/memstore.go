package repository

import (
	"context"
	"fmt"
	"sync"
)

const defaultMaxSize = 64

// node is an entry of the insertion-ordered list; head is the newest.
type node[V any] struct {
	key        string
	value      V
	prev, next *node[V]
}

// MemoryStore is a bounded in-memory Store evicting in insertion order.
type MemoryStore[V any] struct {
	mu      sync.RWMutex
	entries map[string]*node[V]
	head    *node[V]
	tail    *node[V]
	maxSize int
}

var _ Store[int] = (*MemoryStore[int])(nil)

// NewMemoryStore creates a store holding at most 64 entries unless
// WithMaxSize says otherwise.
func NewMemoryStore[V any](opts ...Option) *MemoryStore[V] {
	o := options{maxSize: defaultMaxSize}
	for _, opt := range opts {
		opt(&o)
	}
	return &MemoryStore[V]{
		entries: make(map[string]*node[V]),
		maxSize: o.maxSize,
	}
}

// Get returns the value stored under key.
func (s *MemoryStore[V]) Get(_ context.Context, key string) (V, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n, ok := s.entries[key]
	if !ok {
		var zero V
		return zero, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	return n.value, nil
}

// Put stores value under key. A replaced key counts as newly inserted.
func (s *MemoryStore[V]) Put(_ context.Context, key string, value V) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if n, ok := s.entries[key]; ok {
		s.unlink(n)
		delete(s.entries, key)
	}
	if s.maxSize > 0 && len(s.entries) >= s.maxSize {
		s.evictOldest()
	}

	n := &node[V]{key: key, value: value, next: s.head}
	if s.head != nil {
		s.head.prev = n
	}
	s.head = n
	if s.tail == nil {
		s.tail = n
	}
	s.entries[key] = n
}

// Delete removes key from the store.
func (s *MemoryStore[V]) Delete(_ context.Context, key string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if n, ok := s.entries[key]; ok {
		s.unlink(n)
		delete(s.entries, key)
	}
}

// Count returns the number of stored entries.
func (s *MemoryStore[V]) Count(_ context.Context) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// evictOldest drops the tail. Must be called with s.mu held.
func (s *MemoryStore[V]) evictOldest() {
	if s.tail == nil {
		return
	}
	oldest := s.tail
	s.unlink(oldest)
	delete(s.entries, oldest.key)
}

// unlink removes n from the list. Must be called with s.mu held.
func (s *MemoryStore[V]) unlink(n *node[V]) {
	if n.prev != nil {
		n.prev.next = n.next
	} else {
		s.head = n.next
	}
	if n.next != nil {
		n.next.prev = n.prev
	} else {
		s.tail = n.prev
	}
	n.prev, n.next = nil, nil
}
