package cacheinfra

import (
	"context"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// LRUBackend is a bounded in-process store that honors the lifetime.
type LRUBackend struct {
	mu       sync.RWMutex
	capacity int
	ttl      time.Duration
	cache    *expirable.LRU[string, any]
}

// NewLRUBackend creates an LRU backend holding at most capacity entries.
// A capacity of 0 means unbounded, a ttl of 0 means entries never expire.
func NewLRUBackend(capacity int, ttl time.Duration) *LRUBackend {
	return &LRUBackend{
		capacity: capacity,
		ttl:      ttl,
		cache:    expirable.NewLRU[string, any](capacity, nil, ttl),
	}
}

func (b *LRUBackend) Get(_ context.Context, key string) (any, bool, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	value, ok := b.cache.Get(key)
	return value, ok, nil
}

func (b *LRUBackend) Set(_ context.Context, key string, value any) error {
	b.mu.RLock()
	b.cache.Add(key, value)
	b.mu.RUnlock()
	return nil
}

func (b *LRUBackend) Has(_ context.Context, key string) (bool, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	// Contains reports stale entries until they are swept; Peek does not.
	_, ok := b.cache.Peek(key)
	return ok, nil
}

// SetLifetime rebuilds the underlying LRU with the new ttl. Live entries are
// carried over, oldest first, and get a fresh lifetime.
func (b *LRUBackend) SetLifetime(ttl time.Duration) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if ttl == b.ttl {
		return
	}

	next := expirable.NewLRU[string, any](b.capacity, nil, ttl)
	for _, key := range b.cache.Keys() {
		if value, ok := b.cache.Peek(key); ok {
			next.Add(key, value)
		}
	}

	b.cache = next
	b.ttl = ttl
}

func (b *LRUBackend) Lifetime() time.Duration {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.ttl
}

// Len returns the number of live entries.
func (b *LRUBackend) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.cache.Len()
}
