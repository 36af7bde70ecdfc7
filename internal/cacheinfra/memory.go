package cacheinfra

import (
	"context"
	"sync"
	"time"
)

// MemoryBackend keeps entries in a plain map for the lifetime of the process.
// The lifetime is recorded but never enforced; entries stay until the backend
// is dropped.
type MemoryBackend struct {
	mu    sync.RWMutex
	items map[string]any
	ttl   time.Duration
}

// NewMemoryBackend creates an empty MemoryBackend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{items: make(map[string]any)}
}

func (b *MemoryBackend) Get(_ context.Context, key string) (any, bool, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	value, ok := b.items[key]
	return value, ok, nil
}

func (b *MemoryBackend) Set(_ context.Context, key string, value any) error {
	b.mu.Lock()
	b.items[key] = value
	b.mu.Unlock()
	return nil
}

func (b *MemoryBackend) Has(_ context.Context, key string) (bool, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	_, ok := b.items[key]
	return ok, nil
}

func (b *MemoryBackend) SetLifetime(ttl time.Duration) {
	b.mu.Lock()
	b.ttl = ttl
	b.mu.Unlock()
}

func (b *MemoryBackend) Lifetime() time.Duration {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.ttl
}

// Len returns the number of stored entries.
func (b *MemoryBackend) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.items)
}
