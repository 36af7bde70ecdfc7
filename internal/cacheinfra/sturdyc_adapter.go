package cacheinfra

import (
	"context"
	"sync"
	"time"

	"github.com/viccon/sturdyc"
)

// SturdycBackend wraps a sturdyc client providing sharded, expiring storage.
type SturdycBackend struct {
	mu     sync.RWMutex
	cfg    Config
	client *sturdyc.Client[any]
}

// NewSturdycBackend creates a new sturdyc cache backend.
// It validates the configuration and initializes a sturdyc client with the provided settings.
//
// Capacity, NumShards, TTL and EvictionPercentage are passed to sturdyc.New(),
// EvictionInterval is applied as an option when set.
func NewSturdycBackend(cfg Config) (*SturdycBackend, error) {
	cfg.Driver = DriverSturdyc
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &SturdycBackend{
		cfg:    cfg,
		client: newSturdycClient(cfg),
	}, nil
}

func newSturdycClient(cfg Config) *sturdyc.Client[any] {
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = noExpiry
	}

	var options []sturdyc.Option
	if cfg.EvictionInterval > 0 {
		options = append(options, sturdyc.WithEvictionInterval(cfg.EvictionInterval))
	}

	return sturdyc.New[any](
		cfg.Capacity,
		cfg.NumShards,
		ttl,
		cfg.EvictionPercentage,
		options...,
	)
}

func (b *SturdycBackend) Get(_ context.Context, key string) (any, bool, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	value, ok := b.client.Get(key)
	return value, ok, nil
}

func (b *SturdycBackend) Set(_ context.Context, key string, value any) error {
	b.mu.RLock()
	b.client.Set(key, value)
	b.mu.RUnlock()
	return nil
}

func (b *SturdycBackend) Has(_ context.Context, key string) (bool, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	_, ok := b.client.Get(key)
	return ok, nil
}

// SetLifetime replaces the client, since sturdyc fixes the ttl at construction.
// Live entries are copied into the new client.
func (b *SturdycBackend) SetLifetime(ttl time.Duration) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if ttl == b.cfg.TTL {
		return
	}

	cfg := b.cfg
	cfg.TTL = ttl
	next := newSturdycClient(cfg)

	for _, key := range b.client.ScanKeys() {
		if value, ok := b.client.Get(key); ok {
			next.Set(key, value)
		}
	}

	b.client = next
	b.cfg = cfg
}

func (b *SturdycBackend) Lifetime() time.Duration {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.cfg.TTL
}

// Delete removes a single entry.
func (b *SturdycBackend) Delete(_ context.Context, key string) error {
	b.mu.RLock()
	b.client.Delete(key)
	b.mu.RUnlock()
	return nil
}

// Len returns the number of entries held by the client.
func (b *SturdycBackend) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.client.Size()
}
