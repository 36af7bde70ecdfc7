package testsupport

import (
	"context"
	"sync"
	"time"

	"github.com/goliatone/go-cache-proxy/cache"
)

// FaultyBackend wraps a cache.Backend and fails selected operations.
// A nil Backend field falls back to an in-memory backend on first use.
type FaultyBackend struct {
	Backend cache.Backend

	mu     sync.Mutex
	getErr error
	setErr error
	hasErr error
	// forceHas reports true from Has regardless of the wrapped backend.
	forceHas bool
}

// FailGet makes Get return err. A nil err clears the fault.
func (f *FaultyBackend) FailGet(err error) { f.mu.Lock(); f.getErr = err; f.mu.Unlock() }

// FailSet makes Set return err. A nil err clears the fault.
func (f *FaultyBackend) FailSet(err error) { f.mu.Lock(); f.setErr = err; f.mu.Unlock() }

// FailHas makes Has return err. A nil err clears the fault.
func (f *FaultyBackend) FailHas(err error) { f.mu.Lock(); f.hasErr = err; f.mu.Unlock() }

// ForceHas makes Has report every key as present.
func (f *FaultyBackend) ForceHas(v bool) { f.mu.Lock(); f.forceHas = v; f.mu.Unlock() }

func (f *FaultyBackend) inner() cache.Backend {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Backend == nil {
		f.Backend = cache.NewMemoryBackend()
	}
	return f.Backend
}

func (f *FaultyBackend) Get(ctx context.Context, key string) (any, bool, error) {
	f.mu.Lock()
	err := f.getErr
	f.mu.Unlock()
	if err != nil {
		return nil, false, err
	}
	return f.inner().Get(ctx, key)
}

func (f *FaultyBackend) Set(ctx context.Context, key string, value any) error {
	f.mu.Lock()
	err := f.setErr
	f.mu.Unlock()
	if err != nil {
		return err
	}
	return f.inner().Set(ctx, key, value)
}

func (f *FaultyBackend) Has(ctx context.Context, key string) (bool, error) {
	f.mu.Lock()
	err, force := f.hasErr, f.forceHas
	f.mu.Unlock()
	if err != nil {
		return false, err
	}
	if force {
		return true, nil
	}
	return f.inner().Has(ctx, key)
}

func (f *FaultyBackend) SetLifetime(ttl time.Duration) { f.inner().SetLifetime(ttl) }

func (f *FaultyBackend) Lifetime() time.Duration { return f.inner().Lifetime() }
