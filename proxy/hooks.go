package proxy

import (
	"context"
	"sort"
	"sync"
	"time"
)

// Hook defines a proxy event hook with optional priority and condition
type Hook struct {
	// Priority determines execution order (higher values execute first)
	Priority int

	// Condition optionally filters hook execution by operation.
	// If nil, hook always executes
	Condition func(ctx context.Context, op string) bool

	// Set exactly one of: OnHit, OnMiss, OnStore, OnError
	OnHit   func(ctx context.Context, op, hash string, value any, hits int64)
	OnMiss  func(ctx context.Context, op, hash string)
	OnStore func(ctx context.Context, op, hash string, value any, elapsed time.Duration)
	OnError func(ctx context.Context, op string, err error)
}

// Hooks contains all registered proxy event hooks. It is safe to add hooks
// while proxies are serving calls; a call sees the hooks registered when
// its event fires.
type Hooks struct {
	mu      sync.RWMutex
	onHit   []Hook
	onMiss  []Hook
	onStore []Hook
	onError []Hook
}

// NewHooks creates a new Hooks instance
func NewHooks() *Hooks {
	return &Hooks{}
}

// HookOption configures a hook
type HookOption func(*Hook)

// WithPriority sets the hook execution priority (higher values execute first)
func WithPriority(priority int) HookOption {
	return func(h *Hook) {
		h.Priority = priority
	}
}

// WithCondition sets a condition that must be true for the hook to execute
func WithCondition(condition func(ctx context.Context, op string) bool) HookOption {
	return func(h *Hook) {
		h.Condition = condition
	}
}

// AddOnHit registers a hook that runs when a call is served from the cache.
func (h *Hooks) AddOnHit(fn func(ctx context.Context, op, hash string, value any, hits int64), opts ...HookOption) {
	h.add(&h.onHit, newHook(Hook{OnHit: fn}, opts))
}

// AddOnMiss registers a hook that runs before the subject is dispatched.
func (h *Hooks) AddOnMiss(fn func(ctx context.Context, op, hash string), opts ...HookOption) {
	h.add(&h.onMiss, newHook(Hook{OnMiss: fn}, opts))
}

// AddOnStore registers a hook that runs after a fresh result was cached.
// elapsed is the time spent in the subject.
func (h *Hooks) AddOnStore(fn func(ctx context.Context, op, hash string, value any, elapsed time.Duration), opts ...HookOption) {
	h.add(&h.onStore, newHook(Hook{OnStore: fn}, opts))
}

// AddOnError registers a hook that runs when an intercepted call fails.
func (h *Hooks) AddOnError(fn func(ctx context.Context, op string, err error), opts ...HookOption) {
	h.add(&h.onError, newHook(Hook{OnError: fn}, opts))
}

func (h *Hooks) add(hooks *[]Hook, hook Hook) {
	h.mu.Lock()
	*hooks = append(*hooks, hook)
	h.mu.Unlock()
}

// list returns the hooks registered so far. Later appends never touch the
// elements it covers.
func (h *Hooks) list(hooks *[]Hook) []Hook {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return *hooks
}

func newHook(hook Hook, opts []HookOption) Hook {
	for _, opt := range opts {
		opt(&hook)
	}
	return hook
}

func (h *Hooks) invokeOnHit(ctx context.Context, op, hash string, value any, hits int64) {
	h.invokeHooks(ctx, op, h.list(&h.onHit), func(hook Hook) {
		hook.OnHit(ctx, op, hash, value, hits)
	})
}

func (h *Hooks) invokeOnMiss(ctx context.Context, op, hash string) {
	h.invokeHooks(ctx, op, h.list(&h.onMiss), func(hook Hook) {
		hook.OnMiss(ctx, op, hash)
	})
}

func (h *Hooks) invokeOnStore(ctx context.Context, op, hash string, value any, elapsed time.Duration) {
	h.invokeHooks(ctx, op, h.list(&h.onStore), func(hook Hook) {
		hook.OnStore(ctx, op, hash, value, elapsed)
	})
}

func (h *Hooks) invokeOnError(ctx context.Context, op string, err error) {
	h.invokeHooks(ctx, op, h.list(&h.onError), func(hook Hook) {
		hook.OnError(ctx, op, err)
	})
}

// invokeHooks executes hooks in priority order (highest priority first)
func (h *Hooks) invokeHooks(ctx context.Context, op string, hooks []Hook, execute func(Hook)) {
	if len(hooks) == 0 {
		return
	}

	if len(hooks) > 1 {
		sorted := make([]Hook, len(hooks))
		copy(sorted, hooks)
		sort.SliceStable(sorted, func(i, j int) bool {
			return sorted[i].Priority > sorted[j].Priority
		})
		hooks = sorted
	}

	for _, hook := range hooks {
		if hook.Condition == nil || hook.Condition(ctx, op) {
			execute(hook)
		}
	}
}
