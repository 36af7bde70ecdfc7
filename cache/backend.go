package cache

import (
	"context"
	"time"
)

// Backend is the storage capability the proxy needs from a cache.
// Lifetime is a pass-through value: expiry, if any, is enforced by the backend.
type Backend interface {
	// Get returns the value stored under key. found is false on a miss.
	Get(ctx context.Context, key string) (value any, found bool, err error)
	Set(ctx context.Context, key string, value any) error
	Has(ctx context.Context, key string) (bool, error)
	SetLifetime(ttl time.Duration)
	Lifetime() time.Duration
}

// Call describes a single intercepted invocation: which subject type,
// which operation and the ordered argument list.
type Call struct {
	Subject string
	Method  string
	Args    []any
}

// NewCall is a small convenience around the Call literal.
func NewCall(subject, method string, args ...any) Call {
	return Call{Subject: subject, Method: method, Args: args}
}

// KeySerializer turns a call descriptor into the payload that gets hashed.
// Implementations must be deterministic and must capture argument values
// exactly, so that differently typed arguments never serialize alike.
type KeySerializer interface {
	SerializeKey(call Call) ([]byte, error)
}
