package proxy

import (
	"context"
	"errors"
	"fmt"
)

// ErrResultType is returned by Call when the result is not of the requested type.
var ErrResultType = errors.New("unexpected result type")

// Call invokes op through p and asserts the result to T. A nil result yields
// the zero value of T.
func Call[T any](ctx context.Context, p *Proxy, op string, args ...any) (T, error) {
	var zero T

	result, err := p.Invoke(ctx, op, args...)
	if err != nil {
		return zero, err
	}
	if result == nil {
		return zero, nil
	}

	typed, ok := result.(T)
	if !ok {
		return zero, fmt.Errorf("%w: %s returned %T, want %T", ErrResultType, op, result, zero)
	}
	return typed, nil
}
