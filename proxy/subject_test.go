package proxy

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type ctxKey struct{}

type calculator struct{}

func (calculator) Add(a, b int) int { return a + b }

func (calculator) Sum(nums ...int) int { return sumOf(nums) }

func (calculator) Scale(factor int, nums ...int) []int { return scale(factor, nums) }

func (calculator) FromContext(ctx context.Context) string {
	v, _ := ctx.Value(ctxKey{}).(string)
	return v
}

func (calculator) Deref(p *int) int {
	if p == nil {
		return -1
	}
	return *p
}

func (calculator) Pair() (int, string) { return 7, "seven" }

func (calculator) Noop() {}

func (calculator) Divide(a, b int) (int, error) {
	if b == 0 {
		return 0, errors.New("division by zero")
	}
	return a / b, nil
}

func (calculator) Explode() int { panic("kaboom") }

func sumOf(nums []int) int {
	total := 0
	for _, n := range nums {
		total += n
	}
	return total
}

func scale(factor int, nums []int) []int {
	out := make([]int, len(nums))
	for i, n := range nums {
		out[i] = n * factor
	}
	return out
}

func invokeBound(t *testing.T, subject any, ctx context.Context, op string, args ...any) (any, error) {
	t.Helper()
	b, err := bind(subject)
	require.NoError(t, err)
	return dispatch(ctx, b, op, args)
}

func TestReflectSubject_Dispatch(t *testing.T) {
	ctx := context.WithValue(context.Background(), ctxKey{}, "from-ctx")
	seven := 7

	tests := []struct {
		name string
		op   string
		args []any
		want any
	}{
		{name: "plain", op: "Add", args: []any{2, 3}, want: 5},
		{name: "variadic", op: "Sum", args: []any{1, 2, 3}, want: 6},
		{name: "variadic empty", op: "Sum", want: 0},
		{name: "variadic after fixed", op: "Scale", args: []any{2, 1, 2}, want: []int{2, 4}},
		{name: "context injected", op: "FromContext", want: "from-ctx"},
		{name: "nil pointer", op: "Deref", args: []any{nil}, want: -1},
		{name: "pointer", op: "Deref", args: []any{&seven}, want: 7},
		{name: "multiple results", op: "Pair", want: []any{7, "seven"}},
		{name: "no results", op: "Noop", want: nil},
		{name: "nil error stripped", op: "Divide", args: []any{9, 3}, want: 3},
		{name: "lossless numeric conversion", op: "Add", args: []any{int64(2), float64(3)}, want: 5},
		{name: "unsigned conversion", op: "Add", args: []any{uint8(4), int32(1)}, want: 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := invokeBound(t, calculator{}, ctx, tt.op, tt.args...)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestReflectSubject_Failures(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		op      string
		args    []any
		wantErr string
	}{
		{name: "too few args", op: "Add", args: []any{1}, wantErr: "Add expects 2 arguments, got 1"},
		{name: "too many args", op: "Add", args: []any{1, 2, 3}, wantErr: "Add expects 2 arguments, got 3"},
		{name: "variadic too few", op: "Scale", wantErr: "Scale expects at least 1 arguments, got 0"},
		{name: "wrong type", op: "Add", args: []any{"1", 2}, wantErr: "Add argument 0: cannot use string as int"},
		{name: "lossy conversion", op: "Add", args: []any{3.5, 1}, wantErr: "overflows or truncates"},
		{name: "nil for value", op: "Add", args: []any{nil, 1}, wantErr: "cannot use nil as int"},
		{name: "returned error", op: "Divide", args: []any{1, 0}, wantErr: "division by zero"},
		{name: "panic", op: "Explode", wantErr: "panic: kaboom"},
		{name: "unknown", op: "Missing", wantErr: "method Missing does not exist"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := invokeBound(t, calculator{}, ctx, tt.op, tt.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestBind(t *testing.T) {
	t.Run("value receiver methods on struct", func(t *testing.T) {
		b, err := bind(calculator{})
		require.NoError(t, err)
		assert.Equal(t, "github.com/goliatone/go-cache-proxy/proxy.calculator", b.typeName)
		assert.True(t, b.has("Add"))
		assert.False(t, b.has("sumOf"))
	})

	t.Run("pointer exposes pointer methods", func(t *testing.T) {
		b, err := bind(newEchoSubject())
		require.NoError(t, err)
		assert.Equal(t, "*github.com/goliatone/go-cache-proxy/proxy.echoSubject", b.typeName)
		assert.Equal(t, []string{"Add", "Echo", "Fail"}, b.names())
	})

	t.Run("explicit subject", func(t *testing.T) {
		b, err := bind(namedCalc{})
		require.NoError(t, err)
		assert.Equal(t, "calc", b.typeName)
		assert.Equal(t, []string{"Double"}, b.names())

		got, err := b.invoke(context.Background(), "Double", []any{21})
		require.NoError(t, err)
		assert.Equal(t, 42, got)
	})

	t.Run("operations map", func(t *testing.T) {
		ops := Operations{"B": nil, "A": nil}
		b, err := bind(ops)
		require.NoError(t, err)
		assert.Equal(t, []string{"A", "B"}, b.names())

		_, err = b.invoke(context.Background(), "A", nil)
		assert.EqualError(t, err, "operation A is not defined")
	})

	t.Run("not an object", func(t *testing.T) {
		for _, bad := range []any{nil, 1, "x", []string{"Add"}, map[string]int{}} {
			_, err := bind(bad)
			assert.ErrorIs(t, err, ErrInvalidArgument, "%T", bad)
		}
	})
}

// namedCalc implements Subject and Named explicitly.
type namedCalc struct{}

func (namedCalc) SubjectName() string { return "calc" }

func (namedCalc) Operations() []string { return []string{"Double"} }

func (namedCalc) Invoke(_ context.Context, op string, args []any) (any, error) {
	if op != "Double" {
		return nil, errors.New("unsupported")
	}
	return args[0].(int) * 2, nil
}
