package proxy

import (
	"context"
	"fmt"
	"reflect"
	"sort"

	"github.com/goliatone/go-cache-proxy/internal/typename"
)

// Subject is the explicit dispatch capability a memoized object can implement.
// Objects that do not implement it are adapted through reflection when bound.
type Subject interface {
	// Operations lists every operation name Invoke accepts.
	Operations() []string
	// Invoke runs op. A returned error is reported as an execution failure.
	Invoke(ctx context.Context, op string, args []any) (any, error)
}

// Named lets a subject pick the type identifier used in fingerprints.
// Without it the Go type name of the bound value, qualified with its import
// path, is used.
type Named interface {
	SubjectName() string
}

// OperationFunc is a single operation of an Operations subject.
type OperationFunc func(ctx context.Context, args []any) (any, error)

// Operations is a Subject made of plain functions, keyed by operation name.
type Operations map[string]OperationFunc

func (o Operations) Operations() []string {
	names := make([]string, 0, len(o))
	for name := range o {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (o Operations) Invoke(ctx context.Context, op string, args []any) (any, error) {
	fn, ok := o[op]
	if !ok || fn == nil {
		return nil, fmt.Errorf("operation %s is not defined", op)
	}
	return fn(ctx, args)
}

var (
	contextType = reflect.TypeOf((*context.Context)(nil)).Elem()
	errorType   = reflect.TypeOf((*error)(nil)).Elem()
)

// binding is the resolved view of a bound subject. The operation set and
// the dispatch table are built once, when the subject is bound.
type binding struct {
	target   any
	typeName string
	ops      map[string]struct{}
	invoke   func(ctx context.Context, op string, args []any) (any, error)
}

func (b *binding) has(op string) bool {
	_, ok := b.ops[op]
	return ok
}

func (b *binding) names() []string {
	names := make([]string, 0, len(b.ops))
	for name := range b.ops {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func bind(subject any) (*binding, error) {
	if subject == nil {
		return nil, newError(CodeInvalidArgument, "object required")
	}

	typeName := typename.OfValue(subject)
	if named, ok := subject.(Named); ok {
		typeName = named.SubjectName()
	}

	if s, ok := subject.(Subject); ok {
		ops := make(map[string]struct{})
		for _, name := range s.Operations() {
			ops[name] = struct{}{}
		}
		return &binding{target: subject, typeName: typeName, ops: ops, invoke: s.Invoke}, nil
	}

	rv := reflect.ValueOf(subject)
	switch rv.Kind() {
	case reflect.Ptr:
		if rv.IsNil() {
			return nil, newError(CodeInvalidArgument, "object required, got nil %s", typeName)
		}
	case reflect.Struct:
	default:
		return nil, newError(CodeInvalidArgument, "object required, got %s", typeName)
	}

	rs := newReflectSubject(rv)
	return &binding{target: subject, typeName: typeName, ops: rs.ops(), invoke: rs.invoke}, nil
}

// reflectSubject dispatches by name to the exported methods of a value.
type reflectSubject struct {
	methods map[string]reflect.Value
}

func newReflectSubject(rv reflect.Value) *reflectSubject {
	rt := rv.Type()
	methods := make(map[string]reflect.Value, rt.NumMethod())
	for i := 0; i < rt.NumMethod(); i++ {
		methods[rt.Method(i).Name] = rv.Method(i)
	}
	return &reflectSubject{methods: methods}
}

func (r *reflectSubject) ops() map[string]struct{} {
	ops := make(map[string]struct{}, len(r.methods))
	for name := range r.methods {
		ops[name] = struct{}{}
	}
	return ops
}

func (r *reflectSubject) invoke(ctx context.Context, op string, args []any) (any, error) {
	method, ok := r.methods[op]
	if !ok {
		return nil, fmt.Errorf("method %s does not exist", op)
	}

	in, err := buildArgs(ctx, op, method.Type(), args)
	if err != nil {
		return nil, err
	}

	return splitResults(method.Call(in))
}

// buildArgs matches args against the method signature. A leading
// context.Context parameter is filled with ctx and not counted as an argument.
func buildArgs(ctx context.Context, op string, ft reflect.Type, args []any) ([]reflect.Value, error) {
	offset := 0
	if ft.NumIn() > 0 && ft.In(0) == contextType {
		offset = 1
	}

	fixed := ft.NumIn() - offset
	if ft.IsVariadic() {
		fixed--
		if len(args) < fixed {
			return nil, fmt.Errorf("%s expects at least %d arguments, got %d", op, fixed, len(args))
		}
	} else if len(args) != fixed {
		return nil, fmt.Errorf("%s expects %d arguments, got %d", op, fixed, len(args))
	}

	in := make([]reflect.Value, 0, offset+len(args))
	if offset == 1 {
		if ctx == nil {
			ctx = context.Background()
		}
		in = append(in, reflect.ValueOf(ctx))
	}

	for i, arg := range args {
		var pt reflect.Type
		if ft.IsVariadic() && i >= fixed {
			pt = ft.In(ft.NumIn() - 1).Elem()
		} else {
			pt = ft.In(offset + i)
		}

		v, err := convertArg(arg, pt)
		if err != nil {
			return nil, fmt.Errorf("%s argument %d: %w", op, i, err)
		}
		in = append(in, v)
	}

	return in, nil
}

// convertArg accepts assignable values, same-kind conversions between named
// and unnamed basic types, and numeric conversions that lose nothing.
func convertArg(arg any, pt reflect.Type) (reflect.Value, error) {
	if arg == nil {
		switch pt.Kind() {
		case reflect.Ptr, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
			return reflect.Zero(pt), nil
		}
		return reflect.Value{}, fmt.Errorf("cannot use nil as %s", pt)
	}

	v := reflect.ValueOf(arg)
	vt := v.Type()

	if vt.AssignableTo(pt) {
		return v, nil
	}

	if !vt.ConvertibleTo(pt) {
		return reflect.Value{}, fmt.Errorf("cannot use %s as %s", vt, pt)
	}

	switch {
	case vt.Kind() == pt.Kind() && (isBasic(vt.Kind())):
		return v.Convert(pt), nil
	case isNumeric(vt.Kind()) && isNumeric(pt.Kind()):
		c := v.Convert(pt)
		if c.Convert(vt).Equal(v) {
			return c, nil
		}
		return reflect.Value{}, fmt.Errorf("%v overflows or truncates as %s", arg, pt)
	}

	return reflect.Value{}, fmt.Errorf("cannot use %s as %s", vt, pt)
}

func isNumeric(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}

func isBasic(k reflect.Kind) bool {
	return k == reflect.Bool || k == reflect.String || isNumeric(k)
}

// dispatch runs op on a bound subject of any kind and turns a panic inside
// the subject into an error.
func dispatch(ctx context.Context, b *binding, op string, args []any) (value any, err error) {
	defer func() {
		if r := recover(); r != nil {
			value = nil
			if e, ok := r.(error); ok {
				err = fmt.Errorf("panic: %w", e)
				return
			}
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return b.invoke(ctx, op, args)
}

// splitResults strips a trailing error and folds the rest into a single value:
// nothing becomes nil, one result is returned as is, more become []any.
func splitResults(out []reflect.Value) (any, error) {
	if n := len(out); n > 0 && out[n-1].Type().Implements(errorType) {
		last := out[n-1]
		out = out[:n-1]

		switch last.Kind() {
		case reflect.Ptr, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
			if !last.IsNil() {
				return nil, last.Interface().(error)
			}
		default:
			return nil, last.Interface().(error)
		}
	}

	switch len(out) {
	case 0:
		return nil, nil
	case 1:
		return out[0].Interface(), nil
	}

	values := make([]any, len(out))
	for i, v := range out {
		values[i] = v.Interface()
	}
	return values, nil
}
