package cache

import (
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/goliatone/go-cache-proxy/internal/typename"
)

// KeySeparator defines the delimiter used between cache key segments.
const KeySeparator = "::"

// defaultKeySerializer implements KeySerializer using reflection-based serialization.
// Every value is tagged with its dynamic type so that 1, int64(1) and "1" never
// produce the same payload. Strings are quoted, maps are emitted in sorted key
// order and pointers are followed, which makes the output depend on values only.
type defaultKeySerializer struct{}

// NewDefaultKeySerializer creates a new instance of the default key serializer.
func NewDefaultKeySerializer() KeySerializer {
	return &defaultKeySerializer{}
}

// SerializeKey renders subject, method and args into a stable payload.
// It never fails; the error return satisfies KeySerializer.
func (s *defaultKeySerializer) SerializeKey(call Call) ([]byte, error) {
	return []byte(s.Key(call)), nil
}

// Key is SerializeKey without the byte conversion, handy for debugging.
func (s *defaultKeySerializer) Key(call Call) string {
	parts := make([]string, 0, len(call.Args)+3)
	parts = append(parts,
		strconv.Quote(call.Subject),
		strconv.Quote(call.Method),
		fmt.Sprintf("args[%d]", len(call.Args)),
	)

	for _, arg := range call.Args {
		parts = append(parts, s.serializeValue(reflect.ValueOf(arg), map[uintptr]struct{}{}))
	}

	return strings.Join(parts, KeySeparator)
}

// serializeValue handles individual value serialization based on kind.
// seen holds the pointers on the current path so cyclic values terminate.
func (s *defaultKeySerializer) serializeValue(rv reflect.Value, seen map[uintptr]struct{}) string {
	if !rv.IsValid() {
		return "nil"
	}

	typ := typename.Of(rv.Type())

	switch rv.Kind() {
	case reflect.Bool:
		return typ + ":" + strconv.FormatBool(rv.Bool())
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return typ + ":" + strconv.FormatInt(rv.Int(), 10)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return typ + ":" + strconv.FormatUint(rv.Uint(), 10)
	case reflect.Float32:
		return typ + ":" + strconv.FormatFloat(rv.Float(), 'g', -1, 32)
	case reflect.Float64:
		return typ + ":" + strconv.FormatFloat(rv.Float(), 'g', -1, 64)
	case reflect.Complex64:
		return typ + ":" + strconv.FormatComplex(rv.Complex(), 'g', -1, 64)
	case reflect.Complex128:
		return typ + ":" + strconv.FormatComplex(rv.Complex(), 'g', -1, 128)
	case reflect.String:
		return typ + ":" + strconv.Quote(rv.String())

	// Functions and channels have no comparable value, use their address.
	// Stable only within a single process.
	case reflect.Func, reflect.Chan, reflect.UnsafePointer:
		if rv.IsNil() {
			return typ + ":nil"
		}
		return fmt.Sprintf("%s:%#x", typ, rv.Pointer())

	case reflect.Interface:
		if rv.IsNil() {
			return typ + ":nil"
		}
		return s.serializeValue(rv.Elem(), seen)

	case reflect.Ptr:
		if rv.IsNil() {
			return typ + ":nil"
		}
		addr := rv.Pointer()
		if _, ok := seen[addr]; ok {
			return typ + ":cycle"
		}
		seen[addr] = struct{}{}
		defer delete(seen, addr)
		return "&" + s.serializeValue(rv.Elem(), seen)

	case reflect.Slice:
		if rv.IsNil() {
			return typ + ":nil"
		}
		return s.serializeList(typ, rv, seen)

	case reflect.Array:
		return s.serializeList(typ, rv, seen)

	case reflect.Map:
		if rv.IsNil() {
			return typ + ":nil"
		}
		addr := rv.Pointer()
		if _, ok := seen[addr]; ok {
			return typ + ":cycle"
		}
		seen[addr] = struct{}{}
		defer delete(seen, addr)
		return s.serializeMap(typ, rv, seen)

	case reflect.Struct:
		if rv.CanInterface() {
			if t, ok := rv.Interface().(time.Time); ok {
				return typ + ":" + t.Format(time.RFC3339Nano)
			}
		}
		return s.serializeStruct(typ, rv, seen)
	}

	return typ + ":?"
}

// serializeList handles slices and arrays recursively
func (s *defaultKeySerializer) serializeList(typ string, rv reflect.Value, seen map[uintptr]struct{}) string {
	length := rv.Len()
	parts := make([]string, length)

	for i := 0; i < length; i++ {
		parts[i] = s.serializeValue(rv.Index(i), seen)
	}

	return fmt.Sprintf("%s[%d]{%s}", typ, length, strings.Join(parts, ","))
}

// serializeMap handles map serialization with sorted keys for determinism
func (s *defaultKeySerializer) serializeMap(typ string, rv reflect.Value, seen map[uintptr]struct{}) string {
	type pair struct{ key, value string }

	pairs := make([]pair, 0, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		pairs = append(pairs, pair{
			key:   s.serializeValue(iter.Key(), seen),
			value: s.serializeValue(iter.Value(), seen),
		})
	}

	sort.Slice(pairs, func(i, j int) bool {
		return pairs[i].key < pairs[j].key
	})

	parts := make([]string, len(pairs))
	for i, p := range pairs {
		parts[i] = p.key + "=" + p.value
	}

	return fmt.Sprintf("%s[%d]{%s}", typ, len(parts), strings.Join(parts, ","))
}

// serializeStruct handles struct serialization with field names.
// Unexported fields are part of the value and are included as well.
func (s *defaultKeySerializer) serializeStruct(typ string, rv reflect.Value, seen map[uintptr]struct{}) string {
	rt := rv.Type()
	parts := make([]string, rt.NumField())

	for i := 0; i < rt.NumField(); i++ {
		parts[i] = rt.Field(i).Name + ":" + s.serializeValue(rv.Field(i), seen)
	}

	return fmt.Sprintf("%s{%s}", typ, strings.Join(parts, ","))
}
