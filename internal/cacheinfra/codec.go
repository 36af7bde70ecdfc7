package cacheinfra

import (
	"bytes"
	"fmt"
	"reflect"

	"github.com/puzpuzpuz/xsync/v3"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/goliatone/go-cache-proxy/internal/typename"
)

// listType names the []any results of multi-value operations. Their items
// are wrapped one by one so each keeps its own type.
const listType = "[]interface {}"

// envelope is the stored form of a value: its qualified type name next to
// its msgpack encoding.
type envelope struct {
	Type  string             `msgpack:"t"`
	Value msgpack.RawMessage `msgpack:"v,omitempty"`
	Items []envelope         `msgpack:"i,omitempty"`
}

// types maps qualified type names to the types values are decoded into.
var types = xsync.NewMapOf[string, reflect.Type]()

// RegisterType records the dynamic types of values for decoding. Types are
// also recorded whenever a value of that type is encoded, so registering is
// only needed to read entries written by another process.
func RegisterType(values ...any) {
	for _, v := range values {
		if v != nil {
			registerType(reflect.TypeOf(v))
		}
	}
}

func registerType(t reflect.Type) string {
	name := typename.Of(t)
	types.LoadOrStore(name, t)
	return name
}

// encodeValue serializes a value for out-of-process stores.
func encodeValue(value any) ([]byte, error) {
	env, err := wrap(value)
	if err != nil {
		return nil, err
	}

	data, err := msgpack.Marshal(&env)
	if err != nil {
		return nil, fmt.Errorf("encode cache value: %w", err)
	}
	return data, nil
}

func wrap(value any) (envelope, error) {
	if value == nil {
		return envelope{}, nil
	}

	if list, ok := value.([]any); ok && list != nil {
		items := make([]envelope, len(list))
		for i, item := range list {
			env, err := wrap(item)
			if err != nil {
				return envelope{}, err
			}
			items[i] = env
		}
		return envelope{Type: listType, Items: items}, nil
	}

	raw, err := msgpack.Marshal(value)
	if err != nil {
		return envelope{}, fmt.Errorf("encode cache value: %w", err)
	}
	return envelope{Type: registerType(reflect.TypeOf(value)), Value: raw}, nil
}

// decodeValue is the inverse of encodeValue. Values of a known type come back
// as that type. Unknown types, and values held in interface fields, come back
// in msgpack's generic form: int64/uint64 integers and map[string]any for
// maps and structs.
func decodeValue(data []byte) (any, error) {
	var env envelope
	if err := msgpack.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("decode cache value: %w", err)
	}
	return unwrap(env)
}

func unwrap(env envelope) (any, error) {
	switch {
	case env.Type == "":
		return nil, nil
	case env.Type == listType && env.Value == nil:
		list := make([]any, len(env.Items))
		for i, item := range env.Items {
			v, err := unwrap(item)
			if err != nil {
				return nil, err
			}
			list[i] = v
		}
		return list, nil
	}

	dec := msgpack.NewDecoder(bytes.NewReader(env.Value))
	dec.UseLooseInterfaceDecoding(true)

	t, ok := types.Load(env.Type)
	if !ok {
		var value any
		if err := dec.Decode(&value); err != nil {
			return nil, fmt.Errorf("decode cache value: %w", err)
		}
		return value, nil
	}

	ptr := reflect.New(t)
	if err := dec.Decode(ptr.Interface()); err != nil {
		return nil, fmt.Errorf("decode cache value as %s: %w", env.Type, err)
	}
	return ptr.Elem().Interface(), nil
}
