package cache

import (
	"bytes"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/goliatone/go-cache-proxy/internal/typename"
)

// msgpackKeySerializer encodes the call descriptor as a msgpack array. Each
// argument is paired with its qualified type name, because msgpack alone
// encodes 1 and int64(1), or same-shaped structs, identically.
// It is compact and cheap but only sees exported struct fields and fails on
// values msgpack cannot encode, such as functions and channels.
type msgpackKeySerializer struct{}

// NewMsgpackKeySerializer returns a KeySerializer backed by msgpack.
func NewMsgpackKeySerializer() KeySerializer {
	return &msgpackKeySerializer{}
}

func (s *msgpackKeySerializer) SerializeKey(call Call) ([]byte, error) {
	var buf bytes.Buffer

	enc := msgpack.NewEncoder(&buf)
	enc.SetSortMapKeys(true)

	args := make([]any, len(call.Args))
	for i, arg := range call.Args {
		args[i] = []any{typename.OfValue(arg), arg}
	}

	if err := enc.Encode([]any{call.Subject, call.Method, args}); err != nil {
		return nil, fmt.Errorf("serialize call %s.%s: %w", call.Subject, call.Method, err)
	}

	return buf.Bytes(), nil
}
