package proxy

import (
	"github.com/goliatone/go-cache-proxy/cache"
)

func toHashFunc(fn any) (cache.HashFunc, error) {
	h, err := cache.NormalizeHashFunc(fn)
	if err != nil {
		return nil, &Error{Code: CodeInvalidConfiguration, Message: err.Error(), Cause: err}
	}
	return h, nil
}

// fingerprint serializes call and hashes the payload.
func fingerprint(s cache.KeySerializer, h cache.HashFunc, call cache.Call) (string, error) {
	payload, err := s.SerializeKey(call)
	if err != nil {
		return "", &Error{
			Code:      CodeInvalidArgument,
			Message:   "cannot fingerprint call: " + err.Error(),
			Operation: call.Method,
			Cause:     err,
		}
	}
	return h(payload), nil
}
