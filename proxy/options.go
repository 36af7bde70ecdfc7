package proxy

import (
	"github.com/apex/log"
	"go.opentelemetry.io/otel/trace"

	"github.com/goliatone/go-cache-proxy/cache"
)

type options struct {
	id             string
	logger         log.Interface
	tracerProvider trace.TracerProvider
	hooks          *Hooks
	hashFunc       cache.HashFunc
	serializer     cache.KeySerializer
	adopt          bool
}

// Option configures a Proxy at construction time.
type Option func(*options)

// WithID overrides the generated instance id used in logs and spans.
func WithID(id string) Option {
	return func(o *options) {
		if id != "" {
			o.id = id
		}
	}
}

// WithLogger sets the logger. Only debug level events are emitted; errors are
// returned to the caller, never logged.
func WithLogger(logger log.Interface) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithTracerProvider sets the OpenTelemetry provider used for Invoke spans.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(o *options) {
		if tp != nil {
			o.tracerProvider = tp
		}
	}
}

// WithHooks registers event hooks.
func WithHooks(hooks *Hooks) Option {
	return func(o *options) {
		if hooks != nil {
			o.hooks = hooks
		}
	}
}

// WithHashFunc replaces the default md5 hash.
func WithHashFunc(fn cache.HashFunc) Option {
	return func(o *options) {
		if fn != nil {
			o.hashFunc = fn
		}
	}
}

// WithSerializer replaces the default key serializer.
func WithSerializer(s cache.KeySerializer) Option {
	return func(o *options) {
		if s != nil {
			o.serializer = s
		}
	}
}

// WithAdoptEntries makes the proxy count hits on entries it did not populate
// itself instead of failing with ErrInternalInconsistency. Use it when the
// backend is shared between proxies or outlives the process.
func WithAdoptEntries() Option {
	return func(o *options) {
		o.adopt = true
	}
}
