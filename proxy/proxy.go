package proxy

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/apex/log"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/goliatone/go-cache-proxy/cache"
)

// DefaultTTL is the lifetime pushed to a backend bound without one.
const DefaultTTL = 120 * time.Second

const instrumentationName = "github.com/goliatone/go-cache-proxy/proxy"

// Proxy memoizes the operations of a subject in a cache backend.
//
// Each call is reduced to a fingerprint of the subject type, the operation
// name and the ordered arguments. The first call for a fingerprint runs the
// subject and stores the result; later calls are answered from the backend
// and counted as hits. Calls sharing a fingerprint are serialized, so the
// subject runs at most once per fingerprint while the entry lives.
type Proxy struct {
	id     string
	logger log.Interface
	tracer trace.Tracer
	hooks  *Hooks
	adopt  bool

	mu         sync.RWMutex
	subject    *binding
	backend    cache.Backend
	hashFunc   cache.HashFunc
	serializer cache.KeySerializer

	hits  *hitCounter
	locks *fingerprintLocks
}

// New creates an unbound proxy. A subject and a cache must be set before
// Invoke can succeed.
func New(opts ...Option) *Proxy {
	o := options{
		id:             uuid.NewString(),
		logger:         log.Log,
		tracerProvider: otel.GetTracerProvider(),
		hooks:          NewHooks(),
		hashFunc:       cache.MD5,
		serializer:     cache.NewDefaultKeySerializer(),
	}
	for _, opt := range opts {
		opt(&o)
	}

	return &Proxy{
		id:         o.id,
		logger:     o.logger,
		tracer:     o.tracerProvider.Tracer(instrumentationName),
		hooks:      o.hooks,
		adopt:      o.adopt,
		hashFunc:   o.hashFunc,
		serializer: o.serializer,
		hits:       newHitCounter(),
		locks:      newFingerprintLocks(),
	}
}

// ID returns the proxy instance id.
func (p *Proxy) ID() string {
	return p.id
}

// SetSubject binds the object whose operations are memoized. The subject is
// rejected when it is not an object or when one of its operations is named
// like a proxy method other than Invoke. On failure the previous binding is
// left in place.
func (p *Proxy) SetSubject(subject any) error {
	b, err := bind(subject)
	if err != nil {
		return err
	}
	if err := checkConsistency(b); err != nil {
		return err
	}

	p.mu.Lock()
	p.subject = b
	p.mu.Unlock()

	p.logger.WithFields(log.Fields{
		"proxy":      p.id,
		"subject":    b.typeName,
		"operations": len(b.ops),
	}).Debug("subject bound")
	return nil
}

// Subject returns the bound subject, or nil.
func (p *Proxy) Subject() any {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.subject == nil {
		return nil
	}
	return p.subject.target
}

// SubjectType returns the type identity used in fingerprints, or "" when no
// subject is bound.
func (p *Proxy) SubjectType() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.subject == nil {
		return ""
	}
	return p.subject.typeName
}

// SetCache binds the backend and pushes ttl to it. A ttl of zero or less
// selects DefaultTTL.
func (p *Proxy) SetCache(backend cache.Backend, ttl time.Duration) error {
	if backend == nil {
		return newError(CodeInvalidArgument, "cache backend required")
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	backend.SetLifetime(ttl)

	p.mu.Lock()
	p.backend = backend
	p.mu.Unlock()

	p.logger.WithFields(log.Fields{
		"proxy": p.id,
		"ttl":   ttl,
	}).Debug("cache bound")
	return nil
}

// Cache returns the bound backend, or nil.
func (p *Proxy) Cache() cache.Backend {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.backend
}

// SetHashFunc replaces the fingerprint hash. fn may be a cache.HashFunc, a
// func([]byte) string, a func(string) string, a func() hash.Hash or the name
// of a built-in hash. Anything else fails with ErrInvalidConfiguration and
// keeps the current hash.
func (p *Proxy) SetHashFunc(fn any) error {
	h, err := toHashFunc(fn)
	if err != nil {
		return err
	}

	p.mu.Lock()
	p.hashFunc = h
	p.mu.Unlock()
	return nil
}

// HashFunc returns the fingerprint hash.
func (p *Proxy) HashFunc() cache.HashFunc {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.hashFunc
}

// SetSerializer replaces the serializer that turns calls into hash input.
func (p *Proxy) SetSerializer(s cache.KeySerializer) error {
	if s == nil {
		return newError(CodeInvalidConfiguration, "key serializer required")
	}

	p.mu.Lock()
	p.serializer = s
	p.mu.Unlock()
	return nil
}

// Serializer returns the key serializer.
func (p *Proxy) Serializer() cache.KeySerializer {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.serializer
}

// MakeHash returns the fingerprint of call under the current serializer and
// hash.
func (p *Proxy) MakeHash(call cache.Call) (string, error) {
	p.mu.RLock()
	s, h := p.serializer, p.hashFunc
	p.mu.RUnlock()
	return fingerprint(s, h, call)
}

// Invoke runs op on the subject through the cache.
//
// On a hit the cached value is returned and its hit count incremented. On a
// miss the subject is dispatched, the result stored and the count set to 0.
// A failing subject leaves neither a cache entry nor a counter behind.
func (p *Proxy) Invoke(ctx context.Context, op string, args ...any) (result any, err error) {
	if ctx == nil {
		ctx = context.Background()
	}

	ctx, span := p.tracer.Start(ctx, "proxy.Invoke",
		trace.WithAttributes(attribute.String("proxy.operation", op)))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			p.hooks.invokeOnError(ctx, op, err)
		}
		span.End()
	}()

	p.mu.RLock()
	subject, backend := p.subject, p.backend
	serializer, hashFunc := p.serializer, p.hashFunc
	p.mu.RUnlock()

	if subject == nil || backend == nil {
		return nil, &Error{
			Code:      CodeConfiguration,
			Message:   "cache object or subject object not set",
			Operation: op,
		}
	}

	hash, err := fingerprint(serializer, hashFunc, cache.NewCall(subject.typeName, op, args...))
	if err != nil {
		return nil, err
	}
	span.SetAttributes(
		attribute.String("proxy.subject", subject.typeName),
		attribute.String("proxy.fingerprint", hash),
	)

	unlock := p.locks.lock(hash)
	defer unlock()

	logger := p.logger.WithFields(log.Fields{
		"proxy":       p.id,
		"operation":   op,
		"fingerprint": hash,
	})

	found, err := backend.Has(ctx, hash)
	if err != nil {
		return nil, backendError(op, "has", err)
	}

	if found {
		value, ok, err := backend.Get(ctx, hash)
		if err != nil {
			return nil, backendError(op, "get", err)
		}
		// ok is false when the entry expired after Has; that is a miss.
		if ok {
			hits, err := p.countHit(hash)
			if err != nil {
				return nil, &Error{
					Code:      CodeInternalInconsistency,
					Message:   fmt.Sprintf("cache holds %s but no hit counter is tracked", hash),
					Operation: op,
					Cause:     err,
				}
			}

			span.SetAttributes(attribute.Bool("proxy.hit", true), attribute.Int64("proxy.hits", hits))
			logger.WithField("hits", hits).Debug("cache hit")
			p.hooks.invokeOnHit(ctx, op, hash, value, hits)
			return value, nil
		}
	}

	span.SetAttributes(attribute.Bool("proxy.hit", false))

	if !subject.has(op) {
		return nil, &Error{
			Code:      CodeUnknownOperation,
			Message:   fmt.Sprintf("method %s doesn't exist on %s", op, subject.typeName),
			Operation: op,
		}
	}

	logger.Debug("cache miss")
	p.hooks.invokeOnMiss(ctx, op, hash)

	start := time.Now()
	value, err := dispatch(ctx, subject, op, args)
	if err != nil {
		return nil, executionError(op, err)
	}
	elapsed := time.Since(start)

	if err := backend.Set(ctx, hash, value); err != nil {
		return nil, backendError(op, "set", err)
	}
	p.hits.Initialize(hash)

	logger.WithField("elapsed", elapsed).Debug("result stored")
	p.hooks.invokeOnStore(ctx, op, hash, value, elapsed)
	return value, nil
}

func (p *Proxy) countHit(hash string) (int64, error) {
	if p.adopt {
		return p.hits.Adopt(hash), nil
	}
	return p.hits.Increment(hash)
}

// CacheHits returns how often the entry for hash was served from the cache.
// It fails with ErrUnknownFingerprint for a fingerprint never populated.
func (p *Proxy) CacheHits(hash string) (int64, error) {
	return p.hits.Get(hash)
}

// CacheHitsFor is CacheHits for the call (subject, op, args).
func (p *Proxy) CacheHitsFor(subject, op string, args ...any) (int64, error) {
	hash, err := p.MakeHash(cache.NewCall(subject, op, args...))
	if err != nil {
		return 0, err
	}
	return p.hits.Get(hash)
}
