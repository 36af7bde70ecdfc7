// Package proxy memoizes the operations of an arbitrary subject.
//
// A Proxy sits in front of a subject and answers repeated calls from a
// cache backend. Calls are identified by a fingerprint: the subject's type
// identity, the operation name and the ordered arguments are serialized by a
// cache.KeySerializer and hashed by a cache.HashFunc (md5 hex by default).
//
//	p := proxy.New()
//	if err := p.SetSubject(&Heavy{}); err != nil {
//		return err
//	}
//	if err := p.SetCache(cache.NewMemoryBackend(), 10*time.Minute); err != nil {
//		return err
//	}
//
//	v, err := p.Invoke(ctx, "Compute", 21)        // dispatched, stored, hits = 0
//	v, err = p.Invoke(ctx, "Compute", 21)         // served from cache, hits = 1
//	n, err := proxy.Call[int](ctx, p, "Compute", 21)
//
// # Subjects
//
// A subject is either a value implementing Subject, which lists and
// dispatches its own operations, or any struct or non-nil pointer, whose
// exported methods become operations through reflection. Reflected methods
// may take a leading context.Context and may return a trailing error.
//
// Subject operations must not be named like the proxy's own methods
// (see ReservedNames); Invoke is the one exception.
//
// # Errors
//
// Every failure is an *Error carrying a Code. Use errors.Is with the
// package sentinels:
//
//	if errors.Is(err, proxy.ErrUnknownOperation) { ... }
//
// A subject failure is wrapped as ErrExecution and keeps the original error
// in its chain. Failed calls are never cached.
//
// # Expiry
//
// SetCache pushes a lifetime to the backend; enforcing it is the backend's
// job. After an entry expires the next call populates it again and the hit
// count restarts at 0.
package proxy
