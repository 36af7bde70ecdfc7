package proxy

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/apex/log"
	"github.com/apex/log/handlers/discard"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-cache-proxy/cache"
	alpha "github.com/goliatone/go-cache-proxy/internal/testfixtures/alpha/service"
	beta "github.com/goliatone/go-cache-proxy/internal/testfixtures/beta/service"
	"github.com/goliatone/go-cache-proxy/pkg/testsupport"
)

// echoSubject is a spy subject whose calls are recorded.
type echoSubject struct {
	rec   *testsupport.CallRecorder
	delay time.Duration
}

func newEchoSubject() *echoSubject {
	return &echoSubject{rec: &testsupport.CallRecorder{}}
}

func (s *echoSubject) Echo(v string) string {
	s.rec.Record("Echo", v)
	if s.delay > 0 {
		time.Sleep(s.delay)
	}
	return v
}

func (s *echoSubject) Add(a, b int) int {
	s.rec.Record("Add", a, b)
	return a + b
}

func (s *echoSubject) Fail(msg string) (string, error) {
	s.rec.Record("Fail", msg)
	return "", errors.New(msg)
}

func testLogger() log.Interface {
	return &log.Logger{Handler: discard.Default, Level: log.DebugLevel}
}

func newTestProxy(t *testing.T, subject any, opts ...Option) (*Proxy, cache.Backend) {
	t.Helper()

	p := New(append([]Option{WithLogger(testLogger())}, opts...)...)
	require.NoError(t, p.SetSubject(subject))

	backend := cache.NewMemoryBackend()
	require.NoError(t, p.SetCache(backend, time.Minute))
	return p, backend
}

func TestProxy_HitsAndMisses(t *testing.T) {
	ctx := context.Background()
	subject := newEchoSubject()
	p, _ := newTestProxy(t, subject)

	steps := []struct {
		arg  string
		hits int64
	}{
		{arg: "a", hits: 0},
		{arg: "a", hits: 1},
		{arg: "b", hits: 0},
		{arg: "a", hits: 2},
		{arg: "b", hits: 1},
	}

	for i, step := range steps {
		got, err := p.Invoke(ctx, "Echo", step.arg)
		require.NoError(t, err, "step %d", i)
		assert.Equal(t, step.arg, got, "step %d", i)

		hits, err := p.CacheHitsFor(p.SubjectType(), "Echo", step.arg)
		require.NoError(t, err, "step %d", i)
		assert.Equal(t, step.hits, hits, "step %d", i)
	}

	assert.Equal(t, 2, subject.rec.Total(), "subject reached once per distinct argument")
}

func TestProxy_CacheHitsByHash(t *testing.T) {
	ctx := context.Background()
	p, _ := newTestProxy(t, newEchoSubject())

	_, err := p.Invoke(ctx, "Add", 1, 2)
	require.NoError(t, err)
	_, err = p.Invoke(ctx, "Add", 1, 2)
	require.NoError(t, err)

	hash, err := p.MakeHash(cache.NewCall(p.SubjectType(), "Add", 1, 2))
	require.NoError(t, err)

	hits, err := p.CacheHits(hash)
	require.NoError(t, err)
	assert.Equal(t, int64(1), hits)

	_, err = p.CacheHits("never-populated")
	assert.ErrorIs(t, err, ErrUnknownFingerprint)
	assert.Contains(t, err.Error(), "cache key never-populated does not exist")
}

func TestProxy_ArgumentOrderAndTypeMatter(t *testing.T) {
	ctx := context.Background()
	subject := newEchoSubject()
	p, _ := newTestProxy(t, subject)

	_, err := p.Invoke(ctx, "Add", 1, 2)
	require.NoError(t, err)
	_, err = p.Invoke(ctx, "Add", 2, 1)
	require.NoError(t, err)
	_, err = p.Invoke(ctx, "Add", int64(1), 2)
	require.NoError(t, err)

	assert.Equal(t, 3, subject.rec.Count("Add"))
}

func TestProxy_ConfigurationErrors(t *testing.T) {
	ctx := context.Background()

	t.Run("nothing bound", func(t *testing.T) {
		p := New(WithLogger(testLogger()))
		_, err := p.Invoke(ctx, "Echo", "a")
		assert.ErrorIs(t, err, ErrConfiguration)
	})

	t.Run("no cache", func(t *testing.T) {
		p := New(WithLogger(testLogger()))
		require.NoError(t, p.SetSubject(newEchoSubject()))
		_, err := p.Invoke(ctx, "Echo", "a")
		assert.ErrorIs(t, err, ErrConfiguration)
	})

	t.Run("no subject", func(t *testing.T) {
		p := New(WithLogger(testLogger()))
		require.NoError(t, p.SetCache(cache.NewMemoryBackend(), 0))
		_, err := p.Invoke(ctx, "Echo", "a")
		assert.ErrorIs(t, err, ErrConfiguration)
		assert.Contains(t, err.Error(), "cache object or subject object not set")
	})
}

func TestProxy_UnknownOperation(t *testing.T) {
	p, backend := newTestProxy(t, newEchoSubject())

	_, err := p.Invoke(context.Background(), "Missing", 1)
	require.ErrorIs(t, err, ErrUnknownOperation)
	assert.Contains(t, err.Error(), "method Missing doesn't exist on *github.com/goliatone/go-cache-proxy/proxy.echoSubject")

	hash, err := p.MakeHash(cache.NewCall(p.SubjectType(), "Missing", 1))
	require.NoError(t, err)
	found, err := backend.Has(context.Background(), hash)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestProxy_ExecutionErrorIsNotCached(t *testing.T) {
	ctx := context.Background()
	subject := newEchoSubject()
	p, backend := newTestProxy(t, subject)

	_, err := p.Invoke(ctx, "Fail", "boom")
	require.ErrorIs(t, err, ErrExecution)
	assert.Contains(t, err.Error(), "boom")

	var perr *Error
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, CodeExecution, perr.Code)
	assert.Equal(t, "Fail", perr.Operation)
	require.Error(t, perr.Cause)
	assert.Equal(t, "boom", perr.Cause.Error())

	hash, err := p.MakeHash(cache.NewCall(p.SubjectType(), "Fail", "boom"))
	require.NoError(t, err)
	found, err := backend.Has(ctx, hash)
	require.NoError(t, err)
	assert.False(t, found, "failed result must not be stored")

	_, err = p.CacheHits(hash)
	assert.ErrorIs(t, err, ErrUnknownFingerprint)

	_, err = p.Invoke(ctx, "Fail", "boom")
	assert.ErrorIs(t, err, ErrExecution)
	assert.Equal(t, 2, subject.rec.Count("Fail"), "failures are retried")
}

func TestProxy_SetCache(t *testing.T) {
	p := New(WithLogger(testLogger()))

	err := p.SetCache(nil, time.Minute)
	assert.ErrorIs(t, err, ErrInvalidArgument)
	assert.ErrorIs(t, err, ErrInvalidConfiguration)
	assert.Nil(t, p.Cache())

	backend := cache.NewMemoryBackend()
	require.NoError(t, p.SetCache(backend, 0))
	assert.Equal(t, DefaultTTL, backend.Lifetime())
	assert.Same(t, backend, p.Cache())

	other := cache.NewMemoryBackend()
	require.NoError(t, p.SetCache(other, 5*time.Minute))
	assert.Equal(t, 5*time.Minute, other.Lifetime())
	assert.Same(t, other, p.Cache())
}

func TestProxy_SetSubjectReplacesBinding(t *testing.T) {
	ctx := context.Background()
	first := newEchoSubject()
	p, _ := newTestProxy(t, first)

	assert.Same(t, first, p.Subject())
	assert.Equal(t, "*github.com/goliatone/go-cache-proxy/proxy.echoSubject", p.SubjectType())

	second := Operations{
		"Echo": func(_ context.Context, args []any) (any, error) {
			return fmt.Sprintf("ops:%v", args[0]), nil
		},
	}
	require.NoError(t, p.SetSubject(second))
	assert.Equal(t, "github.com/goliatone/go-cache-proxy/proxy.Operations", p.SubjectType())

	got, err := p.Invoke(ctx, "Echo", "a")
	require.NoError(t, err)
	assert.Equal(t, "ops:a", got, "subject type is part of the fingerprint")
}

func TestProxy_InvalidSubjectKeepsBinding(t *testing.T) {
	subject := newEchoSubject()
	p, _ := newTestProxy(t, subject)

	var nilSubject *echoSubject
	for _, bad := range []any{nil, 42, "subject", nilSubject, []int{1}} {
		err := p.SetSubject(bad)
		assert.ErrorIs(t, err, ErrInvalidArgument, "%T", bad)
		assert.ErrorIs(t, err, ErrInvalidConfiguration, "%T", bad)
	}
	assert.Same(t, subject, p.Subject())
}

func TestProxy_SetHashFunc(t *testing.T) {
	ctx := context.Background()
	subject := newEchoSubject()
	p, _ := newTestProxy(t, subject)

	require.NoError(t, p.SetHashFunc(func([]byte) string { return "same" }))

	first, err := p.Invoke(ctx, "Echo", "a")
	require.NoError(t, err)
	second, err := p.Invoke(ctx, "Echo", "b")
	require.NoError(t, err)

	assert.Equal(t, "a", first)
	assert.Equal(t, "a", second, "a constant hash makes every call collide")
	assert.Equal(t, 1, subject.rec.Total())

	hits, err := p.CacheHits("same")
	require.NoError(t, err)
	assert.Equal(t, int64(1), hits)
}

func TestProxy_SetSerializer(t *testing.T) {
	ctx := context.Background()
	p, _ := newTestProxy(t, newEchoSubject())

	assert.ErrorIs(t, p.SetSerializer(nil), ErrInvalidConfiguration)

	require.NoError(t, p.SetSerializer(cache.NewMsgpackKeySerializer()))
	got, err := p.Invoke(ctx, "Add", 2, 3)
	require.NoError(t, err)
	assert.Equal(t, 5, got)

	_, err = p.Invoke(ctx, "Add", 2, 3)
	require.NoError(t, err)
	hits, err := p.CacheHitsFor(p.SubjectType(), "Add", 2, 3)
	require.NoError(t, err)
	assert.Equal(t, int64(1), hits)
}

func TestProxy_MakeHash(t *testing.T) {
	p := New(WithLogger(testLogger()))

	call := cache.NewCall("*app.Repo", "Find", 1, "x", []int{1, 2})
	a, err := p.MakeHash(call)
	require.NoError(t, err)
	b, err := p.MakeHash(cache.NewCall("*app.Repo", "Find", 1, "x", []int{1, 2}))
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.Len(t, a, 32, "md5 hex digest")

	variants := []cache.Call{
		cache.NewCall("*app.Other", "Find", 1, "x", []int{1, 2}),
		cache.NewCall("*app.Repo", "Get", 1, "x", []int{1, 2}),
		cache.NewCall("*app.Repo", "Find", "x", 1, []int{1, 2}),
		cache.NewCall("*app.Repo", "Find", "1", "x", []int{1, 2}),
		cache.NewCall("*app.Repo", "Find", 1, "x", []int{2, 1}),
		cache.NewCall("*app.Repo", "Find", 1, "x"),
	}
	for i, v := range variants {
		h, err := p.MakeHash(v)
		require.NoError(t, err)
		assert.NotEqual(t, a, h, "variant %d", i)
	}
}

func TestProxy_BackendFailures(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("connection refused")

	t.Run("has", func(t *testing.T) {
		backend := &testsupport.FaultyBackend{}
		backend.FailHas(boom)
		p, _ := newTestProxy(t, newEchoSubject())
		require.NoError(t, p.SetCache(backend, time.Minute))

		_, err := p.Invoke(ctx, "Echo", "a")
		assert.ErrorIs(t, err, ErrBackend)
		assert.ErrorIs(t, err, boom)
	})

	t.Run("get", func(t *testing.T) {
		backend := &testsupport.FaultyBackend{}
		p, _ := newTestProxy(t, newEchoSubject())
		require.NoError(t, p.SetCache(backend, time.Minute))

		_, err := p.Invoke(ctx, "Echo", "a")
		require.NoError(t, err)

		backend.FailGet(boom)
		_, err = p.Invoke(ctx, "Echo", "a")
		assert.ErrorIs(t, err, ErrBackend)
	})

	t.Run("set", func(t *testing.T) {
		backend := &testsupport.FaultyBackend{}
		backend.FailSet(boom)
		p, _ := newTestProxy(t, newEchoSubject())
		require.NoError(t, p.SetCache(backend, time.Minute))

		_, err := p.Invoke(ctx, "Echo", "a")
		require.ErrorIs(t, err, ErrBackend)

		_, err = p.CacheHitsFor(p.SubjectType(), "Echo", "a")
		assert.ErrorIs(t, err, ErrUnknownFingerprint, "no counter without a stored value")
	})
}

func TestProxy_EntryGoneAfterHasIsAMiss(t *testing.T) {
	backend := &testsupport.FaultyBackend{}
	backend.ForceHas(true)

	subject := newEchoSubject()
	p, _ := newTestProxy(t, subject)
	require.NoError(t, p.SetCache(backend, time.Minute))

	got, err := p.Invoke(context.Background(), "Echo", "a")
	require.NoError(t, err)
	assert.Equal(t, "a", got)
	assert.Equal(t, 1, subject.rec.Count("Echo"))
}

func TestProxy_InternalInconsistency(t *testing.T) {
	ctx := context.Background()
	p, backend := newTestProxy(t, newEchoSubject())

	hash, err := p.MakeHash(cache.NewCall(p.SubjectType(), "Echo", "a"))
	require.NoError(t, err)
	require.NoError(t, backend.Set(ctx, hash, "planted"))

	_, err = p.Invoke(ctx, "Echo", "a")
	assert.ErrorIs(t, err, ErrInternalInconsistency)
}

func TestProxy_RepopulatesAfterExpiry(t *testing.T) {
	ctx := context.Background()
	subject := newEchoSubject()
	p, _ := newTestProxy(t, subject)

	cfg := cache.DefaultConfig()
	cfg.Driver = cache.DriverLRU
	cfg.TTL = 50 * time.Millisecond
	backend, err := cache.NewBackend(ctx, cfg)
	require.NoError(t, err)
	require.NoError(t, p.SetCache(backend, cfg.TTL))

	_, err = p.Invoke(ctx, "Echo", "a")
	require.NoError(t, err)
	_, err = p.Invoke(ctx, "Echo", "a")
	require.NoError(t, err)

	hits, err := p.CacheHitsFor(p.SubjectType(), "Echo", "a")
	require.NoError(t, err)
	assert.Equal(t, int64(1), hits)

	require.Eventually(t, func() bool {
		found, err := backend.Has(ctx, mustHash(t, p, "Echo", "a"))
		return err == nil && !found
	}, 2*time.Second, 10*time.Millisecond)

	_, err = p.Invoke(ctx, "Echo", "a")
	require.NoError(t, err)
	assert.Equal(t, 2, subject.rec.Count("Echo"))

	hits, err = p.CacheHitsFor(p.SubjectType(), "Echo", "a")
	require.NoError(t, err)
	assert.Equal(t, int64(0), hits, "counter restarts when the entry is populated again")
}

func TestProxy_ConcurrentCallsDispatchOnce(t *testing.T) {
	ctx := context.Background()
	subject := newEchoSubject()
	subject.delay = 20 * time.Millisecond
	p, _ := newTestProxy(t, subject)

	const workers = 16
	var wg sync.WaitGroup
	results := make([]any, workers)
	errs := make([]error, workers)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = p.Invoke(ctx, "Echo", "shared")
		}(i)
	}
	wg.Wait()

	for i := 0; i < workers; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, "shared", results[i])
	}
	assert.Equal(t, 1, subject.rec.Count("Echo"))

	hits, err := p.CacheHitsFor(p.SubjectType(), "Echo", "shared")
	require.NoError(t, err)
	assert.Equal(t, int64(workers-1), hits)
	assert.Equal(t, 0, p.locks.size())
}

func TestProxy_ID(t *testing.T) {
	assert.NotEmpty(t, New().ID())
	assert.NotEqual(t, New().ID(), New().ID())
	assert.Equal(t, "fixed", New(WithID("fixed")).ID())
}

func mustHash(t *testing.T, p *Proxy, op string, args ...any) string {
	t.Helper()
	hash, err := p.MakeHash(cache.NewCall(p.SubjectType(), op, args...))
	require.NoError(t, err)
	return hash
}

func TestProxy_AdoptEntries(t *testing.T) {
	ctx := context.Background()
	shared := cache.NewMemoryBackend()

	first := New(WithLogger(testLogger()))
	require.NoError(t, first.SetSubject(newEchoSubject()))
	require.NoError(t, first.SetCache(shared, time.Minute))
	_, err := first.Invoke(ctx, "Echo", "a")
	require.NoError(t, err)

	strict := New(WithLogger(testLogger()))
	require.NoError(t, strict.SetSubject(newEchoSubject()))
	require.NoError(t, strict.SetCache(shared, time.Minute))
	_, err = strict.Invoke(ctx, "Echo", "a")
	assert.ErrorIs(t, err, ErrInternalInconsistency)

	subject := newEchoSubject()
	adopting := New(WithLogger(testLogger()), WithAdoptEntries())
	require.NoError(t, adopting.SetSubject(subject))
	require.NoError(t, adopting.SetCache(shared, time.Minute))

	got, err := adopting.Invoke(ctx, "Echo", "a")
	require.NoError(t, err)
	assert.Equal(t, "a", got)
	assert.Zero(t, subject.rec.Total(), "adopted entry is served from the cache")

	hits, err := adopting.CacheHitsFor(adopting.SubjectType(), "Echo", "a")
	require.NoError(t, err)
	assert.Equal(t, int64(1), hits)
}

func TestProxy_SameNamedSubjectsFromDifferentPackages(t *testing.T) {
	ctx := context.Background()
	p, _ := newTestProxy(t, &alpha.S{})

	got, err := p.Invoke(ctx, "Get")
	require.NoError(t, err)
	assert.Equal(t, "alpha", got)
	alphaType := p.SubjectType()

	require.NoError(t, p.SetSubject(&beta.S{}))
	assert.NotEqual(t, alphaType, p.SubjectType())

	got, err = p.Invoke(ctx, "Get")
	require.NoError(t, err)
	assert.Equal(t, "beta", got, "entries stored for one subject type must not answer another")
}

// panickingSubject fails inside its explicit dispatch.
type panickingSubject struct{}

func (panickingSubject) Operations() []string { return []string{"Boom"} }

func (panickingSubject) Invoke(context.Context, string, []any) (any, error) {
	panic(errors.New("explicit boom"))
}

type reflectPanics struct{}

func (reflectPanics) Boom(n int) int { panic(fmt.Sprintf("boom %d", n)) }

func TestProxy_PanicBecomesExecutionError(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		subject any
		wantMsg string
	}{
		{
			name: "operations map",
			subject: Operations{"Boom": func(context.Context, []any) (any, error) {
				panic("boom")
			}},
			wantMsg: "panic: boom",
		},
		{name: "explicit subject", subject: panickingSubject{}, wantMsg: "panic: explicit boom"},
		{name: "reflection", subject: reflectPanics{}, wantMsg: "panic: boom 1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, backend := newTestProxy(t, tt.subject)

			var got any
			var err error
			require.NotPanics(t, func() { got, err = p.Invoke(ctx, "Boom", 1) })
			require.ErrorIs(t, err, ErrExecution)
			assert.Contains(t, err.Error(), tt.wantMsg)
			assert.Nil(t, got)

			hash := mustHash(t, p, "Boom", 1)
			found, err := backend.Has(ctx, hash)
			require.NoError(t, err)
			assert.False(t, found, "nothing is stored for a panicking call")

			_, err = p.CacheHits(hash)
			assert.ErrorIs(t, err, ErrUnknownFingerprint)
		})
	}
}

func TestProxy_LockTableDrains(t *testing.T) {
	ctx := context.Background()
	backend := &testsupport.FaultyBackend{}
	p, _ := newTestProxy(t, newEchoSubject())
	require.NoError(t, p.SetCache(backend, time.Minute))

	for i := 0; i < 10; i++ {
		_, err := p.Invoke(ctx, "Fail", fmt.Sprint("boom", i))
		require.ErrorIs(t, err, ErrExecution)

		_, err = p.Invoke(ctx, "Missing", i)
		require.ErrorIs(t, err, ErrUnknownOperation)
	}

	backend.FailSet(errors.New("disk full"))
	_, err := p.Invoke(ctx, "Echo", "x")
	require.ErrorIs(t, err, ErrBackend)

	assert.Equal(t, 0, p.locks.size(), "failed fingerprints leave no lock behind")
}
