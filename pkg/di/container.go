package di

import (
	"context"
	"io"

	"github.com/goliatone/go-cache-proxy/cache"
	"github.com/goliatone/go-cache-proxy/proxy"
)

// Container wires the cache components shared by every proxy it builds.
// It owns one backend, one key serializer and one hash function, all
// derived from a cache.Config.
type Container struct {
	backend       cache.Backend
	keySerializer cache.KeySerializer
	hashFunc      cache.HashFunc
	config        cache.Config
}

// NewContainer creates a container from config, dialing the backend if the
// driver needs a connection.
func NewContainer(config cache.Config) (*Container, error) {
	return NewContainerContext(context.Background(), config)
}

// NewContainerContext is NewContainer with a context for backend setup.
func NewContainerContext(ctx context.Context, config cache.Config) (*Container, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	hashFunc, err := config.HashFunc()
	if err != nil {
		return nil, err
	}

	backend, err := cache.NewBackend(ctx, config)
	if err != nil {
		return nil, err
	}

	return &Container{
		backend:       backend,
		keySerializer: cache.NewDefaultKeySerializer(),
		hashFunc:      hashFunc,
		config:        config,
	}, nil
}

// NewContainerWithDefaults creates a container backed by the in-memory driver.
func NewContainerWithDefaults() (*Container, error) {
	return NewContainer(cache.DefaultConfig())
}

// Backend returns the shared backend.
func (c *Container) Backend() cache.Backend {
	return c.backend
}

// KeySerializer returns the shared key serializer.
func (c *Container) KeySerializer() cache.KeySerializer {
	return c.keySerializer
}

// HashFunc returns the configured fingerprint hash.
func (c *Container) HashFunc() cache.HashFunc {
	return c.hashFunc
}

// Config returns a copy of the configuration used by this container.
func (c *Container) Config() cache.Config {
	return c.config
}

// NewProxy builds a proxy for subject on the shared backend. Proxies from the
// same container see each other's entries, so hits on entries another proxy
// stored are counted rather than rejected. opts are applied after the
// container defaults.
func (c *Container) NewProxy(subject any, opts ...proxy.Option) (*proxy.Proxy, error) {
	defaults := []proxy.Option{
		proxy.WithHashFunc(c.hashFunc),
		proxy.WithSerializer(c.keySerializer),
		proxy.WithAdoptEntries(),
	}

	p := proxy.New(append(defaults, opts...)...)
	if err := p.SetSubject(subject); err != nil {
		return nil, err
	}
	if err := p.SetCache(c.backend, c.config.TTL); err != nil {
		return nil, err
	}
	return p, nil
}

// Close releases the backend connection, if it holds one.
func (c *Container) Close() error {
	if closer, ok := c.backend.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}
