package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/goliatone/go-cache-proxy/internal/cacheinfra"
)

// Driver selects the backend built by NewBackend.
type Driver string

const (
	DriverMemory  Driver = Driver(cacheinfra.DriverMemory)
	DriverLRU     Driver = Driver(cacheinfra.DriverLRU)
	DriverSturdyc Driver = Driver(cacheinfra.DriverSturdyc)
	DriverRedis   Driver = Driver(cacheinfra.DriverRedis)
	DriverSQLite  Driver = Driver(cacheinfra.DriverSQLite)
)

// Config exposes backend configuration options for consumers of the cache package.
type Config struct {
	Driver             Driver        `yaml:"driver" env:"DRIVER"`
	TTL                time.Duration `yaml:"ttl" env:"TTL"`
	Hash               string        `yaml:"hash" env:"HASH"`
	Capacity           int           `yaml:"capacity" env:"CAPACITY"`
	NumShards          int           `yaml:"num_shards" env:"NUM_SHARDS"`
	EvictionPercentage int           `yaml:"eviction_percentage" env:"EVICTION_PERCENTAGE"`
	EvictionInterval   time.Duration `yaml:"eviction_interval" env:"EVICTION_INTERVAL"`
	Redis              RedisConfig   `yaml:"redis" envPrefix:"REDIS_"`
	SQLite             SQLiteConfig  `yaml:"sqlite" envPrefix:"SQLITE_"`
}

// RedisConfig mirrors the redis connection options.
type RedisConfig struct {
	Addr      string `yaml:"addr" env:"ADDR"`
	Password  string `yaml:"password" env:"PASSWORD"`
	DB        int    `yaml:"db" env:"DB"`
	KeyPrefix string `yaml:"key_prefix" env:"KEY_PREFIX"`
}

// SQLiteConfig mirrors the sqlite options.
type SQLiteConfig struct {
	DSN string `yaml:"dsn" env:"DSN"`
}

// DefaultConfig returns a Config populated with sensible defaults.
func DefaultConfig() Config {
	cfg := convertFromInternal(cacheinfra.DefaultConfig())
	cfg.Hash = DefaultHashName
	return cfg
}

// Validate checks whether the configuration values are valid.
func (c Config) Validate() error {
	if err := c.toInternal().Validate(); err != nil {
		return err
	}
	if _, err := HashByName(c.Hash); err != nil {
		return &cacheinfra.ConfigError{Field: "Hash", Message: err.Error()}
	}
	return nil
}

// HashFunc resolves the configured hash name.
func (c Config) HashFunc() (HashFunc, error) {
	return HashByName(c.Hash)
}

// NewBackend constructs the backend selected by cfg.Driver.
// Redis and sqlite backends hold connections; callers that care should
// type assert to io.Closer when done.
func NewBackend(ctx context.Context, cfg Config) (Backend, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	internal := cfg.toInternal()

	var (
		backend Backend
		err     error
	)

	switch cfg.Driver {
	case DriverMemory:
		backend = cacheinfra.NewMemoryBackend()
	case DriverLRU:
		backend = cacheinfra.NewLRUBackend(cfg.Capacity, cfg.TTL)
	case DriverSturdyc:
		backend, err = cacheinfra.NewSturdycBackend(internal)
	case DriverRedis:
		backend, err = cacheinfra.DialRedis(ctx, internal.Redis)
	case DriverSQLite:
		backend, err = cacheinfra.OpenSQLiteBackend(ctx, cfg.SQLite.DSN)
	default:
		return nil, fmt.Errorf("unsupported cache driver: %q", cfg.Driver)
	}
	if err != nil {
		return nil, err
	}

	backend.SetLifetime(cfg.TTL)
	return backend, nil
}

// RegisterType makes the redis and sqlite drivers decode stored values of
// the given dynamic types back into those types. A type is registered
// automatically the first time a value of it is stored, so this is only
// needed to read entries a previous process wrote.
func RegisterType(values ...any) {
	cacheinfra.RegisterType(values...)
}

// NewMemoryBackend returns the map based backend. It stores the lifetime
// without ever expiring entries.
func NewMemoryBackend() Backend {
	return cacheinfra.NewMemoryBackend()
}

func (c Config) toInternal() cacheinfra.Config {
	return cacheinfra.Config{
		Driver:             cacheinfra.Driver(c.Driver),
		TTL:                c.TTL,
		Capacity:           c.Capacity,
		NumShards:          c.NumShards,
		EvictionPercentage: c.EvictionPercentage,
		EvictionInterval:   c.EvictionInterval,
		Redis: cacheinfra.RedisConfig{
			Addr:      c.Redis.Addr,
			Password:  c.Redis.Password,
			DB:        c.Redis.DB,
			KeyPrefix: c.Redis.KeyPrefix,
		},
		SQLite: cacheinfra.SQLiteConfig{
			DSN: c.SQLite.DSN,
		},
	}
}

func convertFromInternal(cfg cacheinfra.Config) Config {
	return Config{
		Driver:             Driver(cfg.Driver),
		TTL:                cfg.TTL,
		Capacity:           cfg.Capacity,
		NumShards:          cfg.NumShards,
		EvictionPercentage: cfg.EvictionPercentage,
		EvictionInterval:   cfg.EvictionInterval,
		Redis: RedisConfig{
			Addr:      cfg.Redis.Addr,
			Password:  cfg.Redis.Password,
			DB:        cfg.Redis.DB,
			KeyPrefix: cfg.Redis.KeyPrefix,
		},
		SQLite: SQLiteConfig{
			DSN: cfg.SQLite.DSN,
		},
	}
}
