package cacheinfra

import (
	"errors"
	"sort"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Driver names a backend implementation.
type Driver string

const (
	DriverMemory  Driver = "memory"
	DriverLRU     Driver = "lru"
	DriverSturdyc Driver = "sturdyc"
	DriverRedis   Driver = "redis"
	DriverSQLite  Driver = "sqlite"
)

// noExpiry stands in for "never expire" on stores that need a positive TTL.
const noExpiry = 100 * 365 * 24 * time.Hour

// Config holds the configuration for every backend this package builds.
// Only the fields relevant to the selected Driver are read.
type Config struct {
	Driver Driver

	// TTL is the initial lifetime of entries. The proxy overrides it when the
	// backend is bound, so this mostly matters for standalone use.
	TTL time.Duration

	// Capacity bounds the number of entries for lru and sturdyc.
	// Zero means unbounded for lru. Must be greater than 0 for sturdyc.
	Capacity int

	// NumShards determines the number of sturdyc shards. Default: 256
	NumShards int

	// EvictionPercentage specifies what percentage of entries sturdyc evicts
	// when it reaches its capacity. Must be between 1-100. Default: 10
	EvictionPercentage int

	// EvictionInterval sets how often sturdyc checks for expired entries.
	// Zero value uses the default interval.
	EvictionInterval time.Duration

	Redis  RedisConfig
	SQLite SQLiteConfig
}

// RedisConfig carries connection parameters for the redis driver.
type RedisConfig struct {
	Addr      string
	Password  string
	DB        int
	KeyPrefix string
}

// SQLiteConfig carries the data source for the sqlite driver.
type SQLiteConfig struct {
	DSN string
}

// DefaultConfig returns a Config with sensible defaults for most use cases.
func DefaultConfig() Config {
	return Config{
		Driver:             DriverMemory,
		TTL:                120 * time.Second,
		Capacity:           10000,
		NumShards:          256,
		EvictionPercentage: 10,
		Redis: RedisConfig{
			Addr:      "localhost:6379",
			KeyPrefix: "cacheproxy:",
		},
		SQLite: SQLiteConfig{
			DSN: "file:cacheproxy.db",
		},
	}
}

// Validate checks if the configuration values are valid.
// Returns a *ConfigError naming the first offending field.
func (c Config) Validate() error {
	sturdy := c.Driver == DriverSturdyc

	err := validation.ValidateStruct(&c,
		validation.Field(&c.Driver,
			validation.Required,
			validation.In(DriverMemory, DriverLRU, DriverSturdyc, DriverRedis, DriverSQLite),
		),
		validation.Field(&c.TTL, validation.Min(time.Duration(0))),
		validation.Field(&c.Capacity,
			validation.Min(0),
			validation.When(sturdy, validation.Required),
		),
		validation.Field(&c.NumShards,
			validation.When(sturdy, validation.Required, validation.Min(1)),
		),
		validation.Field(&c.EvictionPercentage,
			validation.When(sturdy, validation.Required, validation.Min(1), validation.Max(100)),
		),
		validation.Field(&c.EvictionInterval, validation.Min(time.Duration(0))),
	)
	if err != nil {
		return toConfigError(err)
	}

	switch c.Driver {
	case DriverRedis:
		if err := validation.Validate(c.Redis.Addr, validation.Required); err != nil {
			return &ConfigError{Field: "Redis.Addr", Message: err.Error()}
		}
	case DriverSQLite:
		if err := validation.Validate(c.SQLite.DSN, validation.Required); err != nil {
			return &ConfigError{Field: "SQLite.DSN", Message: err.Error()}
		}
	}

	return nil
}

// ConfigError represents a configuration validation error.
type ConfigError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	return "config error in field " + e.Field + ": " + e.Message
}

func toConfigError(err error) error {
	var errs validation.Errors
	if !errors.As(err, &errs) || len(errs) == 0 {
		return err
	}

	fields := make([]string, 0, len(errs))
	for field := range errs {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	return &ConfigError{Field: fields[0], Message: errs[fields[0]].Error()}
}
