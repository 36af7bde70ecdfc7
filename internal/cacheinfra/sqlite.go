package cacheinfra

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	_ "modernc.org/sqlite"
)

// sqliteEntry is a single stored fingerprint. ExpiresAt is a unix nano
// timestamp, 0 for entries written without a lifetime.
type sqliteEntry struct {
	bun.BaseModel `bun:"table:cache_entries"`

	Key       string `bun:"cache_key,pk"`
	Value     []byte `bun:"value"`
	ExpiresAt int64  `bun:"expires_at,notnull"`
}

const liveEntry = "(expires_at = 0 OR expires_at > ?)"

// SQLiteBackend persists entries in a SQLite table through bun.
// Expired rows are ignored on read and replaced on the next write.
type SQLiteBackend struct {
	db  *bun.DB
	now func() time.Time

	mu  sync.RWMutex
	ttl time.Duration
}

// OpenSQLiteBackend opens dsn with the pure Go sqlite driver.
func OpenSQLiteBackend(ctx context.Context, dsn string) (*SQLiteBackend, error) {
	sqldb, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", dsn, err)
	}
	// sqlite serializes writers anyway; one connection also keeps
	// in-memory databases shared across calls.
	sqldb.SetMaxOpenConns(1)

	backend, err := NewSQLiteBackend(ctx, bun.NewDB(sqldb, sqlitedialect.New()))
	if err != nil {
		_ = sqldb.Close()
		return nil, err
	}
	return backend, nil
}

// NewSQLiteBackend uses db as is and creates the entries table when missing.
func NewSQLiteBackend(ctx context.Context, db *bun.DB) (*SQLiteBackend, error) {
	_, err := db.NewCreateTable().
		Model((*sqliteEntry)(nil)).
		IfNotExists().
		Exec(ctx)
	if err != nil {
		return nil, fmt.Errorf("create cache table: %w", err)
	}

	return &SQLiteBackend{db: db, now: time.Now}, nil
}

func (b *SQLiteBackend) Get(ctx context.Context, key string) (any, bool, error) {
	var entry sqliteEntry

	err := b.db.NewSelect().
		Model(&entry).
		Where("cache_key = ?", key).
		Where(liveEntry, b.now().UnixNano()).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("sqlite get %s: %w", key, err)
	}

	value, err := decodeValue(entry.Value)
	if err != nil {
		return nil, false, err
	}
	return value, true, nil
}

func (b *SQLiteBackend) Set(ctx context.Context, key string, value any) error {
	data, err := encodeValue(value)
	if err != nil {
		return err
	}

	entry := &sqliteEntry{Key: key, Value: data}
	if ttl := b.Lifetime(); ttl > 0 {
		entry.ExpiresAt = b.now().Add(ttl).UnixNano()
	}

	_, err = b.db.NewInsert().
		Model(entry).
		On("CONFLICT (cache_key) DO UPDATE").
		Set("value = EXCLUDED.value").
		Set("expires_at = EXCLUDED.expires_at").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("sqlite set %s: %w", key, err)
	}
	return nil
}

func (b *SQLiteBackend) Has(ctx context.Context, key string) (bool, error) {
	exists, err := b.db.NewSelect().
		Model((*sqliteEntry)(nil)).
		Where("cache_key = ?", key).
		Where(liveEntry, b.now().UnixNano()).
		Exists(ctx)
	if err != nil {
		return false, fmt.Errorf("sqlite has %s: %w", key, err)
	}
	return exists, nil
}

// SetLifetime applies to entries written afterwards.
func (b *SQLiteBackend) SetLifetime(ttl time.Duration) {
	b.mu.Lock()
	b.ttl = ttl
	b.mu.Unlock()
}

func (b *SQLiteBackend) Lifetime() time.Duration {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.ttl
}

// Close closes the database handle.
func (b *SQLiteBackend) Close() error {
	return b.db.Close()
}
