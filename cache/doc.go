// Package cache defines the storage contract and call fingerprinting used by
// the caching proxy.
//
// # Overview
//
//   - Backend: the get/set/has/lifetime capability a cache store must offer
//   - Call: the (subject type, method, ordered args) descriptor of a call
//   - KeySerializer: turns a Call into the bytes that get hashed
//   - HashFunc: turns those bytes into the cache key
//
// # Key Serialization Strategy
//
// The default serializer walks every argument with reflection and tags each
// value with its dynamic type, so 1, int64(1) and "1" never collide:
//
//	s := cache.NewDefaultKeySerializer()
//	payload, _ := s.SerializeKey(cache.NewCall("*app.Repo", "Find", 1, "a"))
//	// "*app.Repo"::"Find"::args[2]::int:1::string:"a"
//
//   - Strings are quoted, so separators inside values cannot fake a boundary
//   - Maps: pairs sorted by serialized key
//   - Structs: every field, unexported ones included
//   - Pointers: followed; a pointer cycle is written as type:cycle
//   - time.Time: RFC 3339 with nanoseconds
//   - Functions and channels: by address, stable only within one process
//
// NewMsgpackKeySerializer is a compact alternative. It only sees exported
// fields and rejects functions and channels.
//
// # Hashing
//
// MD5 is the default. SHA1, SHA256 and XXHash64 are built in, HashByName
// resolves them from configuration and NormalizeHashFunc adapts other
// function shapes, such as a hash.Hash constructor.
//
// # Backends
//
// NewBackend builds one of the bundled stores from a Config:
//
//	cfg := cache.DefaultConfig()
//	cfg.Driver = cache.DriverLRU
//	backend, err := cache.NewBackend(ctx, cfg)
//
// The memory driver records the lifetime but never expires entries. The lru,
// sturdyc, redis and sqlite drivers honor it.
package cache
