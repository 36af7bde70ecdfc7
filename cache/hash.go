package cache

import (
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// HashFunc turns a serialized call descriptor into a cache key.
type HashFunc func(payload []byte) string

// DefaultHashName is the hash used when nothing else is configured.
const DefaultHashName = "md5"

var (
	// ErrUnknownHash is returned by HashByName for names it does not know.
	ErrUnknownHash = errors.New("unknown hash function")
	// ErrInvalidHashFunc is returned by NormalizeHashFunc for unusable values.
	ErrInvalidHashFunc = errors.New("hash function is not a valid callback")
)

// MD5 returns the hex encoded md5 digest of payload.
func MD5(payload []byte) string {
	sum := md5.Sum(payload)
	return hex.EncodeToString(sum[:])
}

// SHA1 returns the hex encoded sha1 digest of payload.
func SHA1(payload []byte) string {
	sum := sha1.Sum(payload)
	return hex.EncodeToString(sum[:])
}

// SHA256 returns the hex encoded sha256 digest of payload.
func SHA256(payload []byte) string {
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}

// XXHash64 returns the 64 bit xxhash of payload as 16 hex characters.
// Much faster than the cryptographic digests, with a smaller key space.
func XXHash64(payload []byte) string {
	return fmt.Sprintf("%016x", xxhash.Sum64(payload))
}

// HashByName resolves one of the built in hash functions.
func HashByName(name string) (HashFunc, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "md5":
		return MD5, nil
	case "sha1":
		return SHA1, nil
	case "sha256":
		return SHA256, nil
	case "xxhash", "xxhash64":
		return XXHash64, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownHash, name)
}

// NormalizeHashFunc accepts the shapes a hash function comes in and returns
// it as a HashFunc. A string is resolved with HashByName; a hash.Hash
// constructor is hex encoded.
func NormalizeHashFunc(fn any) (HashFunc, error) {
	switch f := fn.(type) {
	case HashFunc:
		if f != nil {
			return f, nil
		}
	case func([]byte) string:
		if f != nil {
			return f, nil
		}
	case func(string) string:
		if f != nil {
			return func(payload []byte) string { return f(string(payload)) }, nil
		}
	case func() hash.Hash:
		if f != nil {
			return func(payload []byte) string {
				h := f()
				_, _ = h.Write(payload)
				return hex.EncodeToString(h.Sum(nil))
			}, nil
		}
	case string:
		named, err := HashByName(f)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidHashFunc, err)
		}
		return named, nil
	}
	return nil, fmt.Errorf("%w: %T", ErrInvalidHashFunc, fn)
}
