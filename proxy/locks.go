package proxy

import (
	"sync"

	"github.com/puzpuzpuz/xsync/v3"
)

// fingerprintLocks serializes calls per fingerprint. An entry lives only
// while a call holds or waits for it, so the table stays as small as the
// number of fingerprints in flight.
type fingerprintLocks struct {
	m *xsync.MapOf[string, *fingerprintLock]
}

type fingerprintLock struct {
	mu   sync.Mutex
	refs int // guarded by the map bucket, only touched inside Compute
}

func newFingerprintLocks() *fingerprintLocks {
	return &fingerprintLocks{m: xsync.NewMapOf[string, *fingerprintLock]()}
}

// lock blocks until the caller owns hash and returns the release func.
func (l *fingerprintLocks) lock(hash string) (unlock func()) {
	entry, _ := l.m.Compute(hash, func(old *fingerprintLock, loaded bool) (*fingerprintLock, bool) {
		if !loaded {
			old = &fingerprintLock{}
		}
		old.refs++
		return old, false
	})
	entry.mu.Lock()

	return func() {
		entry.mu.Unlock()
		l.m.Compute(hash, func(old *fingerprintLock, loaded bool) (*fingerprintLock, bool) {
			if !loaded {
				return old, true
			}
			old.refs--
			return old, old.refs == 0
		})
	}
}

func (l *fingerprintLocks) size() int {
	return l.m.Size()
}
