package proxy

import "github.com/puzpuzpuz/xsync/v3"

// hitCounter tracks cache hits per fingerprint since first population.
type hitCounter struct {
	counts *xsync.MapOf[string, int64]
}

func newHitCounter() *hitCounter {
	return &hitCounter{counts: xsync.NewMapOf[string, int64]()}
}

// Initialize sets the count for hash to 0, creating the entry if needed.
func (h *hitCounter) Initialize(hash string) {
	h.counts.Store(hash, 0)
}

// Increment adds one hit. Unknown fingerprints are not created.
func (h *hitCounter) Increment(hash string) (int64, error) {
	n, ok := h.counts.Compute(hash, func(old int64, loaded bool) (int64, bool) {
		if !loaded {
			return 0, true
		}
		return old + 1, false
	})
	if !ok {
		return 0, unknownFingerprint(hash)
	}
	return n, nil
}

// Adopt is Increment for entries populated outside this counter, such as by
// another process sharing the backend. An unknown fingerprint starts at 1.
func (h *hitCounter) Adopt(hash string) int64 {
	n, _ := h.counts.Compute(hash, func(old int64, loaded bool) (int64, bool) {
		if !loaded {
			return 1, false
		}
		return old + 1, false
	})
	return n
}

// Get returns the current count for hash.
func (h *hitCounter) Get(hash string) (int64, error) {
	n, ok := h.counts.Load(hash)
	if !ok {
		return 0, unknownFingerprint(hash)
	}
	return n, nil
}

// Len returns the number of tracked fingerprints.
func (h *hitCounter) Len() int {
	return h.counts.Size()
}

func unknownFingerprint(hash string) *Error {
	return newError(CodeUnknownFingerprint, "cache key %s does not exist", hash)
}
