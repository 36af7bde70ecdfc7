package testsupport

import "sync"

// RecordedCall is one call seen by a CallRecorder.
type RecordedCall struct {
	Op   string
	Args []any
}

// CallRecorder records the calls that reach a spy subject. It is safe for
// concurrent use.
type CallRecorder struct {
	mu    sync.Mutex
	calls []RecordedCall
}

// Record appends a call.
func (r *CallRecorder) Record(op string, args ...any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, RecordedCall{Op: op, Args: append([]any(nil), args...)})
}

// Calls returns a copy of the recorded calls in order.
func (r *CallRecorder) Calls() []RecordedCall {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]RecordedCall(nil), r.calls...)
}

// Count returns how many times op was recorded.
func (r *CallRecorder) Count(op string) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for _, c := range r.calls {
		if c.Op == op {
			n++
		}
	}
	return n
}

// Total returns the number of recorded calls.
func (r *CallRecorder) Total() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.calls)
}

// Reset forgets all recorded calls.
func (r *CallRecorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = nil
}
