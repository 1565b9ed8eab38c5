package finora

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
)

// pendingCall represents one in-flight operation shared between callers.
type pendingCall struct {
	done chan struct{}
	val  any
	err  error
}

// DeduplicationStats is a snapshot of the tracker counters.
type DeduplicationStats struct {
	Total        uint64
	Deduplicated uint64
	Rate         float64
}

// DeduplicationTracker coalesces concurrent identical operations: while one
// call for a key is in flight, further calls for the same key wait for its
// outcome instead of executing again. At most one pendingCall exists per key;
// the registration is dropped as soon as the owning call settles, so a later
// call after a failure runs fresh instead of replaying the failure.
type DeduplicationTracker struct {
	mu      sync.Mutex
	pending map[string]*pendingCall

	total        atomic.Uint64
	deduplicated atomic.Uint64
}

// NewDeduplicationTracker returns an empty tracker.
func NewDeduplicationTracker() *DeduplicationTracker {
	return &DeduplicationTracker{
		pending: make(map[string]*pendingCall),
	}
}

// Do executes fn unless an identical call keyed by key is already in flight,
// in which case it waits for that call's outcome. All callers for one key
// observe the same settled value or error. The check-then-register sequence
// is guarded by the tracker mutex.
func (t *DeduplicationTracker) Do(ctx context.Context, key string, fn func() (any, error)) (any, error) {
	t.total.Add(1)

	t.mu.Lock()
	if call, exists := t.pending[key]; exists {
		t.mu.Unlock()
		t.deduplicated.Add(1)
		select {
		case <-call.done:
			return call.val, call.err
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	call := &pendingCall{done: make(chan struct{})}
	t.pending[key] = call
	t.mu.Unlock()

	call.val, call.err = fn()

	t.mu.Lock()
	if t.pending[key] == call {
		delete(t.pending, key)
	}
	t.mu.Unlock()
	close(call.done)

	return call.val, call.err
}

// Forget drops the registration for key. The in-flight operation, if any,
// keeps running; new callers simply stop joining it.
func (t *DeduplicationTracker) Forget(key string) {
	t.mu.Lock()
	delete(t.pending, key)
	t.mu.Unlock()
}

// ForgetAll drops every registration.
func (t *DeduplicationTracker) ForgetAll() {
	t.mu.Lock()
	t.pending = make(map[string]*pendingCall)
	t.mu.Unlock()
}

// Pending returns the number of registered in-flight keys.
func (t *DeduplicationTracker) Pending() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.pending)
}

// Stats returns a snapshot of the tracker counters.
func (t *DeduplicationTracker) Stats() DeduplicationStats {
	total := t.total.Load()
	deduplicated := t.deduplicated.Load()

	var rate float64
	if total > 0 {
		rate = float64(deduplicated) / float64(total)
	}

	return DeduplicationStats{
		Total:        total,
		Deduplicated: deduplicated,
		Rate:         rate,
	}
}

// deduplicationKey builds the key identifying logically identical requests:
// method, normalized endpoint/params key, and a digest of the serialized
// body. A GET and a POST to the same endpoint never collide.
func deduplicationKey(method, cacheKey string, body any) string {
	if body == nil {
		return method + ":" + cacheKey
	}
	raw, err := json.Marshal(body)
	if err != nil {
		raw = []byte(fmt.Sprintf("%v", body))
	}
	sum := sha256.Sum256(raw)
	return fmt.Sprintf("%s:%s:%x", method, cacheKey, sum[:8])
}
