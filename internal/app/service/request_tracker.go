package service

import (
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
)

// RequestTracker hands out increasing fingerprints per scope so that only the
// newest request of a scope may deliver its result. Fingerprints are never reused,
// so an idle scope can expire after ttl without reviving a stale request.
type RequestTracker struct {
	mu      sync.Mutex
	seq     uint64
	current *cache.Cache
}

func NewRequestTracker(ttl time.Duration) *RequestTracker {
	return &RequestTracker{current: cache.New(ttl, 2*ttl)}
}

// Begin starts a new request in scope and returns its fingerprint.
// Any earlier fingerprint of the same scope stops being current.
func (t *RequestTracker) Begin(scope string) uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.seq++
	t.current.SetDefault(scope, t.seq)
	return t.seq
}

// IsCurrent reports whether fp is still the newest fingerprint of scope.
func (t *RequestTracker) IsCurrent(scope string, fp uint64) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	v, ok := t.current.Get(scope)
	return ok && v.(uint64) == fp
}
