package gateway

import (
	"sync"

	"golang.org/x/time/rate"
)

// keyLimiter holds one token bucket per API credential. A nil keyLimiter
// allows everything.
type keyLimiter struct {
	limit rate.Limit
	burst int

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

func newKeyLimiter(perMinute int) *keyLimiter {
	if perMinute <= 0 {
		return nil
	}
	return &keyLimiter{
		limit:    rate.Limit(float64(perMinute) / 60),
		burst:    perMinute,
		limiters: make(map[string]*rate.Limiter),
	}
}

func (k *keyLimiter) allow(id string) bool {
	if k == nil {
		return true
	}
	k.mu.Lock()
	l, ok := k.limiters[id]
	if !ok {
		l = rate.NewLimiter(k.limit, k.burst)
		k.limiters[id] = l
	}
	k.mu.Unlock()
	return l.Allow()
}

// forget drops the bucket of a revoked credential.
func (k *keyLimiter) forget(id string) {
	if k == nil {
		return
	}
	k.mu.Lock()
	delete(k.limiters, id)
	k.mu.Unlock()
}
