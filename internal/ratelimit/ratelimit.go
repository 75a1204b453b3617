// Package ratelimit keeps one token bucket per key (client IP, Telegram user).
package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

type Keyed struct {
	rps   rate.Limit
	burst int
	idle  time.Duration
	now   func() time.Time

	mu       sync.Mutex
	visitors map[string]*visitor
}

// New returns a limiter allowing rps events per second with the given burst.
// Keys unused for idle are dropped by Sweep.
func New(rps float64, burst int, idle time.Duration) *Keyed {
	if burst <= 0 {
		burst = 1
	}
	return &Keyed{
		rps:      rate.Limit(rps),
		burst:    burst,
		idle:     idle,
		now:      time.Now,
		visitors: make(map[string]*visitor),
	}
}

func (k *Keyed) Allow(key string) bool {
	k.mu.Lock()
	v, ok := k.visitors[key]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(k.rps, k.burst)}
		k.visitors[key] = v
	}
	now := k.now()
	v.lastSeen = now
	k.mu.Unlock()
	return v.limiter.AllowN(now, 1)
}

// Sweep forgets idle keys and reports how many were removed.
func (k *Keyed) Sweep() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	cutoff := k.now().Add(-k.idle)
	n := 0
	for key, v := range k.visitors {
		if v.lastSeen.Before(cutoff) {
			delete(k.visitors, key)
			n++
		}
	}
	return n
}

// Run sweeps every interval until stop is closed.
func (k *Keyed) Run(interval time.Duration, stop <-chan struct{}) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-t.C:
			k.Sweep()
		case <-stop:
			return
		}
	}
}

func (k *Keyed) Len() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.visitors)
}
