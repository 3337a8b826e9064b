package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	defaultRPS     = 5
	defaultBurst   = 10
	defaultIdleTTL = 10 * time.Minute
)

type (
	// Pool hands out one token bucket per key. Buckets idle for longer than the pool's TTL
	// are dropped on a later call.
	Pool struct {
		mu        sync.Mutex
		m         map[string]*entry
		rps       float64
		burst     int
		idleTTL   time.Duration
		now       func() time.Time
		lastSweep time.Time
	}

	entry struct {
		limiter  *rate.Limiter
		lastSeen time.Time
	}

	Option func(*Pool)
)

func WithIdleTTL(d time.Duration) Option {
	return func(p *Pool) {
		if d > 0 {
			p.idleTTL = d
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(p *Pool) {
		p.now = now
	}
}

// NewPool builds a pool; non-positive values fall back to 5 rps with a burst of 10.
func NewPool(rps float64, burst int, opts ...Option) *Pool {
	if rps <= 0 {
		rps = defaultRPS
	}
	if burst <= 0 {
		burst = defaultBurst
	}
	p := &Pool{
		m:       make(map[string]*entry),
		rps:     rps,
		burst:   burst,
		idleTTL: defaultIdleTTL,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	p.lastSweep = p.now()
	return p
}

func (p *Pool) get(key string) *rate.Limiter {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.now()
	if now.Sub(p.lastSweep) >= p.idleTTL {
		p.sweep(now)
	}

	e, ok := p.m[key]
	if !ok {
		e = &entry{limiter: rate.NewLimiter(rate.Limit(p.rps), p.burst)}
		p.m[key] = e
	}
	e.lastSeen = now
	return e.limiter
}

func (p *Pool) sweep(now time.Time) {
	for key, e := range p.m {
		if now.Sub(e.lastSeen) >= p.idleTTL {
			delete(p.m, key)
		}
	}
	p.lastSweep = now
}

func (p *Pool) Allow(key string) bool {
	return p.get(key).Allow()
}

// Len reports how many keys currently hold a bucket.
func (p *Pool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.m)
}
