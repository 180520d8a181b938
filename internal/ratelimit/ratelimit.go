// Package ratelimit provides a per-service call pacer used to keep
// outbound request rates under the limits the media hosts tolerate.
package ratelimit

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Limiter paces calls to one external service. Callers block in Acquire
// until a slot is available. A single mutex serializes waiters so delays
// accumulate instead of releasing a thundering herd.
type Limiter struct {
	mu      sync.Mutex
	limiter *rate.Limiter
	jitter  bool
}

// New builds a limiter allowing callsPerMinute sustained calls. A burst
// allowance of zero still permits a single immediate call so a freshly
// started process does not stall on its first request. When jitter is on,
// each enforced wait is stretched by up to 20 percent to avoid request
// trains landing in lockstep.
func New(callsPerMinute float64, burstAllowance int, jitter bool) *Limiter {
	if burstAllowance < 1 {
		burstAllowance = 1
	}
	return &Limiter{
		limiter: rate.NewLimiter(rate.Limit(callsPerMinute/60.0), burstAllowance),
		jitter:  jitter,
	}
}

// Acquire blocks until the caller may proceed or ctx is done.
func (l *Limiter) Acquire(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	r := l.limiter.Reserve()
	d := r.Delay()
	if d <= 0 {
		return nil
	}
	if l.jitter {
		d += time.Duration(rand.Int63n(int64(d)/5 + 1))
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		r.Cancel()
		return ctx.Err()
	}
}

// Registry holds one limiter per service name.
type Registry struct {
	mu       sync.Mutex
	limiters map[string]*Limiter
	defaults map[string]Config
}

// Config is the pacing profile for one service.
type Config struct {
	CallsPerMinute float64
	BurstAllowance int
	Jitter         bool
}

// NewRegistry builds a registry seeded with per-service profiles. Services
// without a profile fall back to the "default" entry, or a conservative
// 30 calls per minute when none is configured.
func NewRegistry(profiles map[string]Config) *Registry {
	return &Registry{
		limiters: make(map[string]*Limiter),
		defaults: profiles,
	}
}

// For returns the limiter for service, creating it on first use.
func (r *Registry) For(service string) *Limiter {
	r.mu.Lock()
	defer r.mu.Unlock()

	if lim, ok := r.limiters[service]; ok {
		return lim
	}
	cfg, ok := r.defaults[service]
	if !ok {
		cfg, ok = r.defaults["default"]
		if !ok {
			cfg = Config{CallsPerMinute: 30, BurstAllowance: 1, Jitter: true}
		}
	}
	lim := New(cfg.CallsPerMinute, cfg.BurstAllowance, cfg.Jitter)
	r.limiters[service] = lim
	return lim
}
