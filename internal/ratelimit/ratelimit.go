package ratelimit

import (
	"context"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/keithlinneman/sitepipe/internal/httpmw"
)

const (
	defaultPerSecond   = 10
	defaultBurst       = 30
	defaultTTL         = 5 * time.Minute
	defaultMaxVisitors = 100_000
)

// visitor tracks a single IP's limiter and last activity
type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
	// logged is reset when the entry is evicted and re-created
	logged bool
}

// IPLimiter holds per-IP rate limiters with background eviction
type IPLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor

	perSecond rate.Limit
	burst     int
	ttl       time.Duration

	// maxVisitors caps tracked addresses; 0 disables the cap
	maxVisitors int
	// atCapacity is set while the map is full so OnCapacity fires once per episode
	atCapacity bool

	// OnFirstDenied is called once per visitor when it first gets limited.
	OnFirstDenied func(ip string)
	// OnDenied is called on every denied request.
	OnDenied func(ip string)
	// OnCapacity is called when a new address is refused because the
	// visitor map is full.
	OnCapacity func()
}

type Option func(*IPLimiter)

// WithRate sets the refill rate and bucket size: WithRate(10, 50) allows 50
// requests at once, then 10 per second.
func WithRate(perSecond float64, burst int) Option {
	return func(l *IPLimiter) {
		l.perSecond = rate.Limit(perSecond)
		l.burst = burst
	}
}

// WithTTL controls how long an idle IP stays in the map before cleanup
func WithTTL(d time.Duration) Option {
	return func(l *IPLimiter) { l.ttl = d }
}

// WithMaxVisitors caps the number of tracked addresses. Zero means no cap.
func WithMaxVisitors(n int) Option {
	return func(l *IPLimiter) { l.maxVisitors = n }
}

// WithOnFirstDenied sets a callback for the first denial per visitor (logging).
func WithOnFirstDenied(fn func(ip string)) Option {
	return func(l *IPLimiter) { l.OnFirstDenied = fn }
}

// WithOnDenied sets a callback for every denied request (counters).
func WithOnDenied(fn func(ip string)) Option {
	return func(l *IPLimiter) { l.OnDenied = fn }
}

// WithOnCapacity sets a callback fired once each time the visitor map fills.
func WithOnCapacity(fn func()) Option {
	return func(l *IPLimiter) { l.OnCapacity = fn }
}

// New creates an IPLimiter and starts the cleanup goroutine, which exits
// when ctx is cancelled.
func New(ctx context.Context, opts ...Option) *IPLimiter {
	l := &IPLimiter{
		visitors:    make(map[string]*visitor),
		perSecond:   defaultPerSecond,
		burst:       defaultBurst,
		ttl:         defaultTTL,
		maxVisitors: defaultMaxVisitors,
	}
	for _, o := range opts {
		o(l)
	}
	go l.cleanup(ctx)
	return l
}

// allow reports whether ip may proceed. Hooks run after the lock is released.
func (l *IPLimiter) allow(ip string) bool {
	l.mu.Lock()
	v, exists := l.visitors[ip]
	if !exists {
		if l.maxVisitors > 0 && len(l.visitors) >= l.maxVisitors {
			first := !l.atCapacity
			l.atCapacity = true
			l.mu.Unlock()
			if first && l.OnCapacity != nil {
				l.OnCapacity()
			}
			if l.OnDenied != nil {
				l.OnDenied(ip)
			}
			return false
		}
		v = &visitor{limiter: rate.NewLimiter(l.perSecond, l.burst)}
		l.visitors[ip] = v
	}
	v.lastSeen = time.Now()
	allowed := v.limiter.Allow()
	firstDenial := !allowed && !v.logged
	if firstDenial {
		v.logged = true
	}
	l.mu.Unlock()

	if firstDenial && l.OnFirstDenied != nil {
		l.OnFirstDenied(ip)
	}
	if !allowed && l.OnDenied != nil {
		l.OnDenied(ip)
	}
	return allowed
}

// Len returns the number of tracked addresses.
func (l *IPLimiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.visitors)
}

func (l *IPLimiter) evict(now time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for ip, v := range l.visitors {
		if now.Sub(v.lastSeen) > l.ttl {
			delete(l.visitors, ip)
		}
	}
	if l.maxVisitors == 0 || len(l.visitors) < l.maxVisitors {
		l.atCapacity = false
	}
}

// cleanup runs every TTL/2 so idle entries live at most 1.5 TTL.
func (l *IPLimiter) cleanup(ctx context.Context) {
	ticker := time.NewTicker(l.ttl / 2)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			l.evict(now)
		}
	}
}

// Middleware rejects requests over the per-IP limit with 429. The client
// address comes from httpmw.ClientIP, which must run first.
func (l *IPLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := httpmw.ClientIPFromContext(r.Context())
		if !l.allow(ip) {
			// no detail about limits or remaining budget
			w.Header().Set("Retry-After", "30")
			http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}
