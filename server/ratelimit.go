package server

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	DefaultAttemptsPerMinute = 10
	visitorTTL               = 5 * time.Minute
)

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// ipRateLimiter keeps a token bucket per client IP
type ipRateLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	limit    rate.Limit
	burst    int
}

func newIPRateLimiter(attemptsPerMinute int) *ipRateLimiter {
	if attemptsPerMinute < 1 {
		attemptsPerMinute = DefaultAttemptsPerMinute
	}

	return &ipRateLimiter{
		visitors: make(map[string]*visitor),
		limit:    rate.Limit(float64(attemptsPerMinute) / 60.0),
		burst:    attemptsPerMinute,
	}
}

func (l *ipRateLimiter) allow(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	v, ok := l.visitors[ip]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.visitors[ip] = v
	}
	v.lastSeen = time.Now()

	return v.limiter.Allow()
}

// removeIdleVisitors forgets IPs that haven't been seen for a while
func (l *ipRateLimiter) removeIdleVisitors() {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := time.Now().Add(-visitorTTL)
	for ip, v := range l.visitors {
		if v.lastSeen.Before(cutoff) {
			delete(l.visitors, ip)
		}
	}
}
