package server

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestIPRateLimiter(t *testing.T) {
	limiter := newIPRateLimiter(3)

	for i := 0; i < 3; i++ {
		assert.True(t, limiter.allow("10.0.0.1"))
	}
	assert.False(t, limiter.allow("10.0.0.1"), "Should block once the burst is used up")
	assert.True(t, limiter.allow("10.0.0.2"), "Limits are per IP")

	limiter.visitors["10.0.0.2"].lastSeen = time.Now().Add(-2 * visitorTTL)
	limiter.removeIdleVisitors()

	assert.Len(t, limiter.visitors, 1)
	assert.Contains(t, limiter.visitors, "10.0.0.1")
}

func TestNewIPRateLimiterDefaults(t *testing.T) {
	limiter := newIPRateLimiter(0)
	assert.Equal(t, DefaultAttemptsPerMinute, limiter.burst)
}
