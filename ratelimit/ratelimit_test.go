package ratelimit

import (
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
)

func TestSlidingWindow(t *testing.T) {
	mock := clock.NewMock()
	rl := NewRateLimiter(&RateLimiterConfig{
		MaxRequests:     2,
		WindowSize:      10 * time.Second,
		CleanupInterval: time.Hour,
	}, mock)
	defer rl.Stop()

	assert.True(t, rl.Allow("1.2.3.4"))
	mock.Add(4 * time.Second)
	assert.True(t, rl.Allow("1.2.3.4"))
	assert.False(t, rl.Allow("1.2.3.4"))
	assert.True(t, rl.Allow("5.6.7.8"), "keys are limited independently")

	// first request leaves the window
	mock.Add(6 * time.Second)
	assert.Equal(t, 1, rl.Count("1.2.3.4"))
	assert.True(t, rl.Allow("1.2.3.4"))
	assert.False(t, rl.Allow("1.2.3.4"))

	rl.Reset("1.2.3.4")
	assert.True(t, rl.Allow("1.2.3.4"))
}

func TestCleanupDropsIdleKeys(t *testing.T) {
	mock := clock.NewMock()
	rl := NewRateLimiter(&RateLimiterConfig{
		MaxRequests:     5,
		WindowSize:      time.Second,
		CleanupInterval: time.Minute,
	}, mock)
	defer rl.Stop()

	rl.Allow("a")
	rl.Allow("b")
	assert.Equal(t, 2, rl.size())

	mock.Add(2 * time.Second)
	rl.cleanup()
	assert.Equal(t, 0, rl.size())
}

func TestGlobalRateLimiter(t *testing.T) {
	mock := clock.NewMock()
	grl := NewGlobalRateLimiter(&GlobalRateLimiterConfig{
		IPConfig:     &RateLimiterConfig{MaxRequests: 1, WindowSize: time.Minute, CleanupInterval: time.Hour},
		WalletConfig: &RateLimiterConfig{MaxRequests: 2, WindowSize: time.Minute, CleanupInterval: time.Hour},
	}, mock)
	defer grl.Stop()

	assert.True(t, grl.AllowIP("10.0.0.1"))
	assert.False(t, grl.AllowIP("10.0.0.1"))
	assert.True(t, grl.AllowWallet("1Addr"))
	assert.True(t, grl.AllowWallet("1Addr"))
	assert.False(t, grl.AllowWallet("1Addr"))

	grl.Stop()
}

func TestGlobalRateLimiterCheck(t *testing.T) {
	mock := clock.NewMock()
	grl := NewGlobalRateLimiter(&GlobalRateLimiterConfig{
		IPConfig:     &RateLimiterConfig{MaxRequests: 1, WindowSize: time.Minute, CleanupInterval: time.Hour},
		WalletConfig: &RateLimiterConfig{MaxRequests: 1, WindowSize: time.Minute, CleanupInterval: time.Hour},
	}, mock)
	defer grl.Stop()

	assert.NoError(t, grl.CheckIP("10.0.0.1"))
	err := grl.CheckIP("10.0.0.1")
	var rle *RateLimitError
	assert.ErrorAs(t, err, &rle)
	assert.Equal(t, "ip", rle.Type)
	assert.Equal(t, "10.0.0.1", rle.Key)

	assert.NoError(t, grl.CheckWallet("1Addr"))
	assert.Error(t, grl.CheckWallet("1Addr"))

	mock.Add(time.Minute)
	assert.NoError(t, grl.CheckIP("10.0.0.1"))
}

func TestRateLimitError(t *testing.T) {
	err := NewRateLimitError("ip", "10.0.0.1", "slow down")
	assert.Equal(t, "rate limit exceeded for ip '10.0.0.1': slow down", err.Error())
}
