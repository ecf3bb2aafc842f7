package ratelimit

import (
	"fmt"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/mezonai/starledger/exception"
)

// RateLimiterConfig holds configuration for rate limiting
type RateLimiterConfig struct {
	MaxRequests     int           // Maximum number of requests allowed
	WindowSize      time.Duration // Time window for rate limiting
	CleanupInterval time.Duration // How often to clean up expired entries
}

// DefaultConfig returns a default configuration
func DefaultConfig() *RateLimiterConfig {
	return &RateLimiterConfig{
		MaxRequests:     10,
		WindowSize:      time.Minute,
		CleanupInterval: 5 * time.Minute,
	}
}

// RateLimiter implements sliding window rate limiting
type RateLimiter struct {
	config      *RateLimiterConfig
	clock       clock.Clock
	requests    map[string][]time.Time // key -> request timestamps inside the window
	mu          sync.Mutex
	stopCleanup chan struct{}
	stopOnce    sync.Once
}

// NewRateLimiter creates a new rate limiter with the given configuration
func NewRateLimiter(config *RateLimiterConfig, clk clock.Clock) *RateLimiter {
	if config == nil {
		config = DefaultConfig()
	}
	if clk == nil {
		clk = clock.New()
	}

	rl := &RateLimiter{
		config:      config,
		clock:       clk,
		requests:    make(map[string][]time.Time),
		stopCleanup: make(chan struct{}),
	}

	exception.SafeGo("RateLimiterCleanup", rl.cleanupExpiredEntries)
	return rl
}

// pruneLocked drops timestamps at or before cutoff.
func pruneLocked(stamps []time.Time, cutoff time.Time) []time.Time {
	kept := stamps[:0]
	for _, ts := range stamps {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	return kept
}

// Allow checks if a request from the given key is allowed and records it if so
func (rl *RateLimiter) Allow(key string) bool {
	now := rl.clock.Now()
	cutoff := now.Add(-rl.config.WindowSize)

	rl.mu.Lock()
	defer rl.mu.Unlock()

	valid := pruneLocked(rl.requests[key], cutoff)
	if len(valid) >= rl.config.MaxRequests {
		rl.requests[key] = valid
		return false
	}
	rl.requests[key] = append(valid, now)
	return true
}

// Count returns how many requests of key fall inside the current window
func (rl *RateLimiter) Count(key string) int {
	cutoff := rl.clock.Now().Add(-rl.config.WindowSize)

	rl.mu.Lock()
	defer rl.mu.Unlock()

	n := 0
	for _, ts := range rl.requests[key] {
		if ts.After(cutoff) {
			n++
		}
	}
	return n
}

// Reset removes all entries for a given key
func (rl *RateLimiter) Reset(key string) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	delete(rl.requests, key)
}

func (rl *RateLimiter) cleanupExpiredEntries() {
	ticker := rl.clock.Ticker(rl.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.cleanup()
		case <-rl.stopCleanup:
			return
		}
	}
}

func (rl *RateLimiter) cleanup() {
	cutoff := rl.clock.Now().Add(-rl.config.WindowSize)

	rl.mu.Lock()
	defer rl.mu.Unlock()

	for key, stamps := range rl.requests {
		valid := pruneLocked(stamps, cutoff)
		if len(valid) == 0 {
			delete(rl.requests, key)
		} else {
			rl.requests[key] = valid
		}
	}
}

func (rl *RateLimiter) size() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.requests)
}

// Stop stops the cleanup goroutine
func (rl *RateLimiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.stopCleanup) })
}

// GlobalRateLimiter combines a per client IP limiter with a per wallet address limiter
type GlobalRateLimiter struct {
	ipLimiter     *RateLimiter
	walletLimiter *RateLimiter
}

// GlobalRateLimiterConfig holds configuration for global rate limiting
type GlobalRateLimiterConfig struct {
	IPConfig     *RateLimiterConfig
	WalletConfig *RateLimiterConfig
}

// DefaultGlobalConfig returns a default global configuration
func DefaultGlobalConfig() *GlobalRateLimiterConfig {
	return &GlobalRateLimiterConfig{
		IPConfig: &RateLimiterConfig{
			MaxRequests:     30,
			WindowSize:      time.Minute,
			CleanupInterval: 5 * time.Minute,
		},
		WalletConfig: &RateLimiterConfig{
			MaxRequests:     10,
			WindowSize:      time.Minute,
			CleanupInterval: 5 * time.Minute,
		},
	}
}

// NewGlobalRateLimiter creates a new global rate limiter
func NewGlobalRateLimiter(config *GlobalRateLimiterConfig, clk clock.Clock) *GlobalRateLimiter {
	if config == nil {
		config = DefaultGlobalConfig()
	}
	return &GlobalRateLimiter{
		ipLimiter:     NewRateLimiter(config.IPConfig, clk),
		walletLimiter: NewRateLimiter(config.WalletConfig, clk),
	}
}

// AllowIP checks if a request from the given IP is allowed
func (grl *GlobalRateLimiter) AllowIP(ip string) bool {
	return grl.ipLimiter.Allow(ip)
}

// AllowWallet checks if a request for the given wallet is allowed
func (grl *GlobalRateLimiter) AllowWallet(wallet string) bool {
	return grl.walletLimiter.Allow(wallet)
}

// CheckIP is AllowIP reporting a *RateLimitError when ip is over its limit.
func (grl *GlobalRateLimiter) CheckIP(ip string) error {
	if grl.AllowIP(ip) {
		return nil
	}
	return NewRateLimitError("ip", ip, fmt.Sprintf("max %d requests per %s", grl.ipLimiter.config.MaxRequests, grl.ipLimiter.config.WindowSize))
}

// CheckWallet is AllowWallet reporting a *RateLimitError when wallet is over its limit.
func (grl *GlobalRateLimiter) CheckWallet(wallet string) error {
	if grl.AllowWallet(wallet) {
		return nil
	}
	return NewRateLimitError("wallet", wallet, fmt.Sprintf("max %d requests per %s", grl.walletLimiter.config.MaxRequests, grl.walletLimiter.config.WindowSize))
}

// Stop stops all rate limiters
func (grl *GlobalRateLimiter) Stop() {
	grl.ipLimiter.Stop()
	grl.walletLimiter.Stop()
}

// RateLimitError represents a rate limit error
type RateLimitError struct {
	Type    string
	Key     string
	Message string
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limit exceeded for %s '%s': %s", e.Type, e.Key, e.Message)
}

// NewRateLimitError creates a new rate limit error
func NewRateLimitError(rateType, key, message string) *RateLimitError {
	return &RateLimitError{
		Type:    rateType,
		Key:     key,
		Message: message,
	}
}
