package filter

import (
	"net/http"
	"strconv"
	"sync"
	"time"
)

// RateLimitConfig holds configuration for login rate limiting.
type RateLimitConfig struct {
	// MaxAttempts is the maximum number of attempts per window.
	MaxAttempts int

	// Window is the time window for attempts, and the lockout duration once
	// the limit is hit.
	Window time.Duration

	// Enabled controls whether rate limiting is active.
	Enabled bool
}

// DefaultRateLimitConfig returns default rate limiting configuration.
func DefaultRateLimitConfig() *RateLimitConfig {
	return &RateLimitConfig{
		MaxAttempts: 5,
		Window:      15 * time.Minute,
		Enabled:     true,
	}
}

// rateLimitEntry tracks state for a single client key.
type rateLimitEntry struct {
	attempts     int
	firstSeen    time.Time
	lockedOut    bool
	lockoutUntil time.Time
}

// LoginRateLimitFilter throttles login attempts per client IP. Only POST
// requests count as attempts; exceeding the limit locks the IP out for the
// configured window.
type LoginRateLimitFilter struct {
	mu      sync.Mutex
	entries map[string]*rateLimitEntry
	config  *RateLimitConfig
}

// NewLoginRateLimitFilter creates the filter and starts its background
// cleanup.
func NewLoginRateLimitFilter(config *RateLimitConfig) *LoginRateLimitFilter {
	if config == nil {
		config = DefaultRateLimitConfig()
	}
	f := &LoginRateLimitFilter{
		entries: make(map[string]*rateLimitEntry),
		config:  config,
	}
	go f.cleanupLoop()
	return f
}

// Name implements Filter.
func (f *LoginRateLimitFilter) Name() string { return "login-ratelimit" }

// Pre records the attempt and short-circuits with 429 once the client is
// locked out.
func (f *LoginRateLimitFilter) Pre(ctx *Context) Result {
	if !f.config.Enabled {
		return Continue
	}

	ip := ctx.ClientIP
	if ip == "" {
		ip = resolveClientIP(ctx.Request, nil)
		ctx.ClientIP = ip
	}

	if locked, remaining := f.isLockedOut(ip); locked {
		return tooManyAttempts(remaining)
	}

	// Only POST requests are actual login attempts.
	if ctx.Request.Method != http.MethodPost {
		return Continue
	}

	if allowed, retryIn := f.recordAttempt(ip); !allowed {
		return tooManyAttempts(retryIn)
	}
	return Continue
}

func tooManyAttempts(retryIn time.Duration) Result {
	resp := Text(http.StatusTooManyRequests, "Too many login attempts. Please try again later.")
	seconds := int(retryIn.Seconds())
	if seconds < 1 {
		seconds = 1
	}
	resp.Header.Set("Retry-After", strconv.Itoa(seconds))
	return Terminal(resp)
}

// recordAttempt counts one attempt and reports whether it is allowed along
// with the time until the window resets.
func (f *LoginRateLimitFilter) recordAttempt(key string) (bool, time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()

	now := time.Now()
	entry, exists := f.entries[key]

	if !exists || now.Sub(entry.firstSeen) > f.config.Window {
		f.entries[key] = &rateLimitEntry{attempts: 1, firstSeen: now}
		return true, f.config.Window
	}

	entry.attempts++
	if entry.attempts >= f.config.MaxAttempts {
		entry.lockedOut = true
		entry.lockoutUntil = now.Add(f.config.Window)
		return false, f.config.Window
	}

	return true, f.config.Window - now.Sub(entry.firstSeen)
}

// isLockedOut checks whether the key is currently locked out.
func (f *LoginRateLimitFilter) isLockedOut(key string) (bool, time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()

	entry, exists := f.entries[key]
	if !exists || !entry.lockedOut {
		return false, 0
	}

	now := time.Now()
	if now.After(entry.lockoutUntil) {
		delete(f.entries, key)
		return false, 0
	}
	return true, entry.lockoutUntil.Sub(now)
}

// cleanupLoop periodically removes stale entries.
func (f *LoginRateLimitFilter) cleanupLoop() {
	ticker := time.NewTicker(time.Minute)
	for range ticker.C {
		f.cleanup()
	}
}

func (f *LoginRateLimitFilter) cleanup() {
	f.mu.Lock()
	defer f.mu.Unlock()

	now := time.Now()
	for key, entry := range f.entries {
		if entry.lockedOut && now.After(entry.lockoutUntil) {
			delete(f.entries, key)
			continue
		}
		if !entry.lockedOut && now.Sub(entry.firstSeen) > f.config.Window {
			delete(f.entries, key)
		}
	}
}
