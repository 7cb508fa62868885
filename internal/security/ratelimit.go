package security

import (
	"errors"
	"sync"
	"time"
)

// ErrRateLimited is returned when a request exceeds the rate limit.
var ErrRateLimited = errors.New("rate limit exceeded")

// KindToolCall is the bucket consulted for every tool invocation.
const KindToolCall = "tool_call"

// RateLimitConfig holds configurable rate limits.
type RateLimitConfig struct {
	// ToolCallsPerMin caps tool calls in any sliding minute. Zero disables
	// the limit.
	ToolCallsPerMin int `yaml:"tool_calls_per_min,omitempty"`
}

// RateLimiter implements sliding window rate limiting.
// Each bucket tracks timestamps of recent events within its window.
type RateLimiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	now     func() time.Time
}

type bucket struct {
	window time.Duration
	limit  int
	events []time.Time
}

// NewRateLimiter creates a rate limiter with the given config.
// Limits that are not positive leave their kind unlimited.
func NewRateLimiter(cfg RateLimitConfig) *RateLimiter {
	rl := &RateLimiter{
		now:     time.Now,
		buckets: make(map[string]*bucket),
	}
	if cfg.ToolCallsPerMin > 0 {
		rl.buckets[KindToolCall] = &bucket{
			window: time.Minute,
			limit:  cfg.ToolCallsPerMin,
		}
	}
	return rl
}

// Enabled reports whether any limit is configured.
func (rl *RateLimiter) Enabled() bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.buckets) > 0
}

// Allow checks whether an event of the given kind is allowed.
// Returns nil if allowed, ErrRateLimited if the limit is exceeded.
// Kinds without a bucket are never limited.
func (rl *RateLimiter) Allow(kind string) error {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	b, ok := rl.buckets[kind]
	if !ok {
		return nil
	}

	now := rl.now()
	b.evict(now)

	if len(b.events) >= b.limit {
		return ErrRateLimited
	}

	b.events = append(b.events, now)
	return nil
}

// Limit returns the configured limit for kind, or 0 if kind is unlimited.
func (rl *RateLimiter) Limit(kind string) int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	if b, ok := rl.buckets[kind]; ok {
		return b.limit
	}
	return 0
}

// evict removes events outside the sliding window.
func (b *bucket) evict(now time.Time) {
	cutoff := now.Add(-b.window)
	// Events are chronologically ordered.
	i := 0
	for i < len(b.events) && b.events[i].Before(cutoff) {
		i++
	}
	if i > 0 {
		b.events = b.events[i:]
	}
}
