package engine

import (
	"math"
	"sort"
	"strings"
	"sync"
	"time"
)

// RateLimiter bounds calls per key with a sliding window log.
//
// Each key keeps the timestamps of its admitted calls. Timestamps older than
// the window are dropped lazily on access; there is no background sweeper.
type RateLimiter struct {
	MaxRequests int
	Window      time.Duration
	Limits      map[string]RateLimit
	Clock       func() time.Time
	Margin      float64

	mu      sync.Mutex
	windows map[string][]time.Time
}

// RateLimit represents a rate limit window.
type RateLimit struct {
	RequestsPerWindow int
	WindowDuration    time.Duration
}

// Decision is the outcome of a CheckLimit call.
type Decision struct {
	Allowed bool `json:"allowed"`
	// RetryAfterSeconds is zero when the call was admitted.
	RetryAfterSeconds int `json:"retry_after_seconds,omitempty"`
}

// RetryAfter returns the retry hint as a duration.
func (d Decision) RetryAfter() time.Duration {
	return time.Duration(d.RetryAfterSeconds) * time.Second
}

// Usage reports how much of a key's budget is in use.
type Usage struct {
	Used      int `json:"used"`
	Remaining int `json:"remaining"`
	Total     int `json:"total"`
}

// NewRateLimiter creates a limiter admitting maxRequests per trailing window.
func NewRateLimiter(maxRequests int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		MaxRequests: maxRequests,
		Window:      window,
		windows:     make(map[string][]time.Time),
	}
}

// CheckLimit admits or rejects a call for key. Rejected calls are not recorded.
func (r *RateLimiter) CheckLimit(key string) Decision {
	if r == nil {
		return Decision{Allowed: true}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	limit := r.getLimit(key)
	entries := r.prune(key, now, limit.WindowDuration)

	if len(entries) >= limit.RequestsPerWindow {
		resetAt := now.Add(limit.WindowDuration)
		if len(entries) > 0 {
			resetAt = entries[0].Add(limit.WindowDuration)
		}
		return Decision{
			Allowed:           false,
			RetryAfterSeconds: ceilSeconds(resetAt.Sub(now)),
		}
	}

	r.windows[key] = append(entries, now)
	return Decision{Allowed: true}
}

// Reset clears the history of one key.
func (r *RateLimiter) Reset(key string) {
	if r == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.windows, key)
}

// ResetAll clears every key.
func (r *RateLimiter) ResetAll() {
	if r == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.windows = make(map[string][]time.Time)
}

// Usage reports the in-window count for key without mutating state.
func (r *RateLimiter) Usage(key string) Usage {
	if r == nil {
		return Usage{}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	return r.usageLocked(key, r.now())
}

// Snapshot reports usage for every key with in-window calls, sorted by key.
func (r *RateLimiter) Snapshot() []KeyUsage {
	if r == nil {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	out := make([]KeyUsage, 0, len(r.windows))
	for key := range r.windows {
		usage := r.usageLocked(key, now)
		if usage.Used == 0 {
			continue
		}
		out = append(out, KeyUsage{Key: key, Usage: usage})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// KeyUsage pairs a key with its usage.
type KeyUsage struct {
	Key string `json:"key"`
	Usage
}

// ApplyOverrides merges per-key request overrides (per minute).
func (r *RateLimiter) ApplyOverrides(overrides map[string]int) {
	if r == nil || len(overrides) == 0 {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.Limits == nil {
		r.Limits = make(map[string]RateLimit, len(overrides))
	}

	for key, value := range overrides {
		key = strings.TrimSpace(key)
		if key == "" || value <= 0 {
			continue
		}
		r.Limits[key] = RateLimit{
			RequestsPerWindow: value,
			WindowDuration:    time.Minute,
		}
	}
}

// ApplySafetyMargin adjusts the effective request limits by a ratio (0-1].
func (r *RateLimiter) ApplySafetyMargin(margin float64) {
	if r == nil {
		return
	}
	if margin <= 0 || margin > 1 {
		return
	}
	r.mu.Lock()
	r.Margin = margin
	r.mu.Unlock()
}

func (r *RateLimiter) usageLocked(key string, now time.Time) Usage {
	limit := r.getLimit(key)
	cutoff := now.Add(-limit.WindowDuration)

	used := 0
	for _, ts := range r.windows[key] {
		if !ts.Before(cutoff) {
			used++
		}
	}

	remaining := limit.RequestsPerWindow - used
	if remaining < 0 {
		remaining = 0
	}
	return Usage{Used: used, Remaining: remaining, Total: limit.RequestsPerWindow}
}

// prune drops timestamps older than the window and stores the result.
func (r *RateLimiter) prune(key string, now time.Time, window time.Duration) []time.Time {
	if r.windows == nil {
		r.windows = make(map[string][]time.Time)
	}

	cutoff := now.Add(-window)
	entries := r.windows[key]
	kept := entries[:0]
	for _, ts := range entries {
		if !ts.Before(cutoff) {
			kept = append(kept, ts)
		}
	}

	if len(kept) == 0 {
		delete(r.windows, key)
		return nil
	}
	r.windows[key] = kept
	return kept
}

// Limit returns the effective limit for key after overrides and margin.
func (r *RateLimiter) Limit(key string) RateLimit {
	if r == nil {
		return RateLimit{}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.getLimit(key)
}

func (r *RateLimiter) getLimit(key string) RateLimit {
	if limit, ok := r.Limits[key]; ok {
		return r.applyMargin(limit)
	}
	return r.applyMargin(RateLimit{RequestsPerWindow: r.MaxRequests, WindowDuration: r.Window})
}

func (r *RateLimiter) now() time.Time {
	if r != nil && r.Clock != nil {
		return r.Clock()
	}
	return time.Now().UTC()
}

func (r *RateLimiter) applyMargin(limit RateLimit) RateLimit {
	if r.Margin <= 0 || r.Margin > 1 || limit.RequestsPerWindow <= 0 {
		return limit
	}
	adjusted := int(math.Floor(float64(limit.RequestsPerWindow) * r.Margin))
	if adjusted < 1 {
		adjusted = 1
	}
	limit.RequestsPerWindow = adjusted
	return limit
}

func ceilSeconds(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int(math.Ceil(d.Seconds()))
}
