package engine

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Fetcher is a protected producer call, typically a round-trip to the store.
type Fetcher[A any, T any] func(ctx context.Context, args A) (T, error)

// RateLimitError is returned by a WithRateLimit fetcher when the limiter
// denies the call. No upstream attempt is made.
type RateLimitError struct {
	Key               string
	RetryAfterSeconds int
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limit exceeded for %s: retry in %ds", e.Key, e.RetryAfterSeconds)
}

// RetryAfter returns the retry hint as a duration.
func (e *RateLimitError) RetryAfter() time.Duration {
	return time.Duration(e.RetryAfterSeconds) * time.Second
}

// WithRateLimit guards fn with limiter under a fixed key.
func WithRateLimit[A any, T any](fn Fetcher[A, T], limiter *RateLimiter, key string) Fetcher[A, T] {
	return func(ctx context.Context, args A) (T, error) {
		decision := limiter.CheckLimit(key)
		if !decision.Allowed {
			var zero T
			return zero, &RateLimitError{Key: key, RetryAfterSeconds: decision.RetryAfterSeconds}
		}
		return fn(ctx, args)
	}
}

// Logger is the subset of the application loggers used by the wrappers.
type Logger interface {
	Warn(msg string, fields ...zap.Field)
}

// CacheEvent names a cache outcome reported to observers.
type CacheEvent string

const (
	CacheEventFresh         CacheEvent = "fresh"
	CacheEventStale         CacheEvent = "stale"
	CacheEventMiss          CacheEvent = "miss"
	CacheEventRefreshed     CacheEvent = "refreshed"
	CacheEventRefreshFailed CacheEvent = "refresh_failed"
)

// CacheOption configures WithCache.
type CacheOption func(*cacheOptions)

type cacheOptions struct {
	logger   Logger
	observer func(key string, event CacheEvent)
}

// WithLogger sets the logger used for background refresh failures.
func WithLogger(logger Logger) CacheOption {
	return func(o *cacheOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithObserver registers a callback for every cache outcome.
func WithObserver(observer func(key string, event CacheEvent)) CacheOption {
	return func(o *cacheOptions) {
		o.observer = observer
	}
}

// WithCache serves fn through cache using stale-while-revalidate.
//
// Fresh hits return without calling fn. Stale hits return the stored value and
// start one detached refresh; its failure is logged, never returned. Misses
// call fn and propagate its error unchanged. Concurrent misses and refreshes
// for the same key share a single in-flight call.
func WithCache[A any, T any](fn Fetcher[A, T], cache *Cache[T], keyFn func(A) string, opts ...CacheOption) Fetcher[A, T] {
	options := cacheOptions{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&options)
	}

	var group singleflight.Group

	// produce runs fn detached from the caller's cancellation. Results that
	// race with an invalidation are returned but not cached.
	produce := func(ctx context.Context, key string, args A, refresh bool) func() (any, error) {
		detached := context.WithoutCancel(ctx)
		return func() (any, error) {
			gen := cache.Generation()
			value, err := fn(detached, args)
			if err != nil {
				if refresh {
					options.logger.Warn("Background cache refresh failed",
						zap.String("key", key),
						zap.Error(err))
					options.observe(key, CacheEventRefreshFailed)
				}
				return nil, err
			}
			stored := cache.SetIfGeneration(key, value, gen)
			if refresh && stored {
				options.observe(key, CacheEventRefreshed)
			}
			return value, nil
		}
	}

	return func(ctx context.Context, args A) (T, error) {
		if ctx == nil {
			ctx = context.Background()
		}

		key := keyFn(args)

		if lookup, ok := cache.Get(key); ok {
			if !lookup.IsStale {
				options.observe(key, CacheEventFresh)
				return lookup.Data, nil
			}

			options.observe(key, CacheEventStale)
			// DoChan registers the flight synchronously; the buffered result
			// channel is dropped.
			_ = group.DoChan(key, produce(ctx, key, args, true))
			return lookup.Data, nil
		}

		options.observe(key, CacheEventMiss)
		// The shared producer outlives any single waiter; each waiter stops
		// on its own context.
		select {
		case <-ctx.Done():
			var zero T
			return zero, ctx.Err()
		case res := <-group.DoChan(key, produce(ctx, key, args, false)):
			if res.Err != nil {
				var zero T
				return zero, res.Err
			}
			value, _ := res.Val.(T)
			return value, nil
		}
	}
}

func (o cacheOptions) observe(key string, event CacheEvent) {
	if o.observer != nil {
		o.observer(key, event)
	}
}

// KeyFromParams builds a cache key from a prefix and named parameters. The
// encoding is sorted by name and skips empty values, so logically identical
// calls share a key regardless of parameter order.
func KeyFromParams(prefix string, params map[string]string) string {
	values := url.Values{}
	for name, value := range params {
		name = strings.TrimSpace(name)
		if name == "" || value == "" {
			continue
		}
		values.Set(name, value)
	}

	encoded := values.Encode()
	if encoded == "" {
		return prefix
	}
	return prefix + "?" + encoded
}
