package metrics

import (
	"strconv"

	"github.com/dailypick/dailypick/internal/core"
	"github.com/dailypick/dailypick/internal/core/engine"
)

// Selection and store-protection metrics
const (
	RateLimitDeniedTotal = "store_rate_limit_denied_total"
	RateLimitRetryAfter  = "store_rate_limit_retry_after_seconds"
	CacheLookupsTotal    = "cache_lookups_total"
	CacheEntries         = "cache_entries"
	SelectionsTotal      = "selections_total"
	SelectionPoolSize    = "selection_pool_size"
	IngressRejectedTotal = "ingress_rejected_total"
)

// RecordRateLimitDenied records a store call rejected by the limiter.
func RecordRateLimitDenied(key string, retryAfterSeconds int) {
	labels := map[string]string{"key": key}
	counter(RateLimitDeniedTotal, labels)
	gauge(RateLimitRetryAfter, float64(retryAfterSeconds), labels)
}

// RecordCacheEvent records one cache outcome (fresh, stale, miss, refreshed,
// refresh_failed).
func RecordCacheEvent(cache string, event engine.CacheEvent) {
	counter(CacheLookupsTotal, map[string]string{
		"cache":   cache,
		"outcome": string(event),
	})
}

// SetCacheEntries publishes the freshness classification of each cache.
func SetCacheEntries(stats map[string]engine.Stats) {
	for cache, s := range stats {
		for state, count := range map[string]int{"fresh": s.Fresh, "stale": s.Stale, "expired": s.Expired} {
			gauge(CacheEntries, float64(count), map[string]string{"cache": cache, "state": state})
		}
	}
}

// RecordSelection records a daily pick and the path that produced it.
func RecordSelection(result core.SelectionResult) {
	counter(SelectionsTotal, map[string]string{
		"path": string(result.Path),
		"rule": result.Rule,
	})
	gauge(SelectionPoolSize, float64(result.PoolSize), map[string]string{"path": string(result.Path)})
}

// RecordIngressRejected records an inbound request throttled by the server.
func RecordIngressRejected(route string, status int) {
	counter(IngressRejectedTotal, map[string]string{
		"route":       route,
		"http_status": strconv.Itoa(status),
	})
}
