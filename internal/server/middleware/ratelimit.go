package middleware

import (
	"context"
	"math"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/fulmenhq/gofulmen/errors"
	"golang.org/x/time/rate"

	"github.com/dailypick/dailypick/internal/metrics"
)

// IngressLimiter throttles inbound requests with one token bucket per client
// address. Buckets idle longer than the TTL are dropped by Cleanup.
type IngressLimiter struct {
	mu      sync.Mutex
	clients map[string]*clientBucket
	rps     rate.Limit
	burst   int
	ttl     time.Duration
	now     func() time.Time
}

type clientBucket struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

// NewIngressLimiter builds a limiter allowing rps sustained requests per
// client with the given burst. A burst below one is raised to one.
func NewIngressLimiter(rps float64, burst int, ttl time.Duration) *IngressLimiter {
	if burst < 1 {
		burst = 1
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &IngressLimiter{
		clients: make(map[string]*clientBucket),
		rps:     rate.Limit(rps),
		burst:   burst,
		ttl:     ttl,
		now:     time.Now,
	}
}

// Reserve takes a token for the client. When none is available it returns
// false and the wait until the next token.
func (l *IngressLimiter) Reserve(client string) (bool, time.Duration) {
	now := l.now()

	l.mu.Lock()
	bucket, ok := l.clients[client]
	if !ok {
		bucket = &clientBucket{lim: rate.NewLimiter(l.rps, l.burst)}
		l.clients[client] = bucket
	}
	bucket.lastSeen = now
	l.mu.Unlock()

	res := bucket.lim.ReserveN(now, 1)
	if !res.OK() {
		return false, 0
	}
	delay := res.DelayFrom(now)
	if delay > 0 {
		res.CancelAt(now)
		return false, delay
	}
	return true, 0
}

// Cleanup drops idle client buckets and returns how many were removed.
func (l *IngressLimiter) Cleanup() int {
	cutoff := l.now().Add(-l.ttl)

	l.mu.Lock()
	defer l.mu.Unlock()

	removed := 0
	for client, bucket := range l.clients {
		if bucket.lastSeen.Before(cutoff) {
			delete(l.clients, client)
			removed++
		}
	}
	return removed
}

// Clients reports the number of tracked client buckets.
func (l *IngressLimiter) Clients() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.clients)
}

// StartJanitor runs Cleanup every interval until ctx is done.
func (l *IngressLimiter) StartJanitor(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				l.Cleanup()
			}
		}
	}()
}

// RateLimit rejects requests over the client's budget with 429 and a
// Retry-After header. A nil limiter passes everything through.
func RateLimit(l *IngressLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if l == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			allowed, wait := l.Reserve(clientKey(r))
			if allowed {
				next.ServeHTTP(w, r)
				return
			}

			retryAfter := int(math.Ceil(wait.Seconds()))
			if retryAfter < 1 {
				retryAfter = 1
			}
			metrics.RecordIngressRejected(r.URL.Path, http.StatusTooManyRequests)

			envelope := errors.NewErrorEnvelope("RATE_LIMITED", "too many requests").
				WithCorrelationID(GetRequestID(r.Context()))
			envelope = envelope.WithDetails(map[string]interface{}{
				"retry_after_seconds": retryAfter,
			})

			w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
			writeErrorResponse(w, envelope, http.StatusTooManyRequests)
		})
	}
}

func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
