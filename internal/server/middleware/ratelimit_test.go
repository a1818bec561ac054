package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestIngress(rps float64, burst int) (*IngressLimiter, *time.Time) {
	now := time.Date(2025, 3, 3, 12, 0, 0, 0, time.UTC)
	l := NewIngressLimiter(rps, burst, time.Minute)
	l.now = func() time.Time { return now }
	return l, &now
}

func TestIngressLimiterBurstThenRefill(t *testing.T) {
	l, now := newTestIngress(1, 2)

	ok, _ := l.Reserve("10.0.0.1")
	assert.True(t, ok)
	ok, _ = l.Reserve("10.0.0.1")
	assert.True(t, ok)

	ok, wait := l.Reserve("10.0.0.1")
	assert.False(t, ok)
	assert.InDelta(t, time.Second.Seconds(), wait.Seconds(), 0.01)

	// Other clients have their own bucket.
	ok, _ = l.Reserve("10.0.0.2")
	assert.True(t, ok)

	*now = now.Add(time.Second)
	ok, _ = l.Reserve("10.0.0.1")
	assert.True(t, ok, "a denied reservation must not consume the refilled token")
}

func TestIngressLimiterCleanup(t *testing.T) {
	l, now := newTestIngress(5, 5)

	l.Reserve("a")
	*now = now.Add(30 * time.Second)
	l.Reserve("b")
	require.Equal(t, 2, l.Clients())

	*now = now.Add(45 * time.Second)
	assert.Equal(t, 1, l.Cleanup())
	assert.Equal(t, 1, l.Clients())
}

func TestRateLimitMiddleware(t *testing.T) {
	l, _ := newTestIngress(0.5, 1)
	handler := RateLimit(l)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodGet, "/v1/daily", nil)
	req.RemoteAddr = "192.0.2.7:5555"

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "2", rec.Header().Get("Retry-After"))

	var body ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "RATE_LIMITED", body.Error.Code)
	assert.EqualValues(t, 2, body.Error.Details["retry_after_seconds"])
}

func TestRateLimitMiddlewareNil(t *testing.T) {
	called := false
	handler := RateLimit(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	assert.True(t, called)
}

func TestClientKey(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "198.51.100.4:1234"
	assert.Equal(t, "198.51.100.4", clientKey(req))

	req.RemoteAddr = "198.51.100.4"
	assert.Equal(t, "198.51.100.4", clientKey(req))
}
