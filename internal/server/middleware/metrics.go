package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/dailypick/dailypick/internal/observability"
)

// HTTP metric names, prefixed by the exporter namespace.
const (
	httpRequestsTotal     = "http_requests_total"
	httpRequestDuration   = "http_request_duration_ms"
	httpRequestSizeBytes  = "http_request_size_bytes"
	httpResponseSizeBytes = "http_response_size_bytes"
	httpErrorsTotal       = "http_errors_total"
)

// statusRecorder captures the status code and body size written by a handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int64
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func (s *statusRecorder) Write(b []byte) (int, error) {
	n, err := s.ResponseWriter.Write(b)
	s.bytes += int64(n)
	return n, err
}

var fixedEndpoints = map[string]string{
	"/":               "/",
	"/version":        "/version",
	"/metrics":        "/metrics",
	"/health":         "/health/*",
	"/health/live":    "/health/*",
	"/health/ready":   "/health/*",
	"/health/startup": "/health/*",
}

// getEndpointPattern returns the matched chi route, or a bounded fallback so
// raw paths never become metric labels.
func getEndpointPattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			return pattern
		}
	}

	path := r.URL.Path
	if pattern, ok := fixedEndpoints[path]; ok {
		return pattern
	}

	rest, ok := strings.CutPrefix(path, "/v1/")
	if !ok {
		return "/unknown"
	}
	segment, _, nested := strings.Cut(rest, "/")
	if segment == "limits" && nested {
		return "/v1/limits/{key}"
	}
	return "/v1/" + segment
}

func requestSize(r *http.Request) int64 {
	if r.ContentLength > 0 {
		return r.ContentLength
	}
	if size, err := strconv.ParseInt(r.Header.Get("Content-Length"), 10, 64); err == nil {
		return size
	}
	return 0
}

// RequestMetrics emits request count, latency, sizes and error counts per
// route, then logs the completed request.
func RequestMetrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sys := observability.TelemetrySystem
		if sys == nil {
			next.ServeHTTP(w, r)
			return
		}

		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		elapsed := time.Since(start)

		endpoint := getEndpointPattern(r)
		status := strconv.Itoa(rec.status)
		size := requestSize(r)
		labels := map[string]string{"method": r.Method, "endpoint": endpoint, "status": status}
		sizeLabels := map[string]string{"method": r.Method, "endpoint": endpoint}

		_ = sys.Counter(httpRequestsTotal, 1, labels)
		_ = sys.Histogram(httpRequestDuration, elapsed, labels)
		_ = sys.Gauge(httpRequestSizeBytes, float64(size), sizeLabels)
		_ = sys.Gauge(httpResponseSizeBytes, float64(rec.bytes), sizeLabels)

		if rec.status >= 400 {
			errorType := "client_error"
			if rec.status >= 500 {
				errorType = "server_error"
			}
			_ = sys.Counter(httpErrorsTotal, 1, map[string]string{
				"method":     r.Method,
				"endpoint":   endpoint,
				"status":     status,
				"error_type": errorType,
			})
		}

		if logger := observability.ServerLogger; logger != nil {
			logger.Info("HTTP request completed",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.String("endpoint", endpoint),
				zap.Int("status", rec.status),
				zap.Duration("duration", elapsed),
				zap.Int64("request_size", size),
				zap.Int64("response_size", rec.bytes),
				zap.String("requestID", GetRequestID(r.Context())))
		}
	})
}
