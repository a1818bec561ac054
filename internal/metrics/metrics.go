// Package metrics names and emits the service's telemetry. Every recorder is
// a no-op until observability.InitMetrics has installed a telemetry system.
package metrics

import (
	"strconv"
	"time"

	"github.com/dailypick/dailypick/internal/observability"
)

// Process and HTTP error metrics
const (
	OperationsTotal     = "app_operations_total"
	ActiveConnections   = "app_active_connections"
	HealthCheckTotal    = "app_health_check_total"
	HealthCheckDuration = "app_health_check_duration_ms"
	ServerStartTime     = "app_server_start_time_seconds"
	ServerUptime        = "app_server_uptime_seconds"

	ErrorsTotal      = "errors_total"
	PanicsTotal      = "panics_total"
	ErrorsByEndpoint = "errors_by_endpoint"
)

func counter(name string, labels map[string]string) {
	if sys := observability.TelemetrySystem; sys != nil {
		_ = sys.Counter(name, 1, labels)
	}
}

func gauge(name string, value float64, labels map[string]string) {
	if sys := observability.TelemetrySystem; sys != nil {
		_ = sys.Gauge(name, value, labels)
	}
}

func histogram(name string, d time.Duration, labels map[string]string) {
	if sys := observability.TelemetrySystem; sys != nil {
		_ = sys.Histogram(name, d, labels)
	}
}

func outcome(ok bool, good, bad string) string {
	if ok {
		return good
	}
	return bad
}

// RecordOperation counts one CLI or API operation (pick, schedule, import...).
func RecordOperation(operation string, success bool) {
	counter(OperationsTotal, map[string]string{
		"operation": operation,
		"status":    outcome(success, "success", "failure"),
	})
}

// SetActiveConnections publishes the number of open HTTP connections.
func SetActiveConnections(count int64) {
	gauge(ActiveConnections, float64(count), nil)
}

// RecordHealthCheck records one dependency check run by the health probes.
func RecordHealthCheck(check string, healthy bool, duration time.Duration) {
	counter(HealthCheckTotal, map[string]string{
		"check":  check,
		"status": outcome(healthy, "healthy", "unhealthy"),
	})
	histogram(HealthCheckDuration, duration, map[string]string{"check": check})
}

// SetServerStartTime records the server start as a Unix timestamp.
func SetServerStartTime(timestamp int64) {
	gauge(ServerStartTime, float64(timestamp), nil)
}

// SetServerUptime records uptime in seconds.
func SetServerUptime(seconds int64) {
	gauge(ServerUptime, float64(seconds), nil)
}

// RecordError counts an error response by code and HTTP status.
func RecordError(code string, httpStatus int) {
	counter(ErrorsTotal, map[string]string{
		"error_code":  code,
		"http_status": strconv.Itoa(httpStatus),
	})
}

// RecordPanic counts a recovered handler panic.
func RecordPanic() {
	counter(PanicsTotal, nil)
}

// RecordErrorByEndpoint counts an error response by route pattern.
func RecordErrorByEndpoint(endpoint, code string) {
	counter(ErrorsByEndpoint, map[string]string{
		"endpoint":   endpoint,
		"error_code": code,
	})
}
