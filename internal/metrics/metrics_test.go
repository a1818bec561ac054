package metrics

import (
	"testing"
	"time"

	"github.com/fulmenhq/gofulmen/telemetry"
	telemetrytesting "github.com/fulmenhq/gofulmen/telemetry/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dailypick/dailypick/internal/core"
	"github.com/dailypick/dailypick/internal/core/engine"
	"github.com/dailypick/dailypick/internal/observability"
)

func withCollector(t *testing.T) *telemetrytesting.FakeCollector {
	t.Helper()

	collector := telemetrytesting.NewFakeCollector()
	sys, err := telemetry.NewSystem(&telemetry.Config{Enabled: true, Emitter: collector})
	require.NoError(t, err)

	original := observability.TelemetrySystem
	observability.TelemetrySystem = sys
	t.Cleanup(func() { observability.TelemetrySystem = original })

	return collector
}

func TestRecordersWithoutTelemetry(t *testing.T) {
	original := observability.TelemetrySystem
	observability.TelemetrySystem = nil
	t.Cleanup(func() { observability.TelemetrySystem = original })

	assert.NotPanics(t, func() {
		RecordOperation("pick", true)
		RecordHealthCheck("store", false, time.Millisecond)
		RecordSelection(core.SelectionResult{Path: core.PathNone})
		SetCacheEntries(map[string]engine.Stats{"candidates": {Fresh: 1}})
		RecordRateLimitDenied("store:record", 2)
	})
}

func TestDomainRecorders(t *testing.T) {
	collector := withCollector(t)

	RecordSelection(core.SelectionResult{Path: core.PathPriority, Rule: "december", PoolSize: 3})
	RecordSelection(core.SelectionResult{Path: core.PathFullPool, PoolSize: 9})
	RecordRateLimitDenied("store:candidates", 12)
	RecordCacheEvent("candidates", engine.CacheEventStale)
	RecordIngressRejected("/v1/daily", 429)
	SetCacheEntries(map[string]engine.Stats{
		"candidates": {Total: 2, Fresh: 1, Stale: 1},
		"overrides":  {Total: 1, Expired: 1},
	})

	assert.Equal(t, 2, collector.CountMetricsByName(SelectionsTotal))
	assert.Equal(t, 2, collector.CountMetricsByName(SelectionPoolSize))
	assert.Equal(t, 1, collector.CountMetricsByName(RateLimitDeniedTotal))
	assert.Equal(t, 1, collector.CountMetricsByName(RateLimitRetryAfter))
	assert.Equal(t, 1, collector.CountMetricsByName(CacheLookupsTotal))
	assert.Equal(t, 1, collector.CountMetricsByName(IngressRejectedTotal))
	assert.Equal(t, 6, collector.CountMetricsByName(CacheEntries))
}

func TestProcessRecorders(t *testing.T) {
	collector := withCollector(t)

	RecordOperation("schedule", false)
	RecordHealthCheck("store", true, 3*time.Millisecond)
	RecordError("RATE_LIMITED", 429)
	RecordErrorByEndpoint("/v1/daily", "RATE_LIMITED")
	RecordPanic()
	SetServerUptime(42)

	assert.Equal(t, 1, collector.CountMetricsByName(OperationsTotal))
	assert.Equal(t, 1, collector.CountMetricsByName(HealthCheckTotal))
	assert.Greater(t, collector.CountMetricsByName(HealthCheckDuration), 0)
	assert.Equal(t, 1, collector.CountMetricsByName(ErrorsTotal))
	assert.Equal(t, 1, collector.CountMetricsByName(ErrorsByEndpoint))
	assert.Equal(t, 1, collector.CountMetricsByName(PanicsTotal))
	assert.Equal(t, 1, collector.CountMetricsByName(ServerUptime))
}
