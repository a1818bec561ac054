package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func fetchVersion(t *testing.T) VersionResponse {
	t.Helper()

	rec := httptest.NewRecorder()
	VersionHandler(rec, httptest.NewRequest(http.MethodGet, "/version", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}

	var resp VersionResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	return resp
}

func TestVersionHandlerIncludesBuildMetadata(t *testing.T) {
	SetVersionInfo("1.2.3", "abcd123", "2025-11-07T12:00:00Z")
	SetAppName("dailypick")
	t.Cleanup(func() { SetAppName("") })

	resp := fetchVersion(t)

	if resp.App.Name != "dailypick" {
		t.Fatalf("expected app name dailypick, got %s", resp.App.Name)
	}
	if resp.App.Version != "1.2.3" || resp.App.Commit != "abcd123" {
		t.Fatalf("unexpected build metadata: %+v", resp.App)
	}
	if resp.App.StartedAt != "" {
		t.Fatalf("expected no start time before SetStartTime, got %s", resp.App.StartedAt)
	}
	if resp.Dependencies.Gofulmen == "" || resp.Dependencies.Crucible == "" {
		t.Fatal("expected dependency versions to be populated")
	}
}

func TestVersionHandlerReportsUptime(t *testing.T) {
	SetStartTime(time.Now().Add(-90 * time.Second))
	t.Cleanup(func() { SetStartTime(time.Time{}) })

	resp := fetchVersion(t)

	if resp.App.StartedAt == "" {
		t.Fatal("expected started_at to be set")
	}
	if resp.App.UptimeSeconds < 90 {
		t.Fatalf("expected uptime >= 90s, got %d", resp.App.UptimeSeconds)
	}
}
