package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/dailypick/dailypick/internal/core"
	"github.com/dailypick/dailypick/internal/core/engine"
	apperrors "github.com/dailypick/dailypick/internal/errors"
)

// DefaultScheduleDays is the preview length when days is omitted.
const DefaultScheduleDays = 7

// Picker produces daily selections.
type Picker interface {
	Pick(ctx context.Context, target time.Time) (core.SelectionResult, error)
	PickAndRecord(ctx context.Context, target time.Time) (core.SelectionResult, error)
	Schedule(ctx context.Context, from time.Time, days int) ([]core.SelectionResult, error)
}

// Catalog is the cached, rate-limited view of the store.
type Catalog interface {
	ListCandidates(ctx context.Context, query core.CandidateQuery) ([]core.Candidate, error)
	CacheStats() map[string]engine.Stats
	Cleanup() int
	Limiter() *engine.RateLimiter
}

// API serves the /v1 endpoints.
type API struct {
	Picker  Picker
	Catalog Catalog
	// RecordPicks stores today's pick as history when /v1/daily serves it.
	RecordPicks bool
	Clock       func() time.Time
}

// CandidatesResponse lists catalog entries.
type CandidatesResponse struct {
	Count      int              `json:"count"`
	Candidates []core.Candidate `json:"candidates"`
}

// ScheduleResponse lists upcoming picks.
type ScheduleResponse struct {
	From  string                 `json:"from"`
	Days  int                    `json:"days"`
	Picks []core.SelectionResult `json:"picks"`
}

// LimitResponse reports one limiter key.
type LimitResponse struct {
	Key               string `json:"key"`
	Window            string `json:"window"`
	RequestsPerWindow int    `json:"requests_per_window"`
	engine.Usage
}

// CleanupResponse reports a cache sweep.
type CleanupResponse struct {
	Removed int `json:"removed"`
}

// Daily serves the pick for ?date= (default today, UTC).
func (a *API) Daily(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	today := core.TruncateDay(a.now())

	target := today
	if raw := strings.TrimSpace(r.URL.Query().Get("date")); raw != "" {
		parsed, err := core.ParseDate(raw)
		if err != nil {
			respondWithError(w, r, apperrors.WrapInvalidInput(ctx, err, "date must be YYYY-MM-DD"))
			return
		}
		target = parsed
	}

	var (
		result core.SelectionResult
		err    error
	)
	if a.RecordPicks && target.Equal(today) {
		result, err = a.Picker.PickAndRecord(ctx, target)
	} else {
		result, err = a.Picker.Pick(ctx, target)
	}
	if err != nil {
		respondWithError(w, r, apperrors.Classify(ctx, err, "daily selection failed"))
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// Schedule previews picks for ?from= (default today) over ?days= days.
func (a *API) Schedule(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	query := r.URL.Query()

	from := core.TruncateDay(a.now())
	if raw := strings.TrimSpace(query.Get("from")); raw != "" {
		parsed, err := core.ParseDate(raw)
		if err != nil {
			respondWithError(w, r, apperrors.WrapInvalidInput(ctx, err, "from must be YYYY-MM-DD"))
			return
		}
		from = parsed
	}

	days := DefaultScheduleDays
	if raw := strings.TrimSpace(query.Get("days")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > engine.MaxScheduleDays {
			if err == nil {
				err = fmt.Errorf("days %d out of range", n)
			}
			respondWithError(w, r, apperrors.WrapInvalidInput(ctx, err,
				fmt.Sprintf("days must be between 1 and %d", engine.MaxScheduleDays)))
			return
		}
		days = n
	}

	picks, err := a.Picker.Schedule(ctx, from, days)
	if err != nil {
		respondWithError(w, r, apperrors.Classify(ctx, err, "schedule preview failed"))
		return
	}

	writeJSON(w, http.StatusOK, ScheduleResponse{
		From:  core.FormatDate(from),
		Days:  days,
		Picks: picks,
	})
}

// Candidates lists the catalog filtered by ?category= and ?tag=.
func (a *API) Candidates(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	query := core.CandidateQuery{
		Category: r.URL.Query().Get("category"),
		Tag:      r.URL.Query().Get("tag"),
	}

	candidates, err := a.Catalog.ListCandidates(ctx, query)
	if err != nil {
		respondWithError(w, r, apperrors.Classify(ctx, err, "listing candidates failed"))
		return
	}
	if candidates == nil {
		candidates = []core.Candidate{}
	}

	writeJSON(w, http.StatusOK, CandidatesResponse{Count: len(candidates), Candidates: candidates})
}

// Limits reports usage for every key with calls in the current window.
func (a *API) Limits(w http.ResponseWriter, r *http.Request) {
	limiter := a.Catalog.Limiter()
	snapshot := limiter.Snapshot()

	out := make([]LimitResponse, 0, len(snapshot))
	for _, item := range snapshot {
		out = append(out, limitResponse(limiter, item.Key, item.Usage))
	}
	writeJSON(w, http.StatusOK, out)
}

// Limit reports usage for one key without consuming budget.
func (a *API) Limit(w http.ResponseWriter, r *http.Request) {
	key := strings.TrimSpace(chi.URLParam(r, "key"))
	if key == "" {
		respondWithError(w, r, apperrors.WrapInvalidInput(r.Context(), nil, "key is required"))
		return
	}

	limiter := a.Catalog.Limiter()
	writeJSON(w, http.StatusOK, limitResponse(limiter, key, limiter.Usage(key)))
}

// CacheStats reports entry freshness per cache.
func (a *API) CacheStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, a.Catalog.CacheStats())
}

// CacheCleanup evicts expired cache entries.
func (a *API) CacheCleanup(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, CleanupResponse{Removed: a.Catalog.Cleanup()})
}

func limitResponse(limiter *engine.RateLimiter, key string, usage engine.Usage) LimitResponse {
	limit := limiter.Limit(key)
	return LimitResponse{
		Key:               key,
		Window:            limit.WindowDuration.String(),
		RequestsPerWindow: limit.RequestsPerWindow,
		Usage:             usage,
	}
}

func (a *API) now() time.Time {
	if a.Clock != nil {
		return a.Clock()
	}
	return time.Now()
}
