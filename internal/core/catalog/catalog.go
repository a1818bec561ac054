// Package catalog is the protected client for the candidate store. Reads go
// through a stale-while-revalidate cache layered over the rate limiter; writes
// are rate limited and invalidate the affected cache.
package catalog

import (
	"context"
	"errors"
	"time"

	"github.com/dailypick/dailypick/internal/core"
	"github.com/dailypick/dailypick/internal/core/engine"
)

// Rate limiter keys for store round-trips.
const (
	KeyListCandidates  = "store:candidates"
	KeyOverrides       = "store:overrides"
	KeyRecordSelection = "store:record"
)

// Cache names reported to observers.
const (
	CacheCandidates = "candidates"
	CacheOverrides  = "overrides"
)

// Store is the upstream the catalog protects.
type Store interface {
	ListCandidates(ctx context.Context, query core.CandidateQuery) ([]core.Candidate, error)
	Overrides(ctx context.Context) (map[string]string, error)
	RecordSelection(ctx context.Context, entry core.HistoryEntry) error
}

// CachePolicy controls cache TTLs for catalog reads.
type CachePolicy struct {
	CandidatesTTL time.Duration
	OverridesTTL  time.Duration
}

func cachePolicyWithDefaults(policy CachePolicy) CachePolicy {
	if policy.CandidatesTTL <= 0 {
		policy.CandidatesTTL = engine.DefaultCacheTTL
	}
	if policy.OverridesTTL <= 0 {
		policy.OverridesTTL = time.Minute
	}
	return policy
}

// Options configures a Catalog.
type Options struct {
	Policy CachePolicy
	Logger engine.Logger
	Clock  func() time.Time
	// OnCacheEvent is called for every cache outcome.
	OnCacheEvent func(cache string, event engine.CacheEvent)
	// OnRateLimited is called when the limiter rejects a store call.
	OnRateLimited func(key string, retryAfterSeconds int)
}

// Catalog serves candidates and overrides from the store.
type Catalog struct {
	limiter    *engine.RateLimiter
	candidates *engine.Cache[[]core.Candidate]
	overrides  *engine.Cache[map[string]string]

	listFn      engine.Fetcher[core.CandidateQuery, []core.Candidate]
	overridesFn engine.Fetcher[struct{}, map[string]string]
	recordFn    engine.Fetcher[core.HistoryEntry, struct{}]

	onRateLimited func(key string, retryAfterSeconds int)
}

// New builds a catalog over store. A nil limiter admits every call.
func New(store Store, limiter *engine.RateLimiter, opts Options) *Catalog {
	policy := cachePolicyWithDefaults(opts.Policy)

	c := &Catalog{
		limiter:       limiter,
		candidates:    engine.NewCache[[]core.Candidate](policy.CandidatesTTL),
		overrides:     engine.NewCache[map[string]string](policy.OverridesTTL),
		onRateLimited: opts.OnRateLimited,
	}
	c.candidates.Clock = opts.Clock
	c.overrides.Clock = opts.Clock

	cacheOptions := func(name string) []engine.CacheOption {
		options := []engine.CacheOption{engine.WithLogger(opts.Logger)}
		if opts.OnCacheEvent != nil {
			options = append(options, engine.WithObserver(func(_ string, event engine.CacheEvent) {
				opts.OnCacheEvent(name, event)
			}))
		}
		return options
	}

	c.listFn = engine.WithCache(
		engine.WithRateLimit[core.CandidateQuery, []core.Candidate](store.ListCandidates, limiter, KeyListCandidates),
		c.candidates,
		func(q core.CandidateQuery) string { return engine.KeyFromParams(CacheCandidates, q.Params()) },
		cacheOptions(CacheCandidates)...,
	)

	c.overridesFn = engine.WithCache(
		engine.WithRateLimit[struct{}, map[string]string](func(ctx context.Context, _ struct{}) (map[string]string, error) {
			return store.Overrides(ctx)
		}, limiter, KeyOverrides),
		c.overrides,
		func(struct{}) string { return CacheOverrides },
		cacheOptions(CacheOverrides)...,
	)

	c.recordFn = engine.WithRateLimit[core.HistoryEntry, struct{}](func(ctx context.Context, entry core.HistoryEntry) (struct{}, error) {
		return struct{}{}, store.RecordSelection(ctx, entry)
	}, limiter, KeyRecordSelection)

	return c
}

// ListCandidates returns candidates matching query.
func (c *Catalog) ListCandidates(ctx context.Context, query core.CandidateQuery) ([]core.Candidate, error) {
	candidates, err := c.listFn(ctx, query)
	if err != nil {
		c.noteRateLimit(err)
		return nil, err
	}
	out := make([]core.Candidate, len(candidates))
	copy(out, candidates)
	return out, nil
}

// Overrides returns stored overrides keyed by date.
func (c *Catalog) Overrides(ctx context.Context) (map[string]string, error) {
	overrides, err := c.overridesFn(ctx, struct{}{})
	if err != nil {
		c.noteRateLimit(err)
		return nil, err
	}
	out := make(map[string]string, len(overrides))
	for date, id := range overrides {
		out[date] = id
	}
	return out, nil
}

// RecordSelection stores a pick and folds it into the cached listings, so the
// next read still hits the cache with the new last-selected date. Listings are
// dropped instead when the pick replaces another candidate's history for the
// same date.
func (c *Catalog) RecordSelection(ctx context.Context, entry core.HistoryEntry) error {
	if _, err := c.recordFn(ctx, entry); err != nil {
		c.noteRateLimit(err)
		return err
	}

	day, err := core.ParseDate(entry.Date)
	if err != nil {
		c.candidates.Clear()
		return nil
	}

	replaced := false
	c.candidates.Update(func(_ string, listing []core.Candidate) ([]core.Candidate, bool) {
		updated, changed, conflict := withSelection(listing, entry.CandidateID, day)
		replaced = replaced || conflict
		return updated, changed
	})
	if replaced {
		c.candidates.Clear()
	}
	return nil
}

// withSelection returns listing with id marked as selected on day. conflict
// reports another candidate already holding day.
func withSelection(listing []core.Candidate, id string, day time.Time) (updated []core.Candidate, changed, conflict bool) {
	for i, candidate := range listing {
		last := candidate.LastSelected
		if candidate.ID != id {
			if last != nil && last.Equal(day) {
				conflict = true
			}
			continue
		}
		if last != nil && !last.Before(day) {
			continue
		}
		if !changed {
			updated = make([]core.Candidate, len(listing))
			copy(updated, listing)
			changed = true
		}
		picked := day
		updated[i].LastSelected = &picked
	}
	if !changed {
		return listing, false, conflict
	}
	return updated, true, conflict
}

// InvalidateCandidates drops cached candidate listings.
func (c *Catalog) InvalidateCandidates() {
	c.candidates.Clear()
}

// InvalidateOverrides drops the cached override map.
func (c *Catalog) InvalidateOverrides() {
	c.overrides.Clear()
}

// CacheStats reports the freshness classification of each cache.
func (c *Catalog) CacheStats() map[string]engine.Stats {
	return map[string]engine.Stats{
		CacheCandidates: c.candidates.Stats(),
		CacheOverrides:  c.overrides.Stats(),
	}
}

// Cleanup evicts expired entries from every cache.
func (c *Catalog) Cleanup() int {
	return c.candidates.Cleanup() + c.overrides.Cleanup()
}

// Limiter returns the limiter guarding store calls.
func (c *Catalog) Limiter() *engine.RateLimiter {
	return c.limiter
}

func (c *Catalog) noteRateLimit(err error) {
	if c.onRateLimited == nil {
		return
	}
	var rlErr *engine.RateLimitError
	if errors.As(err, &rlErr) {
		c.onRateLimited(rlErr.Key, rlErr.RetryAfterSeconds)
	}
}
