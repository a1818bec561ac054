package cmd

import (
	"context"
	"time"

	"github.com/dailypick/dailypick/internal/config"
	"github.com/dailypick/dailypick/internal/core/catalog"
	"github.com/dailypick/dailypick/internal/core/engine"
	"github.com/dailypick/dailypick/internal/core/store"
	"github.com/dailypick/dailypick/internal/metrics"
	"github.com/dailypick/dailypick/internal/observability"
)

// app wires the store, limiter, cache and picker for one process.
type app struct {
	cfg     *config.Config
	store   *store.Store
	limiter *engine.RateLimiter
	catalog *catalog.Catalog
	picker  *engine.Picker
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	selection, err := config.BuildSelectionConfig(cfg.Selection)
	if err != nil {
		return nil, err
	}

	db, err := openStore(ctx, cfg.Store)
	if err != nil {
		return nil, err
	}

	limiter := newLimiter(cfg.RateLimit)

	opts := catalog.Options{
		Policy: catalog.CachePolicy{
			CandidatesTTL: cfg.Cache.TTL,
			OverridesTTL:  cfg.Cache.OverridesTTL,
		},
		OnCacheEvent:  metrics.RecordCacheEvent,
		OnRateLimited: metrics.RecordRateLimitDenied,
	}
	if logger := observability.ActiveLogger(); logger != nil {
		opts.Logger = logger
	}
	cat := catalog.New(db, limiter, opts)

	picker := &engine.Picker{
		Source:   cat,
		Recorder: cat,
		Config:   selection,
		Observer: metrics.RecordSelection,
		Clock:    func() time.Time { return time.Now().UTC() },
	}

	return &app{
		cfg:     cfg,
		store:   db,
		limiter: limiter,
		catalog: cat,
		picker:  picker,
	}, nil
}

// newLimiter builds the store limiter. A zero request budget or window
// disables limiting.
func newLimiter(cfg config.RateLimitConfig) *engine.RateLimiter {
	if cfg.MaxRequests <= 0 || cfg.Window <= 0 {
		return nil
	}
	limiter := engine.NewRateLimiter(cfg.MaxRequests, cfg.Window)
	limiter.ApplyOverrides(cfg.Overrides)
	limiter.ApplySafetyMargin(cfg.Margin)
	return limiter
}

func (a *app) Close() error {
	if a == nil {
		return nil
	}
	return a.store.Close()
}

// openApp loads configuration and builds the app.
func openApp(ctx context.Context, overrides ...map[string]any) (*app, error) {
	cfg, err := loadConfig(ctx, overrides...)
	if err != nil {
		return nil, err
	}
	return newApp(ctx, cfg)
}
