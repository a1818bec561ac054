package engine

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/dailypick/dailypick/internal/core"
)

// MaxScheduleDays bounds a schedule preview.
const MaxScheduleDays = 366

// Source provides the candidate pool and stored overrides.
type Source interface {
	ListCandidates(ctx context.Context, query core.CandidateQuery) ([]core.Candidate, error)
	Overrides(ctx context.Context) (map[string]string, error)
}

// Recorder persists a daily pick.
type Recorder interface {
	RecordSelection(ctx context.Context, entry core.HistoryEntry) error
}

// Picker coordinates the selector with its data source.
type Picker struct {
	Source   Source
	Recorder Recorder
	Config   core.SelectionConfig
	// Observer is called with every result produced by Pick.
	Observer func(core.SelectionResult)
	Clock    func() time.Time

	mu       sync.RWMutex
	recorded map[string]string // date -> candidate ID written by this picker
}

// SetConfig swaps the selection config used by later picks.
func (p *Picker) SetConfig(cfg core.SelectionConfig) {
	p.mu.Lock()
	p.Config = cfg
	p.mu.Unlock()
}

// Pick selects the item for target's calendar date.
func (p *Picker) Pick(ctx context.Context, target time.Time) (core.SelectionResult, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	pool, cfg, err := p.load(ctx)
	if err != nil {
		return core.SelectionResult{}, err
	}

	result := SelectDailyItem(pool, target, cfg)
	p.observe(result)
	return result, nil
}

// Today selects the item for the current UTC date.
func (p *Picker) Today(ctx context.Context) (core.SelectionResult, error) {
	return p.Pick(ctx, p.now())
}

// PickAndRecord selects the item for target and records it as history.
// Nothing is recorded when the pool yields no selection, or when the same
// candidate is already recorded for the date.
func (p *Picker) PickAndRecord(ctx context.Context, target time.Time) (core.SelectionResult, error) {
	result, err := p.Pick(ctx, target)
	if err != nil {
		return result, err
	}
	if result.Candidate == nil || p.Recorder == nil || p.alreadyRecorded(result) {
		return result, nil
	}

	entry := core.HistoryEntry{
		Date:        result.Date,
		CandidateID: result.Candidate.ID,
		Path:        result.Path,
		RecordedAt:  p.now(),
	}
	if err := p.Recorder.RecordSelection(ctx, entry); err != nil {
		return result, fmt.Errorf("record selection for %s: %w", result.Date, err)
	}

	p.mu.Lock()
	if p.recorded == nil {
		p.recorded = make(map[string]string)
	}
	p.recorded[result.Date] = result.Candidate.ID
	p.mu.Unlock()
	return result, nil
}

// alreadyRecorded reports whether history already holds result's candidate
// for its date, either as written by this picker or as loaded from the store.
func (p *Picker) alreadyRecorded(result core.SelectionResult) bool {
	if last := result.Candidate.LastSelected; last != nil && core.FormatDate(*last) == result.Date {
		return true
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.recorded[result.Date] == result.Candidate.ID
}

// Schedule previews picks for days consecutive dates starting at from. Each
// pick is treated as recorded before the next day is evaluated, so the preview
// honours the anti-repeat window the same way daily recording would.
func (p *Picker) Schedule(ctx context.Context, from time.Time, days int) ([]core.SelectionResult, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if days < 1 || days > MaxScheduleDays {
		return nil, fmt.Errorf("days must be between 1 and %d", MaxScheduleDays)
	}

	pool, cfg, err := p.load(ctx)
	if err != nil {
		return nil, err
	}

	working := make([]core.Candidate, len(pool))
	copy(working, pool)
	positions := make(map[string]int, len(working))
	for i, candidate := range working {
		positions[candidate.ID] = i
	}

	start := core.TruncateDay(from)
	results := make([]core.SelectionResult, 0, days)
	for i := 0; i < days; i++ {
		target := start.AddDate(0, 0, i)
		result := SelectDailyItem(working, target, cfg)
		results = append(results, result)

		if result.Candidate == nil {
			continue
		}
		if idx, ok := positions[result.Candidate.ID]; ok {
			picked := target
			working[idx].LastSelected = &picked
		}
	}
	return results, nil
}

func (p *Picker) load(ctx context.Context) ([]core.Candidate, core.SelectionConfig, error) {
	cfg := p.config()
	if p == nil || p.Source == nil {
		return nil, cfg, nil
	}

	pool, err := p.Source.ListCandidates(ctx, core.CandidateQuery{})
	if err != nil {
		return nil, cfg, fmt.Errorf("load candidates: %w", err)
	}

	stored, err := p.Source.Overrides(ctx)
	if err != nil {
		return nil, cfg, fmt.Errorf("load overrides: %w", err)
	}
	cfg.Overrides = mergeOverrides(cfg.Overrides, stored)
	return pool, cfg, nil
}

func (p *Picker) config() core.SelectionConfig {
	if p == nil {
		return core.SelectionConfig{}
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.Config
}

// mergeOverrides layers stored overrides over configured ones.
func mergeOverrides(configured, stored map[string]string) map[string]string {
	if len(stored) == 0 {
		return configured
	}
	merged := make(map[string]string, len(configured)+len(stored))
	for date, id := range configured {
		merged[date] = id
	}
	for date, id := range stored {
		if strings.TrimSpace(id) == "" {
			continue
		}
		merged[date] = id
	}
	return merged
}

func (p *Picker) observe(result core.SelectionResult) {
	if p != nil && p.Observer != nil {
		p.Observer(result)
	}
}

func (p *Picker) now() time.Time {
	if p != nil && p.Clock != nil {
		return p.Clock()
	}
	return time.Now().UTC()
}
