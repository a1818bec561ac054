package engine

import (
	"strings"
	"time"

	"github.com/dailypick/dailypick/internal/core"
)

// priorityWeight is the share, in tenths, of days on which an active priority
// rule narrows the pool.
const priorityWeight = 7

// Seed derives the selection seed for a calendar date: year*1000 + day of year,
// both taken in UTC.
func Seed(target time.Time) int {
	u := target.UTC()
	return u.Year()*1000 + u.YearDay()
}

// SelectDailyItem deterministically picks one candidate for target's UTC
// calendar date. It reads no clock and mutates nothing; the same pool, date
// and config always produce the same result.
func SelectDailyItem(pool []core.Candidate, target time.Time, cfg core.SelectionConfig) core.SelectionResult {
	return selectWithSeed(pool, target, Seed(target), cfg)
}

func selectWithSeed(pool []core.Candidate, target time.Time, seed int, cfg core.SelectionConfig) core.SelectionResult {
	day := core.TruncateDay(target)
	result := core.SelectionResult{
		Date: core.FormatDate(day),
		Seed: seed,
		Path: core.PathNone,
	}

	if id := strings.TrimSpace(cfg.Overrides[result.Date]); id != "" {
		result.Path = core.PathOverride
		result.Candidate = resolveOverride(pool, id)
		result.PoolSize = len(pool)
		return result
	}

	if len(pool) == 0 {
		return result
	}

	gated := pool
	path := core.PathFullPool
	if rule, ok := cfg.PriorityRules[day.Month()]; ok && rule.Match != nil && seed%10 < priorityWeight {
		subset := filterCandidates(pool, rule.Match)
		if len(subset) > 0 {
			gated = subset
			path = core.PathPriority
			result.Rule = rule.Name
		}
	}

	final := gated
	if cfg.AntiRepeatDays > 0 {
		eligible := filterCandidates(gated, func(c core.Candidate) bool {
			return !recentlySelected(c, day, cfg.AntiRepeatDays)
		})
		switch {
		case len(eligible) == 0:
			path = core.PathFallback
		case len(eligible) < len(gated):
			final = eligible
			path = core.PathAntiRepeat
		}
	}

	index := positiveMod(seed, len(final))
	chosen := final[index]
	result.Candidate = &chosen
	result.Path = path
	result.PoolSize = len(final)
	result.Index = index
	return result
}

// recentlySelected reports whether c was picked on a day strictly before day
// and fewer than window days earlier.
func recentlySelected(c core.Candidate, day time.Time, window int) bool {
	if c.LastSelected == nil {
		return false
	}
	last := core.TruncateDay(*c.LastSelected)
	if !last.Before(day) {
		return false
	}
	return day.Sub(last) < time.Duration(window)*24*time.Hour
}

func resolveOverride(pool []core.Candidate, id string) *core.Candidate {
	for _, candidate := range pool {
		if candidate.ID == id {
			found := candidate
			return &found
		}
	}
	return &core.Candidate{ID: id, Name: id}
}

func filterCandidates(pool []core.Candidate, keep func(core.Candidate) bool) []core.Candidate {
	out := make([]core.Candidate, 0, len(pool))
	for _, candidate := range pool {
		if keep(candidate) {
			out = append(out, candidate)
		}
	}
	return out
}

func positiveMod(value, n int) int {
	m := value % n
	if m < 0 {
		m += n
	}
	return m
}
