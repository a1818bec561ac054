package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/dailypick/dailypick/internal/core"
)

// BuildSelectionConfig converts the configured selection settings into the
// selector's configuration value.
func BuildSelectionConfig(cfg SelectionConfig) (core.SelectionConfig, error) {
	if cfg.AntiRepeatDays < 0 {
		return core.SelectionConfig{}, fmt.Errorf("selection.anti_repeat_days must not be negative")
	}

	out := core.SelectionConfig{
		AntiRepeatDays: cfg.AntiRepeatDays,
	}

	if len(cfg.PriorityRules) > 0 {
		out.PriorityRules = make(map[time.Month]core.PriorityRule, len(cfg.PriorityRules))
	}
	for i, rule := range cfg.PriorityRules {
		if rule.Month < 1 || rule.Month > 12 {
			return core.SelectionConfig{}, fmt.Errorf("selection.priority_rules[%d]: month %d out of range", i, rule.Month)
		}
		month := time.Month(rule.Month)
		if _, exists := out.PriorityRules[month]; exists {
			return core.SelectionConfig{}, fmt.Errorf("selection.priority_rules[%d]: duplicate rule for %s", i, month)
		}

		name := strings.TrimSpace(rule.Name)
		if name == "" {
			name = strings.ToLower(month.String())
		}
		match := matchAny(rule.Tags, rule.Categories)
		if match == nil {
			return core.SelectionConfig{}, fmt.Errorf("selection.priority_rules[%d]: tags or categories required", i)
		}
		out.PriorityRules[month] = core.PriorityRule{Name: name, Match: match}
	}

	if len(cfg.Overrides) > 0 {
		out.Overrides = make(map[string]string, len(cfg.Overrides))
	}
	for date, id := range cfg.Overrides {
		parsed, err := core.ParseDate(date)
		if err != nil {
			return core.SelectionConfig{}, fmt.Errorf("selection.overrides: invalid date %q", date)
		}
		id = strings.TrimSpace(id)
		if id == "" {
			return core.SelectionConfig{}, fmt.Errorf("selection.overrides: empty candidate for %s", date)
		}
		out.Overrides[core.FormatDate(parsed)] = id
	}

	return out, nil
}

// matchAny builds a predicate accepting candidates with any listed tag or
// category. It returns nil when both lists are empty.
func matchAny(tags, categories []string) func(core.Candidate) bool {
	wantTags := normalizeSet(tags)
	wantCategories := normalizeSet(categories)
	if len(wantTags) == 0 && len(wantCategories) == 0 {
		return nil
	}

	return func(c core.Candidate) bool {
		if _, ok := wantCategories[strings.ToLower(strings.TrimSpace(c.Category))]; ok {
			return true
		}
		for _, tag := range c.Tags {
			if _, ok := wantTags[strings.ToLower(strings.TrimSpace(tag))]; ok {
				return true
			}
		}
		return false
	}
}

func normalizeSet(values []string) map[string]struct{} {
	out := make(map[string]struct{}, len(values))
	for _, value := range values {
		value = strings.ToLower(strings.TrimSpace(value))
		if value != "" {
			out[value] = struct{}{}
		}
	}
	return out
}
