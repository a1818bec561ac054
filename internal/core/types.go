package core

import (
	"strings"
	"time"
)

// DateLayout is the calendar-date format used for overrides, history and API
// parameters.
const DateLayout = "2006-01-02"

// DefaultAntiRepeatDays is the anti-repeat window applied when none is configured.
const DefaultAntiRepeatDays = 30

// Candidate is a selectable catalog item.
type Candidate struct {
	ID           string     `json:"id"`
	Name         string     `json:"name"`
	Category     string     `json:"category,omitempty"`
	Tags         []string   `json:"tags,omitempty"`
	LastSelected *time.Time `json:"last_selected,omitempty"`
}

// HasTag reports whether the candidate carries tag (case-insensitive).
func (c Candidate) HasTag(tag string) bool {
	tag = strings.TrimSpace(tag)
	if tag == "" {
		return false
	}
	for _, value := range c.Tags {
		if strings.EqualFold(strings.TrimSpace(value), tag) {
			return true
		}
	}
	return false
}

// CandidateQuery narrows a catalog listing.
type CandidateQuery struct {
	Category string `json:"category,omitempty"`
	Tag      string `json:"tag,omitempty"`
}

// Params returns the query as key/value pairs for cache key generation.
func (q CandidateQuery) Params() map[string]string {
	return map[string]string{
		"category": strings.ToLower(strings.TrimSpace(q.Category)),
		"tag":      strings.ToLower(strings.TrimSpace(q.Tag)),
	}
}

// PriorityRule restricts the pool to a themed subset during its month.
type PriorityRule struct {
	Name  string
	Match func(Candidate) bool
}

// SelectionConfig carries every tunable of the daily selector.
type SelectionConfig struct {
	PriorityRules map[time.Month]PriorityRule
	// AntiRepeatDays is the exclusion window in calendar days. Zero disables it.
	AntiRepeatDays int
	// Overrides maps a YYYY-MM-DD date to a pre-assigned candidate ID.
	Overrides map[string]string
}

// SelectionPath records which branch of the selector produced a result.
type SelectionPath string

const (
	PathOverride   SelectionPath = "override"
	PathPriority   SelectionPath = "priority"
	PathAntiRepeat SelectionPath = "anti_repeat"
	PathFullPool   SelectionPath = "full_pool"
	PathFallback   SelectionPath = "fallback"
	PathNone       SelectionPath = "none"
)

// SelectionResult reports the daily pick and how it was reached.
type SelectionResult struct {
	Date      string        `json:"date"`
	Candidate *Candidate    `json:"candidate,omitempty"`
	Path      SelectionPath `json:"path"`
	Rule      string        `json:"rule,omitempty"`
	Seed      int           `json:"seed"`
	PoolSize  int           `json:"pool_size"`
	Index     int           `json:"index"`
}

// HistoryEntry is a recorded daily pick.
type HistoryEntry struct {
	Date        string        `json:"date"`
	CandidateID string        `json:"candidate_id"`
	Path        SelectionPath `json:"path"`
	RecordedAt  time.Time     `json:"recorded_at"`
}

// Override is a pre-assigned pick for one date.
type Override struct {
	Date        string    `json:"date"`
	CandidateID string    `json:"candidate_id"`
	Note        string    `json:"note,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// ParseDate parses a YYYY-MM-DD calendar date as UTC midnight.
func ParseDate(value string) (time.Time, error) {
	return time.ParseInLocation(DateLayout, strings.TrimSpace(value), time.UTC)
}

// FormatDate renders t's UTC calendar date.
func FormatDate(t time.Time) string {
	return t.UTC().Format(DateLayout)
}

// TruncateDay returns UTC midnight of t's UTC calendar date.
func TruncateDay(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}
