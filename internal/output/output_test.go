package output

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dailypick/dailypick/internal/core"
)

func TestParseFormat(t *testing.T) {
	format, err := ParseFormat("table")
	require.NoError(t, err)
	require.Equal(t, FormatTable, format)

	format, err = ParseFormat("JSON")
	require.NoError(t, err)
	require.Equal(t, FormatJSON, format)

	format, err = ParseFormat("md")
	require.NoError(t, err)
	require.Equal(t, FormatMarkdown, format)

	format, err = ParseFormat("")
	require.NoError(t, err)
	require.Equal(t, FormatTable, format)

	_, err = ParseFormat("csv")
	require.Error(t, err)
}

func sampleResult() core.SelectionResult {
	return core.SelectionResult{
		Date:      "2025-03-03",
		Candidate: &core.Candidate{ID: "alder", Name: "Alder | Red", Tags: []string{"spring"}},
		Path:      core.PathPriority,
		Rule:      "spring",
		Seed:      2025062,
		PoolSize:  2,
	}
}

func TestFormatSelection(t *testing.T) {
	result := sampleResult()

	table, err := NewFormatter(FormatTable).FormatSelection(result)
	require.NoError(t, err)
	require.Contains(t, table, "alder")
	require.Contains(t, table, "priority (spring)")

	md, err := NewFormatter(FormatMarkdown).FormatSelection(result)
	require.NoError(t, err)
	require.Contains(t, md, "## Pick for 2025-03-03")
	require.Contains(t, md, "Alder \\| Red")

	raw, err := NewFormatter(FormatJSON).FormatSelection(result)
	require.NoError(t, err)
	var decoded core.SelectionResult
	require.NoError(t, json.Unmarshal([]byte(raw), &decoded))
	require.Equal(t, "alder", decoded.Candidate.ID)
	require.Equal(t, core.PathPriority, decoded.Path)
}

func TestFormatEmptySelection(t *testing.T) {
	table, err := NewFormatter(FormatTable).FormatSelection(core.SelectionResult{Date: "2025-01-01", Path: core.PathNone})
	require.NoError(t, err)
	require.Contains(t, table, "(no candidates)")
}

func TestFormatSchedule(t *testing.T) {
	results := []core.SelectionResult{sampleResult(), {Date: "2025-03-04", Path: core.PathNone}}

	md, err := NewFormatter(FormatMarkdown).FormatSchedule(results)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(md), "\n")
	require.Len(t, lines, 4)
	require.Equal(t, "| Date | ID | Name | Path |", lines[0])

	raw, err := NewFormatter(FormatJSON).FormatSchedule(nil)
	require.NoError(t, err)
	require.Equal(t, "[]", raw)
}

func TestFormatCandidatesAndHistory(t *testing.T) {
	last := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)
	candidates := []core.Candidate{
		{ID: "alder", Name: "Alder", Category: "tree", Tags: []string{"spring", "native"}, LastSelected: &last},
		{ID: "birch", Name: "Birch"},
	}

	table, err := NewFormatter(FormatTable).FormatCandidates(candidates)
	require.NoError(t, err)
	require.Contains(t, table, "spring, native")
	require.Contains(t, table, "2025-02-01")

	history := []core.HistoryEntry{{Date: "2025-02-01", CandidateID: "alder", Path: core.PathFullPool, RecordedAt: last}}
	table, err = NewFormatter(FormatTable).FormatHistory(history)
	require.NoError(t, err)
	require.Contains(t, table, "full_pool")
	require.Contains(t, table, "2025-02-01T00:00:00Z")

	overrides := []core.Override{{Date: "2025-12-25", CandidateID: "cedar", Note: "holiday"}}
	md, err := NewFormatter(FormatMarkdown).FormatOverrides(overrides)
	require.NoError(t, err)
	require.Contains(t, md, "| 2025-12-25 | cedar | holiday |")
}
