package output

import (
	"fmt"
	"strings"
	"time"

	"github.com/dailypick/dailypick/internal/core"
)

// Format represents an output format.
type Format string

const (
	FormatTable    Format = "table"
	FormatJSON     Format = "json"
	FormatMarkdown Format = "markdown"
)

// Formatter renders selection results and catalog listings.
type Formatter interface {
	FormatSelection(result core.SelectionResult) (string, error)
	FormatSchedule(results []core.SelectionResult) (string, error)
	FormatCandidates(candidates []core.Candidate) (string, error)
	FormatOverrides(overrides []core.Override) (string, error)
	FormatHistory(entries []core.HistoryEntry) (string, error)
}

// ParseFormat validates and normalizes a format string.
func ParseFormat(value string) (Format, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	switch normalized {
	case "", string(FormatTable):
		return FormatTable, nil
	case string(FormatJSON):
		return FormatJSON, nil
	case string(FormatMarkdown), "md":
		return FormatMarkdown, nil
	default:
		return "", fmt.Errorf("unsupported output format: %s", value)
	}
}

// NewFormatter returns a formatter for the requested format.
func NewFormatter(format Format) Formatter {
	switch format {
	case FormatJSON:
		return &JSONFormatter{Indent: true}
	case FormatMarkdown:
		return &MarkdownFormatter{}
	default:
		return &TableFormatter{}
	}
}

func candidateLabel(result core.SelectionResult) (id, name string) {
	if result.Candidate == nil {
		return "-", "(no candidates)"
	}
	return result.Candidate.ID, result.Candidate.Name
}

func pathLabel(result core.SelectionResult) string {
	if result.Rule != "" {
		return fmt.Sprintf("%s (%s)", result.Path, result.Rule)
	}
	return string(result.Path)
}

func lastSelectedLabel(c core.Candidate) string {
	if c.LastSelected == nil {
		return "-"
	}
	return core.FormatDate(*c.LastSelected)
}

func timestampLabel(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.UTC().Format(time.RFC3339)
}
