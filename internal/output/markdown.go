package output

import (
	"fmt"
	"strings"

	"github.com/dailypick/dailypick/internal/core"
)

// MarkdownFormatter renders results as markdown tables.
type MarkdownFormatter struct{}

func (f *MarkdownFormatter) FormatSelection(result core.SelectionResult) (string, error) {
	id, name := candidateLabel(result)

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("## Pick for %s\n\n", result.Date))
	sb.WriteString(fmt.Sprintf("**%s** (`%s`)\n\n", escapeMarkdownCell(name), escapeMarkdownCell(id)))
	sb.WriteString(fmt.Sprintf("- Path: %s\n", escapeMarkdownCell(pathLabel(result))))
	sb.WriteString(fmt.Sprintf("- Pool size: %d\n", result.PoolSize))
	sb.WriteString(fmt.Sprintf("- Seed: %d\n", result.Seed))
	return sb.String(), nil
}

func (f *MarkdownFormatter) FormatSchedule(results []core.SelectionResult) (string, error) {
	rows := make([][]string, 0, len(results))
	for _, result := range results {
		id, name := candidateLabel(result)
		rows = append(rows, []string{result.Date, id, name, pathLabel(result)})
	}
	return markdownTable([]string{"Date", "ID", "Name", "Path"}, rows), nil
}

func (f *MarkdownFormatter) FormatCandidates(candidates []core.Candidate) (string, error) {
	rows := make([][]string, 0, len(candidates))
	for _, c := range candidates {
		rows = append(rows, []string{c.ID, c.Name, c.Category, strings.Join(c.Tags, ", "), lastSelectedLabel(c)})
	}
	return markdownTable([]string{"ID", "Name", "Category", "Tags", "Last Selected"}, rows), nil
}

func (f *MarkdownFormatter) FormatOverrides(overrides []core.Override) (string, error) {
	rows := make([][]string, 0, len(overrides))
	for _, o := range overrides {
		rows = append(rows, []string{o.Date, o.CandidateID, o.Note})
	}
	return markdownTable([]string{"Date", "Candidate", "Note"}, rows), nil
}

func (f *MarkdownFormatter) FormatHistory(entries []core.HistoryEntry) (string, error) {
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, []string{e.Date, e.CandidateID, string(e.Path)})
	}
	return markdownTable([]string{"Date", "Candidate", "Path"}, rows), nil
}

func markdownTable(header []string, rows [][]string) string {
	var sb strings.Builder
	sb.WriteString("| " + strings.Join(header, " | ") + " |\n")
	sb.WriteString("|" + strings.Repeat("---|", len(header)) + "\n")
	for _, row := range rows {
		cells := make([]string, len(row))
		for i, cell := range row {
			cells[i] = escapeMarkdownCell(cell)
		}
		sb.WriteString("| " + strings.Join(cells, " | ") + " |\n")
	}
	return sb.String()
}

func escapeMarkdownCell(value string) string {
	return strings.ReplaceAll(value, "|", "\\|")
}
