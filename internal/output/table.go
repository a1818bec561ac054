package output

import (
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/dailypick/dailypick/internal/core"
)

// TableFormatter renders results as an ASCII table.
type TableFormatter struct{}

func newTable(header table.Row) table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(header)
	return t
}

// FormatSelection renders one daily pick.
func (f *TableFormatter) FormatSelection(result core.SelectionResult) (string, error) {
	id, name := candidateLabel(result)

	t := newTable(table.Row{"Date", "ID", "Name", "Path", "Pool", "Seed"})
	t.AppendRow(table.Row{result.Date, id, name, pathLabel(result), result.PoolSize, result.Seed})
	return t.Render(), nil
}

// FormatSchedule renders consecutive picks.
func (f *TableFormatter) FormatSchedule(results []core.SelectionResult) (string, error) {
	t := newTable(table.Row{"Date", "ID", "Name", "Path", "Pool"})
	for _, result := range results {
		id, name := candidateLabel(result)
		t.AppendRow(table.Row{result.Date, id, name, pathLabel(result), result.PoolSize})
	}
	t.AppendFooter(table.Row{"", "", "", "days", len(results)})
	return t.Render(), nil
}

// FormatCandidates renders the catalog.
func (f *TableFormatter) FormatCandidates(candidates []core.Candidate) (string, error) {
	t := newTable(table.Row{"ID", "Name", "Category", "Tags", "Last Selected"})
	for _, c := range candidates {
		t.AppendRow(table.Row{c.ID, c.Name, c.Category, strings.Join(c.Tags, ", "), lastSelectedLabel(c)})
	}
	t.AppendFooter(table.Row{"", "", "", "total", fmt.Sprint(len(candidates))})
	return t.Render(), nil
}

// FormatOverrides renders stored overrides.
func (f *TableFormatter) FormatOverrides(overrides []core.Override) (string, error) {
	t := newTable(table.Row{"Date", "Candidate", "Note", "Created"})
	for _, o := range overrides {
		t.AppendRow(table.Row{o.Date, o.CandidateID, o.Note, timestampLabel(o.CreatedAt)})
	}
	return t.Render(), nil
}

// FormatHistory renders recorded picks.
func (f *TableFormatter) FormatHistory(entries []core.HistoryEntry) (string, error) {
	t := newTable(table.Row{"Date", "Candidate", "Path", "Recorded"})
	for _, e := range entries {
		t.AppendRow(table.Row{e.Date, e.CandidateID, string(e.Path), timestampLabel(e.RecordedAt)})
	}
	return t.Render(), nil
}
