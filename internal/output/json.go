package output

import (
	"encoding/json"

	"github.com/dailypick/dailypick/internal/core"
)

// JSONFormatter renders results as JSON.
type JSONFormatter struct {
	Indent bool
}

func (f *JSONFormatter) marshal(value any) (string, error) {
	var (
		data []byte
		err  error
	)

	if f.Indent {
		data, err = json.MarshalIndent(value, "", "  ")
	} else {
		data, err = json.Marshal(value)
	}
	if err != nil {
		return "", err
	}

	return string(data), nil
}

func (f *JSONFormatter) FormatSelection(result core.SelectionResult) (string, error) {
	return f.marshal(result)
}

func (f *JSONFormatter) FormatSchedule(results []core.SelectionResult) (string, error) {
	if results == nil {
		results = []core.SelectionResult{}
	}
	return f.marshal(results)
}

func (f *JSONFormatter) FormatCandidates(candidates []core.Candidate) (string, error) {
	if candidates == nil {
		candidates = []core.Candidate{}
	}
	return f.marshal(candidates)
}

func (f *JSONFormatter) FormatOverrides(overrides []core.Override) (string, error) {
	if overrides == nil {
		overrides = []core.Override{}
	}
	return f.marshal(overrides)
}

func (f *JSONFormatter) FormatHistory(entries []core.HistoryEntry) (string, error) {
	if entries == nil {
		entries = []core.HistoryEntry{}
	}
	return f.marshal(entries)
}
