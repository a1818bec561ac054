package store

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dailypick/dailypick/internal/core"
)

func TestParseCandidatesYAML(t *testing.T) {
	input := `
candidates:
  - id: cedar
    name: Cedar
    category: Tree
    tags: [Evergreen, evergreen, " "]
  - name: Ember
overrides:
  "2025-12-25": cedar
`
	file, err := ParseCandidatesYAML(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, file.Candidates, 2)
	require.Equal(t, map[string]string{"2025-12-25": "cedar"}, file.Overrides)

	candidates := file.CoreCandidates()
	require.Equal(t, "cedar", candidates[0].ID)
	require.Empty(t, candidates[1].ID)

	normalized, err := NormalizeCandidate(candidates[0])
	require.NoError(t, err)
	require.Equal(t, "tree", normalized.Category)
	require.Equal(t, []string{"evergreen"}, normalized.Tags)

	generated, err := NormalizeCandidate(candidates[1])
	require.NoError(t, err)
	require.NotEmpty(t, generated.ID)
}

func TestParseCandidatesYAMLList(t *testing.T) {
	file, err := ParseCandidatesYAML(strings.NewReader("- name: A\n- name: B\n"))
	require.NoError(t, err)
	require.Len(t, file.Candidates, 2)
}

func TestParseCandidatesYAMLErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{name: "empty", input: "   "},
		{name: "missing name", input: "candidates:\n  - id: x\n"},
		{name: "bad override date", input: "candidates:\n  - name: A\noverrides:\n  tomorrow: a\n"},
		{name: "malformed", input: "candidates: [\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseCandidatesYAML(strings.NewReader(tt.input))
			require.Error(t, err)
		})
	}
}

func TestNormalizeCandidateRequiresName(t *testing.T) {
	_, err := NormalizeCandidate(core.Candidate{ID: "x", Name: "  "})
	require.Error(t, err)
}

func TestHistoryQueryValidate(t *testing.T) {
	require.Error(t, HistoryQuery{}.Validate())
	require.Error(t, HistoryQuery{Date: "06/01/2025"}.Validate())
	require.NoError(t, HistoryQuery{All: true}.Validate())
	require.NoError(t, HistoryQuery{Date: "2025-06-01"}.Validate())
	require.NoError(t, HistoryQuery{Prefix: "2025-06"}.Validate())
	require.NoError(t, HistoryQuery{CandidateID: "cedar"}.Validate())

	where, args, err := HistoryQuery{Prefix: "2025-06"}.whereClause()
	require.NoError(t, err)
	require.Equal(t, "WHERE date LIKE ?", where)
	require.Equal(t, []any{"2025-06%"}, args)
}
