package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dailypick/dailypick/internal/core"
)

type stubSource struct {
	candidates []core.Candidate
	overrides  map[string]string
	err        error
	lists      int
}

func (s *stubSource) ListCandidates(_ context.Context, _ core.CandidateQuery) ([]core.Candidate, error) {
	s.lists++
	if s.err != nil {
		return nil, s.err
	}
	return s.candidates, nil
}

func (s *stubSource) Overrides(context.Context) (map[string]string, error) {
	return s.overrides, nil
}

type stubRecorder struct {
	entries []core.HistoryEntry
	err     error
}

func (r *stubRecorder) RecordSelection(_ context.Context, entry core.HistoryEntry) error {
	if r.err != nil {
		return r.err
	}
	r.entries = append(r.entries, entry)
	return nil
}

func TestPickerPick(t *testing.T) {
	source := &stubSource{candidates: testPool()}
	var observed []core.SelectionResult
	picker := &Picker{
		Source:   source,
		Config:   core.SelectionConfig{AntiRepeatDays: 30},
		Observer: func(r core.SelectionResult) { observed = append(observed, r) },
	}

	target := day(2025, time.June, 1)
	result, err := picker.Pick(context.Background(), target)
	require.NoError(t, err)
	require.Equal(t, SelectDailyItem(testPool(), target, picker.Config), result)
	require.Len(t, observed, 1)
	require.Equal(t, 1, source.lists)
}

func TestPickerTodayUsesClock(t *testing.T) {
	picker := &Picker{
		Source: &stubSource{candidates: testPool()},
		Clock:  func() time.Time { return time.Date(2025, time.June, 1, 18, 30, 0, 0, time.UTC) },
	}

	result, err := picker.Today(context.Background())
	require.NoError(t, err)
	require.Equal(t, "2025-06-01", result.Date)
}

func TestPickerStoredOverridesWin(t *testing.T) {
	picker := &Picker{
		Source: &stubSource{
			candidates: testPool(),
			overrides:  map[string]string{"2025-06-01": "B", "2025-06-03": " "},
		},
		Config: core.SelectionConfig{Overrides: map[string]string{
			"2025-06-01": "A",
			"2025-06-02": "C",
			"2025-06-03": "D",
		}},
	}

	first, err := picker.Pick(context.Background(), day(2025, time.June, 1))
	require.NoError(t, err)
	require.Equal(t, "B", first.Candidate.ID)

	second, err := picker.Pick(context.Background(), day(2025, time.June, 2))
	require.NoError(t, err)
	require.Equal(t, "C", second.Candidate.ID)

	third, err := picker.Pick(context.Background(), day(2025, time.June, 3))
	require.NoError(t, err)
	require.Equal(t, "D", third.Candidate.ID)
}

func TestPickerPickAndRecord(t *testing.T) {
	recordedAt := time.Date(2025, time.June, 1, 8, 0, 0, 0, time.UTC)
	recorder := &stubRecorder{}
	picker := &Picker{
		Source:   &stubSource{candidates: testPool()},
		Recorder: recorder,
		Clock:    func() time.Time { return recordedAt },
	}

	result, err := picker.PickAndRecord(context.Background(), day(2025, time.June, 1))
	require.NoError(t, err)
	require.Len(t, recorder.entries, 1)
	require.Equal(t, core.HistoryEntry{
		Date:        "2025-06-01",
		CandidateID: result.Candidate.ID,
		Path:        result.Path,
		RecordedAt:  recordedAt,
	}, recorder.entries[0])

	empty := &Picker{Source: &stubSource{}, Recorder: recorder}
	none, err := empty.PickAndRecord(context.Background(), day(2025, time.June, 2))
	require.NoError(t, err)
	require.Equal(t, core.PathNone, none.Path)
	require.Len(t, recorder.entries, 1)
}

func TestPickerRecordsEachDateOnce(t *testing.T) {
	recorder := &stubRecorder{}
	picker := &Picker{Source: &stubSource{candidates: testPool()}, Recorder: recorder}
	target := day(2025, time.June, 1)

	for i := 0; i < 5; i++ {
		_, err := picker.PickAndRecord(context.Background(), target)
		require.NoError(t, err)
	}
	require.Len(t, recorder.entries, 1)

	_, err := picker.PickAndRecord(context.Background(), day(2025, time.June, 2))
	require.NoError(t, err)
	require.Len(t, recorder.entries, 2)
}

func TestPickerSkipsDateAlreadyInHistory(t *testing.T) {
	target := day(2025, time.June, 1)
	recorder := &stubRecorder{}
	picker := &Picker{
		Source:   &stubSource{candidates: []core.Candidate{{ID: "A", LastSelected: &target}}},
		Recorder: recorder,
	}

	result, err := picker.PickAndRecord(context.Background(), target)
	require.NoError(t, err)
	require.Equal(t, "A", result.Candidate.ID)
	require.Empty(t, recorder.entries)
}

func TestPickerRecordError(t *testing.T) {
	boom := errors.New("write failed")
	picker := &Picker{
		Source:   &stubSource{candidates: testPool()},
		Recorder: &stubRecorder{err: boom},
	}

	result, err := picker.PickAndRecord(context.Background(), day(2025, time.June, 1))
	require.ErrorIs(t, err, boom)
	require.NotNil(t, result.Candidate)
}

func TestPickerSourceError(t *testing.T) {
	boom := errors.New("store down")
	picker := &Picker{Source: &stubSource{err: boom}}

	_, err := picker.Pick(context.Background(), day(2025, time.June, 1))
	require.ErrorIs(t, err, boom)

	_, err = picker.Schedule(context.Background(), day(2025, time.June, 1), 3)
	require.ErrorIs(t, err, boom)
}

func TestPickerSchedule(t *testing.T) {
	pool := []core.Candidate{{ID: "A"}, {ID: "B"}}
	source := &stubSource{candidates: pool}
	picker := &Picker{
		Source: source,
		Config: core.SelectionConfig{AntiRepeatDays: 30},
	}

	results, err := picker.Schedule(context.Background(), day(2025, time.January, 1), 3)
	require.NoError(t, err)
	require.Len(t, results, 3)

	// 2025001 % 2 = 1, then B is recent, then both are recent.
	require.Equal(t, "B", results[0].Candidate.ID)
	require.Equal(t, core.PathFullPool, results[0].Path)
	require.Equal(t, "A", results[1].Candidate.ID)
	require.Equal(t, core.PathAntiRepeat, results[1].Path)
	require.Equal(t, "B", results[2].Candidate.ID)
	require.Equal(t, core.PathFallback, results[2].Path)
	require.Equal(t, "2025-01-03", results[2].Date)

	require.Nil(t, pool[0].LastSelected)
	require.Nil(t, pool[1].LastSelected)
	require.Equal(t, 1, source.lists)
}

func TestPickerScheduleBounds(t *testing.T) {
	picker := &Picker{Source: &stubSource{}}

	_, err := picker.Schedule(context.Background(), day(2025, time.January, 1), 0)
	require.Error(t, err)
	_, err = picker.Schedule(context.Background(), day(2025, time.January, 1), MaxScheduleDays+1)
	require.Error(t, err)

	results, err := picker.Schedule(context.Background(), day(2025, time.January, 1), 2)
	require.NoError(t, err)
	require.Len(t, results, 2)
	require.Equal(t, core.PathNone, results[0].Path)
}

func TestPickerSetConfig(t *testing.T) {
	picker := &Picker{Source: &stubSource{candidates: testPool()}}
	target := day(2025, time.June, 1)

	picker.SetConfig(core.SelectionConfig{Overrides: map[string]string{"2025-06-01": "E"}})

	result, err := picker.Pick(context.Background(), target)
	require.NoError(t, err)
	require.Equal(t, core.PathOverride, result.Path)
	require.Equal(t, "E", result.Candidate.ID)
}
