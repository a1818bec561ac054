//go:build cgo

package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dailypick/dailypick/internal/config"
	"github.com/dailypick/dailypick/internal/core"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()

	store, err := Open(context.Background(), config.StoreConfig{
		Driver: "libsql",
		Path:   "file:" + t.TempDir() + "/dailypick.db",
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	require.NoError(t, store.Migrate(context.Background()))
	return store
}

func TestCandidatesRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	count, err := store.ImportCandidates(ctx, []core.Candidate{
		{ID: "cedar", Name: "Cedar", Category: "tree", Tags: []string{"evergreen"}},
		{ID: "apricot", Name: "Apricot", Category: "fruit", Tags: []string{"Spring"}},
		{ID: "birch", Name: "Birch", Category: "tree"},
	}, now)
	require.NoError(t, err)
	require.Equal(t, 3, count)

	all, err := store.ListCandidates(ctx, core.CandidateQuery{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	require.Equal(t, []string{"apricot", "birch", "cedar"}, []string{all[0].ID, all[1].ID, all[2].ID})

	trees, err := store.ListCandidates(ctx, core.CandidateQuery{Category: "TREE"})
	require.NoError(t, err)
	require.Len(t, trees, 2)

	spring, err := store.ListCandidates(ctx, core.CandidateQuery{Tag: "spring"})
	require.NoError(t, err)
	require.Len(t, spring, 1)
	require.Equal(t, "apricot", spring[0].ID)

	updated, err := store.UpsertCandidate(ctx, core.Candidate{ID: "cedar", Name: "Red Cedar"}, now)
	require.NoError(t, err)
	require.Equal(t, "Red Cedar", updated.Name)

	got, err := store.GetCandidate(ctx, "cedar")
	require.NoError(t, err)
	require.Equal(t, "Red Cedar", got.Name)
	require.Empty(t, got.Tags)

	deleted, err := store.DeleteCandidate(ctx, "birch")
	require.NoError(t, err)
	require.True(t, deleted)

	deleted, err = store.DeleteCandidate(ctx, "birch")
	require.NoError(t, err)
	require.False(t, deleted)

	_, err = store.GetCandidate(ctx, "birch")
	require.True(t, errors.Is(err, ErrNotFound))
}

func TestHistoryDrivesLastSelected(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	_, err := store.UpsertCandidate(ctx, core.Candidate{ID: "cedar", Name: "Cedar"}, now)
	require.NoError(t, err)

	require.NoError(t, store.RecordSelection(ctx, core.HistoryEntry{Date: "2025-05-01", CandidateID: "cedar", Path: core.PathFullPool, RecordedAt: now}))
	require.NoError(t, store.RecordSelection(ctx, core.HistoryEntry{Date: "2025-05-20", CandidateID: "cedar", Path: core.PathAntiRepeat, RecordedAt: now}))
	require.NoError(t, store.RecordSelection(ctx, core.HistoryEntry{Date: "2025-05-21", CandidateID: "other", Path: core.PathFullPool, RecordedAt: now}))

	got, err := store.GetCandidate(ctx, "cedar")
	require.NoError(t, err)
	require.NotNil(t, got.LastSelected)
	require.Equal(t, time.Date(2025, 5, 20, 0, 0, 0, 0, time.UTC), *got.LastSelected)

	// Re-recording a date replaces its entry.
	require.NoError(t, store.RecordSelection(ctx, core.HistoryEntry{Date: "2025-05-21", CandidateID: "cedar", Path: core.PathOverride, RecordedAt: now}))

	entries, err := store.ListHistory(ctx, HistoryQuery{CandidateID: "cedar"})
	require.NoError(t, err)
	require.Len(t, entries, 3)
	require.Equal(t, core.PathOverride, entries[2].Path)

	count, err := store.CountHistory(ctx, HistoryQuery{Prefix: "2025-05"})
	require.NoError(t, err)
	require.Equal(t, 3, count)

	removed, err := store.ResetHistory(ctx, HistoryQuery{Date: "2025-05-21"})
	require.NoError(t, err)
	require.Equal(t, int64(1), removed)

	removed, err = store.ResetHistory(ctx, HistoryQuery{All: true})
	require.NoError(t, err)
	require.Equal(t, int64(2), removed)

	got, err = store.GetCandidate(ctx, "cedar")
	require.NoError(t, err)
	require.Nil(t, got.LastSelected)
}

func TestOverrides(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)
	created := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	_, err := store.SetOverride(ctx, core.Override{Date: "2025-12-25", CandidateID: "cedar", Note: "holiday", CreatedAt: created})
	require.NoError(t, err)
	_, err = store.SetOverride(ctx, core.Override{Date: "2025-12-25", CandidateID: "fir", CreatedAt: created})
	require.NoError(t, err)
	_, err = store.SetOverride(ctx, core.Override{Date: "2025-01-01", CandidateID: "birch", CreatedAt: created})
	require.NoError(t, err)

	_, err = store.SetOverride(ctx, core.Override{Date: "christmas", CandidateID: "fir"})
	require.Error(t, err)
	_, err = store.SetOverride(ctx, core.Override{Date: "2025-01-02"})
	require.Error(t, err)

	list, err := store.ListOverrides(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.Equal(t, "2025-01-01", list[0].Date)
	require.Equal(t, created, list[0].CreatedAt)

	byDate, err := store.Overrides(ctx)
	require.NoError(t, err)
	require.Equal(t, map[string]string{"2025-01-01": "birch", "2025-12-25": "fir"}, byDate)

	cleared, err := store.ClearOverride(ctx, "2025-12-25")
	require.NoError(t, err)
	require.True(t, cleared)

	cleared, err = store.ClearOverride(ctx, "2025-12-25")
	require.NoError(t, err)
	require.False(t, cleared)
}
