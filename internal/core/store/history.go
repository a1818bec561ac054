package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dailypick/dailypick/internal/core"
)

// RecordSelection stores the pick for a date. Re-recording a date replaces the
// earlier entry.
func (s *Store) RecordSelection(ctx context.Context, entry core.HistoryEntry) error {
	if s == nil || s.DB == nil {
		return errors.New("store is not initialized")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	date, err := core.ParseDate(entry.Date)
	if err != nil {
		return fmt.Errorf("invalid selection date %q: %w", entry.Date, err)
	}
	candidateID := strings.TrimSpace(entry.CandidateID)
	if candidateID == "" {
		return errors.New("selection candidate id is required")
	}
	recordedAt := entry.RecordedAt
	if recordedAt.IsZero() {
		recordedAt = time.Now().UTC()
	}

	_, err = s.DB.ExecContext(ctx, `
		INSERT INTO selection_history (date, candidate_id, path, recorded_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(date) DO UPDATE SET
			candidate_id = excluded.candidate_id,
			path = excluded.path,
			recorded_at = excluded.recorded_at
	`, core.FormatDate(date), candidateID, string(entry.Path), recordedAt.UTC().Unix())
	if err != nil {
		return fmt.Errorf("record selection: %w", err)
	}
	return nil
}
