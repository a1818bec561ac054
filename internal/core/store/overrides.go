package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dailypick/dailypick/internal/core"
)

// SetOverride pre-assigns a candidate to a date, replacing any previous
// override for that date.
func (s *Store) SetOverride(ctx context.Context, override core.Override) (core.Override, error) {
	if s == nil || s.DB == nil {
		return core.Override{}, errors.New("store is not initialized")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	date, err := core.ParseDate(override.Date)
	if err != nil {
		return core.Override{}, fmt.Errorf("invalid override date %q: %w", override.Date, err)
	}
	override.Date = core.FormatDate(date)

	override.CandidateID = strings.TrimSpace(override.CandidateID)
	if override.CandidateID == "" {
		return core.Override{}, errors.New("override candidate id is required")
	}
	override.Note = strings.TrimSpace(override.Note)
	if override.CreatedAt.IsZero() {
		override.CreatedAt = time.Now().UTC()
	}

	_, err = s.DB.ExecContext(ctx, `
		INSERT INTO overrides (date, candidate_id, note, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(date) DO UPDATE SET
			candidate_id = excluded.candidate_id,
			note = excluded.note,
			created_at = excluded.created_at
	`, override.Date, override.CandidateID, nullableString(override.Note), override.CreatedAt.UTC().Unix())
	if err != nil {
		return core.Override{}, fmt.Errorf("store override: %w", err)
	}
	return override, nil
}

// ListOverrides returns all overrides ordered by date.
func (s *Store) ListOverrides(ctx context.Context) ([]core.Override, error) {
	if s == nil || s.DB == nil {
		return nil, errors.New("store is not initialized")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	rows, err := s.DB.QueryContext(ctx, `
		SELECT date, candidate_id, note, created_at
		FROM overrides
		ORDER BY date
	`)
	if err != nil {
		return nil, fmt.Errorf("list overrides: %w", err)
	}
	defer rows.Close() // nolint:errcheck // best-effort cleanup

	overrides := []core.Override{}
	for rows.Next() {
		var (
			override  core.Override
			note      sql.NullString
			createdAt int64
		)
		if err := rows.Scan(&override.Date, &override.CandidateID, &note, &createdAt); err != nil {
			return nil, fmt.Errorf("scan override: %w", err)
		}
		override.Note = note.String
		override.CreatedAt = time.Unix(createdAt, 0).UTC()
		overrides = append(overrides, override)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list overrides: %w", err)
	}
	return overrides, nil
}

// Overrides returns stored overrides as a date to candidate ID map.
func (s *Store) Overrides(ctx context.Context) (map[string]string, error) {
	overrides, err := s.ListOverrides(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[string]string, len(overrides))
	for _, override := range overrides {
		out[override.Date] = override.CandidateID
	}
	return out, nil
}

// ClearOverride removes the override for date. It reports whether one existed.
func (s *Store) ClearOverride(ctx context.Context, date string) (bool, error) {
	if s == nil || s.DB == nil {
		return false, errors.New("store is not initialized")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	parsed, err := core.ParseDate(date)
	if err != nil {
		return false, fmt.Errorf("invalid override date %q: %w", date, err)
	}

	result, err := s.DB.ExecContext(ctx, `DELETE FROM overrides WHERE date = ?`, core.FormatDate(parsed))
	if err != nil {
		return false, fmt.Errorf("clear override: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("clear override: %w", err)
	}
	return affected > 0, nil
}
