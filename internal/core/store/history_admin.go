package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dailypick/dailypick/internal/core"
)

type HistoryQuery struct {
	All         bool
	Date        string
	Prefix      string
	CandidateID string
}

func (q HistoryQuery) Validate() error {
	if q.All {
		return nil
	}
	if date := strings.TrimSpace(q.Date); date != "" {
		if _, err := core.ParseDate(date); err != nil {
			return fmt.Errorf("invalid date %q: %w", date, err)
		}
		return nil
	}
	if strings.TrimSpace(q.Prefix) != "" {
		return nil
	}
	if strings.TrimSpace(q.CandidateID) != "" {
		return nil
	}
	return errors.New("must specify --all, --date, --prefix, or --candidate")
}

func (q HistoryQuery) whereClause() (string, []any, error) {
	if err := q.Validate(); err != nil {
		return "", nil, err
	}
	if q.All {
		return "", nil, nil
	}
	if date := strings.TrimSpace(q.Date); date != "" {
		parsed, _ := core.ParseDate(date)
		return "WHERE date = ?", []any{core.FormatDate(parsed)}, nil
	}
	if prefix := strings.TrimSpace(q.Prefix); prefix != "" {
		return "WHERE date LIKE ?", []any{prefix + "%"}, nil
	}
	candidateID := strings.TrimSpace(q.CandidateID)
	if candidateID == "" {
		return "", nil, errors.New("candidate id is required")
	}
	return "WHERE candidate_id = ?", []any{candidateID}, nil
}

func (s *Store) ListHistory(ctx context.Context, q HistoryQuery) ([]core.HistoryEntry, error) {
	if s == nil || s.DB == nil {
		return nil, errors.New("store is not initialized")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	where, args, err := q.whereClause()
	if err != nil {
		return nil, err
	}

	rows, err := s.DB.QueryContext(ctx, fmt.Sprintf(`
		SELECT date, candidate_id, path, recorded_at
		FROM selection_history
		%s
		ORDER BY date
	`, where), args...)
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	defer rows.Close() // nolint:errcheck // best-effort cleanup

	entries := []core.HistoryEntry{}
	for rows.Next() {
		var (
			entry      core.HistoryEntry
			path       string
			recordedAt int64
		)
		if err := rows.Scan(&entry.Date, &entry.CandidateID, &path, &recordedAt); err != nil {
			return nil, fmt.Errorf("scan history: %w", err)
		}
		entry.Path = core.SelectionPath(path)
		entry.RecordedAt = time.Unix(recordedAt, 0).UTC()
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}

	return entries, nil
}

func (s *Store) CountHistory(ctx context.Context, q HistoryQuery) (int, error) {
	if s == nil || s.DB == nil {
		return 0, errors.New("store is not initialized")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	where, args, err := q.whereClause()
	if err != nil {
		return 0, err
	}

	row := s.DB.QueryRowContext(ctx, fmt.Sprintf(`
		SELECT COUNT(*)
		FROM selection_history
		%s
	`, where), args...)

	var count int
	if err := row.Scan(&count); err != nil {
		return 0, fmt.Errorf("count history: %w", err)
	}
	return count, nil
}

func (s *Store) ResetHistory(ctx context.Context, q HistoryQuery) (int64, error) {
	if s == nil || s.DB == nil {
		return 0, errors.New("store is not initialized")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	where, args, err := q.whereClause()
	if err != nil {
		return 0, err
	}

	result, err := s.DB.ExecContext(ctx, fmt.Sprintf(`
		DELETE FROM selection_history
		%s
	`, where), args...)
	if err != nil {
		return 0, fmt.Errorf("reset history: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("reset history: %w", err)
	}
	return affected, nil
}
