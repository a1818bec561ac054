package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dailypick/dailypick/internal/core"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// NormalizeCandidate trims fields, lowercases and dedupes tags, and assigns a
// generated ID when none is set.
func NormalizeCandidate(candidate core.Candidate) (core.Candidate, error) {
	candidate.Name = strings.TrimSpace(candidate.Name)
	if candidate.Name == "" {
		return candidate, errors.New("candidate name is required")
	}

	candidate.ID = strings.TrimSpace(candidate.ID)
	if candidate.ID == "" {
		candidate.ID = uuid.NewString()
	}
	candidate.Category = strings.ToLower(strings.TrimSpace(candidate.Category))

	seen := make(map[string]struct{}, len(candidate.Tags))
	tags := make([]string, 0, len(candidate.Tags))
	for _, tag := range candidate.Tags {
		tag = strings.ToLower(strings.TrimSpace(tag))
		if tag == "" {
			continue
		}
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		tags = append(tags, tag)
	}
	candidate.Tags = tags
	candidate.LastSelected = nil
	return candidate, nil
}

// UpsertCandidate creates or updates a candidate record.
func (s *Store) UpsertCandidate(ctx context.Context, candidate core.Candidate, updatedAt time.Time) (core.Candidate, error) {
	if s == nil || s.DB == nil {
		return core.Candidate{}, errors.New("store is not initialized")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	normalized, err := NormalizeCandidate(candidate)
	if err != nil {
		return core.Candidate{}, err
	}

	if err := upsertCandidate(ctx, s.DB, normalized, updatedAt); err != nil {
		return core.Candidate{}, err
	}
	return normalized, nil
}

// ImportCandidates upserts all candidates in one transaction.
func (s *Store) ImportCandidates(ctx context.Context, candidates []core.Candidate, updatedAt time.Time) (int, error) {
	if s == nil || s.DB == nil {
		return 0, errors.New("store is not initialized")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	normalized := make([]core.Candidate, 0, len(candidates))
	for i, candidate := range candidates {
		value, err := NormalizeCandidate(candidate)
		if err != nil {
			return 0, fmt.Errorf("candidate %d: %w", i+1, err)
		}
		normalized = append(normalized, value)
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin import: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, candidate := range normalized {
		if err := upsertCandidate(ctx, tx, candidate, updatedAt); err != nil {
			return 0, err
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit import: %w", err)
	}
	return len(normalized), nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func upsertCandidate(ctx context.Context, db execer, candidate core.Candidate, updatedAt time.Time) error {
	tags, err := json.Marshal(candidate.Tags)
	if err != nil {
		return fmt.Errorf("encode tags: %w", err)
	}

	ts := updatedAt.UTC().Unix()
	_, err = db.ExecContext(ctx, `
		INSERT INTO candidates (id, name, category, tags, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			category = excluded.category,
			tags = excluded.tags,
			updated_at = excluded.updated_at
	`, candidate.ID, candidate.Name, nullableString(candidate.Category), string(tags), ts, ts)
	if err != nil {
		return fmt.Errorf("store candidate %s: %w", candidate.ID, err)
	}
	return nil
}

// ListCandidates returns candidates ordered by ID, each with the date of its
// most recent recorded selection.
func (s *Store) ListCandidates(ctx context.Context, query core.CandidateQuery) ([]core.Candidate, error) {
	if s == nil || s.DB == nil {
		return nil, errors.New("store is not initialized")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	where := ""
	args := []any{}
	if category := strings.ToLower(strings.TrimSpace(query.Category)); category != "" {
		where = "WHERE c.category = ?"
		args = append(args, category)
	}

	rows, err := s.DB.QueryContext(ctx, fmt.Sprintf(`
		SELECT c.id, c.name, c.category, c.tags,
			(SELECT MAX(h.date) FROM selection_history h WHERE h.candidate_id = c.id)
		FROM candidates c
		%s
		ORDER BY c.id
	`, where), args...)
	if err != nil {
		return nil, fmt.Errorf("list candidates: %w", err)
	}
	defer rows.Close() // nolint:errcheck // best-effort cleanup

	tag := strings.TrimSpace(query.Tag)
	candidates := []core.Candidate{}
	for rows.Next() {
		candidate, err := scanCandidate(rows)
		if err != nil {
			return nil, err
		}
		if tag != "" && !candidate.HasTag(tag) {
			continue
		}
		candidates = append(candidates, candidate)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list candidates: %w", err)
	}

	return candidates, nil
}

// GetCandidate returns one candidate by ID or ErrNotFound.
func (s *Store) GetCandidate(ctx context.Context, id string) (core.Candidate, error) {
	if s == nil || s.DB == nil {
		return core.Candidate{}, errors.New("store is not initialized")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	row := s.DB.QueryRowContext(ctx, `
		SELECT c.id, c.name, c.category, c.tags,
			(SELECT MAX(h.date) FROM selection_history h WHERE h.candidate_id = c.id)
		FROM candidates c
		WHERE c.id = ?
	`, strings.TrimSpace(id))

	candidate, err := scanCandidate(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Candidate{}, fmt.Errorf("candidate %s: %w", id, ErrNotFound)
	}
	return candidate, err
}

// DeleteCandidate removes a candidate. It reports whether a row was deleted.
func (s *Store) DeleteCandidate(ctx context.Context, id string) (bool, error) {
	if s == nil || s.DB == nil {
		return false, errors.New("store is not initialized")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	result, err := s.DB.ExecContext(ctx, `DELETE FROM candidates WHERE id = ?`, strings.TrimSpace(id))
	if err != nil {
		return false, fmt.Errorf("delete candidate: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete candidate: %w", err)
	}
	return affected > 0, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCandidate(row rowScanner) (core.Candidate, error) {
	var (
		id       string
		name     string
		category sql.NullString
		tags     string
		lastDate sql.NullString
	)
	if err := row.Scan(&id, &name, &category, &tags, &lastDate); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.Candidate{}, err
		}
		return core.Candidate{}, fmt.Errorf("scan candidate: %w", err)
	}

	candidate := core.Candidate{ID: id, Name: name, Category: category.String}
	if strings.TrimSpace(tags) != "" {
		if err := json.Unmarshal([]byte(tags), &candidate.Tags); err != nil {
			return core.Candidate{}, fmt.Errorf("decode tags for %s: %w", id, err)
		}
	}
	if lastDate.Valid {
		value, err := core.ParseDate(lastDate.String)
		if err != nil {
			return core.Candidate{}, fmt.Errorf("decode last selection for %s: %w", id, err)
		}
		candidate.LastSelected = &value
	}
	return candidate, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}
