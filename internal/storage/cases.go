package storage

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

type ModerationCase struct {
	ID          int64
	GuildID     string
	UserID      string
	ModeratorID string
	Kind        string
	Reason      string
	Status      string
	Note        string
	CreatedAt   time.Time
	ResolvedAt  *time.Time
}

type CaseFilter struct {
	UserID string
	Kind   string
	Status string
	// Keyset cursor: return rows strictly older than (BeforeTime, BeforeID).
	BeforeTime time.Time
	BeforeID   int64
	Limit      int
}

func (s *Store) InsertCase(ctx context.Context, c ModerationCase) (int64, error) {
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO moderation_cases (guild_id, user_id, moderator_id, kind, reason, status, note, created_at)
		VALUES (?, ?, ?, ?, ?, 'open', ?, ?)
	`, c.GuildID, c.UserID, c.ModeratorID, c.Kind, c.Reason, c.Note, c.CreatedAt.Unix())
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

func (s *Store) GetCase(ctx context.Context, id int64) (ModerationCase, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, guild_id, user_id, moderator_id, kind, reason, status, note, created_at, resolved_at
		FROM moderation_cases WHERE id = ?`, id)
	return scanCase(row)
}

func (s *Store) ResolveCase(ctx context.Context, id int64, note string, at time.Time) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE moderation_cases
		SET status = 'resolved', note = CASE WHEN ? != '' THEN ? ELSE note END, resolved_at = ?
		WHERE id = ? AND status = 'open'
	`, note, note, at.Unix(), id)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) AppendCaseNote(ctx context.Context, id int64, note string) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE moderation_cases
		SET note = CASE WHEN note = '' THEN ? ELSE note || char(10) || ? END
		WHERE id = ?
	`, note, note, id)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) ListCases(ctx context.Context, guildID string, filter CaseFilter) ([]ModerationCase, error) {
	query := `
		SELECT id, guild_id, user_id, moderator_id, kind, reason, status, note, created_at, resolved_at
		FROM moderation_cases
		WHERE guild_id = ?`
	args := []any{guildID}

	if filter.UserID != "" {
		query += ` AND user_id = ?`
		args = append(args, filter.UserID)
	}
	if filter.Kind != "" {
		query += ` AND kind = ?`
		args = append(args, filter.Kind)
	}
	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, filter.Status)
	}
	if !filter.BeforeTime.IsZero() {
		query += ` AND (created_at < ? OR (created_at = ? AND id < ?))`
		args = append(args, filter.BeforeTime.Unix(), filter.BeforeTime.Unix(), filter.BeforeID)
	}
	query += ` ORDER BY created_at DESC, id DESC`
	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cases []ModerationCase
	for rows.Next() {
		c, err := scanCase(rows)
		if err != nil {
			return nil, err
		}
		cases = append(cases, c)
	}
	return cases, rows.Err()
}

func (s *Store) CountCasesByKind(ctx context.Context, guildID string) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT kind, COUNT(*) FROM moderation_cases WHERE guild_id = ? GROUP BY kind
	`, guildID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var kind string
		var count int
		if err := rows.Scan(&kind, &count); err != nil {
			return nil, err
		}
		counts[kind] = count
	}
	return counts, rows.Err()
}

func (s *Store) CountCases(ctx context.Context, guildID, status string) (int, error) {
	query := `SELECT COUNT(*) FROM moderation_cases WHERE guild_id = ?`
	args := []any{guildID}
	if status != "" {
		query += ` AND status = ?`
		args = append(args, status)
	}
	var count int
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanCase(row scannable) (ModerationCase, error) {
	var c ModerationCase
	var created int64
	var resolved sql.NullInt64
	err := row.Scan(&c.ID, &c.GuildID, &c.UserID, &c.ModeratorID, &c.Kind, &c.Reason, &c.Status, &c.Note, &created, &resolved)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ModerationCase{}, ErrNotFound
		}
		return ModerationCase{}, err
	}
	c.CreatedAt = time.Unix(created, 0)
	if resolved.Valid {
		value := time.Unix(resolved.Int64, 0)
		c.ResolvedAt = &value
	}
	return c, nil
}
