package storage

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

type FlaggedEvent struct {
	ID        int64
	GuildID   string
	UserID    string
	Rule      string
	Details   string
	Reviewed  bool
	CaseID    *int64
	CreatedAt time.Time
}

func (s *Store) InsertFlaggedEvent(ctx context.Context, f FlaggedEvent) (int64, error) {
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO flagged_events (guild_id, user_id, rule, details, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, f.GuildID, f.UserID, f.Rule, f.Details, f.CreatedAt.Unix())
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

func (s *Store) GetFlaggedEvent(ctx context.Context, id int64) (FlaggedEvent, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, guild_id, user_id, rule, details, reviewed, case_id, created_at
		FROM flagged_events WHERE id = ?`, id)

	var f FlaggedEvent
	var reviewed int
	var caseID sql.NullInt64
	var created int64
	err := row.Scan(&f.ID, &f.GuildID, &f.UserID, &f.Rule, &f.Details, &reviewed, &caseID, &created)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return FlaggedEvent{}, ErrNotFound
		}
		return FlaggedEvent{}, err
	}
	f.Reviewed = reviewed == 1
	if caseID.Valid {
		f.CaseID = &caseID.Int64
	}
	f.CreatedAt = time.Unix(created, 0)
	return f, nil
}

func (s *Store) ListFlaggedEvents(ctx context.Context, guildID string, unreviewedOnly bool, limit int) ([]FlaggedEvent, error) {
	query := `
		SELECT id, guild_id, user_id, rule, details, reviewed, case_id, created_at
		FROM flagged_events
		WHERE guild_id = ?`
	args := []any{guildID}
	if unreviewedOnly {
		query += ` AND reviewed = 0`
	}
	query += ` ORDER BY created_at DESC, id DESC`
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

	var events []FlaggedEvent
	for rows.Next() {
		var f FlaggedEvent
		var reviewed int
		var caseID sql.NullInt64
		var created int64
		if err := rows.Scan(&f.ID, &f.GuildID, &f.UserID, &f.Rule, &f.Details, &reviewed, &caseID, &created); err != nil {
			return nil, err
		}
		f.Reviewed = reviewed == 1
		if caseID.Valid {
			f.CaseID = &caseID.Int64
		}
		f.CreatedAt = time.Unix(created, 0)
		events = append(events, f)
	}
	return events, rows.Err()
}

func (s *Store) MarkFlaggedEventReviewed(ctx context.Context, id int64, caseID *int64) error {
	var linked any
	if caseID != nil {
		linked = *caseID
	}
	result, err := s.db.ExecContext(ctx, `
		UPDATE flagged_events SET reviewed = 1, case_id = ? WHERE id = ? AND reviewed = 0
	`, linked, id)
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
