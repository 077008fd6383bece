package storage

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

type ScheduledMessage struct {
	ID        int64
	GuildID   string
	ChannelID string
	CronExpr  string
	Content   string
	Enabled   bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (s *Store) InsertSchedule(ctx context.Context, m ScheduledMessage) (int64, error) {
	now := time.Now().Unix()
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO scheduled_messages (guild_id, channel_id, cron_expr, content, enabled, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, m.GuildID, m.ChannelID, m.CronExpr, m.Content, boolToInt(m.Enabled), now, now)
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

func (s *Store) UpdateSchedule(ctx context.Context, m ScheduledMessage) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE scheduled_messages
		SET channel_id = ?, cron_expr = ?, content = ?, enabled = ?, updated_at = ?
		WHERE id = ? AND guild_id = ?
	`, m.ChannelID, m.CronExpr, m.Content, boolToInt(m.Enabled), time.Now().Unix(), m.ID, m.GuildID)
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

func (s *Store) DeleteSchedule(ctx context.Context, guildID string, id int64) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM scheduled_messages WHERE id = ? AND guild_id = ?`, id, guildID)
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

func (s *Store) GetSchedule(ctx context.Context, id int64) (ScheduledMessage, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, guild_id, channel_id, cron_expr, content, enabled, created_at, updated_at
		FROM scheduled_messages WHERE id = ?`, id)
	return scanSchedule(row)
}

func (s *Store) ListSchedules(ctx context.Context, guildID string) ([]ScheduledMessage, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, guild_id, channel_id, cron_expr, content, enabled, created_at, updated_at
		FROM scheduled_messages
		WHERE guild_id = ?
		ORDER BY id
	`, guildID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []ScheduledMessage
	for rows.Next() {
		m, err := scanSchedule(rows)
		if err != nil {
			return nil, err
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}

func (s *Store) ListEnabledSchedules(ctx context.Context) ([]ScheduledMessage, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, guild_id, channel_id, cron_expr, content, enabled, created_at, updated_at
		FROM scheduled_messages
		WHERE enabled = 1
		ORDER BY id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []ScheduledMessage
	for rows.Next() {
		m, err := scanSchedule(rows)
		if err != nil {
			return nil, err
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}

func scanSchedule(row scannable) (ScheduledMessage, error) {
	var m ScheduledMessage
	var enabled int
	var created, updated int64
	err := row.Scan(&m.ID, &m.GuildID, &m.ChannelID, &m.CronExpr, &m.Content, &enabled, &created, &updated)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ScheduledMessage{}, ErrNotFound
		}
		return ScheduledMessage{}, err
	}
	m.Enabled = enabled == 1
	m.CreatedAt = time.Unix(created, 0)
	m.UpdatedAt = time.Unix(updated, 0)
	return m, nil
}
