package storage

import (
	"context"
	"time"
)

type Notification struct {
	ID        int64
	GuildID   string
	Level     string
	Title     string
	Body      string
	Read      bool
	CreatedAt time.Time
}

func (s *Store) InsertNotification(ctx context.Context, n Notification) (int64, error) {
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO notifications (guild_id, level, title, body, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, n.GuildID, n.Level, n.Title, n.Body, n.CreatedAt.Unix())
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

func (s *Store) ListNotifications(ctx context.Context, guildID string, unreadOnly bool, limit int) ([]Notification, error) {
	query := `
		SELECT id, guild_id, level, title, body, read, created_at
		FROM notifications
		WHERE guild_id = ?`
	args := []any{guildID}
	if unreadOnly {
		query += ` AND read = 0`
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

	var notifications []Notification
	for rows.Next() {
		var n Notification
		var read int
		var created int64
		if err := rows.Scan(&n.ID, &n.GuildID, &n.Level, &n.Title, &n.Body, &read, &created); err != nil {
			return nil, err
		}
		n.Read = read == 1
		n.CreatedAt = time.Unix(created, 0)
		notifications = append(notifications, n)
	}
	return notifications, rows.Err()
}

func (s *Store) MarkNotificationRead(ctx context.Context, guildID string, id int64) error {
	result, err := s.db.ExecContext(ctx, `UPDATE notifications SET read = 1 WHERE id = ? AND guild_id = ?`, id, guildID)
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

func (s *Store) MarkAllNotificationsRead(ctx context.Context, guildID string) (int64, error) {
	result, err := s.db.ExecContext(ctx, `UPDATE notifications SET read = 1 WHERE guild_id = ? AND read = 0`, guildID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func (s *Store) DeleteNotification(ctx context.Context, guildID string, id int64) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM notifications WHERE id = ? AND guild_id = ?`, id, guildID)
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
