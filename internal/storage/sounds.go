package storage

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

type Sound struct {
	ID          int64
	GuildID     string
	Name        string
	FileName    string
	Size        int64
	ContentType string
	UploadedBy  string
	CreatedAt   time.Time
}

func (s *Store) InsertSound(ctx context.Context, sound Sound) (int64, error) {
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO sounds (guild_id, name, file_name, size, content_type, uploaded_by, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, sound.GuildID, sound.Name, sound.FileName, sound.Size, sound.ContentType, sound.UploadedBy, sound.CreatedAt.Unix())
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

func (s *Store) GetSound(ctx context.Context, guildID, name string) (Sound, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, guild_id, name, file_name, size, content_type, uploaded_by, created_at
		FROM sounds WHERE guild_id = ? AND name = ?`, guildID, name)
	return scanSound(row)
}

func (s *Store) ListSounds(ctx context.Context, guildID string) ([]Sound, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, guild_id, name, file_name, size, content_type, uploaded_by, created_at
		FROM sounds WHERE guild_id = ? ORDER BY name
	`, guildID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sounds []Sound
	for rows.Next() {
		sound, err := scanSound(rows)
		if err != nil {
			return nil, err
		}
		sounds = append(sounds, sound)
	}
	return sounds, rows.Err()
}

func (s *Store) DeleteSound(ctx context.Context, guildID, name string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM sounds WHERE guild_id = ? AND name = ?`, guildID, name)
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

func scanSound(row scannable) (Sound, error) {
	var sound Sound
	var created int64
	err := row.Scan(&sound.ID, &sound.GuildID, &sound.Name, &sound.FileName, &sound.Size, &sound.ContentType, &sound.UploadedBy, &created)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Sound{}, ErrNotFound
		}
		return Sound{}, err
	}
	sound.CreatedAt = time.Unix(created, 0)
	return sound, nil
}
