package storage

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"path"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrations embed.FS

var ErrNotFound = errors.New("not found")

type Store struct {
	db *sql.DB
}

type GuildSettings struct {
	GuildID       string
	LogChannel    string
	Language      string
	TTSEnabled    bool
	VoxEnabled    bool
	VoxSoundSet   string
	TTSVoice      string
	RetentionDays int
	UpdatedAt     time.Time
}

type AuditLog struct {
	ID        int64
	GuildID   string
	ActorID   string
	TargetID  string
	Level     string
	Event     string
	Details   string
	CreatedAt time.Time
}

func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() {
	if s.db != nil {
		_ = s.db.Close()
	}
}

func (s *Store) Migrate() error {
	entries, err := migrations.ReadDir("migrations")
	if err != nil {
		return err
	}

	var files []string
	for _, entry := range entries {
		files = append(files, entry.Name())
	}
	sort.Strings(files)

	for _, file := range files {
		content, err := migrations.ReadFile(path.Join("migrations", file))
		if err != nil {
			return err
		}
		if _, err := s.db.Exec(string(content)); err != nil {
			if isIgnorableMigrationError(err) {
				continue
			}
			return fmt.Errorf("migration %s failed: %w", file, err)
		}
	}
	return nil
}

func (s *Store) GetGuildSettings(ctx context.Context, guildID string, defaults GuildSettings) (GuildSettings, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT log_channel, language, tts_enabled, vox_enabled, vox_sound_set,
		tts_voice, retention_days, updated_at
		FROM guild_settings WHERE guild_id = ?`, guildID)

	result := defaults
	result.GuildID = guildID

	var tts, vox int
	var updated int64
	err := row.Scan(
		&result.LogChannel,
		&result.Language,
		&tts,
		&vox,
		&result.VoxSoundSet,
		&result.TTSVoice,
		&result.RetentionDays,
		&updated,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return result, nil
		}
		return GuildSettings{}, err
	}
	result.TTSEnabled = tts == 1
	result.VoxEnabled = vox == 1
	result.UpdatedAt = time.Unix(updated, 0)
	if result.Language == "" {
		result.Language = defaults.Language
	}
	return result, nil
}

func (s *Store) UpsertGuildSettings(ctx context.Context, settings GuildSettings) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO guild_settings (
			guild_id, log_channel, language, tts_enabled, vox_enabled,
			vox_sound_set, tts_voice, retention_days, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(guild_id) DO UPDATE SET
			log_channel = excluded.log_channel,
			language = excluded.language,
			tts_enabled = excluded.tts_enabled,
			vox_enabled = excluded.vox_enabled,
			vox_sound_set = excluded.vox_sound_set,
			tts_voice = excluded.tts_voice,
			retention_days = excluded.retention_days,
			updated_at = excluded.updated_at
	`,
		settings.GuildID,
		settings.LogChannel,
		settings.Language,
		boolToInt(settings.TTSEnabled),
		boolToInt(settings.VoxEnabled),
		settings.VoxSoundSet,
		settings.TTSVoice,
		settings.RetentionDays,
		time.Now().Unix(),
	)
	return err
}

func (s *Store) AddAuditLog(ctx context.Context, log AuditLog) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO audit_logs (guild_id, actor_id, target_id, level, event, details, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, log.GuildID, log.ActorID, log.TargetID, log.Level, log.Event, log.Details, log.CreatedAt.Unix())
	return err
}

func (s *Store) ListAuditLogs(ctx context.Context, guildID string, since time.Time, level string, limit int) ([]AuditLog, error) {
	query := `
		SELECT id, guild_id, actor_id, target_id, level, event, details, created_at
		FROM audit_logs
		WHERE guild_id = ? AND created_at >= ?`
	args := []any{guildID, since.Unix()}
	if level != "" {
		query += ` AND level = ?`
		args = append(args, level)
	}
	query += ` ORDER BY created_at DESC, id DESC`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var logs []AuditLog
	for rows.Next() {
		var log AuditLog
		var created int64
		if err := rows.Scan(&log.ID, &log.GuildID, &log.ActorID, &log.TargetID, &log.Level, &log.Event, &log.Details, &created); err != nil {
			return nil, err
		}
		log.CreatedAt = time.Unix(created, 0)
		logs = append(logs, log)
	}
	return logs, rows.Err()
}

func (s *Store) CleanupAuditLogs(ctx context.Context, retentionDays int) error {
	cutoff := time.Now().AddDate(0, 0, -retentionDays)
	_, err := s.db.ExecContext(ctx, `DELETE FROM audit_logs WHERE created_at < ?`, cutoff.Unix())
	return err
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}

func isIgnorableMigrationError(err error) bool {
	if err == nil {
		return false
	}
	message := err.Error()
	return strings.Contains(message, "duplicate column name") || strings.Contains(message, "already exists")
}
