package storage

import (
	"context"
	"time"
)

type WatchlistEntry struct {
	GuildID   string
	Domain    string
	AddedBy   string
	CreatedAt time.Time
}

func (s *Store) AddWatchlistDomain(ctx context.Context, entry WatchlistEntry) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO watchlist_domains (guild_id, domain, added_by, created_at)
		VALUES (?, ?, ?, ?)
	`, entry.GuildID, entry.Domain, entry.AddedBy, entry.CreatedAt.Unix())
	return err
}

func (s *Store) RemoveWatchlistDomain(ctx context.Context, guildID, domain string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM watchlist_domains WHERE guild_id = ? AND domain = ?`, guildID, domain)
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

func (s *Store) ListWatchlistDomains(ctx context.Context, guildID string) ([]WatchlistEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT guild_id, domain, added_by, created_at
		FROM watchlist_domains WHERE guild_id = ? ORDER BY domain
	`, guildID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []WatchlistEntry
	for rows.Next() {
		var entry WatchlistEntry
		var created int64
		if err := rows.Scan(&entry.GuildID, &entry.Domain, &entry.AddedBy, &created); err != nil {
			return nil, err
		}
		entry.CreatedAt = time.Unix(created, 0)
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}
