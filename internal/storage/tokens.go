package storage

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

type PanelToken struct {
	ID         int64
	TokenHash  string
	Role       string
	Label      string
	CreatedAt  time.Time
	LastUsedAt *time.Time
}

func (s *Store) InsertToken(ctx context.Context, token PanelToken) (int64, error) {
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO panel_tokens (token_hash, role, label, created_at)
		VALUES (?, ?, ?, ?)
	`, token.TokenHash, token.Role, token.Label, token.CreatedAt.Unix())
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

func (s *Store) GetTokenByHash(ctx context.Context, hash string) (PanelToken, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, token_hash, role, label, created_at, last_used_at
		FROM panel_tokens WHERE token_hash = ?`, hash)

	var token PanelToken
	var created int64
	var lastUsed sql.NullInt64
	err := row.Scan(&token.ID, &token.TokenHash, &token.Role, &token.Label, &created, &lastUsed)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return PanelToken{}, ErrNotFound
		}
		return PanelToken{}, err
	}
	token.CreatedAt = time.Unix(created, 0)
	if lastUsed.Valid {
		value := time.Unix(lastUsed.Int64, 0)
		token.LastUsedAt = &value
	}
	return token, nil
}

func (s *Store) TouchToken(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, `UPDATE panel_tokens SET last_used_at = ? WHERE id = ?`, time.Now().Unix(), id)
	return err
}

func (s *Store) DeleteToken(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM panel_tokens WHERE id = ?`, id)
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
