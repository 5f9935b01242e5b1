package storage

import (
	"context"
	"time"
)

type Warning struct {
	ID        int64
	GuildID   string
	UserID    string
	Reason    string
	CreatedAt time.Time
}

func (s *Store) AddWarning(ctx context.Context, warning Warning) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO warnings (guild_id, user_id, reason, created_at)
		VALUES (?, ?, ?, ?)
	`, warning.GuildID, warning.UserID, warning.Reason, warning.CreatedAt.Unix())
	return err
}

func (s *Store) ListWarnings(ctx context.Context, guildID, userID string) ([]Warning, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, guild_id, user_id, reason, created_at
		FROM warnings
		WHERE guild_id = ? AND user_id = ?
		ORDER BY created_at ASC, id ASC
	`, guildID, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var warnings []Warning
	for rows.Next() {
		var warning Warning
		var created int64
		if err := rows.Scan(&warning.ID, &warning.GuildID, &warning.UserID, &warning.Reason, &created); err != nil {
			return nil, err
		}
		warning.CreatedAt = time.Unix(created, 0)
		warnings = append(warnings, warning)
	}
	return warnings, rows.Err()
}

func (s *Store) CountWarnings(ctx context.Context, guildID, userID string) (int, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM warnings WHERE guild_id = ? AND user_id = ?
	`, guildID, userID)

	var count int
	if err := row.Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}
