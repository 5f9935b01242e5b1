package storage

import (
	"context"
	"database/sql"
	"errors"
)

func (s *Store) SetUserTimezone(ctx context.Context, userID, timezone string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO user_timezones (user_id, timezone) VALUES (?, ?)
		ON CONFLICT(user_id) DO UPDATE SET timezone = excluded.timezone
	`, userID, timezone)
	return err
}

// GetUserTimezone returns an empty string when the user has not
// registered a timezone.
func (s *Store) GetUserTimezone(ctx context.Context, userID string) (string, error) {
	row := s.db.QueryRowContext(ctx, `SELECT timezone FROM user_timezones WHERE user_id = ?`, userID)

	var timezone string
	if err := row.Scan(&timezone); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil
		}
		return "", err
	}
	return timezone, nil
}
