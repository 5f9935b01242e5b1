package storage

import (
	"context"
	"strings"
)

func (s *Store) AllowWord(ctx context.Context, guildID, word string) error {
	_, err := s.db.ExecContext(ctx, `INSERT OR IGNORE INTO profanity_allowlist (guild_id, word) VALUES (?, ?)`, guildID, strings.ToLower(word))
	return err
}

func (s *Store) DisallowWord(ctx context.Context, guildID, word string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM profanity_allowlist WHERE guild_id = ? AND word = ?`, guildID, strings.ToLower(word))
	return err
}

func (s *Store) ListAllowedWords(ctx context.Context, guildID string) ([]string, error) {
	return s.listWords(ctx, `SELECT word FROM profanity_allowlist WHERE guild_id = ? ORDER BY word`, guildID)
}

func (s *Store) BlockWord(ctx context.Context, guildID, word string) error {
	_, err := s.db.ExecContext(ctx, `INSERT OR IGNORE INTO profanity_blocklist (guild_id, word) VALUES (?, ?)`, guildID, strings.ToLower(word))
	return err
}

func (s *Store) UnblockWord(ctx context.Context, guildID, word string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM profanity_blocklist WHERE guild_id = ? AND word = ?`, guildID, strings.ToLower(word))
	return err
}

func (s *Store) ListBlockedWords(ctx context.Context, guildID string) ([]string, error) {
	return s.listWords(ctx, `SELECT word FROM profanity_blocklist WHERE guild_id = ? ORDER BY word`, guildID)
}

func (s *Store) listWords(ctx context.Context, query, guildID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, query, guildID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var words []string
	for rows.Next() {
		var word string
		if err := rows.Scan(&word); err != nil {
			return nil, err
		}
		words = append(words, word)
	}
	return words, rows.Err()
}
