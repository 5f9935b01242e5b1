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

const (
	ProfanityOff    = "off"
	ProfanityCensor = "censor"
	ProfanityDelete = "delete"

	WarnActionNone = "none"
	WarnActionKick = "kick"
	WarnActionBan  = "ban"
)

type Store struct {
	db *sql.DB
}

type GuildPolicy struct {
	GuildID        string
	Prefix         string
	ProfanityMode  string
	WarnAction     string
	WarnThreshold  int
	AllowInvites   bool
	WelcomeChannel string
	LoggingChannel string
	EmbedR         int
	EmbedG         int
	EmbedB         int
	EmbedRandom    bool
}

type ServerLog struct {
	ID        int64
	GuildID   string
	UserID    string
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

func (s *Store) GetGuildPolicy(ctx context.Context, guildID string, defaults GuildPolicy) (GuildPolicy, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT prefix, profanity_mode, warn_action, warn_threshold, allow_invites,
		welcome_channel, logging_channel, embed_r, embed_g, embed_b, embed_random
		FROM guild_policies WHERE guild_id = ?`, guildID)

	result := defaults
	result.GuildID = guildID

	var invites, random int
	err := row.Scan(
		&result.Prefix,
		&result.ProfanityMode,
		&result.WarnAction,
		&result.WarnThreshold,
		&invites,
		&result.WelcomeChannel,
		&result.LoggingChannel,
		&result.EmbedR,
		&result.EmbedG,
		&result.EmbedB,
		&random,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return result, nil
		}
		return GuildPolicy{}, err
	}
	result.AllowInvites = invites == 1
	result.EmbedRandom = random == 1
	if result.Prefix == "" {
		result.Prefix = defaults.Prefix
	}
	return result, nil
}

func (s *Store) UpsertGuildPolicy(ctx context.Context, policy GuildPolicy) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO guild_policies (
			guild_id, prefix, profanity_mode, warn_action, warn_threshold,
			allow_invites, welcome_channel, logging_channel,
			embed_r, embed_g, embed_b, embed_random
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(guild_id) DO UPDATE SET
			prefix = excluded.prefix,
			profanity_mode = excluded.profanity_mode,
			warn_action = excluded.warn_action,
			warn_threshold = excluded.warn_threshold,
			allow_invites = excluded.allow_invites,
			welcome_channel = excluded.welcome_channel,
			logging_channel = excluded.logging_channel,
			embed_r = excluded.embed_r,
			embed_g = excluded.embed_g,
			embed_b = excluded.embed_b,
			embed_random = excluded.embed_random
	`,
		policy.GuildID,
		policy.Prefix,
		policy.ProfanityMode,
		policy.WarnAction,
		policy.WarnThreshold,
		boolToInt(policy.AllowInvites),
		policy.WelcomeChannel,
		policy.LoggingChannel,
		policy.EmbedR,
		policy.EmbedG,
		policy.EmbedB,
		boolToInt(policy.EmbedRandom),
	)
	return err
}

func (s *Store) AddServerLog(ctx context.Context, log ServerLog) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO server_logs (guild_id, user_id, event, details, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, log.GuildID, log.UserID, log.Event, log.Details, log.CreatedAt.Unix())
	return err
}

func (s *Store) ListServerLogs(ctx context.Context, guildID string, since time.Time) ([]ServerLog, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, guild_id, user_id, event, details, created_at
		FROM server_logs
		WHERE guild_id = ? AND created_at >= ?
		ORDER BY created_at DESC
	`, guildID, since.Unix())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var logs []ServerLog
	for rows.Next() {
		var log ServerLog
		var created int64
		if err := rows.Scan(&log.ID, &log.GuildID, &log.UserID, &log.Event, &log.Details, &created); err != nil {
			return nil, err
		}
		log.CreatedAt = time.Unix(created, 0)
		logs = append(logs, log)
	}
	return logs, rows.Err()
}

func (s *Store) CleanupServerLogs(ctx context.Context, retentionDays int) error {
	cutoff := time.Now().AddDate(0, 0, -retentionDays)
	_, err := s.db.ExecContext(ctx, `DELETE FROM server_logs WHERE created_at < ?`, cutoff.Unix())
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
