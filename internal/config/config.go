package config

import (
	"errors"
	"os"
	"strconv"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

type Config struct {
	DiscordToken    string         `yaml:"discord_token"`
	DatabasePath    string         `yaml:"database_path"`
	LogLevel        string         `yaml:"log_level"`
	DefaultPrefix   string         `yaml:"default_prefix"`
	PrefixMaxLength int            `yaml:"prefix_max_length"`
	RetentionDays   int            `yaml:"retention_days"`
	Health          HealthConfig   `yaml:"health"`
	Moderation      ModConfig      `yaml:"moderation"`
	Pomodoro        PomodoroConfig `yaml:"pomodoro"`
	Embeds          EmbedConfig    `yaml:"embeds"`
}

type HealthConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

type ModConfig struct {
	MuteMinutes   int    `yaml:"mute_minutes"`
	MuteRoleName  string `yaml:"mute_role_name"`
	PurgeMax      int    `yaml:"purge_max"`
	SlowmodeMax   int    `yaml:"slowmode_max"`
	WarnThreshold int    `yaml:"warn_threshold"`
}

type PomodoroConfig struct {
	LengthMinutes     int `yaml:"length_minutes"`
	ShortBreakMinutes int `yaml:"short_break_minutes"`
	LongBreakMinutes  int `yaml:"long_break_minutes"`
	MaxMinutes        int `yaml:"max_minutes"`
}

type EmbedConfig struct {
	Action int `yaml:"action"`
	Error  int `yaml:"error"`
}

func DefaultConfig() Config {
	return Config{
		DatabasePath:    "/data/guildkeeper.db",
		LogLevel:        "info",
		DefaultPrefix:   "!",
		PrefixMaxLength: 8,
		RetentionDays:   30,
		Health:          HealthConfig{Enabled: false, Addr: ":8080"},
		Moderation: ModConfig{
			MuteMinutes:   5,
			MuteRoleName:  "Muted",
			PurgeMax:      100,
			SlowmodeMax:   21600,
			WarnThreshold: 3,
		},
		Pomodoro: PomodoroConfig{
			LengthMinutes:     25,
			ShortBreakMinutes: 5,
			LongBreakMinutes:  20,
			MaxMinutes:        180,
		},
		Embeds: EmbedConfig{
			Action: 0x3B82F6,
			Error:  0xEF4444,
		},
	}
}

func Load() (Config, error) {
	cfg := DefaultConfig()

	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = "config.yaml"
	}
	if data, err := os.ReadFile(path); err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, err
		}
	}

	applyEnv(&cfg)
	if cfg.DiscordToken == "" {
		return Config{}, errors.New("DISCORD_TOKEN is required")
	}
	if cfg.PrefixMaxLength <= 0 {
		cfg.PrefixMaxLength = 8
	}
	if cfg.DefaultPrefix == "" || len(cfg.DefaultPrefix) > cfg.PrefixMaxLength {
		cfg.DefaultPrefix = "!"
	}

	return cfg, nil
}

func applyEnv(cfg *Config) {
	cfg.DiscordToken = envString("DISCORD_TOKEN", cfg.DiscordToken)
	cfg.DatabasePath = envString("DATABASE_PATH", cfg.DatabasePath)
	cfg.LogLevel = envString("LOG_LEVEL", cfg.LogLevel)
	cfg.DefaultPrefix = envString("DEFAULT_PREFIX", cfg.DefaultPrefix)
	cfg.PrefixMaxLength = envInt("PREFIX_MAX_LENGTH", cfg.PrefixMaxLength)
	cfg.RetentionDays = envInt("RETENTION_DAYS", cfg.RetentionDays)
	cfg.Health.Enabled = envBool("HEALTH_ENABLED", cfg.Health.Enabled)
	cfg.Health.Addr = envString("HEALTH_ADDR", cfg.Health.Addr)
	cfg.Moderation.MuteMinutes = envInt("MUTE_MINUTES", cfg.Moderation.MuteMinutes)
	cfg.Moderation.MuteRoleName = envString("MUTE_ROLE_NAME", cfg.Moderation.MuteRoleName)
	cfg.Moderation.PurgeMax = envInt("PURGE_MAX", cfg.Moderation.PurgeMax)
	cfg.Moderation.WarnThreshold = envInt("WARN_THRESHOLD", cfg.Moderation.WarnThreshold)
	cfg.Pomodoro.LengthMinutes = envInt("POMODORO_LENGTH_MINUTES", cfg.Pomodoro.LengthMinutes)
	cfg.Pomodoro.ShortBreakMinutes = envInt("POMODORO_SHORT_BREAK_MINUTES", cfg.Pomodoro.ShortBreakMinutes)
	cfg.Pomodoro.LongBreakMinutes = envInt("POMODORO_LONG_BREAK_MINUTES", cfg.Pomodoro.LongBreakMinutes)
	cfg.Pomodoro.MaxMinutes = envInt("POMODORO_MAX_MINUTES", cfg.Pomodoro.MaxMinutes)
	cfg.Embeds.Action = envInt("EMBED_COLOR_ACTION", cfg.Embeds.Action)
	cfg.Embeds.Error = envInt("EMBED_COLOR_ERROR", cfg.Embeds.Error)
}

func BuildLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Encoding = "json"
	cfg.EncoderConfig.TimeKey = "time"
	cfg.EncoderConfig.MessageKey = "message"
	cfg.EncoderConfig.LevelKey = "level"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	lvl := strings.ToLower(level)
	switch lvl {
	case "debug", "info", "warn", "error":
		cfg.Level = zap.NewAtomicLevelAt(parseLevel(lvl))
	default:
		cfg.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	}

	return cfg.Build()
}

func parseLevel(level string) zapcore.Level {
	switch level {
	case "debug":
		return zapcore.DebugLevel
	case "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

func envString(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if value := os.Getenv(key); value != "" {
		lower := strings.ToLower(value)
		return lower == "1" || lower == "true" || lower == "yes"
	}
	return fallback
}
