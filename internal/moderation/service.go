package moderation

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"guildkeeper/internal/storage"
)

// Enforcer performs the platform side effects a warn action can trigger.
type Enforcer interface {
	Kick(ctx context.Context, guildID, userID, reason string) error
	Ban(ctx context.Context, guildID, userID, reason string, deleteDays int) error
}

type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

type WarnResult struct {
	Count       int
	Threshold   int
	Action      string
	ActionTaken bool
}

// Service owns per-guild moderation policy. Setters validate before
// persisting so invalid input leaves the stored policy untouched.
type Service struct {
	store     *storage.Store
	enforcer  Enforcer
	defaults  storage.GuildPolicy
	prefixMax int
	logger    *zap.Logger
}

func NewService(store *storage.Store, enforcer Enforcer, defaults storage.GuildPolicy, prefixMax int, logger *zap.Logger) *Service {
	return &Service{
		store:     store,
		enforcer:  enforcer,
		defaults:  defaults,
		prefixMax: prefixMax,
		logger:    logger,
	}
}

func (s *Service) Policy(ctx context.Context, guildID string) (storage.GuildPolicy, error) {
	return s.store.GetGuildPolicy(ctx, guildID, s.defaults)
}

// RecordWarning appends a warning and applies the guild's configured
// warn action when the updated count reaches the threshold. The action
// runs only on the warning that crosses the threshold, so warnings past
// it do not kick or ban the same user again.
func (s *Service) RecordWarning(ctx context.Context, guildID, userID, reason string) (WarnResult, error) {
	warning := storage.Warning{
		GuildID:   guildID,
		UserID:    userID,
		Reason:    reason,
		CreatedAt: time.Now(),
	}
	if err := s.store.AddWarning(ctx, warning); err != nil {
		return WarnResult{}, err
	}
	count, err := s.store.CountWarnings(ctx, guildID, userID)
	if err != nil {
		return WarnResult{}, err
	}
	policy, err := s.Policy(ctx, guildID)
	if err != nil {
		return WarnResult{}, err
	}

	result := WarnResult{Count: count, Threshold: policy.WarnThreshold, Action: policy.WarnAction}
	s.writeLog(ctx, guildID, userID, "warn", reason)

	if policy.WarnAction == storage.WarnActionNone || count != policy.WarnThreshold {
		return result, nil
	}

	actionReason := fmt.Sprintf("warning threshold reached (%d/%d)", count, policy.WarnThreshold)
	switch policy.WarnAction {
	case storage.WarnActionKick:
		if err := s.enforcer.Kick(ctx, guildID, userID, actionReason); err != nil {
			return result, fmt.Errorf("kick %s: %w", userID, err)
		}
	case storage.WarnActionBan:
		if err := s.enforcer.Ban(ctx, guildID, userID, actionReason, 0); err != nil {
			return result, fmt.Errorf("ban %s: %w", userID, err)
		}
	}
	result.ActionTaken = true
	s.writeLog(ctx, guildID, userID, policy.WarnAction, actionReason)
	return result, nil
}

func (s *Service) Warnings(ctx context.Context, guildID, userID string) ([]storage.Warning, error) {
	return s.store.ListWarnings(ctx, guildID, userID)
}

func (s *Service) SetPrefix(ctx context.Context, guildID, prefix string) error {
	if prefix == "" {
		return &ValidationError{Field: "prefix", Reason: "cannot be empty"}
	}
	if len(prefix) > s.prefixMax {
		return &ValidationError{Field: "prefix", Reason: fmt.Sprintf("cannot exceed %d characters", s.prefixMax)}
	}
	if strings.ContainsAny(prefix, " \t") {
		return &ValidationError{Field: "prefix", Reason: "cannot contain whitespace"}
	}
	return s.mutatePolicy(ctx, guildID, func(policy *storage.GuildPolicy) {
		policy.Prefix = prefix
	})
}

func (s *Service) SetProfanityMode(ctx context.Context, guildID, mode string) error {
	mode = strings.ToLower(mode)
	switch mode {
	case storage.ProfanityOff, storage.ProfanityCensor, storage.ProfanityDelete:
	default:
		return &ValidationError{Field: "mode", Reason: "must be off, censor or delete"}
	}
	return s.mutatePolicy(ctx, guildID, func(policy *storage.GuildPolicy) {
		policy.ProfanityMode = mode
	})
}

func (s *Service) SetWarnAction(ctx context.Context, guildID, action string, threshold int) error {
	action = strings.ToLower(action)
	switch action {
	case storage.WarnActionNone, storage.WarnActionKick, storage.WarnActionBan:
	default:
		return &ValidationError{Field: "action", Reason: "must be none, kick or ban"}
	}
	if threshold <= 0 {
		return &ValidationError{Field: "threshold", Reason: "must be a positive number"}
	}
	return s.mutatePolicy(ctx, guildID, func(policy *storage.GuildPolicy) {
		policy.WarnAction = action
		policy.WarnThreshold = threshold
	})
}

func (s *Service) SetInvitePolicy(ctx context.Context, guildID string, allow bool) error {
	return s.mutatePolicy(ctx, guildID, func(policy *storage.GuildPolicy) {
		policy.AllowInvites = allow
	})
}

// SetEmbedColor accepts either the literal "random" or an RGB triple
// like "59 130 246".
func (s *Service) SetEmbedColor(ctx context.Context, guildID, input string) error {
	input = strings.TrimSpace(strings.ToLower(input))
	if input == "random" {
		return s.mutatePolicy(ctx, guildID, func(policy *storage.GuildPolicy) {
			policy.EmbedRandom = true
		})
	}

	parts := strings.Fields(input)
	if len(parts) != 3 {
		return &ValidationError{Field: "color", Reason: "must be 'random' or three numbers between 0 and 255"}
	}
	rgb := make([]int, 3)
	for i, part := range parts {
		value, err := strconv.Atoi(part)
		if err != nil || value < 0 || value > 255 {
			return &ValidationError{Field: "color", Reason: "components must be numbers between 0 and 255"}
		}
		rgb[i] = value
	}
	return s.mutatePolicy(ctx, guildID, func(policy *storage.GuildPolicy) {
		policy.EmbedR, policy.EmbedG, policy.EmbedB = rgb[0], rgb[1], rgb[2]
		policy.EmbedRandom = false
	})
}

func (s *Service) SetWelcomeChannel(ctx context.Context, guildID, channelID string) error {
	return s.mutatePolicy(ctx, guildID, func(policy *storage.GuildPolicy) {
		policy.WelcomeChannel = channelID
	})
}

func (s *Service) SetLoggingChannel(ctx context.Context, guildID, channelID string) error {
	return s.mutatePolicy(ctx, guildID, func(policy *storage.GuildPolicy) {
		policy.LoggingChannel = channelID
	})
}

func (s *Service) AllowWord(ctx context.Context, guildID, word string) error {
	return s.store.AllowWord(ctx, guildID, word)
}

func (s *Service) DisallowWord(ctx context.Context, guildID, word string) error {
	return s.store.DisallowWord(ctx, guildID, word)
}

func (s *Service) BlockWord(ctx context.Context, guildID, word string) error {
	return s.store.BlockWord(ctx, guildID, word)
}

func (s *Service) UnblockWord(ctx context.Context, guildID, word string) error {
	return s.store.UnblockWord(ctx, guildID, word)
}

func (s *Service) GuildLists(ctx context.Context, guildID string) ([]string, []string, error) {
	allowed, err := s.store.ListAllowedWords(ctx, guildID)
	if err != nil {
		return nil, nil, err
	}
	blocked, err := s.store.ListBlockedWords(ctx, guildID)
	if err != nil {
		return nil, nil, err
	}
	return allowed, blocked, nil
}

func (s *Service) LogEvent(ctx context.Context, guildID, userID, event, details string) {
	s.writeLog(ctx, guildID, userID, event, details)
}

func (s *Service) RecentLogs(ctx context.Context, guildID string, since time.Time) ([]storage.ServerLog, error) {
	return s.store.ListServerLogs(ctx, guildID, since)
}

func (s *Service) mutatePolicy(ctx context.Context, guildID string, mutate func(*storage.GuildPolicy)) error {
	policy, err := s.Policy(ctx, guildID)
	if err != nil {
		return err
	}
	mutate(&policy)
	return s.store.UpsertGuildPolicy(ctx, policy)
}

func (s *Service) writeLog(ctx context.Context, guildID, userID, event, details string) {
	err := s.store.AddServerLog(ctx, storage.ServerLog{
		GuildID:   guildID,
		UserID:    userID,
		Event:     event,
		Details:   details,
		CreatedAt: time.Now(),
	})
	if err != nil {
		s.logger.Warn("server log write failed",
			zap.String("guild_id", guildID),
			zap.String("event", event),
			zap.Error(err))
	}
}
