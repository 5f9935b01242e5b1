package bot

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"guildkeeper/internal/command"
	"guildkeeper/internal/config"
	"guildkeeper/internal/moderation"
	"guildkeeper/internal/profanity"
	"guildkeeper/internal/sched"
	"guildkeeper/internal/storage"
	"guildkeeper/internal/utils"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

type Bot struct {
	cfg      config.Config
	logger   *zap.Logger
	store    *storage.Store
	mod      *moderation.Service
	sched    *sched.Scheduler
	registry *command.Registry
	session  *discordgo.Session

	limiterMu sync.Mutex
	limiters  map[string]*rate.Limiter

	started      time.Time
	disconnected chan struct{}
	closeOnce    sync.Once
}

func New(cfg config.Config, logger *zap.Logger, store *storage.Store) (*Bot, error) {
	session, err := discordgo.New("Bot " + cfg.DiscordToken)
	if err != nil {
		return nil, err
	}

	session.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsGuildMembers |
		discordgo.IntentsGuildBans |
		discordgo.IntentsDirectMessages |
		discordgo.IntentsMessageContent

	b := &Bot{
		cfg:          cfg,
		logger:       logger,
		store:        store,
		registry:     command.NewRegistry(),
		session:      session,
		limiters:     make(map[string]*rate.Limiter),
		started:      time.Now(),
		disconnected: make(chan struct{}),
	}

	defaults := storage.GuildPolicy{
		Prefix:        cfg.DefaultPrefix,
		ProfanityMode: storage.ProfanityOff,
		WarnAction:    storage.WarnActionNone,
		WarnThreshold: cfg.Moderation.WarnThreshold,
		AllowInvites:  true,
		EmbedR:        (cfg.Embeds.Action >> 16) & 0xFF,
		EmbedG:        (cfg.Embeds.Action >> 8) & 0xFF,
		EmbedB:        cfg.Embeds.Action & 0xFF,
	}
	b.mod = moderation.NewService(store, &sessionEnforcer{session: session}, defaults, cfg.PrefixMaxLength, logger)
	b.sched = sched.New(b.timerEffect, logger)

	if err := b.registerCommands(); err != nil {
		return nil, err
	}
	return b, nil
}

func (b *Bot) Start() error {
	b.session.AddHandler(b.onReady)
	b.session.AddHandler(b.onMessageCreate)
	b.session.AddHandler(b.onGuildMemberAdd)
	b.session.AddHandler(b.onDisconnect)

	return b.session.Open()
}

// Disconnected is closed when the gateway connection drops. The process
// treats that as fatal; in-flight timers are best effort.
func (b *Bot) Disconnected() <-chan struct{} {
	return b.disconnected
}

func (b *Bot) Close(ctx context.Context) {
	_ = ctx
	b.sched.Stop()
	if b.session != nil {
		_ = b.session.Close()
	}
}

func (b *Bot) onReady(session *discordgo.Session, event *discordgo.Ready) {
	b.logger.Info("discord ready",
		zap.String("user", session.State.User.Username),
		zap.Int("guilds", len(event.Guilds)))
}

func (b *Bot) onDisconnect(session *discordgo.Session, event *discordgo.Disconnect) {
	b.logger.Error("gateway disconnected")
	b.closeOnce.Do(func() { close(b.disconnected) })
}

func (b *Bot) onMessageCreate(session *discordgo.Session, msg *discordgo.MessageCreate) {
	if msg.Author == nil || msg.Author.Bot || msg.Author.ID == session.State.User.ID {
		return
	}

	go func() {
		defer func() {
			if r := recover(); r != nil {
				b.logger.Error("message handler panic",
					zap.Any("panic", r),
					zap.String("stack", string(debug.Stack())))
			}
		}()
		b.handleMessage(msg)
	}()
}

func (b *Bot) handleMessage(msg *discordgo.MessageCreate) {
	ctx := context.Background()

	policy, err := b.mod.Policy(ctx, msg.GuildID)
	if err != nil {
		b.logger.Error("policy lookup failed", zap.String("guild_id", msg.GuildID), zap.Error(err))
		return
	}

	if msg.GuildID != "" {
		if b.enforceProfanity(ctx, msg, policy) {
			return
		}
		if b.enforceInvitePolicy(ctx, msg, policy) {
			return
		}
	}

	b.dispatch(ctx, msg, policy)
}

func (b *Bot) enforceProfanity(ctx context.Context, msg *discordgo.MessageCreate, policy storage.GuildPolicy) bool {
	if policy.ProfanityMode == storage.ProfanityOff {
		return false
	}

	allowed, blocked, err := b.mod.GuildLists(ctx, msg.GuildID)
	if err != nil {
		b.logger.Error("profanity lists failed", zap.String("guild_id", msg.GuildID), zap.Error(err))
		return false
	}

	matches := profanity.Scan(profanity.Lists{Allow: allowed, Block: blocked}, msg.Content)
	if len(matches) == 0 {
		return false
	}

	if err := b.session.ChannelMessageDelete(msg.ChannelID, msg.ID); err != nil {
		b.logger.Warn("profanity delete failed", zap.String("message_id", msg.ID), zap.Error(err))
	}

	if policy.ProfanityMode == storage.ProfanityCensor {
		censored := profanity.Censor(msg.Content, matches)
		text := fmt.Sprintf("%s, please don't swear. Censored message:\n%s", msg.Author.Mention(), censored)
		if _, err := b.session.ChannelMessageSend(msg.ChannelID, text); err != nil {
			b.logger.Warn("censor notice failed", zap.Error(err))
		}
	} else {
		text := fmt.Sprintf("%s, please don't swear.", msg.Author.Mention())
		if _, err := b.session.ChannelMessageSend(msg.ChannelID, text); err != nil {
			b.logger.Warn("profanity notice failed", zap.Error(err))
		}
	}

	detail := fmt.Sprintf("words: %s", strings.Join(matches, ", "))
	b.mod.LogEvent(ctx, msg.GuildID, msg.Author.ID, "profanity", detail)
	b.notifyLogChannel(ctx, policy, "Profanity Filter",
		fmt.Sprintf("%s said a filtered word in <#%s>: `%s`", msg.Author.Mention(), msg.ChannelID, strings.Join(matches, ", ")))
	return true
}

func (b *Bot) enforceInvitePolicy(ctx context.Context, msg *discordgo.MessageCreate, policy storage.GuildPolicy) bool {
	if policy.AllowInvites || !utils.ContainsInvite(msg.Content) {
		return false
	}

	if err := b.session.ChannelMessageDelete(msg.ChannelID, msg.ID); err != nil {
		b.logger.Warn("invite delete failed", zap.String("message_id", msg.ID), zap.Error(err))
	}
	text := fmt.Sprintf("%s, invite links are not allowed here.", msg.Author.Mention())
	if _, err := b.session.ChannelMessageSend(msg.ChannelID, text); err != nil {
		b.logger.Warn("invite notice failed", zap.Error(err))
	}

	b.mod.LogEvent(ctx, msg.GuildID, msg.Author.ID, "invite_blocked", msg.Content)
	b.notifyLogChannel(ctx, policy, "Invite Blocked",
		fmt.Sprintf("%s posted an invite link in <#%s>", msg.Author.Mention(), msg.ChannelID))
	return true
}

func (b *Bot) dispatch(ctx context.Context, msg *discordgo.MessageCreate, policy storage.GuildPolicy) {
	inv := &command.Invocation{
		GuildID:   msg.GuildID,
		ChannelID: msg.ChannelID,
		AuthorID:  msg.Author.ID,
		MessageID: msg.ID,
	}

	err := b.registry.Dispatch(ctx, msg.Content, policy.Prefix, inv, b.authorize, b.resolveUser)
	if err == nil {
		return
	}

	switch {
	case errors.Is(err, command.ErrCommandNotFound):
		b.logger.Debug("unknown command", zap.String("content", msg.Content))
	case errors.Is(err, errGuildOnly):
	case errors.Is(err, errPermissionDenied):
		b.replyError(msg.ChannelID, "You don't have permission to use that command.")
	case errors.Is(err, errBotMissingPermission):
		b.replyError(msg.ChannelID, "I don't have the permissions needed for that command.")
	case errors.Is(err, command.ErrMissingArgument), errors.Is(err, command.ErrArgumentType):
		b.replyUsage(msg.ChannelID, msg.Content, policy.Prefix)
	default:
		var validation *moderation.ValidationError
		if errors.As(err, &validation) {
			b.replyError(msg.ChannelID, validation.Reason)
			return
		}
		b.logger.Error("command failed", zap.String("content", msg.Content), zap.Error(err))
		b.replyError(msg.ChannelID, "Something went wrong running that command.")
	}
}

func (b *Bot) onGuildMemberAdd(session *discordgo.Session, event *discordgo.GuildMemberAdd) {
	if event.GuildID == "" || event.User == nil {
		return
	}

	ctx := context.Background()
	policy, err := b.mod.Policy(ctx, event.GuildID)
	if err != nil || policy.WelcomeChannel == "" {
		return
	}

	embed := &discordgo.MessageEmbed{
		Title:       "Welcome!",
		Description: fmt.Sprintf("%s just joined the server. Say hi!", event.User.Mention()),
		Color:       b.guildColor(policy),
		Timestamp:   time.Now().Format(time.RFC3339),
	}
	if _, err := session.ChannelMessageSendEmbed(policy.WelcomeChannel, embed); err != nil {
		b.logger.Warn("welcome message failed", zap.String("guild_id", event.GuildID), zap.Error(err))
	}
}

// timerEffect runs when a scheduled action's deadline elapses.
func (b *Bot) timerEffect(action sched.Action) error {
	switch action.Kind {
	case sched.Mute:
		if err := b.session.GuildMemberRoleRemove(action.GuildID, action.UserID, action.RoleID); err != nil {
			return fmt.Errorf("remove mute role: %w", err)
		}
		if action.ChannelID != "" {
			text := fmt.Sprintf("<@%s> has been unmuted.", action.UserID)
			_, _ = b.session.ChannelMessageSend(action.ChannelID, text)
		}
		b.mod.LogEvent(context.Background(), action.GuildID, action.UserID, "unmute", "mute expired")
		return nil
	case sched.Pomodoro:
		return b.timerNotice(action, fmt.Sprintf("<@%s> your pomodoro **%s** is over. Time for a break!", action.UserID, action.Label))
	case sched.ShortBreak:
		return b.timerNotice(action, fmt.Sprintf("<@%s> your short break is over. Back to it!", action.UserID))
	case sched.LongBreak:
		return b.timerNotice(action, fmt.Sprintf("<@%s> your long break is over. Back to it!", action.UserID))
	default:
		return fmt.Errorf("unknown timer kind %d", action.Kind)
	}
}

func (b *Bot) timerNotice(action sched.Action, text string) error {
	if _, err := b.session.ChannelMessageSend(action.ChannelID, text); err != nil {
		return fmt.Errorf("timer notice: %w", err)
	}
	return nil
}

// notifyLogChannel posts to the guild's logging channel, throttled per
// guild so a flood of violations cannot flood the log channel too.
func (b *Bot) notifyLogChannel(ctx context.Context, policy storage.GuildPolicy, title, description string) {
	_ = ctx
	if policy.LoggingChannel == "" {
		return
	}
	if !b.logLimiter(policy.GuildID).Allow() {
		return
	}

	embed := &discordgo.MessageEmbed{
		Title:       title,
		Description: description,
		Color:       b.guildColor(policy),
		Timestamp:   time.Now().Format(time.RFC3339),
	}
	if _, err := b.session.ChannelMessageSendEmbed(policy.LoggingChannel, embed); err != nil {
		b.logger.Warn("log channel notice failed",
			zap.String("guild_id", policy.GuildID),
			zap.Error(err))
	}
}

func (b *Bot) logLimiter(guildID string) *rate.Limiter {
	b.limiterMu.Lock()
	defer b.limiterMu.Unlock()
	limiter, ok := b.limiters[guildID]
	if !ok {
		limiter = rate.NewLimiter(rate.Every(2*time.Second), 5)
		b.limiters[guildID] = limiter
	}
	return limiter
}

func (b *Bot) guildColor(policy storage.GuildPolicy) int {
	if policy.EmbedRandom {
		return rand.Intn(0xFFFFFF + 1)
	}
	return policy.EmbedR<<16 | policy.EmbedG<<8 | policy.EmbedB
}

func (b *Bot) replyError(channelID, text string) {
	embed := &discordgo.MessageEmbed{
		Description: text,
		Color:       b.cfg.Embeds.Error,
	}
	if _, err := b.session.ChannelMessageSendEmbed(channelID, embed); err != nil {
		b.logger.Warn("error reply failed", zap.Error(err))
	}
}

func (b *Bot) replyUsage(channelID, content, prefix string) {
	text := "That's not quite right."
	if stripped, ok := command.StripPrefix(content, prefix); ok {
		if spec, _, err := b.registry.Resolve(stripped); err == nil {
			text = fmt.Sprintf("Usage: `%s%s`", prefix, command.Usage(spec))
		}
	}
	b.replyError(channelID, text)
}

func (b *Bot) replyEmbed(channelID string, policy storage.GuildPolicy, title, description string) {
	embed := &discordgo.MessageEmbed{
		Title:       title,
		Description: description,
		Color:       b.guildColor(policy),
		Timestamp:   time.Now().Format(time.RFC3339),
	}
	if _, err := b.session.ChannelMessageSendEmbed(channelID, embed); err != nil {
		b.logger.Warn("reply failed", zap.String("channel_id", channelID), zap.Error(err))
	}
}

type sessionEnforcer struct {
	session *discordgo.Session
}

func (e *sessionEnforcer) Kick(ctx context.Context, guildID, userID, reason string) error {
	_ = ctx
	return e.session.GuildMemberDeleteWithReason(guildID, userID, reason)
}

func (e *sessionEnforcer) Ban(ctx context.Context, guildID, userID, reason string, deleteDays int) error {
	_ = ctx
	return e.session.GuildBanCreateWithReason(guildID, userID, reason, deleteDays)
}
