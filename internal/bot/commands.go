package bot

import (
	"context"
	"fmt"
	"strings"
	"time"

	"guildkeeper/internal/command"
	"guildkeeper/internal/moderation"
	"guildkeeper/internal/sched"
	"guildkeeper/internal/storage"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

func (b *Bot) registerCommands() error {
	specs := []command.Spec{
		{
			Name:        "prefix",
			Description: "Show or change the command prefix",
			Params:      []command.Param{command.Optional("prefix", command.String, "")},
			RequireUser: discordgo.PermissionAdministrator,
			GuildOnly:   true,
			Handler:     b.cmdPrefix,
		},
		{
			Name:        "warn",
			Description: "Warn a user",
			Params: []command.Param{
				command.Required("user", command.UserMention),
				command.Required("reason", command.Remainder),
			},
			RequireUser: discordgo.PermissionKickMembers,
			GuildOnly:   true,
			Handler:     b.cmdWarn,
		},
		{
			Name:        "getwarnings",
			Aliases:     []string{"getwarns"},
			Description: "List a user's warnings",
			Params:      []command.Param{command.Required("user", command.UserMention)},
			RequireUser: discordgo.PermissionKickMembers,
			GuildOnly:   true,
			Handler:     b.cmdGetWarnings,
		},
		{
			Name:        "warnaction",
			Description: "Show or set the action taken at the warning threshold",
			Params: []command.Param{
				command.Optional("action", command.String, ""),
				command.Optional("threshold", command.Int, 0),
			},
			RequireUser: discordgo.PermissionAdministrator,
			GuildOnly:   true,
			Handler:     b.cmdWarnAction,
		},
		{
			Name:        "mute",
			Description: "Mute a user for a number of minutes",
			Params: []command.Param{
				command.Required("user", command.UserMention),
				command.Optional("minutes", command.Int, b.cfg.Moderation.MuteMinutes),
				command.Optional("reason", command.Remainder, ""),
			},
			RequireUser: discordgo.PermissionKickMembers,
			RequireBot:  discordgo.PermissionManageRoles,
			GuildOnly:   true,
			Handler:     b.cmdMute,
		},
		{
			Name:        "unmute",
			Description: "Unmute a user",
			Params:      []command.Param{command.Required("user", command.UserMention)},
			RequireUser: discordgo.PermissionKickMembers,
			RequireBot:  discordgo.PermissionManageRoles,
			GuildOnly:   true,
			Handler:     b.cmdUnmute,
		},
		{
			Name:        "kick",
			Description: "Kick a user",
			Params: []command.Param{
				command.Required("user", command.UserMention),
				command.Optional("reason", command.Remainder, "no reason given"),
			},
			RequireUser: discordgo.PermissionKickMembers,
			RequireBot:  discordgo.PermissionKickMembers,
			GuildOnly:   true,
			Handler:     b.cmdKick,
		},
		{
			Name:        "ban",
			Description: "Ban a user",
			Params: []command.Param{
				command.Required("user", command.UserMention),
				command.Optional("days", command.Int, 0),
				command.Optional("reason", command.Remainder, "no reason given"),
			},
			RequireUser: discordgo.PermissionBanMembers,
			RequireBot:  discordgo.PermissionBanMembers,
			GuildOnly:   true,
			Handler:     b.cmdBan,
		},
		{
			Name:        "unban",
			Description: "Remove a user's ban by id",
			Params:      []command.Param{command.Required("user", command.UserMention)},
			RequireUser: discordgo.PermissionBanMembers,
			RequireBot:  discordgo.PermissionBanMembers,
			GuildOnly:   true,
			Handler:     b.cmdUnban,
		},
		{
			Name:        "purge",
			Description: "Delete recent messages in this channel",
			Params:      []command.Param{command.Required("count", command.Int)},
			RequireUser: discordgo.PermissionManageMessages,
			RequireBot:  discordgo.PermissionManageMessages,
			GuildOnly:   true,
			Handler:     b.cmdPurge,
		},
		{
			Name:        "slowmode",
			Description: "Set this channel's slowmode interval in seconds",
			Params:      []command.Param{command.Optional("seconds", command.Int, 0)},
			RequireUser: discordgo.PermissionManageChannels,
			RequireBot:  discordgo.PermissionManageChannels,
			GuildOnly:   true,
			Handler:     b.cmdSlowmode,
		},
		{
			Name:        "welcome",
			Description: "Show, set or clear the welcome channel",
			Params: []command.Param{
				command.Optional("option", command.String, ""),
				command.Optional("value", command.String, ""),
			},
			RequireUser: discordgo.PermissionAdministrator,
			GuildOnly:   true,
			Handler:     b.cmdWelcome,
		},
		{
			Name:        "logs",
			Description: "Show, set or clear the logging channel",
			Params: []command.Param{
				command.Optional("option", command.String, ""),
				command.Optional("value", command.String, ""),
			},
			RequireUser: discordgo.PermissionAdministrator,
			GuildOnly:   true,
			Handler:     b.cmdLogs,
		},
		{
			Name:        "embedcolor",
			Description: "Show or set the embed color (RGB triple or random)",
			Params:      []command.Param{command.Optional("color", command.Remainder, "")},
			RequireUser: discordgo.PermissionAdministrator,
			GuildOnly:   true,
			Handler:     b.cmdEmbedColor,
		},
		{
			Name:        "serverinvites",
			Aliases:     []string{"allowinvites"},
			Description: "Show or set whether invite links are allowed",
			Params:      []command.Param{command.Optional("setting", command.String, "")},
			RequireUser: discordgo.PermissionAdministrator,
			GuildOnly:   true,
			Handler:     b.cmdServerInvites,
		},
		{
			Name:        "profanityfilter",
			Aliases:     []string{"profanity"},
			Description: "Show or set the profanity filter mode",
			Params:      []command.Param{command.Optional("mode", command.String, "")},
			RequireUser: discordgo.PermissionAdministrator,
			GuildOnly:   true,
			Handler:     b.cmdProfanityFilter,
		},
		{
			Name:        "profanityallow",
			Aliases:     []string{"pallow"},
			Description: "Allow words the filter would otherwise block",
			Params:      []command.Param{command.Optional("words", command.Remainder, "")},
			RequireUser: discordgo.PermissionAdministrator,
			GuildOnly:   true,
			Handler:     b.cmdProfanityAllow,
		},
		{
			Name:        "profanityblock",
			Aliases:     []string{"pblock"},
			Description: "Block additional words in this server",
			Params:      []command.Param{command.Optional("words", command.Remainder, "")},
			RequireUser: discordgo.PermissionAdministrator,
			GuildOnly:   true,
			Handler:     b.cmdProfanityBlock,
		},
		{
			Name:        "pomodoro start",
			Aliases:     []string{"pomo start"},
			Description: "Start a pomodoro timer",
			Params: []command.Param{
				command.Optional("length", command.Int, b.cfg.Pomodoro.LengthMinutes),
				command.Optional("name", command.Remainder, "Pomodoro"),
			},
			Handler: b.cmdPomodoroStart,
		},
		{
			Name:        "pomodoro shortbreak",
			Aliases:     []string{"pomo shortbreak", "sbreak", "break"},
			Description: "Start a short break timer",
			Params:      []command.Param{command.Optional("length", command.Int, b.cfg.Pomodoro.ShortBreakMinutes)},
			Handler:     b.cmdShortBreak,
		},
		{
			Name:        "pomodoro longbreak",
			Aliases:     []string{"pomo longbreak", "lbreak"},
			Description: "Start a long break timer",
			Params:      []command.Param{command.Optional("length", command.Int, b.cfg.Pomodoro.LongBreakMinutes)},
			Handler:     b.cmdLongBreak,
		},
	}

	for _, spec := range specs {
		if err := b.registry.Register(spec); err != nil {
			return err
		}
	}
	return b.registerGeneralCommands()
}

func (b *Bot) cmdPrefix(ctx context.Context, inv *command.Invocation) error {
	policy, err := b.mod.Policy(ctx, inv.GuildID)
	if err != nil {
		return err
	}

	prefix := inv.Args.String("prefix")
	if prefix == "" {
		b.replyEmbed(inv.ChannelID, policy, "Prefix", fmt.Sprintf("The current prefix is `%s`", policy.Prefix))
		return nil
	}

	if err := b.mod.SetPrefix(ctx, inv.GuildID, prefix); err != nil {
		return err
	}
	b.replyEmbed(inv.ChannelID, policy, "Prefix", fmt.Sprintf("Prefix changed to `%s`", prefix))
	return nil
}

func (b *Bot) cmdWarn(ctx context.Context, inv *command.Invocation) error {
	policy, err := b.mod.Policy(ctx, inv.GuildID)
	if err != nil {
		return err
	}

	userID := inv.Args.UserID("user")
	reason := inv.Args.String("reason")

	result, err := b.mod.RecordWarning(ctx, inv.GuildID, userID, reason)
	if err != nil {
		if result.Count > 0 {
			b.logger.Error("warn action failed", zap.String("user_id", userID), zap.Error(err))
			b.replyError(inv.ChannelID, fmt.Sprintf("Warning recorded, but the %s failed.", result.Action))
			return nil
		}
		return err
	}

	description := fmt.Sprintf("<@%s> has been warned: %s\nWarnings: %d/%d", userID, reason, result.Count, result.Threshold)
	if result.ActionTaken {
		description += fmt.Sprintf("\nThreshold reached, action taken: **%s**", result.Action)
	}
	b.replyEmbed(inv.ChannelID, policy, "Warning", description)
	return nil
}

func (b *Bot) cmdGetWarnings(ctx context.Context, inv *command.Invocation) error {
	policy, err := b.mod.Policy(ctx, inv.GuildID)
	if err != nil {
		return err
	}

	userID := inv.Args.UserID("user")
	warnings, err := b.mod.Warnings(ctx, inv.GuildID, userID)
	if err != nil {
		return err
	}
	if len(warnings) == 0 {
		b.replyEmbed(inv.ChannelID, policy, "Warnings", fmt.Sprintf("<@%s> has no warnings.", userID))
		return nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "<@%s> has %d of %d warnings:\n", userID, len(warnings), policy.WarnThreshold)
	for i, warning := range warnings {
		fmt.Fprintf(&sb, "%d. %s (%s)\n", i+1, warning.Reason, warning.CreatedAt.Format("2006-01-02"))
	}
	b.replyEmbed(inv.ChannelID, policy, "Warnings", sb.String())
	return nil
}

func (b *Bot) cmdWarnAction(ctx context.Context, inv *command.Invocation) error {
	policy, err := b.mod.Policy(ctx, inv.GuildID)
	if err != nil {
		return err
	}

	action := inv.Args.String("action")
	if action == "" {
		b.replyEmbed(inv.ChannelID, policy, "Warn Action",
			fmt.Sprintf("Current action: **%s** at **%d** warnings", policy.WarnAction, policy.WarnThreshold))
		return nil
	}

	threshold := inv.Args.Int("threshold")
	if threshold == 0 {
		threshold = policy.WarnThreshold
	}
	if err := b.mod.SetWarnAction(ctx, inv.GuildID, action, threshold); err != nil {
		return err
	}
	b.replyEmbed(inv.ChannelID, policy, "Warn Action",
		fmt.Sprintf("Action set to **%s** at **%d** warnings", strings.ToLower(action), threshold))
	return nil
}

func (b *Bot) cmdMute(ctx context.Context, inv *command.Invocation) error {
	policy, err := b.mod.Policy(ctx, inv.GuildID)
	if err != nil {
		return err
	}

	userID := inv.Args.UserID("user")
	minutes := inv.Args.Int("minutes")
	if minutes <= 0 {
		return &moderation.ValidationError{Field: "minutes", Reason: "must be a positive number"}
	}

	role, err := b.muteRole(inv.GuildID)
	if err != nil {
		return fmt.Errorf("mute role: %w", err)
	}
	if err := b.session.GuildMemberRoleAdd(inv.GuildID, userID, role.ID); err != nil {
		return fmt.Errorf("assign mute role: %w", err)
	}

	b.sched.Add(sched.Action{
		Kind:      sched.Mute,
		UserID:    userID,
		GuildID:   inv.GuildID,
		ChannelID: inv.ChannelID,
		RoleID:    role.ID,
		Deadline:  time.Now().Add(time.Duration(minutes) * time.Minute),
	})

	reason := inv.Args.String("reason")
	detail := fmt.Sprintf("%d minutes", minutes)
	if reason != "" {
		detail += ": " + reason
	}
	b.mod.LogEvent(ctx, inv.GuildID, userID, "mute", detail)
	b.replyEmbed(inv.ChannelID, policy, "Mute", fmt.Sprintf("<@%s> has been muted for %d minutes.", userID, minutes))
	return nil
}

func (b *Bot) cmdUnmute(ctx context.Context, inv *command.Invocation) error {
	policy, err := b.mod.Policy(ctx, inv.GuildID)
	if err != nil {
		return err
	}

	userID := inv.Args.UserID("user")
	b.sched.CancelMute(userID, inv.GuildID)

	role, err := b.findMuteRole(inv.GuildID)
	if err != nil {
		return err
	}
	if role != nil {
		if err := b.session.GuildMemberRoleRemove(inv.GuildID, userID, role.ID); err != nil {
			return fmt.Errorf("remove mute role: %w", err)
		}
	}

	b.mod.LogEvent(ctx, inv.GuildID, userID, "unmute", "unmuted early")
	b.replyEmbed(inv.ChannelID, policy, "Unmute", fmt.Sprintf("<@%s> has been unmuted.", userID))
	return nil
}

func (b *Bot) cmdKick(ctx context.Context, inv *command.Invocation) error {
	policy, err := b.mod.Policy(ctx, inv.GuildID)
	if err != nil {
		return err
	}

	userID := inv.Args.UserID("user")
	reason := inv.Args.String("reason")
	if err := b.session.GuildMemberDeleteWithReason(inv.GuildID, userID, reason); err != nil {
		return fmt.Errorf("kick: %w", err)
	}

	b.mod.LogEvent(ctx, inv.GuildID, userID, "kick", reason)
	b.notifyLogChannel(ctx, policy, "Kick", fmt.Sprintf("<@%s> was kicked: %s", userID, reason))
	b.replyEmbed(inv.ChannelID, policy, "Kick", fmt.Sprintf("<@%s> has been kicked.", userID))
	return nil
}

func (b *Bot) cmdBan(ctx context.Context, inv *command.Invocation) error {
	policy, err := b.mod.Policy(ctx, inv.GuildID)
	if err != nil {
		return err
	}

	userID := inv.Args.UserID("user")
	days := inv.Args.Int("days")
	reason := inv.Args.String("reason")
	if days < 0 || days > 7 {
		return &moderation.ValidationError{Field: "days", Reason: "message deletion days must be between 0 and 7"}
	}
	if err := b.session.GuildBanCreateWithReason(inv.GuildID, userID, reason, days); err != nil {
		return fmt.Errorf("ban: %w", err)
	}

	b.mod.LogEvent(ctx, inv.GuildID, userID, "ban", reason)
	b.notifyLogChannel(ctx, policy, "Ban", fmt.Sprintf("<@%s> was banned: %s", userID, reason))
	b.replyEmbed(inv.ChannelID, policy, "Ban", fmt.Sprintf("<@%s> has been banned.", userID))
	return nil
}

func (b *Bot) cmdUnban(ctx context.Context, inv *command.Invocation) error {
	policy, err := b.mod.Policy(ctx, inv.GuildID)
	if err != nil {
		return err
	}

	userID := inv.Args.UserID("user")
	if err := b.session.GuildBanDelete(inv.GuildID, userID); err != nil {
		return fmt.Errorf("unban: %w", err)
	}

	b.mod.LogEvent(ctx, inv.GuildID, userID, "unban", "")
	b.replyEmbed(inv.ChannelID, policy, "Unban", fmt.Sprintf("<@%s> has been unbanned.", userID))
	return nil
}

func (b *Bot) cmdPurge(ctx context.Context, inv *command.Invocation) error {
	count := inv.Args.Int("count")
	if count <= 0 || count > b.cfg.Moderation.PurgeMax {
		return &moderation.ValidationError{
			Field:  "count",
			Reason: fmt.Sprintf("must be between 1 and %d", b.cfg.Moderation.PurgeMax),
		}
	}

	messages, err := b.session.ChannelMessages(inv.ChannelID, count, inv.MessageID, "", "")
	if err != nil {
		return fmt.Errorf("list messages: %w", err)
	}

	ids := purgeBatch(inv.MessageID, messages)
	if err := b.session.ChannelMessagesBulkDelete(inv.ChannelID, ids); err != nil {
		return fmt.Errorf("bulk delete: %w", err)
	}

	b.mod.LogEvent(ctx, inv.GuildID, inv.AuthorID, "purge", fmt.Sprintf("%d messages in <#%s>", len(ids)-1, inv.ChannelID))
	return nil
}

func (b *Bot) cmdSlowmode(ctx context.Context, inv *command.Invocation) error {
	policy, err := b.mod.Policy(ctx, inv.GuildID)
	if err != nil {
		return err
	}

	seconds := inv.Args.Int("seconds")
	if seconds < 0 || seconds > b.cfg.Moderation.SlowmodeMax {
		return &moderation.ValidationError{
			Field:  "seconds",
			Reason: fmt.Sprintf("must be between 0 and %d", b.cfg.Moderation.SlowmodeMax),
		}
	}

	if _, err := b.session.ChannelEditComplex(inv.ChannelID, &discordgo.ChannelEdit{RateLimitPerUser: &seconds}); err != nil {
		return fmt.Errorf("slowmode: %w", err)
	}

	b.mod.LogEvent(ctx, inv.GuildID, inv.AuthorID, "slowmode", fmt.Sprintf("%d seconds in <#%s>", seconds, inv.ChannelID))
	if seconds == 0 {
		b.replyEmbed(inv.ChannelID, policy, "Slowmode", "Slowmode disabled.")
	} else {
		b.replyEmbed(inv.ChannelID, policy, "Slowmode", fmt.Sprintf("Slowmode set to %d seconds.", seconds))
	}
	return nil
}

func (b *Bot) cmdWelcome(ctx context.Context, inv *command.Invocation) error {
	return b.channelSetting(ctx, inv, "Welcome", func(policy storage.GuildPolicy) string {
		return policy.WelcomeChannel
	}, b.mod.SetWelcomeChannel)
}

func (b *Bot) cmdLogs(ctx context.Context, inv *command.Invocation) error {
	return b.channelSetting(ctx, inv, "Logs", func(policy storage.GuildPolicy) string {
		return policy.LoggingChannel
	}, b.mod.SetLoggingChannel)
}

func (b *Bot) channelSetting(ctx context.Context, inv *command.Invocation, title string,
	current func(storage.GuildPolicy) string,
	set func(context.Context, string, string) error) error {
	policy, err := b.mod.Policy(ctx, inv.GuildID)
	if err != nil {
		return err
	}

	option := strings.ToLower(inv.Args.String("option"))
	switch option {
	case "":
		channelID := current(policy)
		if channelID == "" {
			b.replyEmbed(inv.ChannelID, policy, title, "No channel configured.")
		} else {
			b.replyEmbed(inv.ChannelID, policy, title, fmt.Sprintf("Current channel: <#%s>", channelID))
		}
		return nil
	case "channel":
		channelID := parseChannelToken(inv.Args.String("value"))
		if channelID == "" {
			return &moderation.ValidationError{Field: "channel", Reason: "mention a channel or give its id"}
		}
		if err := set(ctx, inv.GuildID, channelID); err != nil {
			return err
		}
		b.replyEmbed(inv.ChannelID, policy, title, fmt.Sprintf("Channel set to <#%s>", channelID))
		return nil
	case "clear", "off":
		if err := set(ctx, inv.GuildID, ""); err != nil {
			return err
		}
		b.replyEmbed(inv.ChannelID, policy, title, "Channel cleared.")
		return nil
	default:
		return &moderation.ValidationError{Field: "option", Reason: "expected channel, clear or no argument"}
	}
}

func (b *Bot) cmdEmbedColor(ctx context.Context, inv *command.Invocation) error {
	policy, err := b.mod.Policy(ctx, inv.GuildID)
	if err != nil {
		return err
	}

	input := inv.Args.String("color")
	if input == "" {
		if policy.EmbedRandom {
			b.replyEmbed(inv.ChannelID, policy, "Embed Color", "Embed color is random.")
		} else {
			b.replyEmbed(inv.ChannelID, policy, "Embed Color",
				fmt.Sprintf("Embed color is %d %d %d", policy.EmbedR, policy.EmbedG, policy.EmbedB))
		}
		return nil
	}

	if err := b.mod.SetEmbedColor(ctx, inv.GuildID, input); err != nil {
		return err
	}
	updated, err := b.mod.Policy(ctx, inv.GuildID)
	if err != nil {
		return err
	}
	b.replyEmbed(inv.ChannelID, updated, "Embed Color", "Embed color updated.")
	return nil
}

func (b *Bot) cmdServerInvites(ctx context.Context, inv *command.Invocation) error {
	policy, err := b.mod.Policy(ctx, inv.GuildID)
	if err != nil {
		return err
	}

	setting := strings.ToLower(inv.Args.String("setting"))
	switch setting {
	case "":
		state := "allowed"
		if !policy.AllowInvites {
			state = "not allowed"
		}
		b.replyEmbed(inv.ChannelID, policy, "Server Invites", fmt.Sprintf("Invite links are currently %s.", state))
		return nil
	case "on", "off":
		allow := setting == "on"
		if err := b.mod.SetInvitePolicy(ctx, inv.GuildID, allow); err != nil {
			return err
		}
		state := "allowed"
		if !allow {
			state = "not allowed"
		}
		b.replyEmbed(inv.ChannelID, policy, "Server Invites", fmt.Sprintf("Invite links are now %s.", state))
		return nil
	default:
		return &moderation.ValidationError{Field: "setting", Reason: "expected on or off"}
	}
}

func (b *Bot) cmdProfanityFilter(ctx context.Context, inv *command.Invocation) error {
	policy, err := b.mod.Policy(ctx, inv.GuildID)
	if err != nil {
		return err
	}

	mode := inv.Args.String("mode")
	if mode == "" {
		b.replyEmbed(inv.ChannelID, policy, "Profanity Filter", fmt.Sprintf("Filter mode is **%s**.", policy.ProfanityMode))
		return nil
	}

	if err := b.mod.SetProfanityMode(ctx, inv.GuildID, mode); err != nil {
		return err
	}
	b.replyEmbed(inv.ChannelID, policy, "Profanity Filter", fmt.Sprintf("Filter mode set to **%s**.", strings.ToLower(mode)))
	return nil
}

func (b *Bot) cmdProfanityAllow(ctx context.Context, inv *command.Invocation) error {
	return b.wordListCommand(ctx, inv, "Allowed Words", b.mod.AllowWord, func(allowed, blocked []string) []string {
		return allowed
	})
}

func (b *Bot) cmdProfanityBlock(ctx context.Context, inv *command.Invocation) error {
	return b.wordListCommand(ctx, inv, "Blocked Words", b.mod.BlockWord, func(allowed, blocked []string) []string {
		return blocked
	})
}

func (b *Bot) wordListCommand(ctx context.Context, inv *command.Invocation, title string,
	add func(context.Context, string, string) error,
	pick func(allowed, blocked []string) []string) error {
	policy, err := b.mod.Policy(ctx, inv.GuildID)
	if err != nil {
		return err
	}

	words := strings.Fields(strings.ToLower(inv.Args.String("words")))
	if len(words) == 0 {
		allowed, blocked, err := b.mod.GuildLists(ctx, inv.GuildID)
		if err != nil {
			return err
		}
		list := pick(allowed, blocked)
		if len(list) == 0 {
			b.replyEmbed(inv.ChannelID, policy, title, "No words configured.")
		} else {
			b.replyEmbed(inv.ChannelID, policy, title, strings.Join(list, ", "))
		}
		return nil
	}

	for _, word := range words {
		if err := add(ctx, inv.GuildID, word); err != nil {
			return err
		}
	}
	b.replyEmbed(inv.ChannelID, policy, title, fmt.Sprintf("Added: %s", strings.Join(words, ", ")))
	return nil
}

func (b *Bot) cmdPomodoroStart(ctx context.Context, inv *command.Invocation) error {
	length := inv.Args.Int("length")
	if err := b.validateTimerLength(length); err != nil {
		return err
	}
	name := inv.Args.String("name")

	b.sched.Add(sched.Action{
		Kind:      sched.Pomodoro,
		UserID:    inv.AuthorID,
		GuildID:   inv.GuildID,
		ChannelID: inv.ChannelID,
		Label:     name,
		Deadline:  time.Now().Add(time.Duration(length) * time.Minute),
	})

	policy, err := b.mod.Policy(ctx, inv.GuildID)
	if err != nil {
		return err
	}
	b.replyEmbed(inv.ChannelID, policy, "Pomodoro",
		fmt.Sprintf("**%s** started for %d minutes. Get to work!", name, length))
	return nil
}

func (b *Bot) cmdShortBreak(ctx context.Context, inv *command.Invocation) error {
	return b.startBreak(ctx, inv, sched.ShortBreak, "Short break")
}

func (b *Bot) cmdLongBreak(ctx context.Context, inv *command.Invocation) error {
	return b.startBreak(ctx, inv, sched.LongBreak, "Long break")
}

func (b *Bot) startBreak(ctx context.Context, inv *command.Invocation, kind sched.Kind, title string) error {
	length := inv.Args.Int("length")
	if err := b.validateTimerLength(length); err != nil {
		return err
	}

	b.sched.Add(sched.Action{
		Kind:      kind,
		UserID:    inv.AuthorID,
		GuildID:   inv.GuildID,
		ChannelID: inv.ChannelID,
		Deadline:  time.Now().Add(time.Duration(length) * time.Minute),
	})

	policy, err := b.mod.Policy(ctx, inv.GuildID)
	if err != nil {
		return err
	}
	b.replyEmbed(inv.ChannelID, policy, title, fmt.Sprintf("%s started for %d minutes. Relax!", title, length))
	return nil
}

func (b *Bot) validateTimerLength(length int) error {
	if length <= 0 || length > b.cfg.Pomodoro.MaxMinutes {
		return &moderation.ValidationError{
			Field:  "length",
			Reason: fmt.Sprintf("must be between 1 and %d minutes", b.cfg.Pomodoro.MaxMinutes),
		}
	}
	return nil
}

func (b *Bot) muteRole(guildID string) (*discordgo.Role, error) {
	role, err := b.findMuteRole(guildID)
	if err != nil {
		return nil, err
	}
	if role != nil {
		return role, nil
	}

	name := b.cfg.Moderation.MuteRoleName
	perms := int64(0)
	created, err := b.session.GuildRoleCreate(guildID, &discordgo.RoleParams{
		Name:        name,
		Permissions: &perms,
	})
	if err != nil {
		return nil, err
	}

	channels, err := b.session.GuildChannels(guildID)
	if err != nil {
		return created, nil
	}
	for _, channel := range channels {
		if channel.Type != discordgo.ChannelTypeGuildText {
			continue
		}
		err := b.session.ChannelPermissionSet(channel.ID, created.ID,
			discordgo.PermissionOverwriteTypeRole, 0, discordgo.PermissionSendMessages)
		if err != nil {
			b.logger.Warn("mute overwrite failed",
				zap.String("channel_id", channel.ID),
				zap.Error(err))
		}
	}
	return created, nil
}

func (b *Bot) findMuteRole(guildID string) (*discordgo.Role, error) {
	roles, err := b.session.GuildRoles(guildID)
	if err != nil {
		return nil, err
	}
	for _, role := range roles {
		if role.Name == b.cfg.Moderation.MuteRoleName {
			return role, nil
		}
	}
	return nil, nil
}

// purgeBatch builds the bulk delete id list, invoking message first,
// capped at the API's 100 message limit.
func purgeBatch(invokingID string, messages []*discordgo.Message) []string {
	const bulkDeleteMax = 100

	ids := make([]string, 0, len(messages)+1)
	ids = append(ids, invokingID)
	for _, message := range messages {
		ids = append(ids, message.ID)
	}
	if len(ids) > bulkDeleteMax {
		ids = ids[:bulkDeleteMax]
	}
	return ids
}

func parseChannelToken(token string) string {
	token = strings.TrimSpace(token)
	if strings.HasPrefix(token, "<#") && strings.HasSuffix(token, ">") {
		token = strings.TrimSuffix(strings.TrimPrefix(token, "<#"), ">")
	}
	for _, r := range token {
		if r < '0' || r > '9' {
			return ""
		}
	}
	return token
}
