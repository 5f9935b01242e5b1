package bot

import (
	"context"
	"fmt"
	"runtime"
	"time"
	_ "time/tzdata"

	"guildkeeper/internal/command"
	"guildkeeper/internal/moderation"

	"github.com/bwmarrin/discordgo"
)

func (b *Bot) registerGeneralCommands() error {
	specs := []command.Spec{
		{
			Name:        "ping",
			Aliases:     []string{"latency"},
			Description: "Show the gateway latency",
			Handler:     b.cmdPing,
		},
		{
			Name:        "echo",
			Aliases:     []string{"say"},
			Description: "Echo a message back",
			Params:      []command.Param{command.Required("message", command.Remainder)},
			Handler:     b.cmdEcho,
		},
		{
			Name:        "uptime",
			Description: "Show bot uptime and memory usage",
			Handler:     b.cmdUptime,
		},
		{
			Name:        "servers",
			Description: "Report how many servers the bot is in",
			Handler:     b.cmdServers,
		},
		{
			Name:        "server",
			Description: "Basic information about this server",
			GuildOnly:   true,
			Handler:     b.cmdServer,
		},
		{
			Name:        "info",
			Aliases:     []string{"user", "whois"},
			Description: "Basic information about a user",
			Params:      []command.Param{command.Optional("user", command.UserMention, "")},
			Handler:     b.cmdInfo,
		},
		{
			Name:        "registertimezone",
			Aliases:     []string{"registertz", "regtz", "settz", "settimezone"},
			Description: "Register your IANA timezone",
			Params:      []command.Param{command.Required("timezone", command.Remainder)},
			Handler:     b.cmdRegisterTimezone,
		},
		{
			Name:        "time",
			Description: "Show the current time in a timezone",
			Params:      []command.Param{command.Required("timezone", command.Remainder)},
			Handler:     b.cmdTime,
		},
		{
			Name:        "userstime",
			Aliases:     []string{"usertime", "utime"},
			Description: "Show the time for a registered user",
			Params:      []command.Param{command.Optional("user", command.UserMention, "")},
			Handler:     b.cmdUsersTime,
		},
		{
			Name:        "validtimezone",
			Aliases:     []string{"validtz"},
			Description: "Check whether a timezone name is valid",
			Params:      []command.Param{command.Required("timezone", command.Remainder)},
			Handler:     b.cmdValidTimezone,
		},
	}

	for _, spec := range specs {
		if err := b.registry.Register(spec); err != nil {
			return err
		}
	}
	return nil
}

func (b *Bot) cmdPing(ctx context.Context, inv *command.Invocation) error {
	policy, err := b.mod.Policy(ctx, inv.GuildID)
	if err != nil {
		return err
	}
	latency := b.session.HeartbeatLatency().Milliseconds()
	b.replyEmbed(inv.ChannelID, policy, "Pong!", fmt.Sprintf("Gateway latency: %d ms", latency))
	return nil
}

func (b *Bot) cmdEcho(ctx context.Context, inv *command.Invocation) error {
	policy, err := b.mod.Policy(ctx, inv.GuildID)
	if err != nil {
		return err
	}
	b.replyEmbed(inv.ChannelID, policy, "Echo", inv.Args.String("message"))
	return nil
}

func (b *Bot) cmdUptime(ctx context.Context, inv *command.Invocation) error {
	policy, err := b.mod.Policy(ctx, inv.GuildID)
	if err != nil {
		return err
	}

	var stats runtime.MemStats
	runtime.ReadMemStats(&stats)
	uptime := time.Since(b.started).Round(time.Second)
	b.replyEmbed(inv.ChannelID, policy, "Uptime",
		fmt.Sprintf("Up for %s, using %d MiB", uptime, stats.HeapAlloc/1024/1024))
	return nil
}

func (b *Bot) cmdServers(ctx context.Context, inv *command.Invocation) error {
	policy, err := b.mod.Policy(ctx, inv.GuildID)
	if err != nil {
		return err
	}
	b.replyEmbed(inv.ChannelID, policy, "Servers",
		fmt.Sprintf("I am in %d servers.", len(b.session.State.Guilds)))
	return nil
}

func (b *Bot) cmdServer(ctx context.Context, inv *command.Invocation) error {
	policy, err := b.mod.Policy(ctx, inv.GuildID)
	if err != nil {
		return err
	}

	guild, err := b.session.State.Guild(inv.GuildID)
	if err != nil || guild == nil {
		guild, err = b.session.Guild(inv.GuildID)
		if err != nil {
			return fmt.Errorf("guild lookup: %w", err)
		}
	}

	description := fmt.Sprintf("Name: %s\nMembers: %d\nOwner: <@%s>", guild.Name, guild.MemberCount, guild.OwnerID)
	b.replyEmbed(inv.ChannelID, policy, "Server", description)
	return nil
}

func (b *Bot) cmdInfo(ctx context.Context, inv *command.Invocation) error {
	policy, err := b.mod.Policy(ctx, inv.GuildID)
	if err != nil {
		return err
	}

	userID := inv.Args.UserID("user")
	if userID == "" {
		userID = inv.AuthorID
	}

	user, err := b.session.User(userID)
	if err != nil {
		return fmt.Errorf("user lookup: %w", err)
	}

	created, _ := discordgo.SnowflakeTimestamp(user.ID)
	description := fmt.Sprintf("Username: %s\nID: %s\nCreated: %s", user.Username, user.ID, created.Format("2006-01-02"))
	if inv.GuildID != "" {
		if member, err := b.session.State.Member(inv.GuildID, userID); err == nil && member != nil && !member.JoinedAt.IsZero() {
			description += fmt.Sprintf("\nJoined: %s", member.JoinedAt.Format("2006-01-02"))
		}
	}
	b.replyEmbed(inv.ChannelID, policy, "User Info", description)
	return nil
}

func (b *Bot) cmdRegisterTimezone(ctx context.Context, inv *command.Invocation) error {
	policy, err := b.mod.Policy(ctx, inv.GuildID)
	if err != nil {
		return err
	}

	name := inv.Args.String("timezone")
	if _, err := time.LoadLocation(name); err != nil {
		return &moderation.ValidationError{Field: "timezone", Reason: fmt.Sprintf("`%s` is not a valid IANA timezone", name)}
	}

	if err := b.store.SetUserTimezone(ctx, inv.AuthorID, name); err != nil {
		return err
	}
	b.replyEmbed(inv.ChannelID, policy, "Timezone Registered", fmt.Sprintf("Your timezone is now `%s`.", name))
	return nil
}

func (b *Bot) cmdTime(ctx context.Context, inv *command.Invocation) error {
	policy, err := b.mod.Policy(ctx, inv.GuildID)
	if err != nil {
		return err
	}

	name := inv.Args.String("timezone")
	loc, err := time.LoadLocation(name)
	if err != nil {
		return &moderation.ValidationError{Field: "timezone", Reason: fmt.Sprintf("`%s` is not a valid IANA timezone", name)}
	}

	now := time.Now().In(loc)
	b.replyEmbed(inv.ChannelID, policy, "Current Time",
		fmt.Sprintf("The current time in %s is:\n`%s`", name, now.Format("Mon Jan 2 15:04:05 2006")))
	return nil
}

func (b *Bot) cmdUsersTime(ctx context.Context, inv *command.Invocation) error {
	policy, err := b.mod.Policy(ctx, inv.GuildID)
	if err != nil {
		return err
	}

	userID := inv.Args.UserID("user")
	if userID == "" {
		userID = inv.AuthorID
	}

	name, err := b.store.GetUserTimezone(ctx, userID)
	if err != nil {
		return err
	}
	if name == "" {
		b.replyEmbed(inv.ChannelID, policy, "Not Registered", fmt.Sprintf("<@%s> has not registered a timezone.", userID))
		return nil
	}

	loc, err := time.LoadLocation(name)
	if err != nil {
		return &moderation.ValidationError{Field: "timezone", Reason: "the registered timezone is no longer valid"}
	}

	now := time.Now().In(loc)
	b.replyEmbed(inv.ChannelID, policy, "User's Time",
		fmt.Sprintf("The time for <@%s> is:\n`%s`", userID, now.Format("Mon Jan 2 15:04:05 2006")))
	return nil
}

func (b *Bot) cmdValidTimezone(ctx context.Context, inv *command.Invocation) error {
	policy, err := b.mod.Policy(ctx, inv.GuildID)
	if err != nil {
		return err
	}

	name := inv.Args.String("timezone")
	if _, err := time.LoadLocation(name); err != nil {
		b.replyEmbed(inv.ChannelID, policy, "Invalid Timezone", fmt.Sprintf("`%s` is *not* a valid IANA timezone.", name))
		return nil
	}
	b.replyEmbed(inv.ChannelID, policy, "Valid Timezone", fmt.Sprintf("`%s` *is* a valid IANA timezone.", name))
	return nil
}
