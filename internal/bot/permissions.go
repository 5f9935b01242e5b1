package bot

import (
	"errors"

	"guildkeeper/internal/command"

	"github.com/bwmarrin/discordgo"
)

var (
	errGuildOnly            = errors.New("guild only command")
	errPermissionDenied     = errors.New("permission denied")
	errBotMissingPermission = errors.New("bot missing permission")
)

// authorize gates a command before its arguments are bound. Guild-only
// commands invoked in a DM are skipped before any permission check.
// The caller and the bot are checked independently; both must hold
// their required permission sets.
func (b *Bot) authorize(spec *command.Spec, inv *command.Invocation) error {
	if inv.GuildID == "" {
		if spec.GuildOnly || spec.RequireUser != 0 || spec.RequireBot != 0 {
			return errGuildOnly
		}
		return nil
	}

	if spec.RequireUser != 0 {
		perms, err := b.memberPermissions(inv.GuildID, inv.AuthorID)
		if err != nil || perms&spec.RequireUser != spec.RequireUser {
			return errPermissionDenied
		}
	}
	if spec.RequireBot != 0 {
		perms, err := b.memberPermissions(inv.GuildID, b.session.State.User.ID)
		if err != nil || perms&spec.RequireBot != spec.RequireBot {
			return errBotMissingPermission
		}
	}
	return nil
}

// resolveUser confirms a numeric token actually names a reachable user,
// preferring the state cache over the API. An unknown id falls back to
// the parameter's default or an argument error at the bind layer.
func (b *Bot) resolveUser(inv *command.Invocation, id string) (string, bool) {
	if inv.GuildID != "" {
		if member, err := b.session.State.Member(inv.GuildID, id); err == nil && member != nil {
			return id, true
		}
		if member, err := b.session.GuildMember(inv.GuildID, id); err == nil && member != nil {
			return id, true
		}
	}
	if user, err := b.session.User(id); err == nil && user != nil {
		return id, true
	}
	return "", false
}

func (b *Bot) memberPermissions(guildID, userID string) (int64, error) {
	guild, err := b.session.State.Guild(guildID)
	if err != nil || guild == nil {
		guild, err = b.session.Guild(guildID)
		if err != nil {
			return 0, err
		}
	}
	if guild.OwnerID == userID {
		return discordgo.PermissionAll, nil
	}

	member, err := b.session.State.Member(guildID, userID)
	if err != nil || member == nil {
		member, err = b.session.GuildMember(guildID, userID)
		if err != nil {
			return 0, err
		}
	}

	return rolePermissions(guild, member), nil
}

// rolePermissions folds the everyone role and the member's roles into
// one permission mask. Administrator expands to every permission.
func rolePermissions(guild *discordgo.Guild, member *discordgo.Member) int64 {
	if guild == nil || member == nil {
		return 0
	}

	perms := int64(0)
	for _, role := range guild.Roles {
		if role.ID == guild.ID {
			perms |= role.Permissions
			break
		}
	}

	roleMap := make(map[string]*discordgo.Role, len(guild.Roles))
	for _, role := range guild.Roles {
		roleMap[role.ID] = role
	}
	for _, roleID := range member.Roles {
		if role := roleMap[roleID]; role != nil {
			perms |= role.Permissions
		}
	}

	if perms&discordgo.PermissionAdministrator != 0 {
		return discordgo.PermissionAll
	}
	return perms
}
