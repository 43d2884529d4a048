// handlers de slash commands: validan opciones y despachan a los servicios
package discord

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jose-valero/guild-warden/internal/app/service"
	"github.com/jose-valero/guild-warden/internal/domain"
)

func (r *Router) commandTable() []Command {
	return []Command{
		{Name: "ping", Handler: r.cmdPing},
		{Name: "mute", AdminOnly: true, Handler: r.cmdMute},
		{Name: "unmute", AdminOnly: true, Handler: r.cmdUnmute},
		{Name: "voicewatch", AdminOnly: true, Handler: r.cmdVoiceWatch},
		{Name: "inviterole", AdminOnly: true, Handler: r.cmdInviteRole},
		{Name: "notify", AdminOnly: true, Handler: r.cmdNotify},
	}
}

func (r *Router) cmdPing(context.Context, *Ctx) (string, error) {
	return "🏓 Pong!", nil
}

func (r *Router) cmdMute(ctx context.Context, c *Ctx) (string, error) {
	memberID, _ := optID(c.Event, "member")
	duration, _ := optStr(c.Event, "duration")
	reason, _ := optStr(c.Event, "reason")
	roleID, _ := optID(c.Event, "role")
	logChannel, _ := optID(c.Event, "log_channel")

	rec, err := r.mod.Mute(ctx, service.MuteRequest{
		GuildID:           c.GuildID,
		MemberID:          memberID,
		Duration:          duration,
		RestrictionRoleID: roleID,
		Reason:            reason,
		LogChannelID:      logChannel,
	})
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("🔇 <@%s> restringido hasta <t:%d:f> (<t:%d:R>).", rec.MemberID, rec.ExpiresAt.Unix(), rec.ExpiresAt.Unix()), nil
}

func (r *Router) cmdUnmute(ctx context.Context, c *Ctx) (string, error) {
	memberID, _ := optID(c.Event, "member")
	if err := r.mod.Unmute(ctx, c.GuildID, memberID); err != nil {
		return "", err
	}
	return fmt.Sprintf("🔊 Restricción de <@%s> levantada.", memberID), nil
}

func (r *Router) cmdVoiceWatch(ctx context.Context, c *Ctx) (string, error) {
	sub, _ := subcmdName(c.Event)
	switch sub {
	case "set":
		voiceID, _ := optID(c.Event, "voice")
		logID, _ := optID(c.Event, "log")
		minutes, _ := optInt(c.Event, "delete_after_minutes")
		w := domain.VoiceWatch{
			GuildID:        c.GuildID,
			VoiceChannelID: voiceID,
			LogChannelID:   logID,
			DeleteAfter:    time.Duration(minutes) * time.Minute,
		}
		if err := r.voice.Watch(ctx, w); err != nil {
			return "", err
		}
		return fmt.Sprintf("✅ Vigilando <#%s>, log en <#%s>.", voiceID, logID), nil
	case "clear":
		if err := r.voice.Unwatch(ctx, c.GuildID); err != nil {
			return "", err
		}
		return "✅ Ya no se vigila ningún canal de voz.", nil
	}
	return "Usa `/voicewatch set` o `/voicewatch clear`.", nil
}

func (r *Router) cmdInviteRole(ctx context.Context, c *Ctx) (string, error) {
	sub, _ := subcmdName(c.Event)
	code, _ := optStr(c.Event, "code")
	code = normalizeInviteCode(code)
	switch sub {
	case "set":
		roleID, _ := optID(c.Event, "role")
		if err := r.invites.SetInviteRole(ctx, domain.InviteRole{GuildID: c.GuildID, Code: code, RoleID: roleID}); err != nil {
			return "", err
		}
		return fmt.Sprintf("✅ Quien entre con `%s` recibe <@&%s>.", code, roleID), nil
	case "clear":
		if err := r.invites.RemoveInviteRole(ctx, c.GuildID, code); err != nil {
			return "", err
		}
		return fmt.Sprintf("✅ `%s` ya no otorga rol.", code), nil
	}
	return "Usa `/inviterole set` o `/inviterole clear`.", nil
}

// normalizeInviteCode acepta el código pelado o el link completo.
func normalizeInviteCode(raw string) string {
	raw = strings.TrimSpace(raw)
	if i := strings.LastIndex(raw, "/"); i >= 0 {
		raw = raw[i+1:]
	}
	return raw
}

func (r *Router) cmdNotify(ctx context.Context, c *Ctx) (string, error) {
	sub, _ := subcmdName(c.Event)
	channelID, _ := optID(c.Event, "channel")
	switch sub {
	case "set":
		raw, _ := optStr(c.Event, "roles")
		nr, err := r.rules.SetRule(ctx, c.GuildID, channelID, parseIDs(raw))
		if err != nil {
			return "", err
		}
		line, _ := r.rules.Mentions(nr.ChannelID)
		return fmt.Sprintf("✅ En <#%s> se mencionará a %s.", channelID, line), nil
	case "remove":
		if err := r.rules.RemoveRule(ctx, channelID); err != nil {
			return "", err
		}
		return fmt.Sprintf("✅ <#%s> ya no tiene menciones automáticas.", channelID), nil
	}
	return "Usa `/notify set` o `/notify remove`.", nil
}
