package discord

import (
	"context"
	"time"

	"github.com/bwmarrin/discordgo"
)

const eventTimeout = 15 * time.Second

// GuildCreate llega al conectar y al reconectar: se (re)arma la base de invitaciones.
func (r *Router) onGuildCreate(_ *discordgo.Session, g *discordgo.GuildCreate) {
	if g.Guild == nil || g.Unavailable {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), eventTimeout)
	defer cancel()
	if err := r.invites.Prime(ctx, g.ID); err != nil {
		r.log.Warn("prime invites", "guild", g.ID, "err", err)
	}
}

func (r *Router) onGuildDelete(_ *discordgo.Session, g *discordgo.GuildDelete) {
	if g.Guild == nil || g.Unavailable {
		return // caída temporal, no salida del bot
	}
	r.invites.Forget(g.ID)
}

func (r *Router) onMemberAdd(_ *discordgo.Session, m *discordgo.GuildMemberAdd) {
	if m.Member == nil || m.User == nil || m.User.Bot {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), eventTimeout)
	defer cancel()
	code, err := r.invites.HandleJoin(ctx, m.GuildID, m.User.ID)
	if err != nil {
		r.log.Warn("attribute join", "guild", m.GuildID, "member", m.User.ID, "err", err)
		return
	}
	r.log.Info("member joined", "guild", m.GuildID, "member", m.User.ID, "invite", code)
}

func (r *Router) onMemberRemove(_ *discordgo.Session, m *discordgo.GuildMemberRemove) {
	if m.Member == nil || m.User == nil {
		return
	}
	r.voice.Forget(m.GuildID, m.User.ID)
}

func (r *Router) onInviteCreate(_ *discordgo.Session, e *discordgo.InviteCreate) {
	if e.Invite == nil {
		return
	}
	r.invites.Observe(e.GuildID, e.Code, e.Uses)
}

func (r *Router) onInviteDelete(_ *discordgo.Session, e *discordgo.InviteDelete) {
	r.invites.Drop(e.GuildID, e.Code)
}

// onMessageCreate agrega las menciones configuradas para el canal.
func (r *Router) onMessageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Message == nil || m.GuildID == "" || m.Author == nil || m.Author.Bot {
		return
	}
	line, ok := r.rules.Mentions(m.ChannelID)
	if !ok {
		return
	}
	if err := sendMentions(s, m.Message, line); err != nil {
		r.log.Warn("send mentions", "channel", m.ChannelID, "err", err)
	}
}
