package discord

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/bwmarrin/discordgo"
	"golang.org/x/time/rate"

	"github.com/jose-valero/guild-warden/internal/domain"
)

// Platform implementa Presence, Actuator e InviteSource sobre una sesión de discordgo.
// Todas las llamadas REST pasan por el mismo limiter.
type Platform struct {
	s       *discordgo.Session
	limiter *rate.Limiter
	log     *slog.Logger
}

func NewPlatform(s *discordgo.Session, limiter *rate.Limiter, log *slog.Logger) *Platform {
	if limiter == nil {
		limiter = rate.NewLimiter(rate.Every(25*time.Millisecond), 5)
	}
	return &Platform{s: s, limiter: limiter, log: log.With("component", "discord")}
}

// rest espera turno en el limiter y devuelve las opciones comunes de request.
func (p *Platform) rest(ctx context.Context, reason string) ([]discordgo.RequestOption, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	opts := []discordgo.RequestOption{discordgo.WithContext(ctx)}
	if reason != "" {
		opts = append(opts, discordgo.WithAuditLogReason(reason))
	}
	return opts, nil
}

// ---------- Presence ----------

func (p *Platform) VoiceMembers(_ context.Context, guildID, channelID string) ([]string, error) {
	g, err := p.s.State.Guild(guildID)
	if err != nil {
		return nil, fmt.Errorf("%w: guild %s not cached", domain.ErrTransientResolution, guildID)
	}

	type occupant struct {
		id  string
		bot bool
	}
	var found []occupant
	p.s.State.RLock()
	for _, vs := range g.VoiceStates {
		if vs.ChannelID != channelID {
			continue
		}
		bot := vs.Member != nil && vs.Member.User != nil && vs.Member.User.Bot
		found = append(found, occupant{id: vs.UserID, bot: bot})
	}
	p.s.State.RUnlock()

	self := ""
	if p.s.State.User != nil {
		self = p.s.State.User.ID
	}
	members := make([]string, 0, len(found))
	for _, o := range found {
		if o.bot || o.id == self {
			continue
		}
		if m, err := p.s.State.Member(guildID, o.id); err == nil && m.User != nil && m.User.Bot {
			continue
		}
		members = append(members, o.id)
	}
	return members, nil
}

func (p *Platform) ResolveChannel(ctx context.Context, channelID string) (string, error) {
	if ch, err := p.s.State.Channel(channelID); err == nil && ch != nil {
		return ch.GuildID, nil
	}
	opts, err := p.rest(ctx, "")
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrTransientResolution, err)
	}
	ch, err := p.s.Channel(channelID, opts...)
	if err != nil {
		return "", classifyChannelErr(channelID, err)
	}
	_ = p.s.State.ChannelAdd(ch)
	return ch.GuildID, nil
}

// classifyChannelErr separa "el canal no existe" de cualquier otro fallo.
func classifyChannelErr(channelID string, err error) error {
	var rest *discordgo.RESTError
	if errors.As(err, &rest) {
		if rest.Message != nil && rest.Message.Code == discordgo.ErrCodeUnknownChannel {
			return fmt.Errorf("%w: %s", domain.ErrChannelDeleted, channelID)
		}
		if rest.Response != nil && rest.Response.StatusCode == http.StatusNotFound {
			return fmt.Errorf("%w: %s", domain.ErrChannelDeleted, channelID)
		}
	}
	return fmt.Errorf("%w: channel %s: %v", domain.ErrTransientResolution, channelID, err)
}

// ---------- Actuator ----------

func (p *Platform) SendDirectWarning(ctx context.Context, memberID, text string) error {
	opts, err := p.rest(ctx, "")
	if err != nil {
		return err
	}
	dm, err := p.s.UserChannelCreate(memberID, opts...)
	if err != nil {
		return fmt.Errorf("open dm: %w", err)
	}
	if _, err := p.s.ChannelMessageSend(dm.ID, text, opts...); err != nil {
		return fmt.Errorf("send dm: %w", err)
	}
	return nil
}

func (p *Platform) DisconnectFromVoice(ctx context.Context, guildID, memberID string) error {
	opts, err := p.rest(ctx, "Inactividad en voz")
	if err != nil {
		return err
	}
	// canal nil = desconectar
	return p.s.GuildMemberMove(guildID, memberID, nil, opts...)
}

func (p *Platform) AddRole(ctx context.Context, guildID, memberID, roleID, reason string) error {
	opts, err := p.rest(ctx, reason)
	if err != nil {
		return err
	}
	return p.s.GuildMemberRoleAdd(guildID, memberID, roleID, opts...)
}

func (p *Platform) RemoveRole(ctx context.Context, guildID, memberID, roleID, reason string) error {
	opts, err := p.rest(ctx, reason)
	if err != nil {
		return err
	}
	return p.s.GuildMemberRoleRemove(guildID, memberID, roleID, opts...)
}

var logStyle = map[domain.ActionKind]struct {
	title string
	color int
}{
	domain.ActionLogDisconnect:  {"🔴 Desconexión por inactividad", 0xE74C3C},
	domain.ActionNotifyReversal: {"🔊 Restricción levantada", 0x2ECC71},
	domain.ActionLogInviteJoin:  {"📨 Nuevo miembro", 0x3498DB},
}

func (p *Platform) LogEvent(ctx context.Context, channelID string, ev domain.LogEvent) (string, error) {
	opts, err := p.rest(ctx, "")
	if err != nil {
		return "", err
	}
	st, ok := logStyle[ev.Kind]
	if !ok {
		st.title, st.color = string(ev.Kind), 0x95A5A6
	}
	msg, err := p.s.ChannelMessageSendEmbed(channelID, &discordgo.MessageEmbed{
		Title:       st.title,
		Description: ev.Text,
		Color:       st.color,
		Timestamp:   ev.At.UTC().Format(time.RFC3339),
	}, opts...)
	if err != nil {
		return "", err
	}
	return msg.ID, nil
}

func (p *Platform) DeleteMessage(ctx context.Context, channelID, messageID string) error {
	opts, err := p.rest(ctx, "")
	if err != nil {
		return err
	}
	return p.s.ChannelMessageDelete(channelID, messageID, opts...)
}

// ---------- InviteSource ----------

func (p *Platform) FetchInvites(ctx context.Context, guildID string) ([]domain.Invite, error) {
	opts, err := p.rest(ctx, "")
	if err != nil {
		return nil, err
	}
	invs, err := p.s.GuildInvites(guildID, opts...)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Invite, 0, len(invs))
	for _, inv := range invs {
		out = append(out, domain.Invite{Code: inv.Code, Uses: inv.Uses})
	}
	return out, nil
}
