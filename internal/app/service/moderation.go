package service

import (
	"context"
	"log/slog"

	"github.com/jose-valero/guild-warden/internal/domain"
)

// MuteDefaults se usan cuando el comando no trae rol o canal de log.
type MuteDefaults struct {
	RestrictionRoleID string
	LogChannelID      string
}

type voiceForgetter interface {
	Forget(guildID, memberID string)
}

// Moderation es la cara del registro de mutes hacia la capa de comandos y el scheduler.
type Moderation struct {
	reg      *MuteRegistry
	voice    voiceForgetter
	dispatch *Dispatcher
	clock    Clock
	defaults MuteDefaults
	log      *slog.Logger
}

func NewModeration(reg *MuteRegistry, voice voiceForgetter, dispatch *Dispatcher, clock Clock, defaults MuteDefaults, log *slog.Logger) *Moderation {
	return &Moderation{
		reg:      reg,
		voice:    voice,
		dispatch: dispatch,
		clock:    clock,
		defaults: defaults,
		log:      log.With("component", "moderation"),
	}
}

// Mute registra el mute y aplica el rol. Si el rol no se puede aplicar se
// vuelve al estado anterior y se devuelve el error de actuación.
func (m *Moderation) Mute(ctx context.Context, req MuteRequest) (domain.MuteRecord, error) {
	if req.RestrictionRoleID == "" {
		req.RestrictionRoleID = m.defaults.RestrictionRoleID
	}
	if req.LogChannelID == "" {
		req.LogChannelID = m.defaults.LogChannelID
	}

	rec, prev, err := m.reg.Replace(ctx, req)
	if err != nil {
		return domain.MuteRecord{}, err
	}
	if m.voice != nil {
		m.voice.Forget(rec.GuildID, rec.MemberID)
	}

	errs := m.dispatch.Dispatch(ctx, []domain.ActionRequest{{
		Kind:     domain.ActionApplyRestrictionRole,
		GuildID:  rec.GuildID,
		MemberID: rec.MemberID,
		RoleID:   rec.RestrictionRoleID,
		Text:     rec.Reason,
	}})
	if errs[0] != nil {
		undone, rerr := m.reg.Rollback(ctx, rec, prev)
		switch {
		case rerr != nil:
			m.log.Error("rollback mute", "guild", rec.GuildID, "member", rec.MemberID, "err", rerr)
		case !undone:
			m.log.Info("mute replaced meanwhile, rollback skipped", "guild", rec.GuildID, "member", rec.MemberID)
		}
		return domain.MuteRecord{}, errs[0]
	}
	m.log.Info("member muted", "guild", rec.GuildID, "member", rec.MemberID, "expires_at", rec.ExpiresAt)
	return rec, nil
}

// Unmute levanta el mute ya. Los fallos de la plataforma sólo se loguean.
func (m *Moderation) Unmute(ctx context.Context, guildID, memberID string) error {
	actions, err := m.reg.Cancel(ctx, guildID, memberID)
	if err != nil {
		return err
	}
	m.dispatch.Dispatch(ctx, actions)
	m.log.Info("member unmuted", "guild", guildID, "member", memberID)
	return nil
}

// Tick revisa vencimientos; lo llama el scheduler.
func (m *Moderation) Tick(ctx context.Context) error {
	actions := m.reg.Evaluate(ctx, m.clock.Now())
	if len(actions) > 0 {
		m.log.Info("mutes expired", "count", len(actions)/2)
	}
	m.dispatch.Dispatch(ctx, actions)
	return nil
}
