package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jose-valero/guild-warden/internal/domain"
	"github.com/jose-valero/guild-warden/internal/infra/metrics"
)

// LogChannelFunc resuelve el canal de log de un guild ("" = ninguno).
type LogChannelFunc func(ctx context.Context, guildID string) string

// InviteService orquesta la atribución de altas y el rol por invitación.
type InviteService struct {
	rec        *InviteReconciler
	src        InviteSource
	roles      InviteRoleStore
	dispatch   *Dispatcher
	logChannel LogChannelFunc
	log        *slog.Logger
}

func NewInviteService(rec *InviteReconciler, src InviteSource, roles InviteRoleStore, dispatch *Dispatcher, logChannel LogChannelFunc, log *slog.Logger) *InviteService {
	if logChannel == nil {
		logChannel = func(context.Context, string) string { return "" }
	}
	return &InviteService{
		rec:        rec,
		src:        src,
		roles:      roles,
		dispatch:   dispatch,
		logChannel: logChannel,
		log:        log.With("component", "invites"),
	}
}

// Prime trae las invitaciones actuales y fija la base del guild.
func (s *InviteService) Prime(ctx context.Context, guildID string) error {
	invites, err := s.src.FetchInvites(ctx, guildID)
	if err != nil {
		return fmt.Errorf("fetch invites %s: %w", guildID, err)
	}
	s.rec.PrimeCache(guildID, invites)
	s.log.Info("invite cache primed", "guild", guildID, "invites", len(invites))
	return nil
}

// HandleJoin atribuye un alta y, si el código tiene rol asociado, lo otorga.
func (s *InviteService) HandleJoin(ctx context.Context, guildID, memberID string) (string, error) {
	refreshed, err := s.src.FetchInvites(ctx, guildID)
	if err != nil {
		metrics.InviteAttributions.WithLabelValues("fetch_error").Inc()
		return Unknown, fmt.Errorf("fetch invites %s: %w", guildID, err)
	}

	code, primed := s.rec.AttributeJoin(guildID, refreshed, memberID)
	if !primed {
		// sin base no se adivina; dejamos la base lista para la próxima alta
		s.rec.PrimeCache(guildID, refreshed)
		metrics.InviteAttributions.WithLabelValues("unprimed").Inc()
		return Unknown, nil
	}
	if code == Unknown {
		metrics.InviteAttributions.WithLabelValues("unknown").Inc()
		s.log.Info("join not attributed", "guild", guildID, "member", memberID)
		return Unknown, nil
	}
	metrics.InviteAttributions.WithLabelValues("attributed").Inc()

	var actions []domain.ActionRequest
	if roleID, ok, err := s.roleFor(ctx, guildID, code); err != nil {
		s.log.Warn("invite role lookup", "guild", guildID, "code", code, "err", err)
	} else if ok {
		actions = append(actions, domain.ActionRequest{
			Kind:     domain.ActionGrantRole,
			GuildID:  guildID,
			MemberID: memberID,
			RoleID:   roleID,
			Text:     "Rol por invitación " + code,
		})
	}
	actions = append(actions, domain.ActionRequest{
		Kind:      domain.ActionLogInviteJoin,
		GuildID:   guildID,
		MemberID:  memberID,
		ChannelID: s.logChannel(ctx, guildID),
		Text:      fmt.Sprintf("📨 <@%s> entró con la invitación `%s`", memberID, code),
	})
	s.dispatch.Dispatch(ctx, actions)
	return code, nil
}

func (s *InviteService) roleFor(ctx context.Context, guildID, code string) (string, bool, error) {
	all, err := s.roles.ListInviteRoles(ctx)
	if err != nil {
		return "", false, err
	}
	for _, ir := range all {
		if ir.GuildID == guildID && ir.Code == code {
			return ir.RoleID, true, nil
		}
	}
	return "", false, nil
}

func (s *InviteService) SetInviteRole(ctx context.Context, ir domain.InviteRole) error {
	if ir.GuildID == "" || ir.Code == "" || ir.RoleID == "" {
		return fmt.Errorf("%w: guild, code and role are required", domain.ErrInvalidArgument)
	}
	return s.roles.UpsertInviteRole(ctx, ir)
}

func (s *InviteService) RemoveInviteRole(ctx context.Context, guildID, code string) error {
	ok, err := s.roles.DeleteInviteRole(ctx, guildID, code)
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrNotFound
	}
	return nil
}

// Observe / Drop reflejan eventos de creación y borrado de invitaciones.
func (s *InviteService) Observe(guildID, code string, uses int) { s.rec.Observe(guildID, code, uses) }
func (s *InviteService) Drop(guildID, code string)              { s.rec.Drop(guildID, code) }

// Forget descarta la base del guild (el bot salió).
func (s *InviteService) Forget(guildID string) { s.rec.Forget(guildID) }
