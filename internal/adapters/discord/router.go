package discord

import (
	"context"
	"log/slog"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/jose-valero/guild-warden/internal/app/service"
)

const commandTimeout = 12 * time.Second

type Router struct {
	s       *discordgo.Session
	guildID string // "" = comandos globales

	adminRoleIDs []string
	voice        *service.VoiceTracker
	mod          *service.Moderation
	invites      *service.InviteService
	rules        *service.NotificationRules

	commands map[string]Command
	limiter  *userLimiter
	log      *slog.Logger
}

func NewRouter(
	s *discordgo.Session,
	guildID string,
	adminRoleIDs []string,
	voice *service.VoiceTracker,
	mod *service.Moderation,
	invites *service.InviteService,
	rules *service.NotificationRules,
	log *slog.Logger,
) *Router {
	r := &Router{
		s:            s,
		guildID:      guildID,
		adminRoleIDs: adminRoleIDs,
		voice:        voice,
		mod:          mod,
		invites:      invites,
		rules:        rules,
		limiter:      newUserLimiter(2*time.Second, 3),
		log:          log.With("component", "router"),
	}
	r.commands = map[string]Command{}
	for _, c := range r.commandTable() {
		r.commands[c.Name] = c
	}
	return r
}

// Register reemplaza los comandos de la aplicación por los de Commands.
func (r *Router) Register() error {
	appID := r.s.State.User.ID
	_, err := r.s.ApplicationCommandBulkOverwrite(appID, r.guildID, Commands)
	return err
}

func (r *Router) Handlers() {
	r.s.AddHandler(r.onInteraction)
	r.s.AddHandler(r.onGuildCreate)
	r.s.AddHandler(r.onGuildDelete)
	r.s.AddHandler(r.onMemberAdd)
	r.s.AddHandler(r.onMemberRemove)
	r.s.AddHandler(r.onInviteCreate)
	r.s.AddHandler(r.onInviteDelete)
	r.s.AddHandler(r.onMessageCreate)
}

func (r *Router) onInteraction(s *discordgo.Session, ic *discordgo.InteractionCreate) {
	if ic.Type != discordgo.InteractionApplicationCommand || ic.Member == nil || ic.Member.User == nil {
		return
	}
	name := ic.ApplicationCommandData().Name
	log := r.log.With("cmd", name, "user", ic.Member.User.ID, "guild", ic.GuildID)
	log.Info("slash command")
	defer step(name)()

	defer func() {
		if rec := recover(); rec != nil {
			log.Error("panic in slash command", "panic", rec)
			ReplyEphemeral(s, ic, log, "❌ Ocurrió un error inesperado procesando el comando. Contacta con un administrador.")
		}
	}()

	if !r.limiter.Allow(ic.Member.User.ID) {
		_ = s.InteractionRespond(ic.Interaction, &discordgo.InteractionResponse{
			Type: discordgo.InteractionResponseChannelMessageWithSource,
			Data: &discordgo.InteractionResponseData{Content: "⏳ Más despacio, probá en unos segundos.", Flags: discordgo.MessageFlagsEphemeral},
		})
		return
	}

	cmd, ok := r.commands[name]
	if !ok {
		return
	}
	if err := DeferEphemeral(s, ic); err != nil {
		log.Warn("defer interaction", "err", err)
	}
	if cmd.AdminOnly && !r.isAdmin(s, ic) {
		ReplyEphemeral(s, ic, log, "🔒 No tienes permisos para esta acción.")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	msg, err := cmd.Handler(ctx, &Ctx{
		Log:     log,
		Session: s,
		Event:   ic,
		GuildID: ic.GuildID,
		UserID:  ic.Member.User.ID,
	})
	if err != nil {
		log.Info("command rejected", "err", err)
		msg = userMessage(err)
	}
	ReplyEphemeral(s, ic, log, msg)
}
