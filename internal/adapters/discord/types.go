package discord

import (
	"context"
	"log/slog"

	"github.com/bwmarrin/discordgo"
)

// Ctx es lo que recibe cada handler de slash command.
type Ctx struct {
	Log     *slog.Logger
	Session *discordgo.Session
	Event   *discordgo.InteractionCreate
	GuildID string
	UserID  string
}

// CommandHandler devuelve el texto de la respuesta efímera.
type CommandHandler func(ctx context.Context, c *Ctx) (string, error)

type Command struct {
	Name      string
	AdminOnly bool
	Handler   CommandHandler
}
