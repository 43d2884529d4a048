package discord

import (
	"errors"
	"regexp"
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/jose-valero/guild-warden/internal/domain"
)

var reMention = regexp.MustCompile(`^<@[!&]?(\d+)>$`)

// parseIDs acepta menciones (<@id>, <@&id>) o IDs sueltos separados por espacio o coma.
func parseIDs(raw string) []string {
	ids := []string{}
	for _, tok := range strings.FieldsFunc(raw, func(r rune) bool { return r == ' ' || r == ',' }) {
		if m := reMention.FindStringSubmatch(tok); len(m) == 2 {
			ids = append(ids, m[1])
			continue
		}
		if domain.IsSnowflake(tok) {
			ids = append(ids, tok)
		}
	}
	return ids
}

// findOpt busca la opción por nombre en el comando o en su subcomando.
func findOpt(ic *discordgo.InteractionCreate, name string) *discordgo.ApplicationCommandInteractionDataOption {
	if ic.Type != discordgo.InteractionApplicationCommand {
		return nil
	}
	for _, o := range ic.ApplicationCommandData().Options {
		if o.Name == name {
			return o
		}
		if o.Type == discordgo.ApplicationCommandOptionSubCommand {
			for _, so := range o.Options {
				if so.Name == name {
					return so
				}
			}
		}
	}
	return nil
}

func optStr(ic *discordgo.InteractionCreate, name string) (string, bool) {
	o := findOpt(ic, name)
	if o == nil || o.Type != discordgo.ApplicationCommandOptionString {
		return "", false
	}
	return o.StringValue(), true
}

func optInt(ic *discordgo.InteractionCreate, name string) (int, bool) {
	o := findOpt(ic, name)
	if o == nil || o.Type != discordgo.ApplicationCommandOptionInteger {
		return 0, false
	}
	return int(o.IntValue()), true
}

// optID lee opciones de tipo usuario, rol o canal (llegan como ID).
func optID(ic *discordgo.InteractionCreate, name string) (string, bool) {
	o := findOpt(ic, name)
	if o == nil {
		return "", false
	}
	switch o.Type {
	case discordgo.ApplicationCommandOptionUser,
		discordgo.ApplicationCommandOptionRole,
		discordgo.ApplicationCommandOptionChannel,
		discordgo.ApplicationCommandOptionMentionable:
		id, ok := o.Value.(string)
		return id, ok && id != ""
	}
	return "", false
}

func subcmdName(ic *discordgo.InteractionCreate) (string, bool) {
	if ic.Type != discordgo.InteractionApplicationCommand {
		return "", false
	}
	for _, o := range ic.ApplicationCommandData().Options {
		if o.Type == discordgo.ApplicationCommandOptionSubCommand {
			return o.Name, true
		}
	}
	return "", false
}

// userMessage traduce los errores del core a algo presentable.
func userMessage(err error) string {
	var aerr *domain.ActuationError
	switch {
	case errors.Is(err, domain.ErrInvalidDuration):
		return "⚠️ Duración inválida. Usa segundos o un sufijo `s`, `m`, `h`, `d` (ej: `10m`)."
	case errors.Is(err, domain.ErrInvalidArgument):
		return "⚠️ Faltan datos: " + err.Error()
	case errors.Is(err, domain.ErrNotFound):
		return "ℹ️ No hay nada registrado para eso."
	case errors.Is(err, domain.ErrGuildMismatch):
		return "⚠️ Ese canal no pertenece a este servidor."
	case errors.Is(err, domain.ErrChannelDeleted):
		return "⚠️ No encuentro ese canal."
	case errors.Is(err, domain.ErrTransientResolution):
		return "⚠️ Discord no respondió, probá de nuevo en un rato."
	case errors.As(err, &aerr):
		return "⚠️ No pude aplicar la acción en Discord: " + aerr.Err.Error()
	}
	return "❌ Ocurrió un error inesperado procesando el comando."
}
