package discord

import "github.com/bwmarrin/discordgo"

var (
	modPerm   int64 = discordgo.PermissionModerateMembers
	adminPerm int64 = discordgo.PermissionManageGuild
)

func channelOpt(name, desc string, required bool, types ...discordgo.ChannelType) *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Type:         discordgo.ApplicationCommandOptionChannel,
		Name:         name,
		Description:  desc,
		Required:     required,
		ChannelTypes: types,
	}
}

var Commands = []*discordgo.ApplicationCommand{
	{
		Name:        "ping",
		Description: "Comprueba que el bot responde",
	},
	{
		Name:                     "mute",
		Description:              "Restringe el chat de un miembro por un tiempo",
		DefaultMemberPermissions: &modPerm,
		Options: []*discordgo.ApplicationCommandOption{
			{Type: discordgo.ApplicationCommandOptionUser, Name: "member", Description: "Miembro a restringir", Required: true},
			{Type: discordgo.ApplicationCommandOptionString, Name: "duration", Description: "Segundos o con sufijo: 90s, 10m, 2h, 1d", Required: true},
			{Type: discordgo.ApplicationCommandOptionString, Name: "reason", Description: "Motivo"},
			{Type: discordgo.ApplicationCommandOptionRole, Name: "role", Description: "Rol de restricción (por defecto el configurado)"},
			channelOpt("log_channel", "Canal donde avisar cuando termine", false, discordgo.ChannelTypeGuildText),
		},
	},
	{
		Name:                     "unmute",
		Description:              "Levanta la restricción de un miembro",
		DefaultMemberPermissions: &modPerm,
		Options: []*discordgo.ApplicationCommandOption{
			{Type: discordgo.ApplicationCommandOptionUser, Name: "member", Description: "Miembro", Required: true},
		},
	},
	{
		Name:                     "voicewatch",
		Description:              "Canal de voz vigilado por inactividad (admins)",
		DefaultMemberPermissions: &adminPerm,
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "set",
				Description: "Vigilar un canal de voz",
				Options: []*discordgo.ApplicationCommandOption{
					channelOpt("voice", "Canal de voz de inactivos", true, discordgo.ChannelTypeGuildVoice),
					channelOpt("log", "Canal de log", true, discordgo.ChannelTypeGuildText),
					{Type: discordgo.ApplicationCommandOptionInteger, Name: "delete_after_minutes", Description: "Borrar el log tras N minutos (0 = nunca)"},
				},
			},
			{Type: discordgo.ApplicationCommandOptionSubCommand, Name: "clear", Description: "Dejar de vigilar"},
		},
	},
	{
		Name:                     "inviterole",
		Description:              "Rol automático por código de invitación (admins)",
		DefaultMemberPermissions: &adminPerm,
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "set",
				Description: "Asociar un rol a una invitación",
				Options: []*discordgo.ApplicationCommandOption{
					{Type: discordgo.ApplicationCommandOptionString, Name: "code", Description: "Código de invitación", Required: true},
					{Type: discordgo.ApplicationCommandOptionRole, Name: "role", Description: "Rol a otorgar", Required: true},
				},
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "clear",
				Description: "Quitar la asociación",
				Options: []*discordgo.ApplicationCommandOption{
					{Type: discordgo.ApplicationCommandOptionString, Name: "code", Description: "Código de invitación", Required: true},
				},
			},
		},
	},
	{
		Name:                     "notify",
		Description:              "Roles a mencionar en cada publicación de un canal (admins)",
		DefaultMemberPermissions: &adminPerm,
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "set",
				Description: "Definir los roles del canal",
				Options: []*discordgo.ApplicationCommandOption{
					channelOpt("channel", "Canal", true, discordgo.ChannelTypeGuildText, discordgo.ChannelTypeGuildNews),
					{Type: discordgo.ApplicationCommandOptionString, Name: "roles", Description: "Menciones o IDs de roles", Required: true},
				},
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "remove",
				Description: "Quitar la regla del canal",
				Options: []*discordgo.ApplicationCommandOption{
					channelOpt("channel", "Canal", true, discordgo.ChannelTypeGuildText, discordgo.ChannelTypeGuildNews),
				},
			},
		},
	},
}
