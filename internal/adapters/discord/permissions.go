package discord

import "github.com/bwmarrin/discordgo"

// isAdmin: dueño del guild, permiso Administrator / ModerateMembers, o alguno de ADMIN_ROLE_IDS.
func (r *Router) isAdmin(s *discordgo.Session, ic *discordgo.InteractionCreate) bool {
	if ic.Member == nil || ic.Member.User == nil {
		return false
	}
	if g, _ := s.State.Guild(ic.GuildID); g != nil && ic.Member.User.ID == g.OwnerID {
		return true
	}

	// Discord ya calcula los permisos efectivos en la interacción
	const mod = discordgo.PermissionAdministrator | discordgo.PermissionModerateMembers
	if ic.Member.Permissions&mod != 0 {
		return true
	}

	if len(r.adminRoleIDs) > 0 {
		has := make(map[string]struct{}, len(ic.Member.Roles))
		for _, rid := range ic.Member.Roles {
			has[rid] = struct{}{}
		}
		for _, want := range r.adminRoleIDs {
			if _, ok := has[want]; ok {
				return true
			}
		}
	}
	return false
}
