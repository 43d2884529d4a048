package domain

import "time"

// MemberKey identifica a un miembro dentro de un guild.
type MemberKey struct {
	GuildID  string
	MemberID string
}

func (k MemberKey) String() string { return k.GuildID + "_" + k.MemberID }

// MuteRecord es una restricción temporal activa.
type MuteRecord struct {
	GuildID           string
	MemberID          string
	ExpiresAt         time.Time
	RestrictionRoleID string
	Reason            string
	LogChannelID      string // opcional
}

func (m MuteRecord) Key() MemberKey { return MemberKey{GuildID: m.GuildID, MemberID: m.MemberID} }

// Invite es lo que reporta la plataforma para un código de invitación.
type Invite struct {
	Code string
	Uses int
}

// VoiceWatch: canal de voz vigilado por inactividad en un guild.
type VoiceWatch struct {
	GuildID        string
	VoiceChannelID string
	LogChannelID   string
	DeleteAfter    time.Duration // 0 = no borrar el log
}

// GuildPresence es la foto de un tick para un guild vigilado.
type GuildPresence struct {
	Watch      VoiceWatch
	Members    []string // sin bots
	Unresolved bool     // canal de voz o de log no resolvió en este tick
}

// NotificationRule: roles a mencionar cuando se publica en un canal.
type NotificationRule struct {
	ChannelID string
	GuildID   string
	RoleIDs   []string
}

// InviteRole: rol que se otorga a quien entra por un código.
type InviteRole struct {
	GuildID string
	Code    string
	RoleID  string
}

// StateSnapshot es la foto agregada periódica del estado del core.
type StateSnapshot struct {
	ID        string
	CreatedAt time.Time
	Payload   []byte // JSON
}
