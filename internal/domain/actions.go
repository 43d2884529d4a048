package domain

import "time"

type ActionKind string

const (
	ActionWarnMember            ActionKind = "warn_member"
	ActionDisconnectMember      ActionKind = "disconnect_member"
	ActionLogDisconnect         ActionKind = "log_disconnect"
	ActionApplyRestrictionRole  ActionKind = "apply_restriction_role"
	ActionRemoveRestrictionRole ActionKind = "remove_restriction_role"
	ActionNotifyReversal        ActionKind = "notify_reversal"
	ActionGrantRole             ActionKind = "grant_role"
	ActionLogInviteJoin         ActionKind = "log_invite_join"
)

// ActionRequest es lo que el core le pide a la capa de actuación.
// Los campos que no aplican al Kind quedan vacíos.
type ActionRequest struct {
	Kind        ActionKind
	GuildID     string
	MemberID    string
	ChannelID   string // canal de log / voz según el caso
	RoleID      string
	Text        string
	DeleteAfter time.Duration
}

// LogEvent es el payload estructurado que se publica en un canal de log.
// El adapter decide cómo renderizarlo (embed, color, etc).
type LogEvent struct {
	Kind     ActionKind
	GuildID  string
	MemberID string
	Text     string
	At       time.Time
}
