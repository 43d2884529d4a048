package service

import (
	"context"

	"github.com/jose-valero/guild-warden/internal/domain"
)

// Presence lo implementa internal/adapters/discord.Platform (sólo lectura).
type Presence interface {
	// VoiceMembers devuelve los miembros (sin bots) conectados al canal.
	VoiceMembers(ctx context.Context, guildID, channelID string) ([]string, error)
	// ResolveChannel devuelve el guild dueño del canal, o ErrChannelDeleted /
	// ErrTransientResolution si no se pudo resolver.
	ResolveChannel(ctx context.Context, channelID string) (string, error)
}

// Actuator: acciones contra la plataforma. Ninguna se reintenta desde el core.
type Actuator interface {
	SendDirectWarning(ctx context.Context, memberID, text string) error
	DisconnectFromVoice(ctx context.Context, guildID, memberID string) error
	AddRole(ctx context.Context, guildID, memberID, roleID, reason string) error
	RemoveRole(ctx context.Context, guildID, memberID, roleID, reason string) error
	LogEvent(ctx context.Context, channelID string, ev domain.LogEvent) (messageID string, err error)
	DeleteMessage(ctx context.Context, channelID, messageID string) error
}

type InviteSource interface {
	FetchInvites(ctx context.Context, guildID string) ([]domain.Invite, error)
}

// Stores: los implementan storage.FileStore y storage.PGStore.

type MuteStore interface {
	LoadMutes(ctx context.Context) ([]domain.MuteRecord, error)
	SaveMutes(ctx context.Context, mutes []domain.MuteRecord) error
}

type RuleStore interface {
	ListRules(ctx context.Context) ([]domain.NotificationRule, error)
	UpsertRule(ctx context.Context, nr domain.NotificationRule) error
	DeleteRule(ctx context.Context, channelID string) (bool, error)
}

type WatchStore interface {
	ListWatches(ctx context.Context) ([]domain.VoiceWatch, error)
	UpsertWatch(ctx context.Context, w domain.VoiceWatch) error
	DeleteWatch(ctx context.Context, guildID string) (bool, error)
}

type InviteRoleStore interface {
	ListInviteRoles(ctx context.Context) ([]domain.InviteRole, error)
	UpsertInviteRole(ctx context.Context, ir domain.InviteRole) error
	DeleteInviteRole(ctx context.Context, guildID, code string) (bool, error)
}

type SnapshotStore interface {
	SaveSnapshot(ctx context.Context, s domain.StateSnapshot) error
	PruneSnapshots(ctx context.Context, keep int) (int64, error)
}
