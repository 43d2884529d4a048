package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/jose-valero/guild-warden/internal/domain"
)

const snapshotsKept = 5

type snapshotPayload struct {
	TakenAt      time.Time                 `json:"taken_at"`
	Mutes        []domain.MuteRecord       `json:"mutes"`
	Rules        []domain.NotificationRule `json:"notification_rules"`
	Watches      []domain.VoiceWatch       `json:"voice_watches"`
	InviteRoles  []domain.InviteRole       `json:"invite_roles"`
	InviteCounts map[string]map[string]int `json:"invite_counts"`
}

// SnapshotService guarda cada tanto una copia completa del estado y conserva
// sólo las últimas.
type SnapshotService struct {
	mutes   *MuteRegistry
	rules   *NotificationRules
	watches WatchStore
	roles   InviteRoleStore
	invites *InviteReconciler
	store   SnapshotStore
	ids     IDGenerator
	clock   Clock
	log     *slog.Logger
}

func NewSnapshotService(mutes *MuteRegistry, rules *NotificationRules, watches WatchStore, roles InviteRoleStore,
	invites *InviteReconciler, store SnapshotStore, ids IDGenerator, clock Clock, log *slog.Logger) *SnapshotService {
	return &SnapshotService{
		mutes:   mutes,
		rules:   rules,
		watches: watches,
		roles:   roles,
		invites: invites,
		store:   store,
		ids:     ids,
		clock:   clock,
		log:     log.With("component", "snapshots"),
	}
}

func (s *SnapshotService) Tick(ctx context.Context) error {
	watches, err := s.watches.ListWatches(ctx)
	if err != nil {
		return fmt.Errorf("list watches: %w", err)
	}
	roles, err := s.roles.ListInviteRoles(ctx)
	if err != nil {
		return fmt.Errorf("list invite roles: %w", err)
	}

	now := s.clock.Now()
	payload, err := json.Marshal(snapshotPayload{
		TakenAt:      now,
		Mutes:        s.mutes.Snapshot(),
		Rules:        s.rules.Snapshot(),
		Watches:      watches,
		InviteRoles:  roles,
		InviteCounts: s.invites.Snapshot(),
	})
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}

	snap := domain.StateSnapshot{ID: s.ids.New(), CreatedAt: now, Payload: payload}
	if err := s.store.SaveSnapshot(ctx, snap); err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	removed, err := s.store.PruneSnapshots(ctx, snapshotsKept)
	if err != nil {
		return fmt.Errorf("prune snapshots: %w", err)
	}
	s.log.Info("state snapshot saved", "id", snap.ID, "bytes", len(payload), "pruned", removed)
	return nil
}
