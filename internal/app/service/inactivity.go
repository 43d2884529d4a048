package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jose-valero/guild-warden/internal/domain"
	"github.com/jose-valero/guild-warden/internal/infra/metrics"
)

// InactivityPolicy: umbrales de escalado. Disconnect > Warn lo valida config.
type InactivityPolicy struct {
	Warn       time.Duration
	Disconnect time.Duration
}

func (p InactivityPolicy) Validate() error {
	if p.Warn <= 0 {
		return fmt.Errorf("%w: warn threshold must be positive", domain.ErrInvalidArgument)
	}
	if p.Disconnect <= p.Warn {
		return fmt.Errorf("%w: disconnect threshold (%s) must exceed warn threshold (%s)",
			domain.ErrInvalidArgument, p.Disconnect, p.Warn)
	}
	return nil
}

type presenceRecord struct {
	since  time.Time
	warned bool
}

// VoiceTracker vigila el canal de inactivos de cada guild: avisa por DM y
// después desconecta. Es dueño exclusivo de sus registros de presencia.
type VoiceTracker struct {
	mu      sync.Mutex
	records map[domain.MemberKey]*presenceRecord

	policy   InactivityPolicy
	watches  WatchStore
	presence Presence
	dispatch *Dispatcher
	clock    Clock
	log      *slog.Logger
}

func NewVoiceTracker(policy InactivityPolicy, watches WatchStore, presence Presence, dispatch *Dispatcher, clock Clock, log *slog.Logger) *VoiceTracker {
	return &VoiceTracker{
		records:  map[domain.MemberKey]*presenceRecord{},
		policy:   policy,
		watches:  watches,
		presence: presence,
		dispatch: dispatch,
		clock:    clock,
		log:      log.With("component", "voice-inactivity"),
	}
}

// Evaluate aplica una foto de presencia y devuelve las acciones a ejecutar.
// No hace I/O: todo lo externo ya viene en snaps.
func (t *VoiceTracker) Evaluate(now time.Time, snaps []domain.GuildPresence) []domain.ActionRequest {
	t.mu.Lock()
	defer t.mu.Unlock()

	var actions []domain.ActionRequest
	watched := map[string]bool{} // guild -> resuelto en este tick
	present := map[domain.MemberKey]bool{}

	for _, snap := range snaps {
		g := snap.Watch.GuildID
		if snap.Unresolved {
			// transitorio: ni se evalúa ni se borra nada de este guild
			if _, seen := watched[g]; !seen {
				watched[g] = false
			}
			continue
		}
		watched[g] = true

		for _, memberID := range snap.Members {
			k := domain.MemberKey{GuildID: g, MemberID: memberID}
			if present[k] {
				continue
			}
			present[k] = true

			rec, ok := t.records[k]
			if !ok {
				t.records[k] = &presenceRecord{since: now}
				continue
			}

			elapsed := now.Sub(rec.since)
			if elapsed > t.policy.Warn && !rec.warned {
				rec.warned = true
				actions = append(actions, domain.ActionRequest{
					Kind:     domain.ActionWarnMember,
					GuildID:  g,
					MemberID: memberID,
					Text:     warnText(t.policy),
				})
			}
			if elapsed > t.policy.Disconnect {
				actions = append(actions,
					domain.ActionRequest{
						Kind:      domain.ActionDisconnectMember,
						GuildID:   g,
						MemberID:  memberID,
						ChannelID: snap.Watch.VoiceChannelID,
					},
					domain.ActionRequest{
						Kind:        domain.ActionLogDisconnect,
						GuildID:     g,
						MemberID:    memberID,
						ChannelID:   snap.Watch.LogChannelID,
						Text:        fmt.Sprintf("<@%s> fue desconectado por inactividad", memberID),
						DeleteAfter: snap.Watch.DeleteAfter,
					},
				)
				delete(t.records, k)
			}
		}
	}

	for k := range t.records {
		resolved, isWatched := watched[k.GuildID]
		switch {
		case !isWatched:
			delete(t.records, k) // el guild dejó de vigilarse
		case resolved && !present[k]:
			delete(t.records, k) // salió del canal: la sesión termina
		}
	}

	metrics.TrackedVoiceMembers.Set(float64(len(t.records)))
	return actions
}

func warnText(p InactivityPolicy) string {
	return fmt.Sprintf("⚠️ Llevás más de %d minutos en el canal de inactivos. ✅ Mostrate activo o vas a ser desconectado en %d minutos.",
		int(p.Warn/time.Minute), int((p.Disconnect-p.Warn)/time.Minute))
}

// Tick arma la foto de todos los guilds vigilados, evalúa y despacha.
func (t *VoiceTracker) Tick(ctx context.Context) error {
	watches, err := t.watches.ListWatches(ctx)
	if err != nil {
		return fmt.Errorf("list voice watches: %w", err)
	}

	snaps := make([]domain.GuildPresence, 0, len(watches))
	for _, w := range watches {
		snaps = append(snaps, t.snapshot(ctx, w))
	}

	actions := t.Evaluate(t.clock.Now(), snaps)
	t.dispatch.Dispatch(ctx, actions)
	return nil
}

// snapshot nunca falla: cualquier problema con un guild lo marca como no resuelto.
func (t *VoiceTracker) snapshot(ctx context.Context, w domain.VoiceWatch) (gp domain.GuildPresence) {
	gp.Watch = w
	defer func() {
		if rec := recover(); rec != nil {
			t.log.Error("panic reading guild presence", "guild", w.GuildID, "panic", rec)
			gp.Unresolved = true
			gp.Members = nil
		}
	}()

	for _, ch := range []string{w.VoiceChannelID, w.LogChannelID} {
		owner, err := t.presence.ResolveChannel(ctx, ch)
		if err == nil && owner != w.GuildID {
			err = domain.ErrGuildMismatch
		}
		if err != nil {
			t.skip(w, ch, err)
			gp.Unresolved = true
			return gp
		}
	}

	members, err := t.presence.VoiceMembers(ctx, w.GuildID, w.VoiceChannelID)
	if err != nil {
		t.skip(w, w.VoiceChannelID, err)
		gp.Unresolved = true
		return gp
	}
	gp.Members = members
	return gp
}

func (t *VoiceTracker) skip(w domain.VoiceWatch, channelID string, err error) {
	metrics.SkippedGuilds.Inc()
	level := slog.LevelInfo
	if !errors.Is(err, domain.ErrChannelDeleted) && !errors.Is(err, domain.ErrTransientResolution) {
		level = slog.LevelWarn
	}
	t.log.Log(context.Background(), level, "skipping guild this tick", "guild", w.GuildID, "channel", channelID, "err", err)
}

// Forget termina la sesión de un miembro (muteado, expulsado o fuera del guild).
func (t *VoiceTracker) Forget(guildID, memberID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.records, domain.MemberKey{GuildID: guildID, MemberID: memberID})
}

// Tracked devuelve cuántos miembros se están siguiendo.
func (t *VoiceTracker) Tracked() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.records)
}

// Watch / Unwatch los usa la capa de comandos.

func (t *VoiceTracker) Watch(ctx context.Context, w domain.VoiceWatch) error {
	if w.GuildID == "" || w.VoiceChannelID == "" || w.LogChannelID == "" {
		return fmt.Errorf("%w: guild, voice channel and log channel are required", domain.ErrInvalidArgument)
	}
	if w.DeleteAfter < 0 {
		return fmt.Errorf("%w: delete_after must not be negative", domain.ErrInvalidArgument)
	}
	for _, ch := range []string{w.VoiceChannelID, w.LogChannelID} {
		owner, err := t.presence.ResolveChannel(ctx, ch)
		if err != nil {
			return err
		}
		if owner != w.GuildID {
			return domain.ErrGuildMismatch
		}
	}
	return t.watches.UpsertWatch(ctx, w)
}

func (t *VoiceTracker) Unwatch(ctx context.Context, guildID string) error {
	ok, err := t.watches.DeleteWatch(ctx, guildID)
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrNotFound
	}
	return nil
}
